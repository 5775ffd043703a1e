package embedding

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
)

// CosineSimilarity calculates the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction.
// Mismatched or empty vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ScoredIndex pairs a corpus index with its similarity score.
type ScoredIndex struct {
	Index int
	Score float64
}

// TopK encodes the query and every corpus string, then returns the indices
// of the K most similar corpus entries, ranked by cosine similarity
// descending with insertion-order tie-break.
func TopK(ctx context.Context, e Embedder, query string, corpus []string, k int) ([]int, error) {
	if len(corpus) == 0 || k <= 0 {
		return nil, nil
	}

	queryVec, err := e.Encode(ctx, query)
	if err != nil {
		return nil, err
	}

	// Corpus entries embed independently; bound the fan-out so a large
	// memory doesn't swamp the embedding server.
	vectors := make([][]float32, len(corpus))
	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(4)
	for i, text := range corpus {
		group.Go(func() error {
			vec, err := e.Encode(gctx, text)
			if err != nil {
				return err
			}
			vectors[i] = vec
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	scored := make([]ScoredIndex, 0, len(corpus))
	for i := range corpus {
		scored = append(scored, ScoredIndex{Index: i, Score: CosineSimilarity(queryVec, vectors[i])})
	}

	// Stable sort keeps insertion order among equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > len(scored) {
		k = len(scored)
	}
	indices := make([]int, k)
	for i := 0; i < k; i++ {
		indices[i] = scored[i].Index
	}
	return indices, nil
}
