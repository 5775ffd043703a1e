// Package memory implements the semantic memory subsystem: an append-only
// store with top-K similarity search, and the precheck protocol run for
// text-routed utterances.
package memory

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/caretaker-ai/caretaker/internal/embedding"
	"github.com/caretaker-ai/caretaker/internal/state"
)

const (
	// DefaultSearchK is the top-K used by plain memory search.
	DefaultSearchK = 5
	// PrecheckSearchK is the top-K used inside the precheck protocol.
	PrecheckSearchK = 3
)

// Store provides append and similarity search over the request's memory
// sequence. Memory only ever grows; nothing is deduplicated or deleted.
type Store struct {
	embedder embedding.Embedder
}

// NewStore creates a store over the given embedder.
func NewStore(embedder embedding.Embedder) *Store {
	return &Store{embedder: embedder}
}

// Append constructs a memory entry from the utterance and the current time
// and appends it to the state's memory.
func (s *Store) Append(st *state.AgentState) {
	st.Memory = append(st.Memory, state.MemoryEntry{
		Text:     st.Input,
		Datetime: state.Timestamp(),
	})
	log.Debug().Int("entries", len(st.Memory)).Msg("memory: appended entry")
}

// Search returns the top-K memory entries most similar to the query, ranked
// by descending cosine similarity with insertion-order tie-break. Empty
// memory yields empty results.
func (s *Store) Search(ctx context.Context, query string, entries []state.MemoryEntry, k int) ([]state.MemoryEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	corpus := make([]string, len(entries))
	for i, e := range entries {
		corpus[i] = e.Text
	}

	indices, err := embedding.TopK(ctx, s.embedder, query, corpus, k)
	if err != nil {
		return nil, err
	}

	results := make([]state.MemoryEntry, len(indices))
	for i, idx := range indices {
		results[i] = entries[idx]
	}
	return results, nil
}
