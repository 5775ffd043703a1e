// Package embedding encodes short strings into fixed-dimensional vectors and
// ranks an in-request corpus by cosine similarity.
package embedding

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/caretaker-ai/caretaker/internal/config"
)

// ErrUnavailable is returned when the embedding model cannot be reached.
var ErrUnavailable = errors.New("embedding unavailable")

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Encode returns the embedding vector for text.
	Encode(ctx context.Context, text string) ([]float32, error)

	// ModelName returns the embedding model identifier.
	ModelName() string
}

// OllamaEmbedder calls an Ollama-compatible /api/embeddings endpoint.
type OllamaEmbedder struct {
	endpoint string
	model    string
	client   *http.Client

	// Content-hash cache. Request-scoped strings repeat often (the same
	// query is scored against every corpus entry), so this stays small.
	mu    sync.RWMutex
	cache map[string][]float32
}

// NewOllamaEmbedder creates an embedder from configuration.
func NewOllamaEmbedder(cfg config.EmbeddingConfig) *OllamaEmbedder {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	e := &OllamaEmbedder{
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		client:   &http.Client{Timeout: timeout},
		cache:    make(map[string][]float32),
	}

	log.Info().
		Str("model", e.model).
		Str("endpoint", e.endpoint).
		Msg("embedder initialized")

	return e
}

// ModelName returns the configured embedding model name.
func (e *OllamaEmbedder) ModelName() string {
	return e.model
}

// Encode returns the embedding for text, checking the cache first.
func (e *OllamaEmbedder) Encode(ctx context.Context, text string) ([]float32, error) {
	hash := hashContent(text)

	e.mu.RLock()
	cached, ok := e.cache[hash]
	e.mu.RUnlock()
	if ok {
		log.Debug().Str("hash", hash[:8]).Msg("embedding cache hit")
		return cached, nil
	}

	reqBody, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", e.endpoint+"/api/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var embedResp embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	if len(embedResp.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrUnavailable)
	}

	vector := make([]float32, len(embedResp.Embedding))
	for i, v := range embedResp.Embedding {
		vector[i] = float32(v)
	}

	e.mu.Lock()
	e.cache[hash] = vector
	e.mu.Unlock()

	return vector, nil
}

func hashContent(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}
