// Package medical forwards utterances to an external medical reasoning
// endpoint over a single synchronous HTTP POST.
package medical

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/caretaker-ai/caretaker/internal/config"
)

// ErrBridgeFailed is returned on transport errors or non-2xx responses.
var ErrBridgeFailed = errors.New("medical bridge failed")

// Bridge posts {prompt} to the configured reasoning endpoint.
type Bridge struct {
	http     *resty.Client
	endpoint string
}

// NewBridge creates a bridge from configuration.
func NewBridge(cfg config.MedicalConfig) *Bridge {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 20 * time.Second
	}
	return &Bridge{
		http:     resty.New().SetTimeout(timeout),
		endpoint: cfg.Endpoint,
	}
}

// SetEndpoint overrides the reasoning endpoint. Used by tests.
func (b *Bridge) SetEndpoint(url string) {
	b.endpoint = url
}

// Reason sends the utterance and returns the response body text. On any
// failure it returns ErrBridgeFailed; callers surface a diagnostic string
// instead of aborting the graph.
func (b *Bridge) Reason(ctx context.Context, prompt string) (string, error) {
	resp, err := b.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"prompt": prompt}).
		Post(b.endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBridgeFailed, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("%w: status %d", ErrBridgeFailed, resp.StatusCode())
	}

	log.Debug().
		Int("status", resp.StatusCode()).
		Dur("duration", resp.Time()).
		Msg("medical bridge responded")

	return resp.String(), nil
}
