package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/caretaker-ai/caretaker/internal/config"
)

// Gateway is the single synchronous completion surface used by the rest of
// the system: a (system, user) pair in, a string completion out.
type Gateway interface {
	// Generate returns a completion for the given system instruction and
	// user message at the given temperature.
	Generate(ctx context.Context, system, user string, temperature float64) (string, error)
}

// ProviderGateway adapts a Provider to the Gateway interface.
type ProviderGateway struct {
	provider Provider
}

// NewGateway builds the gateway from configuration. The use_local flag
// selects the self-hosted provider; otherwise the cloud provider is used.
func NewGateway(cfg *config.Config) *ProviderGateway {
	var provider Provider
	if cfg.LLM.UseLocal {
		provider = NewOllamaProvider(&ProviderConfig{
			Endpoint:    cfg.LLM.LocalEndpoint,
			Model:       cfg.LLM.LocalModel,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		})
	} else {
		provider = NewOpenAIProvider(&ProviderConfig{
			Endpoint:    cfg.LLM.CloudEndpoint,
			APIKey:      cfg.LLM.CloudAPIKey,
			Model:       cfg.LLM.CloudModel,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		})
	}

	log.Info().
		Str("provider", provider.Name()).
		Bool("available", provider.Available()).
		Msg("llm gateway initialized")

	return &ProviderGateway{provider: provider}
}

// NewGatewayWithProvider wraps an explicit provider. Used by tests.
func NewGatewayWithProvider(p Provider) *ProviderGateway {
	return &ProviderGateway{provider: p}
}

// Generate implements Gateway.
func (g *ProviderGateway) Generate(ctx context.Context, system, user string, temperature float64) (string, error) {
	resp, err := g.provider.Chat(ctx, &ChatRequest{
		SystemPrompt: system,
		Messages:     []Message{{Role: "user", Content: user}},
		Temperature:  temperature,
	})
	if err != nil {
		return "", err
	}

	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return "", fmt.Errorf("%w: non-textual response", ErrUnavailable)
	}

	log.Debug().
		Str("provider", g.provider.Name()).
		Int("prompt_tokens", resp.PromptTokens).
		Int("completion_tokens", resp.CompletionTokens).
		Dur("duration", resp.Duration).
		Msg("llm completion")

	return content, nil
}
