package profile

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/caretaker-ai/caretaker/internal/llm"
)

const summarizerPrompt = `You summarize patient profile changes for a care log.
Write a concise natural-language summary of the changes below.
Use a neutral first-person register ("Sleep hours updated from 7 to 9").
Each change must contribute at most 20 words. Do not editorialize.`

// Summarizer renders a change list as short human-readable text via the LLM
// gateway.
type Summarizer struct {
	gateway llm.Gateway
}

// NewSummarizer creates a summarizer over the given gateway.
func NewSummarizer(gateway llm.Gateway) *Summarizer {
	return &Summarizer{gateway: gateway}
}

// Summarize returns a natural-language summary of the changes, or an error
// when the gateway fails. Empty input yields an empty string without an LLM
// call. Callers fail open: on error no update entry is appended, but the
// profile mutation stands.
func (s *Summarizer) Summarize(ctx context.Context, changes []Change) (string, error) {
	if len(changes) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for _, c := range changes {
		fmt.Fprintf(&sb, "Field: %s\nBefore: %v\nAfter: %v\nType: %s\n\n", c.Path, c.Before, c.After, c.Type)
	}

	summary, err := s.gateway.Generate(ctx, summarizerPrompt, sb.String(), 0.2)
	if err != nil {
		log.Warn().Err(err).Int("changes", len(changes)).Msg("summarizer: llm failed, no update emitted")
		return "", err
	}
	return strings.TrimSpace(summary), nil
}
