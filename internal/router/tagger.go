package router

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/caretaker-ai/caretaker/internal/llm"
)

// ClassificationPrompt is the fixed system prompt for the tagger. The model
// must answer with exactly one lowercase tag token.
const ClassificationPrompt = `You are a request classifier for a healthcare assistant. Classify the user's utterance into exactly ONE tag.

Tags:
- text: greetings, casual chat, general knowledge, and ANY request to add, update, or remove recommendations
- patient: reading or updating the patient profile (allergies, medications, sleep, appointments), EXCLUDING recommendations
- web: real-time or volatile facts (prices, weather, news, sports scores)
- medical: medical reasoning, symptom analysis, verification, drug interactions
- ui_change: interface, theme, or layout requests
- add_treatment: adding a non-medication treatment such as physiotherapy or occupational therapy

Disambiguation rules:
- Recommendation add/update/remove is ALWAYS text, never patient.
- "Add physiotherapy" or "add occupational therapy" is add_treatment, not patient.
- Anything ambiguous is text.

Respond with ONLY the tag, nothing else.`

// Tagger maps an utterance to a route tag with a single LLM call.
// It is stateless and fails closed to the text route.
type Tagger struct {
	gateway llm.Gateway
}

// NewTagger creates a tagger over the given gateway.
func NewTagger(gateway llm.Gateway) *Tagger {
	return &Tagger{gateway: gateway}
}

// Classify returns the route tag for an utterance. On LLM error or any
// output that is not exactly one known tag token, it returns TagText.
func (t *Tagger) Classify(ctx context.Context, utterance string) RouteTag {
	response, err := t.gateway.Generate(ctx, ClassificationPrompt, utterance, 0)
	if err != nil {
		log.Warn().Err(err).Msg("tagger: classification failed, routing to text")
		return TagText
	}

	tag := ParseRouteTag(response)
	log.Debug().
		Str("tag", tag.String()).
		Str("raw", response).
		Msg("tagger: classified utterance")
	return tag
}

// ParseRouteTag coerces an LLM response to a RouteTag. Anything that is not
// exactly one known lowercase tag token becomes TagText.
func ParseRouteTag(response string) RouteTag {
	token := strings.ToLower(strings.TrimSpace(response))
	token = strings.TrimSuffix(token, ".")

	tag := RouteTag(token)
	if tag.IsValid() {
		return tag
	}
	return TagText
}
