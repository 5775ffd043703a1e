package memory

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/caretaker-ai/caretaker/internal/llm"
	"github.com/caretaker-ai/caretaker/internal/state"
)

const profileReferencePrompt = `You are given a patient profile and a user utterance.
Answer "yes" if the utterance references any field or value of the profile, otherwise "no".
Respond with ONLY yes or no.`

const relevancePrompt = `You are given a user utterance and a list of stored memory entries.
Answer "yes" if any of the entries are relevant to the utterance, otherwise "no".
Respond with ONLY yes or no.`

const meaningfulPrompt = `Answer "yes" if the utterance is meaningful to store: a stable fact or
preference about the user, or medical content. Small talk, greetings, and
one-off questions are "no".
Respond with ONLY yes or no.`

// Precheck runs the memory protocol for text-routed utterances:
//
//  1. Skip all memory work when the utterance references the profile.
//  2. Search top-3 against memory.
//  3. If any result is judged relevant, answer from memory and stop.
//  4. Otherwise store the utterance when it is judged meaningful.
//
// All three LLM judgments fail closed (not relevant / do not store).
type Precheck struct {
	gateway llm.Gateway
	store   *Store
}

// NewPrecheck creates the precheck over a gateway and a store.
func NewPrecheck(gateway llm.Gateway, store *Store) *Precheck {
	return &Precheck{gateway: gateway, store: store}
}

// Run executes the protocol against the request state. It may set
// FinalAnswer (source "memory") or append one memory entry; it never does
// both.
func (p *Precheck) Run(ctx context.Context, st *state.AgentState) {
	if p.referencesProfile(ctx, st) {
		log.Debug().Msg("memory precheck: utterance references profile, skipping")
		return
	}

	results, err := p.store.Search(ctx, st.Input, st.Memory, PrecheckSearchK)
	if err != nil {
		st.Err = err
		log.Warn().Err(err).Msg("memory precheck: search failed")
		results = nil
	}

	if len(results) > 0 && p.anyRelevant(ctx, st.Input, results) {
		texts := make([]string, len(results))
		for i, r := range results {
			texts[i] = r.Text
		}
		st.Results = texts
		st.FinalAnswer = "Here is what I remember: " + strings.Join(texts, "; ")
		st.Source = state.SourceMemory
		return
	}

	if p.meaningfulToStore(ctx, st.Input) {
		p.store.Append(st)
	}
}

// referencesProfile asks whether the utterance touches any profile field.
// The flattened profile is serialized as context.
func (p *Precheck) referencesProfile(ctx context.Context, st *state.AgentState) bool {
	profileJSON, err := json.Marshal(st.Profile)
	if err != nil {
		return false
	}

	user := "Profile:\n" + string(profileJSON) + "\n\nUtterance:\n" + st.Input
	answer, err := p.gateway.Generate(ctx, profileReferencePrompt, user, 0)
	if err != nil {
		log.Warn().Err(err).Msg("memory precheck: profile reference judgment failed")
		return false
	}
	return isYes(answer)
}

func (p *Precheck) anyRelevant(ctx context.Context, utterance string, results []state.MemoryEntry) bool {
	var sb strings.Builder
	sb.WriteString("Utterance:\n")
	sb.WriteString(utterance)
	sb.WriteString("\n\nMemories:\n")
	for _, r := range results {
		sb.WriteString("- ")
		sb.WriteString(r.Text)
		sb.WriteString("\n")
	}

	answer, err := p.gateway.Generate(ctx, relevancePrompt, sb.String(), 0)
	if err != nil {
		log.Warn().Err(err).Msg("memory precheck: relevance judgment failed")
		return false
	}
	return isYes(answer)
}

func (p *Precheck) meaningfulToStore(ctx context.Context, utterance string) bool {
	answer, err := p.gateway.Generate(ctx, meaningfulPrompt, utterance, 0)
	if err != nil {
		log.Warn().Err(err).Msg("memory precheck: storage judgment failed")
		return false
	}
	return isYes(answer)
}

func isYes(answer string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(answer)), "yes")
}
