package profile

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/caretaker-ai/caretaker/internal/llm"
	"github.com/caretaker-ai/caretaker/internal/state"
)

const (
	toolReadProfile   = "read_patient_profile"
	toolUpdateProfile = "update_patient_profile"
)

const toolSelectionPrompt = `You select exactly one tool for a healthcare assistant.

Tools:
- read_patient_profile: the user asks to see, list, or confirm information already in their profile
- update_patient_profile: the user states new information that should change their profile (sleep, allergies, medications, appointments, checklist)

Respond with ONLY the tool name, nothing else.`

const updatePrompt = `You update a patient profile object based on the user's utterance.

Rules:
- Update ONLY existing fields. Items may be appended to existing lists.
- Adding entirely new top-level fields is FORBIDDEN: if the utterance requires a new field, return the original object unchanged.
- Preserve the structure of the object exactly.
- Always return valid JSON with double-quoted keys and nothing else.`

// Tool implements the patient profile operations: a read that leaves state
// untouched, and an LLM-driven update that can never reach the protected
// recommendations sub-field.
type Tool struct {
	gateway    llm.Gateway
	summarizer *Summarizer
}

// NewTool creates a profile tool over the given gateway.
func NewTool(gateway llm.Gateway) *Tool {
	return &Tool{
		gateway:    gateway,
		summarizer: NewSummarizer(gateway),
	}
}

// Read returns the state unchanged; the profile is already present on it.
func (t *Tool) Read(st *state.AgentState) *state.AgentState {
	return st
}

// Run selects between the read and update operations with a secondary LLM
// call and executes the choice. Errors are captured on st.Err and never
// propagate; the graph continues to END.
func (t *Tool) Run(ctx context.Context, st *state.AgentState) {
	st.Source = state.SourcePatient

	choice, err := t.gateway.Generate(ctx, toolSelectionPrompt, st.Input, 0)
	if err != nil {
		st.Err = err
		log.Warn().Err(err).Msg("profile tool: selection failed")
		return
	}

	if strings.TrimSpace(strings.ToLower(choice)) != toolUpdateProfile {
		t.Read(st)
		return
	}

	t.update(ctx, st)
}

// update performs the guarded LLM profile mutation.
func (t *Tool) update(ctx context.Context, st *state.AgentState) {
	before := state.DeepCopy(st.Profile)

	// The protected subtree is invisible to the LLM.
	stripped, guard := StripRecommendations(st.Profile)

	strippedJSON, err := json.Marshal(stripped)
	if err != nil {
		st.Err = err
		return
	}

	user := "Profile:\n" + string(strippedJSON) + "\n\nUtterance:\n" + st.Input
	completion, err := t.gateway.Generate(ctx, updatePrompt, user, 0)

	var updated state.FlattenedProfile
	if err != nil {
		st.Err = err
		updated = stripped
	} else {
		parsed, perr := ParseProfileObject(completion)
		if perr != nil {
			log.Warn().Err(perr).Msg("profile tool: unparseable completion, keeping original profile")
			updated = stripped
		} else {
			updated = parsed
		}
	}

	guard.Reinject(updated)
	st.Profile = updated
	st.FinalAnswer = ""

	changes := Diff(before, updated)
	if len(changes) == 0 {
		return
	}

	summary, serr := t.summarizer.Summarize(ctx, changes)
	if serr != nil || summary == "" {
		// Fail open: the mutation stands, no update entry is written.
		return
	}

	st.Updates = append(st.Updates, state.UpdateEntry{
		Datetime: state.Timestamp(),
		Text:     summary,
	})

	log.Debug().
		Int("changes", len(changes)).
		Msg("profile tool: profile updated")
}
