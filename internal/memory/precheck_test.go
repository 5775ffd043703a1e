package memory

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caretaker-ai/caretaker/internal/state"
)

// fakeEmbedder scores texts by shared-word overlap so similarity ordering is
// predictable without a model. Vectors are one-hot over a small vocabulary.
type fakeEmbedder struct{}

var vocab = []string{"dog", "cat", "walk", "sleep", "pizza", "weather"}

func (fakeEmbedder) Encode(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, len(vocab))
	lower := strings.ToLower(text)
	for i, w := range vocab {
		if strings.Contains(lower, w) {
			vec[i] = 1
		}
	}
	// Guarantee a nonzero vector so cosine similarity is defined.
	vec = append(vec, 0.01)
	return vec, nil
}

func (fakeEmbedder) ModelName() string { return "fake" }

type promptGateway struct {
	answers map[string]string // system prompt fragment -> reply
	err     error
}

func (g *promptGateway) Generate(_ context.Context, system, _ string, _ float64) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	for fragment, reply := range g.answers {
		if strings.Contains(system, fragment) {
			return reply, nil
		}
	}
	return "no", nil
}

func memoryOf(texts ...string) []state.MemoryEntry {
	entries := make([]state.MemoryEntry, len(texts))
	for i, t := range texts {
		entries[i] = state.MemoryEntry{Text: t, Datetime: "01_01_26_12_00"}
	}
	return entries
}

func TestStoreAppend(t *testing.T) {
	st := &state.AgentState{Input: "I walk my dog every morning"}

	NewStore(fakeEmbedder{}).Append(st)

	require.Len(t, st.Memory, 1)
	assert.Equal(t, "I walk my dog every morning", st.Memory[0].Text)
	assert.Regexp(t, regexp.MustCompile(`^\d{2}_\d{2}_\d{2}_\d{2}_\d{2}$`), st.Memory[0].Datetime)
}

func TestStoreSearch_EmptyMemory(t *testing.T) {
	results, err := NewStore(fakeEmbedder{}).Search(context.Background(), "anything", nil, DefaultSearchK)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStoreSearch_RanksBySimilarity(t *testing.T) {
	entries := memoryOf(
		"pizza night on fridays",
		"the dog loves long walks",
		"cat sleeps all day",
	)

	results, err := NewStore(fakeEmbedder{}).Search(context.Background(), "dog walk", entries, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "the dog loves long walks", results[0].Text)
}

func TestPrecheck_ProfileReferenceSkipsMemory(t *testing.T) {
	gw := &promptGateway{answers: map[string]string{
		"references any field": "yes",
	}}
	st := &state.AgentState{
		Input:   "what is my blood type?",
		Profile: state.FlattenedProfile{"bloodType": "O+"},
		Memory:  memoryOf("the dog loves long walks"),
	}

	NewPrecheck(gw, NewStore(fakeEmbedder{})).Run(context.Background(), st)

	assert.Empty(t, st.FinalAnswer)
	assert.Len(t, st.Memory, 1, "nothing stored on the skip path")
	assert.Equal(t, state.SourceNone, st.Source)
}

func TestPrecheck_RelevantMemoryAnswers(t *testing.T) {
	gw := &promptGateway{answers: map[string]string{
		"references any field": "no",
		"are relevant":         "yes",
	}}
	st := &state.AgentState{
		Input:  "when do I walk the dog?",
		Memory: memoryOf("the dog loves long walks"),
	}

	NewPrecheck(gw, NewStore(fakeEmbedder{})).Run(context.Background(), st)

	assert.True(t, strings.HasPrefix(st.FinalAnswer, "Here is what I remember: "),
		"answer %q must carry the memory preamble", st.FinalAnswer)
	assert.Contains(t, st.FinalAnswer, "the dog loves long walks")
	assert.Equal(t, state.SourceMemory, st.Source)
	assert.Len(t, st.Memory, 1, "answering from memory must not also store")
}

func TestPrecheck_MeaningfulUtteranceStored(t *testing.T) {
	gw := &promptGateway{answers: map[string]string{
		"references any field": "no",
		"are relevant":         "no",
		"meaningful to store":  "yes",
	}}
	st := &state.AgentState{Input: "I am allergic to penicillin"}

	NewPrecheck(gw, NewStore(fakeEmbedder{})).Run(context.Background(), st)

	assert.Empty(t, st.FinalAnswer)
	require.Len(t, st.Memory, 1)
	assert.Equal(t, "I am allergic to penicillin", st.Memory[0].Text)
}

func TestPrecheck_SmallTalkNotStored(t *testing.T) {
	gw := &promptGateway{answers: map[string]string{
		"references any field": "no",
		"are relevant":         "no",
		"meaningful to store":  "no",
	}}
	st := &state.AgentState{Input: "hello there"}

	NewPrecheck(gw, NewStore(fakeEmbedder{})).Run(context.Background(), st)

	assert.Empty(t, st.FinalAnswer)
	assert.Empty(t, st.Memory)
}

func TestPrecheck_GatewayFailureFailsClosed(t *testing.T) {
	gw := &promptGateway{err: errors.New("llm down")}
	st := &state.AgentState{
		Input:  "I am allergic to penicillin",
		Memory: memoryOf("the dog loves long walks"),
	}

	NewPrecheck(gw, NewStore(fakeEmbedder{})).Run(context.Background(), st)

	assert.Empty(t, st.FinalAnswer, "failed relevance judgment must not answer from memory")
	assert.Len(t, st.Memory, 1, "failed storage judgment must not store")
}

func TestIsYes(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"yes", true},
		{"Yes.", true},
		{" YES, definitely", true},
		{"no", false},
		{"maybe yes", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isYes(tt.answer), "isYes(%q)", tt.answer)
	}
}
