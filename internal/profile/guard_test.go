package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caretaker-ai/caretaker/internal/state"
)

func TestStripRecommendations_TopLevel(t *testing.T) {
	flat := state.FlattenedProfile{
		"name":            "A",
		"recommendations": []any{"drink water"},
	}

	stripped, guard := StripRecommendations(flat)

	_, ok := stripped["recommendations"]
	assert.False(t, ok, "recommendations must be removed from the stripped copy")
	assert.Equal(t, "A", stripped["name"])

	// The source profile is untouched.
	assert.Equal(t, []any{"drink water"}, flat["recommendations"])

	guard.Reinject(stripped)
	assert.Equal(t, []any{"drink water"}, stripped["recommendations"])
}

func TestStripRecommendations_TreatmentEntries(t *testing.T) {
	flat := state.FlattenedProfile{
		"treatment": []any{
			map[string]any{"name": "physio", "recommendations": []any{"stretch daily"}},
			map[string]any{"name": "meds"},
			map[string]any{"name": "diet", "recommendations": []any{"less salt"}},
		},
	}

	stripped, guard := StripRecommendations(flat)

	entries := stripped["treatment"].([]any)
	require.Len(t, entries, 3)
	for i, entry := range entries {
		_, ok := entry.(map[string]any)["recommendations"]
		assert.False(t, ok, "entry %d still carries recommendations", i)
	}

	guard.Reinject(stripped)

	entries = stripped["treatment"].([]any)
	assert.Equal(t, []any{"stretch daily"}, entries[0].(map[string]any)["recommendations"])
	_, ok := entries[1].(map[string]any)["recommendations"]
	assert.False(t, ok, "entry without recommendations gained one")
	assert.Equal(t, []any{"less salt"}, entries[2].(map[string]any)["recommendations"])
}

func TestReinject_PositionalAfterShrink(t *testing.T) {
	flat := state.FlattenedProfile{
		"treatment": []any{
			map[string]any{"name": "a", "recommendations": "keep-a"},
			map[string]any{"name": "b", "recommendations": "keep-b"},
		},
	}

	stripped, guard := StripRecommendations(flat)

	// The LLM dropped the second entry; reinjection must not panic and must
	// restore only the surviving position.
	stripped["treatment"] = stripped["treatment"].([]any)[:1]
	guard.Reinject(stripped)

	entries := stripped["treatment"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "keep-a", entries[0].(map[string]any)["recommendations"])
}

func TestStripRecommendations_NothingProtected(t *testing.T) {
	flat := state.FlattenedProfile{"name": "A"}

	stripped, guard := StripRecommendations(flat)
	guard.Reinject(stripped)

	_, ok := stripped["recommendations"]
	assert.False(t, ok, "reinjection invented a recommendations key")
}
