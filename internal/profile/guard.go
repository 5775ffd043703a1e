package profile

import (
	"github.com/caretaker-ai/caretaker/internal/state"
)

// recommendationsKey is the protected sub-field: the LLM never sees it and
// can never mutate it.
const recommendationsKey = "recommendations"

// Guard holds the recommendation subtrees removed before an LLM update so
// they can be reinjected afterwards. Treatment-entry lists are restored by
// position, not by key.
type Guard struct {
	topLevel    any
	hasTopLevel bool
	entries     []any
	hasEntries  []bool
}

// StripRecommendations deep-copies the flattened profile and removes every
// recommendations subtree: the hoisted top-level key, and, when the profile
// still carries a treatment entry list, the key inside each entry.
func StripRecommendations(flat state.FlattenedProfile) (state.FlattenedProfile, *Guard) {
	stripped := state.DeepCopy(flat)
	guard := &Guard{}

	if v, ok := stripped[recommendationsKey]; ok {
		guard.topLevel = v
		guard.hasTopLevel = true
		delete(stripped, recommendationsKey)
	}

	if entries, ok := stripped["treatment"].([]any); ok {
		guard.entries = make([]any, len(entries))
		guard.hasEntries = make([]bool, len(entries))
		for i, entry := range entries {
			if m, ok := entry.(map[string]any); ok {
				if v, ok := m[recommendationsKey]; ok {
					guard.entries[i] = v
					guard.hasEntries[i] = true
					delete(m, recommendationsKey)
				}
			}
		}
	}

	return stripped, guard
}

// Reinject restores the removed recommendation subtrees into the updated
// profile, positionally for treatment entry lists.
func (g *Guard) Reinject(flat state.FlattenedProfile) {
	if g.hasTopLevel {
		flat[recommendationsKey] = g.topLevel
	}

	if len(g.hasEntries) == 0 {
		return
	}
	entries, ok := flat["treatment"].([]any)
	if !ok {
		return
	}
	for i, has := range g.hasEntries {
		if !has || i >= len(entries) {
			continue
		}
		if m, ok := entries[i].(map[string]any); ok {
			m[recommendationsKey] = g.entries[i]
		}
	}
}
