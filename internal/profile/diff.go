// Package profile implements the patient-profile subsystem: the recursive
// differ, the protected-field guard, the LLM-driven update tool, and the
// change summarizer.
package profile

import (
	"encoding/json"
	"reflect"
	"sort"
)

// ChangeType classifies a single profile change.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
)

// Change is one typed dotted-path difference between two profile trees.
type Change struct {
	Path   string     `json:"path"`
	Before any        `json:"before"`
	After  any        `json:"after"`
	Type   ChangeType `json:"type"`
}

// Diff recursively compares two profile trees and returns a typed change
// list. Only keys present in before are traversed; top-level keys are
// invariant across a request, so a key missing from before indicates a
// contract violation upstream and is ignored here.
//
// The result is deterministic: keys are visited in sorted order.
func Diff(before, after map[string]any) []Change {
	var changes []Change
	diffInto("", before, after, &changes)
	return changes
}

func diffInto(prefix string, before, after map[string]any, changes *[]Change) {
	keys := make([]string, 0, len(before))
	for k := range before {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		beforeVal := before[key]
		afterVal, ok := after[key]
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if !ok {
			*changes = append(*changes, Change{Path: path, Before: beforeVal, After: nil, Type: ChangeRemoved})
			continue
		}

		beforeMap, beforeIsMap := beforeVal.(map[string]any)
		afterMap, afterIsMap := afterVal.(map[string]any)
		if beforeIsMap && afterIsMap {
			diffInto(path, beforeMap, afterMap, changes)
			continue
		}

		beforeSeq, beforeIsSeq := asSequence(beforeVal)
		afterSeq, afterIsSeq := asSequence(afterVal)
		if beforeIsSeq && afterIsSeq {
			switch {
			case len(beforeSeq) == len(afterSeq):
				if !reflect.DeepEqual(beforeSeq, afterSeq) {
					*changes = append(*changes, Change{Path: path, Before: beforeVal, After: afterVal, Type: ChangeModified})
				}
			case len(afterSeq) > len(beforeSeq):
				*changes = append(*changes, Change{Path: path, Before: beforeVal, After: afterVal, Type: ChangeAdded})
			default:
				*changes = append(*changes, Change{Path: path, Before: beforeVal, After: afterVal, Type: ChangeRemoved})
			}
			continue
		}

		if !equalScalar(beforeVal, afterVal) {
			*changes = append(*changes, Change{Path: path, Before: beforeVal, After: afterVal, Type: ChangeModified})
		}
	}
}

func asSequence(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// equalScalar compares leaf values, treating numerically equal ints and
// floats as equal. JSON decoding yields float64, but profiles built in Go
// code may carry int values for the same field.
func equalScalar(a, b any) bool {
	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
