package profile

import (
	"encoding/json"
	"fmt"
)

// FirstJSONObject returns the first balanced {...} substring of s. Braces
// inside double-quoted strings (including escaped quotes) are ignored.
func FirstJSONObject(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if start >= 0 {
				inString = true
			}
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start < 0 {
				continue
			}
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// ParseProfileObject extracts and decodes the first balanced JSON object
// from an LLM completion.
func ParseProfileObject(completion string) (map[string]any, error) {
	raw, ok := FirstJSONObject(completion)
	if !ok {
		return nil, fmt.Errorf("no JSON object in completion")
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("decode profile object: %w", err)
	}
	return parsed, nil
}
