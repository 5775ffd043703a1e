package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFirstJSONObject(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		found bool
	}{
		{
			name:  "bare object",
			input: `{"a":1}`,
			want:  `{"a":1}`,
			found: true,
		},
		{
			name:  "object wrapped in prose",
			input: "Here is the updated profile:\n```json\n{\"a\": 1}\n```\nDone.",
			want:  `{"a": 1}`,
			found: true,
		},
		{
			name:  "nested objects stay balanced",
			input: `text {"a":{"b":{"c":1}}} trailing {"d":2}`,
			want:  `{"a":{"b":{"c":1}}}`,
			found: true,
		},
		{
			name:  "braces inside strings are ignored",
			input: `{"note":"use {curly} braces"}`,
			want:  `{"note":"use {curly} braces"}`,
			found: true,
		},
		{
			name:  "escaped quote inside string",
			input: `{"note":"she said \"hi}\" loudly"}`,
			want:  `{"note":"she said \"hi}\" loudly"}`,
			found: true,
		},
		{
			name:  "no object",
			input: "sorry, I cannot help with that",
			found: false,
		},
		{
			name:  "unterminated object",
			input: `{"a": 1`,
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FirstJSONObject(tt.input)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseProfileObject(t *testing.T) {
	parsed, err := ParseProfileObject("Sure! Updated:\n{\"name\": \"A\", \"age\": 31}")
	require.NoError(t, err)
	assert.Equal(t, "A", parsed["name"])
	assert.Equal(t, float64(31), parsed["age"])
}

func TestParseProfileObject_Errors(t *testing.T) {
	_, err := ParseProfileObject("no json here")
	assert.Error(t, err)

	_, err = ParseProfileObject(`{"broken": }`)
	assert.Error(t, err)
}
