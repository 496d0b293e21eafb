package jsonx

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ProsePrefixAndTrailingComma(t *testing.T) {
	t.Parallel()

	text := "Here is the result: {\"services\": [{\"name\": \"Boiler repair\", \"keywords\": [\"fix boiler\",]}], }"
	raw, err := Parse(text)
	require.NoError(t, err)

	var out struct {
		Services []struct {
			Name     string   `json:"name"`
			Keywords []string `json:"keywords"`
		} `json:"services"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	require.Len(t, out.Services, 1)
	assert.Equal(t, "Boiler repair", out.Services[0].Name)
	assert.Equal(t, []string{"fix boiler"}, out.Services[0].Keywords)
}

func TestParse_CodeFence(t *testing.T) {
	t.Parallel()

	for _, text := range []string{
		"```json\n{\"a\": 1}\n```",
		"```\n{\"a\": 1}\n```",
		"Sure!\n```json\n{\"a\": 1,}\n```\nLet me know.",
	} {
		raw, err := Parse(text)
		require.NoError(t, err, text)
		assert.JSONEq(t, `{"a": 1}`, string(raw))
	}
}

func TestParse_DirectArray(t *testing.T) {
	t.Parallel()

	raw, err := Parse(` ["a", "b"] `)
	require.NoError(t, err)
	assert.JSONEq(t, `["a","b"]`, string(raw))
}

func TestParse_BracesInsideStrings(t *testing.T) {
	t.Parallel()

	raw, err := Parse(`note: {"h1": "Use {curly} braces, }", "x": [1,2,],} trailing {"b":2}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"h1": "Use {curly} braces, }", "x": [1,2]}`, string(raw))
}

func TestParse_Failures(t *testing.T) {
	t.Parallel()

	_, err := Parse("")
	assert.True(t, errors.Is(err, ErrNoJSON))

	_, err = Parse("I cannot help with that.")
	assert.True(t, errors.Is(err, ErrNoJSON))

	_, err = Parse(`{"a": 1 "b": 2}`)
	assert.True(t, errors.Is(err, ErrMalformed))
}

func TestRemoveTrailingCommas_KeepsStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `{"a":"x,}","b":[1]}`, RemoveTrailingCommas(`{"a":"x,}","b":[1,],}`))
	assert.Equal(t, `{"a":"say \",]\""}`, RemoveTrailingCommas(`{"a":"say \",]\""}`))
}

func TestDecode(t *testing.T) {
	t.Parallel()

	var v map[string]int
	require.NoError(t, Decode("result: {\"n\": 3,}", &v))
	assert.Equal(t, 3, v["n"])

	var wrong []int
	assert.Error(t, Decode(`{"n": 3}`, &wrong))
}

func TestSnippet(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "abc", Snippet("abc", 5))
	assert.Equal(t, "ab...", Snippet("abcdef", 2))
}
