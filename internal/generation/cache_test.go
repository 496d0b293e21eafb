package generation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPrompt(t *testing.T) {
	t.Parallel()

	a := HashPrompt("cluster plumber keywords")
	assert.Len(t, a, 16)
	assert.Equal(t, a, HashPrompt("cluster plumber keywords"))
	assert.NotEqual(t, a, HashPrompt("cluster plumber keywords "))
	// FNV-1a offset basis for the empty input.
	assert.Equal(t, "cbf29ce484222325", HashPrompt(""))
}

func TestSanitizeLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"meta", "meta"},
		{"Meta: Boiler Repair", "meta_boiler_repair"},
		{"cluster/../../etc", "cluster_etc"},
		{"Reparación urgente", "reparaci_n_urgente"},
		{"  ", "generation"},
		{"deep-research", "deep-research"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SanitizeLabel(tt.in))
		})
	}

	long := SanitizeLabel("a very long label that keeps going and going well past the limit of sixty")
	assert.LessOrEqual(t, len(long), 60)
}

func TestCache_PutGet(t *testing.T) {
	t.Parallel()

	c, err := NewCache(filepath.Join(t.TempDir(), "cache"))
	require.NoError(t, err)

	_, ok, err := c.Get("meta", "prompt")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put("meta", "prompt", json.RawMessage(`{"meta_suggestions":[{"h1":"A"}]}`)))

	raw, ok, err := c.Get("meta", "prompt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"meta_suggestions":[{"h1":"A"}]}`, string(raw))

	path := c.Path("meta", "prompt")
	assert.Equal(t, "meta_"+HashPrompt("prompt")+".json", filepath.Base(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"meta_suggestions\"")
}

func TestCache_CorruptEntry(t *testing.T) {
	t.Parallel()

	c, err := NewCache(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(c.Path("x", "p"), []byte("{not json"), 0o644))

	_, ok, err := c.Get("x", "p")
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestCache_StatsAndClear(t *testing.T) {
	t.Parallel()

	c, err := NewCache(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, c.Put("meta", "a", json.RawMessage(`{}`)))
	require.NoError(t, c.Put("meta", "b", json.RawMessage(`{}`)))
	require.NoError(t, c.Put("cluster", "a", json.RawMessage(`{}`)))
	require.NoError(t, os.WriteFile(filepath.Join(c.Dir(), "notes.txt"), []byte("x"), 0o644))

	st, err := c.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, st.Entries)
	assert.Equal(t, map[string]int{"meta": 2, "cluster": 1}, st.ByLabel)
	assert.Positive(t, st.Bytes)

	n, err := c.Clear("Meta")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = c.Clear("")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(filepath.Join(c.Dir(), "notes.txt"))
	assert.NoError(t, err)
}

func TestNewCache_RequiresDir(t *testing.T) {
	t.Parallel()

	_, err := NewCache("")
	assert.Error(t, err)
}
