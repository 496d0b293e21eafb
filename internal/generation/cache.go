package generation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
)

const (
	defaultLabel   = "generation"
	maxLabelLength = 60
)

// Cache is a flat directory of pretty-printed JSON files, one per prompt.
// Entries never expire; deleting the file invalidates it.
type Cache struct {
	dir string
}

// NewCache creates the cache directory if needed.
func NewCache(dir string) (*Cache, error) {
	if dir == "" {
		return nil, eris.New("generation: cache dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "generation: create cache dir")
	}
	return &Cache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// HashPrompt returns the 64-bit FNV-1a hash of prompt as 16 hex digits.
func HashPrompt(prompt string) string {
	h := fnv.New64a()
	_, _ = h.Write([]byte(prompt))
	return fmt.Sprintf("%016x", h.Sum64())
}

// SanitizeLabel lowercases label and replaces anything outside [a-z0-9-] with
// underscores so it is safe as a filename prefix.
func SanitizeLabel(label string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(label)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-'):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "_")
	if len(out) > maxLabelLength {
		out = strings.TrimRight(out[:maxLabelLength], "_")
	}
	if out == "" {
		return defaultLabel
	}
	return out
}

// Path returns the cache file for a label and prompt.
func (c *Cache) Path(label, prompt string) string {
	return filepath.Join(c.dir, SanitizeLabel(label)+"_"+HashPrompt(prompt)+".json")
}

// Get returns the cached value. A missing file is a miss, not an error.
func (c *Cache) Get(label, prompt string) (json.RawMessage, bool, error) {
	data, err := os.ReadFile(c.Path(label, prompt))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, eris.Wrap(err, "generation: read cache entry")
	}
	if !json.Valid(data) {
		return nil, false, eris.Errorf("generation: corrupt cache entry %s", c.Path(label, prompt))
	}
	return json.RawMessage(data), true, nil
}

// Put writes value pretty-printed through a temp file and rename.
func (c *Cache) Put(label, prompt string, value json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, value, "", "  "); err != nil {
		return eris.Wrap(err, "generation: indent cache entry")
	}
	buf.WriteByte('\n')
	return writeFileAtomic(c.Path(label, prompt), buf.Bytes())
}

// Stats reports the number and total size of cache entries.
type Stats struct {
	Entries int            `json:"entries"`
	Bytes   int64          `json:"bytes"`
	ByLabel map[string]int `json:"by_label"`
}

// Stats walks the cache directory.
func (c *Cache) Stats() (Stats, error) {
	st := Stats{ByLabel: map[string]int{}}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return st, eris.Wrap(err, "generation: read cache dir")
	}
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		st.Entries++
		st.Bytes += info.Size()
		st.ByLabel[labelOf(e.Name())]++
	}
	return st, nil
}

// Clear removes entries whose sanitized label equals label, or every entry
// when label is empty. It returns the number of files removed.
func (c *Cache) Clear(label string) (int, error) {
	want := ""
	if label != "" {
		want = SanitizeLabel(label)
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, eris.Wrap(err, "generation: read cache dir")
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		if want != "" && labelOf(e.Name()) != want {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
			return removed, eris.Wrapf(err, "generation: remove %s", e.Name())
		}
		removed++
	}
	return removed, nil
}

// labelOf strips the "_<hash>.json" suffix from a cache filename.
func labelOf(name string) string {
	base := strings.TrimSuffix(name, ".json")
	if i := strings.LastIndexByte(base, '_'); i > 0 {
		return base[:i]
	}
	return base
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return eris.Wrap(err, "generation: create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()        //nolint:errcheck
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "generation: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "generation: close temp file")
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName) //nolint:errcheck
		return eris.Wrap(err, "generation: rename cache entry")
	}
	return nil
}
