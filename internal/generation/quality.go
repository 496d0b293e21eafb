package generation

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/sells-group/rankrent-cli/internal/model"
)

// defaultDenylist holds filler phrases that mark copy as machine-written.
// Entries are stored in folded form (lowercase, no accents, punctuation as
// spaces).
var defaultDenylist = []string{
	// English
	"delve",
	"tapestry",
	"testament to",
	"in today s fast paced world",
	"unlock the power",
	"unleash",
	"seamless",
	"game changer",
	"elevate your",
	"embark on",
	"navigate the complexities",
	"in conclusion",
	"look no further",
	"cutting edge",
	"realm of",
	"bustling",
	"whether you re",
	// Spanish
	"sumergete",
	"adentrate",
	"en el mundo actual",
	"sin lugar a dudas",
	"en conclusion",
	"en resumen",
	"no busques mas",
	"de vanguardia",
	"desbloquea",
	"un sinfin de",
	"en el vertiginoso",
}

// QualityWarning is one denylisted phrase found in a generated string.
type QualityWarning struct {
	Path   string `json:"path"`
	Phrase string `json:"phrase"`
}

// QualityValidator scans generated JSON for denylisted phrases. Hits are
// reported, never enforced.
type QualityValidator struct {
	phrases []string
}

// NewQualityValidator builds a validator from the default denylist plus extra.
func NewQualityValidator(extra ...string) *QualityValidator {
	seen := map[string]bool{}
	var phrases []string
	for _, p := range append(append([]string{}, defaultDenylist...), extra...) {
		f := foldText(p)
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		phrases = append(phrases, f)
	}
	return &QualityValidator{phrases: phrases}
}

// Check walks every string in raw, including object keys' values at any depth.
// Invalid JSON yields no warnings.
func (v *QualityValidator) Check(raw json.RawMessage) []QualityWarning {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil
	}
	var out []QualityWarning
	v.walk("$", doc, &out)
	return out
}

func (v *QualityValidator) walk(path string, node any, out *[]QualityWarning) {
	switch n := node.(type) {
	case string:
		folded := " " + foldText(n) + " "
		for _, p := range v.phrases {
			if strings.Contains(folded, " "+p+" ") {
				*out = append(*out, QualityWarning{Path: path, Phrase: p})
			}
		}
	case []any:
		for i, item := range n {
			v.walk(path+"["+strconv.Itoa(i)+"]", item, out)
		}
	case map[string]any:
		keys := make([]string, 0, len(n))
		for k := range n {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v.walk(path+"."+k, n[k], out)
		}
	}
}

// foldText lowercases, strips accents and turns punctuation into single spaces.
func foldText(s string) string {
	s = model.NormalizeKey(s)
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}
