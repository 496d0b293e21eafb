package model

import (
	"strings"
	"unicode"

	"github.com/rotisserie/eris"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Source records where a keyword came from.
type Source string

const (
	SourceManualCSV        Source = "manual_csv"
	SourceCompetitorScrape Source = "competitor_scrape"
	SourceSuggestion       Source = "suggestion"
	SourceNLP              Source = "nlp"
	SourceSemantic         Source = "semantic"
	SourceManual           Source = "manual"
)

// AllSources returns every known keyword source.
func AllSources() []Source {
	return []Source{
		SourceManualCSV,
		SourceCompetitorScrape,
		SourceSuggestion,
		SourceNLP,
		SourceSemantic,
		SourceManual,
	}
}

// Valid reports whether s is a known source.
func (s Source) Valid() bool {
	for _, known := range AllSources() {
		if s == known {
			return true
		}
	}
	return false
}

// IsManual reports whether the keyword was entered by a person rather than
// discovered by a provider.
func (s Source) IsManual() bool {
	return s == SourceManual || s == SourceManualCSV
}

// ErrEmptyKeyword is returned when keyword text is blank after normalization.
var ErrEmptyKeyword = eris.New("keyword text is empty")

// Keyword is a single search phrase with its SEO metrics.
type Keyword struct {
	Keyword          string   `json:"keyword" yaml:"keyword"`
	Volume           int      `json:"volume" yaml:"volume"`
	CPC              float64  `json:"cpc" yaml:"cpc"`
	Competition      int      `json:"competition" yaml:"competition"`
	RelevanceScore   float64  `json:"relevanceScore" yaml:"relevance_score"`
	RelevanceReasons []string `json:"relevanceReasons,omitempty" yaml:"relevance_reasons,omitempty"`
	Source           Source   `json:"source" yaml:"source"`
	// Sources is the union of every source that produced this keyword.
	Sources []Source `json:"sources,omitempty" yaml:"sources,omitempty"`
	// Position is the best SERP rank a competitor holds for the keyword
	// (0 when unknown).
	Position int `json:"position,omitempty" yaml:"position,omitempty"`
}

// NewKeyword builds a Keyword from raw text. Surrounding whitespace is
// trimmed and inner whitespace collapsed; the original casing is kept.
func NewKeyword(text string, src Source) (Keyword, error) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return Keyword{}, ErrEmptyKeyword
	}
	if !src.Valid() {
		src = SourceManual
	}
	return Keyword{
		Keyword: text,
		Source:  src,
		Sources: []Source{src},
	}, nil
}

// Key returns the normalized comparison key for the keyword.
func (k Keyword) Key() string {
	return NormalizeKey(k.Keyword)
}

// HasReason reports whether a relevance reason with the given prefix fired.
func (k Keyword) HasReason(prefix string) bool {
	for _, r := range k.RelevanceReasons {
		if strings.HasPrefix(r, prefix) {
			return true
		}
	}
	return false
}

// Clamp forces all metrics into their documented ranges.
func (k Keyword) Clamp() Keyword {
	if k.Volume < 0 {
		k.Volume = 0
	}
	if k.CPC < 0 {
		k.CPC = 0
	}
	k.Competition = clampInt(k.Competition, 0, 100)
	if k.RelevanceScore < 0 {
		k.RelevanceScore = 0
	}
	if k.RelevanceScore > 10 {
		k.RelevanceScore = 10
	}
	if len(k.Sources) == 0 && k.Source != "" {
		k.Sources = []Source{k.Source}
	}
	return k
}

// MergeKeywords collapses two records for the same normalized keyword. The
// text of a is kept, metrics come from whichever record has the higher
// volume, reasons and sources are unioned and the score is the max of both.
func MergeKeywords(a, b Keyword) Keyword {
	out := a
	if b.Volume > a.Volume {
		out.Volume = b.Volume
		out.CPC = b.CPC
		out.Competition = b.Competition
	}
	if b.RelevanceScore > out.RelevanceScore {
		out.RelevanceScore = b.RelevanceScore
	}
	out.RelevanceReasons = unionStrings(a.RelevanceReasons, b.RelevanceReasons)
	out.Sources = unionSources(sourcesOf(a), sourcesOf(b))
	if b.Position > 0 && (out.Position == 0 || b.Position < out.Position) {
		out.Position = b.Position
	}
	return out
}

// NormalizeKey lowercases, strips accents and collapses whitespace. Two
// keywords with equal keys are duplicates.
func NormalizeKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

func sourcesOf(k Keyword) []Source {
	if len(k.Sources) > 0 {
		return k.Sources
	}
	if k.Source != "" {
		return []Source{k.Source}
	}
	return nil
}

func unionStrings(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(append([]string{}, a...), b...) {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func unionSources(a, b []Source) []Source {
	seen := make(map[Source]bool, len(a)+len(b))
	var out []Source
	for _, s := range append(append([]Source{}, a...), b...) {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
