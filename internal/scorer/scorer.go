package scorer

import (
	"strings"
	"unicode"

	"github.com/sells-group/rankrent-cli/internal/model"
)

// Reason codes recorded on scored keywords.
const (
	ReasonNicheMatch    = "niche_match"
	ReasonNichePartial  = "niche_partial"
	ReasonNoNiche       = "no_niche_match"
	ReasonServicePrefix = "service_match:"
	ReasonTransactional = "transactional"
	ReasonInformational = "informational"
	ReasonLocal         = "local"
)

const (
	minScore      = 0
	maxScore      = 10
	minStemLength = 4
	stemLength    = 5
)

// Target describes what the keywords are scored against.
type Target struct {
	Niche                string
	City                 string
	Services             []string
	IncludeInformational bool
}

// Result is a score in [0, 10] and the rules that produced it.
type Result struct {
	Score   float64
	Reasons []string
}

// Scorer is pure: the same keyword and target always yield the same Result.
type Scorer struct {
	cfg           Config
	transactional []string
	informational []string
	local         []string
}

// New builds a Scorer. Marker phrases are folded once up front.
func New(cfg Config) (*Scorer, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &Scorer{
		cfg:           cfg,
		transactional: foldAll(cfg.Lexicon.Transactional),
		informational: foldAll(cfg.Lexicon.Informational),
		local:         foldAll(cfg.Lexicon.Local),
	}, nil
}

// Default returns a Scorer with DefaultConfig.
func Default() *Scorer {
	s, _ := New(DefaultConfig())
	return s
}

// Score rates one keyword.
func (s *Scorer) Score(keyword string, t Target) Result {
	k := fold(keyword)
	var score float64
	var reasons []string

	niche := fold(t.Niche)
	switch {
	case niche != "" && strings.Contains(k, niche):
		score += s.cfg.NicheMatch
		reasons = append(reasons, ReasonNicheMatch)
	case niche != "" && sharesNicheStem(k, niche):
		score += s.cfg.NichePartial
		reasons = append(reasons, ReasonNichePartial)
	default:
		reasons = append(reasons, ReasonNoNiche)
	}

	for _, svc := range t.Services {
		fs := fold(svc)
		if fs != "" && strings.Contains(k, fs) {
			score += s.cfg.ServiceMatch
			reasons = append(reasons, ReasonServicePrefix+strings.TrimSpace(svc))
			break
		}
	}

	if hasAnyPhrase(k, s.transactional) {
		score += s.cfg.Transactional
		reasons = append(reasons, ReasonTransactional)
	}

	city := fold(t.City)
	if (city != "" && strings.Contains(k, city)) || hasAnyPhrase(k, s.local) {
		score += s.cfg.Local
		reasons = append(reasons, ReasonLocal)
	}

	if hasAnyPhrase(k, s.informational) {
		if !t.IncludeInformational {
			score -= s.cfg.InformationalPenalty
		}
		reasons = append(reasons, ReasonInformational)
	}

	return Result{Score: clamp(score), Reasons: reasons}
}

// ScoreKeywords scores every keyword in place and returns the slice.
func (s *Scorer) ScoreKeywords(kws []model.Keyword, t Target) []model.Keyword {
	for i := range kws {
		r := s.Score(kws[i].Keyword, t)
		kws[i].RelevanceScore = r.Score
		kws[i].RelevanceReasons = r.Reasons
	}
	return kws
}

// IsPurelyInformational reports whether reasons mark a keyword as
// informational with no commercial signal.
func IsPurelyInformational(reasons []string) bool {
	informational := false
	for _, r := range reasons {
		switch {
		case r == ReasonInformational:
			informational = true
		case r == ReasonTransactional, strings.HasPrefix(r, ReasonServicePrefix):
			return false
		}
	}
	return informational
}

func clamp(v float64) float64 {
	if v < minScore {
		return minScore
	}
	if v > maxScore {
		return maxScore
	}
	return v
}

// fold lowercases, strips accents and reduces punctuation to single spaces.
func fold(s string) string {
	return strings.Join(strings.FieldsFunc(model.NormalizeKey(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), " ")
}

func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if f := fold(p); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// hasAnyPhrase matches whole words so "vs" does not fire inside "canvas".
func hasAnyPhrase(k string, phrases []string) bool {
	padded := " " + k + " "
	for _, p := range phrases {
		if strings.Contains(padded, " "+p+" ") {
			return true
		}
	}
	return false
}

// sharesNicheStem reports whether any niche word of at least four letters
// shares a stem with a keyword word ("plumbing" and "plumber").
func sharesNicheStem(k, niche string) bool {
	kwords := strings.Fields(k)
	for _, n := range strings.Fields(niche) {
		if len([]rune(n)) < minStemLength {
			continue
		}
		for _, w := range kwords {
			if commonPrefix(n, w) >= stemNeed(n, w) {
				return true
			}
		}
	}
	return false
}

func stemNeed(a, b string) int {
	need := stemLength
	for _, s := range []string{a, b} {
		if n := len([]rune(s)); n < need {
			need = n
		}
	}
	if need < minStemLength {
		return stemLength + 1
	}
	return need
}

func commonPrefix(a, b string) int {
	ar, br := []rune(a), []rune(b)
	n := 0
	for n < len(ar) && n < len(br) && ar[n] == br[n] {
		n++
	}
	return n
}
