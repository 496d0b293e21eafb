// Package spintax resolves {a|b|c} templates and builds location pages
// from them.
package spintax

import (
	"math/rand/v2"
	"strings"
	"unicode"

	"github.com/sells-group/rankrent-cli/internal/model"
)

// DefaultLocationTemplate is used when no intro template is configured.
// [niche] and [town] are replaced before spinning.
const DefaultLocationTemplate = "{Buscas|Necesitas} un [niche] en [town]? " +
	"{Nuestro equipo|Nuestros profesionales} {atiende|cubre} [town] {y alrededores|y toda la zona} " +
	"{con presupuesto sin compromiso|con servicio rápido|las 24 horas}."

// Spinner resolves templates with a seeded generator so the same seed
// always yields the same text.
type Spinner struct {
	rng *rand.Rand
}

// New creates a Spinner seeded with seed.
func New(seed uint64) *Spinner {
	return &Spinner{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Spin resolves every {a|b} group, innermost first. Unbalanced braces are
// kept as literal text.
func (s *Spinner) Spin(template string) string {
	for {
		end := strings.IndexByte(template, '}')
		if end < 0 {
			return template
		}
		start := strings.LastIndexByte(template[:end], '{')
		if start < 0 {
			// Stray closing brace: resolve what follows it.
			return template[:end+1] + s.Spin(template[end+1:])
		}
		options := strings.Split(template[start+1:end], "|")
		template = template[:start] + options[s.rng.IntN(len(options))] + template[end+1:]
	}
}

// Locations builds one location per town. The intro is the template with
// [niche] and [town] filled in, then spun.
func (s *Spinner) Locations(towns []string, niche, template string) []model.Location {
	if template == "" {
		template = DefaultLocationTemplate
	}
	out := make([]model.Location, 0, len(towns))
	seen := map[string]bool{}
	for _, town := range towns {
		town = strings.Join(strings.Fields(town), " ")
		slug := Slugify(town)
		if slug == "" || seen[slug] {
			continue
		}
		seen[slug] = true
		filled := strings.NewReplacer("[niche]", niche, "[town]", town).Replace(template)
		out = append(out, model.Location{
			Name:  town,
			Slug:  slug,
			Intro: s.Spin(filled),
		})
	}
	return out
}

// Slugify lowercases, strips accents and joins words with hyphens.
func Slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range model.NormalizeKey(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if r > unicode.MaxASCII {
				continue
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
