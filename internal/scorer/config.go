// Package scorer assigns lexical relevance scores to keywords for a local
// service niche.
package scorer

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Config holds rule weights and marker vocabularies.
type Config struct {
	NicheMatch           float64 `yaml:"niche_match" mapstructure:"niche_match"`
	NichePartial         float64 `yaml:"niche_partial" mapstructure:"niche_partial"`
	ServiceMatch         float64 `yaml:"service_match" mapstructure:"service_match"`
	Transactional        float64 `yaml:"transactional" mapstructure:"transactional"`
	Local                float64 `yaml:"local" mapstructure:"local"`
	InformationalPenalty float64 `yaml:"informational_penalty" mapstructure:"informational_penalty"`

	Lexicon Lexicon `yaml:"lexicon" mapstructure:"lexicon"`
}

// Lexicon lists the marker phrases for each intent, English and Spanish.
type Lexicon struct {
	Transactional []string `yaml:"transactional" mapstructure:"transactional"`
	Informational []string `yaml:"informational" mapstructure:"informational"`
	Local         []string `yaml:"local" mapstructure:"local"`
}

// DefaultConfig returns the default weights. A keyword matching the niche
// and a specific service with a transactional marker lands near the top of
// the 0-10 range.
func DefaultConfig() Config {
	return Config{
		NicheMatch:           3,
		NichePartial:         2,
		ServiceMatch:         5,
		Transactional:        1.5,
		Local:                1,
		InformationalPenalty: 2,
		Lexicon:              DefaultLexicon(),
	}
}

// DefaultLexicon returns the built-in marker vocabularies.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Transactional: []string{
			"price", "prices", "pricing", "cost", "costs", "cheap", "affordable",
			"quote", "quotes", "hire", "book", "booking", "emergency", "urgent",
			"24 hour", "24h", "company", "companies", "contractor", "contractors",
			"service", "services", "repair", "install", "installation", "best",
			"precio", "precios", "presupuesto", "barato", "baratos", "economico",
			"urgente", "urgencias", "contratar", "empresa", "empresas",
			"servicio", "servicios", "tarifa", "tarifas", "24 horas", "cuesta",
		},
		Informational: []string{
			"how to", "how do", "how does", "what is", "what are", "why",
			"diy", "guide", "tutorial", "tips", "ideas", "meaning",
			"difference between", "vs",
			"como", "que es", "que son", "por que", "porque", "guia",
			"consejos", "trucos", "significado", "diferencia", "cuanto dura",
		},
		Local: []string{
			"near me", "nearby", "local", "cerca de mi", "en mi zona",
		},
	}
}

// LoadLexicon reads marker overrides from a YAML file. Lists present in the
// file replace the defaults; absent lists keep them.
func LoadLexicon(path string) (Lexicon, error) {
	lex := DefaultLexicon()
	data, err := os.ReadFile(path)
	if err != nil {
		return lex, eris.Wrapf(err, "scorer: read lexicon %s", path)
	}
	var override Lexicon
	if err := yaml.Unmarshal(data, &override); err != nil {
		return lex, eris.Wrapf(err, "scorer: parse lexicon %s", path)
	}
	if len(override.Transactional) > 0 {
		lex.Transactional = override.Transactional
	}
	if len(override.Informational) > 0 {
		lex.Informational = override.Informational
	}
	if len(override.Local) > 0 {
		lex.Local = override.Local
	}
	return lex, nil
}

// ValidateConfig checks that a Config is internally consistent.
func ValidateConfig(c Config) error {
	var errs []string

	weights := []struct {
		name string
		w    float64
	}{
		{"niche_match", c.NicheMatch},
		{"niche_partial", c.NichePartial},
		{"service_match", c.ServiceMatch},
		{"transactional", c.Transactional},
		{"local", c.Local},
		{"informational_penalty", c.InformationalPenalty},
	}
	for _, w := range weights {
		if w.w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", w.name))
		}
	}

	if c.NichePartial > c.NicheMatch {
		errs = append(errs, "niche_partial must be <= niche_match")
	}
	if c.ServiceMatch <= 0 {
		errs = append(errs, "service_match must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("scorer: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
