package scorer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rankrent-cli/internal/model"
)

func TestScore_Rules(t *testing.T) {
	t.Parallel()

	s := Default()
	target := Target{Niche: "fontanero", City: "Madrid", Services: []string{"desatascos", "calentadores"}}

	tests := []struct {
		name    string
		keyword string
		score   float64
		reasons []string
	}{
		{"niche only", "Fontanéro", 3, []string{ReasonNicheMatch}},
		{"niche and city", "Fontanero Madrid", 4, []string{ReasonNicheMatch, ReasonLocal}},
		{"service transactional", "precio desatascos fontanero", 9.5, []string{ReasonNicheMatch, "service_match:desatascos", ReasonTransactional}},
		{"service without niche", "Calentadores baratos", 6.5, []string{ReasonNoNiche, "service_match:calentadores", ReasonTransactional}},
		{"partial niche", "fontaneria urgente", 3.5, []string{ReasonNichePartial, ReasonTransactional}},
		{"informational penalty", "como ser fontanero", 1, []string{ReasonNicheMatch, ReasonInformational}},
		{"clamped at zero", "que es un sifon", 0, []string{ReasonNoNiche, ReasonInformational}},
		{"near me is local", "fontanero cerca de mi", 4, []string{ReasonNicheMatch, ReasonLocal}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := s.Score(tt.keyword, target)
			assert.InDelta(t, tt.score, r.Score, 0.0001)
			assert.Equal(t, tt.reasons, r.Reasons)
		})
	}
}

func TestScore_ClampedAtTen(t *testing.T) {
	t.Parallel()

	r := Default().Score("emergency plumber boiler repair leeds", Target{Niche: "plumber", City: "Leeds", Services: []string{"boiler repair"}})
	assert.InDelta(t, 10.0, r.Score, 0.0001)
}

func TestScore_ServiceMatchIsStrictlyHigher(t *testing.T) {
	t.Parallel()

	s := Default()
	services := []string{"boiler repair"}
	pairs := [][2]string{
		{"boiler repair", "boiler check"},
		{"plumber boiler repair", "plumber boiler check"},
		{"cheap boiler repair near me", "cheap boiler check near me"},
		{"how to boiler repair", "how to boiler check"},
		{"emergency plumber boiler repair leeds", "emergency plumber boiler check leeds"},
	}
	for _, niche := range []string{"plumber", "boiler", ""} {
		for _, include := range []bool{true, false} {
			target := Target{Niche: niche, City: "Leeds", Services: services, IncludeInformational: include}
			for _, p := range pairs {
				with := s.Score(p[0], target)
				without := s.Score(p[1], target)
				assert.Greater(t, with.Score, without.Score, "%q vs %q (niche %q)", p[0], p[1], niche)
			}
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	t.Parallel()

	s := Default()
	target := Target{Niche: "plumber", Services: []string{"drain"}}
	first := s.Score("Plumber drain unblocking price", target)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, s.Score("Plumber drain unblocking price", target))
	}
}

func TestScore_IncludeInformationalRecordsWithoutPenalty(t *testing.T) {
	t.Parallel()

	r := Default().Score("how to fix a plumber leak", Target{Niche: "plumber", IncludeInformational: true})
	assert.InDelta(t, 3.0, r.Score, 0.0001)
	assert.Contains(t, r.Reasons, ReasonInformational)
}

func TestScore_WholeWordMarkers(t *testing.T) {
	t.Parallel()

	r := Default().Score("canvas awning", Target{Niche: "awning"})
	assert.NotContains(t, r.Reasons, ReasonInformational)
}

func TestScoreKeywords(t *testing.T) {
	t.Parallel()

	kws := []model.Keyword{{Keyword: "plumber leeds"}, {Keyword: "what is a plumber"}}
	Default().ScoreKeywords(kws, Target{Niche: "plumber", City: "leeds"})
	assert.InDelta(t, 4.0, kws[0].RelevanceScore, 0.0001)
	assert.Equal(t, []string{ReasonNicheMatch, ReasonLocal}, kws[0].RelevanceReasons)
	assert.InDelta(t, 1.0, kws[1].RelevanceScore, 0.0001)
}

func TestIsPurelyInformational(t *testing.T) {
	t.Parallel()

	assert.True(t, IsPurelyInformational([]string{ReasonNicheMatch, ReasonInformational}))
	assert.False(t, IsPurelyInformational([]string{ReasonInformational, ReasonTransactional}))
	assert.False(t, IsPurelyInformational([]string{"service_match:drain", ReasonInformational}))
	assert.False(t, IsPurelyInformational([]string{ReasonNicheMatch}))
	assert.False(t, IsPurelyInformational(nil))
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateConfig(DefaultConfig()))

	bad := DefaultConfig()
	bad.Local = -1
	bad.NichePartial = 9
	bad.ServiceMatch = 0
	err := ValidateConfig(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "local must be >= 0")
	assert.Contains(t, err.Error(), "niche_partial must be <= niche_match")
	assert.Contains(t, err.Error(), "service_match must be > 0")

	_, err = New(bad)
	assert.Error(t, err)
}

func TestValidateConfig_StableMessage(t *testing.T) {
	t.Parallel()

	bad := DefaultConfig()
	bad.NicheMatch = -1
	bad.Transactional = -1
	bad.Local = -1
	bad.InformationalPenalty = -1

	want := ValidateConfig(bad).Error()
	assert.Contains(t, want, "niche_match must be >= 0; transactional must be >= 0; local must be >= 0; informational_penalty must be >= 0; niche_partial must be <= niche_match")
	for i := 0; i < 20; i++ {
		assert.Equal(t, want, ValidateConfig(bad).Error())
	}
}

func TestLoadLexicon(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transactional:\n  - tarifa plana\n  - oferta\n"), 0o644))

	lex, err := LoadLexicon(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"tarifa plana", "oferta"}, lex.Transactional)
	assert.Equal(t, DefaultLexicon().Informational, lex.Informational)

	cfg := DefaultConfig()
	cfg.Lexicon = lex
	s, err := New(cfg)
	require.NoError(t, err)
	assert.Contains(t, s.Score("fontanero oferta", Target{Niche: "fontanero"}).Reasons, ReasonTransactional)
	assert.NotContains(t, s.Score("fontanero precio", Target{Niche: "fontanero"}).Reasons, ReasonTransactional)

	_, err = LoadLexicon(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
