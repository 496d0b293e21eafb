package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rankrent-cli/internal/config"
	"github.com/sells-group/rankrent-cli/internal/importer"
	"github.com/sells-group/rankrent-cli/internal/llm"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.LLM.Provider = llm.ProviderGemini
	c.LLM.CacheDir = filepath.Join(t.TempDir(), "cache")
	c.LLM.MetaConcurrency = 2
	c.LLM.MaxKeywords = 100
	c.Gemini.Key = "g-key"
	c.Gemini.Model = "gemini-2.0-flash"
	c.Anthropic.Model = "claude-haiku-4-5-20251001"
	c.Research.MinRelevanceScore = 3
	c.Research.MinSearchVolume = 20
	c.Research.Top10Filter = true
	c.Importer = config.ImporterConfig{KeywordColumn: 0, VolumeColumn: 1, CPCColumn: 6, KDColumn: 8, Sheet: 1}
	c.Plan.Path = filepath.Join(t.TempDir(), "project_plan.json")
	c.Server.Port = 8080
	return c
}

// withConfig installs c as the command config for the duration of the test.
func withConfig(t *testing.T, c *config.Config) {
	t.Helper()
	prev := cfg
	cfg = c
	t.Cleanup(func() { cfg = prev })
}

func TestInitProvider(t *testing.T) {
	c := testConfig(t)

	p, err := initProvider(c)
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderGemini, p.Name())

	c.LLM.Provider = llm.ProviderAnthropic
	c.Anthropic.Key = "sk-ant"
	p, err = initProvider(c)
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderAnthropic, p.Name())

	c.LLM.Provider = "openai"
	_, err = initProvider(c)
	assert.Error(t, err)
}

func TestInitApp(t *testing.T) {
	c := testConfig(t)
	withConfig(t, c)

	env, err := initApp(config.FlowPlan)
	require.NoError(t, err)
	assert.NotNil(t, env.Engine)
	assert.NotNil(t, env.Meta)
	assert.Equal(t, c.LLM.CacheDir, env.Cache.Dir())
	_, err = os.Stat(c.LLM.CacheDir)
	assert.NoError(t, err)

	asm, err := newAssembler(env, false)
	require.NoError(t, err)
	assert.NotNil(t, asm)
}

func TestInitApp_MissingKey(t *testing.T) {
	c := testConfig(t)
	c.Gemini.Key = ""
	withConfig(t, c)

	_, err := initApp(config.FlowPlan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini.key is required")
}

func TestInitApp_ResearchNeedsDataForSEO(t *testing.T) {
	c := testConfig(t)
	withConfig(t, c)

	_, err := initApp(config.FlowResearch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataforseo")

	c.DataForSEO.Login = "login"
	c.DataForSEO.Password = "password"
	c.Research.ScrapeCompetitors = true
	env, err := initApp(config.FlowResearch)
	require.NoError(t, err)
	asm, err := newAssembler(env, true)
	require.NoError(t, err)
	assert.NotNil(t, asm)
}

func TestPricingRates(t *testing.T) {
	rates := pricingRates(config.PricingConfig{Models: []config.ModelPricing{
		{Model: "gemini-2.0-flash", Input: 0.2, Output: 0.9},
		{Model: "custom-model", Input: 1, Output: 2},
		{Input: 5},
	}})

	assert.InDelta(t, 0.9, rates.Models["gemini-2.0-flash"].Output, 0.0001)
	assert.InDelta(t, 2.0, rates.Models["custom-model"].Output, 0.0001)
	// Built-in rates survive.
	assert.Contains(t, rates.Models, "claude-haiku-4-5-20251001")
	assert.NotContains(t, rates.Models, "")
}

func TestFilterAndImportOptions(t *testing.T) {
	c := testConfig(t)

	f := filterOptions(c)
	assert.True(t, f.Top10Filter)
	assert.InDelta(t, 3.0, f.MinRelevanceScore, 0.0001)
	assert.Equal(t, 20, f.MinSearchVolume)
	assert.False(t, f.IncludeInformational)

	o := importOptions(c, importer.FormatCSV)
	assert.Equal(t, importer.FormatCSV, o.Format)
	assert.Equal(t, importer.DefaultColumns(), o.Columns)
	assert.Equal(t, 1, o.Sheet)
}

func TestInitScorer_Lexicon(t *testing.T) {
	c := testConfig(t)

	sc, err := initScorer(c)
	require.NoError(t, err)
	assert.NotNil(t, sc)

	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transactional: [presupuesto, urgente]\n"), 0o644))
	c.Research.LexiconPath = path
	sc, err = initScorer(c)
	require.NoError(t, err)
	assert.NotNil(t, sc)

	c.Research.LexiconPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = initScorer(c)
	assert.Error(t, err)
}
