package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// chdirTemp moves into an empty temp dir so no config.yaml is found.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, ".cache/generation", cfg.LLM.CacheDir)
	assert.Equal(t, 2000, cfg.LLM.CallDelayMs)
	assert.Equal(t, 60, cfg.LLM.QuotaBackoffSecs)
	assert.Equal(t, 300, cfg.LLM.MaxKeywords)
	assert.Equal(t, 3, cfg.LLM.MetaConcurrency)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.Model)
	assert.Equal(t, int64(4096), cfg.Anthropic.MaxTokens)
	assert.Equal(t, "https://api.dataforseo.com/v3", cfg.DataForSEO.BaseURL)
	assert.Equal(t, 2724, cfg.DataForSEO.LocationCode)
	assert.Equal(t, "es", cfg.DataForSEO.LanguageCode)
	assert.InDelta(t, 2.0, cfg.DataForSEO.RateLimit, 0.001)
	assert.Equal(t, 5, cfg.DataForSEO.MaxCompetitors)
	assert.InDelta(t, 2.0, cfg.Research.MinRelevanceScore, 0.001)
	assert.Equal(t, 0, cfg.Research.MinSearchVolume)
	assert.False(t, cfg.Research.Top10Filter)
	assert.True(t, cfg.Research.ScrapeCompetitors)
	assert.Equal(t, 40, cfg.Research.SuggestionCount)
	assert.Equal(t, 0, cfg.Importer.KeywordColumn)
	assert.Equal(t, 1, cfg.Importer.VolumeColumn)
	assert.Equal(t, 6, cfg.Importer.CPCColumn)
	assert.Equal(t, 8, cfg.Importer.KDColumn)
	assert.Equal(t, "project_plan.json", cfg.Plan.Path)
	assert.Equal(t, uint64(1), cfg.Locations.Seed)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
llm:
  provider: anthropic
  max_keywords: 150
research:
  top10_filter: true
  min_search_volume: 50
locations:
  towns: [Getafe, Leganés]
pricing:
  models:
    - model: gemini-2.0-flash
      input: 0.2
      output: 0.8
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 150, cfg.LLM.MaxKeywords)
	assert.True(t, cfg.Research.Top10Filter)
	assert.Equal(t, 50, cfg.Research.MinSearchVolume)
	assert.Equal(t, []string{"Getafe", "Leganés"}, cfg.Locations.Towns)
	require.Len(t, cfg.Pricing.Models, 1)
	assert.Equal(t, "gemini-2.0-flash", cfg.Pricing.Models[0].Model)
	assert.InDelta(t, 0.8, cfg.Pricing.Models[0].Output, 0.001)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 3, cfg.LLM.MetaConcurrency)
	assert.Equal(t, "project_plan.json", cfg.Plan.Path)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
llm:
  provider: anthropic
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("RANKRENT_LLM_PROVIDER", "gemini")
	t.Setenv("RANKRENT_LOG_LEVEL", "warn")
	t.Setenv("RANKRENT_GEMINI_KEY", "g-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "g-key", cfg.Gemini.Key)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chdirTemp(t)

	t.Setenv("RANKRENT_SERVER_PORT", "3000")
	t.Setenv("RANKRENT_DATAFORSEO_LOCATION_CODE", "2826")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, 2826, cfg.DataForSEO.LocationCode)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("llm: [unclosed"), 0644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config: read file")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with the defaults validation depends on.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.LLM.Provider = "gemini"
	cfg.LLM.CacheDir = ".cache/generation"
	cfg.LLM.MetaConcurrency = 3
	cfg.Gemini.Key = "g-key"
	cfg.Research.MinRelevanceScore = 4
	cfg.Server.Port = 8080
	return cfg
}

func TestValidatePlan_GeminiKey(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate(FlowPlan))

	cfg.Gemini.Key = ""
	err := cfg.Validate(FlowPlan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini.key is required")
}

func TestValidatePlan_AnthropicKey(t *testing.T) {
	cfg := validDefaults()
	cfg.LLM.Provider = "anthropic"

	err := cfg.Validate(FlowMeta)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
	assert.NotContains(t, err.Error(), "gemini.key")

	cfg.Anthropic.Key = "sk-ant-key"
	assert.NoError(t, cfg.Validate(FlowMeta))
}

func TestValidate_UnknownProvider(t *testing.T) {
	cfg := validDefaults()
	cfg.LLM.Provider = "openai"

	err := cfg.Validate(FlowPlan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be gemini or anthropic")
}

func TestValidateResearch_RequiresDataForSEO(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate(FlowResearch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataforseo.login and dataforseo.password are required")

	cfg.DataForSEO.Login = "user"
	cfg.DataForSEO.Password = "pass"
	assert.NoError(t, cfg.Validate(FlowResearch))
}

func TestValidateServe_Port(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate(FlowServe))

	cfg.Server.Port = 0
	err := cfg.Validate(FlowServe)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port must be > 0")
}

func TestValidate_Bounds(t *testing.T) {
	cfg := validDefaults()

	cfg.LLM.MetaConcurrency = 0
	err := cfg.Validate(FlowPlan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "meta_concurrency must be between 1 and 20")

	cfg.LLM.MetaConcurrency = 3
	cfg.Research.MinRelevanceScore = 11
	err = cfg.Validate(FlowPlan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_relevance_score")

	cfg.Research.MinRelevanceScore = 4
	cfg.Research.MinSearchVolume = -1
	err = cfg.Validate(FlowPlan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_search_volume")

	cfg.Research.MinSearchVolume = 0
	cfg.Importer.Sheet = -1
	err = cfg.Validate(FlowPlan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "importer.sheet must be >= 0")

	cfg.Importer.Sheet = 0
	cfg.Importer.CPCColumn = -6
	err = cfg.Validate(FlowPlan)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "importer columns must be >= 0")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}
