package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Flows accepted by Validate.
const (
	FlowResearch = "research"
	FlowPlan     = "plan"
	FlowMeta     = "meta"
	FlowServe    = "serve"
)

// Config holds the full application configuration.
type Config struct {
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	DataForSEO DataForSEOConfig `yaml:"dataforseo" mapstructure:"dataforseo"`
	Research   ResearchConfig   `yaml:"research" mapstructure:"research"`
	Locations  LocationsConfig  `yaml:"locations" mapstructure:"locations"`
	Importer   ImporterConfig   `yaml:"importer" mapstructure:"importer"`
	Plan       PlanConfig       `yaml:"plan" mapstructure:"plan"`
	Pricing    PricingConfig    `yaml:"pricing" mapstructure:"pricing"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// LLMConfig selects the model provider and paces generation calls.
type LLMConfig struct {
	Provider         string `yaml:"provider" mapstructure:"provider"`
	CacheDir         string `yaml:"cache_dir" mapstructure:"cache_dir"`
	CallDelayMs      int    `yaml:"call_delay_ms" mapstructure:"call_delay_ms"`
	QuotaBackoffSecs int    `yaml:"quota_backoff_secs" mapstructure:"quota_backoff_secs"`
	MaxKeywords      int    `yaml:"max_keywords" mapstructure:"max_keywords"`
	MetaConcurrency  int    `yaml:"meta_concurrency" mapstructure:"meta_concurrency"`
	MetaVariants     int    `yaml:"meta_variants" mapstructure:"meta_variants"`
}

// GeminiConfig configures the Gemini API client.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig configures the Anthropic API client.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// DataForSEOConfig configures the DataForSEO client and query defaults.
type DataForSEOConfig struct {
	Login          string  `yaml:"login" mapstructure:"login"`
	Password       string  `yaml:"password" mapstructure:"password"`
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	LocationCode   int     `yaml:"location_code" mapstructure:"location_code"`
	LanguageCode   string  `yaml:"language_code" mapstructure:"language_code"`
	RateLimit      float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
	MaxCompetitors int     `yaml:"max_competitors" mapstructure:"max_competitors"`
	RankedLimit    int     `yaml:"ranked_limit" mapstructure:"ranked_limit"`
}

// ResearchConfig holds the keyword thresholds and research toggles.
type ResearchConfig struct {
	MinRelevanceScore    float64 `yaml:"min_relevance_score" mapstructure:"min_relevance_score"`
	MinSearchVolume      int     `yaml:"min_search_volume" mapstructure:"min_search_volume"`
	Top10Filter          bool    `yaml:"top10_filter" mapstructure:"top10_filter"`
	IncludeInformational bool    `yaml:"include_informational" mapstructure:"include_informational"`
	ScrapeCompetitors    bool    `yaml:"scrape_competitors" mapstructure:"scrape_competitors"`
	ScrapeLimit          int     `yaml:"scrape_limit" mapstructure:"scrape_limit"`
	SuggestionCount      int     `yaml:"suggestion_count" mapstructure:"suggestion_count"`
	LexiconPath          string  `yaml:"lexicon_path" mapstructure:"lexicon_path"`
	UserAgent            string  `yaml:"user_agent" mapstructure:"user_agent"`
}

// LocationsConfig configures location page generation.
type LocationsConfig struct {
	Towns    []string `yaml:"towns" mapstructure:"towns"`
	Template string   `yaml:"template" mapstructure:"template"`
	Seed     uint64   `yaml:"seed" mapstructure:"seed"`
}

// ImporterConfig maps spreadsheet columns to keyword fields.
type ImporterConfig struct {
	KeywordColumn int `yaml:"keyword_column" mapstructure:"keyword_column"`
	VolumeColumn  int `yaml:"volume_column" mapstructure:"volume_column"`
	CPCColumn     int `yaml:"cpc_column" mapstructure:"cpc_column"`
	KDColumn      int `yaml:"kd_column" mapstructure:"kd_column"`
	Sheet         int `yaml:"sheet" mapstructure:"sheet"`
}

// PlanConfig locates the plan document.
type PlanConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PricingConfig holds per-model token pricing in USD per million tokens.
// Entries override the built-in rates. It is a list because model names
// contain dots, which viper treats as key separators.
type PricingConfig struct {
	Models []ModelPricing `yaml:"models" mapstructure:"models"`
}

// ModelPricing is the input/output price of one model.
type ModelPricing struct {
	Model  string  `yaml:"model" mapstructure:"model"`
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// ServerConfig configures the admin API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RANKRENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.cache_dir", ".cache/generation")
	v.SetDefault("llm.call_delay_ms", 2000)
	v.SetDefault("llm.quota_backoff_secs", 60)
	v.SetDefault("llm.max_keywords", 300)
	v.SetDefault("llm.meta_concurrency", 3)
	v.SetDefault("llm.meta_variants", 3)
	v.SetDefault("gemini.key", "")
	v.SetDefault("gemini.model", "gemini-2.0-flash")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("dataforseo.login", "")
	v.SetDefault("dataforseo.password", "")
	v.SetDefault("dataforseo.base_url", "https://api.dataforseo.com/v3")
	v.SetDefault("dataforseo.location_code", 2724)
	v.SetDefault("dataforseo.language_code", "es")
	v.SetDefault("dataforseo.rate_limit", 2.0)
	v.SetDefault("dataforseo.max_competitors", 5)
	v.SetDefault("dataforseo.ranked_limit", 200)
	v.SetDefault("research.min_relevance_score", 2.0)
	v.SetDefault("research.min_search_volume", 0)
	v.SetDefault("research.top10_filter", false)
	v.SetDefault("research.include_informational", false)
	v.SetDefault("research.scrape_competitors", true)
	v.SetDefault("research.scrape_limit", 5)
	v.SetDefault("research.suggestion_count", 40)
	v.SetDefault("research.lexicon_path", "")
	v.SetDefault("research.user_agent", "")
	v.SetDefault("locations.towns", []string{})
	v.SetDefault("locations.template", "")
	v.SetDefault("locations.seed", 1)
	v.SetDefault("importer.keyword_column", 0)
	v.SetDefault("importer.volume_column", 1)
	v.SetDefault("importer.cpc_column", 6)
	v.SetDefault("importer.kd_column", 8)
	v.SetDefault("importer.sheet", 0)
	v.SetDefault("plan.path", "project_plan.json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration needed by flow is present.
func (c *Config) Validate(flow string) error {
	var errs []string

	needsLLM := false
	switch flow {
	case FlowResearch:
		needsLLM = true
		if c.DataForSEO.Login == "" || c.DataForSEO.Password == "" {
			errs = append(errs, "dataforseo.login and dataforseo.password are required")
		}
	case FlowPlan, FlowMeta:
		needsLLM = true
	case FlowServe:
		needsLLM = true
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", flow)
	}

	if needsLLM {
		switch c.LLM.Provider {
		case "gemini":
			if c.Gemini.Key == "" {
				errs = append(errs, "gemini.key is required")
			}
		case "anthropic":
			if c.Anthropic.Key == "" {
				errs = append(errs, "anthropic.key is required")
			}
		default:
			errs = append(errs, fmt.Sprintf("llm.provider %q must be gemini or anthropic", c.LLM.Provider))
		}
		if c.LLM.CacheDir == "" {
			errs = append(errs, "llm.cache_dir is required")
		}
		if c.LLM.MetaConcurrency < 1 || c.LLM.MetaConcurrency > 20 {
			errs = append(errs, "llm.meta_concurrency must be between 1 and 20")
		}
	}

	if c.Research.MinRelevanceScore < 0 || c.Research.MinRelevanceScore > 10 {
		errs = append(errs, "research.min_relevance_score must be between 0 and 10")
	}
	if c.Research.MinSearchVolume < 0 {
		errs = append(errs, "research.min_search_volume must be >= 0")
	}
	if c.Importer.Sheet < 0 {
		errs = append(errs, "importer.sheet must be >= 0")
	}
	if c.Importer.KeywordColumn < 0 || c.Importer.VolumeColumn < 0 || c.Importer.CPCColumn < 0 || c.Importer.KDColumn < 0 {
		errs = append(errs, "importer columns must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed for %s: %s", flow, strings.Join(errs, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
