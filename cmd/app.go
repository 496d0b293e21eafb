package main

import (
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rankrent-cli/internal/cluster"
	"github.com/sells-group/rankrent-cli/internal/competitor"
	"github.com/sells-group/rankrent-cli/internal/config"
	"github.com/sells-group/rankrent-cli/internal/cost"
	"github.com/sells-group/rankrent-cli/internal/filter"
	"github.com/sells-group/rankrent-cli/internal/generation"
	"github.com/sells-group/rankrent-cli/internal/importer"
	"github.com/sells-group/rankrent-cli/internal/llm"
	"github.com/sells-group/rankrent-cli/internal/meta"
	"github.com/sells-group/rankrent-cli/internal/plan"
	"github.com/sells-group/rankrent-cli/internal/research"
	"github.com/sells-group/rankrent-cli/internal/scorer"
	"github.com/sells-group/rankrent-cli/internal/seo"
	anthropicpkg "github.com/sells-group/rankrent-cli/pkg/anthropic"
	"github.com/sells-group/rankrent-cli/pkg/dataforseo"
	"github.com/sells-group/rankrent-cli/pkg/gemini"
)

// appEnv holds the clients and pipeline stages shared by the commands.
type appEnv struct {
	Tracker   *cost.Tracker
	Cache     *generation.Cache
	Generator generation.Generator
	Engine    *cluster.Engine
	Meta      *meta.Generator
}

// initApp validates cfg for flow and builds the cached LLM gateway and the
// stages on top of it.
func initApp(flow string) (*appEnv, error) {
	if err := cfg.Validate(flow); err != nil {
		return nil, err
	}

	provider, err := initProvider(cfg)
	if err != nil {
		return nil, err
	}

	cache, err := generation.NewCache(cfg.LLM.CacheDir)
	if err != nil {
		return nil, err
	}

	tracker := cost.NewTracker(cost.NewCalculator(pricingRates(cfg.Pricing)))
	gw := generation.NewGateway(provider, cache,
		generation.WithCallDelay(time.Duration(cfg.LLM.CallDelayMs)*time.Millisecond),
		generation.WithQuotaBackoff(time.Duration(cfg.LLM.QuotaBackoffSecs)*time.Second),
		generation.WithTracker(tracker),
	)

	zap.L().Debug("app: initialized",
		zap.String("flow", flow),
		zap.String("provider", provider.Name()),
		zap.String("cache_dir", cache.Dir()),
	)

	return &appEnv{
		Tracker:   tracker,
		Cache:     cache,
		Generator: gw,
		Engine:    cluster.New(gw, cluster.WithMaxKeywords(cfg.LLM.MaxKeywords)),
		Meta: meta.New(gw,
			meta.WithVariants(cfg.LLM.MetaVariants),
			meta.WithConcurrency(cfg.LLM.MetaConcurrency),
		),
	}, nil
}

// initProvider builds the configured LLM provider.
func initProvider(c *config.Config) (llm.Provider, error) {
	switch c.LLM.Provider {
	case llm.ProviderGemini:
		client := gemini.NewClient(c.Gemini.Key,
			gemini.WithBaseURL(c.Gemini.BaseURL),
			gemini.WithModel(c.Gemini.Model),
		)
		return llm.NewGeminiProvider(client, c.Gemini.Model), nil
	case llm.ProviderAnthropic:
		client := anthropicpkg.NewClient(c.Anthropic.Key,
			anthropicpkg.WithModel(c.Anthropic.Model),
			anthropicpkg.WithMaxTokens(c.Anthropic.MaxTokens),
		)
		return llm.NewAnthropicProvider(client, c.Anthropic.Model), nil
	default:
		return nil, eris.Errorf("app: unknown llm provider %q", c.LLM.Provider)
	}
}

// pricingRates overlays configured model prices on the built-in rates.
func pricingRates(p config.PricingConfig) cost.Rates {
	rates := cost.DefaultRates()
	for _, m := range p.Models {
		if m.Model == "" {
			continue
		}
		rates.Models[m.Model] = cost.ModelRate{Input: m.Input, Output: m.Output}
	}
	return rates
}

func filterOptions(c *config.Config) filter.Options {
	return filter.Options{
		Top10Filter:          c.Research.Top10Filter,
		MinRelevanceScore:    c.Research.MinRelevanceScore,
		MinSearchVolume:      c.Research.MinSearchVolume,
		IncludeInformational: c.Research.IncludeInformational,
	}
}

func importOptions(c *config.Config, format importer.Format) importer.Options {
	return importer.Options{
		Format: format,
		Columns: importer.Columns{
			Keyword: c.Importer.KeywordColumn,
			Volume:  c.Importer.VolumeColumn,
			CPC:     c.Importer.CPCColumn,
			KD:      c.Importer.KDColumn,
		},
		Sheet: c.Importer.Sheet,
	}
}

// initScorer builds the relevance scorer, applying a lexicon override file
// when one is configured.
func initScorer(c *config.Config) (*scorer.Scorer, error) {
	sc := scorer.DefaultConfig()
	if c.Research.LexiconPath != "" {
		lex, err := scorer.LoadLexicon(c.Research.LexiconPath)
		if err != nil {
			return nil, err
		}
		sc.Lexicon = lex
	}
	return scorer.New(sc)
}

// newAssembler wires the plan assembler. The automated flow adds the SEO
// gateway and, when enabled, the competitor scraper.
func newAssembler(env *appEnv, automated bool) (*plan.Assembler, error) {
	sc, err := initScorer(cfg)
	if err != nil {
		return nil, err
	}

	opts := []plan.Option{
		plan.WithFilter(filterOptions(cfg)),
		plan.WithResearcher(research.New(env.Generator)),
		plan.WithLocations(cfg.Locations.Template, cfg.Locations.Seed),
	}

	if automated {
		client := dataforseo.NewClient(cfg.DataForSEO.Login, cfg.DataForSEO.Password,
			dataforseo.WithBaseURL(cfg.DataForSEO.BaseURL),
			dataforseo.WithRateLimit(cfg.DataForSEO.RateLimit),
		)
		gw := seo.NewGateway(client, seo.Options{
			LocationCode:   cfg.DataForSEO.LocationCode,
			LanguageCode:   cfg.DataForSEO.LanguageCode,
			MaxCompetitors: cfg.DataForSEO.MaxCompetitors,
			RankedLimit:    cfg.DataForSEO.RankedLimit,
		}, nil, env.Tracker)
		opts = append(opts, plan.WithSEO(gw))

		if cfg.Research.ScrapeCompetitors {
			fetcher := competitor.NewFetcher(competitor.FetchOptions{UserAgent: cfg.Research.UserAgent})
			opts = append(opts, plan.WithScraper(competitor.NewScraper(fetcher), cfg.Research.ScrapeLimit))
		}
	}

	return plan.NewAssembler(sc, env.Engine, env.Meta, opts...), nil
}
