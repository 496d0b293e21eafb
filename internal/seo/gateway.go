// Package seo normalizes DataForSEO responses into keyword and competitor
// records. Calls go through a circuit breaker so a failing provider degrades
// a run to zero competitor data.
package seo

import (
	"context"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rankrent-cli/internal/cost"
	"github.com/sells-group/rankrent-cli/internal/model"
	"github.com/sells-group/rankrent-cli/internal/resilience"
	"github.com/sells-group/rankrent-cli/pkg/dataforseo"
)

// ErrAllFailed is returned when every request of a batch failed.
var ErrAllFailed = eris.New("seo: every request failed")

// Options are the market and size settings for gateway requests.
type Options struct {
	LocationCode    int
	LanguageCode    string
	SERPDepth       int
	MaxCompetitors  int
	RankedLimit     int
	SuggestionLimit int
}

// DefaultOptions targets Spain in Spanish.
func DefaultOptions() Options {
	return Options{
		LocationCode:    2724,
		LanguageCode:    "es",
		SERPDepth:       20,
		MaxCompetitors:  5,
		RankedLimit:     200,
		SuggestionLimit: 100,
	}
}

// Gateway wraps a dataforseo.Client.
type Gateway struct {
	client  dataforseo.Client
	opts    Options
	breaker *resilience.CircuitBreaker
	tracker *cost.Tracker
}

// NewGateway creates a Gateway. A nil breaker gets the default config and a
// nil tracker disables cost accounting.
func NewGateway(client dataforseo.Client, opts Options, breaker *resilience.CircuitBreaker, tracker *cost.Tracker) *Gateway {
	def := DefaultOptions()
	if opts.LocationCode == 0 {
		opts.LocationCode = def.LocationCode
	}
	if opts.LanguageCode == "" {
		opts.LanguageCode = def.LanguageCode
	}
	if opts.SERPDepth <= 0 {
		opts.SERPDepth = def.SERPDepth
	}
	if opts.MaxCompetitors <= 0 {
		opts.MaxCompetitors = def.MaxCompetitors
	}
	if opts.RankedLimit <= 0 {
		opts.RankedLimit = def.RankedLimit
	}
	if opts.SuggestionLimit <= 0 {
		opts.SuggestionLimit = def.SuggestionLimit
	}
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("dataforseo"))
	}
	return &Gateway{client: client, opts: opts, breaker: breaker, tracker: tracker}
}

// Competitors returns the organic results for "niche city", one per domain
// in rank order. Directory and social domains are kept but not recommended.
func (g *Gateway) Competitors(ctx context.Context, niche, city string) ([]model.Competitor, error) {
	query := strings.TrimSpace(niche + " " + city)
	resp, err := resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (*dataforseo.SERPResponse, error) {
		return g.client.SERPOrganic(ctx, dataforseo.SERPRequest{
			Keyword:      query,
			LocationCode: g.opts.LocationCode,
			LanguageCode: g.opts.LanguageCode,
			Depth:        g.opts.SERPDepth,
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "seo: competitors")
	}
	g.tracker.RecordSEO(resp.Cost)

	seen := map[string]bool{}
	var out []model.Competitor
	for _, it := range resp.Organic() {
		domain := NormalizeDomain(it.Domain)
		if domain == "" {
			domain = NormalizeDomain(it.URL)
		}
		if domain == "" || seen[domain] {
			continue
		}
		seen[domain] = true
		out = append(out, model.Competitor{
			Domain:      domain,
			URL:         it.URL,
			Title:       strings.TrimSpace(it.Title),
			Description: strings.TrimSpace(it.Description),
			Position:    it.RankGroup,
			Recommended: !IsDirectory(domain),
		})
	}

	zap.L().Info("seo: competitors found",
		zap.String("query", query),
		zap.Int("count", len(out)),
		zap.Float64("cost_usd", resp.Cost),
	)
	return out, nil
}

// RecommendedDomains returns up to the configured number of recommended
// competitor domains.
func (g *Gateway) RecommendedDomains(comps []model.Competitor) []string {
	var out []string
	for _, c := range comps {
		if !c.Recommended {
			continue
		}
		out = append(out, c.Domain)
		if len(out) == g.opts.MaxCompetitors {
			break
		}
	}
	return out
}

// CompetitorKeywords returns the keywords each domain ranks for, with the
// domain's SERP position. Failed domains are logged and skipped; an error
// is returned only when every domain failed.
func (g *Gateway) CompetitorKeywords(ctx context.Context, domains []string) ([]model.Keyword, error) {
	var (
		out      []model.Keyword
		failures int
	)
	for _, domain := range domains {
		resp, err := resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (*dataforseo.RankedKeywordsResponse, error) {
			return g.client.RankedKeywords(ctx, dataforseo.RankedKeywordsRequest{
				Target:       domain,
				LocationCode: g.opts.LocationCode,
				LanguageCode: g.opts.LanguageCode,
				Limit:        g.opts.RankedLimit,
			})
		})
		if err != nil {
			failures++
			zap.L().Warn("seo: ranked keywords failed", zap.String("domain", domain), zap.Error(err))
			continue
		}
		g.tracker.RecordSEO(resp.Cost)

		for _, it := range resp.Items {
			kw, ok := keywordFromItem(it.KeywordData, model.SourceCompetitorScrape)
			if !ok {
				continue
			}
			kw.Position = it.RankedSERPElement.SERPItem.RankGroup
			out = append(out, kw)
		}
	}
	if len(domains) > 0 && failures == len(domains) {
		return nil, eris.Wrapf(ErrAllFailed, "seo: competitor keywords for %d domains", len(domains))
	}

	zap.L().Info("seo: competitor keywords fetched",
		zap.Int("domains", len(domains)),
		zap.Int("failed", failures),
		zap.Int("keywords", len(out)),
	)
	return out, nil
}

// Suggestions returns keyword suggestions for each seed phrase. Failed seeds
// are logged and skipped; an error is returned only when every seed failed.
func (g *Gateway) Suggestions(ctx context.Context, seeds []string) ([]model.Keyword, error) {
	var (
		out      []model.Keyword
		failures int
	)
	for _, seed := range seeds {
		resp, err := resilience.ExecuteVal(ctx, g.breaker, func(ctx context.Context) (*dataforseo.KeywordSuggestionsResponse, error) {
			return g.client.KeywordSuggestions(ctx, dataforseo.KeywordSuggestionsRequest{
				Keyword:            seed,
				LocationCode:       g.opts.LocationCode,
				LanguageCode:       g.opts.LanguageCode,
				Limit:              g.opts.SuggestionLimit,
				IncludeSeedKeyword: true,
			})
		})
		if err != nil {
			failures++
			zap.L().Warn("seo: keyword suggestions failed", zap.String("seed", seed), zap.Error(err))
			continue
		}
		g.tracker.RecordSEO(resp.Cost)

		for _, it := range resp.Items {
			if kw, ok := keywordFromItem(it, model.SourceSuggestion); ok {
				out = append(out, kw)
			}
		}
	}
	if len(seeds) > 0 && failures == len(seeds) {
		return nil, eris.Wrapf(ErrAllFailed, "seo: suggestions for %d seeds", len(seeds))
	}
	return out, nil
}

func keywordFromItem(it dataforseo.KeywordItem, src model.Source) (model.Keyword, bool) {
	kw, err := model.NewKeyword(it.Keyword, src)
	if err != nil {
		return model.Keyword{}, false
	}
	kw.Volume = it.KeywordInfo.SearchVolume
	kw.CPC = it.KeywordInfo.CPC
	kw.Competition = it.KeywordProperties.KeywordDifficulty
	return kw.Clamp(), true
}

// directoryDomains are aggregators, marketplaces and social networks. They
// rank for local queries but are not competitors a small site can copy.
var directoryDomains = []string{
	"amazon.com",
	"angi.com",
	"bark.com",
	"checkatrade.com",
	"cronoshare.com",
	"facebook.com",
	"google.com",
	"habitissimo.es",
	"homeadvisor.com",
	"houzz.com",
	"instagram.com",
	"linkedin.com",
	"milanuncios.com",
	"mybuilder.com",
	"paginasamarillas.es",
	"pinterest.com",
	"quora.com",
	"reddit.com",
	"thumbtack.com",
	"tiktok.com",
	"tripadvisor.com",
	"trustpilot.com",
	"twitter.com",
	"wikipedia.org",
	"x.com",
	"yell.com",
	"yelp.com",
	"youtube.com",
}

// IsDirectory reports whether domain, or a parent of it, is a known
// directory or social domain. Country variants such as yelp.es match too.
func IsDirectory(domain string) bool {
	domain = NormalizeDomain(domain)
	for _, d := range directoryDomains {
		if domain == d || strings.HasSuffix(domain, "."+d) {
			return true
		}
		base := strings.SplitN(d, ".", 2)[0]
		if strings.HasPrefix(domain, base+".") || strings.Contains(domain, "."+base+".") {
			return true
		}
	}
	return false
}

// NormalizeDomain lowercases a host or URL and strips the scheme, path and a
// leading "www.".
func NormalizeDomain(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	if strings.Contains(s, "://") {
		if u, err := url.Parse(s); err == nil {
			s = u.Hostname()
		}
	}
	if i := strings.IndexAny(s, "/:"); i >= 0 {
		s = s[:i]
	}
	return strings.TrimPrefix(s, "www.")
}
