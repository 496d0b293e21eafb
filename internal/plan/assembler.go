// Package plan orchestrates the research pipeline into a project plan and
// persists it.
package plan

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rankrent-cli/internal/cluster"
	"github.com/sells-group/rankrent-cli/internal/competitor"
	"github.com/sells-group/rankrent-cli/internal/filter"
	"github.com/sells-group/rankrent-cli/internal/meta"
	"github.com/sells-group/rankrent-cli/internal/model"
	"github.com/sells-group/rankrent-cli/internal/research"
	"github.com/sells-group/rankrent-cli/internal/scorer"
	"github.com/sells-group/rankrent-cli/internal/seo"
	"github.com/sells-group/rankrent-cli/internal/spintax"
)

var (
	// ErrNoKeywords is returned when a flow has no keywords to start from.
	ErrNoKeywords = eris.New("plan: no keywords")
	// ErrAllFiltered is returned when every keyword failed the filters.
	ErrAllFiltered = eris.New("plan: every keyword was filtered out")
)

// Request describes the business a plan is built for.
type Request struct {
	Niche             string
	City              string
	Services          []string
	Towns             []string
	DesignStyle       string
	OnePageMode       bool
	GenerateLocations bool
	// DeferMeta skips metadata generation; run meta regeneration later.
	DeferMeta bool
	// SuggestionCount is how many LLM keyword ideas the automated flow asks for.
	SuggestionCount int
}

// Validate checks the request has a niche.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Niche) == "" {
		return eris.New("plan: niche is required")
	}
	return nil
}

func (r Request) target() research.Target {
	return research.Target{Niche: r.Niche, City: r.City, Services: r.Services}
}

// Assembler wires the pipeline stages. Research, SEO and scraping are
// optional; a nil stage is skipped.
type Assembler struct {
	scorer     *scorer.Scorer
	filterOpts filter.Options
	engine     *cluster.Engine
	meta       *meta.Generator

	researcher *research.Researcher
	seo        *seo.Gateway
	scraper    *competitor.Scraper
	scrapeMax  int

	locationTemplate string
	seed             uint64
	now              func() time.Time
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithFilter sets the research thresholds.
func WithFilter(opts filter.Options) Option {
	return func(a *Assembler) { a.filterOpts = opts }
}

// WithResearcher enables deep research, keyword ideas and the home outline.
func WithResearcher(r *research.Researcher) Option {
	return func(a *Assembler) { a.researcher = r }
}

// WithSEO enables competitor discovery and SEO keyword data.
func WithSEO(g *seo.Gateway) Option {
	return func(a *Assembler) { a.seo = g }
}

// WithScraper enables competitor page scraping for up to max pages.
func WithScraper(s *competitor.Scraper, limit int) Option {
	return func(a *Assembler) {
		a.scraper = s
		a.scrapeMax = limit
	}
}

// WithLocations sets the spintax intro template and seed for locations.
func WithLocations(template string, seed uint64) Option {
	return func(a *Assembler) {
		a.locationTemplate = template
		a.seed = seed
	}
}

// WithClock overrides the plan creation time source.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) { a.now = now }
}

// NewAssembler creates an Assembler.
func NewAssembler(sc *scorer.Scorer, engine *cluster.Engine, mg *meta.Generator, opts ...Option) *Assembler {
	if sc == nil {
		sc = scorer.Default()
	}
	a := &Assembler{
		scorer: sc,
		engine: engine,
		meta:   mg,
		seed:   1,
		now:    time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Automated runs the full research flow: deep research, keyword ideas,
// competitor discovery and scraping, then clustering and metadata. Failed
// research stages are logged and the run continues with what it has.
func (a *Assembler) Automated(ctx context.Context, req Request) (*model.Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("flow", "automated"), zap.String("niche", req.Niche), zap.String("city", req.City))

	var (
		kws   []model.Keyword
		rc    *model.RichContext
		comps []model.Competitor
	)

	if a.researcher != nil {
		rc = a.researcher.DeepResearch(ctx, req.target())
		kws = append(kws, research.ContextKeywords(rc)...)
		kws = append(kws, a.researcher.SuggestKeywords(ctx, req.target(), req.SuggestionCount)...)
		log.Info("plan: research done", zap.Int("keywords", len(kws)), zap.Bool("rich_context", !rc.Empty()))
	}

	if a.seo != nil {
		var err error
		comps, err = a.seo.Competitors(ctx, req.Niche, req.City)
		if err != nil {
			log.Warn("plan: competitor discovery failed, continuing without competitors", zap.Error(err))
		}

		if domains := a.seo.RecommendedDomains(comps); len(domains) > 0 {
			ckws, err := a.seo.CompetitorKeywords(ctx, domains)
			if err != nil {
				log.Warn("plan: competitor keywords unavailable", zap.Error(err))
			}
			kws = append(kws, ckws...)
		}

		sugg, err := a.seo.Suggestions(ctx, seeds(req))
		if err != nil {
			log.Warn("plan: keyword suggestions unavailable", zap.Error(err))
		}
		kws = append(kws, sugg...)
	}

	if a.scraper != nil && len(comps) > 0 {
		pages := a.scraper.Scrape(ctx, comps, a.scrapeMax)
		competitor.Enrich(comps, pages)
		kws = append(kws, competitor.HeadingKeywords(pages, req.Niche)...)
	}

	if len(kws) == 0 {
		return nil, eris.Wrap(ErrNoKeywords, "plan: automated flow found no keywords")
	}
	return a.build(ctx, log, req, kws, comps, rc)
}

// Manual builds a plan from user-provided keywords, skipping competitor
// discovery.
func (a *Assembler) Manual(ctx context.Context, req Request, kws []model.Keyword) (*model.Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if len(kws) == 0 {
		return nil, ErrNoKeywords
	}
	log := zap.L().With(zap.String("flow", "manual"), zap.String("niche", req.Niche), zap.String("city", req.City))

	var rc *model.RichContext
	if a.researcher != nil {
		rc = a.researcher.DeepResearch(ctx, req.target())
	}
	return a.build(ctx, log, req, kws, nil, rc)
}

func (a *Assembler) build(ctx context.Context, log *zap.Logger, req Request, kws []model.Keyword, comps []model.Competitor, rc *model.RichContext) (*model.Plan, error) {
	a.scorer.ScoreKeywords(kws, scorer.Target{
		Niche:                req.Niche,
		City:                 req.City,
		Services:             req.Services,
		IncludeInformational: a.filterOpts.IncludeInformational,
	})

	filtered, rep := filter.Apply(kws, a.filterOpts)
	if len(filtered) == 0 {
		return nil, eris.Wrapf(ErrAllFiltered, "plan: %d keywords in", rep.Input)
	}

	res, err := a.engine.Cluster(ctx, cluster.Input{
		Keywords:    filtered,
		Niche:       req.Niche,
		City:        req.City,
		Services:    req.Services,
		RichContext: rc,
	})
	if err != nil {
		return nil, eris.Wrap(err, "plan: cluster")
	}

	p := &model.Plan{
		ID:                uuid.NewString(),
		CreatedAt:         a.now().UTC(),
		Niche:             req.Niche,
		City:              req.City,
		SpecificServices:  req.Services,
		RawData:           model.RawData{TopKeywords: filtered, Competitors: comps},
		Services:          res.Services,
		Blog:              res.Blog,
		Locations:         []model.Location{},
		RichContext:       rc,
		DesignStyle:       req.DesignStyle,
		OnePageMode:       req.OnePageMode,
		GenerateLocations: req.GenerateLocations,
	}
	if p.RawData.Competitors == nil {
		p.RawData.Competitors = []model.Competitor{}
	}

	if a.researcher != nil {
		p.HomeStructure = a.researcher.HomeStructure(ctx, req.target())
	}
	if req.GenerateLocations {
		p.Locations = spintax.New(a.seed).Locations(req.Towns, req.Niche, a.locationTemplate)
	}

	if !req.DeferMeta && a.meta != nil {
		if _, err := a.meta.FillAll(ctx, p); err != nil {
			return nil, eris.Wrap(err, "plan: metadata")
		}
	}

	if err := p.Validate(); err != nil {
		return nil, eris.Wrap(err, "plan: assembled plan is invalid")
	}

	log.Info("plan: assembled",
		zap.String("plan_id", p.ID),
		zap.Int("keywords", p.KeywordCount()),
		zap.Int("services", len(p.Services)),
		zap.Int("blog", len(p.Blog)),
		zap.Int("locations", len(p.Locations)),
		zap.Int("competitors", len(comps)),
	)
	return p, nil
}

// seeds are the phrases SEO suggestions are requested for.
func seeds(req Request) []string {
	out := []string{req.Niche}
	if req.City != "" {
		out = append(out, req.Niche+" "+req.City)
	}
	for _, s := range req.Services {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
