// Package meta requests H1, SEO title and SEO description suggestions for
// clusters.
package meta

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/rankrent-cli/internal/generation"
	"github.com/sells-group/rankrent-cli/internal/model"
)

const (
	defaultVariants    = 3
	defaultConcurrency = 3
	promptKeywordLimit = 25
	promptLabel        = "meta"
)

// ErrNoSuggestions is returned when the model answers without any usable
// suggestion.
var ErrNoSuggestions = eris.New("meta: no suggestions returned")

// Request describes the cluster to write metadata for.
type Request struct {
	ClusterName string
	ClusterType model.ClusterType
	Keywords    []string
	Niche       string
	City        string
	// Previous suggestions are shown to the model so a regeneration
	// produces different variants.
	Previous []model.MetaSuggestion
}

type response struct {
	MetaSuggestions []model.MetaSuggestion `json:"meta_suggestions"`
}

// Generator produces metadata suggestions through the generation gateway.
type Generator struct {
	gen         generation.Generator
	variants    int
	concurrency int
}

// Option configures a Generator.
type Option func(*Generator)

// WithVariants sets how many suggestions are requested per cluster.
func WithVariants(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.variants = n
		}
	}
}

// WithConcurrency bounds how many clusters FillAll processes at once.
func WithConcurrency(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

// New creates a Generator.
func New(gen generation.Generator, opts ...Option) *Generator {
	g := &Generator{gen: gen, variants: defaultVariants, concurrency: defaultConcurrency}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Suggest returns suggestions for one cluster.
func (g *Generator) Suggest(ctx context.Context, req Request) ([]model.MetaSuggestion, error) {
	var resp response
	if err := generation.GenerateInto(ctx, g.gen, g.prompt(req), promptLabel, &resp); err != nil {
		return nil, eris.Wrapf(err, "meta: suggest %q", req.ClusterName)
	}

	out := make([]model.MetaSuggestion, 0, len(resp.MetaSuggestions))
	for _, s := range resp.MetaSuggestions {
		s = model.MetaSuggestion{
			H1:             strings.TrimSpace(s.H1),
			SEOTitle:       strings.TrimSpace(s.SEOTitle),
			SEODescription: strings.TrimSpace(s.SEODescription),
		}
		if !s.Empty() {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, eris.Wrapf(ErrNoSuggestions, "meta: cluster %q", req.ClusterName)
	}
	return out, nil
}

// RequestFor builds the regeneration request for one cluster of p. The
// request is a copy, so p may change while suggestions are generated.
func RequestFor(p *model.Plan, ref model.ClusterRef) (Request, error) {
	c, err := p.Cluster(ref)
	if err != nil {
		return Request{}, eris.Wrap(err, "meta: regenerate")
	}
	previous := append([]model.MetaSuggestion(nil), c.MetaSuggestions...)
	return requestFor(p, *c, previous), nil
}

// Regenerate replaces the suggestions of one cluster in the plan and resets
// the selection. Other clusters are not touched.
func (g *Generator) Regenerate(ctx context.Context, p *model.Plan, ref model.ClusterRef) error {
	req, err := RequestFor(p, ref)
	if err != nil {
		return err
	}
	suggestions, err := g.Suggest(ctx, req)
	if err != nil {
		return err
	}
	return p.SetMetaSuggestions(ref, suggestions)
}

// SuggestMissing requests suggestions for every cluster of p that has none,
// without modifying p. Clusters are processed concurrently; a failed cluster
// is logged and left out of the result.
func (g *Generator) SuggestMissing(ctx context.Context, p *model.Plan) (map[model.ClusterRef][]model.MetaSuggestion, error) {
	var targets []model.Cluster
	for _, c := range p.AllClusters() {
		if len(c.MetaSuggestions) == 0 {
			targets = append(targets, c)
		}
	}
	if len(targets) == 0 {
		return nil, nil
	}

	log := zap.L().With(zap.String("niche", p.Niche), zap.Int("clusters", len(targets)))
	log.Info("meta: generating suggestions")

	results := make([][]model.MetaSuggestion, len(targets))
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, c := range targets {
		req := requestFor(p, c, nil)
		eg.Go(func() error {
			suggestions, err := g.Suggest(gctx, req)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn("meta: cluster left without suggestions",
					zap.String("cluster", c.Ref().String()),
					zap.Error(err))
				return nil
			}
			results[i] = suggestions
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, eris.Wrap(err, "meta: fill all")
	}

	out := make(map[model.ClusterRef][]model.MetaSuggestion, len(targets))
	for i, c := range targets {
		if len(results[i]) > 0 {
			out[c.Ref()] = results[i]
		}
	}
	log.Info("meta: suggestions generated", zap.Int("filled", len(out)))
	return out, nil
}

// ApplyMissing stores suggestions on clusters that still exist and still
// have none. It returns how many clusters were filled.
func ApplyMissing(p *model.Plan, suggestions map[model.ClusterRef][]model.MetaSuggestion) int {
	filled := 0
	for ref, s := range suggestions {
		c, err := p.Cluster(ref)
		if err != nil || len(c.MetaSuggestions) > 0 {
			continue
		}
		c.MetaSuggestions = s
		c.SelectedSuggestion = 0
		filled++
	}
	return filled
}

// FillAll requests suggestions for every cluster that has none and stores
// them in p. It returns how many clusters were filled.
func (g *Generator) FillAll(ctx context.Context, p *model.Plan) (int, error) {
	suggestions, err := g.SuggestMissing(ctx, p)
	if err != nil {
		return 0, err
	}
	return ApplyMissing(p, suggestions), nil
}

func requestFor(p *model.Plan, c model.Cluster, previous []model.MetaSuggestion) Request {
	return Request{
		ClusterName: c.Name,
		ClusterType: c.Type,
		Keywords:    c.KeywordTexts(),
		Niche:       p.Niche,
		City:        p.City,
		Previous:    previous,
	}
}

func (g *Generator) prompt(req Request) string {
	var b strings.Builder

	page := "service page"
	if req.ClusterType == model.ClusterTypeBlog {
		page = "blog article"
	}
	fmt.Fprintf(&b, "Write %d alternative metadata sets for a %s of a local %q business", g.variants, page, req.Niche)
	if req.City != "" {
		fmt.Fprintf(&b, " in %s", req.City)
	}
	fmt.Fprintf(&b, ".\nPage topic: %s\n", req.ClusterName)

	kws := req.Keywords
	if len(kws) > promptKeywordLimit {
		kws = kws[:promptKeywordLimit]
	}
	if len(kws) > 0 {
		fmt.Fprintf(&b, "Target keywords: %s\n", strings.Join(kws, ", "))
	}

	b.WriteString("\nRules:\n")
	b.WriteString("- Write in the language of the keywords.\n")
	b.WriteString("- h1 is the visible page heading and includes the main keyword.\n")
	b.WriteString("- seo_title is at most 60 characters.\n")
	b.WriteString("- seo_description is at most 155 characters and ends with a call to action.\n")
	b.WriteString("- Plain, specific wording. No filler or hype.\n")

	if len(req.Previous) > 0 {
		b.WriteString("\nThese suggestions were rejected; write clearly different ones:\n")
		for _, s := range req.Previous {
			fmt.Fprintf(&b, "- %s | %s | %s\n", s.H1, s.SEOTitle, s.SEODescription)
		}
	}

	b.WriteString("\nReturn JSON only, in this shape:\n")
	b.WriteString(`{"meta_suggestions":[{"h1":"...","seo_title":"...","seo_description":"..."}]}`)
	b.WriteString("\n")
	return b.String()
}
