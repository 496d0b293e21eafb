// Package cluster groups filtered keywords into service and blog clusters
// with the LLM and repairs the result so every keyword lands in exactly one
// cluster.
package cluster

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rankrent-cli/internal/filter"
	"github.com/sells-group/rankrent-cli/internal/generation"
	"github.com/sells-group/rankrent-cli/internal/model"
	"github.com/sells-group/rankrent-cli/internal/scorer"
)

const (
	defaultMaxKeywords = 300
	minKeywordLength   = 2
	promptLabel        = "cluster"
)

var (
	// ErrNoKeywords is returned when there is nothing to cluster.
	ErrNoKeywords = eris.New("cluster: no keywords to cluster")
	// ErrNoClusters is returned when the model output names no clusters.
	ErrNoClusters = eris.New("cluster: model returned no clusters")
)

// Input is what the engine clusters.
type Input struct {
	Keywords    []model.Keyword
	Niche       string
	City        string
	Services    []string
	RichContext *model.RichContext
}

// Report counts the repairs applied to the model output.
type Report struct {
	Submitted    int `json:"submitted"`
	Overflow     int `json:"overflow"`
	Omitted      int `json:"omitted"`
	Duplicates   int `json:"duplicates"`
	Invented     int `json:"invented"`
	EmptyDropped int `json:"empty_dropped"`
	Renamed      int `json:"renamed"`
}

// Result is the clustered keyword set.
type Result struct {
	Services []model.Cluster `json:"services"`
	Blog     []model.Cluster `json:"blog"`
	Report   Report          `json:"report"`
}

// Engine runs the clustering pass.
type Engine struct {
	gen         generation.Generator
	maxKeywords int
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxKeywords caps how many keywords are sent to the model. The rest
// skip the model and go straight to the catch-all clusters.
func WithMaxKeywords(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxKeywords = n
		}
	}
}

// New creates an Engine.
func New(gen generation.Generator, opts ...Option) *Engine {
	e := &Engine{gen: gen, maxKeywords: defaultMaxKeywords}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Cluster asks the model for clusters and repairs its answer. Failures to
// generate or parse are returned; there is no local fallback.
func (e *Engine) Cluster(ctx context.Context, in Input) (*Result, error) {
	kws := filter.Dedupe(in.Keywords)
	if len(kws) == 0 {
		return nil, ErrNoKeywords
	}

	submitted, overflow := selectTop(kws, e.maxKeywords)
	log := zap.L().With(
		zap.String("niche", in.Niche),
		zap.Int("submitted", len(submitted)),
		zap.Int("overflow", len(overflow)),
	)
	log.Info("cluster: requesting clusters")

	var resp Response
	if err := generation.GenerateInto(ctx, e.gen, BuildPrompt(in, submitted), promptLabel, &resp); err != nil {
		return nil, eris.Wrap(err, "cluster: generate")
	}
	if resp.Empty() {
		return nil, ErrNoClusters
	}

	res := Assemble(resp, submitted, overflow)
	log.Info("cluster: clusters assembled",
		zap.Int("services", len(res.Services)),
		zap.Int("blog", len(res.Blog)),
		zap.Int("omitted", res.Report.Omitted),
		zap.Int("duplicates", res.Report.Duplicates),
		zap.Int("invented", res.Report.Invented),
		zap.Int("renamed", res.Report.Renamed),
	)
	return res, nil
}

// selectTop keeps the n best keywords by score then volume. Both returned
// slices keep the input order.
func selectTop(kws []model.Keyword, n int) (top, rest []model.Keyword) {
	if n <= 0 || len(kws) <= n {
		return kws, nil
	}
	idx := make([]int, len(kws))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := kws[idx[a]], kws[idx[b]]
		if ka.RelevanceScore != kb.RelevanceScore {
			return ka.RelevanceScore > kb.RelevanceScore
		}
		return ka.Volume > kb.Volume
	})
	keep := make(map[int]bool, n)
	for _, i := range idx[:n] {
		keep[i] = true
	}
	for i, kw := range kws {
		if keep[i] {
			top = append(top, kw)
		} else {
			rest = append(rest, kw)
		}
	}
	return top, rest
}

// assembler accumulates clusters while enforcing one cluster per keyword.
type assembler struct {
	known    map[string]model.Keyword
	assigned map[string]bool
	services []model.Cluster
	blog     []model.Cluster
	report   Report
}

// Assemble turns a model response into clusters. Keywords claimed by several
// clusters go to the first claimant in the model's output order. Submitted keywords the model left out, and overflow keywords, are
// appended to catch-all clusters.
func Assemble(resp Response, submitted, overflow []model.Keyword) *Result {
	a := &assembler{
		known:    make(map[string]model.Keyword, len(submitted)+len(overflow)),
		assigned: make(map[string]bool, len(submitted)+len(overflow)),
		report:   Report{Submitted: len(submitted), Overflow: len(overflow)},
	}
	for _, kw := range submitted {
		a.known[kw.Key()] = kw
	}
	for _, kw := range overflow {
		a.known[kw.Key()] = kw
	}

	for _, tc := range resp.ordered() {
		a.add(tc.typ, tc.cluster)
	}

	for _, kw := range submitted {
		if !a.assigned[kw.Key()] {
			a.report.Omitted++
			a.catchAll(kw)
		}
	}
	for _, kw := range overflow {
		if !a.assigned[kw.Key()] {
			a.catchAll(kw)
		}
	}

	return &Result{Services: a.services, Blog: a.blog, Report: a.report}
}

func (a *assembler) add(typ model.ClusterType, rc ResponseCluster) {
	var kws []model.Keyword
	for _, item := range rc.Keywords {
		kw, ok := a.resolve(item)
		if !ok {
			continue
		}
		if a.assigned[kw.Key()] {
			a.report.Duplicates++
			continue
		}
		a.assigned[kw.Key()] = true
		kws = append(kws, kw)
	}
	if len(kws) == 0 {
		a.report.EmptyDropped++
		return
	}

	name := strings.Join(strings.Fields(rc.Name), " ")
	if name == "" {
		name = kws[0].Keyword
	}
	name = a.uniqueName(typ, name)

	c, err := model.NewCluster(name, typ, kws)
	if err != nil {
		// Release the keywords to the catch-all.
		for _, kw := range kws {
			delete(a.assigned, kw.Key())
		}
		return
	}
	a.appendCluster(c)
}

// resolve maps a model keyword item to a submitted record, or coerces an
// unknown item into a semantic keyword with volume 0.
func (a *assembler) resolve(item ResponseKeyword) (model.Keyword, bool) {
	text := strings.Trim(item.Text, `"'`)
	if len([]rune(strings.TrimSpace(text))) < minKeywordLength {
		return model.Keyword{}, false
	}
	key := model.NormalizeKey(text)
	if kw, ok := a.known[key]; ok {
		return kw, true
	}
	kw, err := model.NewKeyword(text, model.SourceSemantic)
	if err != nil {
		return model.Keyword{}, false
	}
	kw.Volume = item.Volume
	if !a.assigned[key] {
		a.report.Invented++
	}
	return kw, true
}

func (a *assembler) uniqueName(typ model.ClusterType, name string) string {
	if !a.nameTaken(typ, name) {
		return name
	}
	a.report.Renamed++
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s (%d)", name, i)
		if !a.nameTaken(typ, candidate) {
			return candidate
		}
	}
}

func (a *assembler) nameTaken(typ model.ClusterType, name string) bool {
	return a.find(typ, name) >= 0
}

func (a *assembler) find(typ model.ClusterType, name string) int {
	for i, c := range *a.list(typ) {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

func (a *assembler) list(typ model.ClusterType) *[]model.Cluster {
	if typ == model.ClusterTypeBlog {
		return &a.blog
	}
	return &a.services
}

func (a *assembler) appendCluster(c model.Cluster) {
	l := a.list(c.Type)
	*l = append(*l, c)
}

// catchAll files an unassigned keyword under the informational or commercial
// catch-all cluster, creating it on first use.
func (a *assembler) catchAll(kw model.Keyword) {
	typ, name := model.ClusterTypeService, model.CatchAllServiceName
	if scorer.IsPurelyInformational(kw.RelevanceReasons) {
		typ, name = model.ClusterTypeBlog, model.CatchAllBlogName
	}
	a.assigned[kw.Key()] = true

	l := a.list(typ)
	if i := a.find(typ, name); i >= 0 {
		(*l)[i].Keywords = append((*l)[i].Keywords, kw)
		(*l)[i].Recompute()
		return
	}
	c, _ := model.NewCluster(name, typ, []model.Keyword{kw})
	*l = append(*l, c)
}
