// Package research asks the LLM for background material on a niche: a deep
// research bundle, keyword ideas and a home page outline. Every call
// degrades to an empty value when generation fails.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/rankrent-cli/internal/generation"
	"github.com/sells-group/rankrent-cli/internal/model"
)

const (
	labelDeepResearch = "deep_research"
	labelSuggest      = "keyword_suggestions"
	labelHome         = "home_structure"

	defaultSuggestions = 40
)

// Target is the business being researched.
type Target struct {
	Niche    string
	City     string
	Services []string
}

func (t Target) describe() string {
	s := fmt.Sprintf("a local %q business", t.Niche)
	if t.City != "" {
		s += " in " + t.City
	}
	if len(t.Services) > 0 {
		s += " offering " + strings.Join(t.Services, ", ")
	}
	return s
}

// Researcher runs research prompts through the generation gateway.
type Researcher struct {
	gen generation.Generator
}

// New creates a Researcher.
func New(gen generation.Generator) *Researcher {
	return &Researcher{gen: gen}
}

// DeepResearch returns the rich context bundle, or nil on failure.
func (r *Researcher) DeepResearch(ctx context.Context, t Target) *model.RichContext {
	var b strings.Builder
	fmt.Fprintf(&b, "Research the search market for %s.\n\n", t.describe())
	b.WriteString("List, in the language customers search in:\n")
	b.WriteString("- mainKeywords: the 10 most important head terms\n")
	b.WriteString("- longTail: 20 specific long-tail searches\n")
	b.WriteString("- nlpPhrases: 15 phrases and entities a thorough page would mention\n")
	b.WriteString("- painPoints: 8 problems that make customers search\n")
	b.WriteString("- faq: 8 questions customers ask, each with a short answer\n")
	b.WriteString("- semanticEntities: 10 related brands, materials, regulations or places\n\n")
	b.WriteString("Return JSON only, in this shape:\n")
	b.WriteString(`{"mainKeywords":[],"longTail":[],"nlpPhrases":[],"painPoints":[],"faq":[{"question":"","answer":""}],"semanticEntities":[]}`)
	b.WriteString("\n")

	var rc model.RichContext
	if err := generation.GenerateInto(ctx, r.gen, b.String(), labelDeepResearch, &rc); err != nil {
		warn("deep research", t, err)
		return nil
	}
	if rc.Empty() {
		zap.L().Warn("research: deep research returned nothing", zap.String("niche", t.Niche))
		return nil
	}
	return &rc
}

type suggestResponse struct {
	Keywords []suggestItem `json:"keywords"`
}

// suggestItem accepts a bare string or {"keyword": ...}.
type suggestItem struct {
	Keyword string
}

func (s *suggestItem) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		s.Keyword = text
		return nil
	}
	var obj struct {
		Keyword string `json:"keyword"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		// Unknown item shapes are skipped.
		return nil //nolint:nilerr
	}
	s.Keyword = obj.Keyword
	return nil
}

// SuggestKeywords asks for up to n keyword ideas. Volumes the model guesses
// are discarded; suggestions start at volume 0.
func (r *Researcher) SuggestKeywords(ctx context.Context, t Target, n int) []model.Keyword {
	if n <= 0 {
		n = defaultSuggestions
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Suggest %d search keywords that potential customers of %s would type into Google.\n", n, t.describe())
	b.WriteString("Mix commercial searches (hire, price, near me, urgent) with questions. Use the customers' language.\n")
	b.WriteString("Return JSON only, in this shape:\n")
	b.WriteString(`{"keywords":["..."]}`)
	b.WriteString("\n")

	var resp suggestResponse
	if err := generation.GenerateInto(ctx, r.gen, b.String(), labelSuggest, &resp); err != nil {
		warn("keyword suggestions", t, err)
		return []model.Keyword{}
	}

	out := make([]model.Keyword, 0, len(resp.Keywords))
	for _, it := range resp.Keywords {
		text := strings.Trim(strings.TrimSpace(it.Keyword), `"'`)
		if len([]rune(text)) < 2 {
			continue
		}
		kw, err := model.NewKeyword(text, model.SourceSuggestion)
		if err != nil {
			continue
		}
		out = append(out, kw)
		if len(out) == n {
			break
		}
	}
	return out
}

// HomeStructure asks for the home page outline, or nil on failure.
func (r *Researcher) HomeStructure(ctx context.Context, t Target) *model.HomeStructure {
	var b strings.Builder
	fmt.Fprintf(&b, "Outline the home page of a lead-generation website for %s.\n", t.describe())
	b.WriteString("Give the h1, an seo_title of at most 60 characters, an seo_description of at most 155 characters ")
	b.WriteString("and the ordered list of page sections.\n")
	b.WriteString("Return JSON only, in this shape:\n")
	b.WriteString(`{"h1":"","seo_title":"","seo_description":"","sections":[]}`)
	b.WriteString("\n")

	var hs model.HomeStructure
	if err := generation.GenerateInto(ctx, r.gen, b.String(), labelHome, &hs); err != nil {
		warn("home structure", t, err)
		return nil
	}
	if hs.H1 == "" && hs.SEOTitle == "" && len(hs.Sections) == 0 {
		return nil
	}
	return &hs
}

// ContextKeywords turns the keyword lists of a research bundle into nlp
// keywords.
func ContextKeywords(rc *model.RichContext) []model.Keyword {
	if rc.Empty() {
		return nil
	}
	var out []model.Keyword
	for _, list := range [][]string{rc.MainKeywords, rc.LongTail, rc.NLPPhrases} {
		for _, text := range list {
			if len([]rune(strings.TrimSpace(text))) < 2 {
				continue
			}
			if kw, err := model.NewKeyword(text, model.SourceNLP); err == nil {
				out = append(out, kw)
			}
		}
	}
	return out
}

func warn(step string, t Target, err error) {
	zap.L().Warn("research: "+step+" unavailable",
		zap.String("niche", t.Niche),
		zap.String("city", t.City),
		zap.Error(err),
	)
}
