package model

// Competitor is an organic SERP result for the niche. Competitors are
// fetched fresh per research run.
type Competitor struct {
	Domain      string `json:"domain" yaml:"domain"`
	URL         string `json:"url" yaml:"url"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Position    int    `json:"position" yaml:"position"`
	Recommended bool   `json:"recommended" yaml:"recommended"`
}

// FAQ is a question/answer pair gathered during deep research.
type FAQ struct {
	Question string `json:"question" yaml:"question"`
	Answer   string `json:"answer" yaml:"answer"`
}

// RichContext is the deep-research bundle merged into generation prompts.
type RichContext struct {
	MainKeywords     []string `json:"mainKeywords" yaml:"main_keywords"`
	LongTail         []string `json:"longTail" yaml:"long_tail"`
	NLPPhrases       []string `json:"nlpPhrases" yaml:"nlp_phrases"`
	PainPoints       []string `json:"painPoints" yaml:"pain_points"`
	FAQ              []FAQ    `json:"faq" yaml:"faq"`
	SemanticEntities []string `json:"semanticEntities" yaml:"semantic_entities"`
}

// Empty reports whether the bundle carries no data.
func (r *RichContext) Empty() bool {
	if r == nil {
		return true
	}
	return len(r.MainKeywords) == 0 && len(r.LongTail) == 0 && len(r.NLPPhrases) == 0 &&
		len(r.PainPoints) == 0 && len(r.FAQ) == 0 && len(r.SemanticEntities) == 0
}

// HomeStructure describes the generated home page.
type HomeStructure struct {
	H1             string   `json:"h1" yaml:"h1"`
	SEOTitle       string   `json:"seo_title" yaml:"seo_title"`
	SEODescription string   `json:"seo_description" yaml:"seo_description"`
	Sections       []string `json:"sections" yaml:"sections"`
}

// Location is a town served by the business, rendered as its own page.
type Location struct {
	Name  string `json:"name" yaml:"name"`
	Slug  string `json:"slug" yaml:"slug"`
	Intro string `json:"intro" yaml:"intro"`
}
