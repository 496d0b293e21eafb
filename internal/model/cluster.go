package model

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// ClusterType tags a cluster as a commercial service page or a blog article.
type ClusterType string

const (
	ClusterTypeService ClusterType = "SERVICE"
	ClusterTypeBlog    ClusterType = "BLOG"
)

// Intent is the search intent a cluster targets.
type Intent string

const (
	IntentCommercial    Intent = "COMMERCIAL"
	IntentInformational Intent = "INFORMATIONAL"
)

// ParseClusterType accepts "service"/"services"/"SERVICE" and the blog
// equivalents.
func ParseClusterType(s string) (ClusterType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "service", "services":
		return ClusterTypeService, nil
	case "blog", "blogs", "article", "articles":
		return ClusterTypeBlog, nil
	}
	return "", eris.Errorf("model: unknown cluster type %q", s)
}

// IntentFor maps a cluster type to its search intent.
func IntentFor(t ClusterType) Intent {
	if t == ClusterTypeBlog {
		return IntentInformational
	}
	return IntentCommercial
}

// MetaSuggestion is one H1/title/description variant for a cluster page.
type MetaSuggestion struct {
	H1             string `json:"h1" yaml:"h1"`
	SEOTitle       string `json:"seo_title" yaml:"seo_title"`
	SEODescription string `json:"seo_description" yaml:"seo_description"`
}

// Empty reports whether the suggestion carries no usable text.
func (m MetaSuggestion) Empty() bool {
	return strings.TrimSpace(m.H1) == "" && strings.TrimSpace(m.SEOTitle) == ""
}

// ErrEmptyCluster is returned when a cluster would have no keywords.
var ErrEmptyCluster = eris.New("cluster has no keywords")

// Cluster is a named keyword group that becomes one content page.
type Cluster struct {
	Name               string           `json:"name" yaml:"name"`
	Type               ClusterType      `json:"type" yaml:"type"`
	Intent             Intent           `json:"intent" yaml:"intent"`
	Keywords           []Keyword        `json:"keywords" yaml:"keywords"`
	Volume             int              `json:"volume" yaml:"volume"`
	MetaSuggestions    []MetaSuggestion `json:"meta_suggestions" yaml:"meta_suggestions"`
	SelectedSuggestion int              `json:"selected_suggestion" yaml:"selected_suggestion"`
}

// NewCluster validates and builds a cluster. Name must be non-blank and at
// least one keyword is required.
func NewCluster(name string, typ ClusterType, keywords []Keyword) (Cluster, error) {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return Cluster{}, eris.New("model: cluster name is empty")
	}
	if typ != ClusterTypeService && typ != ClusterTypeBlog {
		return Cluster{}, eris.Errorf("model: invalid cluster type %q", typ)
	}
	if len(keywords) == 0 {
		return Cluster{}, eris.Wrapf(ErrEmptyCluster, "model: cluster %q", name)
	}
	c := Cluster{
		Name:     name,
		Type:     typ,
		Intent:   IntentFor(typ),
		Keywords: keywords,
	}
	c.Recompute()
	return c, nil
}

// Recompute refreshes the aggregate volume.
func (c *Cluster) Recompute() {
	total := 0
	for _, k := range c.Keywords {
		total += k.Volume
	}
	c.Volume = total
	if c.Intent == "" {
		c.Intent = IntentFor(c.Type)
	}
}

// KeywordTexts returns the keyword strings in order.
func (c Cluster) KeywordTexts() []string {
	out := make([]string, len(c.Keywords))
	for i, k := range c.Keywords {
		out[i] = k.Keyword
	}
	return out
}

// Selected returns the chosen meta suggestion, if any.
func (c Cluster) Selected() (MetaSuggestion, bool) {
	if c.SelectedSuggestion < 0 || c.SelectedSuggestion >= len(c.MetaSuggestions) {
		return MetaSuggestion{}, false
	}
	return c.MetaSuggestions[c.SelectedSuggestion], true
}

// Ref returns the reference that identifies the cluster within a plan.
func (c Cluster) Ref() ClusterRef {
	return ClusterRef{Type: c.Type, Name: c.Name}
}

// indexOf returns the position of the keyword with the given normalized key.
func (c Cluster) indexOf(key string) int {
	for i, k := range c.Keywords {
		if k.Key() == key {
			return i
		}
	}
	return -1
}

// ClusterRef identifies a cluster by type and name.
type ClusterRef struct {
	Type ClusterType `json:"type"`
	Name string      `json:"name"`
}

// ParseClusterRef parses "service:Name" or "blog:Name".
func ParseClusterRef(s string) (ClusterRef, error) {
	typ, name, ok := strings.Cut(s, ":")
	if !ok {
		return ClusterRef{}, eris.Errorf("model: cluster ref %q must look like type:name", s)
	}
	t, err := ParseClusterType(typ)
	if err != nil {
		return ClusterRef{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ClusterRef{}, eris.Errorf("model: cluster ref %q has no name", s)
	}
	return ClusterRef{Type: t, Name: name}, nil
}

func (r ClusterRef) String() string {
	return fmt.Sprintf("%s:%s", strings.ToLower(string(r.Type)), r.Name)
}
