package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

var (
	// ErrClusterNotFound is returned when a ClusterRef matches no cluster.
	ErrClusterNotFound = eris.New("cluster not found")
	// ErrKeywordNotFound is returned when a keyword is not in the expected cluster.
	ErrKeywordNotFound = eris.New("keyword not found")
	// ErrDuplicateCluster is returned when a cluster name is already taken.
	ErrDuplicateCluster = eris.New("cluster name already exists")
	// ErrClusterNotEmpty is returned when deleting a cluster that still owns keywords.
	ErrClusterNotEmpty = eris.New("cluster still has keywords")
	// ErrCoverage is returned when a keyword belongs to more than one cluster.
	ErrCoverage = eris.New("keyword assigned to more than one cluster")
)

// RawData holds the research inputs the clusters were built from.
type RawData struct {
	TopKeywords []Keyword    `json:"top_keywords" yaml:"top_keywords"`
	Competitors []Competitor `json:"competitors" yaml:"competitors"`
}

// Plan is the project plan consumed by the site generator. It is the single
// source of truth reviewed and edited by a human before use.
type Plan struct {
	ID                string         `json:"id" yaml:"id"`
	CreatedAt         time.Time      `json:"created_at" yaml:"created_at"`
	Niche             string         `json:"niche" yaml:"niche"`
	City              string         `json:"city" yaml:"city"`
	SpecificServices  []string       `json:"specific_services,omitempty" yaml:"specific_services,omitempty"`
	RawData           RawData        `json:"raw_data" yaml:"raw_data"`
	Services          []Cluster      `json:"services" yaml:"services"`
	Blog              []Cluster      `json:"blog" yaml:"blog"`
	HomeStructure     *HomeStructure `json:"home_structure,omitempty" yaml:"home_structure,omitempty"`
	Locations         []Location     `json:"locations" yaml:"locations"`
	RichContext       *RichContext   `json:"rich_context,omitempty" yaml:"rich_context,omitempty"`
	DesignStyle       string         `json:"design_style" yaml:"design_style"`
	OnePageMode       bool           `json:"one_page_mode" yaml:"one_page_mode"`
	GenerateLocations bool           `json:"generate_locations" yaml:"generate_locations"`
}

func (p *Plan) clusters(t ClusterType) *[]Cluster {
	if t == ClusterTypeBlog {
		return &p.Blog
	}
	return &p.Services
}

// Cluster returns a pointer to the referenced cluster.
func (p *Plan) Cluster(ref ClusterRef) (*Cluster, error) {
	list := p.clusters(ref.Type)
	for i := range *list {
		if strings.EqualFold((*list)[i].Name, ref.Name) {
			return &(*list)[i], nil
		}
	}
	return nil, eris.Wrapf(ErrClusterNotFound, "model: %s", ref)
}

// AllClusters returns services followed by blog clusters.
func (p *Plan) AllClusters() []Cluster {
	out := make([]Cluster, 0, len(p.Services)+len(p.Blog))
	out = append(out, p.Services...)
	return append(out, p.Blog...)
}

// KeywordCount returns the number of keywords assigned to clusters.
func (p *Plan) KeywordCount() int {
	n := 0
	for _, c := range p.AllClusters() {
		n += len(c.Keywords)
	}
	return n
}

// MoveKeyword moves a keyword between clusters. A source cluster left empty
// is dropped.
func (p *Plan) MoveKeyword(from, to ClusterRef, keyword string) error {
	src, err := p.Cluster(from)
	if err != nil {
		return err
	}
	dst, err := p.Cluster(to)
	if err != nil {
		return err
	}
	key := NormalizeKey(keyword)
	idx := src.indexOf(key)
	if idx < 0 {
		return eris.Wrapf(ErrKeywordNotFound, "model: %q in %s", keyword, from)
	}
	if from.Type == to.Type && strings.EqualFold(from.Name, to.Name) {
		return nil
	}

	kw := src.Keywords[idx]
	src.Keywords = append(src.Keywords[:idx:idx], src.Keywords[idx+1:]...)
	src.Recompute()
	dst.Keywords = append(dst.Keywords, kw)
	dst.Recompute()

	p.dropEmpty()
	return p.Validate()
}

// AddCluster creates a cluster and moves the named keywords into it from
// wherever they currently live.
func (p *Plan) AddCluster(typ ClusterType, name string, keywords []string) error {
	name = strings.Join(strings.Fields(name), " ")
	if _, err := p.Cluster(ClusterRef{Type: typ, Name: name}); err == nil {
		return eris.Wrapf(ErrDuplicateCluster, "model: %s:%s", strings.ToLower(string(typ)), name)
	}
	if len(keywords) == 0 {
		return eris.Wrapf(ErrEmptyCluster, "model: new cluster %q", name)
	}

	var (
		moved   []Keyword
		origins []ClusterRef
	)
	for _, text := range keywords {
		kw, from, ok := p.take(NormalizeKey(text))
		if !ok {
			p.restore(moved, origins)
			return eris.Wrapf(ErrKeywordNotFound, "model: %q", text)
		}
		moved = append(moved, kw)
		origins = append(origins, from)
	}

	c, err := NewCluster(name, typ, moved)
	if err != nil {
		p.restore(moved, origins)
		return err
	}
	list := p.clusters(typ)
	*list = append(*list, c)
	p.dropEmpty()
	return p.Validate()
}

// DeleteCluster removes a cluster. A non-empty cluster needs a target that
// receives its keywords.
func (p *Plan) DeleteCluster(ref ClusterRef, moveTo *ClusterRef) error {
	c, err := p.Cluster(ref)
	if err != nil {
		return err
	}
	if len(c.Keywords) > 0 {
		if moveTo == nil {
			return eris.Wrapf(ErrClusterNotEmpty, "model: %s has %d keywords", ref, len(c.Keywords))
		}
		dst, err := p.Cluster(*moveTo)
		if err != nil {
			return err
		}
		if dst == c {
			return eris.Errorf("model: cannot move keywords of %s into itself", ref)
		}
		dst.Keywords = append(dst.Keywords, c.Keywords...)
		dst.Recompute()
	}

	list := p.clusters(ref.Type)
	for i := range *list {
		if strings.EqualFold((*list)[i].Name, ref.Name) {
			*list = append((*list)[:i], (*list)[i+1:]...)
			break
		}
	}
	return p.Validate()
}

// SetMetaSuggestions replaces a cluster's suggestions and selects the first.
func (p *Plan) SetMetaSuggestions(ref ClusterRef, suggestions []MetaSuggestion) error {
	c, err := p.Cluster(ref)
	if err != nil {
		return err
	}
	c.MetaSuggestions = suggestions
	c.SelectedSuggestion = 0
	return nil
}

// SelectSuggestion chooses which meta suggestion a cluster uses.
func (p *Plan) SelectSuggestion(ref ClusterRef, idx int) error {
	c, err := p.Cluster(ref)
	if err != nil {
		return err
	}
	if idx < 0 || idx >= len(c.MetaSuggestions) {
		return eris.Errorf("model: suggestion %d out of range for %s (%d available)", idx, ref, len(c.MetaSuggestions))
	}
	c.SelectedSuggestion = idx
	return nil
}

// Validate checks that every cluster is non-empty, names are unique per
// type and no keyword appears in two clusters.
func (p *Plan) Validate() error {
	owner := make(map[string]string)
	for _, t := range []ClusterType{ClusterTypeService, ClusterTypeBlog} {
		names := make(map[string]bool)
		for _, c := range *p.clusters(t) {
			lname := strings.ToLower(c.Name)
			if names[lname] {
				return eris.Wrapf(ErrDuplicateCluster, "model: %s", c.Ref())
			}
			names[lname] = true
			if len(c.Keywords) == 0 {
				return eris.Wrapf(ErrEmptyCluster, "model: %s", c.Ref())
			}
			for _, k := range c.Keywords {
				key := k.Key()
				if prev, ok := owner[key]; ok {
					return eris.Wrapf(ErrCoverage, "model: %q in %s and %s", k.Keyword, prev, c.Ref())
				}
				owner[key] = c.Ref().String()
			}
		}
	}
	return nil
}

// take removes the keyword with the given key from whichever cluster holds
// it. Emptied clusters stay in place until dropEmpty runs.
func (p *Plan) take(key string) (Keyword, ClusterRef, bool) {
	for _, t := range []ClusterType{ClusterTypeService, ClusterTypeBlog} {
		list := p.clusters(t)
		for i := range *list {
			c := &(*list)[i]
			if idx := c.indexOf(key); idx >= 0 {
				kw := c.Keywords[idx]
				c.Keywords = append(c.Keywords[:idx:idx], c.Keywords[idx+1:]...)
				c.Recompute()
				return kw, c.Ref(), true
			}
		}
	}
	return Keyword{}, ClusterRef{}, false
}

// restore returns keywords taken by a failed AddCluster to their origin.
func (p *Plan) restore(kws []Keyword, origins []ClusterRef) {
	for i, kw := range kws {
		c, err := p.Cluster(origins[i])
		if err != nil {
			continue
		}
		c.Keywords = append(c.Keywords, kw)
		c.Recompute()
	}
}

func (p *Plan) dropEmpty() {
	for _, t := range []ClusterType{ClusterTypeService, ClusterTypeBlog} {
		list := p.clusters(t)
		kept := (*list)[:0]
		for _, c := range *list {
			if len(c.Keywords) > 0 {
				kept = append(kept, c)
			}
		}
		*list = kept
	}
}

// Catch-all cluster names used when keywords need a home.
const (
	CatchAllServiceName = "Other services"
	CatchAllBlogName    = "Other questions"
)
