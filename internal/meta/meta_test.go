package meta

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rankrent-cli/internal/generation/mocks"
	"github.com/sells-group/rankrent-cli/internal/model"
)

const twoSuggestions = `{"meta_suggestions":[
	{"h1":" Boiler Repair in Leeds ","seo_title":"Boiler Repair Leeds","seo_description":"Same-day boiler repair. Call now."},
	{"h1":"","seo_title":"","seo_description":""},
	{"h1":"Fast Boiler Repairs","seo_title":"Leeds Boiler Fixes","seo_description":"Gas Safe engineers. Book today."}
]}`

func testPlan(t *testing.T) *model.Plan {
	t.Helper()
	mk := func(name string, typ model.ClusterType, kws ...string) model.Cluster {
		var list []model.Keyword
		for _, k := range kws {
			list = append(list, model.Keyword{Keyword: k, Source: model.SourceManual})
		}
		c, err := model.NewCluster(name, typ, list)
		require.NoError(t, err)
		return c
	}
	return &model.Plan{
		Niche: "plumber",
		City:  "Leeds",
		Services: []model.Cluster{
			mk("Boiler repair", model.ClusterTypeService, "boiler repair", "fix boiler"),
			mk("Drains", model.ClusterTypeService, "drain unblocking"),
		},
		Blog: []model.Cluster{
			mk("Boiler guide", model.ClusterTypeBlog, "how does a boiler work"),
		},
	}
}

func TestSuggest(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator(t)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Page topic: Boiler repair") &&
			strings.Contains(p, "boiler repair, fix boiler") &&
			strings.Contains(p, `local "plumber" business in Leeds`) &&
			!strings.Contains(p, "rejected")
	}), "meta").Return(twoSuggestions, nil).Once()

	g := New(gen)
	got, err := g.Suggest(context.Background(), Request{
		ClusterName: "Boiler repair",
		ClusterType: model.ClusterTypeService,
		Keywords:    []string{"boiler repair", "fix boiler"},
		Niche:       "plumber",
		City:        "Leeds",
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Boiler Repair in Leeds", got[0].H1)
	assert.Equal(t, "Leeds Boiler Fixes", got[1].SEOTitle)
}

func TestSuggest_Errors(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator(t)
	gen.On("Generate", mock.Anything, mock.Anything, "meta").Return(`{"meta_suggestions":[]}`, nil).Once()
	_, err := New(gen).Suggest(context.Background(), Request{ClusterName: "x"})
	assert.True(t, errors.Is(err, ErrNoSuggestions))

	boom := errors.New("quota")
	gen2 := mocks.NewMockGenerator(t)
	gen2.On("Generate", mock.Anything, mock.Anything, "meta").Return(nil, boom).Once()
	_, err = New(gen2).Suggest(context.Background(), Request{ClusterName: "x"})
	assert.True(t, errors.Is(err, boom))
}

func TestPrompt_Deterministic(t *testing.T) {
	t.Parallel()

	g := New(nil, WithVariants(2))
	req := Request{ClusterName: "Guide", ClusterType: model.ClusterTypeBlog, Niche: "plumber"}
	p := g.prompt(req)
	assert.Equal(t, p, g.prompt(req))
	assert.Contains(t, p, "Write 2 alternative metadata sets for a blog article")
	assert.NotContains(t, p, "Target keywords")

	req.Previous = []model.MetaSuggestion{{H1: "Old heading", SEOTitle: "Old", SEODescription: "Old desc"}}
	assert.Contains(t, g.prompt(req), "- Old heading | Old | Old desc")
}

func TestRegenerate(t *testing.T) {
	t.Parallel()

	p := testPlan(t)
	ref := model.ClusterRef{Type: model.ClusterTypeService, Name: "boiler repair"}
	require.NoError(t, p.SetMetaSuggestions(ref, []model.MetaSuggestion{{H1: "Old heading"}, {H1: "Other"}}))
	require.NoError(t, p.SelectSuggestion(ref, 1))

	gen := mocks.NewMockGenerator(t)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Old heading")
	}), "meta").Return(twoSuggestions, nil).Once()

	require.NoError(t, New(gen).Regenerate(context.Background(), p, ref))

	c, err := p.Cluster(ref)
	require.NoError(t, err)
	assert.Len(t, c.MetaSuggestions, 2)
	assert.Equal(t, 0, c.SelectedSuggestion)
	assert.Empty(t, p.Services[1].MetaSuggestions)

	err = New(gen).Regenerate(context.Background(), p, model.ClusterRef{Type: model.ClusterTypeBlog, Name: "missing"})
	assert.True(t, errors.Is(err, model.ErrClusterNotFound))
}

func TestFillAll(t *testing.T) {
	t.Parallel()

	p := testPlan(t)
	p.Blog[0].MetaSuggestions = []model.MetaSuggestion{{H1: "Kept"}}

	gen := mocks.NewMockGenerator(t)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Page topic: Boiler repair")
	}), "meta").Return(twoSuggestions, nil).Once()
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Page topic: Drains")
	}), "meta").Return(nil, errors.New("provider down")).Once()

	filled, err := New(gen, WithConcurrency(2)).FillAll(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, 1, filled)
	assert.Len(t, p.Services[0].MetaSuggestions, 2)
	assert.Empty(t, p.Services[1].MetaSuggestions)
	assert.Equal(t, "Kept", p.Blog[0].MetaSuggestions[0].H1)
}

func TestFillAll_NothingToDo(t *testing.T) {
	t.Parallel()

	p := &model.Plan{Niche: "plumber"}
	filled, err := New(mocks.NewMockGenerator(t)).FillAll(context.Background(), p)
	require.NoError(t, err)
	assert.Zero(t, filled)
}

func TestRequestFor_IsSnapshot(t *testing.T) {
	t.Parallel()

	p := testPlan(t)
	ref := model.ClusterRef{Type: model.ClusterTypeService, Name: "Boiler repair"}
	require.NoError(t, p.SetMetaSuggestions(ref, []model.MetaSuggestion{{H1: "Old heading"}}))

	req, err := RequestFor(p, ref)
	require.NoError(t, err)
	assert.Equal(t, "Boiler repair", req.ClusterName)
	assert.Equal(t, []string{"boiler repair", "fix boiler"}, req.Keywords)
	assert.Equal(t, "plumber", req.Niche)

	// Later plan edits do not leak into the request.
	require.NoError(t, p.SetMetaSuggestions(ref, []model.MetaSuggestion{{H1: "Changed"}}))
	require.Len(t, req.Previous, 1)
	assert.Equal(t, "Old heading", req.Previous[0].H1)

	_, err = RequestFor(p, model.ClusterRef{Type: model.ClusterTypeBlog, Name: "missing"})
	assert.True(t, errors.Is(err, model.ErrClusterNotFound))
}

func TestSuggestMissing_LeavesPlanUntouched(t *testing.T) {
	t.Parallel()

	p := testPlan(t)
	gen := mocks.NewMockGenerator(t)
	gen.On("Generate", mock.Anything, mock.Anything, "meta").Return(twoSuggestions, nil).Times(3)

	got, err := New(gen).SuggestMissing(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	for _, c := range p.AllClusters() {
		assert.Empty(t, c.MetaSuggestions, c.Name)
	}

	// Clusters removed or filled in the meantime are skipped.
	p.Services = p.Services[:1]
	p.Blog[0].MetaSuggestions = []model.MetaSuggestion{{H1: "Written by hand"}}
	assert.Equal(t, 1, ApplyMissing(p, got))
	assert.Len(t, p.Services[0].MetaSuggestions, 2)
	assert.Equal(t, "Written by hand", p.Blog[0].MetaSuggestions[0].H1)
}
