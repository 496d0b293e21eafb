package plan

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/rankrent-cli/internal/cluster"
	"github.com/sells-group/rankrent-cli/internal/competitor"
	"github.com/sells-group/rankrent-cli/internal/filter"
	"github.com/sells-group/rankrent-cli/internal/generation/mocks"
	"github.com/sells-group/rankrent-cli/internal/meta"
	"github.com/sells-group/rankrent-cli/internal/model"
	"github.com/sells-group/rankrent-cli/internal/research"
	"github.com/sells-group/rankrent-cli/internal/seo"
	"github.com/sells-group/rankrent-cli/pkg/dataforseo"
	dfsmocks "github.com/sells-group/rankrent-cli/pkg/dataforseo/mocks"
)

const metaResponse = `{"meta_suggestions":[{"h1":"Fontanero en Madrid","seo_title":"Fontanero Madrid","seo_description":"Llámanos hoy."}]}`

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newAssembler(gen *mocks.MockGenerator, opts ...Option) *Assembler {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return NewAssembler(nil, cluster.New(gen), meta.New(gen), opts...)
}

func manualKeywords() []model.Keyword {
	return []model.Keyword{
		{Keyword: "fontanero madrid", Volume: 1200, Source: model.SourceManualCSV},
		{Keyword: "Fontanero Madrid", Volume: 900, Source: model.SourceManualCSV},
		{Keyword: "fontanero urgente", Volume: 500, Source: model.SourceManualCSV},
		{Keyword: "desatascos baratos", Volume: 300, Source: model.SourceManualCSV},
	}
}

func TestManual(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator(t)
	gen.On("Generate", mock.Anything, mock.Anything, "cluster").Return(`{
		"services": [{"name": "Fontanero", "keywords": ["fontanero madrid", "fontanero urgente"]}],
		"blog": []
	}`, nil).Once()
	gen.On("Generate", mock.Anything, mock.Anything, "meta").Return(metaResponse, nil).Twice()

	a := newAssembler(gen, WithLocations("[niche] en [town]", 9))
	p, err := a.Manual(context.Background(), Request{
		Niche:             "fontanero",
		City:              "Madrid",
		Services:          []string{"desatascos"},
		Towns:             []string{"Getafe", "Leganés"},
		GenerateLocations: true,
		DesignStyle:       "modern",
	}, manualKeywords())
	require.NoError(t, err)

	_, err = uuid.Parse(p.ID)
	assert.NoError(t, err)
	assert.Equal(t, fixedNow, p.CreatedAt)
	assert.Equal(t, "modern", p.DesignStyle)
	assert.Len(t, p.RawData.TopKeywords, 3)
	assert.Equal(t, 1200, p.RawData.TopKeywords[0].Volume)
	assert.NotNil(t, p.RawData.Competitors)

	require.Len(t, p.Services, 2)
	assert.Equal(t, "Fontanero", p.Services[0].Name)
	assert.Equal(t, model.CatchAllServiceName, p.Services[1].Name)
	assert.Equal(t, 3, p.KeywordCount())
	for _, c := range p.AllClusters() {
		assert.Len(t, c.MetaSuggestions, 1, c.Name)
	}

	require.Len(t, p.Locations, 2)
	assert.Equal(t, "leganes", p.Locations[1].Slug)
	assert.Equal(t, "fontanero en Leganés", p.Locations[1].Intro)
	assert.NoError(t, p.Validate())
}

func TestManual_DeferMeta(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator(t)
	gen.On("Generate", mock.Anything, mock.Anything, "cluster").
		Return(`{"services": [{"name": "Fontanero", "keywords": ["fontanero madrid"]}]}`, nil).Once()

	p, err := newAssembler(gen).Manual(context.Background(), Request{Niche: "fontanero", DeferMeta: true}, manualKeywords())
	require.NoError(t, err)
	assert.Empty(t, p.Services[0].MetaSuggestions)
	assert.Empty(t, p.Locations)
}

func TestManual_InputErrors(t *testing.T) {
	t.Parallel()

	a := newAssembler(mocks.NewMockGenerator(t))

	_, err := a.Manual(context.Background(), Request{}, manualKeywords())
	assert.Error(t, err)

	_, err = a.Manual(context.Background(), Request{Niche: "fontanero"}, nil)
	assert.True(t, errors.Is(err, ErrNoKeywords))

	strict := newAssembler(mocks.NewMockGenerator(t), WithFilter(filter.Options{MinSearchVolume: 1_000_000}))
	_, err = strict.Manual(context.Background(), Request{Niche: "fontanero"}, manualKeywords())
	assert.True(t, errors.Is(err, ErrAllFiltered))
}

func TestManual_ClusterFailurePropagates(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator(t)
	gen.On("Generate", mock.Anything, mock.Anything, "cluster").Return(nil, errors.New("provider down")).Once()

	_, err := newAssembler(gen).Manual(context.Background(), Request{Niche: "fontanero"}, manualKeywords())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
}

func TestAutomated(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>Acme Fontaneros</title></head>
			<body><h1>Fontanero 24 horas en Madrid</h1><h2>Contacto</h2></body></html>`))
	}))
	defer srv.Close()

	gen := mocks.NewMockGenerator(t)
	gen.On("Generate", mock.Anything, mock.Anything, "deep_research").
		Return(`{"mainKeywords": ["fontanero madrid"], "painPoints": ["fugas"]}`, nil).Once()
	gen.On("Generate", mock.Anything, mock.Anything, "keyword_suggestions").
		Return(`{"keywords": ["fontanero barato madrid"]}`, nil).Once()
	gen.On("Generate", mock.Anything, mock.Anything, "cluster").
		Return(`{"services": [{"name": "Fontanero Madrid", "keywords": ["fontanero madrid", "fontanero barato madrid"]}]}`, nil).Once()
	gen.On("Generate", mock.Anything, mock.Anything, "home_structure").
		Return(`{"h1": "Fontaneros en Madrid", "sections": ["hero"]}`, nil).Once()
	gen.On("Generate", mock.Anything, mock.Anything, "meta").Return(metaResponse, nil)

	client := dfsmocks.NewMockClient(t)
	client.On("SERPOrganic", mock.Anything, mock.Anything).Return(&dataforseo.SERPResponse{Items: []dataforseo.SERPItem{
		{Type: "organic", RankGroup: 1, Domain: "acme.es", URL: srv.URL + "/"},
		{Type: "organic", RankGroup: 2, Domain: "yelp.es", URL: "https://yelp.es/x"},
	}}, nil).Once()
	client.On("RankedKeywords", mock.Anything, mock.MatchedBy(func(r dataforseo.RankedKeywordsRequest) bool {
		return r.Target == "acme.es"
	})).Return(&dataforseo.RankedKeywordsResponse{Items: []dataforseo.RankedKeywordItem{{
		KeywordData:       dataforseo.KeywordItem{Keyword: "fontanero urgente", KeywordInfo: dataforseo.KeywordInfo{SearchVolume: 700}},
		RankedSERPElement: dataforseo.RankedSERPElement{SERPItem: dataforseo.SERPItem{RankGroup: 3}},
	}}}, nil).Once()
	client.On("KeywordSuggestions", mock.Anything, mock.Anything).Return(&dataforseo.KeywordSuggestionsResponse{Items: []dataforseo.KeywordItem{
		{Keyword: "fontanero madrid", KeywordInfo: dataforseo.KeywordInfo{SearchVolume: 2400}},
	}}, nil)

	scraper := competitor.NewScraper(competitor.NewFetcher(competitor.FetchOptions{RequestsPerSecond: 1000}))
	a := newAssembler(gen,
		WithResearcher(research.New(gen)),
		WithSEO(seo.NewGateway(client, seo.Options{}, nil, nil)),
		WithScraper(scraper, 3),
		WithFilter(filter.Options{Top10Filter: true}),
	)

	p, err := a.Automated(context.Background(), Request{Niche: "fontanero", City: "Madrid"})
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	require.Len(t, p.RawData.Competitors, 2)
	assert.Equal(t, "Acme Fontaneros", p.RawData.Competitors[0].Title)
	assert.False(t, p.RawData.Competitors[1].Recommended)

	keys := map[string]model.Keyword{}
	for _, k := range p.RawData.TopKeywords {
		keys[k.Key()] = k
	}
	assert.Equal(t, 2400, keys["fontanero madrid"].Volume)
	assert.Contains(t, keys, "fontanero urgente")
	assert.Contains(t, keys, "fontanero 24 horas en madrid")
	assert.Contains(t, keys, "fontanero barato madrid")
	assert.Equal(t, len(p.RawData.TopKeywords), p.KeywordCount())

	require.NotNil(t, p.RichContext)
	require.NotNil(t, p.HomeStructure)
	assert.Equal(t, "Fontaneros en Madrid", p.HomeStructure.H1)
}

func TestAutomated_SEOFailureDegrades(t *testing.T) {
	t.Parallel()

	gen := mocks.NewMockGenerator(t)
	gen.On("Generate", mock.Anything, mock.Anything, "deep_research").Return(nil, errors.New("quota")).Once()
	gen.On("Generate", mock.Anything, mock.Anything, "keyword_suggestions").
		Return(`{"keywords": ["fontanero madrid"]}`, nil).Once()
	gen.On("Generate", mock.Anything, mock.Anything, "cluster").
		Return(`{"services": [{"name": "Fontanero", "keywords": ["fontanero madrid"]}]}`, nil).Once()
	gen.On("Generate", mock.Anything, mock.Anything, "home_structure").Return(nil, errors.New("quota")).Once()

	client := dfsmocks.NewMockClient(t)
	client.On("SERPOrganic", mock.Anything, mock.Anything).Return(nil, errors.New("down")).Once()
	client.On("KeywordSuggestions", mock.Anything, mock.Anything).Return(nil, errors.New("down"))

	a := newAssembler(gen,
		WithResearcher(research.New(gen)),
		WithSEO(seo.NewGateway(client, seo.Options{}, nil, nil)),
	)
	p, err := a.Automated(context.Background(), Request{Niche: "fontanero", City: "Madrid", DeferMeta: true})
	require.NoError(t, err)
	assert.Empty(t, p.RawData.Competitors)
	assert.Nil(t, p.RichContext)
	assert.Nil(t, p.HomeStructure)
	assert.Equal(t, 1, p.KeywordCount())
}

func TestAutomated_NoKeywords(t *testing.T) {
	t.Parallel()

	_, err := newAssembler(mocks.NewMockGenerator(t)).Automated(context.Background(), Request{Niche: "fontanero"})
	assert.True(t, errors.Is(err, ErrNoKeywords))
}

func TestSeeds(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"fontanero", "fontanero Madrid", "desatascos"},
		seeds(Request{Niche: "fontanero", City: "Madrid", Services: []string{" desatascos ", ""}}))
	assert.Equal(t, []string{"plumber"}, seeds(Request{Niche: "plumber"}))
}
