// Package dataforseo is a client for the DataForSEO v3 REST API: keyword
// suggestions, ranked keywords per domain and Google organic SERPs.
package dataforseo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/rankrent-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://api.dataforseo.com/v3"

	pathKeywordSuggestions = "/dataforseo_labs/google/keyword_suggestions/live"
	pathRankedKeywords     = "/dataforseo_labs/google/ranked_keywords/live"
	pathSERPOrganic        = "/serp/google/organic/live/advanced"

	// StatusOK is the status_code DataForSEO reports for a successful task.
	StatusOK = 20000
	// StatusRateLimited is reported when the per-minute request limit is hit.
	StatusRateLimited = 40202
)

// Client performs DataForSEO API operations.
type Client interface {
	KeywordSuggestions(ctx context.Context, req KeywordSuggestionsRequest) (*KeywordSuggestionsResponse, error)
	RankedKeywords(ctx context.Context, req RankedKeywordsRequest) (*RankedKeywordsResponse, error)
	SERPOrganic(ctx context.Context, req SERPRequest) (*SERPResponse, error)
}

// KeywordSuggestionsRequest asks for keywords containing a seed phrase.
type KeywordSuggestionsRequest struct {
	Keyword            string `json:"keyword"`
	LocationCode       int    `json:"location_code,omitempty"`
	LanguageCode       string `json:"language_code,omitempty"`
	Limit              int    `json:"limit,omitempty"`
	IncludeSeedKeyword bool   `json:"include_seed_keyword,omitempty"`
}

// RankedKeywordsRequest asks for the keywords a domain ranks for.
type RankedKeywordsRequest struct {
	Target       string `json:"target"`
	LocationCode int    `json:"location_code,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	Limit        int    `json:"limit,omitempty"`
}

// SERPRequest asks for the live Google organic results of a query.
type SERPRequest struct {
	Keyword      string `json:"keyword"`
	LocationCode int    `json:"location_code,omitempty"`
	LanguageCode string `json:"language_code,omitempty"`
	Depth        int    `json:"depth,omitempty"`
}

// KeywordInfo holds search metrics for a keyword.
type KeywordInfo struct {
	SearchVolume int     `json:"search_volume"`
	CPC          float64 `json:"cpc"`
	Competition  float64 `json:"competition"`
}

// KeywordProperties holds derived keyword attributes.
type KeywordProperties struct {
	KeywordDifficulty int `json:"keyword_difficulty"`
}

// KeywordItem is one keyword with its metrics.
type KeywordItem struct {
	Keyword           string            `json:"keyword"`
	KeywordInfo       KeywordInfo       `json:"keyword_info"`
	KeywordProperties KeywordProperties `json:"keyword_properties"`
}

// KeywordSuggestionsResponse is the flattened result of a suggestions call.
type KeywordSuggestionsResponse struct {
	Cost  float64       `json:"cost"`
	Items []KeywordItem `json:"items"`
}

// SERPItem is one element of a search results page.
type SERPItem struct {
	Type         string `json:"type"`
	RankGroup    int    `json:"rank_group"`
	RankAbsolute int    `json:"rank_absolute"`
	Domain       string `json:"domain"`
	URL          string `json:"url"`
	Title        string `json:"title"`
	Description  string `json:"description"`
}

// RankedSERPElement is where a domain ranks for a keyword.
type RankedSERPElement struct {
	SERPItem SERPItem `json:"serp_item"`
}

// RankedKeywordItem is one keyword a domain ranks for.
type RankedKeywordItem struct {
	KeywordData       KeywordItem       `json:"keyword_data"`
	RankedSERPElement RankedSERPElement `json:"ranked_serp_element"`
}

// RankedKeywordsResponse is the flattened result of a ranked keywords call.
type RankedKeywordsResponse struct {
	Cost  float64             `json:"cost"`
	Items []RankedKeywordItem `json:"items"`
}

// SERPResponse is the flattened result of a SERP call.
type SERPResponse struct {
	Cost  float64    `json:"cost"`
	Items []SERPItem `json:"items"`
}

// Organic returns only the organic result items.
func (r *SERPResponse) Organic() []SERPItem {
	var out []SERPItem
	for _, it := range r.Items {
		if it.Type == "" || it.Type == "organic" {
			out = append(out, it)
		}
	}
	return out
}

// APIError is a non-success status reported by DataForSEO, either at the
// HTTP level or inside the response envelope.
type APIError struct {
	HTTPStatus int
	Code       int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dataforseo: status %d (http %d): %s", e.Code, e.HTTPStatus, e.Message)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request rate (2 req/s). A value of 0
// disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	login    string
	password string
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a DataForSEO client authenticated with basic auth.
func NewClient(login, password string, opts ...Option) Client {
	c := &httpClient{
		login:    login,
		password: password,
		baseURL:  defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
		},
		limiter: rate.NewLimiter(2, 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type envelope[T any] struct {
	StatusCode    int       `json:"status_code"`
	StatusMessage string    `json:"status_message"`
	Cost          float64   `json:"cost"`
	Tasks         []task[T] `json:"tasks"`
}

type task[T any] struct {
	StatusCode    int     `json:"status_code"`
	StatusMessage string  `json:"status_message"`
	Cost          float64 `json:"cost"`
	Result        []T     `json:"result"`
}

type itemsResult[T any] struct {
	Items []T `json:"items"`
}

func (c *httpClient) KeywordSuggestions(ctx context.Context, req KeywordSuggestionsRequest) (*KeywordSuggestionsResponse, error) {
	items, cost, err := post[KeywordItem](ctx, c, pathKeywordSuggestions, req)
	if err != nil {
		return nil, eris.Wrapf(err, "dataforseo: keyword suggestions for %q", req.Keyword)
	}
	return &KeywordSuggestionsResponse{Cost: cost, Items: items}, nil
}

func (c *httpClient) RankedKeywords(ctx context.Context, req RankedKeywordsRequest) (*RankedKeywordsResponse, error) {
	items, cost, err := post[RankedKeywordItem](ctx, c, pathRankedKeywords, req)
	if err != nil {
		return nil, eris.Wrapf(err, "dataforseo: ranked keywords for %q", req.Target)
	}
	return &RankedKeywordsResponse{Cost: cost, Items: items}, nil
}

func (c *httpClient) SERPOrganic(ctx context.Context, req SERPRequest) (*SERPResponse, error) {
	items, cost, err := post[SERPItem](ctx, c, pathSERPOrganic, req)
	if err != nil {
		return nil, eris.Wrapf(err, "dataforseo: serp for %q", req.Keyword)
	}
	return &SERPResponse{Cost: cost, Items: items}, nil
}

// post sends a single-task array and flattens the items of every result.
func post[T any](ctx context.Context, c *httpClient, path string, payload any) ([]T, float64, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, eris.Wrap(err, "rate limit")
		}
	}

	body, err := json.Marshal([]any{payload})
	if err != nil {
		return nil, 0, eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, 0, eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.login, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, eris.Wrap(resilience.NewTransientError(err, 0), "send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, eris.Wrap(err, "read response")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{HTTPStatus: resp.StatusCode, Code: resp.StatusCode, Message: string(respBody)}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, 0, resilience.NewTransientError(apiErr, resp.StatusCode)
		}
		return nil, 0, apiErr
	}

	var env envelope[itemsResult[T]]
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, 0, eris.Wrap(err, "unmarshal response")
	}
	if env.StatusCode != StatusOK {
		return nil, env.Cost, statusError(env.StatusCode, env.StatusMessage)
	}
	if len(env.Tasks) == 0 {
		return nil, env.Cost, &APIError{HTTPStatus: resp.StatusCode, Message: "no tasks in response"}
	}

	t := env.Tasks[0]
	if t.StatusCode != StatusOK {
		return nil, env.Cost, statusError(t.StatusCode, t.StatusMessage)
	}

	var items []T
	for _, r := range t.Result {
		items = append(items, r.Items...)
	}
	return items, env.Cost, nil
}

func statusError(code int, msg string) error {
	apiErr := &APIError{HTTPStatus: http.StatusOK, Code: code, Message: msg}
	switch {
	case code == StatusRateLimited:
		return resilience.NewTransientError(apiErr, http.StatusTooManyRequests)
	case code >= 50000:
		return resilience.NewTransientError(apiErr, http.StatusInternalServerError)
	}
	return apiErr
}
