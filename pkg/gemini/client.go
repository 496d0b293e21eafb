// Package gemini is a minimal REST client for the Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/rankrent-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"
)

// Client generates content with a Gemini model.
type Client interface {
	GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest is the request body for POST models/{model}:generateContent.
type GenerateRequest struct {
	Model             string            `json:"-"`
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// Content is one turn of the conversation.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a text fragment of a Content.
type Part struct {
	Text string `json:"text"`
}

// GenerationConfig controls sampling and output format.
type GenerationConfig struct {
	ResponseMimeType string   `json:"responseMimeType,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int      `json:"maxOutputTokens,omitempty"`
}

// GenerateResponse is the response from generateContent.
type GenerateResponse struct {
	Candidates    []Candidate   `json:"candidates"`
	UsageMetadata UsageMetadata `json:"usageMetadata"`
	ModelVersion  string        `json:"modelVersion"`
}

// Candidate is a single generated answer.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

// UsageMetadata reports token consumption.
type UsageMetadata struct {
	PromptTokenCount     int64 `json:"promptTokenCount"`
	CandidatesTokenCount int64 `json:"candidatesTokenCount"`
	TotalTokenCount      int64 `json:"totalTokenCount"`
}

// Text returns the concatenated text of the first candidate.
func (r *GenerateResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// APIError is the error envelope Gemini returns on non-200 responses.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Status     string `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini: status %d %s: %s", e.StatusCode, e.Status, e.Message)
}

// ErrEmptyResponse is returned when the model produced no candidates.
var ErrEmptyResponse = eris.New("gemini: empty response")

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *httpClient) {
		if model != "" {
			c.model = model
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates a Gemini API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		http: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: marshal request")
	}

	endpoint := c.baseURL + "/models/" + url.PathEscape(model) + ":generateContent?key=" + url.QueryEscape(c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "gemini: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(resilience.NewTransientError(err, 0), "gemini: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: read response")
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := parseAPIError(resp.StatusCode, respBody)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, eris.Wrap(resilience.NewTransientError(apiErr, resp.StatusCode), "gemini: generate content")
		}
		return nil, eris.Wrap(apiErr, "gemini: generate content")
	}

	var result GenerateResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "gemini: unmarshal response")
	}
	if len(result.Candidates) == 0 {
		return nil, ErrEmptyResponse
	}
	return &result, nil
}

func parseAPIError(status int, body []byte) *APIError {
	var envelope struct {
		Error APIError `json:"error"`
	}
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		envelope.Error.StatusCode = status
		return &envelope.Error
	}
	apiErr.Message = strings.TrimSpace(string(body))
	return apiErr
}
