package cost

import (
	"sync"

	"go.uber.org/zap"
)

// Summary is a snapshot of a run's provider usage.
type Summary struct {
	LLMCalls     int     `json:"llm_calls"`
	CacheHits    int     `json:"cache_hits"`
	LLMFailures  int     `json:"llm_failures"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	LLMUSD       float64 `json:"llm_usd"`
	SEORequests  int     `json:"seo_requests"`
	SEOUSD       float64 `json:"seo_usd"`
}

// TotalUSD returns the combined estimated spend.
func (s Summary) TotalUSD() float64 {
	return s.LLMUSD + s.SEOUSD
}

// Tracker accumulates usage across concurrent callers. A nil *Tracker is a
// valid no-op receiver.
type Tracker struct {
	calc *Calculator

	mu  sync.Mutex
	sum Summary
}

// NewTracker creates a Tracker that prices completions with calc.
func NewTracker(calc *Calculator) *Tracker {
	if calc == nil {
		calc = NewCalculator(DefaultRates())
	}
	return &Tracker{calc: calc}
}

// RecordLLM adds one completed provider call.
func (t *Tracker) RecordLLM(model string, input, output int64) {
	if t == nil {
		return
	}
	usd := t.calc.LLM(model, input, output)
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sum.LLMCalls++
	t.sum.InputTokens += input
	t.sum.OutputTokens += output
	t.sum.LLMUSD += usd
}

// RecordCacheHit counts a generation served from the cache.
func (t *Tracker) RecordCacheHit() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sum.CacheHits++
}

// RecordLLMFailure counts a failed provider call.
func (t *Tracker) RecordLLMFailure() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sum.LLMFailures++
}

// RecordSEO adds the cost the SEO provider reported for one request.
func (t *Tracker) RecordSEO(usd float64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sum.SEORequests++
	t.sum.SEOUSD += usd
}

// Summary returns a snapshot of the accumulated usage.
func (t *Tracker) Summary() Summary {
	if t == nil {
		return Summary{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.sum
}

// Log writes the summary at info level.
func (t *Tracker) Log() {
	s := t.Summary()
	zap.L().Info("cost: run usage",
		zap.Int("llm_calls", s.LLMCalls),
		zap.Int("cache_hits", s.CacheHits),
		zap.Int("llm_failures", s.LLMFailures),
		zap.Int64("input_tokens", s.InputTokens),
		zap.Int64("output_tokens", s.OutputTokens),
		zap.Float64("llm_usd", s.LLMUSD),
		zap.Int("seo_requests", s.SEORequests),
		zap.Float64("seo_usd", s.SEOUSD),
		zap.Float64("total_usd", s.TotalUSD()),
	)
}
