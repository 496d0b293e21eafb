// Package generation is the cached, rate-aware entry point for every LLM call
// the pipeline makes.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/rankrent-cli/internal/cost"
	"github.com/sells-group/rankrent-cli/internal/jsonx"
	"github.com/sells-group/rankrent-cli/internal/llm"
	"github.com/sells-group/rankrent-cli/internal/resilience"
)

const (
	defaultCallDelay    = 2 * time.Second
	defaultQuotaBackoff = 60 * time.Second
)

// ErrNoProvider is returned on a cache miss when no provider is configured.
var ErrNoProvider = eris.New("generation: no llm provider configured")

// ProviderError reports a failed provider call together with its
// classification.
type ProviderError struct {
	Provider string
	Label    string
	Policy   resilience.Policy
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("generation: %s call %q failed: %v", e.Provider, e.Label, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Generator is what pipeline stages depend on.
type Generator interface {
	Generate(ctx context.Context, prompt, label string) (json.RawMessage, error)
}

// Gateway serves prompts from the cache or the provider.
type Gateway struct {
	provider     llm.Provider
	cache        *Cache
	validator    *QualityValidator
	tracker      *cost.Tracker
	sleeper      resilience.Sleeper
	callDelay    time.Duration
	quotaBackoff time.Duration
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithSleeper replaces the wall-clock sleeper.
func WithSleeper(s resilience.Sleeper) Option {
	return func(g *Gateway) { g.sleeper = s }
}

// WithCallDelay sets the pause after each provider call.
func WithCallDelay(d time.Duration) Option {
	return func(g *Gateway) { g.callDelay = d }
}

// WithQuotaBackoff sets the wait applied once after a quota failure.
func WithQuotaBackoff(d time.Duration) Option {
	return func(g *Gateway) { g.quotaBackoff = d }
}

// WithTracker records calls, cache hits and tokens.
func WithTracker(t *cost.Tracker) Option {
	return func(g *Gateway) { g.tracker = t }
}

// WithValidator replaces the default quality validator.
func WithValidator(v *QualityValidator) Option {
	return func(g *Gateway) { g.validator = v }
}

// NewGateway creates a Gateway. cache may be nil to disable caching; provider
// may be nil to run from cache only.
func NewGateway(provider llm.Provider, cache *Cache, opts ...Option) *Gateway {
	g := &Gateway{
		provider:     provider,
		cache:        cache,
		validator:    NewQualityValidator(),
		sleeper:      resilience.RealSleeper,
		callDelay:    defaultCallDelay,
		quotaBackoff: defaultQuotaBackoff,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate returns the parsed JSON object for prompt. A cache hit never calls
// the provider. Provider failures return a nil value and a *ProviderError;
// quota failures first wait the quota backoff once.
func (g *Gateway) Generate(ctx context.Context, prompt, label string) (json.RawMessage, error) {
	log := zap.L().With(
		zap.String("label", SanitizeLabel(label)),
		zap.String("hash", HashPrompt(prompt)),
	)

	if g.cache != nil {
		raw, ok, err := g.cache.Get(label, prompt)
		if err != nil {
			log.Warn("generation: ignoring unreadable cache entry", zap.Error(err))
		}
		if ok {
			log.Debug("generation: cache hit")
			g.tracker.RecordCacheHit()
			g.checkQuality(log, raw)
			return raw, nil
		}
	}

	if g.provider == nil {
		return nil, ErrNoProvider
	}

	start := time.Now()
	completion, err := g.provider.Complete(ctx, prompt)
	if err != nil {
		g.tracker.RecordLLMFailure()
		policy := resilience.Classify(err, g.quotaBackoff)
		perr := &ProviderError{Provider: g.provider.Name(), Label: label, Policy: policy, Err: err}
		if policy.Quota {
			log.Warn("generation: provider quota exceeded, backing off",
				zap.Duration("backoff", policy.Backoff),
				zap.Error(err),
			)
			if serr := g.sleeper.Sleep(ctx, policy.Backoff); serr != nil {
				return nil, eris.Wrap(serr, "generation: quota backoff interrupted")
			}
			return nil, perr
		}
		log.Error("generation: provider call failed", zap.Bool("retryable", policy.Retryable), zap.Error(err))
		return nil, perr
	}
	g.tracker.RecordLLM(completion.Model, completion.InputTokens, completion.OutputTokens)
	log.Info("generation: provider call complete",
		zap.String("provider", g.provider.Name()),
		zap.String("model", completion.Model),
		zap.Int64("input_tokens", completion.InputTokens),
		zap.Int64("output_tokens", completion.OutputTokens),
		zap.Duration("elapsed", time.Since(start)),
	)

	raw, err := jsonx.Parse(completion.Text)
	if err != nil {
		log.Error("generation: unparseable model output",
			zap.String("raw", jsonx.Snippet(completion.Text, 2000)),
			zap.Error(err),
		)
		g.pause(ctx)
		return nil, eris.Wrapf(err, "generation: parse %s response", label)
	}

	if g.cache != nil {
		if err := g.cache.Put(label, prompt, raw); err != nil {
			log.Warn("generation: cache write failed", zap.Error(err))
		}
	}
	g.checkQuality(log, raw)
	g.pause(ctx)
	return raw, nil
}

// GenerateInto calls Generate and unmarshals the result into v.
func GenerateInto(ctx context.Context, gen Generator, prompt, label string, v any) error {
	raw, err := gen.Generate(ctx, prompt, label)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return eris.Wrapf(err, "generation: decode %s response", label)
	}
	return nil
}

func (g *Gateway) checkQuality(log *zap.Logger, raw json.RawMessage) {
	if g.validator == nil {
		return
	}
	warnings := g.validator.Check(raw)
	for _, w := range warnings {
		log.Warn("generation: filler phrase in output", zap.String("path", w.Path), zap.String("phrase", w.Phrase))
	}
}

func (g *Gateway) pause(ctx context.Context) {
	if g.callDelay <= 0 {
		return
	}
	_ = g.sleeper.Sleep(ctx, g.callDelay)
}
