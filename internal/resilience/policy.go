package resilience

import (
	"context"
	"sync"
	"time"
)

// Policy is the outcome of classifying a provider failure. The pipeline never
// loops on it: a quota failure waits Backoff once and the call still fails.
type Policy struct {
	Retryable bool
	Backoff   time.Duration
	Quota     bool
}

// Classify maps a provider error to a Policy. Quota and rate-limit failures
// carry quotaBackoff; other transient failures are retryable by the caller
// with no wait; everything else is permanent.
func Classify(err error, quotaBackoff time.Duration) Policy {
	switch {
	case err == nil:
		return Policy{}
	case IsQuota(err):
		return Policy{Retryable: true, Backoff: quotaBackoff, Quota: true}
	case IsTransient(err):
		return Policy{Retryable: true}
	default:
		return Policy{}
	}
}

// Sleeper waits for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper.
type SleeperFunc func(ctx context.Context, d time.Duration) error

// Sleep calls f.
func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// RealSleeper sleeps on the wall clock.
var RealSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
})

// RecordingSleeper records requested durations without waiting.
type RecordingSleeper struct {
	mu    sync.Mutex
	calls []time.Duration
}

// Sleep records d and returns immediately.
func (r *RecordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, d)
	return nil
}

// Calls returns a copy of the recorded durations in call order.
func (r *RecordingSleeper) Calls() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.calls...)
}

// Total returns the sum of all recorded sleeps.
func (r *RecordingSleeper) Total() time.Duration {
	var sum time.Duration
	for _, d := range r.Calls() {
		sum += d
	}
	return sum
}
