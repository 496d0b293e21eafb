package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failN(t *testing.T, cb *CircuitBreaker, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_ = cb.Execute(context.Background(), func(_ context.Context) error { return errBoom })
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "seo", FailureThreshold: 2, ResetTimeout: time.Minute})
	failN(t, cb, 2)
	assert.Equal(t, CircuitOpen, cb.State())

	called := false
	err := cb.Execute(context.Background(), func(_ context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_SuccessResetsCount(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})
	failN(t, cb, 1)
	require.NoError(t, cb.Execute(context.Background(), func(_ context.Context) error { return nil }))
	failN(t, cb, 1)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1, ResetTimeout: 10 * time.Second})
	cb.nowFunc = func() time.Time { return now }

	failN(t, cb, 1)
	assert.Equal(t, CircuitOpen, cb.State())

	now = now.Add(11 * time.Second)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	// A failing probe reopens.
	failN(t, cb, 1)
	assert.Equal(t, CircuitOpen, cb.State())

	now = now.Add(11 * time.Second)
	require.NoError(t, cb.Execute(context.Background(), func(_ context.Context) error { return nil }))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_ShouldTrip(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ShouldTrip:       IsTransient,
	})
	failN(t, cb, 3)
	assert.Equal(t, CircuitClosed, cb.State())

	_ = cb.Execute(context.Background(), func(_ context.Context) error {
		return NewTransientError(errBoom, 503)
	})
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestExecuteVal(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{Name: "seo", FailureThreshold: 1, ResetTimeout: time.Hour})
	v, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, _ = ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) { return 0, errBoom })
	_, err = ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Contains(t, err.Error(), "seo")
}
