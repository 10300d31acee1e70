package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(threshold int, resetTimeout time.Duration) (*CircuitBreaker, *time.Time) {
	now := time.Date(2025, 11, 2, 13, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: threshold,
		ResetTimeout:     resetTimeout,
	})
	cb.nowFunc = func() time.Time { return now }
	return cb, &now
}

func failCall(ctx context.Context) error { return eris.New("boom") }
func okCall(ctx context.Context) error   { return nil }

func TestCircuitOpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.Error(t, cb.Execute(ctx, failCall))
	}
	assert.Equal(t, CircuitOpen, cb.State())

	err := cb.Execute(ctx, okCall)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitSuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failCall))
	require.Error(t, cb.Execute(ctx, failCall))
	require.NoError(t, cb.Execute(ctx, okCall))
	require.Error(t, cb.Execute(ctx, failCall))
	require.Error(t, cb.Execute(ctx, failCall))

	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitHalfOpenProbeCloses(t *testing.T) {
	cb, now := newTestBreaker(2, time.Minute)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failCall))
	require.Error(t, cb.Execute(ctx, failCall))
	require.ErrorIs(t, cb.Execute(ctx, okCall), ErrCircuitOpen)

	*now = now.Add(61 * time.Second)
	assert.Equal(t, CircuitHalfOpen, cb.State())

	require.NoError(t, cb.Execute(ctx, okCall))
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitHalfOpenProbeFailureReopens(t *testing.T) {
	cb, now := newTestBreaker(2, time.Minute)
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failCall))
	require.Error(t, cb.Execute(ctx, failCall))

	*now = now.Add(61 * time.Second)
	require.Error(t, cb.Execute(ctx, failCall))

	assert.Equal(t, CircuitOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, okCall), ErrCircuitOpen)
}

func TestCircuitShouldTripFilter(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     time.Minute,
		ShouldTrip:       IsTransient,
	})
	ctx := context.Background()

	// Permanent errors pass through without tripping the breaker.
	for i := 0; i < 5; i++ {
		require.Error(t, cb.Execute(ctx, failCall))
	}
	assert.Equal(t, CircuitClosed, cb.State())

	transient := func(ctx context.Context) error {
		return NewTransientError(eris.New("upstream 503"), 503)
	}
	require.Error(t, cb.Execute(ctx, transient))
	require.Error(t, cb.Execute(ctx, transient))
	assert.Equal(t, CircuitOpen, cb.State())
}

func TestCircuitStateChangeCallback(t *testing.T) {
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Minute,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	now := time.Date(2025, 11, 2, 13, 0, 0, 0, time.UTC)
	cb.nowFunc = func() time.Time { return now }
	ctx := context.Background()

	require.Error(t, cb.Execute(ctx, failCall))
	now = now.Add(2 * time.Minute)
	require.NoError(t, cb.Execute(ctx, okCall))

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitExecuteVal(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)
	ctx := context.Background()

	_, err := ExecuteVal(ctx, cb, func(ctx context.Context) (string, error) {
		return "", eris.New("boom")
	})
	require.Error(t, err)

	_, err = ExecuteVal(ctx, cb, func(ctx context.Context) (string, error) {
		return "ok", nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}
