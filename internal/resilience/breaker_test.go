package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

func fail() error    { return errBackend }
func succeed() error { return nil }

func newTestBreaker(t *testing.T, cfg Config) (*Breaker, *time.Time) {
	t.Helper()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	b := New(t.Name(), cfg, nil)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	b, _ := newTestBreaker(t, Config{MaxFailures: 3, ResetTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, b.Do(fail, nil), errBackend)
	}
	assert.Equal(t, Open, b.State())

	called := false
	err := b.Do(func() error { called = true; return nil }, nil)
	assert.ErrorIs(t, err, ErrOpen)
	assert.False(t, called)
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b, _ := newTestBreaker(t, Config{MaxFailures: 2, ResetTimeout: time.Minute})

	_ = b.Do(fail, nil)
	require.NoError(t, b.Do(succeed, nil))
	_ = b.Do(fail, nil)

	assert.Equal(t, Closed, b.State())
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b, now := newTestBreaker(t, Config{MaxFailures: 1, ResetTimeout: 10 * time.Second, HalfOpenMaxCalls: 1})

	_ = b.Do(fail, nil)
	require.Equal(t, Open, b.State())

	*now = now.Add(11 * time.Second)
	require.NoError(t, b.Do(succeed, nil))
	assert.Equal(t, Closed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b, now := newTestBreaker(t, Config{MaxFailures: 1, ResetTimeout: 10 * time.Second})

	_ = b.Do(fail, nil)
	*now = now.Add(11 * time.Second)

	assert.ErrorIs(t, b.Do(fail, nil), errBackend)
	assert.Equal(t, Open, b.State())
	assert.ErrorIs(t, b.Do(succeed, nil), ErrOpen)
}

func TestBreakerIgnoresUncountableErrors(t *testing.T) {
	b, _ := newTestBreaker(t, Config{MaxFailures: 1, ResetTimeout: time.Minute})
	notCounted := func(err error) bool { return false }

	assert.ErrorIs(t, b.Do(fail, notCounted), errBackend)
	assert.Equal(t, Closed, b.State())
}

func TestBreakerCancelledTrialKeepsHalfOpen(t *testing.T) {
	b, now := newTestBreaker(t, Config{MaxFailures: 1, ResetTimeout: 10 * time.Second, HalfOpenMaxCalls: 1})
	notCounted := func(err error) bool { return !errors.Is(err, context.Canceled) }

	_ = b.Do(fail, nil)
	*now = now.Add(11 * time.Second)

	err := b.Do(func() error { return context.Canceled }, notCounted)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, HalfOpen, b.State())

	// the slot was released, so another trial call gets through and decides
	require.NoError(t, b.Do(succeed, notCounted))
	assert.Equal(t, Closed, b.State())
}

func TestBreakerIgnoresLateSuccessAfterOpen(t *testing.T) {
	b, now := newTestBreaker(t, Config{MaxFailures: 1, ResetTimeout: 10 * time.Second, HalfOpenMaxCalls: 1})

	// a slow call admitted while closed finishes after the circuit opened
	err := b.Do(func() error {
		assert.ErrorIs(t, b.Do(fail, nil), errBackend)
		require.Equal(t, Open, b.State())
		*now = now.Add(11 * time.Second)
		return nil
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, Open, b.State())
}

func TestBreakerStaleSuccessDuringHalfOpen(t *testing.T) {
	b, now := newTestBreaker(t, Config{MaxFailures: 1, ResetTimeout: 10 * time.Second, HalfOpenMaxCalls: 1})

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- b.Do(func() error {
			close(started)
			<-release
			return nil
		}, nil)
	}()
	<-started

	_ = b.Do(fail, nil)
	require.Equal(t, Open, b.State())
	*now = now.Add(11 * time.Second)

	err := b.Do(func() error {
		require.Equal(t, HalfOpen, b.State())
		close(release)
		require.NoError(t, <-done)

		b.mu.Lock()
		state, inFlight := b.state, b.inFlightProbes
		b.mu.Unlock()
		assert.Equal(t, HalfOpen, state)
		assert.Equal(t, 1, inFlight)
		return errBackend
	}, nil)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, Open, b.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", Closed.String())
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "half-open", HalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
