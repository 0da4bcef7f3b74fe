package biz

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failOp(context.Context) error    { return errBoom }
func succeedOp(context.Context) error { return nil }

func newTestBreaker(t *testing.T, cfg BreakerConfig, clock *fakeClock, opts ...BreakerOption) *Breaker {
	t.Helper()
	opts = append(opts, WithClock(clock.Now))
	b, err := NewBreaker("social-platform-a", cfg, opts...)
	require.NoError(t, err)
	return b
}

func TestNewBreaker_RejectsNonPositiveConfig(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(*BreakerConfig)
		field string
	}{
		{"failure threshold", func(c *BreakerConfig) { c.FailureThreshold = 0 }, "failure_threshold"},
		{"failure window", func(c *BreakerConfig) { c.FailureWindow = -time.Second }, "failure_window"},
		{"cooldown", func(c *BreakerConfig) { c.CooldownPeriod = 0 }, "cooldown_period"},
		{"success threshold", func(c *BreakerConfig) { c.SuccessThreshold = -1 }, "success_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultBreakerConfig()
			tt.mut(&cfg)

			b, err := NewBreaker("dep", cfg)
			assert.Nil(t, b)
			var cerr *ConfigurationError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestBreaker_OpensAfterThresholdWithinWindow(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 1, 7, 16, 0, 0, 0, time.UTC))
	cfg := BreakerConfig{FailureThreshold: 3, FailureWindow: 60 * time.Second, CooldownPeriod: 30 * time.Second, SuccessThreshold: 2}
	b := newTestBreaker(t, cfg, clock)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := b.Execute(ctx, failOp)
		var ext *ExternalCallError
		require.ErrorAs(t, err, &ext)
		assert.ErrorIs(t, err, errBoom)
		assert.Equal(t, StateClosed, b.State())
		clock.Advance(time.Second)
	}

	_ = b.Execute(ctx, failOp)
	assert.Equal(t, StateOpen, b.State())

	// success right after opening does not close the circuit
	err := b.Execute(ctx, succeedOp)
	var open *CircuitOpenError
	require.ErrorAs(t, err, &open)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_FailuresOutsideWindowAreNotCounted(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 1, 7, 16, 0, 0, 0, time.UTC))
	cfg := BreakerConfig{FailureThreshold: 3, FailureWindow: 60 * time.Second, CooldownPeriod: 30 * time.Second, SuccessThreshold: 2}
	b := newTestBreaker(t, cfg, clock)
	ctx := context.Background()

	_ = b.Execute(ctx, failOp)
	_ = b.Execute(ctx, failOp)
	clock.Advance(61 * time.Second)
	_ = b.Execute(ctx, failOp)

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 1, b.Stats().Failures)
}

func TestBreaker_SuccessWhileClosedDoesNotResetWindow(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 1, 7, 16, 0, 0, 0, time.UTC))
	cfg := DefaultBreakerConfig()
	b := newTestBreaker(t, cfg, clock)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_ = b.Execute(ctx, failOp)
	}
	require.NoError(t, b.Execute(ctx, succeedOp))
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 4, b.Stats().Failures)

	_ = b.Execute(ctx, failOp)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_OpenRejectsWithoutInvokingOperation(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 1, 7, 16, 0, 0, 0, time.UTC))
	cfg := BreakerConfig{FailureThreshold: 1, FailureWindow: time.Minute, CooldownPeriod: 30 * time.Second, SuccessThreshold: 1}
	b := newTestBreaker(t, cfg, clock)
	ctx := context.Background()

	_ = b.Execute(ctx, failOp)
	require.Equal(t, StateOpen, b.State())

	var calls int32
	for i := 0; i < 5; i++ {
		clock.Advance(5 * time.Second)
		err := b.Execute(ctx, func(context.Context) error {
			atomic.AddInt32(&calls, 1)
			return nil
		})
		var open *CircuitOpenError
		require.ErrorAs(t, err, &open)
		assert.Equal(t, "social-platform-a", open.Dependency)
		assert.Equal(t, 30*time.Second-time.Duration(i+1)*5*time.Second, open.RetryAfter)
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestBreaker_HalfOpenRecovery(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 1, 7, 16, 0, 0, 0, time.UTC))
	cfg := BreakerConfig{FailureThreshold: 1, FailureWindow: time.Minute, CooldownPeriod: 30 * time.Second, SuccessThreshold: 2}
	b := newTestBreaker(t, cfg, clock)
	ctx := context.Background()

	_ = b.Execute(ctx, failOp)
	clock.Advance(30 * time.Second)

	var calls int
	require.NoError(t, b.Execute(ctx, func(context.Context) error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
	assert.Equal(t, StateHalfOpen, b.State())
	assert.Equal(t, 1, b.Stats().ConsecutiveSuccesses)

	require.NoError(t, b.Execute(ctx, succeedOp))
	assert.Equal(t, StateClosed, b.State())

	stats := b.Stats()
	assert.Zero(t, stats.Failures)
	assert.Zero(t, stats.ConsecutiveSuccesses)
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 1, 7, 16, 0, 0, 0, time.UTC))
	cfg := BreakerConfig{FailureThreshold: 1, FailureWindow: time.Minute, CooldownPeriod: 30 * time.Second, SuccessThreshold: 3}
	b := newTestBreaker(t, cfg, clock)
	ctx := context.Background()

	_ = b.Execute(ctx, failOp)
	firstOpened := *b.Stats().LastOpenedAt

	clock.Advance(31 * time.Second)
	require.NoError(t, b.Execute(ctx, succeedOp))
	require.NoError(t, b.Execute(ctx, succeedOp))
	require.Equal(t, 2, b.Stats().ConsecutiveSuccesses)

	clock.Advance(time.Second)
	_ = b.Execute(ctx, failOp)

	stats := b.Stats()
	assert.Equal(t, StateOpen, stats.State)
	assert.Zero(t, stats.ConsecutiveSuccesses)
	require.NotNil(t, stats.LastOpenedAt)
	assert.True(t, stats.LastOpenedAt.After(firstOpened))
	assert.Equal(t, clock.Now(), *stats.LastOpenedAt)
	assert.Equal(t, 30*time.Second, stats.RetryAfter)
	assert.Equal(t, "boom", stats.LastError)
}

func TestBreaker_ConcurrentFailuresAreAllCounted(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 1, 7, 16, 0, 0, 0, time.UTC))
	cfg := BreakerConfig{FailureThreshold: 50, FailureWindow: time.Minute, CooldownPeriod: 30 * time.Second, SuccessThreshold: 2}
	b := newTestBreaker(t, cfg, clock)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 49; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = b.Execute(ctx, failOp)
		}()
	}
	wg.Wait()

	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, 49, b.Stats().Failures)

	_ = b.Execute(ctx, failOp)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreaker_ListenerSeesEveryTransition(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 1, 7, 16, 0, 0, 0, time.UTC))
	cfg := BreakerConfig{FailureThreshold: 2, FailureWindow: time.Minute, CooldownPeriod: 10 * time.Second, SuccessThreshold: 1}

	var changes []StateChange
	var b *Breaker
	b = newTestBreaker(t, cfg, clock, WithStateChangeListener(func(c StateChange) {
		// calling back into the breaker must not deadlock
		_ = b.State()
		changes = append(changes, c)
	}))
	ctx := context.Background()

	_ = b.Execute(ctx, failOp)
	_ = b.Execute(ctx, failOp)
	clock.Advance(10 * time.Second)
	_ = b.Execute(ctx, succeedOp)

	require.Len(t, changes, 3)
	assert.Equal(t, StateClosed, changes[0].From)
	assert.Equal(t, StateOpen, changes[0].To)
	assert.Equal(t, 2, changes[0].Failures)
	assert.ErrorIs(t, changes[0].LastError, errBoom)
	assert.Equal(t, StateHalfOpen, changes[1].To)
	assert.Equal(t, StateClosed, changes[2].To)
}

func TestBreaker_Reset(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 1, 7, 16, 0, 0, 0, time.UTC))
	cfg := BreakerConfig{FailureThreshold: 1, FailureWindow: time.Minute, CooldownPeriod: time.Hour, SuccessThreshold: 1}
	b := newTestBreaker(t, cfg, clock)
	ctx := context.Background()

	_ = b.Execute(ctx, failOp)
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	stats := b.Stats()
	assert.Equal(t, StateClosed, stats.State)
	assert.Zero(t, stats.Failures)
	assert.Nil(t, stats.LastOpenedAt)
	assert.NoError(t, b.Execute(ctx, succeedOp))
}

func TestBreaker_StatsDoesNotPrune(t *testing.T) {
	clock := newFakeClock(time.Date(2025, 1, 7, 16, 0, 0, 0, time.UTC))
	cfg := BreakerConfig{FailureThreshold: 5, FailureWindow: time.Minute, CooldownPeriod: time.Minute, SuccessThreshold: 1}
	b := newTestBreaker(t, cfg, clock)

	_ = b.Execute(context.Background(), failOp)
	clock.Advance(2 * time.Minute)

	assert.Zero(t, b.Stats().Failures)
	b.mu.Lock()
	assert.Len(t, b.st.failures, 1)
	b.mu.Unlock()
}

func TestCall_ReturnsValue(t *testing.T) {
	b, err := NewBreaker("content-generation-service", DefaultBreakerConfig())
	require.NoError(t, err)

	got, err := Call(context.Background(), b, func(context.Context) (string, error) {
		return "post-42", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "post-42", got)

	got, err = Call(context.Background(), b, func(context.Context) (string, error) {
		return "ignored", errBoom
	})
	assert.Empty(t, got)
	assert.ErrorIs(t, err, errBoom)
}

func TestBreaker_TimeoutCountsAsFailure(t *testing.T) {
	b, err := NewBreaker("slow", BreakerConfig{FailureThreshold: 1, FailureWindow: time.Minute, CooldownPeriod: time.Minute, SuccessThreshold: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	err = b.Execute(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateOpen, b.State())
}
