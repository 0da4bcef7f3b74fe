package biz

import (
	"context"
	"sync"
	"time"
)

// State is the circuit state of one dependency.
type State int

const (
	// StateClosed accepts calls and counts failures within the window.
	StateClosed State = iota
	// StateOpen rejects calls until the cooldown has elapsed.
	StateOpen
	// StateHalfOpen accepts probe calls; one failure re-opens.
	StateHalfOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// BreakerConfig tunes one breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of failures within FailureWindow that opens the circuit.
	FailureThreshold int
	// FailureWindow is how long a recorded failure counts towards the threshold.
	FailureWindow time.Duration
	// CooldownPeriod is how long the circuit stays open before probing.
	CooldownPeriod time.Duration
	// SuccessThreshold is the number of consecutive half-open successes that close the circuit.
	SuccessThreshold int
}

// DefaultBreakerConfig returns the default breaker tuning.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		FailureWindow:    60 * time.Second,
		CooldownPeriod:   30 * time.Second,
		SuccessThreshold: 2,
	}
}

// Validate rejects non-positive thresholds and durations.
func (c BreakerConfig) Validate() error {
	switch {
	case c.FailureThreshold <= 0:
		return &ConfigurationError{Field: "failure_threshold", Message: "must be positive"}
	case c.FailureWindow <= 0:
		return &ConfigurationError{Field: "failure_window", Message: "must be positive"}
	case c.CooldownPeriod <= 0:
		return &ConfigurationError{Field: "cooldown_period", Message: "must be positive"}
	case c.SuccessThreshold <= 0:
		return &ConfigurationError{Field: "success_threshold", Message: "must be positive"}
	}
	return nil
}

// StateChange describes one transition of a breaker.
type StateChange struct {
	Dependency string
	From       State
	To         State
	Failures   int
	LastError  error
	At         time.Time
}

// BreakerStats is a read-only snapshot of a breaker.
type BreakerStats struct {
	Name                 string
	State                State
	Failures             int
	ConsecutiveSuccesses int
	LastOpenedAt         *time.Time
	LastError            string
	RetryAfter           time.Duration
	Config               BreakerConfig
}

type failureRecord struct {
	at  time.Time
	err error
}

// breakerState is the value the transition functions operate on.
// Methods never mutate the receiver; they return the next state.
type breakerState struct {
	state                State
	failures             []failureRecord
	consecutiveSuccesses int
	lastOpenedAt         time.Time
}

// transition is the side effect produced by a state change.
type transition struct {
	from, to State
}

func (s breakerState) pruned(now time.Time, window time.Duration) []failureRecord {
	cutoff := now.Add(-window)
	i := 0
	for i < len(s.failures) && !s.failures[i].at.After(cutoff) {
		i++
	}
	if i == 0 {
		return s.failures
	}
	out := make([]failureRecord, len(s.failures)-i)
	copy(out, s.failures[i:])
	return out
}

// admit decides whether a call may proceed at now.
func (s breakerState) admit(now time.Time, cfg BreakerConfig) (breakerState, *transition, time.Duration, bool) {
	if s.state != StateOpen {
		return s, nil, 0, true
	}
	elapsed := now.Sub(s.lastOpenedAt)
	if elapsed < cfg.CooldownPeriod {
		return s, nil, cfg.CooldownPeriod - elapsed, false
	}
	next := s
	next.state = StateHalfOpen
	next.consecutiveSuccesses = 0
	return next, &transition{from: StateOpen, to: StateHalfOpen}, 0, true
}

func (s breakerState) onSuccess(now time.Time, cfg BreakerConfig) (breakerState, *transition) {
	next := s
	next.failures = s.pruned(now, cfg.FailureWindow)
	if s.state != StateHalfOpen {
		return next, nil
	}
	next.consecutiveSuccesses++
	if next.consecutiveSuccesses < cfg.SuccessThreshold {
		return next, nil
	}
	next.state = StateClosed
	next.failures = nil
	next.consecutiveSuccesses = 0
	return next, &transition{from: StateHalfOpen, to: StateClosed}
}

func (s breakerState) onFailure(now time.Time, cfg BreakerConfig, err error) (breakerState, *transition) {
	next := s
	next.failures = append(s.pruned(now, cfg.FailureWindow), failureRecord{at: now, err: err})
	next.consecutiveSuccesses = 0
	switch s.state {
	case StateHalfOpen:
		next.state = StateOpen
		next.lastOpenedAt = now
		return next, &transition{from: StateHalfOpen, to: StateOpen}
	case StateClosed:
		if len(next.failures) >= cfg.FailureThreshold {
			next.state = StateOpen
			next.lastOpenedAt = now
			return next, &transition{from: StateClosed, to: StateOpen}
		}
	}
	// a late failure from a call admitted before the circuit opened keeps it open
	return next, nil
}

// BreakerOption customizes a Breaker.
type BreakerOption func(*Breaker)

// WithStateChangeListener registers a callback invoked after every transition, outside the lock.
func WithStateChangeListener(fn func(StateChange)) BreakerOption {
	return func(b *Breaker) {
		b.listeners = append(b.listeners, fn)
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) BreakerOption {
	return func(b *Breaker) {
		b.now = now
	}
}

// Breaker isolates callers from a failing dependency.
type Breaker struct {
	name      string
	cfg       BreakerConfig
	now       func() time.Time
	listeners []func(StateChange)

	mu sync.Mutex
	st breakerState
}

// NewBreaker creates a closed breaker for the named dependency.
func NewBreaker(name string, cfg BreakerConfig, opts ...BreakerOption) (*Breaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	b := &Breaker{
		name: name,
		cfg:  cfg,
		now:  time.Now,
		st:   breakerState{state: StateClosed},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Name returns the dependency name.
func (b *Breaker) Name() string {
	return b.name
}

// Execute runs op unless the circuit is open. A failure of op is recorded and
// returned as *ExternalCallError; an open circuit returns *CircuitOpenError.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := b.before(); err != nil {
		return err
	}

	err := op(ctx)
	b.after(err)
	if err != nil {
		return &ExternalCallError{Dependency: b.name, Err: err}
	}
	return nil
}

// Call runs op through b and returns its value.
func Call[T any](ctx context.Context, b *Breaker, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := b.Execute(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}

func (b *Breaker) before() error {
	b.mu.Lock()
	now := b.now()
	next, tr, retryAfter, ok := b.st.admit(now, b.cfg)
	b.st = next
	b.mu.Unlock()

	b.notify(tr, next, now)
	if !ok {
		return &CircuitOpenError{Dependency: b.name, RetryAfter: retryAfter}
	}
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	now := b.now()
	var (
		next breakerState
		tr   *transition
	)
	if err != nil {
		next, tr = b.st.onFailure(now, b.cfg, err)
	} else {
		next, tr = b.st.onSuccess(now, b.cfg)
	}
	b.st = next
	b.mu.Unlock()

	b.notify(tr, next, now)
}

func (b *Breaker) notify(tr *transition, st breakerState, at time.Time) {
	if tr == nil || len(b.listeners) == 0 {
		return
	}
	change := StateChange{
		Dependency: b.name,
		From:       tr.from,
		To:         tr.to,
		Failures:   len(st.failures),
		At:         at,
	}
	if n := len(st.failures); n > 0 {
		change.LastError = st.failures[n-1].err
	}
	for _, fn := range b.listeners {
		fn(change)
	}
}

// State returns the current state without advancing an elapsed cooldown.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.st.state
}

// Stats returns a snapshot; failures are counted within the window without pruning.
func (b *Breaker) Stats() BreakerStats {
	b.mu.Lock()
	st := b.st
	b.mu.Unlock()

	now := b.now()
	stats := BreakerStats{
		Name:                 b.name,
		State:                st.state,
		Failures:             len(st.pruned(now, b.cfg.FailureWindow)),
		ConsecutiveSuccesses: st.consecutiveSuccesses,
		Config:               b.cfg,
	}
	if !st.lastOpenedAt.IsZero() {
		at := st.lastOpenedAt
		stats.LastOpenedAt = &at
	}
	if n := len(st.failures); n > 0 && st.failures[n-1].err != nil {
		stats.LastError = st.failures[n-1].err.Error()
	}
	if st.state == StateOpen {
		if remaining := b.cfg.CooldownPeriod - now.Sub(st.lastOpenedAt); remaining > 0 {
			stats.RetryAfter = remaining
		}
	}
	return stats
}

// Reset forces the breaker closed and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	prev := b.st.state
	b.st = breakerState{state: StateClosed}
	b.mu.Unlock()

	if prev != StateClosed {
		b.notify(&transition{from: prev, to: StateClosed}, breakerState{}, b.now())
	}
}
