package biz

import (
	"context"
	"fmt"
	"sort"
	"time"

	"PostLane/internal/conf"
	"PostLane/internal/model"
	pkglog "PostLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
)

const notifyTimeout = 5 * time.Second

// BreakerRegistry holds one breaker per named dependency. It is built once at
// startup and never mutated afterwards.
type BreakerRegistry struct {
	breakers map[string]*Breaker
	audit    AuditLogger
	notifier Notifier
	metrics  Metrics
	logger   *pkglog.LogHelper
}

// NewBreakerRegistry builds a breaker for every configured dependency.
func NewBreakerRegistry(bc *conf.Bootstrap, audit AuditLogger, notifier Notifier, metrics Metrics, logger log.Logger) (*BreakerRegistry, error) {
	cfgs := make(map[string]BreakerConfig, len(bc.Breakers))
	for name, c := range bc.Breakers {
		if c == nil {
			cfgs[name] = DefaultBreakerConfig()
			continue
		}
		cfgs[name] = BreakerConfig{
			FailureThreshold: c.FailureThreshold,
			FailureWindow:    c.FailureWindow,
			CooldownPeriod:   c.CooldownPeriod,
			SuccessThreshold: c.SuccessThreshold,
		}
	}
	return newBreakerRegistry(cfgs, audit, notifier, metrics, logger)
}

func newBreakerRegistry(cfgs map[string]BreakerConfig, audit AuditLogger, notifier Notifier, metrics Metrics, logger log.Logger, opts ...BreakerOption) (*BreakerRegistry, error) {
	r := &BreakerRegistry{
		breakers: make(map[string]*Breaker, len(cfgs)),
		audit:    audit,
		notifier: notifier,
		metrics:  metrics,
		logger:   pkglog.NewLogHelper(logger),
	}

	for name, cfg := range cfgs {
		bopts := append([]BreakerOption{WithStateChangeListener(r.onStateChange)}, opts...)
		b, err := NewBreaker(name, cfg, bopts...)
		if err != nil {
			return nil, fmt.Errorf("breaker %s: %w", name, err)
		}
		r.breakers[name] = b
		r.metrics.BreakerStateChanged(name, "", StateClosed.String())
	}

	r.logger.Infow("msg", "circuit breakers initialized", "count", len(r.breakers))
	return r, nil
}

// Get returns the breaker guarding the named dependency.
func (r *BreakerRegistry) Get(name string) (*Breaker, error) {
	b, ok := r.breakers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDependency, name)
	}
	return b, nil
}

// Stats returns a snapshot of every breaker, sorted by name.
func (r *BreakerRegistry) Stats() []BreakerStats {
	out := make([]BreakerStats, 0, len(r.breakers))
	for _, b := range r.breakers {
		out = append(out, b.Stats())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Reset forces the named breaker closed on behalf of an operator.
func (r *BreakerRegistry) Reset(ctx context.Context, name, operator string) error {
	b, err := r.Get(name)
	if err != nil {
		return err
	}
	previous := b.State()
	b.Reset()

	r.logger.WithContext(ctx).Warnw("msg", "circuit breaker manually reset",
		"dependency", name,
		"previous_state", previous.String(),
		"operator", operator)
	r.audit.LogCircuitReset(ctx, name, previous.String(), operator)
	return nil
}

// onStateChange fans a transition out to logs, audit, metrics and the notifier.
func (r *BreakerRegistry) onStateChange(change StateChange) {
	event := &model.CircuitStateChangedEvent{
		Dependency: change.Dependency,
		From:       change.From.String(),
		To:         change.To.String(),
		Failures:   change.Failures,
		At:         change.At,
	}
	if change.LastError != nil {
		event.LastError = change.LastError.Error()
	}

	if change.To == StateOpen {
		r.logger.Breaker("circuit opened",
			"dependency", event.Dependency,
			"from", event.From,
			"to", event.To,
			"failures", event.Failures,
			"last_error", event.LastError)
	} else {
		r.logger.Breaker("circuit state changed",
			"dependency", event.Dependency,
			"from", event.From,
			"to", event.To)
	}

	r.metrics.BreakerStateChanged(event.Dependency, event.From, event.To)
	r.audit.LogCircuitStateChange(context.Background(), event)

	// the listener runs on the caller's path, so the notifier gets its own goroutine
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := r.notifier.NotifyCircuitStateChanged(ctx, event); err != nil {
			r.logger.Warnw("msg", "failed to notify circuit state change",
				"dependency", event.Dependency,
				"error", err)
		}
	}()
}
