package data

import (
	"context"

	"PostLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// NoopNotifier only logs events; outbound alert delivery is not wired yet.
type NoopNotifier struct {
	logger *log.Helper
}

// NewNoopNotifier creates a new noop notifier
func NewNoopNotifier(logger log.Logger) *NoopNotifier {
	return &NoopNotifier{
		logger: log.NewHelper(logger),
	}
}

// NotifyCircuitStateChanged logs a breaker transition
func (s *NoopNotifier) NotifyCircuitStateChanged(ctx context.Context, event *model.CircuitStateChangedEvent) error {
	s.logger.WithContext(ctx).Infow("msg", "circuit state changed (notifier disabled)",
		"dependency", event.Dependency,
		"from", event.From,
		"to", event.To,
		"failures", event.Failures,
		"at", event.At)
	return nil
}

// NotifySilentFailure logs a missed scheduled run
func (s *NoopNotifier) NotifySilentFailure(ctx context.Context, event *model.SilentFailureEvent) error {
	s.logger.WithContext(ctx).Infow("msg", "silent failure (notifier disabled)",
		"job", event.JobName,
		"expected_at", event.ExpectedAt,
		"detected_at", event.DetectedAt)
	return nil
}
