package biz

import (
	"context"

	"PostLane/internal/model"
)

// Notifier pushes operator-facing alerts.
type Notifier interface {
	// NotifyCircuitStateChanged sends a notification when a dependency breaker changes state
	NotifyCircuitStateChanged(ctx context.Context, event *model.CircuitStateChangedEvent) error

	// NotifySilentFailure sends a notification when a scheduled job never ran
	NotifySilentFailure(ctx context.Context, event *model.SilentFailureEvent) error
}
