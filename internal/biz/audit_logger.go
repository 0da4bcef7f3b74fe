package biz

import (
	"context"

	"PostLane/internal/model"
)

// AuditLogger records orchestration events durably. Implementations must not block the caller.
type AuditLogger interface {
	// LogCircuitStateChange logs a breaker transition
	LogCircuitStateChange(ctx context.Context, event *model.CircuitStateChangedEvent)

	// LogCircuitReset logs a manual breaker reset by an operator
	LogCircuitReset(ctx context.Context, dependency string, previous string, operator string)

	// LogContentTransition logs a content item status change
	LogContentTransition(ctx context.Context, itemID int64, from, to model.ContentStatus, actor string)

	// LogSilentFailure logs a missed job run reported by the detector
	LogSilentFailure(ctx context.Context, event *model.SilentFailureEvent)
}
