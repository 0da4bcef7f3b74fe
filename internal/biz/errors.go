package biz

import (
	"errors"
	"fmt"
	"time"

	"PostLane/internal/model"
)

var (
	// ErrContentNotFound is returned when a content item does not exist.
	ErrContentNotFound = errors.New("content item not found")
	// ErrScheduledInPast is returned when an approval targets an instant before now.
	ErrScheduledInPast = errors.New("scheduled time is in the past")
	// ErrUnknownDependency is returned for a breaker name that was never configured.
	ErrUnknownDependency = errors.New("unknown dependency")
	// ErrUnknownJob is returned for a job name with no registered runner.
	ErrUnknownJob = errors.New("unknown job")
)

// CircuitOpenError is returned without calling the dependency while its circuit is open.
type CircuitOpenError struct {
	Dependency string
	RetryAfter time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit open for %s, retry after %s", e.Dependency, e.RetryAfter)
}

// InvalidTransitionError is returned when a content item cannot move to the requested status.
type InvalidTransitionError struct {
	ItemID int64
	From   model.ContentStatus
	To     model.ContentStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("content item %d cannot move from %s to %s", e.ItemID, e.From, e.To)
}

// ConfigurationError reports an invalid breaker, schedule or detector setting.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %s", e.Field, e.Message)
}

// ExternalCallError wraps a failure returned by a breaker-guarded dependency.
type ExternalCallError struct {
	Dependency string
	Err        error
}

func (e *ExternalCallError) Error() string {
	return fmt.Sprintf("call to %s failed: %v", e.Dependency, e.Err)
}

func (e *ExternalCallError) Unwrap() error {
	return e.Err
}

// IsCircuitOpen reports whether err carries a CircuitOpenError.
func IsCircuitOpen(err error) bool {
	var target *CircuitOpenError
	return errors.As(err, &target)
}

// asInvalidTransition converts a model transition error into the biz error type.
func asInvalidTransition(err error) error {
	var terr *model.TransitionError
	if errors.As(err, &terr) {
		return &InvalidTransitionError{ItemID: terr.ItemID, From: terr.From, To: terr.To}
	}
	return err
}
