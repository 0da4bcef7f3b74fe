package model

import "time"

// ExecutionStatus is the outcome of one job run.
type ExecutionStatus string

const (
	ExecutionRunning ExecutionStatus = "running"
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailure ExecutionStatus = "failure"
	ExecutionPartial ExecutionStatus = "partial"
)

// Final reports whether s is a valid completion status.
func (s ExecutionStatus) Final() bool {
	return s == ExecutionSuccess || s == ExecutionFailure || s == ExecutionPartial
}

// ExecutionRecord is the ledger entry of one scheduled-job run.
type ExecutionRecord struct {
	ID           string
	JobName      string
	Status       ExecutionStatus
	StartedAt    time.Time
	CompletedAt  *time.Time
	DurationMs   *int64
	Result       string // JSON
	ErrorMessage string
	Metadata     string // JSON
}

// ExecutionStats aggregates ledger records of one job over a trailing window.
type ExecutionStats struct {
	JobName       string
	Window        time.Duration
	Total         int64
	Success       int64
	Failure       int64
	Partial       int64
	Running       int64
	SuccessRate   float64
	AvgDurationMs float64
}

// SilentFailure is a job run that was expected by its schedule but never started.
type SilentFailure struct {
	JobName    string
	ExpectedAt time.Time
	DetectedAt time.Time
	Message    string
}
