package model

import "time"

// CircuitStateChangedEvent is emitted when a dependency breaker moves between states.
type CircuitStateChangedEvent struct {
	Dependency string
	From       string
	To         string
	Failures   int
	LastError  string
	At         time.Time
}

// SilentFailureEvent is emitted the first time the detector reports a missed run.
type SilentFailureEvent struct {
	JobName    string
	ExpectedAt time.Time
	DetectedAt time.Time
	Message    string
}
