package biz

import "time"

// Metrics receives orchestration measurements.
type Metrics interface {
	BreakerStateChanged(dependency string, from, to string)
	ContentTransition(from, to string)
	JobExecution(jobName, status string, duration time.Duration)
	JobSkipped(jobName, reason string)
	PublishOutcome(platform, outcome string)
	SilentFailure(jobName string)
}
