// Package v1 defines the operator HTTP API of PostLane.
package v1

import "time"

// ContentItem is the operator view of a content item.
type ContentItem struct {
	Id             int64      `json:"id"`
	Kind           string     `json:"kind"`
	Platform       string     `json:"platform"`
	Title          string     `json:"title"`
	Body           string     `json:"body,omitempty"`
	Status         string     `json:"status"`
	ScheduledFor   *time.Time `json:"scheduled_for,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	ApprovedBy     string     `json:"approved_by,omitempty"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	PlatformPostId string     `json:"platform_post_id,omitempty"`
	RetryCount     int32      `json:"retry_count"`
	Version        int32      `json:"version"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type ListReadyContentRequest struct{}

type ListReadyContentReply struct {
	Items []*ContentItem `json:"items"`
	Count int            `json:"count"`
}

type GetContentRequest struct {
	Id int64 `json:"id" validate:"required,gt=0"`
}

type ContentReply struct {
	Item *ContentItem `json:"item"`
}

type SubmitContentRequest struct {
	Id       int64  `json:"id" validate:"required,gt=0"`
	Operator string `json:"operator" validate:"required,max=128"`
}

type ApproveContentRequest struct {
	Id           int64     `json:"id" validate:"required,gt=0"`
	ScheduledFor time.Time `json:"scheduled_for" validate:"required"`
	Operator     string    `json:"operator" validate:"required,max=128"`
}

type RejectContentRequest struct {
	Id       int64  `json:"id" validate:"required,gt=0"`
	Operator string `json:"operator" validate:"required,max=128"`
}

type DeleteContentRequest struct {
	Id       int64  `json:"id" validate:"required,gt=0"`
	Operator string `json:"operator" validate:"required,max=128"`
}

type DeleteContentReply struct {
	Deleted bool `json:"deleted"`
}

// Execution is one execution ledger record.
type Execution struct {
	Id           string     `json:"id"`
	JobName      string     `json:"job_name"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	DurationMs   *int64     `json:"duration_ms,omitempty"`
	Result       string     `json:"result,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Metadata     string     `json:"metadata,omitempty"`
}

type ListExecutionsRequest struct {
	Job   string `json:"job" validate:"omitempty,max=64"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=500"`
}

type ListExecutionsReply struct {
	Executions []*Execution `json:"executions"`
}

type GetJobStatsRequest struct {
	Name        string `json:"name" validate:"required,max=64"`
	WindowHours int    `json:"window_hours" validate:"omitempty,min=1,max=2160"`
}

type JobStats struct {
	JobName       string  `json:"job_name"`
	WindowHours   float64 `json:"window_hours"`
	Total         int64   `json:"total"`
	Success       int64   `json:"success"`
	Failure       int64   `json:"failure"`
	Partial       int64   `json:"partial"`
	Running       int64   `json:"running"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
}

type ListOrphanedRequest struct {
	OlderThanMinutes int `json:"older_than_minutes" validate:"omitempty,min=1"`
}

type RunJobRequest struct {
	Name     string `json:"name" validate:"required,max=64"`
	Force    bool   `json:"force"`
	Operator string `json:"operator" validate:"required,max=128"`
}

// JobRun is the summary of one triggered job.
type JobRun struct {
	JobName     string         `json:"job_name"`
	ExecutionId string         `json:"execution_id,omitempty"`
	Status      string         `json:"status,omitempty"`
	Skipped     bool           `json:"skipped"`
	Reason      string         `json:"reason,omitempty"`
	Counts      map[string]int `json:"counts,omitempty"`
	Error       string         `json:"error,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	DurationMs  int64          `json:"duration_ms"`
}

type ListSilentFailuresRequest struct{}

type SilentFailure struct {
	JobName    string    `json:"job_name"`
	ExpectedAt time.Time `json:"expected_at"`
	DetectedAt time.Time `json:"detected_at"`
	Message    string    `json:"message"`
}

type ListSilentFailuresReply struct {
	Failures []*SilentFailure `json:"failures"`
}

type ListBreakersRequest struct{}

// Breaker is the operator view of one circuit breaker.
type Breaker struct {
	Name                 string     `json:"name"`
	State                string     `json:"state"`
	Failures             int        `json:"failures"`
	ConsecutiveSuccesses int        `json:"consecutive_successes"`
	LastOpenedAt         *time.Time `json:"last_opened_at,omitempty"`
	LastError            string     `json:"last_error,omitempty"`
	RetryAfterSeconds    float64    `json:"retry_after_seconds"`
	FailureThreshold     int        `json:"failure_threshold"`
	FailureWindowSeconds float64    `json:"failure_window_seconds"`
	CooldownSeconds      float64    `json:"cooldown_seconds"`
	SuccessThreshold     int        `json:"success_threshold"`
}

type ListBreakersReply struct {
	Breakers []*Breaker `json:"breakers"`
}

type ResetBreakerRequest struct {
	Name     string `json:"name" validate:"required,max=128"`
	Operator string `json:"operator" validate:"required,max=128"`
}
