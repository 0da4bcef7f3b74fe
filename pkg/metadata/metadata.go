// Package metadata provides structured parsing and validation for job run metadata JSON.
// Run metadata is stored with every execution ledger record and describes how the run was triggered.
package metadata

import (
	"encoding/json"
	"fmt"
	"time"
)

// Trigger sources of a job run.
const (
	TriggerCron   = "cron"
	TriggerManual = "manual"
)

// RunMetadata defines the standard structure for execution metadata JSON.
type RunMetadata struct {
	Trigger     string     `json:"trigger,omitempty"`      // cron or manual
	Forced      bool       `json:"forced,omitempty"`       // gate was bypassed
	Operator    string     `json:"operator,omitempty"`     // who triggered a manual run
	Host        string     `json:"host,omitempty"`         // instance that ran the job
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"` // schedule occurrence this run serves
	LockHeld    bool       `json:"lock_held,omitempty"`    // run-lock acquired
	Tags        []string   `json:"tags,omitempty"`
	Notes       string     `json:"notes,omitempty"` // max 500 chars
}

// Parse parses JSON string into RunMetadata struct.
// Returns error if JSON is invalid; empty string returns empty metadata.
func Parse(jsonStr string) (*RunMetadata, error) {
	if jsonStr == "" {
		return &RunMetadata{}, nil
	}

	var meta RunMetadata
	if err := json.Unmarshal([]byte(jsonStr), &meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata JSON: %w", err)
	}

	return &meta, nil
}

// String serializes RunMetadata to JSON string.
// Returns empty string if metadata is empty (all zero values).
func (m *RunMetadata) String() string {
	if m == nil || m.IsEmpty() {
		return ""
	}

	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}

	return string(data)
}

// IsEmpty checks if metadata has any non-zero values.
func (m *RunMetadata) IsEmpty() bool {
	return m.Trigger == "" &&
		!m.Forced &&
		m.Operator == "" &&
		m.Host == "" &&
		m.ScheduledAt == nil &&
		!m.LockHeld &&
		len(m.Tags) == 0 &&
		m.Notes == ""
}

// Validate validates metadata fields and returns error if invalid.
// Validation rules:
// - trigger: cron or manual if provided
// - operator: required for manual runs
// - tags: max 10 tags, each tag max 50 characters
// - notes: max 500 characters
func (m *RunMetadata) Validate() error {
	switch m.Trigger {
	case "", TriggerCron:
	case TriggerManual:
		if m.Operator == "" {
			return fmt.Errorf("operator is required for manual runs")
		}
	default:
		return fmt.Errorf("unsupported trigger: %s (supported: cron, manual)", m.Trigger)
	}

	if len(m.Tags) > 10 {
		return fmt.Errorf("too many tags: max 10 allowed, got %d", len(m.Tags))
	}
	for i, tag := range m.Tags {
		if len(tag) > 50 {
			return fmt.Errorf("tag[%d] too long: max 50 characters, got %d", i, len(tag))
		}
		if tag == "" {
			return fmt.Errorf("tag[%d] is empty", i)
		}
	}

	if len(m.Notes) > 500 {
		return fmt.Errorf("notes too long: max 500 characters, got %d", len(m.Notes))
	}

	return nil
}
