package data

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"PostLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

const auditBufferSize = 1000

// AuditLog is the GORM model for orchestration_audit_logs table
type AuditLog struct {
	ID        int64     `gorm:"primaryKey;column:id"`
	EventType string    `gorm:"column:event_type;type:varchar(50);not null;index"`
	Subject   string    `gorm:"column:subject;type:varchar(128);not null;index"` // dependency, job name or content id
	Details   string    `gorm:"column:details;type:json"`                        // JSON string
	Operator  string    `gorm:"column:operator;type:varchar(128);default:'system';not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName specifies the table name for GORM
func (AuditLog) TableName() string {
	return "orchestration_audit_logs"
}

// AuditLoggerImpl implements biz.AuditLogger interface.
// Events are queued and written by a single background goroutine; a full queue drops events.
type AuditLoggerImpl struct {
	db      *gorm.DB
	logChan chan *AuditLog
	done    chan struct{}
	once    sync.Once
	logger  *log.Helper
}

// NewAuditLogger creates a new audit logger with async channel.
// The cleanup drains queued events before returning.
func NewAuditLogger(db *gorm.DB, logger log.Logger) (*AuditLoggerImpl, func()) {
	al := &AuditLoggerImpl{
		db:      db,
		logChan: make(chan *AuditLog, auditBufferSize),
		done:    make(chan struct{}),
		logger:  log.NewHelper(logger),
	}

	// Start background goroutine for async logging
	go al.start()

	return al, al.Close
}

// Close stops accepting events and waits for the queue to drain.
func (a *AuditLoggerImpl) Close() {
	a.once.Do(func() {
		close(a.logChan)
		<-a.done
	})
}

// start processes audit log events from channel
func (a *AuditLoggerImpl) start() {
	defer close(a.done)
	for event := range a.logChan {
		ctx := context.Background()
		if err := a.db.WithContext(ctx).Create(event).Error; err != nil {
			a.logger.Errorw("msg", "failed to write audit log",
				"event_type", event.EventType,
				"subject", event.Subject,
				"error", err)
		} else {
			a.logger.Debugw("msg", "audit log written",
				"event_type", event.EventType,
				"subject", event.Subject)
		}
	}
}

// LogCircuitStateChange logs a breaker state transition
func (a *AuditLoggerImpl) LogCircuitStateChange(_ context.Context, event *model.CircuitStateChangedEvent) {
	a.enqueue(AuditEventCircuitStateChanged, event.Dependency, "system", map[string]interface{}{
		"from":       event.From,
		"to":         event.To,
		"failures":   event.Failures,
		"last_error": event.LastError,
		"at":         event.At.UTC().Format(time.RFC3339),
	})
}

// LogCircuitReset logs a manual breaker reset
func (a *AuditLoggerImpl) LogCircuitReset(_ context.Context, dependency, previous, operator string) {
	a.enqueue(AuditEventCircuitReset, dependency, operator, map[string]interface{}{
		"previous_state": previous,
		"new_state":      "closed",
	})
}

// LogContentTransition logs a content lifecycle change
func (a *AuditLoggerImpl) LogContentTransition(_ context.Context, itemID int64, from, to model.ContentStatus, actor string) {
	a.enqueue(AuditEventContentTransition, strconv.FormatInt(itemID, 10), actor, map[string]interface{}{
		"from": from,
		"to":   to,
	})
}

// LogSilentFailure logs a scheduled run that never started
func (a *AuditLoggerImpl) LogSilentFailure(_ context.Context, event *model.SilentFailureEvent) {
	a.enqueue(AuditEventSilentFailure, event.JobName, "system", map[string]interface{}{
		"expected_at": event.ExpectedAt.UTC().Format(time.RFC3339),
		"detected_at": event.DetectedAt.UTC().Format(time.RFC3339),
		"message":     event.Message,
	})
}

func (a *AuditLoggerImpl) enqueue(eventType AuditEventType, subject, operator string, details map[string]interface{}) {
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		a.logger.Errorw("msg", "failed to marshal audit log details", "error", err)
		return
	}
	if operator == "" {
		operator = "system"
	}

	event := &AuditLog{
		EventType: eventType.String(),
		Subject:   subject,
		Details:   string(detailsJSON),
		Operator:  operator,
	}

	defer func() {
		// Close 之后写入的事件直接丢弃
		if recover() != nil {
			a.logger.Warnw("msg", "audit logger closed, dropping event",
				"event_type", event.EventType,
				"subject", subject)
		}
	}()

	// Send to channel (non-blocking)
	select {
	case a.logChan <- event:
		// Successfully queued
	default:
		a.logger.Warnw("msg", "audit log channel full, dropping event",
			"event_type", event.EventType,
			"subject", subject)
	}
}
