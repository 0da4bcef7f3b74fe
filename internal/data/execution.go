package data

import (
	"context"
	"errors"
	"time"

	"PostLane/internal/model"
	pkgerrors "PostLane/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

const (
	// orphanListLimit caps the orphaned-run report.
	orphanListLimit = 500

	completeAttempts = 2
)

// JobExecution is the GORM model for job_executions table.
type JobExecution struct {
	ID           string     `gorm:"primaryKey;column:id;type:char(36)"`
	JobName      string     `gorm:"column:job_name;size:64;not null;index:idx_job_started,priority:1"`
	Status       string     `gorm:"column:status;type:enum('running','success','failure','partial');not null;index:idx_status_started,priority:1"`
	StartedAt    time.Time  `gorm:"column:started_at;not null;index:idx_job_started,priority:2;index:idx_status_started,priority:2"`
	CompletedAt  *time.Time `gorm:"column:completed_at"`
	DurationMs   *int64     `gorm:"column:duration_ms"`
	Result       *string    `gorm:"column:result;type:json"` // JSON string (pointer for NULL support)
	ErrorMessage *string    `gorm:"column:error_message;type:text"`
	Metadata     *string    `gorm:"column:metadata;type:json"` // JSON string (pointer for NULL support)
}

// TableName specifies the table name for GORM.
func (JobExecution) TableName() string {
	return "job_executions"
}

func (e *JobExecution) toModel() *model.ExecutionRecord {
	rec := &model.ExecutionRecord{
		ID:          e.ID,
		JobName:     e.JobName,
		Status:      model.ExecutionStatus(e.Status),
		StartedAt:   e.StartedAt.UTC(),
		CompletedAt: utcPtr(e.CompletedAt),
		DurationMs:  e.DurationMs,
	}
	if e.Result != nil {
		rec.Result = *e.Result
	}
	if e.ErrorMessage != nil {
		rec.ErrorMessage = *e.ErrorMessage
	}
	if e.Metadata != nil {
		rec.Metadata = *e.Metadata
	}
	return rec
}

// nullable maps "" to NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// ExecutionRepo implements biz.ExecutionRepo interface.
type ExecutionRepo struct {
	db     *gorm.DB
	logger *log.Helper
}

// NewExecutionRepo creates a new execution ledger repository.
func NewExecutionRepo(db *gorm.DB, logger log.Logger) *ExecutionRepo {
	return &ExecutionRepo{
		db:     db,
		logger: log.NewHelper(logger),
	}
}

// Create inserts a running record.
func (r *ExecutionRepo) Create(ctx context.Context, record *model.ExecutionRecord) error {
	row := &JobExecution{
		ID:        record.ID,
		JobName:   record.JobName,
		Status:    string(record.Status),
		StartedAt: record.StartedAt.UTC(),
		Metadata:  nullable(record.Metadata),
	}
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return pkgerrors.ClassifyDBError(err)
	}
	return nil
}

// Get returns a record by id.
func (r *ExecutionRepo) Get(ctx context.Context, id string) (*model.ExecutionRecord, error) {
	var row JobExecution
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, pkgerrors.ClassifyDBError(err)
	}
	return row.toModel(), nil
}

// Complete seals a running record. The status guard makes completion happen at most once.
// A deadlock or dropped connection is retried once.
func (r *ExecutionRepo) Complete(ctx context.Context, id string, status model.ExecutionStatus, completedAt time.Time, durationMs int64, result, errMsg string) (bool, error) {
	updates := map[string]interface{}{
		"status":        string(status),
		"completed_at":  completedAt.UTC(),
		"duration_ms":   durationMs,
		"result":        nullable(result),
		"error_message": nullable(errMsg),
	}

	var lastErr error
	for attempt := 1; attempt <= completeAttempts; attempt++ {
		res := r.db.WithContext(ctx).
			Model(&JobExecution{}).
			Where("id = ? AND status = ?", id, string(model.ExecutionRunning)).
			Updates(updates)
		if res.Error == nil {
			return res.RowsAffected > 0, nil
		}
		lastErr = res.Error
		if !pkgerrors.IsTransient(lastErr) {
			break
		}
		r.logger.WithContext(ctx).Warnw("msg", "transient error completing execution",
			"id", id,
			"attempt", attempt,
			"error", lastErr)
	}
	return false, pkgerrors.ClassifyDBError(lastErr)
}

// ListRecent returns the newest records, optionally filtered by job.
func (r *ExecutionRepo) ListRecent(ctx context.Context, jobName string, limit int) ([]*model.ExecutionRecord, error) {
	query := r.db.WithContext(ctx).Model(&JobExecution{})
	if jobName != "" {
		query = query.Where("job_name = ?", jobName)
	}

	var rows []JobExecution
	if err := query.Order("started_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, pkgerrors.ClassifyDBError(err)
	}
	return toRecords(rows), nil
}

// statusCount is one row of the stats aggregation.
type statusCount struct {
	Status        string
	Total         int64
	DurationSum   int64
	DurationCount int64
}

// Stats counts records per status started at or after since.
func (r *ExecutionRepo) Stats(ctx context.Context, jobName string, since time.Time) (*model.ExecutionStats, error) {
	var rows []statusCount
	err := r.db.WithContext(ctx).
		Model(&JobExecution{}).
		Select("status, COUNT(*) AS total, COALESCE(SUM(duration_ms), 0) AS duration_sum, COUNT(duration_ms) AS duration_count").
		Where("job_name = ? AND started_at >= ?", jobName, since.UTC()).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.ClassifyDBError(err)
	}

	stats := &model.ExecutionStats{}
	var durationSum, durationCount int64
	for _, row := range rows {
		stats.Total += row.Total
		durationSum += row.DurationSum
		durationCount += row.DurationCount
		switch model.ExecutionStatus(row.Status) {
		case model.ExecutionSuccess:
			stats.Success = row.Total
		case model.ExecutionFailure:
			stats.Failure = row.Total
		case model.ExecutionPartial:
			stats.Partial = row.Total
		case model.ExecutionRunning:
			stats.Running = row.Total
		}
	}
	if durationCount > 0 {
		stats.AvgDurationMs = float64(durationSum) / float64(durationCount)
	}
	return stats, nil
}

// HasRunSince reports whether any run of jobName started at or after since.
func (r *ExecutionRepo) HasRunSince(ctx context.Context, jobName string, since time.Time) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&JobExecution{}).
		Where("job_name = ? AND started_at >= ?", jobName, since.UTC()).
		Limit(1).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.ClassifyDBError(err)
	}
	return count > 0, nil
}

// ListRunningBefore returns running records started before the cutoff, oldest first.
func (r *ExecutionRepo) ListRunningBefore(ctx context.Context, before time.Time) ([]*model.ExecutionRecord, error) {
	var rows []JobExecution
	err := r.db.WithContext(ctx).
		Where("status = ? AND started_at < ?", string(model.ExecutionRunning), before.UTC()).
		Order("started_at ASC").
		Limit(orphanListLimit).
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.ClassifyDBError(err)
	}
	return toRecords(rows), nil
}

func toRecords(rows []JobExecution) []*model.ExecutionRecord {
	records := make([]*model.ExecutionRecord, 0, len(rows))
	for i := range rows {
		records = append(records, rows[i].toModel())
	}
	return records
}
