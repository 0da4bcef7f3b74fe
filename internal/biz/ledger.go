package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PostLane/internal/conf"
	"PostLane/internal/data"
	"PostLane/internal/model"
	"PostLane/pkg/metadata"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
)

const (
	defaultListLimit       = 20
	maxListLimit           = 200
	defaultStatsWindow     = 30 * 24 * time.Hour
	defaultOrphanThreshold = 6 * time.Hour

	// timestampPrecision matches the DATETIME(3) columns of job_executions.
	timestampPrecision = time.Millisecond
)

// ExecutionRepo is the ledger store.
// Implemented by data.ExecutionRepo.
type ExecutionRepo interface {
	Create(ctx context.Context, record *model.ExecutionRecord) error
	Get(ctx context.Context, id string) (*model.ExecutionRecord, error)
	// Complete seals a running record; it reports false when no running row matched.
	Complete(ctx context.Context, id string, status model.ExecutionStatus, completedAt time.Time, durationMs int64, result, errMsg string) (bool, error)
	ListRecent(ctx context.Context, jobName string, limit int) ([]*model.ExecutionRecord, error)
	Stats(ctx context.Context, jobName string, since time.Time) (*model.ExecutionStats, error)
	HasRunSince(ctx context.Context, jobName string, since time.Time) (bool, error)
	ListRunningBefore(ctx context.Context, before time.Time) ([]*model.ExecutionRecord, error)
}

// ExecutionLedger records every job run. Writes are best-effort: storage
// failures are logged and never abort the job.
type ExecutionLedger struct {
	repo            ExecutionRepo
	logger          *log.Helper
	now             func() time.Time
	newID           func() string
	statsWindow     time.Duration
	orphanThreshold time.Duration
}

// NewExecutionLedger creates a new execution ledger.
func NewExecutionLedger(repo ExecutionRepo, bc *conf.Bootstrap, logger log.Logger) *ExecutionLedger {
	l := &ExecutionLedger{
		repo:            repo,
		logger:          log.NewHelper(logger),
		now:             time.Now,
		newID:           func() string { return uuid.NewString() },
		statsWindow:     defaultStatsWindow,
		orphanThreshold: defaultOrphanThreshold,
	}
	if bc != nil && bc.Jobs != nil && bc.Jobs.Ledger != nil {
		if bc.Jobs.Ledger.StatsWindow > 0 {
			l.statsWindow = bc.Jobs.Ledger.StatsWindow
		}
		if bc.Jobs.Ledger.OrphanThreshold > 0 {
			l.orphanThreshold = bc.Jobs.Ledger.OrphanThreshold
		}
	}
	return l
}

// StartExecution opens a running record and returns its id. The id is
// returned even when the write fails.
func (l *ExecutionLedger) StartExecution(ctx context.Context, jobName string, meta *metadata.RunMetadata) string {
	record := &model.ExecutionRecord{
		ID:        l.newID(),
		JobName:   jobName,
		Status:    model.ExecutionRunning,
		StartedAt: l.now().UTC().Truncate(timestampPrecision),
		Metadata:  meta.String(),
	}
	if err := l.repo.Create(ctx, record); err != nil {
		l.logger.WithContext(ctx).Errorw("msg", "failed to record execution start",
			"job", jobName,
			"execution_id", record.ID,
			"error", err)
		return record.ID
	}

	l.logger.WithContext(ctx).Debugw("msg", "execution started", "job", jobName, "execution_id", record.ID)
	return record.ID
}

// CompleteExecution seals a running record. Unknown or already completed ids are ignored.
func (l *ExecutionLedger) CompleteExecution(ctx context.Context, id string, status model.ExecutionStatus, result, errMsg string) {
	if !status.Final() {
		l.logger.WithContext(ctx).Errorw("msg", "refusing to complete execution with non-final status",
			"execution_id", id,
			"status", status)
		return
	}

	record, err := l.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrNotFound) {
			l.logger.WithContext(ctx).Warnw("msg", "complete called for unknown execution", "execution_id", id)
			return
		}
		l.logger.WithContext(ctx).Errorw("msg", "failed to load execution", "execution_id", id, "error", err)
		return
	}
	if record.Status != model.ExecutionRunning {
		l.logger.WithContext(ctx).Debugw("msg", "execution already completed",
			"execution_id", id,
			"status", record.Status)
		return
	}

	completedAt := l.now().UTC().Truncate(timestampPrecision)
	durationMs := completedAt.Sub(record.StartedAt.Truncate(timestampPrecision)).Milliseconds()
	sealed, err := l.repo.Complete(ctx, id, status, completedAt, durationMs, result, errMsg)
	if err != nil {
		l.logger.WithContext(ctx).Errorw("msg", "failed to record execution completion",
			"job", record.JobName,
			"execution_id", id,
			"status", status,
			"error", err)
		return
	}
	if !sealed {
		l.logger.WithContext(ctx).Debugw("msg", "execution completed concurrently", "execution_id", id)
		return
	}

	l.logger.WithContext(ctx).Debugw("msg", "execution completed",
		"job", record.JobName,
		"execution_id", id,
		"status", status,
		"duration_ms", durationMs)
}

// ListRecent returns records newest first. An empty jobName lists every job.
func (l *ExecutionLedger) ListRecent(ctx context.Context, jobName string, limit int) ([]*model.ExecutionRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	records, err := l.repo.ListRecent(ctx, jobName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list executions: %w", err)
	}
	return records, nil
}

// SuccessRateStats aggregates a job's runs over the trailing window; zero uses the configured default.
func (l *ExecutionLedger) SuccessRateStats(ctx context.Context, jobName string, window time.Duration) (*model.ExecutionStats, error) {
	if window <= 0 {
		window = l.statsWindow
	}
	stats, err := l.repo.Stats(ctx, jobName, l.now().UTC().Add(-window))
	if err != nil {
		return nil, fmt.Errorf("failed to compute execution stats: %w", err)
	}
	stats.JobName = jobName
	stats.Window = window
	completed := stats.Success + stats.Failure + stats.Partial
	if completed > 0 {
		stats.SuccessRate = float64(stats.Success) / float64(completed)
	}
	return stats, nil
}

// HasRunSince reports whether any run of jobName started at or after since.
func (l *ExecutionLedger) HasRunSince(ctx context.Context, jobName string, since time.Time) (bool, error) {
	ok, err := l.repo.HasRunSince(ctx, jobName, since.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to query executions of %s: %w", jobName, err)
	}
	return ok, nil
}

// ListOrphaned returns running records older than olderThan; zero uses the configured threshold.
func (l *ExecutionLedger) ListOrphaned(ctx context.Context, olderThan time.Duration) ([]*model.ExecutionRecord, error) {
	if olderThan <= 0 {
		olderThan = l.orphanThreshold
	}
	records, err := l.repo.ListRunningBefore(ctx, l.now().UTC().Add(-olderThan))
	if err != nil {
		return nil, fmt.Errorf("failed to list orphaned executions: %w", err)
	}
	return records, nil
}
