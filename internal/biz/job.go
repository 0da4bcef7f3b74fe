package biz

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"PostLane/internal/conf"
	"PostLane/internal/data"
	"PostLane/internal/model"
	pkglog "PostLane/pkg/log"
	"PostLane/pkg/metadata"

	"github.com/go-kratos/kratos/v2/log"
)

const (
	// JobRunTimeout bounds a single cron-triggered job run.
	JobRunTimeout = 30 * time.Minute
	// defaultLockTTL outlives JobRunTimeout so the lock is held for the whole run.
	defaultLockTTL = JobRunTimeout + 5*time.Minute
)

// Skip reasons reported in JobSummary.Reason.
const (
	SkipNotDue     = "not_due"
	SkipAlreadyRan = "already_ran"
	SkipLocked     = "locked"
)

// JobOutcome is what a job reports back to the runner.
type JobOutcome struct {
	Counts    map[string]int
	Succeeded int
	Failed    int
	Deferred  int
}

// Status derives the ledger status of a run from its outcome and error.
func (o JobOutcome) Status(err error) model.ExecutionStatus {
	switch {
	case err != nil && o.Succeeded == 0:
		return model.ExecutionFailure
	case err != nil:
		return model.ExecutionPartial
	case o.Failed == 0 && o.Deferred == 0:
		return model.ExecutionSuccess
	case o.Succeeded == 0 && o.Failed > 0:
		return model.ExecutionFailure
	default:
		return model.ExecutionPartial
	}
}

// Job is one recurring unit of work.
type Job interface {
	Name() string
	Run(ctx context.Context, now time.Time) (JobOutcome, error)
}

// JobLocker guards a job tick against concurrent instances.
// Implemented by data.JobLocker.
type JobLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)
	Release(ctx context.Context, key, token string) error
}

// JobSummary is returned to the trigger of a job.
type JobSummary struct {
	JobName     string
	ExecutionID string
	Status      model.ExecutionStatus
	Skipped     bool
	Reason      string
	Counts      map[string]int
	Error       string
	StartedAt   time.Time
	Duration    time.Duration
}

// JobRunner gates, locks, records and runs jobs.
type JobRunner struct {
	jobs      map[string]Job
	schedules map[string]ScheduleDefinition
	ledger    *ExecutionLedger
	locker    JobLocker
	metrics   Metrics
	lockTTL   time.Duration
	host      string
	logger    *log.Helper
}

// NewJobRunner creates a runner for the publish and generation jobs.
func NewJobRunner(bc *conf.Bootstrap, publish *PublishTask, generate *GenerationTask, ledger *ExecutionLedger, locker JobLocker, metrics Metrics, logger log.Logger) (*JobRunner, error) {
	schedules, err := SchedulesFromConfig(bc)
	if err != nil {
		return nil, err
	}
	return newJobRunner(schedules, ledger, locker, metrics, lockTTLFromConfig(bc, logger), logger, publish, generate), nil
}

// lockTTLFromConfig never returns less than JobRunTimeout.
func lockTTLFromConfig(bc *conf.Bootstrap, logger log.Logger) time.Duration {
	ttl := defaultLockTTL
	if bc.Jobs != nil && bc.Jobs.Lock != nil && bc.Jobs.Lock.TTL > 0 {
		ttl = bc.Jobs.Lock.TTL
	}
	if ttl < JobRunTimeout {
		log.NewHelper(logger).Warnw("msg", "job lock ttl shorter than run timeout, raising it",
			"configured", ttl, "ttl", JobRunTimeout)
		ttl = JobRunTimeout
	}
	return ttl
}

func newJobRunner(schedules []ScheduleDefinition, ledger *ExecutionLedger, locker JobLocker, metrics Metrics, lockTTL time.Duration, logger log.Logger, jobs ...Job) *JobRunner {
	host, _ := os.Hostname()
	r := &JobRunner{
		jobs:      make(map[string]Job, len(jobs)),
		schedules: make(map[string]ScheduleDefinition, len(schedules)),
		ledger:    ledger,
		locker:    locker,
		metrics:   metrics,
		lockTTL:   lockTTL,
		host:      host,
		logger:    log.NewHelper(logger),
	}
	for _, def := range schedules {
		r.schedules[def.JobName] = def
	}
	for _, job := range jobs {
		r.jobs[job.Name()] = job
		if _, ok := r.schedules[job.Name()]; !ok {
			r.logger.Warnw("msg", "job has no schedule, it only runs when forced", "job", job.Name())
		}
	}
	return r
}

// JobNames lists the registered jobs.
func (r *JobRunner) JobNames() []string {
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Trigger runs jobName at now when its schedule is due, or unconditionally when force is set.
// Only an unknown job name is returned as an error; run failures are reported in the summary.
func (r *JobRunner) Trigger(ctx context.Context, jobName string, now time.Time, force bool) (*JobSummary, error) {
	job, ok := r.jobs[jobName]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownJob, jobName)
	}
	now = now.UTC()
	summary := &JobSummary{JobName: jobName, StartedAt: now}

	if !force {
		if reason := r.gate(ctx, jobName, now); reason != "" {
			summary.Skipped = true
			summary.Reason = reason
			r.metrics.JobSkipped(jobName, reason)
			return summary, nil
		}
	}

	lockKey := data.JobLockKey(jobName)
	token, acquired, err := r.locker.Acquire(ctx, lockKey, r.lockTTL)
	switch {
	case err != nil:
		// Redis 不可用时降级: 无锁执行
		r.logger.WithContext(ctx).Warnw("msg", "job lock unavailable, running without lock (degraded mode)",
			"job", jobName,
			"error", err)
	case !acquired:
		summary.Skipped = true
		summary.Reason = SkipLocked
		r.metrics.JobSkipped(jobName, SkipLocked)
		r.logger.WithContext(ctx).Infow("msg", "job tick held by another instance", "job", jobName)
		return summary, nil
	default:
		defer func() {
			if err := r.locker.Release(context.WithoutCancel(ctx), lockKey, token); err != nil {
				r.logger.WithContext(ctx).Warnw("msg", "failed to release job lock", "job", jobName, "error", err)
			}
		}()
	}

	meta := &metadata.RunMetadata{
		Trigger:  metadata.TriggerCron,
		Forced:   force,
		Host:     r.host,
		LockHeld: err == nil && acquired,
	}
	if operator := pkglog.GetOperator(ctx); operator != "" {
		meta.Trigger = metadata.TriggerManual
		meta.Operator = operator
	}
	if def, ok := r.schedules[jobName]; ok && IsDue(def, now) {
		at := now.Truncate(time.Hour)
		meta.ScheduledAt = &at
	}

	summary.ExecutionID = r.ledger.StartExecution(ctx, jobName, meta)
	runCtx := pkglog.WithJobRun(ctx, jobName, summary.ExecutionID)

	r.logger.WithContext(runCtx).Infow("msg", "job started",
		"job", jobName,
		"execution_id", summary.ExecutionID,
		"forced", force)

	started := time.Now()
	outcome, runErr := r.run(runCtx, job, now)
	summary.Duration = time.Since(started)
	summary.Counts = outcome.Counts
	summary.Status = outcome.Status(runErr)
	if runErr != nil {
		summary.Error = runErr.Error()
	}

	result, err := json.Marshal(outcome.Counts)
	if err != nil {
		r.logger.WithContext(runCtx).Warnw("msg", "failed to encode job result", "job", jobName, "error", err)
	}
	r.ledger.CompleteExecution(context.WithoutCancel(runCtx), summary.ExecutionID, summary.Status, string(result), summary.Error)
	r.metrics.JobExecution(jobName, string(summary.Status), summary.Duration)

	if summary.Status == model.ExecutionSuccess {
		r.logger.WithContext(runCtx).Infow("msg", "job completed",
			"job", jobName,
			"execution_id", summary.ExecutionID,
			"status", summary.Status,
			"counts", summary.Counts,
			"duration_ms", summary.Duration.Milliseconds())
	} else {
		r.logger.WithContext(runCtx).Warnw("msg", "job completed with problems",
			"job", jobName,
			"execution_id", summary.ExecutionID,
			"status", summary.Status,
			"counts", summary.Counts,
			"error", summary.Error)
	}
	return summary, nil
}

// gate returns a skip reason, or "" when the job should run.
func (r *JobRunner) gate(ctx context.Context, jobName string, now time.Time) string {
	def, ok := r.schedules[jobName]
	if !ok || !IsDue(def, now) {
		return SkipNotDue
	}
	// one run per due hour; ledger errors let the run through
	ran, err := r.ledger.HasRunSince(ctx, jobName, now.Truncate(time.Hour))
	if err != nil {
		r.logger.WithContext(ctx).Warnw("msg", "could not check previous runs, running anyway", "job", jobName, "error", err)
		return ""
	}
	if ran {
		return SkipAlreadyRan
	}
	return ""
}

// run invokes the job and converts a panic into a failed outcome.
func (r *JobRunner) run(ctx context.Context, job Job, now time.Time) (outcome JobOutcome, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.WithContext(ctx).Errorw("msg", "job panicked", "job", job.Name(), "panic", rec)
			err = fmt.Errorf("job %s panicked: %v", job.Name(), rec)
		}
	}()
	return job.Run(ctx, now)
}
