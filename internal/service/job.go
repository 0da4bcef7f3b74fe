package service

import (
	"context"
	"time"

	v1 "PostLane/api/orchestration/v1"
	"PostLane/internal/biz"
	"PostLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-playground/validator/v10"
)

// JobService exposes the execution ledger, the detector and manual job runs.
type JobService struct {
	ledger   *biz.ExecutionLedger
	detector *biz.SilentFailureDetector
	runner   *biz.JobRunner
	validate *validator.Validate
	logger   *log.Helper
	now      func() time.Time
}

// NewJobService creates a new JobService instance.
func NewJobService(ledger *biz.ExecutionLedger, detector *biz.SilentFailureDetector, runner *biz.JobRunner, v *validator.Validate, logger log.Logger) *JobService {
	return &JobService{
		ledger:   ledger,
		detector: detector,
		runner:   runner,
		validate: v,
		logger:   log.NewHelper(logger),
		now:      time.Now,
	}
}

// ListExecutions returns ledger records newest first.
func (s *JobService) ListExecutions(ctx context.Context, req *v1.ListExecutionsRequest) (*v1.ListExecutionsReply, error) {
	if err := validate(s.validate, req); err != nil {
		return nil, err
	}
	records, err := s.ledger.ListRecent(ctx, req.Job, req.Limit)
	if err != nil {
		s.logger.WithContext(ctx).Errorw("msg", "failed to list executions", "job", req.Job, "error", err)
		return nil, toKratosError(err)
	}
	return &v1.ListExecutionsReply{Executions: toExecutions(records)}, nil
}

// ListOrphaned returns running records that never completed.
func (s *JobService) ListOrphaned(ctx context.Context, req *v1.ListOrphanedRequest) (*v1.ListExecutionsReply, error) {
	if err := validate(s.validate, req); err != nil {
		return nil, err
	}
	records, err := s.ledger.ListOrphaned(ctx, time.Duration(req.OlderThanMinutes)*time.Minute)
	if err != nil {
		s.logger.WithContext(ctx).Errorw("msg", "failed to list orphaned executions", "error", err)
		return nil, toKratosError(err)
	}
	return &v1.ListExecutionsReply{Executions: toExecutions(records)}, nil
}

// GetJobStats aggregates a job's runs over a trailing window.
func (s *JobService) GetJobStats(ctx context.Context, req *v1.GetJobStatsRequest) (*v1.JobStats, error) {
	if err := validate(s.validate, req); err != nil {
		return nil, err
	}
	stats, err := s.ledger.SuccessRateStats(ctx, req.Name, time.Duration(req.WindowHours)*time.Hour)
	if err != nil {
		s.logger.WithContext(ctx).Errorw("msg", "failed to compute job stats", "job", req.Name, "error", err)
		return nil, toKratosError(err)
	}
	return &v1.JobStats{
		JobName:       stats.JobName,
		WindowHours:   stats.Window.Hours(),
		Total:         stats.Total,
		Success:       stats.Success,
		Failure:       stats.Failure,
		Partial:       stats.Partial,
		Running:       stats.Running,
		SuccessRate:   stats.SuccessRate,
		AvgDurationMs: stats.AvgDurationMs,
	}, nil
}

// RunJob triggers a job now. Without force the schedule gate still applies.
func (s *JobService) RunJob(ctx context.Context, req *v1.RunJobRequest) (*v1.JobRun, error) {
	req.Operator = operatorFrom(ctx, req.Operator)
	if err := validate(s.validate, req); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).Infow("msg", "manual job run requested",
		"job", req.Name,
		"force", req.Force,
		"operator", req.Operator)

	summary, err := s.runner.Trigger(ctx, req.Name, s.now(), req.Force)
	if err != nil {
		return nil, toKratosError(err)
	}
	return &v1.JobRun{
		JobName:     summary.JobName,
		ExecutionId: summary.ExecutionID,
		Status:      string(summary.Status),
		Skipped:     summary.Skipped,
		Reason:      summary.Reason,
		Counts:      summary.Counts,
		Error:       summary.Error,
		StartedAt:   summary.StartedAt,
		DurationMs:  summary.Duration.Milliseconds(),
	}, nil
}

// ListSilentFailures returns the detector's most recent findings.
func (s *JobService) ListSilentFailures(_ context.Context, _ *v1.ListSilentFailuresRequest) (*v1.ListSilentFailuresReply, error) {
	found := s.detector.Recent()
	reply := &v1.ListSilentFailuresReply{Failures: make([]*v1.SilentFailure, 0, len(found))}
	for _, f := range found {
		reply.Failures = append(reply.Failures, &v1.SilentFailure{
			JobName:    f.JobName,
			ExpectedAt: f.ExpectedAt,
			DetectedAt: f.DetectedAt,
			Message:    f.Message,
		})
	}
	return reply, nil
}

func toExecutions(records []*model.ExecutionRecord) []*v1.Execution {
	out := make([]*v1.Execution, 0, len(records))
	for _, r := range records {
		out = append(out, &v1.Execution{
			Id:           r.ID,
			JobName:      r.JobName,
			Status:       string(r.Status),
			StartedAt:    r.StartedAt,
			CompletedAt:  r.CompletedAt,
			DurationMs:   r.DurationMs,
			Result:       r.Result,
			ErrorMessage: r.ErrorMessage,
			Metadata:     r.Metadata,
		})
	}
	return out
}
