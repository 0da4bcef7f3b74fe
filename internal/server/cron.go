package server

import (
	"context"
	"fmt"
	"time"

	"PostLane/internal/biz"
	"PostLane/internal/conf"
	pkglog "PostLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/robfig/cron/v3"
)

var _ transport.Server = (*CronServer)(nil)

// CronServer 定时触发发布、生成任务和漏跑检测
// 触发频率由配置决定, 任务是否真正执行由 schedules 决定
type CronServer struct {
	cron     *cron.Cron
	runner   *biz.JobRunner
	detector *biz.SilentFailureDetector
	logger   *pkglog.LogHelper
	now      func() time.Time
}

// NewCronServer registers one entry per job plus the detector.
func NewCronServer(bc *conf.Bootstrap, runner *biz.JobRunner, detector *biz.SilentFailureDetector, logger log.Logger) (*CronServer, error) {
	helper := pkglog.NewLogHelper(logger)
	s := &CronServer{
		runner:   runner,
		detector: detector,
		logger:   helper,
		now:      time.Now,
	}
	cl := cronLogger{helper: helper}
	s.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	specs := map[string]string{}
	if bc.Jobs != nil {
		if bc.Jobs.Publish != nil && bc.Jobs.Publish.Cron != "" {
			specs[biz.PublishJobName] = bc.Jobs.Publish.Cron
		}
		if bc.Jobs.Generate != nil && bc.Jobs.Generate.Cron != "" {
			specs[biz.GenerateJobName] = bc.Jobs.Generate.Cron
		}
	}
	for _, name := range runner.JobNames() {
		spec, ok := specs[name]
		if !ok {
			helper.Scheduler("job has no cron entry, it only runs on manual trigger", "job", name)
			continue
		}
		jobName := name
		if _, err := s.cron.AddFunc(spec, func() { s.trigger(jobName) }); err != nil {
			return nil, fmt.Errorf("invalid cron spec %q for %s: %w", spec, jobName, err)
		}
		helper.Scheduler("cron entry registered", "job", jobName, "spec", spec)
	}

	every := fmt.Sprintf("@every %s", detector.Interval())
	if _, err := s.cron.AddFunc(every, s.detect); err != nil {
		return nil, fmt.Errorf("invalid detector interval %s: %w", detector.Interval(), err)
	}
	helper.Scheduler("silent-failure detector registered", "spec", every)

	return s, nil
}

// Start implements transport.Server.
func (s *CronServer) Start(context.Context) error {
	s.cron.Start()
	s.logger.Startup("cron scheduler started", "entries", len(s.cron.Entries()))
	return nil
}

// Stop waits for running jobs to finish or ctx to expire.
func (s *CronServer) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Scheduler("cron scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *CronServer) trigger(jobName string) {
	ctx, cancel := context.WithTimeout(context.Background(), biz.JobRunTimeout)
	defer cancel()
	ctx = pkglog.WithJobRun(ctx, jobName, "")

	summary, err := s.runner.Trigger(ctx, jobName, s.now().UTC(), false)
	if err != nil {
		s.logger.Errorw("msg", "cron trigger failed", "job", jobName, "error", err)
		return
	}
	if summary.Skipped {
		s.logger.Debugw("msg", "job tick skipped", "job", jobName, "reason", summary.Reason)
		return
	}
	s.logger.JobSummary(ctx, jobName, string(summary.Status), summary.Duration.Milliseconds(), summary.Counts,
		"execution_id", summary.ExecutionID)
}

func (s *CronServer) detect() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	found := s.detector.Detect(ctx, s.now().UTC())
	if len(found) > 0 {
		s.logger.ErrorCount(ctx, "silent_failure", int64(len(found)))
	}
}

// cronLogger adapts the log helper to cron.Logger.
type cronLogger struct {
	helper *pkglog.LogHelper
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.helper.Debugw(append([]interface{}{"msg", "cron: " + msg}, keysAndValues...)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.helper.Errorw(append([]interface{}{"msg", "cron: " + msg, "error", err}, keysAndValues...)...)
}
