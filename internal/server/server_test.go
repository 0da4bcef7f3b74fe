package server

import (
	"testing"
	"time"

	"PostLane/internal/biz"
	"PostLane/internal/biz/biztest"
	"PostLane/internal/conf"
	"PostLane/internal/data"
	"PostLane/internal/metrics"
	"PostLane/internal/service"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/require"
)

// stack is a fully wired application over in-memory stores.
type stack struct {
	bc       *conf.Bootstrap
	content  *biz.ContentUsecase
	execs    *biztest.ExecutionRepo
	breakers *biz.BreakerRegistry
	runner   *biz.JobRunner
	detector *biz.SilentFailureDetector
	metrics  *metrics.Metrics

	contentService *service.ContentService
	jobService     *service.JobService
	breakerService *service.BreakerService
}

func testBootstrap() *conf.Bootstrap {
	return &conf.Bootstrap{
		Server: &conf.Server{HTTP: &conf.HTTP{Network: "tcp", Addr: "127.0.0.1:0", Timeout: 5 * time.Second}},
		Breakers: map[string]*conf.Breaker{
			"blog": {FailureThreshold: 1, FailureWindow: time.Minute, CooldownPeriod: time.Minute, SuccessThreshold: 1},
		},
		Jobs: &conf.Jobs{
			Publish:  &conf.PublishJob{Cron: "*/5 * * * *"},
			Generate: &conf.GenerateJob{Cron: "0 6 * * 1-5"},
			Detector: &conf.Detector{
				Interval:        10 * time.Minute,
				DetectionMargin: 2 * time.Hour,
				GracePeriod:     5 * time.Minute,
				ReportCapacity:  16,
			},
		},
	}
}

func newStack(t *testing.T, bc *conf.Bootstrap) *stack {
	t.Helper()
	logger := log.DefaultLogger
	m := metrics.NewMetrics()
	notifier := data.NewNoopNotifier(logger)
	audit := biztest.NopAudit{}

	s := &stack{bc: bc, execs: &biztest.ExecutionRepo{}, metrics: m}
	s.content = biz.NewContentUsecase(biztest.NewContentRepo(), audit, m, logger)

	var err error
	s.breakers, err = biz.NewBreakerRegistry(bc, audit, notifier, m, logger)
	require.NoError(t, err)
	ledger := biz.NewExecutionLedger(s.execs, bc, logger)
	s.detector, err = biz.NewSilentFailureDetector(bc, ledger, audit, notifier, m, logger)
	require.NoError(t, err)

	publish := biz.NewPublishTask(bc, s.content, s.breakers, biztest.StubPublisher{}, m, logger)
	generate := biz.NewGenerationTask(bc, s.content, s.breakers, biztest.StubGenerator{}, logger)
	s.runner, err = biz.NewJobRunner(bc, publish, generate, ledger, biztest.FreeLocker{}, m, logger)
	require.NoError(t, err)

	v := service.NewValidator()
	s.contentService = service.NewContentService(s.content, v, logger)
	s.jobService = service.NewJobService(ledger, s.detector, s.runner, v, logger)
	s.breakerService = service.NewBreakerService(s.breakers, v, logger)
	return s
}
