package service

import (
	"context"
	"testing"
	"time"

	v1 "PostLane/api/orchestration/v1"
	"PostLane/internal/biz"
	"PostLane/internal/biz/biztest"
	"PostLane/internal/conf"
	"PostLane/internal/data"
	"PostLane/internal/model"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ v1.JobServiceHTTPServer = (*JobService)(nil)

type jobFixture struct {
	svc     *JobService
	content *biz.ContentUsecase
	execs   *biztest.ExecutionRepo
}

func setupJobService(t *testing.T) *jobFixture {
	t.Helper()
	logger := log.DefaultLogger
	bc := &conf.Bootstrap{
		Breakers: map[string]*conf.Breaker{
			"blog":      nil,
			"generator": nil,
		},
	}
	notifier := data.NewNoopNotifier(logger)

	execs := &biztest.ExecutionRepo{}
	content := biz.NewContentUsecase(biztest.NewContentRepo(), biztest.NopAudit{}, biztest.NopMetrics{}, logger)
	breakers, err := biz.NewBreakerRegistry(bc, biztest.NopAudit{}, notifier, biztest.NopMetrics{}, logger)
	require.NoError(t, err)
	ledger := biz.NewExecutionLedger(execs, bc, logger)
	detector, err := biz.NewSilentFailureDetector(bc, ledger, biztest.NopAudit{}, notifier, biztest.NopMetrics{}, logger)
	require.NoError(t, err)

	publish := biz.NewPublishTask(bc, content, breakers, biztest.StubPublisher{}, biztest.NopMetrics{}, logger)
	generate := biz.NewGenerationTask(bc, content, breakers, biztest.StubGenerator{}, logger)
	runner, err := biz.NewJobRunner(bc, publish, generate, ledger, biztest.FreeLocker{}, biztest.NopMetrics{}, logger)
	require.NoError(t, err)

	return &jobFixture{
		svc:     NewJobService(ledger, detector, runner, NewValidator(), logger),
		content: content,
		execs:   execs,
	}
}

func TestJobService_RunJob_Forced(t *testing.T) {
	f := setupJobService(t)
	ctx := context.Background()

	item, err := f.content.Create(ctx, &model.ContentItem{Kind: model.KindBlogPost, Platform: "blog", Title: "Hello"})
	require.NoError(t, err)
	_, err = f.content.SubmitForReview(ctx, item.ID, "alice")
	require.NoError(t, err)
	at := time.Now().Add(time.Hour).UTC()
	_, err = f.content.Approve(ctx, item.ID, at, "alice")
	require.NoError(t, err)

	f.svc.now = func() time.Time { return at.Add(time.Minute) }
	run, err := f.svc.RunJob(ctx, &v1.RunJobRequest{Name: biz.PublishJobName, Force: true, Operator: "alice"})
	require.NoError(t, err)

	assert.False(t, run.Skipped)
	assert.NotEmpty(t, run.ExecutionId)
	assert.Equal(t, "success", run.Status)
	assert.Equal(t, 1, run.Counts[biz.OutcomePublished])

	published, err := f.content.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContentPublished, published.Status)
	assert.Equal(t, "post-1", published.PlatformPostID)
}

func TestJobService_RunJob_UnscheduledNeedsForce(t *testing.T) {
	f := setupJobService(t)

	run, err := f.svc.RunJob(context.Background(), &v1.RunJobRequest{Name: biz.GenerateJobName, Operator: "alice"})
	require.NoError(t, err)
	assert.True(t, run.Skipped)
	assert.Equal(t, biz.SkipNotDue, run.Reason)
	assert.Empty(t, f.execs.Records(), "skipped runs leave no ledger record")
}

func TestJobService_RunJob_Unknown(t *testing.T) {
	f := setupJobService(t)

	_, err := f.svc.RunJob(context.Background(), &v1.RunJobRequest{Name: "send-newsletter", Force: true, Operator: "alice"})
	require.Error(t, err)
	assert.Equal(t, int32(404), kerrors.FromError(err).Code)
}

func TestJobService_LedgerQueries(t *testing.T) {
	f := setupJobService(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := f.svc.RunJob(ctx, &v1.RunJobRequest{Name: biz.PublishJobName, Force: true, Operator: "alice"})
		require.NoError(t, err)
	}
	_, err := f.svc.RunJob(ctx, &v1.RunJobRequest{Name: biz.GenerateJobName, Force: true, Operator: "alice"})
	require.NoError(t, err)

	t.Run("list all", func(t *testing.T) {
		reply, err := f.svc.ListExecutions(ctx, &v1.ListExecutionsRequest{})
		require.NoError(t, err)
		require.Len(t, reply.Executions, 3)
		assert.Equal(t, biz.GenerateJobName, reply.Executions[0].JobName)
		assert.NotNil(t, reply.Executions[0].CompletedAt)
	})

	t.Run("filter by job", func(t *testing.T) {
		reply, err := f.svc.ListExecutions(ctx, &v1.ListExecutionsRequest{Job: biz.PublishJobName, Limit: 1})
		require.NoError(t, err)
		require.Len(t, reply.Executions, 1)
		assert.Equal(t, biz.PublishJobName, reply.Executions[0].JobName)
	})

	t.Run("limit out of range", func(t *testing.T) {
		_, err := f.svc.ListExecutions(ctx, &v1.ListExecutionsRequest{Limit: 10000})
		assert.Equal(t, ReasonInvalidArgument, reasonOf(err))
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := f.svc.GetJobStats(ctx, &v1.GetJobStatsRequest{Name: biz.PublishJobName, WindowHours: 24})
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.Total)
		assert.Equal(t, int64(2), stats.Success)
		assert.Equal(t, 1.0, stats.SuccessRate)
		assert.Equal(t, 24.0, stats.WindowHours)
	})

	t.Run("no orphans", func(t *testing.T) {
		reply, err := f.svc.ListOrphaned(ctx, &v1.ListOrphanedRequest{})
		require.NoError(t, err)
		assert.Empty(t, reply.Executions)
	})
}

func TestJobService_ListOrphaned(t *testing.T) {
	f := setupJobService(t)
	started := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, f.execs.Create(context.Background(), &model.ExecutionRecord{
		ID:        "exec-stuck",
		JobName:   biz.PublishJobName,
		Status:    model.ExecutionRunning,
		StartedAt: started,
	}))

	reply, err := f.svc.ListOrphaned(context.Background(), &v1.ListOrphanedRequest{OlderThanMinutes: 60})
	require.NoError(t, err)
	require.Len(t, reply.Executions, 1)
	assert.Equal(t, "exec-stuck", reply.Executions[0].Id)

	// default threshold is longer than two hours
	reply, err = f.svc.ListOrphaned(context.Background(), &v1.ListOrphanedRequest{})
	require.NoError(t, err)
	assert.Empty(t, reply.Executions)
}

func TestJobService_ListSilentFailures_Empty(t *testing.T) {
	f := setupJobService(t)

	reply, err := f.svc.ListSilentFailures(context.Background(), &v1.ListSilentFailuresRequest{})
	require.NoError(t, err)
	assert.NotNil(t, reply.Failures)
	assert.Empty(t, reply.Failures)
}
