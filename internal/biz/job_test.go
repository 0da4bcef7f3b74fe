package biz

import (
	"context"
	"errors"
	"testing"
	"time"

	"PostLane/internal/conf"
	"PostLane/internal/data"
	"PostLane/internal/model"
	pkglog "PostLane/pkg/log"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockJobLocker is a mock implementation of JobLocker.
type MockJobLocker struct {
	mock.Mock
}

func (m *MockJobLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockJobLocker) Release(ctx context.Context, key, token string) error {
	args := m.Called(ctx, key, token)
	return args.Error(0)
}

func newGrantingLocker() *MockJobLocker {
	l := new(MockJobLocker)
	l.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return("token-1", true, nil).Maybe()
	l.On("Release", mock.Anything, mock.Anything, "token-1").Return(nil).Maybe()
	return l
}

// stubJob runs fn and counts invocations.
type stubJob struct {
	name  string
	calls int
	fn    func(ctx context.Context) (JobOutcome, error)
}

func (j *stubJob) Name() string { return j.name }

func (j *stubJob) Run(ctx context.Context, _ time.Time) (JobOutcome, error) {
	j.calls++
	if j.fn == nil {
		return JobOutcome{Counts: map[string]int{"published": 1}, Succeeded: 1}, nil
	}
	return j.fn(ctx)
}

// Tuesday 2025-01-07 16:10 UTC, inside publishSchedule's due hour.
var dueNow = time.Date(2025, 1, 7, 16, 10, 0, 0, time.UTC)

type runnerFixture struct {
	runner  *JobRunner
	job     *stubJob
	repo    *memoryExecutionRepo
	locker  *MockJobLocker
	metrics *recordingMetrics
	clock   *fakeClock
}

func newRunnerFixture(t *testing.T, locker *MockJobLocker) *runnerFixture {
	t.Helper()
	clock := newFakeClock(dueNow)
	repo := newMemoryExecutionRepo()
	metrics := newRecordingMetrics()
	job := &stubJob{name: "publish-content"}
	runner := newJobRunner([]ScheduleDefinition{publishSchedule}, newTestLedger(repo, clock), locker, metrics, time.Minute, testLogger(), job)
	return &runnerFixture{runner: runner, job: job, repo: repo, locker: locker, metrics: metrics, clock: clock}
}

func TestJobRunner_RunsWhenDue(t *testing.T) {
	f := newRunnerFixture(t, newGrantingLocker())

	summary, err := f.runner.Trigger(context.Background(), "publish-content", dueNow, false)
	require.NoError(t, err)

	assert.False(t, summary.Skipped)
	assert.Equal(t, model.ExecutionSuccess, summary.Status)
	assert.Equal(t, "exec-001", summary.ExecutionID)
	assert.Equal(t, map[string]int{"published": 1}, summary.Counts)
	assert.Equal(t, 1, f.job.calls)

	rec, err := f.repo.Get(context.Background(), "exec-001")
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionSuccess, rec.Status)
	assert.JSONEq(t, `{"published":1}`, rec.Result)
	assert.Contains(t, rec.Metadata, `"trigger":"cron"`)
	assert.Contains(t, rec.Metadata, `"lock_held":true`)

	assert.Equal(t, 1, f.metrics.Count("execution", "publish-content:success"))
	f.locker.AssertCalled(t, "Acquire", mock.Anything, data.JobLockKey("publish-content"), time.Minute)
	f.locker.AssertCalled(t, "Release", mock.Anything, data.JobLockKey("publish-content"), "token-1")
}

func TestJobRunner_SkipsWhenNotDue(t *testing.T) {
	f := newRunnerFixture(t, newGrantingLocker())

	summary, err := f.runner.Trigger(context.Background(), "publish-content", dueNow.Add(-2*time.Hour), false)
	require.NoError(t, err)

	assert.True(t, summary.Skipped)
	assert.Equal(t, SkipNotDue, summary.Reason)
	assert.Zero(t, f.job.calls)
	assert.Equal(t, 1, f.metrics.Count("skipped", "publish-content:not_due"))
	f.locker.AssertNotCalled(t, "Acquire", mock.Anything, mock.Anything, mock.Anything)
}

func TestJobRunner_OncePerDueHour(t *testing.T) {
	f := newRunnerFixture(t, newGrantingLocker())
	ctx := context.Background()

	_, err := f.runner.Trigger(ctx, "publish-content", dueNow, false)
	require.NoError(t, err)

	f.clock.Advance(5 * time.Minute)
	summary, err := f.runner.Trigger(ctx, "publish-content", dueNow.Add(5*time.Minute), false)
	require.NoError(t, err)
	assert.True(t, summary.Skipped)
	assert.Equal(t, SkipAlreadyRan, summary.Reason)
	assert.Equal(t, 1, f.job.calls)

	// forcing bypasses the gate
	summary, err = f.runner.Trigger(ctx, "publish-content", dueNow.Add(6*time.Minute), true)
	require.NoError(t, err)
	assert.False(t, summary.Skipped)
	assert.Equal(t, 2, f.job.calls)
}

func TestJobRunner_ForceOutsideSchedule(t *testing.T) {
	f := newRunnerFixture(t, newGrantingLocker())
	ctx := pkglog.WithRequestContext(context.Background(), "req-1", "ops@example.com")

	summary, err := f.runner.Trigger(ctx, "publish-content", dueNow.Add(-5*time.Hour), true)
	require.NoError(t, err)
	assert.False(t, summary.Skipped)

	rec, err := f.repo.Get(context.Background(), summary.ExecutionID)
	require.NoError(t, err)
	assert.Contains(t, rec.Metadata, `"trigger":"manual"`)
	assert.Contains(t, rec.Metadata, `"operator":"ops@example.com"`)
	assert.Contains(t, rec.Metadata, `"forced":true`)
	assert.NotContains(t, rec.Metadata, "scheduled_at")
}

func TestJobRunner_LockHeldElsewhere(t *testing.T) {
	locker := new(MockJobLocker)
	locker.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return("", false, nil)
	f := newRunnerFixture(t, locker)

	summary, err := f.runner.Trigger(context.Background(), "publish-content", dueNow, false)
	require.NoError(t, err)
	assert.True(t, summary.Skipped)
	assert.Equal(t, SkipLocked, summary.Reason)
	assert.Zero(t, f.job.calls)
	assert.Equal(t, 1, f.metrics.Count("skipped", "publish-content:locked"))
	locker.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
}

func TestJobRunner_LockErrorDegrades(t *testing.T) {
	locker := new(MockJobLocker)
	locker.On("Acquire", mock.Anything, mock.Anything, mock.Anything).Return("", false, errors.New("redis: connection refused"))
	f := newRunnerFixture(t, locker)

	summary, err := f.runner.Trigger(context.Background(), "publish-content", dueNow, false)
	require.NoError(t, err)
	assert.False(t, summary.Skipped)
	assert.Equal(t, 1, f.job.calls)
	locker.AssertNotCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)

	rec, err := f.repo.Get(context.Background(), summary.ExecutionID)
	require.NoError(t, err)
	assert.NotContains(t, rec.Metadata, "lock_held")
}

func TestJobRunner_FailureStatuses(t *testing.T) {
	tests := []struct {
		name       string
		outcome    JobOutcome
		err        error
		wantStatus model.ExecutionStatus
		wantError  string
	}{
		{
			name:       "error before any success",
			err:        errors.New("db down"),
			wantStatus: model.ExecutionFailure,
			wantError:  "db down",
		},
		{
			name:       "error after some success",
			outcome:    JobOutcome{Succeeded: 2},
			err:        errors.New("interrupted"),
			wantStatus: model.ExecutionPartial,
			wantError:  "interrupted",
		},
		{
			name:       "only failures",
			outcome:    JobOutcome{Failed: 3},
			wantStatus: model.ExecutionFailure,
		},
		{
			name:       "mixed",
			outcome:    JobOutcome{Succeeded: 1, Failed: 1},
			wantStatus: model.ExecutionPartial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRunnerFixture(t, newGrantingLocker())
			f.job.fn = func(context.Context) (JobOutcome, error) { return tt.outcome, tt.err }

			summary, err := f.runner.Trigger(context.Background(), "publish-content", dueNow, false)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, summary.Status)
			assert.Equal(t, tt.wantError, summary.Error)

			rec, err := f.repo.Get(context.Background(), summary.ExecutionID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, rec.Status)
			assert.Equal(t, tt.wantError, rec.ErrorMessage)
		})
	}
}

func TestJobRunner_PanicIsRecorded(t *testing.T) {
	f := newRunnerFixture(t, newGrantingLocker())
	f.job.fn = func(context.Context) (JobOutcome, error) { panic("nil map") }

	summary, err := f.runner.Trigger(context.Background(), "publish-content", dueNow, false)
	require.NoError(t, err)
	assert.Equal(t, model.ExecutionFailure, summary.Status)
	assert.Contains(t, summary.Error, "panicked")
	f.locker.AssertCalled(t, "Release", mock.Anything, mock.Anything, "token-1")
}

func TestJobRunner_RunContextCarriesExecution(t *testing.T) {
	f := newRunnerFixture(t, newGrantingLocker())
	var jobName, executionID string
	f.job.fn = func(ctx context.Context) (JobOutcome, error) {
		jobName = pkglog.GetJobName(ctx)
		executionID = pkglog.GetExecutionID(ctx)
		return JobOutcome{}, nil
	}

	summary, err := f.runner.Trigger(context.Background(), "publish-content", dueNow, false)
	require.NoError(t, err)
	assert.Equal(t, "publish-content", jobName)
	assert.Equal(t, summary.ExecutionID, executionID)
}

func TestJobRunner_UnknownJob(t *testing.T) {
	f := newRunnerFixture(t, newGrantingLocker())

	summary, err := f.runner.Trigger(context.Background(), "nope", dueNow, true)
	assert.Nil(t, summary)
	assert.ErrorIs(t, err, ErrUnknownJob)
	assert.Equal(t, []string{"publish-content"}, f.runner.JobNames())
}

func TestJobRunner_UnscheduledJobOnlyRunsForced(t *testing.T) {
	clock := newFakeClock(dueNow)
	job := &stubJob{name: "generate-content"}
	runner := newJobRunner(nil, newTestLedger(newMemoryExecutionRepo(), clock), newGrantingLocker(), newRecordingMetrics(), time.Minute, testLogger(), job)

	summary, err := runner.Trigger(context.Background(), "generate-content", dueNow, false)
	require.NoError(t, err)
	assert.Equal(t, SkipNotDue, summary.Reason)

	summary, err = runner.Trigger(context.Background(), "generate-content", dueNow, true)
	require.NoError(t, err)
	assert.False(t, summary.Skipped)
	assert.Equal(t, 1, job.calls)
}

func TestLockTTLFromConfig(t *testing.T) {
	tests := []struct {
		name string
		lock *conf.Lock
		want time.Duration
	}{
		{name: "unset uses default", lock: nil, want: defaultLockTTL},
		{name: "shorter than run timeout is raised", lock: &conf.Lock{TTL: 10 * time.Minute}, want: JobRunTimeout},
		{name: "longer is kept", lock: &conf.Lock{TTL: time.Hour}, want: time.Hour},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bc := &conf.Bootstrap{Jobs: &conf.Jobs{Lock: tt.lock}}
			got := lockTTLFromConfig(bc, testLogger())
			assert.Equal(t, tt.want, got)
			assert.GreaterOrEqual(t, got, JobRunTimeout)
		})
	}
}

func TestJobOutcome_Status(t *testing.T) {
	assert.Equal(t, model.ExecutionSuccess, JobOutcome{}.Status(nil))
	assert.Equal(t, model.ExecutionSuccess, JobOutcome{Succeeded: 4}.Status(nil))
	assert.Equal(t, model.ExecutionPartial, JobOutcome{Deferred: 2}.Status(nil))
	assert.Equal(t, model.ExecutionPartial, JobOutcome{Succeeded: 1, Deferred: 2}.Status(nil))
	assert.Equal(t, model.ExecutionFailure, JobOutcome{Failed: 1, Deferred: 2}.Status(nil))
	assert.Equal(t, model.ExecutionFailure, JobOutcome{}.Status(errors.New("x")))
}
