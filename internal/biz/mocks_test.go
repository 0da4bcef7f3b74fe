package biz

import (
	"context"
	"os"
	"sync"
	"time"

	"PostLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/mock"
)

func testLogger() log.Logger {
	return log.NewStdLogger(os.Stdout)
}

// fakeClock is a manually advanced clock shared by components under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// MockAuditLogger is a mock implementation of AuditLogger for testing.
type MockAuditLogger struct {
	mock.Mock
}

func (m *MockAuditLogger) LogCircuitStateChange(ctx context.Context, event *model.CircuitStateChangedEvent) {
	m.Called(ctx, event)
}

func (m *MockAuditLogger) LogCircuitReset(ctx context.Context, dependency string, previous string, operator string) {
	m.Called(ctx, dependency, previous, operator)
}

func (m *MockAuditLogger) LogContentTransition(ctx context.Context, itemID int64, from, to model.ContentStatus, actor string) {
	m.Called(ctx, itemID, from, to, actor)
}

func (m *MockAuditLogger) LogSilentFailure(ctx context.Context, event *model.SilentFailureEvent) {
	m.Called(ctx, event)
}

// newPermissiveAuditLogger accepts every call.
func newPermissiveAuditLogger() *MockAuditLogger {
	m := new(MockAuditLogger)
	m.On("LogCircuitStateChange", mock.Anything, mock.Anything).Maybe()
	m.On("LogCircuitReset", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("LogContentTransition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	m.On("LogSilentFailure", mock.Anything, mock.Anything).Maybe()
	return m
}

// MockNotifier is a mock implementation of Notifier for testing.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyCircuitStateChanged(ctx context.Context, event *model.CircuitStateChangedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockNotifier) NotifySilentFailure(ctx context.Context, event *model.SilentFailureEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func newPermissiveNotifier() *MockNotifier {
	m := new(MockNotifier)
	m.On("NotifyCircuitStateChanged", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.On("NotifySilentFailure", mock.Anything, mock.Anything).Return(nil).Maybe()
	return m
}

// recordingMetrics keeps every observation in memory.
type recordingMetrics struct {
	mu             sync.Mutex
	breakerChanges []string
	transitions    []string
	executions     map[string]int
	skipped        map[string]int
	publish        map[string]int
	silent         map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		executions: make(map[string]int),
		skipped:    make(map[string]int),
		publish:    make(map[string]int),
		silent:     make(map[string]int),
	}
}

func (m *recordingMetrics) BreakerStateChanged(dependency string, from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if from == "" {
		return
	}
	m.breakerChanges = append(m.breakerChanges, dependency+":"+from+"->"+to)
}

func (m *recordingMetrics) ContentTransition(from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, from+"->"+to)
}

func (m *recordingMetrics) JobExecution(jobName, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions[jobName+":"+status]++
}

func (m *recordingMetrics) JobSkipped(jobName, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipped[jobName+":"+reason]++
}

func (m *recordingMetrics) PublishOutcome(platform, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publish[platform+":"+outcome]++
}

func (m *recordingMetrics) SilentFailure(jobName string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.silent[jobName]++
}

func (m *recordingMetrics) BreakerChanges() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.breakerChanges...)
}

func (m *recordingMetrics) Transitions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.transitions...)
}

func (m *recordingMetrics) Count(kind, key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch kind {
	case "execution":
		return m.executions[key]
	case "skipped":
		return m.skipped[key]
	case "publish":
		return m.publish[key]
	case "silent":
		return m.silent[key]
	}
	return 0
}
