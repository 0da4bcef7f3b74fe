// Package biztest provides in-memory collaborators for tests of the layers above biz.
package biztest

import (
	"context"
	"sort"
	"sync"
	"time"

	"PostLane/internal/biz"
	"PostLane/internal/data"
	"PostLane/internal/model"
)

var (
	_ biz.ContentRepo      = (*ContentRepo)(nil)
	_ biz.ExecutionRepo    = (*ExecutionRepo)(nil)
	_ biz.AuditLogger      = NopAudit{}
	_ biz.Metrics          = NopMetrics{}
	_ biz.JobLocker        = FreeLocker{}
	_ biz.Publisher        = StubPublisher{}
	_ biz.ContentGenerator = StubGenerator{}
)

// ContentRepo is an in-memory biz.ContentRepo.
type ContentRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]*model.ContentItem
}

// NewContentRepo creates an empty repo.
func NewContentRepo() *ContentRepo {
	return &ContentRepo{items: make(map[int64]*model.ContentItem)}
}

func (r *ContentRepo) Create(_ context.Context, item *model.ContentItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	item.ID = r.nextID
	item.Version = 1
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt
	r.items[item.ID] = item.Clone()
	return nil
}

func (r *ContentRepo) Get(ctx context.Context, id int64) (*model.ContentItem, error) {
	return r.Load(ctx, id)
}

func (r *ContentRepo) Load(_ context.Context, id int64) (*model.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok {
		return nil, data.ErrNotFound
	}
	return item.Clone(), nil
}

func (r *ContentRepo) UpdateIfVersion(_ context.Context, item *model.ContentItem, expectedVersion int32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[item.ID]
	if !ok {
		return data.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return data.ErrVersionConflict
	}
	item.Version = expectedVersion + 1
	r.items[item.ID] = item.Clone()
	return nil
}

func (r *ContentRepo) ListReady(_ context.Context, now time.Time) ([]*model.ContentItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ContentItem
	for _, item := range r.items {
		if item.ReadyAt(now) {
			out = append(out, item.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledFor.Before(*out[j].ScheduledFor) })
	return out, nil
}

func (r *ContentRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return data.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

// ExecutionRepo is an in-memory biz.ExecutionRepo.
type ExecutionRepo struct {
	mu      sync.Mutex
	records []*model.ExecutionRecord
}

// Records returns a copy of every stored record, oldest first.
func (r *ExecutionRepo) Records() []model.ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.ExecutionRecord, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, *rec)
	}
	return out
}

func (r *ExecutionRepo) Create(_ context.Context, record *model.ExecutionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *record
	r.records = append(r.records, &cp)
	return nil
}

func (r *ExecutionRepo) Get(_ context.Context, id string) (*model.ExecutionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id {
			cp := *rec
			return &cp, nil
		}
	}
	return nil, data.ErrNotFound
}

func (r *ExecutionRepo) Complete(_ context.Context, id string, status model.ExecutionStatus, completedAt time.Time, durationMs int64, result, errMsg string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ID == id && rec.Status == model.ExecutionRunning {
			rec.Status = status
			rec.CompletedAt = &completedAt
			rec.DurationMs = &durationMs
			rec.Result = result
			rec.ErrorMessage = errMsg
			return true, nil
		}
	}
	return false, nil
}

func (r *ExecutionRepo) ListRecent(_ context.Context, jobName string, limit int) ([]*model.ExecutionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ExecutionRecord
	for i := len(r.records) - 1; i >= 0 && len(out) < limit; i-- {
		if jobName == "" || r.records[i].JobName == jobName {
			cp := *r.records[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *ExecutionRepo) Stats(_ context.Context, jobName string, since time.Time) (*model.ExecutionStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stats := &model.ExecutionStats{}
	for _, rec := range r.records {
		if rec.JobName != jobName || rec.StartedAt.Before(since) {
			continue
		}
		stats.Total++
		switch rec.Status {
		case model.ExecutionSuccess:
			stats.Success++
		case model.ExecutionFailure:
			stats.Failure++
		case model.ExecutionPartial:
			stats.Partial++
		case model.ExecutionRunning:
			stats.Running++
		}
	}
	return stats, nil
}

func (r *ExecutionRepo) HasRunSince(_ context.Context, jobName string, since time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.JobName == jobName && !rec.StartedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *ExecutionRepo) ListRunningBefore(_ context.Context, before time.Time) ([]*model.ExecutionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ExecutionRecord
	for _, rec := range r.records {
		if rec.Status == model.ExecutionRunning && rec.StartedAt.Before(before) {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

// NopAudit discards audit events.
type NopAudit struct{}

func (NopAudit) LogCircuitStateChange(context.Context, *model.CircuitStateChangedEvent) {}

func (NopAudit) LogCircuitReset(context.Context, string, string, string) {}

func (NopAudit) LogContentTransition(context.Context, int64, model.ContentStatus, model.ContentStatus, string) {
}

func (NopAudit) LogSilentFailure(context.Context, *model.SilentFailureEvent) {}

// NopMetrics discards measurements.
type NopMetrics struct{}

func (NopMetrics) BreakerStateChanged(string, string, string) {}

func (NopMetrics) ContentTransition(string, string) {}

func (NopMetrics) JobExecution(string, string, time.Duration) {}

func (NopMetrics) JobSkipped(string, string) {}

func (NopMetrics) PublishOutcome(string, string) {}

func (NopMetrics) SilentFailure(string) {}

// FreeLocker always grants the lock.
type FreeLocker struct{}

func (FreeLocker) Acquire(context.Context, string, time.Duration) (string, bool, error) {
	return "token", true, nil
}

func (FreeLocker) Release(context.Context, string, string) error { return nil }

// StubPublisher accepts every post as "post-1".
type StubPublisher struct{}

func (StubPublisher) Publish(context.Context, string, *model.ContentItem) (string, error) {
	return "post-1", nil
}

// StubGenerator returns a fixed draft.
type StubGenerator struct{}

func (StubGenerator) Generate(_ context.Context, req model.GenerationRequest) (*model.GeneratedContent, error) {
	return &model.GeneratedContent{Title: "Generated " + req.Topic, Body: "body"}, nil
}
