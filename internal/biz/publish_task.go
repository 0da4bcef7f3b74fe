package biz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"PostLane/internal/conf"
	"PostLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/errgroup"
)

// PublishJobName is the job that pushes approved content to its platform.
const PublishJobName = "publish-content"

const defaultPublishCallTimeout = 30 * time.Second

// Publish outcomes, used as result counts and metric labels.
const (
	OutcomePublished = "published"
	OutcomeFailed    = "failed"
	OutcomeDeferred  = "deferred"
)

// Publisher posts a content item to an external platform and returns the platform post id.
// Implemented by data.PlatformClient.
type Publisher interface {
	Publish(ctx context.Context, platform string, item *model.ContentItem) (string, error)
}

// PublishTask 发布到期的已审核内容
// Each platform is published through its own breaker; platforms run in parallel,
// items of one platform run in schedule order.
type PublishTask struct {
	content     *ContentUsecase
	breakers    *BreakerRegistry
	publisher   Publisher
	metrics     Metrics
	callTimeout time.Duration
	logger      *log.Helper
}

// NewPublishTask creates the publish-content job.
func NewPublishTask(bc *conf.Bootstrap, content *ContentUsecase, breakers *BreakerRegistry, publisher Publisher, metrics Metrics, logger log.Logger) *PublishTask {
	timeout := defaultPublishCallTimeout
	if bc.Jobs != nil && bc.Jobs.Publish != nil && bc.Jobs.Publish.CallTimeout > 0 {
		timeout = bc.Jobs.Publish.CallTimeout
	}
	return &PublishTask{
		content:     content,
		breakers:    breakers,
		publisher:   publisher,
		metrics:     metrics,
		callTimeout: timeout,
		logger:      log.NewHelper(logger),
	}
}

// Name implements Job.
func (t *PublishTask) Name() string {
	return PublishJobName
}

// Run publishes every approved item due at now.
// Only a failure to select items is returned as an error.
func (t *PublishTask) Run(ctx context.Context, now time.Time) (JobOutcome, error) {
	items, err := t.content.SelectReadyToPublish(ctx, now)
	if err != nil {
		return JobOutcome{}, err
	}

	tally := newOutcomeTally()
	tally.add("selected", len(items))
	if len(items) == 0 {
		t.logger.WithContext(ctx).Info("no content ready to publish")
		return tally.outcome(), nil
	}

	byPlatform := make(map[string][]*model.ContentItem)
	var order []string
	for _, item := range items {
		if _, ok := byPlatform[item.Platform]; !ok {
			order = append(order, item.Platform)
		}
		byPlatform[item.Platform] = append(byPlatform[item.Platform], item)
	}

	t.logger.WithContext(ctx).Infow("msg", "publishing ready content",
		"items", len(items),
		"platforms", len(order))

	// 单个平台失败不影响其他平台
	var g errgroup.Group
	for _, platform := range order {
		platform, queue := platform, byPlatform[platform]
		g.Go(func() error {
			for _, item := range queue {
				if ctx.Err() != nil {
					return nil
				}
				outcome := t.publishOne(ctx, platform, item)
				tally.add(outcome, 1)
				t.metrics.PublishOutcome(platform, outcome)
			}
			return nil
		})
	}
	_ = g.Wait()

	out := tally.outcome()
	out.Succeeded = out.Counts[OutcomePublished]
	out.Failed = out.Counts[OutcomeFailed]
	out.Deferred = out.Counts[OutcomeDeferred]
	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("publish run interrupted: %w", err)
	}
	return out, nil
}

// publishOne publishes a single item and records the result on it.
func (t *PublishTask) publishOne(ctx context.Context, platform string, item *model.ContentItem) string {
	breaker, err := t.breakers.Get(platform)
	if err != nil {
		t.markFailed(ctx, item, fmt.Sprintf("no publisher configured for platform %q", platform))
		return OutcomeFailed
	}

	postID, err := Call(ctx, breaker, func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, t.callTimeout)
		defer cancel()
		return t.publisher.Publish(callCtx, platform, item)
	})

	var open *CircuitOpenError
	switch {
	case errors.As(err, &open):
		// 熔断期间保持 approved, 下次运行再试
		t.logger.WithContext(ctx).Infow("msg", "publish deferred, circuit open",
			"item_id", item.ID,
			"platform", platform,
			"retry_after", open.RetryAfter)
		return OutcomeDeferred
	case err != nil:
		t.logger.WithContext(ctx).Warnw("msg", "publish failed",
			"item_id", item.ID,
			"platform", platform,
			"error", err)
		t.markFailed(ctx, item, err.Error())
		return OutcomeFailed
	}

	if _, err := t.content.MarkPublished(ctx, item.ID, postID); err != nil {
		// the post is live; the next run may publish it again
		t.logger.WithContext(ctx).Errorw("msg", "published but failed to record publication",
			"item_id", item.ID,
			"platform", platform,
			"platform_post_id", postID,
			"error", err)
	}
	return OutcomePublished
}

func (t *PublishTask) markFailed(ctx context.Context, item *model.ContentItem, msg string) {
	if _, err := t.content.MarkFailed(ctx, item.ID, msg); err != nil {
		t.logger.WithContext(ctx).Errorw("msg", "failed to record publish failure",
			"item_id", item.ID,
			"error", err)
	}
}

// outcomeTally counts outcomes across goroutines.
type outcomeTally struct {
	mu     sync.Mutex
	counts map[string]int
}

func newOutcomeTally() *outcomeTally {
	return &outcomeTally{counts: make(map[string]int)}
}

func (c *outcomeTally) add(key string, n int) {
	c.mu.Lock()
	c.counts[key] += n
	c.mu.Unlock()
}

func (c *outcomeTally) outcome() JobOutcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(map[string]int, len(c.counts))
	for k, v := range c.counts {
		counts[k] = v
	}
	return JobOutcome{Counts: counts}
}
