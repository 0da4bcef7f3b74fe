package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PostLane/internal/conf"
	"PostLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// GenerateJobName is the job that drafts new content through the generation service.
const GenerateJobName = "generate-content"

const defaultGenerateCallTimeout = 2 * time.Minute

// ContentGenerator drafts content for a slot.
// Implemented by data.GeneratorClient.
type ContentGenerator interface {
	Generate(ctx context.Context, req model.GenerationRequest) (*model.GeneratedContent, error)
}

// GenerationTask 按配置的 slot 生成草稿并提交审核
type GenerationTask struct {
	content     *ContentUsecase
	breakers    *BreakerRegistry
	generator   ContentGenerator
	slots       []model.GenerationRequest
	callTimeout time.Duration
	logger      *log.Helper
}

// NewGenerationTask creates the generate-content job over the configured slots.
func NewGenerationTask(bc *conf.Bootstrap, content *ContentUsecase, breakers *BreakerRegistry, generator ContentGenerator, logger log.Logger) *GenerationTask {
	timeout := defaultGenerateCallTimeout
	var slots []model.GenerationRequest
	if bc.Jobs != nil && bc.Jobs.Generate != nil {
		if bc.Jobs.Generate.CallTimeout > 0 {
			timeout = bc.Jobs.Generate.CallTimeout
		}
		for _, s := range bc.Jobs.Generate.Slots {
			slots = append(slots, model.GenerationRequest{
				Kind:     model.ContentKind(s.Kind),
				Platform: s.Platform,
				Topic:    s.Topic,
			})
		}
	}
	return &GenerationTask{
		content:     content,
		breakers:    breakers,
		generator:   generator,
		slots:       slots,
		callTimeout: timeout,
		logger:      log.NewHelper(logger),
	}
}

// Name implements Job.
func (t *GenerationTask) Name() string {
	return GenerateJobName
}

// Run generates one draft per slot and submits it for review.
// An open generation circuit defers the remaining slots of the run.
func (t *GenerationTask) Run(ctx context.Context, _ time.Time) (JobOutcome, error) {
	tally := newOutcomeTally()
	if len(t.slots) == 0 {
		t.logger.WithContext(ctx).Info("no generation slots configured")
		return tally.outcome(), nil
	}

	breaker, err := t.breakers.Get(conf.GenerationServiceBreaker)
	if err != nil {
		return tally.outcome(), err
	}

	for i, slot := range t.slots {
		if ctx.Err() != nil {
			break
		}
		generated, err := Call(ctx, breaker, func(ctx context.Context) (*model.GeneratedContent, error) {
			callCtx, cancel := context.WithTimeout(ctx, t.callTimeout)
			defer cancel()
			return t.generator.Generate(callCtx, slot)
		})

		var open *CircuitOpenError
		if errors.As(err, &open) {
			remaining := len(t.slots) - i
			tally.add("deferred", remaining)
			t.logger.WithContext(ctx).Infow("msg", "generation deferred, circuit open",
				"remaining_slots", remaining,
				"retry_after", open.RetryAfter)
			break
		}
		if err != nil {
			tally.add("failed", 1)
			t.logger.WithContext(ctx).Warnw("msg", "content generation failed",
				"kind", slot.Kind,
				"platform", slot.Platform,
				"error", err)
			continue
		}

		if err := t.store(ctx, slot, generated); err != nil {
			tally.add("failed", 1)
			t.logger.WithContext(ctx).Errorw("msg", "failed to store generated content",
				"kind", slot.Kind,
				"platform", slot.Platform,
				"error", err)
			continue
		}
		tally.add("generated", 1)
	}

	out := tally.outcome()
	out.Succeeded = out.Counts["generated"]
	out.Failed = out.Counts["failed"]
	out.Deferred = out.Counts["deferred"]
	if err := ctx.Err(); err != nil {
		return out, fmt.Errorf("generation run interrupted: %w", err)
	}
	return out, nil
}

func (t *GenerationTask) store(ctx context.Context, slot model.GenerationRequest, generated *model.GeneratedContent) error {
	item, err := t.content.Create(ctx, &model.ContentItem{
		Kind:     slot.Kind,
		Platform: slot.Platform,
		Title:    generated.Title,
		Body:     generated.Body,
	})
	if err != nil {
		return err
	}
	_, err = t.content.SubmitForReview(ctx, item.ID, "generator")
	return err
}
