package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PostLane/internal/data"
	"PostLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
)

// ContentRepo is the content item store.
// Implemented by data.ContentRepo.
type ContentRepo interface {
	Create(ctx context.Context, item *model.ContentItem) error
	// Get reads through the cache.
	Get(ctx context.Context, id int64) (*model.ContentItem, error)
	// Load always reads the primary store.
	Load(ctx context.Context, id int64) (*model.ContentItem, error)
	// UpdateIfVersion writes item only if the stored version still equals expectedVersion.
	UpdateIfVersion(ctx context.Context, item *model.ContentItem, expectedVersion int32) error
	ListReady(ctx context.Context, now time.Time) ([]*model.ContentItem, error)
	Delete(ctx context.Context, id int64) error
}

// transitionAttempts is one load plus one reload after a version conflict.
const transitionAttempts = 2

// ContentUsecase advances content items through their lifecycle.
type ContentUsecase struct {
	repo    ContentRepo
	audit   AuditLogger
	metrics Metrics
	logger  *log.Helper
	now     func() time.Time
}

// NewContentUsecase creates a new content usecase.
func NewContentUsecase(repo ContentRepo, audit AuditLogger, metrics Metrics, logger log.Logger) *ContentUsecase {
	return &ContentUsecase{
		repo:    repo,
		audit:   audit,
		metrics: metrics,
		logger:  log.NewHelper(logger),
		now:     time.Now,
	}
}

// Create stores a new draft.
func (uc *ContentUsecase) Create(ctx context.Context, item *model.ContentItem) (*model.ContentItem, error) {
	if item.Status == "" {
		item.Status = model.ContentDraft
	}
	if item.Status != model.ContentDraft {
		return nil, &InvalidTransitionError{From: item.Status, To: model.ContentDraft}
	}
	if err := uc.repo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create content item: %w", err)
	}

	uc.logger.WithContext(ctx).Infow("msg", "content item created",
		"id", item.ID,
		"kind", item.Kind,
		"platform", item.Platform)
	uc.audit.LogContentTransition(ctx, item.ID, "", model.ContentDraft, "system")
	return item, nil
}

// Get returns a content item.
func (uc *ContentUsecase) Get(ctx context.Context, id int64) (*model.ContentItem, error) {
	item, err := uc.repo.Get(ctx, id)
	if err != nil {
		return nil, uc.mapRepoError(id, err)
	}
	return item, nil
}

// SubmitForReview moves a draft into the review queue.
func (uc *ContentUsecase) SubmitForReview(ctx context.Context, id int64, actor string) (*model.ContentItem, error) {
	return uc.transition(ctx, id, actor, func(item *model.ContentItem, _ time.Time) (bool, error) {
		return true, item.SubmitForReview()
	})
}

// Approve schedules an item from pending_review, or reschedules a failed one.
// scheduledFor must not be before now.
func (uc *ContentUsecase) Approve(ctx context.Context, id int64, scheduledFor time.Time, approvedBy string) (*model.ContentItem, error) {
	return uc.transition(ctx, id, approvedBy, func(item *model.ContentItem, now time.Time) (bool, error) {
		if !model.CanTransition(item.Status, model.ContentApproved) {
			return false, &model.TransitionError{ItemID: item.ID, From: item.Status, To: model.ContentApproved}
		}
		if scheduledFor.Before(now) {
			return false, ErrScheduledInPast
		}
		return true, item.Approve(now, scheduledFor, approvedBy)
	})
}

// Reject ends the lifecycle of an item under review or overrides an approval.
func (uc *ContentUsecase) Reject(ctx context.Context, id int64, actor string) (*model.ContentItem, error) {
	return uc.transition(ctx, id, actor, func(item *model.ContentItem, _ time.Time) (bool, error) {
		return true, item.Reject()
	})
}

// MarkPublished records a successful publication. Already published items are returned unchanged.
func (uc *ContentUsecase) MarkPublished(ctx context.Context, id int64, platformPostID string) (*model.ContentItem, error) {
	return uc.transition(ctx, id, "system", func(item *model.ContentItem, now time.Time) (bool, error) {
		return item.MarkPublished(now, platformPostID)
	})
}

// MarkFailed records a failed publication attempt.
func (uc *ContentUsecase) MarkFailed(ctx context.Context, id int64, errorMessage string) (*model.ContentItem, error) {
	return uc.transition(ctx, id, "system", func(item *model.ContentItem, _ time.Time) (bool, error) {
		return true, item.MarkFailed(errorMessage)
	})
}

// SelectReadyToPublish returns approved items due at now, earliest first.
func (uc *ContentUsecase) SelectReadyToPublish(ctx context.Context, now time.Time) ([]*model.ContentItem, error) {
	items, err := uc.repo.ListReady(ctx, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to select ready content: %w", err)
	}
	return items, nil
}

// Delete removes an item on explicit operator request.
func (uc *ContentUsecase) Delete(ctx context.Context, id int64, actor string) error {
	if err := uc.repo.Delete(ctx, id); err != nil {
		return uc.mapRepoError(id, err)
	}
	uc.logger.WithContext(ctx).Infow("msg", "content item deleted", "id", id, "actor", actor)
	return nil
}

// transition loads the item, applies fn to a copy and stores it with a version check.
// A version conflict reloads once so the loser of a race sees the winner's status.
func (uc *ContentUsecase) transition(ctx context.Context, id int64, actor string, fn func(item *model.ContentItem, now time.Time) (bool, error)) (*model.ContentItem, error) {
	for attempt := 1; attempt <= transitionAttempts; attempt++ {
		current, err := uc.repo.Load(ctx, id)
		if err != nil {
			return nil, uc.mapRepoError(id, err)
		}

		next := current.Clone()
		changed, err := fn(next, uc.now())
		if err != nil {
			return nil, asInvalidTransition(err)
		}
		if !changed {
			return current, nil
		}

		err = uc.repo.UpdateIfVersion(ctx, next, current.Version)
		if errors.Is(err, data.ErrVersionConflict) {
			uc.logger.WithContext(ctx).Debugw("msg", "content version conflict, reloading",
				"id", id,
				"version", current.Version,
				"attempt", attempt)
			continue
		}
		if err != nil {
			return nil, uc.mapRepoError(id, err)
		}

		uc.logger.WithContext(ctx).Infow("msg", "content item transitioned",
			"id", id,
			"from", current.Status,
			"to", next.Status,
			"actor", actor)
		uc.metrics.ContentTransition(string(current.Status), string(next.Status))
		uc.audit.LogContentTransition(ctx, id, current.Status, next.Status, actor)
		return next, nil
	}
	return nil, fmt.Errorf("content item %d: %w", id, data.ErrVersionConflict)
}

func (uc *ContentUsecase) mapRepoError(id int64, err error) error {
	if errors.Is(err, data.ErrNotFound) {
		return fmt.Errorf("content item %d: %w", id, ErrContentNotFound)
	}
	return fmt.Errorf("content item %d: %w", id, err)
}
