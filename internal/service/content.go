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

// ContentService implements the content review endpoints.
type ContentService struct {
	uc       *biz.ContentUsecase
	validate *validator.Validate
	logger   *log.Helper
	now      func() time.Time
}

// NewContentService creates a new ContentService instance.
func NewContentService(uc *biz.ContentUsecase, v *validator.Validate, logger log.Logger) *ContentService {
	return &ContentService{
		uc:       uc,
		validate: v,
		logger:   log.NewHelper(logger),
		now:      time.Now,
	}
}

// ListReadyContent lists approved items that are due now.
func (s *ContentService) ListReadyContent(ctx context.Context, _ *v1.ListReadyContentRequest) (*v1.ListReadyContentReply, error) {
	items, err := s.uc.SelectReadyToPublish(ctx, s.now())
	if err != nil {
		s.logger.WithContext(ctx).Errorw("msg", "failed to list ready content", "error", err)
		return nil, toKratosError(err)
	}

	reply := &v1.ListReadyContentReply{Items: make([]*v1.ContentItem, 0, len(items)), Count: len(items)}
	for _, item := range items {
		reply.Items = append(reply.Items, toContentItem(item))
	}
	return reply, nil
}

// GetContent returns one item.
func (s *ContentService) GetContent(ctx context.Context, req *v1.GetContentRequest) (*v1.ContentReply, error) {
	if err := validate(s.validate, req); err != nil {
		return nil, err
	}
	item, err := s.uc.Get(ctx, req.Id)
	if err != nil {
		s.logger.WithContext(ctx).Debugw("msg", "failed to get content", "id", req.Id, "error", err)
		return nil, toKratosError(err)
	}
	return &v1.ContentReply{Item: toContentItem(item)}, nil
}

// SubmitContent moves a draft into review.
func (s *ContentService) SubmitContent(ctx context.Context, req *v1.SubmitContentRequest) (*v1.ContentReply, error) {
	req.Operator = operatorFrom(ctx, req.Operator)
	if err := validate(s.validate, req); err != nil {
		return nil, err
	}
	item, err := s.uc.SubmitForReview(ctx, req.Id, req.Operator)
	if err != nil {
		s.logger.WithContext(ctx).Warnw("msg", "submit for review failed", "id", req.Id, "error", err)
		return nil, toKratosError(err)
	}
	return &v1.ContentReply{Item: toContentItem(item)}, nil
}

// ApproveContent schedules an item under review, or reschedules a failed one.
func (s *ContentService) ApproveContent(ctx context.Context, req *v1.ApproveContentRequest) (*v1.ContentReply, error) {
	req.Operator = operatorFrom(ctx, req.Operator)
	if err := validate(s.validate, req); err != nil {
		return nil, err
	}
	item, err := s.uc.Approve(ctx, req.Id, req.ScheduledFor, req.Operator)
	if err != nil {
		s.logger.WithContext(ctx).Warnw("msg", "approve failed",
			"id", req.Id,
			"scheduled_for", req.ScheduledFor,
			"error", err)
		return nil, toKratosError(err)
	}
	return &v1.ContentReply{Item: toContentItem(item)}, nil
}

// RejectContent ends an item's lifecycle.
func (s *ContentService) RejectContent(ctx context.Context, req *v1.RejectContentRequest) (*v1.ContentReply, error) {
	req.Operator = operatorFrom(ctx, req.Operator)
	if err := validate(s.validate, req); err != nil {
		return nil, err
	}
	item, err := s.uc.Reject(ctx, req.Id, req.Operator)
	if err != nil {
		s.logger.WithContext(ctx).Warnw("msg", "reject failed", "id", req.Id, "error", err)
		return nil, toKratosError(err)
	}
	return &v1.ContentReply{Item: toContentItem(item)}, nil
}

// DeleteContent removes an item.
func (s *ContentService) DeleteContent(ctx context.Context, req *v1.DeleteContentRequest) (*v1.DeleteContentReply, error) {
	req.Operator = operatorFrom(ctx, req.Operator)
	if err := validate(s.validate, req); err != nil {
		return nil, err
	}
	if err := s.uc.Delete(ctx, req.Id, req.Operator); err != nil {
		s.logger.WithContext(ctx).Warnw("msg", "delete failed", "id", req.Id, "error", err)
		return nil, toKratosError(err)
	}
	return &v1.DeleteContentReply{Deleted: true}, nil
}

func toContentItem(item *model.ContentItem) *v1.ContentItem {
	return &v1.ContentItem{
		Id:             item.ID,
		Kind:           string(item.Kind),
		Platform:       item.Platform,
		Title:          item.Title,
		Body:           item.Body,
		Status:         string(item.Status),
		ScheduledFor:   item.ScheduledFor,
		ApprovedAt:     item.ApprovedAt,
		ApprovedBy:     item.ApprovedBy,
		PublishedAt:    item.PublishedAt,
		ErrorMessage:   item.ErrorMessage,
		PlatformPostId: item.PlatformPostID,
		RetryCount:     item.RetryCount,
		Version:        item.Version,
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
}
