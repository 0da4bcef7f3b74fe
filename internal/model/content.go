// Package model holds the domain types shared by the biz and data layers.
package model

import (
	"fmt"
	"time"
)

// ContentKind distinguishes the publishable unit types.
type ContentKind string

const (
	KindBlogPost   ContentKind = "blog_post"
	KindSocialPost ContentKind = "social_post"
)

// ContentStatus is the lifecycle status of a content item.
type ContentStatus string

const (
	ContentDraft         ContentStatus = "draft"
	ContentPendingReview ContentStatus = "pending_review"
	ContentApproved      ContentStatus = "approved"
	ContentPublished     ContentStatus = "published"
	ContentFailed        ContentStatus = "failed"
	ContentRejected      ContentStatus = "rejected"
)

// Valid reports whether s is one of the known statuses.
func (s ContentStatus) Valid() bool {
	_, ok := contentTransitions[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s ContentStatus) Terminal() bool {
	return len(contentTransitions[s]) == 0
}

// contentTransitions lists every allowed edge of the lifecycle.
// failed -> approved is the manual retry path, approved -> rejected the manual override.
var contentTransitions = map[ContentStatus][]ContentStatus{
	ContentDraft:         {ContentPendingReview},
	ContentPendingReview: {ContentApproved, ContentRejected},
	ContentApproved:      {ContentPublished, ContentFailed, ContentRejected},
	ContentFailed:        {ContentApproved},
	ContentPublished:     {},
	ContentRejected:      {},
}

// CanTransition reports whether from -> to is an edge of the lifecycle.
func CanTransition(from, to ContentStatus) bool {
	for _, allowed := range contentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ContentItem is a publishable unit (blog post, social post) tracked through review and publication.
type ContentItem struct {
	ID             int64
	Kind           ContentKind
	Platform       string
	Title          string
	Body           string
	Status         ContentStatus
	ScheduledFor   *time.Time
	ApprovedAt     *time.Time
	ApprovedBy     string
	PublishedAt    *time.Time
	ErrorMessage   string
	PlatformPostID string
	RetryCount     int32
	Version        int32
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TransitionError describes a rejected lifecycle edge.
type TransitionError struct {
	ItemID int64
	From   ContentStatus
	To     ContentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("content item %d: invalid transition %s -> %s", e.ItemID, e.From, e.To)
}

// Clone returns a deep copy so callers can apply a transition without touching the original.
func (c *ContentItem) Clone() *ContentItem {
	out := *c
	out.ScheduledFor = cloneTime(c.ScheduledFor)
	out.ApprovedAt = cloneTime(c.ApprovedAt)
	out.PublishedAt = cloneTime(c.PublishedAt)
	return &out
}

func (c *ContentItem) move(to ContentStatus) error {
	if !CanTransition(c.Status, to) {
		return &TransitionError{ItemID: c.ID, From: c.Status, To: to}
	}
	c.Status = to
	return nil
}

// SubmitForReview moves a draft into the review queue.
func (c *ContentItem) SubmitForReview() error {
	return c.move(ContentPendingReview)
}

// Approve schedules the item. It is valid from pending_review and, as a manual retry, from failed.
// The caller is responsible for checking that scheduledFor is not in the past.
func (c *ContentItem) Approve(now, scheduledFor time.Time, approvedBy string) error {
	retry := c.Status == ContentFailed
	if err := c.move(ContentApproved); err != nil {
		return err
	}
	at := scheduledFor.UTC()
	approvedAt := now.UTC()
	c.ScheduledFor = &at
	c.ApprovedAt = &approvedAt
	c.ApprovedBy = approvedBy
	if retry {
		c.RetryCount++
		c.ErrorMessage = ""
	}
	return nil
}

// Reject ends the lifecycle from pending_review, or overrides an approval.
func (c *ContentItem) Reject() error {
	return c.move(ContentRejected)
}

// MarkPublished records a successful publication. A second call on a published item is a no-op.
func (c *ContentItem) MarkPublished(now time.Time, platformPostID string) (changed bool, err error) {
	if c.Status == ContentPublished {
		return false, nil
	}
	if err := c.move(ContentPublished); err != nil {
		return false, err
	}
	at := now.UTC()
	c.PublishedAt = &at
	c.PlatformPostID = platformPostID
	c.ErrorMessage = ""
	return true, nil
}

// MarkFailed records a failed publication attempt.
func (c *ContentItem) MarkFailed(errorMessage string) error {
	if err := c.move(ContentFailed); err != nil {
		return err
	}
	c.ErrorMessage = errorMessage
	return nil
}

// ReadyAt reports whether the item is approved and due at now.
func (c *ContentItem) ReadyAt(now time.Time) bool {
	return c.Status == ContentApproved && c.ScheduledFor != nil && !c.ScheduledFor.After(now)
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
