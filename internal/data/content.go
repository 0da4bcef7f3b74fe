package data

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"time"

	"PostLane/internal/model"
	pkgerrors "PostLane/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// readyBatchLimit caps one publish run.
const readyBatchLimit = 500

// ContentStatus represents the database ENUM type for content status.
type ContentStatus string

// Scan implements sql.Scanner interface for ContentStatus.
func (s *ContentStatus) Scan(value interface{}) error {
	if value == nil {
		*s = ""
		return nil
	}
	switch v := value.(type) {
	case []byte:
		*s = ContentStatus(v)
	case string:
		*s = ContentStatus(v)
	default:
		return fmt.Errorf("cannot scan type %T into ContentStatus", value)
	}
	return nil
}

// Value implements driver.Valuer interface for ContentStatus.
func (s ContentStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// ContentItem is the GORM model for content_items table.
type ContentItem struct {
	ID             int64         `gorm:"primaryKey;column:id"`
	Kind           string        `gorm:"column:kind;type:enum('blog_post','social_post');not null"`
	Platform       string        `gorm:"column:platform;size:64;not null;index:idx_platform"`
	Title          string        `gorm:"column:title;size:255;not null"`
	Body           string        `gorm:"column:body;type:mediumtext"`
	Status         ContentStatus `gorm:"column:status;type:enum('draft','pending_review','approved','published','failed','rejected');default:'draft';not null;index:idx_status_scheduled,priority:1"`
	ScheduledFor   *time.Time    `gorm:"column:scheduled_for;index:idx_status_scheduled,priority:2"`
	ApprovedAt     *time.Time    `gorm:"column:approved_at"`
	ApprovedBy     string        `gorm:"column:approved_by;size:128"`
	PublishedAt    *time.Time    `gorm:"column:published_at"`
	ErrorMessage   string        `gorm:"column:error_message;type:text"`
	PlatformPostID string        `gorm:"column:platform_post_id;size:255"`
	RetryCount     int32         `gorm:"column:retry_count;default:0;not null"`
	Version        int32         `gorm:"column:version;default:1;not null"` // 乐观锁版本号
	CreatedAt      time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM.
func (ContentItem) TableName() string {
	return "content_items"
}

// toModel converts the row to the domain type.
func (c *ContentItem) toModel() *model.ContentItem {
	return &model.ContentItem{
		ID:             c.ID,
		Kind:           model.ContentKind(c.Kind),
		Platform:       c.Platform,
		Title:          c.Title,
		Body:           c.Body,
		Status:         model.ContentStatus(c.Status),
		ScheduledFor:   utcPtr(c.ScheduledFor),
		ApprovedAt:     utcPtr(c.ApprovedAt),
		ApprovedBy:     c.ApprovedBy,
		PublishedAt:    utcPtr(c.PublishedAt),
		ErrorMessage:   c.ErrorMessage,
		PlatformPostID: c.PlatformPostID,
		RetryCount:     c.RetryCount,
		Version:        c.Version,
		CreatedAt:      c.CreatedAt.UTC(),
		UpdatedAt:      c.UpdatedAt.UTC(),
	}
}

func contentItemFromModel(m *model.ContentItem) *ContentItem {
	return &ContentItem{
		ID:             m.ID,
		Kind:           string(m.Kind),
		Platform:       m.Platform,
		Title:          m.Title,
		Body:           m.Body,
		Status:         ContentStatus(m.Status),
		ScheduledFor:   m.ScheduledFor,
		ApprovedAt:     m.ApprovedAt,
		ApprovedBy:     m.ApprovedBy,
		PublishedAt:    m.PublishedAt,
		ErrorMessage:   m.ErrorMessage,
		PlatformPostID: m.PlatformPostID,
		RetryCount:     m.RetryCount,
		Version:        m.Version,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// ContentRepo implements biz.ContentRepo interface.
// Following Kratos v2 DDD architecture, interface is defined in biz layer.
type ContentRepo struct {
	db       *gorm.DB
	cache    CacheClient
	cacheTTL time.Duration
	logger   *log.Helper
}

// NewContentRepo creates a new content repository.
func NewContentRepo(data *Data, db *gorm.DB, logger log.Logger) *ContentRepo {
	return &ContentRepo{
		db:       db,
		cache:    data.GetCache(),
		cacheTTL: data.CacheTTL(),
		logger:   log.NewHelper(logger),
	}
}

// Create inserts a new item at version 1.
func (r *ContentRepo) Create(ctx context.Context, item *model.ContentItem) error {
	row := contentItemFromModel(item)
	row.Version = 1
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		dbErr := pkgerrors.ClassifyDBError(err)
		switch dbErr.Type {
		case pkgerrors.ErrorTypeDataTooLong:
			r.logger.Warnw("msg", "content field too long",
				"platform", item.Platform,
				"title_len", len(item.Title),
				"error", dbErr.Error())
		case pkgerrors.ErrorTypeConnectionError:
			r.logger.Errorw("msg", "database connection error", "error", dbErr.Error())
		default:
			r.logger.Errorw("msg", "failed to create content item",
				"platform", item.Platform,
				"error", dbErr.Error())
		}
		return dbErr
	}

	item.ID = row.ID
	item.Version = row.Version
	item.CreatedAt = row.CreatedAt.UTC()
	item.UpdatedAt = row.UpdatedAt.UTC()
	return nil
}

// Get retrieves an item by ID with caching.
// Cache key: "content:{id}"
func (r *ContentRepo) Get(ctx context.Context, id int64) (*model.ContentItem, error) {
	cacheKey := ContentCacheKey(id)

	// Try to get from cache first
	var cached ContentItem
	if err := r.cache.Get(ctx, cacheKey, &cached); err == nil {
		r.logger.Debugw("msg", "content cache hit", "id", id)
		return cached.toModel(), nil
	} else if !errors.Is(err, ErrCacheNotFound) {
		r.logger.Debugw("msg", "content cache unavailable, reading database", "id", id, "error", err)
	}

	row, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, cacheKey, row, r.cacheTTL); err != nil {
		r.logger.Warnw("msg", "failed to cache content item", "id", id, "error", err)
	}
	return row.toModel(), nil
}

// Load reads an item from the database, bypassing the cache.
func (r *ContentRepo) Load(ctx context.Context, id int64) (*model.ContentItem, error) {
	row, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return row.toModel(), nil
}

func (r *ContentRepo) load(ctx context.Context, id int64) (*ContentItem, error) {
	var row ContentItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		r.logger.Errorw("msg", "failed to load content item", "id", id, "error", err)
		return nil, pkgerrors.ClassifyDBError(err)
	}
	return &row, nil
}

// UpdateIfVersion writes every mutable column of item only if the stored version
// still equals expectedVersion. On success item.Version is advanced.
func (r *ContentRepo) UpdateIfVersion(ctx context.Context, item *model.ContentItem, expectedVersion int32) error {
	now := time.Now().UTC()
	result := r.db.WithContext(ctx).
		Model(&ContentItem{}).
		Where("id = ? AND version = ?", item.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":           string(item.Status),
			"title":            item.Title,
			"body":             item.Body,
			"scheduled_for":    item.ScheduledFor,
			"approved_at":      item.ApprovedAt,
			"approved_by":      item.ApprovedBy,
			"published_at":     item.PublishedAt,
			"error_message":    item.ErrorMessage,
			"platform_post_id": item.PlatformPostID,
			"retry_count":      item.RetryCount,
			"version":          expectedVersion + 1,
			"updated_at":       now,
		})
	if result.Error != nil {
		dbErr := pkgerrors.ClassifyDBError(result.Error)
		if dbErr.Transient() {
			r.logger.Warnw("msg", "transient error updating content item", "id", item.ID, "error_type", dbErr.Type.String(), "error", dbErr.Error())
		} else {
			r.logger.Errorw("msg", "failed to update content item", "id", item.ID, "error", dbErr.Error())
		}
		return dbErr
	}

	if result.RowsAffected == 0 {
		// 区分记录不存在和版本冲突
		var count int64
		if err := r.db.WithContext(ctx).Model(&ContentItem{}).Where("id = ?", item.ID).Count(&count).Error; err != nil {
			return pkgerrors.ClassifyDBError(err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	item.Version = expectedVersion + 1
	item.UpdatedAt = now
	r.invalidate(ctx, item.ID)
	return nil
}

// ListReady returns approved items scheduled at or before now, earliest first.
func (r *ContentRepo) ListReady(ctx context.Context, now time.Time) ([]*model.ContentItem, error) {
	var rows []ContentItem
	err := r.db.WithContext(ctx).
		Where("status = ? AND scheduled_for <= ?", string(model.ContentApproved), now.UTC()).
		Order("scheduled_for ASC, id ASC").
		Limit(readyBatchLimit).
		Find(&rows).Error
	if err != nil {
		r.logger.Errorw("msg", "failed to list ready content", "error", err)
		return nil, pkgerrors.ClassifyDBError(err)
	}

	items := make([]*model.ContentItem, 0, len(rows))
	for i := range rows {
		items = append(items, rows[i].toModel())
	}
	return items, nil
}

// Delete removes an item and its cache entry.
func (r *ContentRepo) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&ContentItem{}, id)
	if result.Error != nil {
		r.logger.Errorw("msg", "failed to delete content item", "id", id, "error", result.Error)
		return pkgerrors.ClassifyDBError(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *ContentRepo) invalidate(ctx context.Context, id int64) {
	if err := r.cache.Delete(ctx, ContentCacheKey(id)); err != nil {
		r.logger.Warnw("msg", "failed to delete content cache", "id", id, "error", err)
	}
}
