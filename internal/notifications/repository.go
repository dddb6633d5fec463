package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/pkg/db/models"
	"github.com/louretail/bopis-backend/pkg/enums"
	"github.com/louretail/bopis-backend/pkg/pagination"
)

// Repository exposes persistence helpers for user notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) error
	CreateBatch(ctx context.Context, notifications []models.Notification) error
	FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error)
	ListByUser(ctx context.Context, params ListQuery) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID uuid.UUID) (int64, error)
	Save(ctx context.Context, notification *models.Notification) error
	MarkAllRead(ctx context.Context, userID uuid.UUID, readAt time.Time) (int64, error)
}

// ListQuery filters the per-user notification feed.
type ListQuery struct {
	UserID     uuid.UUID
	UnreadOnly bool
	Limit      int
	Cursor     *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Create(notification).Error
}

func (r *repositoryImpl) CreateBatch(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&notifications).Error
}

func (r *repositoryImpl) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error) {
	var notification models.Notification
	if err := r.db.WithContext(ctx).First(&notification, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

// ListByUser pages the feed newest first. The cursor points at the last row
// of the previous page.
func (r *repositoryImpl) ListByUser(ctx context.Context, params ListQuery) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", params.UserID)
	if params.UnreadOnly {
		query = query.Where("status = ?", enums.NotificationStatusUnread)
	}
	if params.Cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var notifications []models.Notification
	err := query.
		Order("created_at DESC, id DESC").
		Limit(params.Limit).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *repositoryImpl) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND status = ?", userID, enums.NotificationStatusUnread).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) Save(ctx context.Context, notification *models.Notification) error {
	return r.db.WithContext(ctx).Save(notification).Error
}

func (r *repositoryImpl) MarkAllRead(ctx context.Context, userID uuid.UUID, readAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND status = ?", userID, enums.NotificationStatusUnread).
		Updates(map[string]any{
			"status":  enums.NotificationStatusRead,
			"read_at": readAt,
		})
	return result.RowsAffected, result.Error
}
