package notifications

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/pkg/db/models"
	"github.com/louretail/bopis-backend/pkg/enums"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
	"github.com/louretail/bopis-backend/pkg/pagination"
)

// CreateInput carries one notification to fan out.
type CreateInput struct {
	UserID         uuid.UUID
	TenantID       uuid.UUID
	Message        string
	RelatedOrderID *uuid.UUID
}

// Feed is one page of a user's notifications.
type Feed struct {
	Notifications []models.Notification
	NextCursor    string
	UnreadCount   int64
}

// Service manages per-user notification feeds.
type Service interface {
	Create(ctx context.Context, in CreateInput) (*models.Notification, error)
	CreateBatch(ctx context.Context, inputs []CreateInput) error
	Get(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error)
	ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, params pagination.Params) (*Feed, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	Archive(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService wires a notifications service over the given repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository is required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

func (s *service) Create(ctx context.Context, in CreateInput) (*models.Notification, error) {
	notification, err := buildNotification(in)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create notification")
	}
	return notification, nil
}

// CreateBatch inserts one notification per input in a single statement. Used
// by order fan-out so every staff member sees the same event.
func (s *service) CreateBatch(ctx context.Context, inputs []CreateInput) error {
	notifications := make([]models.Notification, 0, len(inputs))
	for _, in := range inputs {
		notification, err := buildNotification(in)
		if err != nil {
			return err
		}
		notifications = append(notifications, *notification)
	}
	if err := s.repo.CreateBatch(ctx, notifications); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create notifications")
	}
	return nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, params pagination.Params) (*Feed, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	notifications, err := s.repo.ListByUser(ctx, ListQuery{
		UserID:     userID,
		UnreadOnly: unreadOnly,
		Limit:      limit + 1,
		Cursor:     cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list notifications")
	}

	next := ""
	if len(notifications) > limit {
		notifications = notifications[:limit]
		last := notifications[len(notifications)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to count unread notifications")
	}
	return &Feed{Notifications: notifications, NextCursor: next, UnreadCount: unread}, nil
}

// Get returns a notification only when it belongs to the given user.
func (s *service) Get(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
	return s.find(ctx, userID, notificationID)
}

func (s *service) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
	notification, err := s.find(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	if notification.Status == enums.NotificationStatusRead {
		return notification, nil
	}

	readAt := s.now().UTC()
	notification.Status = enums.NotificationStatusRead
	notification.ReadAt = &readAt
	if err := s.repo.Save(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to mark notification read")
	}
	return notification, nil
}

func (s *service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, userID, s.now().UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to mark notifications read")
	}
	return updated, nil
}

func (s *service) Archive(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
	notification, err := s.find(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	notification.Status = enums.NotificationStatusArchived
	if err := s.repo.Save(ctx, notification); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to archive notification")
	}
	return notification, nil
}

func (s *service) find(ctx context.Context, userID, notificationID uuid.UUID) (*models.Notification, error) {
	notification, err := s.repo.FindByIDAndUser(ctx, notificationID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load notification")
	}
	return notification, nil
}

func buildNotification(in CreateInput) (*models.Notification, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message is required")
	}
	return &models.Notification{
		ID:             uuid.New(),
		UserID:         in.UserID,
		TenantID:       in.TenantID,
		Message:        message,
		RelatedOrderID: in.RelatedOrderID,
		Status:         enums.NotificationStatusUnread,
	}, nil
}
