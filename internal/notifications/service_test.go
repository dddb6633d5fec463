package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/pkg/db/models"
	"github.com/louretail/bopis-backend/pkg/enums"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
	"github.com/louretail/bopis-backend/pkg/pagination"
)

type fakeRepository struct {
	createFn      func(ctx context.Context, notification *models.Notification) error
	createBatchFn func(ctx context.Context, notifications []models.Notification) error
	findFn        func(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error)
	listFn        func(ctx context.Context, params ListQuery) ([]models.Notification, error)
	countFn       func(ctx context.Context, userID uuid.UUID) (int64, error)
	saveFn        func(ctx context.Context, notification *models.Notification) error
	markAllFn     func(ctx context.Context, userID uuid.UUID, readAt time.Time) (int64, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, notification *models.Notification) error {
	return f.createFn(ctx, notification)
}

func (f *fakeRepository) CreateBatch(ctx context.Context, notifications []models.Notification) error {
	return f.createBatchFn(ctx, notifications)
}

func (f *fakeRepository) FindByIDAndUser(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error) {
	return f.findFn(ctx, id, userID)
}

func (f *fakeRepository) ListByUser(ctx context.Context, params ListQuery) ([]models.Notification, error) {
	return f.listFn(ctx, params)
}

func (f *fakeRepository) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	return f.countFn(ctx, userID)
}

func (f *fakeRepository) Save(ctx context.Context, notification *models.Notification) error {
	return f.saveFn(ctx, notification)
}

func (f *fakeRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, readAt time.Time) (int64, error) {
	return f.markAllFn(ctx, userID, readAt)
}

func newServiceWithRepo(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc
}

func TestService_CreateDefaultsToUnread(t *testing.T) {
	var created *models.Notification
	svc := newServiceWithRepo(t, &fakeRepository{
		createFn: func(ctx context.Context, notification *models.Notification) error {
			created = notification
			return nil
		},
	})

	orderID := uuid.New()
	notification, err := svc.Create(context.Background(), CreateInput{
		UserID:         uuid.New(),
		TenantID:       uuid.New(),
		Message:        "  Order ready  ",
		RelatedOrderID: &orderID,
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "Order ready", notification.Message)
	assert.Equal(t, enums.NotificationStatusUnread, notification.Status)
	assert.Nil(t, notification.ReadAt)
}

func TestService_CreateBlankMessage(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{})

	_, err := svc.Create(context.Background(), CreateInput{
		UserID:   uuid.New(),
		TenantID: uuid.New(),
		Message:  "   ",
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestService_ListForUserPaginates(t *testing.T) {
	userID := uuid.New()
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	rows := make([]models.Notification, 0, pagination.DefaultLimit+1)
	for i := 0; i < pagination.DefaultLimit+1; i++ {
		rows = append(rows, models.Notification{
			ID:        uuid.New(),
			UserID:    userID,
			TenantID:  uuid.New(),
			Message:   "Order update",
			Status:    enums.NotificationStatusUnread,
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}

	svc := newServiceWithRepo(t, &fakeRepository{
		listFn: func(ctx context.Context, params ListQuery) ([]models.Notification, error) {
			assert.Equal(t, pagination.DefaultLimit+1, params.Limit)
			return rows, nil
		},
		countFn: func(ctx context.Context, uid uuid.UUID) (int64, error) {
			return 3, nil
		},
	})

	feed, err := svc.ListForUser(context.Background(), userID, false, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, feed.Notifications, pagination.DefaultLimit)
	assert.NotEmpty(t, feed.NextCursor)
	assert.Equal(t, int64(3), feed.UnreadCount)

	cursor, err := pagination.ParseCursor(feed.NextCursor)
	require.NoError(t, err)
	last := feed.Notifications[len(feed.Notifications)-1]
	assert.Equal(t, last.ID, cursor.ID)
}

func TestService_MarkReadSetsTimestamp(t *testing.T) {
	userID := uuid.New()
	stored := &models.Notification{
		ID:       uuid.New(),
		UserID:   userID,
		TenantID: uuid.New(),
		Message:  "Order ready",
		Status:   enums.NotificationStatusUnread,
	}
	svc := newServiceWithRepo(t, &fakeRepository{
		findFn: func(ctx context.Context, id, uid uuid.UUID) (*models.Notification, error) {
			return stored, nil
		},
		saveFn: func(ctx context.Context, notification *models.Notification) error {
			return nil
		},
	})

	notification, err := svc.MarkRead(context.Background(), userID, stored.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.NotificationStatusRead, notification.Status)
	require.NotNil(t, notification.ReadAt)
}

func TestService_MarkReadIdempotent(t *testing.T) {
	readAt := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	stored := &models.Notification{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Status: enums.NotificationStatusRead,
		ReadAt: &readAt,
	}
	saved := false
	svc := newServiceWithRepo(t, &fakeRepository{
		findFn: func(ctx context.Context, id, uid uuid.UUID) (*models.Notification, error) {
			return stored, nil
		},
		saveFn: func(ctx context.Context, notification *models.Notification) error {
			saved = true
			return nil
		},
	})

	notification, err := svc.MarkRead(context.Background(), stored.UserID, stored.ID)
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Equal(t, &readAt, notification.ReadAt)
}

func TestService_MarkReadNotFound(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{
		findFn: func(ctx context.Context, id, uid uuid.UUID) (*models.Notification, error) {
			return nil, gorm.ErrRecordNotFound
		},
	})

	_, err := svc.MarkRead(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestService_GetScopedToOwner(t *testing.T) {
	owner := uuid.New()
	notification := &models.Notification{ID: uuid.New(), UserID: owner, Status: enums.NotificationStatusUnread}
	svc := newServiceWithRepo(t, &fakeRepository{
		findFn: func(ctx context.Context, id, userID uuid.UUID) (*models.Notification, error) {
			if userID != owner {
				return nil, gorm.ErrRecordNotFound
			}
			return notification, nil
		},
	})

	got, err := svc.Get(context.Background(), owner, notification.ID)
	require.NoError(t, err)
	assert.Equal(t, notification.ID, got.ID)

	_, err = svc.Get(context.Background(), uuid.New(), notification.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}
