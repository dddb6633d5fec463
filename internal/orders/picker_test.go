package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/louretail/bopis-backend/pkg/db/models"
	"github.com/louretail/bopis-backend/pkg/enums"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
)

func TestService_StartProcessing(t *testing.T) {
	tenantID := uuid.New()
	order := &models.Order{ID: uuid.New(), TenantID: tenantID, Status: enums.OrderStatusConfirmed}
	svc := newServiceWithDeps(t, deps{
		repo: &fakeRepository{
			findTenantFn: func(ctx context.Context, id, tid uuid.UUID) (*models.Order, error) {
				return order, nil
			},
			saveFn: func(ctx context.Context, o *models.Order) error {
				return nil
			},
		},
	})

	updated, err := svc.StartProcessing(context.Background(), tenantID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, updated.Status)
}

func TestService_StartProcessingInvalidState(t *testing.T) {
	tenantID := uuid.New()
	order := &models.Order{ID: uuid.New(), TenantID: tenantID, Status: enums.OrderStatusCompleted}
	svc := newServiceWithDeps(t, deps{
		repo: &fakeRepository{
			findTenantFn: func(ctx context.Context, id, tid uuid.UUID) (*models.Order, error) {
				return order, nil
			},
		},
	})

	_, err := svc.StartProcessing(context.Background(), tenantID, order.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestService_MarkReadyNotifiesCounterStaff(t *testing.T) {
	tenantID := uuid.New()
	token := "tok-1234"
	order := &models.Order{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Status:      enums.OrderStatusProcessing,
		PickupToken: &token,
	}
	counter := models.User{ID: uuid.New(), Role: enums.UserRoleCounter, IsActive: true}
	admin := models.User{ID: uuid.New(), Role: enums.UserRoleTenantAdmin, IsActive: true}
	picker := models.User{ID: uuid.New(), Role: enums.UserRolePicker, IsActive: true}
	inactive := models.User{ID: uuid.New(), Role: enums.UserRoleCounter, IsActive: false}

	notifier := &fakeNotifier{}
	svc := newServiceWithDeps(t, deps{
		repo: &fakeRepository{
			findTenantFn: func(ctx context.Context, id, tid uuid.UUID) (*models.Order, error) {
				return order, nil
			},
			saveFn: func(ctx context.Context, o *models.Order) error {
				return nil
			},
		},
		staff:    &fakeStaffLister{users: []models.User{counter, admin, picker, inactive}},
		notifier: notifier,
	})

	updated, err := svc.MarkReady(context.Background(), tenantID, order.ID, "fragile, keep upright")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusReadyForPickup, updated.Status)

	require.Len(t, notifier.batches, 1)
	batch := notifier.batches[0]
	require.Len(t, batch, 2)
	recipients := []uuid.UUID{batch[0].UserID, batch[1].UserID}
	assert.ElementsMatch(t, []uuid.UUID{counter.ID, admin.ID}, recipients)
	assert.Contains(t, batch[0].Message, "Token: tok-1234")
	assert.Contains(t, batch[0].Message, "READY FOR PICKUP")
	assert.Contains(t, batch[0].Message, "Picker notes: fragile, keep upright")
	require.NotNil(t, batch[0].RelatedOrderID)
	assert.Equal(t, order.ID, *batch[0].RelatedOrderID)
}

func TestService_MarkReadyWithoutNotes(t *testing.T) {
	tenantID := uuid.New()
	token := "tok-9"
	order := &models.Order{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Status:      enums.OrderStatusProcessing,
		PickupToken: &token,
	}
	counter := models.User{ID: uuid.New(), Role: enums.UserRoleCounter, IsActive: true}
	notifier := &fakeNotifier{}
	svc := newServiceWithDeps(t, deps{
		repo: &fakeRepository{
			findTenantFn: func(ctx context.Context, id, tid uuid.UUID) (*models.Order, error) {
				return order, nil
			},
			saveFn: func(ctx context.Context, o *models.Order) error {
				return nil
			},
		},
		staff:    &fakeStaffLister{users: []models.User{counter}},
		notifier: notifier,
	})

	_, err := svc.MarkReady(context.Background(), tenantID, order.ID, "   ")
	require.NoError(t, err)
	require.Len(t, notifier.batches, 1)
	assert.NotContains(t, notifier.batches[0][0].Message, "Picker notes")
}

func TestService_ListFulfillmentQueue(t *testing.T) {
	tenantID := uuid.New()
	svc := newServiceWithDeps(t, deps{
		repo: &fakeRepository{
			listQueueFn: func(ctx context.Context, tid uuid.UUID) ([]models.Order, error) {
				assert.Equal(t, tenantID, tid)
				return []models.Order{{ID: uuid.New(), Status: enums.OrderStatusConfirmed}}, nil
			},
		},
	})

	orders, err := svc.ListFulfillmentQueue(context.Background(), tenantID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}
