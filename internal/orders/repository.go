package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/pkg/db/models"
	"github.com/louretail/bopis-backend/pkg/enums"
	"github.com/louretail/bopis-backend/pkg/pagination"
)

// Repository exposes persistence helpers for orders and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	Save(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByIDAndTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.Order, error)
	FindCart(ctx context.Context, userID, tenantID uuid.UUID) (*models.Order, error)
	FindByPickupToken(ctx context.Context, token string, tenantID uuid.UUID) (*models.Order, error)
	CreateItem(ctx context.Context, item *models.OrderItem) error
	SaveItem(ctx context.Context, item *models.OrderItem) error
	DeleteItem(ctx context.Context, id uuid.UUID) error
	ListForUser(ctx context.Context, params UserListQuery) ([]models.Order, error)
	ListForTenant(ctx context.Context, params TenantListQuery) ([]models.Order, error)
	ListFulfillmentQueue(ctx context.Context, tenantID uuid.UUID) ([]models.Order, error)
	ListReadyForPickup(ctx context.Context, params CounterListQuery) ([]models.Order, error)
	ReleaseLane(ctx context.Context, laneID, tenantID uuid.UUID) error
}

// UserListQuery pages a customer's own order history.
type UserListQuery struct {
	UserID uuid.UUID
	Limit  int
	Cursor *pagination.Cursor
}

// TenantListQuery pages a tenant's orders for staff surfaces.
type TenantListQuery struct {
	TenantID uuid.UUID
	Statuses []enums.OrderStatus
	Limit    int
	Cursor   *pagination.Cursor
}

// CounterListQuery filters the pickup counter's working set.
type CounterListQuery struct {
	TenantID   uuid.UUID
	LaneID     *uuid.UUID
	Unassigned bool
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an orders repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repositoryImpl) Save(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Save(order).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) FindByIDAndTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Preload("Items").First(&order, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindCart returns the user's open cart in the tenant. There is at most one,
// enforced by a partial unique index.
func (r *repositoryImpl) FindCart(ctx context.Context, userID, tenantID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "user_id = ? AND tenant_id = ? AND status = ?", userID, tenantID, enums.OrderStatusCart).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) FindByPickupToken(ctx context.Context, token string, tenantID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "pickup_token = ? AND tenant_id = ?", token, tenantID).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repositoryImpl) CreateItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repositoryImpl) SaveItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repositoryImpl) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.OrderItem{}, "id = ?", id).Error
}

func (r *repositoryImpl) ListForUser(ctx context.Context, params UserListQuery) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("user_id = ? AND status <> ?", params.UserID, enums.OrderStatusCart)
	if params.Cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var orders []models.Order
	err := query.
		Order("created_at DESC, id DESC").
		Limit(params.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repositoryImpl) ListForTenant(ctx context.Context, params TenantListQuery) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ?", params.TenantID)
	if len(params.Statuses) > 0 {
		query = query.Where("status IN ?", params.Statuses)
	} else {
		query = query.Where("status <> ?", enums.OrderStatusCart)
	}
	if params.Cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var orders []models.Order
	err := query.
		Order("created_at DESC, id DESC").
		Limit(params.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ListFulfillmentQueue returns the picker work list, oldest first so pickers
// drain the backlog in arrival order.
func (r *repositoryImpl) ListFulfillmentQueue(ctx context.Context, tenantID uuid.UUID) ([]models.Order, error) {
	var orders []models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND status IN ?", tenantID, []enums.OrderStatus{
			enums.OrderStatusConfirmed,
			enums.OrderStatusProcessing,
		}).
		Order("created_at ASC, id ASC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repositoryImpl) ListReadyForPickup(ctx context.Context, params CounterListQuery) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Items").
		Where("tenant_id = ? AND status = ?", params.TenantID, enums.OrderStatusReadyForPickup)
	if params.LaneID != nil {
		query = query.Where("assigned_lane_id = ?", *params.LaneID)
	} else if params.Unassigned {
		query = query.Where("assigned_lane_id IS NULL")
	}

	var orders []models.Order
	if err := query.Order("updated_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// ReleaseLane reopens a lane once its order leaves the counter. Part of this
// repository so completion can commit the order and the lane together.
func (r *repositoryImpl) ReleaseLane(ctx context.Context, laneID, tenantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Lane{}).
		Where("id = ? AND tenant_id = ?", laneID, tenantID).
		Updates(map[string]any{
			"status":           enums.LaneStatusOpen,
			"current_order_id": nil,
		}).Error
}
