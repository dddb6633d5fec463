package lanes

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/pkg/db/models"
	"github.com/louretail/bopis-backend/pkg/enums"
)

// Repository exposes persistence helpers for pickup lanes and staff
// assignments. Lane claiming runs as conditional UPDATEs so two counter
// staff cannot route different orders to the same lane.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, lane *models.Lane) error
	UpdateStatusFrom(ctx context.Context, laneID, tenantID uuid.UUID, from, to enums.LaneStatus) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByIDAndTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.Lane, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, status *enums.LaneStatus) ([]models.Lane, error)
	ClaimForOrder(ctx context.Context, laneID, tenantID, orderID uuid.UUID) (bool, error)
	Release(ctx context.Context, laneID, tenantID uuid.UUID) error
	BindOrder(ctx context.Context, orderID, tenantID, laneID uuid.UUID) (bool, error)
	UnbindOrder(ctx context.Context, orderID, tenantID uuid.UUID) error
	CreateAssignment(ctx context.Context, assignment *models.StaffAssignment) error
	SaveAssignment(ctx context.Context, assignment *models.StaffAssignment) error
	FindAssignment(ctx context.Context, id uuid.UUID) (*models.StaffAssignment, error)
	DeactivateActiveForUser(ctx context.Context, userID uuid.UUID, endedAt time.Time) (int64, error)
	ListAssignments(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]models.StaffAssignment, error)
	CountActiveAssignmentsForLane(ctx context.Context, laneID uuid.UUID) (int64, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a lanes repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, lane *models.Lane) error {
	return r.db.WithContext(ctx).Create(lane).Error
}

// UpdateStatusFrom writes only the status column, and only when the lane
// still matches the status the caller read and carries no order. Writing
// the whole row here could erase a concurrent claim's current_order_id.
func (r *repositoryImpl) UpdateStatusFrom(ctx context.Context, laneID, tenantID uuid.UUID, from, to enums.LaneStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Lane{}).
		Where("id = ? AND tenant_id = ? AND status = ? AND current_order_id IS NULL", laneID, tenantID, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Lane{}, "id = ?", id).Error
}

func (r *repositoryImpl) FindByIDAndTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.Lane, error) {
	var lane models.Lane
	if err := r.db.WithContext(ctx).First(&lane, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		return nil, err
	}
	return &lane, nil
}

func (r *repositoryImpl) ListByTenant(ctx context.Context, tenantID uuid.UUID, status *enums.LaneStatus) ([]models.Lane, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var lanes []models.Lane
	if err := query.Order("name ASC").Find(&lanes).Error; err != nil {
		return nil, err
	}
	return lanes, nil
}

// ClaimForOrder marks an open, empty lane busy with the given order. Returns
// false when the lane was already taken or is not open.
func (r *repositoryImpl) ClaimForOrder(ctx context.Context, laneID, tenantID, orderID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Lane{}).
		Where("id = ? AND tenant_id = ? AND status = ? AND current_order_id IS NULL", laneID, tenantID, enums.LaneStatusOpen).
		Updates(map[string]any{
			"status":           enums.LaneStatusBusy,
			"current_order_id": orderID,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Release(ctx context.Context, laneID, tenantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Lane{}).
		Where("id = ? AND tenant_id = ?", laneID, tenantID).
		Updates(map[string]any{
			"status":           enums.LaneStatusOpen,
			"current_order_id": nil,
		}).Error
}

// BindOrder stamps the lane onto an order that is not yet routed anywhere.
func (r *repositoryImpl) BindOrder(ctx context.Context, orderID, tenantID, laneID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND tenant_id = ? AND status = ? AND assigned_lane_id IS NULL",
			orderID, tenantID, enums.OrderStatusReadyForPickup).
		Update("assigned_lane_id", laneID)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) UnbindOrder(ctx context.Context, orderID, tenantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND tenant_id = ?", orderID, tenantID).
		Update("assigned_lane_id", nil).Error
}

func (r *repositoryImpl) CreateAssignment(ctx context.Context, assignment *models.StaffAssignment) error {
	return r.db.WithContext(ctx).Create(assignment).Error
}

func (r *repositoryImpl) SaveAssignment(ctx context.Context, assignment *models.StaffAssignment) error {
	return r.db.WithContext(ctx).Save(assignment).Error
}

func (r *repositoryImpl) FindAssignment(ctx context.Context, id uuid.UUID) (*models.StaffAssignment, error) {
	var assignment models.StaffAssignment
	if err := r.db.WithContext(ctx).First(&assignment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &assignment, nil
}

// DeactivateActiveForUser ends every active assignment the user holds,
// across tenants. A counter staff member works at most one lane at a time.
func (r *repositoryImpl) DeactivateActiveForUser(ctx context.Context, userID uuid.UUID, endedAt time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.StaffAssignment{}).
		Where("user_id = ? AND is_active = ?", userID, true).
		Updates(map[string]any{
			"is_active": false,
			"end_time":  endedAt,
		})
	return result.RowsAffected, result.Error
}

func (r *repositoryImpl) ListAssignments(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]models.StaffAssignment, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID)
	if activeOnly {
		query = query.Where("is_active = ?", true)
	}

	var assignments []models.StaffAssignment
	if err := query.Order("start_time DESC").Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *repositoryImpl) CountActiveAssignmentsForLane(ctx context.Context, laneID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StaffAssignment{}).
		Where("lane_id = ? AND is_active = ?", laneID, true).
		Count(&count).Error
	return count, err
}
