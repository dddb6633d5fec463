package timeslots

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/pkg/db/models"
)

// IncrementOutcome reports how an atomic slot reservation attempt resolved.
type IncrementOutcome int

const (
	IncrementApplied IncrementOutcome = iota
	IncrementSlotMissing
	IncrementSlotInactive
	IncrementSlotFull
)

// Repository exposes persistence helpers for pickup time slots. The counter
// mutations are single conditional UPDATEs so concurrent checkouts cannot
// overbook a slot.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, slot *models.PickupTimeSlot) error
	SaveDetails(ctx context.Context, slot *models.PickupTimeSlot) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	FindByIDAndTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.PickupTimeSlot, error)
	List(ctx context.Context, params ListQuery) ([]models.PickupTimeSlot, error)
	IncrementCurrentOrders(ctx context.Context, id, tenantID uuid.UUID) (IncrementOutcome, error)
	DecrementCurrentOrders(ctx context.Context, id, tenantID uuid.UUID) error
}

// ListQuery filters the slot listing.
type ListQuery struct {
	TenantID      uuid.UUID
	DateFrom      *time.Time
	DateTo        *time.Time
	IsActive      *bool
	OnlyAvailable bool
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a timeslots repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, slot *models.PickupTimeSlot) error {
	return r.db.WithContext(ctx).Create(slot).Error
}

// SaveDetails writes the editable slot fields. current_orders stays off the
// column list so a booking committed after the caller's read is never
// erased; the capacity guard re-checks against the live counter.
func (r *repositoryImpl) SaveDetails(ctx context.Context, slot *models.PickupTimeSlot) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PickupTimeSlot{}).
		Where("id = ? AND tenant_id = ? AND current_orders <= ?", slot.ID, slot.TenantID, slot.Capacity).
		Updates(map[string]any{
			"date":       slot.Date,
			"start_time": slot.StartTime,
			"end_time":   slot.EndTime,
			"capacity":   slot.Capacity,
			"is_active":  slot.IsActive,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.PickupTimeSlot{}, "id = ?", id).Error
}

func (r *repositoryImpl) FindByIDAndTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.PickupTimeSlot, error) {
	var slot models.PickupTimeSlot
	if err := r.db.WithContext(ctx).First(&slot, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

func (r *repositoryImpl) List(ctx context.Context, params ListQuery) ([]models.PickupTimeSlot, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", params.TenantID)
	if params.DateFrom != nil {
		query = query.Where("date >= ?", *params.DateFrom)
	}
	if params.DateTo != nil {
		query = query.Where("date <= ?", *params.DateTo)
	}
	if params.IsActive != nil {
		query = query.Where("is_active = ?", *params.IsActive)
	}
	if params.OnlyAvailable {
		query = query.Where("is_active = ? AND current_orders < capacity", true)
	}

	var slots []models.PickupTimeSlot
	if err := query.Order("date ASC, start_time ASC").Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

// IncrementCurrentOrders books one order into the slot. A zero-row update is
// re-read to tell the caller whether the slot is gone, paused, or full.
func (r *repositoryImpl) IncrementCurrentOrders(ctx context.Context, id, tenantID uuid.UUID) (IncrementOutcome, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PickupTimeSlot{}).
		Where("id = ? AND tenant_id = ? AND is_active = ? AND current_orders < capacity", id, tenantID, true).
		Update("current_orders", gorm.Expr("current_orders + 1"))
	if result.Error != nil {
		return IncrementSlotMissing, result.Error
	}
	if result.RowsAffected > 0 {
		return IncrementApplied, nil
	}

	var slot models.PickupTimeSlot
	if err := r.db.WithContext(ctx).First(&slot, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return IncrementSlotMissing, nil
		}
		return IncrementSlotMissing, err
	}
	if !slot.IsActive {
		return IncrementSlotInactive, nil
	}
	return IncrementSlotFull, nil
}

// DecrementCurrentOrders releases one booking. Counters never go below zero
// and draining an empty slot is a no-op.
func (r *repositoryImpl) DecrementCurrentOrders(ctx context.Context, id, tenantID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PickupTimeSlot{}).
		Where("id = ? AND tenant_id = ? AND current_orders > 0", id, tenantID).
		Update("current_orders", gorm.Expr("current_orders - 1")).Error
}
