package timeslots

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/pkg/config"
	"github.com/louretail/bopis-backend/pkg/db/models"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
	"github.com/louretail/bopis-backend/pkg/validate"
)

// CreateInput carries the fields accepted when scheduling a pickup window.
type CreateInput struct {
	Date      time.Time `json:"date" validate:"required"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
	Capacity  *int      `json:"capacity"`
	IsActive  *bool     `json:"is_active"`
}

// UpdateInput carries a partial slot update.
type UpdateInput struct {
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	Capacity  *int       `json:"capacity"`
	IsActive  *bool      `json:"is_active"`
}

// ListParams filters the slot listing for customers and staff.
type ListParams struct {
	DateFrom      *time.Time
	DateTo        *time.Time
	IsActive      *bool
	OnlyAvailable bool
}

// Service manages pickup time slots and their booking counters.
type Service interface {
	Create(ctx context.Context, tenantID uuid.UUID, in CreateInput) (*models.PickupTimeSlot, error)
	Update(ctx context.Context, tenantID, slotID uuid.UUID, in UpdateInput) (*models.PickupTimeSlot, error)
	Delete(ctx context.Context, tenantID, slotID uuid.UUID) error
	Get(ctx context.Context, tenantID, slotID uuid.UUID) (*models.PickupTimeSlot, error)
	List(ctx context.Context, tenantID uuid.UUID, params ListParams) ([]models.PickupTimeSlot, error)
	Reserve(ctx context.Context, tenantID, slotID uuid.UUID) error
	Release(ctx context.Context, tenantID, slotID uuid.UUID) error
}

type service struct {
	repo Repository
	cfg  config.PickupConfig
}

// NewService wires a timeslots service over the given repository.
func NewService(repo Repository, cfg config.PickupConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "timeslots repository is required")
	}
	return &service{repo: repo, cfg: cfg}, nil
}

func (s *service) Create(ctx context.Context, tenantID uuid.UUID, in CreateInput) (*models.PickupTimeSlot, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if !in.EndTime.After(in.StartTime) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end_time must be after start_time")
	}

	capacity := s.cfg.DefaultSlotCapacity
	if in.Capacity != nil {
		capacity = *in.Capacity
	}
	if capacity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "capacity must be positive")
	}
	active := true
	if in.IsActive != nil {
		active = *in.IsActive
	}

	slot := &models.PickupTimeSlot{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Date:      in.Date,
		StartTime: in.StartTime,
		EndTime:   in.EndTime,
		Capacity:  capacity,
		IsActive:  active,
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create time slot")
	}
	return slot, nil
}

func (s *service) Update(ctx context.Context, tenantID, slotID uuid.UUID, in UpdateInput) (*models.PickupTimeSlot, error) {
	slot, err := s.Get(ctx, tenantID, slotID)
	if err != nil {
		return nil, err
	}

	if in.StartTime != nil {
		slot.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		slot.EndTime = *in.EndTime
	}
	if !slot.EndTime.After(slot.StartTime) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "end_time must be after start_time")
	}
	if in.Capacity != nil {
		if *in.Capacity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "capacity must be positive")
		}
		if *in.Capacity < slot.CurrentOrders {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "capacity cannot drop below booked orders").
				WithDetails(map[string]any{"current_orders": slot.CurrentOrders})
		}
		slot.Capacity = *in.Capacity
	}
	if in.IsActive != nil {
		slot.IsActive = *in.IsActive
	}

	saved, err := s.repo.SaveDetails(ctx, slot)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update time slot")
	}
	if !saved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "capacity cannot drop below booked orders").
			WithDetails(map[string]any{"capacity": slot.Capacity})
	}
	return slot, nil
}

func (s *service) Delete(ctx context.Context, tenantID, slotID uuid.UUID) error {
	slot, err := s.Get(ctx, tenantID, slotID)
	if err != nil {
		return err
	}
	if slot.CurrentOrders > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "time slot has booked orders").
			WithDetails(map[string]any{"current_orders": slot.CurrentOrders})
	}
	if err := s.repo.Delete(ctx, slot.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete time slot")
	}
	return nil
}

func (s *service) Get(ctx context.Context, tenantID, slotID uuid.UUID) (*models.PickupTimeSlot, error) {
	slot, err := s.repo.FindByIDAndTenant(ctx, slotID, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "time slot not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load time slot")
	}
	return slot, nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, params ListParams) ([]models.PickupTimeSlot, error) {
	slots, err := s.repo.List(ctx, ListQuery{
		TenantID:      tenantID,
		DateFrom:      params.DateFrom,
		DateTo:        params.DateTo,
		IsActive:      params.IsActive,
		OnlyAvailable: params.OnlyAvailable,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list time slots")
	}
	return slots, nil
}

// Reserve books one order into the slot, translating the atomic update
// outcome into a caller-facing error.
func (s *service) Reserve(ctx context.Context, tenantID, slotID uuid.UUID) error {
	outcome, err := s.repo.IncrementCurrentOrders(ctx, slotID, tenantID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to reserve time slot")
	}
	switch outcome {
	case IncrementApplied:
		return nil
	case IncrementSlotMissing:
		return pkgerrors.New(pkgerrors.CodeNotFound, "time slot not found")
	case IncrementSlotInactive:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "time slot is not active")
	default:
		return pkgerrors.New(pkgerrors.CodeConflict, "time slot is full")
	}
}

func (s *service) Release(ctx context.Context, tenantID, slotID uuid.UUID) error {
	if err := s.repo.DecrementCurrentOrders(ctx, slotID, tenantID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to release time slot")
	}
	return nil
}
