package lanes

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
)

// txRunner runs a function inside a database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// userFinder resolves staff members inside a tenant.
type userFinder interface {
	FindByIDAndTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.User, error)
}

// Service manages pickup lanes, their occupancy, and counter staffing.
type Service interface {
	CreateLane(ctx context.Context, tenantID uuid.UUID, name string) (*models.Lane, error)
	UpdateLaneStatus(ctx context.Context, tenantID, laneID uuid.UUID, status enums.LaneStatus) (*models.Lane, error)
	DeleteLane(ctx context.Context, tenantID, laneID uuid.UUID) error
	GetLane(ctx context.Context, tenantID, laneID uuid.UUID) (*models.Lane, error)
	ListLanes(ctx context.Context, tenantID uuid.UUID, status *enums.LaneStatus) ([]models.Lane, error)
	AssignOrder(ctx context.Context, tenantID, laneID, orderID uuid.UUID) (*models.Lane, error)
	ClearLane(ctx context.Context, tenantID, laneID uuid.UUID) (*models.Lane, error)
	AssignStaff(ctx context.Context, tenantID, userID uuid.UUID, laneID *uuid.UUID) (*models.StaffAssignment, error)
	UnassignStaff(ctx context.Context, tenantID, assignmentID uuid.UUID) (*models.StaffAssignment, error)
	ListAssignments(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]models.StaffAssignment, error)
}

type service struct {
	repo  Repository
	users userFinder
	tx    txRunner
	now   func() time.Time
}

// NewService wires a lanes service over the given repository and collaborators.
func NewService(repo Repository, users userFinder, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "lanes repository is required")
	}
	if users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "user finder is required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner is required")
	}
	return &service{repo: repo, users: users, tx: tx, now: time.Now}, nil
}

func (s *service) CreateLane(ctx context.Context, tenantID uuid.UUID, name string) (*models.Lane, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lane name is required")
	}

	lane := &models.Lane{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     name,
		Status:   enums.LaneStatusOpen,
	}
	if err := s.repo.Create(ctx, lane); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create lane")
	}
	return lane, nil
}

func (s *service) UpdateLaneStatus(ctx context.Context, tenantID, laneID uuid.UUID, status enums.LaneStatus) (*models.Lane, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown lane status")
	}
	// BUSY pairs the lane with an order. Only AssignOrder's claim may set it,
	// otherwise a lane could be BUSY with no order attached.
	if status == enums.LaneStatusBusy {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "lanes become busy through order assignment")
	}

	lane, err := s.GetLane(ctx, tenantID, laneID)
	if err != nil {
		return nil, err
	}
	if !lane.Status.CanTransitionTo(status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invalid lane status transition").
			WithDetails(map[string]any{"from": lane.Status, "to": status})
	}
	if lane.CurrentOrderID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "lane has an order assigned, clear it first")
	}

	changed, err := s.repo.UpdateStatusFrom(ctx, lane.ID, tenantID, lane.Status, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update lane")
	}
	if !changed {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "lane changed concurrently, retry the operation")
	}
	lane.Status = status
	return lane, nil
}

func (s *service) DeleteLane(ctx context.Context, tenantID, laneID uuid.UUID) error {
	lane, err := s.GetLane(ctx, tenantID, laneID)
	if err != nil {
		return err
	}
	if lane.CurrentOrderID != nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "lane has an order assigned")
	}
	staffed, err := s.repo.CountActiveAssignmentsForLane(ctx, lane.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to check lane staffing")
	}
	if staffed > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "lane has active staff assignments")
	}
	if err := s.repo.Delete(ctx, lane.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete lane")
	}
	return nil
}

func (s *service) GetLane(ctx context.Context, tenantID, laneID uuid.UUID) (*models.Lane, error) {
	lane, err := s.repo.FindByIDAndTenant(ctx, laneID, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lane not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load lane")
	}
	return lane, nil
}

func (s *service) ListLanes(ctx context.Context, tenantID uuid.UUID, status *enums.LaneStatus) ([]models.Lane, error) {
	lanes, err := s.repo.ListByTenant(ctx, tenantID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list lanes")
	}
	return lanes, nil
}

// AssignOrder routes an order to an open lane. The lane claim and the order
// binding commit or roll back together.
func (s *service) AssignOrder(ctx context.Context, tenantID, laneID, orderID uuid.UUID) (*models.Lane, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		claimed, err := repo.ClaimForOrder(ctx, laneID, tenantID, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to claim lane")
		}
		if !claimed {
			lane, err := repo.FindByIDAndTenant(ctx, laneID, tenantID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "lane not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load lane")
			}
			if lane.CurrentOrderID != nil {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "lane already has an order assigned")
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "lane is not open")
		}

		bound, err := repo.BindOrder(ctx, orderID, tenantID, laneID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to bind order to lane")
		}
		if !bound {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is missing, not ready for pickup, or already assigned to a lane")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetLane(ctx, tenantID, laneID)
}

// ClearLane releases the lane back to open and detaches its order, if any.
func (s *service) ClearLane(ctx context.Context, tenantID, laneID uuid.UUID) (*models.Lane, error) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		lane, err := repo.FindByIDAndTenant(ctx, laneID, tenantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "lane not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load lane")
		}
		if lane.CurrentOrderID != nil {
			if err := repo.UnbindOrder(ctx, *lane.CurrentOrderID, tenantID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to unbind order")
			}
		}
		if err := repo.Release(ctx, laneID, tenantID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to release lane")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetLane(ctx, tenantID, laneID)
}

// AssignStaff puts a counter staff member on duty, optionally at a specific
// lane. Any previous active assignment for the user ends first.
func (s *service) AssignStaff(ctx context.Context, tenantID, userID uuid.UUID, laneID *uuid.UUID) (*models.StaffAssignment, error) {
	user, err := s.users.FindByIDAndTenant(ctx, userID, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found in tenant")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load user")
	}
	if user.Role != enums.UserRoleCounter {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only counter staff can be assigned to lanes")
	}
	if laneID != nil {
		if _, err := s.GetLane(ctx, tenantID, *laneID); err != nil {
			return nil, err
		}
	}

	assignment := &models.StaffAssignment{
		ID:           uuid.New(),
		UserID:       userID,
		TenantID:     tenantID,
		AssignedRole: user.Role,
		LaneID:       laneID,
		IsActive:     true,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.DeactivateActiveForUser(ctx, userID, s.now().UTC()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to close previous assignments")
		}
		if err := repo.CreateAssignment(ctx, assignment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create assignment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *service) UnassignStaff(ctx context.Context, tenantID, assignmentID uuid.UUID) (*models.StaffAssignment, error) {
	assignment, err := s.repo.FindAssignment(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load assignment")
	}
	if assignment.TenantID != tenantID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
	}
	if !assignment.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "assignment is already inactive")
	}

	endedAt := s.now().UTC()
	assignment.IsActive = false
	assignment.EndTime = &endedAt
	if err := s.repo.SaveAssignment(ctx, assignment); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to end assignment")
	}
	return assignment, nil
}

func (s *service) ListAssignments(ctx context.Context, tenantID uuid.UUID, activeOnly bool) ([]models.StaffAssignment, error) {
	assignments, err := s.repo.ListAssignments(ctx, tenantID, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list assignments")
	}
	return assignments, nil
}
