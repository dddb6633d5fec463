package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/pkg/db/models"
	"github.com/louretail/bopis-backend/pkg/enums"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
)

// maxVerificationHints limits how many other cart items back up an identity
// check at the counter.
const maxVerificationHints = 3

// Verification is what counter staff ask the customer to describe before
// handing the order over.
type Verification struct {
	OrderID            uuid.UUID `json:"order_id"`
	ProductID          uuid.UUID `json:"product_id"`
	ProductName        string    `json:"product_name"`
	ProductDescription *string   `json:"product_description,omitempty"`
	OtherItemHints     []string  `json:"other_item_hints"`
}

// GetByPickupToken resolves the order a customer presents at the counter.
func (s *service) GetByPickupToken(ctx context.Context, tenantID uuid.UUID, token string) (*models.Order, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup token is required")
	}

	order, err := s.repo.FindByPickupToken(ctx, token, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found for pickup token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load order")
	}
	return order, nil
}

func (s *service) ListReadyForPickup(ctx context.Context, tenantID uuid.UUID, laneID *uuid.UUID, unassigned bool) ([]models.Order, error) {
	orders, err := s.repo.ListReadyForPickup(ctx, CounterListQuery{
		TenantID:   tenantID,
		LaneID:     laneID,
		Unassigned: unassigned,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list pickup orders")
	}
	return orders, nil
}

// VerificationData describes the order's randomly chosen verification product
// plus the names of up to three other items in the order.
func (s *service) VerificationData(ctx context.Context, tenantID, orderID uuid.UUID) (*Verification, error) {
	order, err := s.repo.FindByIDAndTenant(ctx, orderID, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load order")
	}
	if order.IdentityVerificationProductID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no verification product")
	}

	product, err := s.loadProduct(ctx, tenantID, *order.IdentityVerificationProductID)
	if err != nil {
		return nil, err
	}

	hints := make([]string, 0, maxVerificationHints)
	for _, item := range order.Items {
		if item.ProductID == product.ID {
			continue
		}
		other, err := s.loadProduct(ctx, tenantID, item.ProductID)
		if err != nil {
			// Items can outlive their catalog entry, skip those.
			if pkgerrors.As(err).Code() == pkgerrors.CodeNotFound {
				continue
			}
			return nil, err
		}
		hints = append(hints, other.Name)
		if len(hints) == maxVerificationHints {
			break
		}
	}

	return &Verification{
		OrderID:            order.ID,
		ProductID:          product.ID,
		ProductName:        product.Name,
		ProductDescription: product.Description,
		OtherItemHints:     hints,
	}, nil
}

// CompletePickup hands the order over and frees its lane. Orders still in
// PROCESSING may complete directly when the customer is already waiting.
func (s *service) CompletePickup(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error) {
	var completed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByIDAndTenant(ctx, orderID, tenantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load order")
		}
		if order.Status != enums.OrderStatusReadyForPickup && order.Status != enums.OrderStatusProcessing {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not awaiting pickup").
				WithDetails(map[string]any{"status": order.Status})
		}

		laneID := order.AssignedLaneID
		order.Status = enums.OrderStatusCompleted
		order.AssignedLaneID = nil
		if err := repo.Save(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to complete order")
		}
		if laneID != nil {
			if err := repo.ReleaseLane(ctx, *laneID, tenantID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to release lane")
			}
		}
		completed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}
