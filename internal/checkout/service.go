package checkout

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/internal/inventory"
	"github.com/louretail/bopis-backend/internal/orders"
	"github.com/louretail/bopis-backend/internal/timeslots"
	"github.com/louretail/bopis-backend/pkg/db/models"
	"github.com/louretail/bopis-backend/pkg/enums"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
	"github.com/louretail/bopis-backend/pkg/metrics"
)

// txRunner runs a function inside a database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service converts a cart into a confirmed pickup order.
type Service interface {
	Checkout(ctx context.Context, userID, tenantID, slotID uuid.UUID) (*models.Order, error)
}

type service struct {
	orders    orders.Repository
	inventory inventory.Repository
	slots     timeslots.Repository
	tx        txRunner
	metrics   *metrics.CheckoutMetrics
	pickItem  func(n int) int
}

// NewService wires a checkout service over its collaborators. Metrics may be
// nil in tests.
func NewService(ordersRepo orders.Repository, inventoryRepo inventory.Repository, slotsRepo timeslots.Repository, tx txRunner, m *metrics.CheckoutMetrics) (Service, error) {
	if ordersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository is required")
	}
	if inventoryRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository is required")
	}
	if slotsRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "timeslots repository is required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner is required")
	}
	return &service{
		orders:    ordersRepo,
		inventory: inventoryRepo,
		slots:     slotsRepo,
		tx:        tx,
		metrics:   m,
		pickItem:  rand.Intn,
	}, nil
}

// Checkout reserves stock and a pickup slot for the user's cart, then
// confirms the order. Everything commits or rolls back together, so a full
// slot or a stale product leaves the cart untouched.
func (s *service) Checkout(ctx context.Context, userID, tenantID, slotID uuid.UUID) (*models.Order, error) {
	started := time.Now()
	var confirmed *models.Order
	var conflictKind string

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		inventoryRepo := s.inventory.WithTx(tx)
		slotsRepo := s.slots.WithTx(tx)

		cart, err := ordersRepo.FindCart(ctx, userID, tenantID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
			}
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart")
		}
		if len(cart.Items) == 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
		}

		for _, item := range cart.Items {
			if _, err := inventoryRepo.DecrementStock(ctx, tenantID, item.ProductID, item.Quantity, nil); err != nil {
				switch pkgerrors.As(err).Code() {
				case pkgerrors.CodeInsufficientStock:
					conflictKind = "stock"
				case pkgerrors.CodeConflict:
					conflictKind = "version"
				}
				return err
			}
		}

		outcome, err := slotsRepo.IncrementCurrentOrders(ctx, slotID, tenantID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to reserve time slot")
		}
		switch outcome {
		case timeslots.IncrementApplied:
		case timeslots.IncrementSlotMissing:
			return pkgerrors.New(pkgerrors.CodeNotFound, "time slot not found")
		case timeslots.IncrementSlotInactive:
			conflictKind = "slot"
			return pkgerrors.New(pkgerrors.CodeStateConflict, "time slot is not active")
		default:
			conflictKind = "slot"
			return pkgerrors.New(pkgerrors.CodeConflict, "time slot is full")
		}

		token := uuid.NewString()
		verificationItem := cart.Items[s.pickItem(len(cart.Items))]

		total := decimal.Zero
		for _, item := range cart.Items {
			total = total.Add(item.PriceAtPurchase.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		cart.TotalAmount = total

		cart.Status = enums.OrderStatusConfirmed
		cart.PaymentStatus = enums.PaymentStatusPaid
		cart.PickupToken = &token
		cart.PickupSlotID = &slotID
		cart.IdentityVerificationProductID = &verificationItem.ProductID
		if err := ordersRepo.Save(ctx, cart); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to confirm order")
		}
		confirmed = cart
		return nil
	})

	result := "success"
	if err != nil {
		result = "error"
		if conflictKind != "" {
			s.metrics.IncConflict(conflictKind)
		}
	}
	s.metrics.IncAttempt(result)
	s.metrics.ObserveDuration(result, time.Since(started))
	if err != nil {
		return nil, err
	}
	return confirmed, nil
}
