package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/internal/notifications"
	"github.com/louretail/bopis-backend/pkg/db/models"
	"github.com/louretail/bopis-backend/pkg/enums"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
)

// staffFanOutLimit caps how many tenant users a ready notification reaches.
const staffFanOutLimit = 500

// ListFulfillmentQueue returns the picker backlog, oldest order first.
func (s *service) ListFulfillmentQueue(ctx context.Context, tenantID uuid.UUID) ([]models.Order, error) {
	orders, err := s.repo.ListFulfillmentQueue(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list fulfillment queue")
	}
	return orders, nil
}

// StartProcessing claims a confirmed order for picking.
func (s *service) StartProcessing(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error) {
	return s.transition(ctx, tenantID, orderID, enums.OrderStatusProcessing)
}

// MarkReady moves a picked order to the pickup shelf and tells the counter
// and tenant admins about it.
func (s *service) MarkReady(ctx context.Context, tenantID, orderID uuid.UUID, pickerNotes string) (*models.Order, error) {
	order, err := s.transition(ctx, tenantID, orderID, enums.OrderStatusReadyForPickup)
	if err != nil {
		return nil, err
	}
	if err := s.notifyOrderReady(ctx, order, pickerNotes); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) transition(ctx context.Context, tenantID, orderID uuid.UUID, target enums.OrderStatus) (*models.Order, error) {
	order, err := s.repo.FindByIDAndTenant(ctx, orderID, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load order")
	}
	if !order.Status.CanTransitionTo(target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "invalid order status transition").
			WithDetails(map[string]any{"from": order.Status, "to": target})
	}

	order.Status = target
	if err := s.repo.Save(ctx, order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update order")
	}
	return order, nil
}

// notifyOrderReady fans one notification out to every active tenant admin and
// counter staff member.
func (s *service) notifyOrderReady(ctx context.Context, order *models.Order, pickerNotes string) error {
	users, err := s.staff.ListByTenant(ctx, order.TenantID, staffFanOutLimit, 0)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list tenant staff")
	}

	message := readyMessage(order, pickerNotes)
	inputs := make([]notifications.CreateInput, 0, len(users))
	for _, user := range users {
		if !user.IsActive {
			continue
		}
		if user.Role != enums.UserRoleTenantAdmin && user.Role != enums.UserRoleCounter {
			continue
		}
		inputs = append(inputs, notifications.CreateInput{
			UserID:         user.ID,
			TenantID:       order.TenantID,
			Message:        message,
			RelatedOrderID: &order.ID,
		})
	}
	if len(inputs) == 0 {
		return nil
	}
	if err := s.notifier.CreateBatch(ctx, inputs); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to notify staff")
	}
	return nil
}

func readyMessage(order *models.Order, pickerNotes string) string {
	token := ""
	if order.PickupToken != nil {
		token = *order.PickupToken
	}
	message := fmt.Sprintf("Order #%s (Token: %s) is now READY FOR PICKUP.", order.ID, token)
	if notes := strings.TrimSpace(pickerNotes); notes != "" {
		message += " Picker notes: " + notes
	}
	return message
}
