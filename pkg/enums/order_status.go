package enums

import "fmt"

// OrderStatus tracks the lifecycle of an order from cart to pickup.
type OrderStatus string

const (
	OrderStatusCart           OrderStatus = "CART"
	OrderStatusPendingPayment OrderStatus = "PENDING_PAYMENT"
	OrderStatusPaymentFailed  OrderStatus = "PAYMENT_FAILED"
	OrderStatusConfirmed      OrderStatus = "ORDER_CONFIRMED"
	OrderStatusProcessing     OrderStatus = "PROCESSING"
	OrderStatusReadyForPickup OrderStatus = "READY_FOR_PICKUP"
	OrderStatusCompleted      OrderStatus = "COMPLETED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
	OrderStatusRefunded       OrderStatus = "REFUNDED"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusCart,
	OrderStatusPendingPayment,
	OrderStatusPaymentFailed,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusReadyForPickup,
	OrderStatusCompleted,
	OrderStatusCancelled,
	OrderStatusRefunded,
}

// orderTransitions is the closed transition table for order statuses.
// Checkout drives CART directly to ORDER_CONFIRMED because payment is
// mocked as always succeeding; PENDING_PAYMENT remains reachable for a
// real payment integration.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCart:           {OrderStatusPendingPayment, OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusPendingPayment: {OrderStatusPaymentFailed, OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusPaymentFailed:  {OrderStatusPendingPayment, OrderStatusCancelled},
	OrderStatusConfirmed:      {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing:     {OrderStatusReadyForPickup, OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusReadyForPickup: {OrderStatusCompleted, OrderStatusCancelled},
	OrderStatusCompleted:      {OrderStatusRefunded},
	OrderStatusCancelled:      {},
	OrderStatusRefunded:       {},
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (o OrderStatus) IsTerminal() bool {
	return len(orderTransitions[o]) == 0
}

// CanTransitionTo reports whether the transition is in the allowed table.
func (o OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderTransitions[o] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
