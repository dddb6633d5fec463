package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/louretail/bopis-backend/pkg/enums"
)

// Order covers the full lifecycle from open cart to completed pickup or
// point-of-sale transaction. A row with StatusCart is the customer's cart.
type Order struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID        uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	TenantID      uuid.UUID           `gorm:"column:tenant_id;type:uuid;not null"`
	OrderType     enums.OrderType     `gorm:"column:order_type;type:order_type;not null"`
	Status        enums.OrderStatus   `gorm:"column:status;type:order_status;not null"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:numeric(10,2);not null"`
	PickupToken   *string             `gorm:"column:pickup_token;uniqueIndex"`

	PickupSlotID   *uuid.UUID `gorm:"column:pickup_slot_id;type:uuid"`
	AssignedLaneID *uuid.UUID `gorm:"column:assigned_lane_id;type:uuid"`

	// Product the counter staff asks about when verifying the customer's
	// identity at pickup.
	IdentityVerificationProductID *uuid.UUID `gorm:"column:identity_verification_product_id;type:uuid"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// OrderItem snapshots a product and its price at the moment it entered the
// cart. PriceAtPurchase never changes after that, even if the catalog does.
type OrderItem struct {
	ID              uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	ProductID       uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Quantity        int             `gorm:"column:quantity;not null"`
	PriceAtPurchase decimal.Decimal `gorm:"column:price_at_purchase;type:numeric(10,2);not null"`
}
