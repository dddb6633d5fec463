package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a tenant-scoped catalog entry. Version backs the optimistic
// locking protocol used by checkout and POS stock decrements.
type Product struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TenantID      uuid.UUID       `gorm:"column:tenant_id;type:uuid;not null;uniqueIndex:uq_products_sku_tenant"`
	SKU           string          `gorm:"column:sku;not null;uniqueIndex:uq_products_sku_tenant"`
	Name          string          `gorm:"column:name;not null"`
	Description   *string         `gorm:"column:description"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	StockQuantity int             `gorm:"column:stock_quantity;not null;default:0"`
	ImageURL      *string         `gorm:"column:image_url"`
	Version       int             `gorm:"column:version;not null;default:1"`
	LastSyncedAt  time.Time       `gorm:"column:last_synced_at;autoUpdateTime"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
