package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/louretail/bopis-backend/pkg/enums"
)

// Notification is an in-app message delivered to a single user.
type Notification struct {
	ID             uuid.UUID                `gorm:"column:id;type:uuid;primaryKey"`
	UserID         uuid.UUID                `gorm:"column:user_id;type:uuid;not null"`
	TenantID       uuid.UUID                `gorm:"column:tenant_id;type:uuid;not null"`
	Message        string                   `gorm:"column:message;not null"`
	RelatedOrderID *uuid.UUID               `gorm:"column:related_order_id;type:uuid"`
	Status         enums.NotificationStatus `gorm:"column:status;type:notification_status;not null"`
	CreatedAt      time.Time                `gorm:"column:created_at;autoCreateTime"`
	ReadAt         *time.Time               `gorm:"column:read_at"`
}
