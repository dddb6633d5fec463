package models

import (
	"time"

	"github.com/google/uuid"
)

// PickupTimeSlot is a bounded collection window. CurrentOrders is only ever
// changed through the conditional UPDATE in the timeslots repository.
type PickupTimeSlot struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	TenantID      uuid.UUID `gorm:"column:tenant_id;type:uuid;not null"`
	Date          time.Time `gorm:"column:date;not null"`
	StartTime     time.Time `gorm:"column:start_time;not null"`
	EndTime       time.Time `gorm:"column:end_time;not null"`
	Capacity      int       `gorm:"column:capacity;not null;default:10"`
	CurrentOrders int       `gorm:"column:current_orders;not null;default:0"`
	IsActive      bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
