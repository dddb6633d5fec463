package models

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is a single retail operation. Every other row hangs off one.
type Tenant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null;uniqueIndex"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
