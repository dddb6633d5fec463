package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/louretail/bopis-backend/pkg/enums"
)

// User is the canonical identity entity. TenantID is nil only for super admins.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	Username     string         `gorm:"column:username;not null;uniqueIndex"`
	Email        string         `gorm:"column:email;not null;uniqueIndex"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Role         enums.UserRole `gorm:"column:role;type:user_role;not null"`
	TenantID     *uuid.UUID     `gorm:"column:tenant_id;type:uuid"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time      `gorm:"column:created_at;autoCreateTime"`
}
