package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/louretail/bopis-backend/pkg/enums"
)

// Lane is a physical pickup counter. CurrentOrderID is set while a customer's
// order occupies the lane.
type Lane struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;primaryKey"`
	TenantID       uuid.UUID        `gorm:"column:tenant_id;type:uuid;not null"`
	Name           string           `gorm:"column:name;not null"`
	Status         enums.LaneStatus `gorm:"column:status;type:lane_status;not null"`
	CurrentOrderID *uuid.UUID       `gorm:"column:current_order_id;type:uuid"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// StaffAssignment records a staff member working a role, optionally bound to a
// lane when that role is counter. At most one active assignment per user and
// tenant.
type StaffAssignment struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;primaryKey"`
	UserID       uuid.UUID      `gorm:"column:user_id;type:uuid;not null"`
	TenantID     uuid.UUID      `gorm:"column:tenant_id;type:uuid;not null"`
	AssignedRole enums.UserRole `gorm:"column:assigned_role;type:user_role;not null"`
	LaneID       *uuid.UUID     `gorm:"column:lane_id;type:uuid"`
	StartTime    time.Time      `gorm:"column:start_time;autoCreateTime"`
	EndTime      *time.Time     `gorm:"column:end_time"`
	IsActive     bool           `gorm:"column:is_active;not null;default:true"`
}
