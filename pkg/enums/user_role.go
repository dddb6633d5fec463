package enums

import "fmt"

// UserRole maps to the user_role enum in Postgres.
type UserRole string

const (
	UserRoleCustomer    UserRole = "customer"
	UserRolePicker      UserRole = "picker"
	UserRoleCounter     UserRole = "counter"
	UserRoleTenantAdmin UserRole = "tenant_admin"
	UserRoleSuperAdmin  UserRole = "super_admin"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRolePicker,
	UserRoleCounter,
	UserRoleTenantAdmin,
	UserRoleSuperAdmin,
}

// String implements fmt.Stringer.
func (u UserRole) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UserRole.
func (u UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == u {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role operates on behalf of a tenant.
func (u UserRole) IsStaff() bool {
	switch u {
	case UserRolePicker, UserRoleCounter, UserRoleTenantAdmin:
		return true
	}
	return false
}

// RequiresTenant reports whether users with this role must belong to a tenant.
// Only super admins float above the tenant boundary.
func (u UserRole) RequiresTenant() bool {
	return u != UserRoleSuperAdmin
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
