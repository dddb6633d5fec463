package auth

import (
	"github.com/google/uuid"

	"github.com/louretail/bopis-backend/pkg/enums"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
)

// AuthorizeTenant verifies the identity may act on the given tenant's
// resources. Super admins pass unconditionally; everyone else must carry a
// matching tenant id.
func AuthorizeTenant(identity *Identity, tenantID uuid.UUID) error {
	if identity == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "identity required")
	}
	if identity.Role == enums.UserRoleSuperAdmin {
		return nil
	}
	if identity.TenantID == nil || *identity.TenantID != tenantID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "not authorized for this tenant")
	}
	return nil
}

// AuthorizeOrderAccess verifies the identity may read an order. Staff roles
// need a matching tenant, customers must own the order.
func AuthorizeOrderAccess(identity *Identity, orderUserID, orderTenantID uuid.UUID) error {
	if identity == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "identity required")
	}
	switch identity.Role {
	case enums.UserRoleSuperAdmin:
		return nil
	case enums.UserRoleTenantAdmin, enums.UserRolePicker, enums.UserRoleCounter:
		return AuthorizeTenant(identity, orderTenantID)
	default:
		if identity.UserID != orderUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not authorized for this order")
		}
		return nil
	}
}

// RequireRole verifies the identity holds one of the allowed roles.
func RequireRole(identity *Identity, allowed ...enums.UserRole) error {
	if identity == nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "identity required")
	}
	for _, role := range allowed {
		if identity.Role == role {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "role not allowed for this operation")
}
