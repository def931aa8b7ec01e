package auth

import (
	"github.com/sahilchouksey/coursehub-api/model"
	"github.com/sahilchouksey/coursehub-api/utils/apperr"
)

// Identity is the authenticated caller
type Identity struct {
	UserID string
	Email  string
	Role   model.Role
}

// IsAdmin reports whether the caller is an admin
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == model.RoleAdmin
}

// Policy makes role and ownership decisions
type Policy interface {
	Authorize(id *Identity, roles ...model.Role) error
	RequireOwnership(id *Identity, ownerID string) error
}

// RolePolicy is the Policy used by every route and service
type RolePolicy struct{}

// Authorize fails with Forbidden unless the caller holds one of roles
func (RolePolicy) Authorize(id *Identity, roles ...model.Role) error {
	if id == nil {
		return apperr.Unauthenticated("Authentication required")
	}
	for _, r := range roles {
		if id.Role == r {
			return nil
		}
	}
	return apperr.Forbidden("Insufficient permissions")
}

// RequireOwnership fails with Forbidden unless the caller is admin or owns the resource
func (RolePolicy) RequireOwnership(id *Identity, ownerID string) error {
	if id == nil {
		return apperr.Unauthenticated("Authentication required")
	}
	if id.IsAdmin() || (ownerID != "" && id.UserID == ownerID) {
		return nil
	}
	return apperr.Forbidden("You do not have access to this resource")
}
