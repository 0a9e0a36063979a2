package service

import "github.com/iliyamo/gym-server/internal/model"

// Permits is the authorization predicate for profile actions.
// Superusers bypass every check.  Otherwise the principal's role must
// equal required and, for instance-scoped actions (owner != nil), the
// principal must be the owner.
func Permits(p *model.Principal, required model.Role, owner *uint64) bool {
	if p == nil || !p.IsActive {
		return false
	}
	if p.IsSuperuser {
		return true
	}
	if p.Role != required {
		return false
	}
	return owner == nil || *owner == p.ID
}

// Capability is a route-level permission check.
type Capability func(p *model.Principal) bool

// ClientOnly admits active principals with the client role.
func ClientOnly(p *model.Principal) bool {
	return p != nil && p.IsActive && p.Role == model.RoleClient
}

// StaffOnly admits active principals with the staff role.
func StaffOnly(p *model.Principal) bool {
	return p != nil && p.IsActive && p.Role == model.RoleStaff
}

// AdminOnly admits active principals carrying the is_staff flag or
// superuser status.
func AdminOnly(p *model.Principal) bool {
	return p != nil && p.IsActive && p.IsAdmin()
}

// AnyOf admits a principal if any of caps does.
func AnyOf(caps ...Capability) Capability {
	return func(p *model.Principal) bool {
		for _, c := range caps {
			if c(p) {
				return true
			}
		}
		return false
	}
}

// Authorize turns a capability result into an error: ErrNotAuthenticated
// without a principal and ErrPermissionDenied when c refuses.
func Authorize(p *model.Principal, c Capability) error {
	if p == nil {
		return ErrNotAuthenticated
	}
	if !c(p) {
		return ErrPermissionDenied
	}
	return nil
}

// authorizeRole is Permits plus the same error mapping as Authorize.
func authorizeRole(p *model.Principal, required model.Role, owner *uint64) error {
	if p == nil {
		return ErrNotAuthenticated
	}
	if !Permits(p, required, owner) {
		return ErrPermissionDenied
	}
	return nil
}
