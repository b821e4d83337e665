// Package policy decides which capability tier may perform which administrative action.
package policy

import "purpaws/internal/models"

// Capability is the tier an account acts with.
type Capability int

const (
	// CapabilityUser is a regular member.
	CapabilityUser Capability = iota
	// CapabilityStaff is an admin below superuser.
	CapabilityStaff
	// CapabilitySuperuser is the root tier.
	CapabilitySuperuser
)

// CapabilityFor derives a tier from the stored account flags. Superuser wins over staff.
func CapabilityFor(isStaff, isSuperuser bool) Capability {
	switch {
	case isSuperuser:
		return CapabilitySuperuser
	case isStaff:
		return CapabilityStaff
	default:
		return CapabilityUser
	}
}

func (c Capability) String() string {
	switch c {
	case CapabilitySuperuser:
		return "superuser"
	case CapabilityStaff:
		return "staff"
	default:
		return "user"
	}
}

// Elevated reports whether c is staff or above.
func (c Capability) Elevated() bool {
	return c >= CapabilityStaff
}

// Action names a gated operation.
type Action string

const (
	ActionViewAdminDashboard Action = "view_admin_dashboard"
	ActionManageUsers        Action = "manage_users"
	ActionModerateReports    Action = "moderate_reports"
	ActionProcessAdoption    Action = "process_adoption"
	ActionManageListings     Action = "manage_listings"
	ActionRunJobs            Action = "run_jobs"
	ActionPromoteUser        Action = "promote_user"
	ActionRemoveUser         Action = "remove_user"
)

var required = map[Action]Capability{
	ActionViewAdminDashboard: CapabilityStaff,
	ActionManageUsers:        CapabilityStaff,
	ActionModerateReports:    CapabilityStaff,
	ActionProcessAdoption:    CapabilityStaff,
	ActionManageListings:     CapabilityStaff,
	ActionRunJobs:            CapabilityStaff,
	ActionPromoteUser:        CapabilitySuperuser,
	ActionRemoveUser:         CapabilityStaff,
}

// Actor is the identity an operation runs as: a signed-in admin or the system account.
type Actor struct {
	UserID     uint
	Capability Capability
}

// ActorFor builds an Actor from a stored user.
func ActorFor(u *models.User) Actor {
	return Actor{UserID: u.ID, Capability: CapabilityFor(u.IsStaff, u.IsSuperuser)}
}

// Authorize returns nil when c may perform a. Unknown actions are denied.
func Authorize(c Capability, a Action) error {
	need, ok := required[a]
	if !ok || c < need {
		return models.NewPermissionDeniedError("You do not have permission to perform this action")
	}
	return nil
}

// Target describes the account an action is aimed at.
type Target struct {
	UserID     uint
	Capability Capability
}

// CanRemove applies the removal rules: staff required, never yourself, never a superuser,
// and only a superuser may remove another staff member.
func CanRemove(actor Actor, target Target) error {
	if err := Authorize(actor.Capability, ActionRemoveUser); err != nil {
		return err
	}
	if actor.UserID == target.UserID {
		return models.NewPermissionDeniedError("You cannot remove your own account")
	}
	if target.Capability == CapabilitySuperuser {
		return models.NewPermissionDeniedError("Superusers cannot be removed from this interface")
	}
	if target.Capability == CapabilityStaff && actor.Capability != CapabilitySuperuser {
		return models.NewPermissionDeniedError("You do not have permission to remove an admin user")
	}
	return nil
}

// CanPromote checks the actor side of a promotion. The second return value is true when the
// target already holds staff or superuser capability, which callers treat as a no-op.
func CanPromote(actor Actor, target Target) (bool, error) {
	if err := Authorize(actor.Capability, ActionPromoteUser); err != nil {
		return false, err
	}
	return target.Capability.Elevated(), nil
}
