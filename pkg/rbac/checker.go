package rbac

import (
	"fmt"
	"sort"
)

// Predicate decides a permission for a non-admin role
type Predicate func(role Role) bool

func adminOnly(Role) bool { return false }

func roleIn(roles ...Role) Predicate {
	return func(role Role) bool {
		for _, r := range roles {
			if r == role {
				return true
			}
		}
		return false
	}
}

// permissionTable holds the predicate for every known permission.
// Admin memberships never reach it.
var permissionTable = map[Permission]Predicate{
	PermManageMembers:         adminOnly,
	PermManageInvitations:     adminOnly,
	PermManageChatPermissions: adminOnly,
	PermEditOrganization:      adminOnly,
	PermOrgUpdate:             adminOnly,
	PermViewPending:           roleIn(RoleSecurity),
	PermViewHistory:           roleIn(RoleSecurity),
	PermViewMembers:           roleIn(RoleResident, RoleSecurity),
	PermAccessChat:            roleIn(RoleResident, RoleSecurity),
}

// Can reports whether membership grants permission.
//
// A nil membership is denied everything. Admin memberships are granted
// everything, including names absent from the table. Otherwise the table
// decides and unknown names are denied.
func Can(permission Permission, membership *Membership) bool {
	if membership == nil {
		return false
	}
	if membership.IsAdmin {
		return true
	}
	predicate, ok := permissionTable[permission]
	if !ok {
		return false
	}
	return predicate(membership.Role)
}

// Check is Can with a human-readable reason, for logs and debugging
func Check(permission Permission, membership *Membership) PermissionCheckResult {
	result := PermissionCheckResult{Permission: permission}
	switch {
	case membership == nil:
		result.Reason = "no membership"
	case membership.IsAdmin:
		result.Allowed = true
		result.Reason = "admin override"
	default:
		predicate, ok := permissionTable[permission]
		switch {
		case !ok:
			result.Reason = "unknown permission"
		case predicate(membership.Role):
			result.Allowed = true
			result.Reason = fmt.Sprintf("granted to role %s", membership.Role)
		default:
			result.Reason = fmt.Sprintf("not granted to role %s", membership.Role)
		}
	}
	return result
}

// KnownPermissions returns every permission in the table, sorted
func KnownPermissions() []Permission {
	perms := make([]Permission, 0, len(permissionTable))
	for p := range permissionTable {
		perms = append(perms, p)
	}
	sort.Slice(perms, func(i, j int) bool { return perms[i] < perms[j] })
	return perms
}

// EffectivePermissions lists the known permissions membership grants, sorted
func EffectivePermissions(membership *Membership) []Permission {
	granted := make([]Permission, 0, len(permissionTable))
	for _, p := range KnownPermissions() {
		if Can(p, membership) {
			granted = append(granted, p)
		}
	}
	return granted
}

// Evaluator adapts the package functions to an injectable value
type Evaluator struct{}

// Can reports whether membership grants permission
func (Evaluator) Can(permission Permission, membership *Membership) bool {
	return Can(permission, membership)
}
