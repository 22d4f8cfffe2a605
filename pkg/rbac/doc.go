// Package rbac decides whether an organization membership grants a
// permission.
//
// The decision is a pure function of the permission name and the
// membership's role and admin flag. Admins are granted everything. For
// everyone else a static table maps each known permission to the roles
// that hold it, and any name outside the table is denied:
//
//	manage_members, manage_invitations, manage_chat_permissions,
//	edit_organization, org:update     admin only
//	view_pending, view_history        security
//	view_members, access_chat         resident, security
//
// Frozen organizations are not handled here. Callers combine Can with the
// organization's frozen flag at the point where a mutation is attempted.
//
//	if !rbac.Can(rbac.PermManageMembers, membership) {
//		return guard.ErrPermissionDenied
//	}
package rbac
