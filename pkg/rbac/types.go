package rbac

import (
	"fmt"

	"github.com/google/uuid"
)

// Role is an organization-scoped membership role
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleResident Role = "resident"
	RoleSecurity Role = "security"
)

// ParseRole maps a stored role name to a Role
func ParseRole(name string) (Role, error) {
	switch Role(name) {
	case RoleAdmin, RoleResident, RoleSecurity:
		return Role(name), nil
	}
	return "", fmt.Errorf("unknown organization role %q", name)
}

// Permission is a capability name checked against a membership
type Permission string

const (
	PermManageMembers         Permission = "manage_members"
	PermManageInvitations     Permission = "manage_invitations"
	PermManageChatPermissions Permission = "manage_chat_permissions"
	PermEditOrganization      Permission = "edit_organization"
	PermOrgUpdate             Permission = "org:update"
	PermViewPending           Permission = "view_pending"
	PermViewHistory           Permission = "view_history"
	PermViewMembers           Permission = "view_members"
	PermAccessChat            Permission = "access_chat"
)

// Membership is a user's role inside one organization
type Membership struct {
	UserID         uuid.UUID `json:"user_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Role           Role      `json:"role"`
	IsAdmin        bool      `json:"is_admin"`
}

// NewMembership builds a membership with IsAdmin derived from the role
func NewMembership(userID, organizationID uuid.UUID, role Role) *Membership {
	return &Membership{
		UserID:         userID,
		OrganizationID: organizationID,
		Role:           role,
		IsAdmin:        role == RoleAdmin,
	}
}

// RoleInfo describes a role for display
type RoleInfo struct {
	Value       Role   `json:"value"`
	DisplayName string `json:"display_name"`
	Description string `json:"description"`
	IsAdmin     bool   `json:"is_admin"`
}

// BuiltInRoles returns the organization roles in display order
func BuiltInRoles() []RoleInfo {
	return []RoleInfo{
		{
			Value:       RoleAdmin,
			DisplayName: "Administrator",
			Description: "Manages members, invitations, chat permissions, settings and billing",
			IsAdmin:     true,
		},
		{
			Value:       RoleResident,
			DisplayName: "Resident",
			Description: "Sees the member directory and takes part in chat",
		},
		{
			Value:       RoleSecurity,
			DisplayName: "Security",
			Description: "Reviews pending entries and access history",
		},
	}
}

// PermissionCheckResult represents the result of a permission check
type PermissionCheckResult struct {
	Permission Permission `json:"permission"`
	Allowed    bool       `json:"allowed"`
	Reason     string     `json:"reason,omitempty"`
}
