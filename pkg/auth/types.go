package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/gatehouse/pkg/rbac"
)

// AppRole is an application-wide role, independent of any organization
type AppRole string

const (
	AppRoleAdmin AppRole = "admin"
)

// User is a profile known to the identity provider
type User struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	AppRole     *AppRole  `json:"app_role,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsAppAdmin reports whether the user holds the app-level admin role
func (u *User) IsAppAdmin() bool {
	return u != nil && u.AppRole != nil && *u.AppRole == AppRoleAdmin
}

var (
	// ErrNotAuthenticated is returned when a request has no valid session
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrInvalidSession is returned when a presented session token fails verification
	ErrInvalidSession = errors.New("invalid session token")
	// ErrUserNotFound is returned when no profile exists for the id
	ErrUserNotFound = errors.New("user not found")
	// ErrMembershipNotFound is returned when the user has no membership in the organization
	ErrMembershipNotFound = errors.New("membership not found")
)

// IdentityStore reads users and their organization memberships
type IdentityStore interface {
	// GetUser returns the profile and app-level role, or ErrUserNotFound
	GetUser(ctx context.Context, userID uuid.UUID) (*User, error)
	// GetMembership returns the (user, organization) membership, or ErrMembershipNotFound
	GetMembership(ctx context.Context, userID, organizationID uuid.UUID) (*rbac.Membership, error)
}
