package guard

import (
	"errors"

	"github.com/google/uuid"

	"github.com/platinummonkey/gatehouse/pkg/rbac"
)

// State is a step of the route guard state machine
type State string

const (
	StateStart              State = "START"
	StateIdentified         State = "IDENTIFIED"
	StateMembershipResolved State = "MEMBERSHIP_RESOLVED"
	StateAllowed            State = "ALLOWED"
	StateDeniedRedirect     State = "DENIED_REDIRECT"
)

// Reason explains a verdict
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonNotAuthenticated   Reason = "not_authenticated"
	ReasonNotAMember         Reason = "not_a_member"
	ReasonPermissionDenied   Reason = "permission_denied"
	ReasonUnknownRoute       Reason = "unknown_route"
	ReasonOrganizationFrozen Reason = "organization_frozen"
	ReasonUpstream           Reason = "upstream_unavailable"
)

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrNotAMember         = errors.New("not a member of this organization")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrOrganizationFrozen = errors.New("organization is frozen")
	ErrUpstream           = errors.New("authorization backend unavailable")
)

// Request describes one access attempt
type Request struct {
	// UserID is the authenticated user, nil for anonymous requests
	UserID *uuid.UUID
	// OrganizationID scopes the request
	OrganizationID uuid.UUID
	// Route is the organization-relative route path, e.g. "/chat"
	Route string
	// ReturnTo is the path sent back to login; Route is used when empty
	ReturnTo string
}

// Verdict is the outcome of a guard evaluation
type Verdict struct {
	State      State   `json:"state"`
	Allowed    bool    `json:"allowed"`
	Reason     Reason  `json:"reason,omitempty"`
	RedirectTo string  `json:"redirect_to,omitempty"`
	Route      string  `json:"route,omitempty"`
	Trail      []State `json:"trail"`

	membership *rbac.Membership
}

// Membership returns the membership resolved while evaluating, nil when
// evaluation stopped before MEMBERSHIP_RESOLVED.
func (v *Verdict) Membership() *rbac.Membership {
	if v == nil || v.membership == nil {
		return nil
	}
	copied := *v.membership
	return &copied
}

// Err maps a denial to its sentinel error, nil when allowed
func (v *Verdict) Err() error {
	if v == nil {
		return ErrUpstream
	}
	if v.Allowed {
		return nil
	}
	switch v.Reason {
	case ReasonNotAuthenticated:
		return ErrNotAuthenticated
	case ReasonNotAMember:
		return ErrNotAMember
	case ReasonOrganizationFrozen:
		return ErrOrganizationFrozen
	case ReasonUpstream:
		return ErrUpstream
	default:
		return ErrPermissionDenied
	}
}

// FrozenPolicy selects which mutating routes a frozen organization loses
type FrozenPolicy string

const (
	// FrozenPolicyAll blocks every mutating route that is not frozen-exempt
	FrozenPolicyAll FrozenPolicy = "all"
	// FrozenPolicySeats blocks only seat-affecting routes
	FrozenPolicySeats FrozenPolicy = "seats"
)

// ParseFrozenPolicy parses a policy name
func ParseFrozenPolicy(name string) (FrozenPolicy, error) {
	switch FrozenPolicy(name) {
	case FrozenPolicyAll, FrozenPolicySeats:
		return FrozenPolicy(name), nil
	}
	return "", errors.New("frozen policy must be one of: all, seats")
}
