package orgcache

import (
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/gatehouse/pkg/guard"
	"github.com/platinummonkey/gatehouse/pkg/rbac"
)

// OrganizationSummary is the organization data a member may see
type OrganizationSummary struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	IsFrozen bool      `json:"is_frozen"`
}

// MembershipSummary is the caller's own membership
type MembershipSummary struct {
	Role    rbac.Role `json:"role"`
	IsAdmin bool      `json:"is_admin"`
}

// Snapshot is one resolved organization context. Actions holds the server's
// verdict per gated route with the frozen rules already applied.
type Snapshot struct {
	Organization OrganizationSummary `json:"organization"`
	Membership   MembershipSummary   `json:"membership"`
	Permissions  []rbac.Permission   `json:"permissions"`
	Actions      map[string]bool     `json:"actions"`
	FetchedAt    time.Time           `json:"fetched_at"`
}

func (s *Snapshot) membership() *rbac.Membership {
	return &rbac.Membership{
		OrganizationID: s.Organization.ID,
		Role:           s.Membership.Role,
		IsAdmin:        s.Membership.IsAdmin,
	}
}

// Can reports whether the snapshot's membership grants permission
func (s *Snapshot) Can(permission rbac.Permission) bool {
	if s == nil {
		return false
	}
	return rbac.Can(permission, s.membership())
}

// CanMutate reports whether the server would let the caller through
// route, e.g. "/seats/manage" or "/api/seats/remove". Routes resolve like the
// server's route table: exact entry first, then the longest parent entry.
// Unknown routes are false.
func (s *Snapshot) CanMutate(route string) bool {
	if s == nil {
		return false
	}
	route = guard.CleanRoute(route)
	if allowed, ok := s.Actions[route]; ok {
		return allowed
	}
	for candidate := path.Dir(route); candidate != "/"; candidate = path.Dir(candidate) {
		if allowed, ok := s.Actions[candidate]; ok {
			return allowed
		}
	}
	return false
}

// Age returns how long ago the snapshot was fetched
func (s *Snapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}
