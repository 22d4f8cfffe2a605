package guard

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/platinummonkey/gatehouse/pkg/rbac"
)

// RoutePolicy is the access rule for one organization-relative route
type RoutePolicy struct {
	Path       string          `json:"path" yaml:"path"`
	Permission rbac.Permission `json:"permission" yaml:"permission"`
	// Mutating routes change organization state and are blocked while frozen
	Mutating bool `json:"mutating" yaml:"mutating"`
	// SeatAffecting routes add or remove seats
	SeatAffecting bool `json:"seat_affecting" yaml:"seat_affecting"`
	// FrozenExempt routes stay open while the organization is frozen
	FrozenExempt bool `json:"frozen_exempt" yaml:"frozen_exempt"`
}

func (p RoutePolicy) blockedWhenFrozen(policy FrozenPolicy) bool {
	if !p.Mutating || p.FrozenExempt || p.Permission == rbac.PermOrgUpdate {
		return false
	}
	if policy == FrozenPolicySeats {
		return p.SeatAffecting
	}
	return true
}

// RouteTable maps route paths to policies. It is immutable once built.
type RouteTable struct {
	policies map[string]RoutePolicy
}

// RouteSource provides the current route table
type RouteSource interface {
	Table() *RouteTable
}

// Table lets a *RouteTable act as its own static RouteSource
func (t *RouteTable) Table() *RouteTable {
	return t
}

// NewRouteTable builds a table, rejecting malformed or duplicate entries
func NewRouteTable(policies []RoutePolicy) (*RouteTable, error) {
	known := make(map[rbac.Permission]bool)
	for _, p := range rbac.KnownPermissions() {
		known[p] = true
	}

	t := &RouteTable{policies: make(map[string]RoutePolicy, len(policies))}
	for i, p := range policies {
		if !strings.HasPrefix(p.Path, "/") {
			return nil, fmt.Errorf("route %d: path %q must start with /", i, p.Path)
		}
		if !known[p.Permission] {
			return nil, fmt.Errorf("route %s: unknown permission %q", p.Path, p.Permission)
		}
		p.Path = CleanRoute(p.Path)
		if _, dup := t.policies[p.Path]; dup {
			return nil, fmt.Errorf("route %s: duplicate entry", p.Path)
		}
		t.policies[p.Path] = p
	}
	return t, nil
}

// CleanRoute normalizes a route path: leading slash, no trailing slash,
// no dot segments.
func CleanRoute(route string) string {
	if route == "" {
		return "/"
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return path.Clean(route)
}

// Lookup finds the policy for route. An exact entry wins; otherwise the
// longest entry that is a whole-segment prefix of route applies. The root
// entry only matches "/" itself.
func (t *RouteTable) Lookup(route string) (RoutePolicy, bool) {
	if t == nil {
		return RoutePolicy{}, false
	}
	route = CleanRoute(route)
	if p, ok := t.policies[route]; ok {
		return p, true
	}
	for candidate := path.Dir(route); candidate != "/"; candidate = path.Dir(candidate) {
		if p, ok := t.policies[candidate]; ok {
			return p, true
		}
	}
	return RoutePolicy{}, false
}

// Policies returns every policy ordered by path
func (t *RouteTable) Policies() []RoutePolicy {
	if t == nil {
		return nil
	}
	out := make([]RoutePolicy, 0, len(t.policies))
	for _, p := range t.policies {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// DefaultRoutes is the compiled-in route policy
func DefaultRoutes() []RoutePolicy {
	return []RoutePolicy{
		{Path: "/", Permission: rbac.PermViewMembers},
		{Path: "/chat", Permission: rbac.PermAccessChat},
		{Path: "/chat/permissions", Permission: rbac.PermManageChatPermissions, Mutating: true},
		{Path: "/members", Permission: rbac.PermViewMembers},
		{Path: "/members/manage", Permission: rbac.PermManageMembers, Mutating: true, SeatAffecting: true},
		{Path: "/invitations", Permission: rbac.PermManageInvitations, Mutating: true, SeatAffecting: true},
		{Path: "/pending", Permission: rbac.PermViewPending},
		{Path: "/history", Permission: rbac.PermViewHistory},
		{Path: "/settings", Permission: rbac.PermEditOrganization, Mutating: true},
		{Path: "/billing", Permission: rbac.PermOrgUpdate, Mutating: true, FrozenExempt: true},
		{Path: "/seats", Permission: rbac.PermViewMembers},
		{Path: "/seats/manage", Permission: rbac.PermManageMembers, Mutating: true, SeatAffecting: true},
	}
}

// DefaultRouteTable returns the compiled-in table
func DefaultRouteTable() *RouteTable {
	t, err := NewRouteTable(DefaultRoutes())
	if err != nil {
		panic(err)
	}
	return t
}
