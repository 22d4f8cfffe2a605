package orgcache

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/platinummonkey/gatehouse/pkg/auth"
	"github.com/platinummonkey/gatehouse/pkg/guard"
	"github.com/platinummonkey/gatehouse/pkg/rbac"
)

type staticMembers map[uuid.UUID]*rbac.Membership

func (s staticMembers) GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*rbac.Membership, error) {
	m, ok := s[userID]
	if !ok {
		return nil, auth.ErrMembershipNotFound
	}
	return m, nil
}

type staticFreeze bool

func (f staticFreeze) IsFrozen(ctx context.Context, orgID uuid.UUID) (bool, error) {
	return bool(f), nil
}

var removeSeat = guard.RoutePolicy{
	Path:         "/api/seats/remove",
	Permission:   rbac.PermManageMembers,
	Mutating:     true,
	FrozenExempt: true,
}

func TestSnapshot_CanMutate(t *testing.T) {
	snap := &Snapshot{Actions: map[string]bool{
		"/chat":             true,
		"/chat/permissions": false,
		"/billing":          true,
	}}
	var none *Snapshot

	assert.True(t, snap.CanMutate("/chat"))
	assert.True(t, snap.CanMutate("/chat/"))
	assert.True(t, snap.CanMutate("/chat/rooms/4"))
	assert.False(t, snap.CanMutate("/chat/permissions/edit"))
	assert.True(t, snap.CanMutate("billing"))
	assert.False(t, snap.CanMutate("/unknown"))
	assert.False(t, none.CanMutate("/chat"))
}

func TestSnapshot_CanMutateMatchesGuard(t *testing.T) {
	orgID := uuid.New()
	users := map[rbac.Role]uuid.UUID{
		rbac.RoleAdmin:    uuid.New(),
		rbac.RoleResident: uuid.New(),
		rbac.RoleSecurity: uuid.New(),
	}
	members := staticMembers{}
	for role, id := range users {
		members[id] = rbac.NewMembership(id, orgID, role)
	}

	for _, policy := range []guard.FrozenPolicy{guard.FrozenPolicyAll, guard.FrozenPolicySeats} {
		for _, frozen := range []bool{false, true} {
			cfg := guard.DefaultConfig()
			cfg.FrozenPolicy = policy
			g := guard.New(guard.DefaultRouteTable(), members, staticFreeze(frozen), cfg)

			for role, userID := range users {
				id := userID
				membership := members[id]
				snap := &Snapshot{Actions: g.Gates(membership, frozen, removeSeat)}

				for _, p := range guard.DefaultRoutes() {
					for _, route := range []string{p.Path, p.Path + "/detail"} {
						want := g.Authorize(context.Background(), guard.Request{UserID: &id, OrganizationID: orgID, Route: route}).Allowed
						assert.Equal(t, want, snap.CanMutate(route),
							"policy=%s frozen=%t role=%s route=%s", policy, frozen, role, route)
					}
				}

				want := g.Check(context.Background(), &id, orgID, removeSeat).Allowed
				assert.Equal(t, want, snap.CanMutate(removeSeat.Path),
					"policy=%s frozen=%t role=%s route=%s", policy, frozen, role, removeSeat.Path)
			}
		}
	}
}

func TestSnapshot_FrozenAdminKeepsUnfreezingActions(t *testing.T) {
	orgID := uuid.New()
	admin := rbac.NewMembership(uuid.New(), orgID, rbac.RoleAdmin)

	all := guard.New(guard.DefaultRouteTable(), nil, nil, guard.DefaultConfig())
	snap := &Snapshot{Actions: all.Gates(admin, true, removeSeat)}
	assert.True(t, snap.CanMutate("/api/seats/remove"))
	assert.True(t, snap.CanMutate("/billing"))
	assert.False(t, snap.CanMutate("/seats/manage"))
	assert.False(t, snap.CanMutate("/settings"))

	cfg := guard.DefaultConfig()
	cfg.FrozenPolicy = guard.FrozenPolicySeats
	seats := guard.New(guard.DefaultRouteTable(), nil, nil, cfg)
	snap = &Snapshot{Actions: seats.Gates(admin, true, removeSeat)}
	assert.True(t, snap.CanMutate("/settings"))
	assert.False(t, snap.CanMutate("/seats/manage"))

	assert.False(t, (&Snapshot{Actions: all.Gates(nil, false)}).CanMutate("/chat"))
}
