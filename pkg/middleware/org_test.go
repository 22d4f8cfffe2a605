package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/gatehouse/pkg/auth"
	"github.com/platinummonkey/gatehouse/pkg/contextkeys"
	"github.com/platinummonkey/gatehouse/pkg/guard"
	"github.com/platinummonkey/gatehouse/pkg/rbac"
)

type memberTable map[uuid.UUID]*rbac.Membership

func (m memberTable) GetMembership(ctx context.Context, userID, orgID uuid.UUID) (*rbac.Membership, error) {
	ms, ok := m[userID]
	if !ok || ms.OrganizationID != orgID {
		return nil, auth.ErrMembershipNotFound
	}
	return ms, nil
}

type frozenFlag bool

func (f frozenFlag) IsFrozen(ctx context.Context, orgID uuid.UUID) (bool, error) {
	return bool(f), nil
}

func newOrgRouter(g *guard.Guard) *mux.Router {
	r := mux.NewRouter()
	page := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.PathPrefix("/o/{org_id}").Handler(OrgRouteGuard(g, "org_id")(page))
	return r
}

func TestOrgRouteGuard(t *testing.T) {
	orgID := uuid.New()
	admin := uuid.New()
	resident := uuid.New()
	members := memberTable{
		admin:    rbac.NewMembership(admin, orgID, rbac.RoleAdmin),
		resident: rbac.NewMembership(resident, orgID, rbac.RoleResident),
	}

	cfg := guard.DefaultConfig()
	g := guard.New(guard.DefaultRouteTable(), members, frozenFlag(false), cfg)
	router := newOrgRouter(g)

	serve := func(userID *uuid.UUID, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if userID != nil {
			req = req.WithContext(contextkeys.WithSessionUser(req.Context(), *userID))
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("anonymous goes to login", func(t *testing.T) {
		path := "/o/" + orgID.String() + "/chat"
		rec := serve(nil, path)
		require.Equal(t, http.StatusSeeOther, rec.Code)

		loc, err := url.Parse(rec.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "/login", loc.Path)
		assert.Equal(t, path, loc.Query().Get("redirect_to"))
	})

	t.Run("resident may chat", func(t *testing.T) {
		rec := serve(&resident, "/o/"+orgID.String()+"/chat")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("resident may not manage members", func(t *testing.T) {
		rec := serve(&resident, "/o/"+orgID.String()+"/members/manage")
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/forbidden", rec.Header().Get("Location"))
	})

	t.Run("admin may manage members", func(t *testing.T) {
		rec := serve(&admin, "/o/"+orgID.String()+"/members/manage")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("organization root", func(t *testing.T) {
		rec := serve(&resident, "/o/"+orgID.String())
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("malformed organization id", func(t *testing.T) {
		rec := serve(&admin, "/o/not-a-uuid/chat")
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/forbidden", rec.Header().Get("Location"))
	})

	t.Run("other organization", func(t *testing.T) {
		rec := serve(&admin, "/o/"+uuid.NewString()+"/chat")
		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})
}

func TestOrgRouteGuard_Frozen(t *testing.T) {
	orgID := uuid.New()
	admin := uuid.New()
	members := memberTable{admin: rbac.NewMembership(admin, orgID, rbac.RoleAdmin)}

	cfg := guard.DefaultConfig()
	cfg.Production = false
	cfg.FrozenPath = "/frozen"
	g := guard.New(guard.DefaultRouteTable(), members, frozenFlag(true), cfg)
	router := newOrgRouter(g)

	serve := func(path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req = req.WithContext(contextkeys.WithSessionUser(req.Context(), admin))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := serve("/o/" + orgID.String() + "/settings")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/frozen?reason=organization_frozen", rec.Header().Get("Location"))

	rec = serve("/o/" + orgID.String() + "/billing")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOrgRelativeRoute(t *testing.T) {
	id := uuid.NewString()
	tests := []struct {
		path string
		raw  string
		want string
	}{
		{"/o/" + id + "/chat", id, "/chat"},
		{"/o/" + id + "/chat/permissions", id, "/chat/permissions"},
		{"/o/" + id, id, "/"},
		{"/o/" + id + "/", id, "/"},
		{"/other", id, "/other"},
		{"/o/", "", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, orgRelativeRoute(tt.path, tt.raw), tt.path)
	}
}
