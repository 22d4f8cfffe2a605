package orgcache

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/gatehouse/pkg/rbac"
)

func writeEnvelope(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	orgID := uuid.New()
	fetchedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/organizations/"+orgID.String()+"/context", r.URL.Path)
		assert.Equal(t, "Bearer session-token", r.Header.Get("Authorization"))
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"error":   false,
			"message": "",
			"data": Snapshot{
				Organization: OrganizationSummary{ID: orgID, Name: "Maple Court", Type: "residential"},
				Membership:   MembershipSummary{Role: rbac.RoleSecurity},
				Permissions:  []rbac.Permission{rbac.PermViewPending},
				FetchedAt:    fetchedAt,
			},
		})
	}))
	defer server.Close()

	fetcher := NewHTTPFetcher(server.URL, WithToken("session-token"), WithTimeout(time.Second))
	snap, err := fetcher.Fetch(context.Background(), orgID)
	require.NoError(t, err)
	assert.Equal(t, orgID, snap.Organization.ID)
	assert.Equal(t, rbac.RoleSecurity, snap.Membership.Role)
	assert.True(t, fetchedAt.Equal(snap.FetchedAt))
	assert.True(t, snap.Can(rbac.PermViewPending))
}

func TestHTTPFetcher_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, expected: ErrNotAuthenticated},
		{name: "forbidden", status: http.StatusForbidden, expected: ErrAccessDenied},
		{name: "not found", status: http.StatusNotFound, expected: ErrAccessDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, tt.status, map[string]interface{}{"error": true, "data": nil, "message": "nope"})
			}))
			defer server.Close()

			_, err := NewHTTPFetcher(server.URL).Fetch(context.Background(), uuid.New())
			assert.ErrorIs(t, err, tt.expected)
		})
	}
}

func TestHTTPFetcher_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, map[string]interface{}{"error": true, "data": nil, "message": "Internal server error"})
	}))
	defer server.Close()

	_, err := NewHTTPFetcher(server.URL).Fetch(context.Background(), uuid.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "Internal server error")
}

func TestHTTPFetcher_WithCache(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeEnvelope(w, http.StatusOK, map[string]interface{}{
			"error": false,
			"data":  Snapshot{Membership: MembershipSummary{Role: rbac.RoleResident}},
		})
	}))
	defer server.Close()

	cache := New(NewHTTPFetcher(server.URL), 4, time.Minute, nil)
	orgID := uuid.New()
	for i := 0; i < 3; i++ {
		snap, err := cache.Get(context.Background(), orgID)
		require.NoError(t, err)
		assert.False(t, snap.FetchedAt.IsZero())
	}
	assert.Equal(t, 1, calls)
}
