package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/platinummonkey/gatehouse/pkg/contextkeys"
	"github.com/platinummonkey/gatehouse/pkg/guard"
	"github.com/platinummonkey/gatehouse/pkg/httputil"
	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/orgcache"
	"github.com/platinummonkey/gatehouse/pkg/orgs"
	"github.com/platinummonkey/gatehouse/pkg/rbac"
	"github.com/platinummonkey/gatehouse/pkg/validation"
)

// forbiddenMessage is shared by every authorization denial so the response
// does not reveal membership, role or frozen state.
const forbiddenMessage = "You do not have access to this resource"

// Policies for the organization endpoints. They are evaluated by the same
// guard as page routes.
var (
	contextPolicy   = guard.RoutePolicy{Path: "/api/context", Permission: rbac.PermViewMembers}
	listSeatsPolicy = guard.RoutePolicy{Path: "/api/seats", Permission: rbac.PermViewMembers}
	addSeatPolicy   = guard.RoutePolicy{
		Path:          "/api/seats/add",
		Permission:    rbac.PermManageMembers,
		Mutating:      true,
		SeatAffecting: true,
	}
	removeSeatPolicy = guard.RoutePolicy{
		Path:         "/api/seats/remove",
		Permission:   rbac.PermManageMembers,
		Mutating:     true,
		FrozenExempt: true,
	}
	recomputePolicy = guard.RoutePolicy{
		Path:         "/api/recompute",
		Permission:   rbac.PermOrgUpdate,
		Mutating:     true,
		FrozenExempt: true,
	}
)

// apiPolicies are reported in context snapshots next to the page routes
var apiPolicies = []guard.RoutePolicy{contextPolicy, listSeatsPolicy, addSeatPolicy, removeSeatPolicy, recomputePolicy}

// SeatsResponse is seat usage plus the occupied seats
type SeatsResponse struct {
	Usage *orgs.SeatUsage `json:"usage"`
	Seats []*orgs.Seat    `json:"seats"`
}

// RecomputeResponse reports the freshly computed frozen flag
type RecomputeResponse struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	IsFrozen       bool      `json:"is_frozen"`
}

// OrgHandlers handles organization-scoped HTTP requests
type OrgHandlers struct {
	guard *guard.Guard
	seats *orgs.SeatManager
	now   func() time.Time
}

// NewOrgHandlers creates new OrgHandlers
func NewOrgHandlers(g *guard.Guard, seats *orgs.SeatManager) *OrgHandlers {
	return &OrgHandlers{guard: g, seats: seats, now: time.Now}
}

// RegisterRoutes registers organization routes
func (h *OrgHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/organizations/{org_id}/context", h.getContext).Methods(http.MethodGet)
	router.HandleFunc("/organizations/{org_id}/seats", h.listSeats).Methods(http.MethodGet)
	router.HandleFunc("/organizations/{org_id}/seats", h.createSeat).Methods(http.MethodPost)
	router.HandleFunc("/organizations/{org_id}/seats/{seat_id}", h.deleteSeat).Methods(http.MethodDelete)
	router.HandleFunc("/organizations/{org_id}/recompute", h.recompute).Methods(http.MethodPost)
}

// authorize runs the guard for policy and writes the denial response. It
// returns nil when the request must stop.
func (h *OrgHandlers) authorize(w http.ResponseWriter, r *http.Request, orgID uuid.UUID, policy guard.RoutePolicy) *guard.Verdict {
	v := h.guard.Check(r.Context(), contextkeys.SessionUser(r.Context()), orgID, policy)
	if v.Allowed {
		return v
	}

	switch v.Reason {
	case guard.ReasonNotAuthenticated:
		httputil.WriteUnauthorized(w, "Not authenticated")
	case guard.ReasonUpstream:
		observability.FromContext(r.Context()).WithField("organization_id", orgID.String()).
			Error("Authorization backend unavailable")
		httputil.WriteInternalError(w)
	default:
		httputil.WriteForbidden(w, forbiddenMessage)
	}
	return nil
}

// getContext handles GET /api/v1/organizations/{org_id}/context
func (h *OrgHandlers) getContext(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathUUIDOrError(w, r, "org_id")
	if !ok {
		return
	}
	v := h.authorize(w, r, orgID, contextPolicy)
	if v == nil {
		return
	}

	org, err := h.seats.Organization(r.Context(), orgID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	membership := v.Membership()
	snapshot := orgcache.Snapshot{
		Organization: orgcache.OrganizationSummary{
			ID:       org.ID,
			Name:     org.Name,
			Type:     string(org.Type),
			IsFrozen: org.IsFrozen,
		},
		Membership: orgcache.MembershipSummary{
			Role:    membership.Role,
			IsAdmin: membership.IsAdmin,
		},
		Permissions: rbac.EffectivePermissions(membership),
		Actions:     h.guard.Gates(membership, org.IsFrozen, apiPolicies...),
		FetchedAt:   h.now().UTC(),
	}
	_ = httputil.WriteSuccess(w, snapshot)
}

// listSeats handles GET /api/v1/organizations/{org_id}/seats
func (h *OrgHandlers) listSeats(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathUUIDOrError(w, r, "org_id")
	if !ok {
		return
	}
	if h.authorize(w, r, orgID, listSeatsPolicy) == nil {
		return
	}

	usage, err := h.seats.Usage(r.Context(), orgID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	seats, err := h.seats.ListSeats(r.Context(), orgID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, SeatsResponse{Usage: usage, Seats: seats})
}

// createSeat handles POST /api/v1/organizations/{org_id}/seats
func (h *OrgHandlers) createSeat(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathUUIDOrError(w, r, "org_id")
	if !ok {
		return
	}
	var req orgs.CreateSeatRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if h.authorize(w, r, orgID, addSeatPolicy) == nil {
		return
	}

	seat, err := h.seats.CreateSeat(r.Context(), orgID, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = httputil.WriteCreated(w, seat)
}

// deleteSeat handles DELETE /api/v1/organizations/{org_id}/seats/{seat_id}
func (h *OrgHandlers) deleteSeat(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathUUIDOrError(w, r, "org_id")
	if !ok {
		return
	}
	seatID, ok := httputil.ParsePathUUIDOrError(w, r, "seat_id")
	if !ok {
		return
	}
	if h.authorize(w, r, orgID, removeSeatPolicy) == nil {
		return
	}

	if err := h.seats.RemoveSeat(r.Context(), orgID, seatID); err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = httputil.WriteEnvelope(w, http.StatusOK, nil, "Seat removed")
}

// recompute handles POST /api/v1/organizations/{org_id}/recompute
func (h *OrgHandlers) recompute(w http.ResponseWriter, r *http.Request) {
	orgID, ok := httputil.ParsePathUUIDOrError(w, r, "org_id")
	if !ok {
		return
	}
	if h.authorize(w, r, orgID, recomputePolicy) == nil {
		return
	}

	frozen, err := h.seats.RecomputeFrozen(r.Context(), orgID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = httputil.WriteSuccess(w, RecomputeResponse{OrganizationID: orgID, IsFrozen: frozen})
}

func (h *OrgHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case validation.IsValidationError(err):
		httputil.WriteValidationError(w, err)
	case errors.Is(err, orgs.ErrSeatNotFound):
		httputil.WriteNotFoundError(w, "Seat not found")
	case errors.Is(err, orgs.ErrOrganizationNotFound):
		httputil.WriteNotFoundError(w, "Organization not found")
	default:
		observability.FromContext(r.Context()).WithError(err).Error("Organization request failed")
		httputil.WriteInternalError(w)
	}
}
