package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/platinummonkey/gatehouse/pkg/contextkeys"
	"github.com/platinummonkey/gatehouse/pkg/features"
	"github.com/platinummonkey/gatehouse/pkg/httputil"
)

// FlagsResponse lists the flags resolved for one user
type FlagsResponse struct {
	UserID uuid.UUID       `json:"user_id"`
	Flags  []features.Flag `json:"flags"`
}

// FlagHandlers serves feature flag lookups
type FlagHandlers struct {
	resolver    *features.Resolver
	development bool
}

// NewFlagHandlers creates new FlagHandlers
func NewFlagHandlers(resolver *features.Resolver, development bool) *FlagHandlers {
	return &FlagHandlers{resolver: resolver, development: development}
}

// RegisterRoutes registers flag routes
func (h *FlagHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/me/flags", h.getMyFlags).Methods(http.MethodGet)
	router.HandleFunc("/dev/users/{user_id}/flags", h.getUserFlags).Methods(http.MethodGet)
}

// getMyFlags handles GET /api/v1/me/flags
func (h *FlagHandlers) getMyFlags(w http.ResponseWriter, r *http.Request) {
	userID := contextkeys.SessionUser(r.Context())
	if userID == nil {
		httputil.WriteUnauthorized(w, "Not authenticated")
		return
	}
	h.writeFlags(w, r, *userID)
}

// getUserFlags handles GET /api/v1/dev/users/{user_id}/flags. Outside
// development it is forbidden before the path is even looked at.
func (h *FlagHandlers) getUserFlags(w http.ResponseWriter, r *http.Request) {
	if !h.development {
		httputil.WriteForbidden(w, "Only available in development")
		return
	}
	userID, ok := httputil.ParsePathUUIDOrError(w, r, "user_id")
	if !ok {
		return
	}
	h.writeFlags(w, r, userID)
}

func (h *FlagHandlers) writeFlags(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	flags := []features.Flag{}
	if h.resolver != nil {
		flags = h.resolver.FlagsFor(r.Context(), userID)
	}
	_ = httputil.WriteSuccess(w, FlagsResponse{UserID: userID, Flags: flags})
}
