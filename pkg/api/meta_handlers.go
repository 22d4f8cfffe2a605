package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/gatehouse/pkg/httputil"
	"github.com/platinummonkey/gatehouse/pkg/orgs"
	"github.com/platinummonkey/gatehouse/pkg/rbac"
)

// MetaHandlers serves the static reference lists
type MetaHandlers struct{}

// NewMetaHandlers creates new MetaHandlers
func NewMetaHandlers() *MetaHandlers {
	return &MetaHandlers{}
}

// RegisterRoutes registers reference list routes
func (h *MetaHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/organization-roles", h.listRoles).Methods(http.MethodGet)
	router.HandleFunc("/organization-types", h.listTypes).Methods(http.MethodGet)
}

// listRoles handles GET /api/v1/organization-roles
func (h *MetaHandlers) listRoles(w http.ResponseWriter, r *http.Request) {
	_ = httputil.WriteSuccess(w, rbac.BuiltInRoles())
}

// listTypes handles GET /api/v1/organization-types
func (h *MetaHandlers) listTypes(w http.ResponseWriter, r *http.Request) {
	_ = httputil.WriteSuccess(w, orgs.OrgTypes())
}
