package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/gatehouse/pkg/auth"
	"github.com/platinummonkey/gatehouse/pkg/features"
	"github.com/platinummonkey/gatehouse/pkg/guard"
	"github.com/platinummonkey/gatehouse/pkg/httputil"
	"github.com/platinummonkey/gatehouse/pkg/middleware"
	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/orgs"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// Dependencies wires the server to the access-control core
type Dependencies struct {
	Guard    *guard.Guard
	Seats    *orgs.SeatManager
	Flags    *features.Resolver
	Sessions auth.SessionResolver

	// Limiter is optional; nil disables API rate limiting
	Limiter   middleware.Limiter
	RateLimit middleware.RateLimitConfig

	// Pages is optional; when set it serves /o/{org_id}/... behind the
	// route guard
	Pages http.Handler

	// Development enables the development-only endpoints
	Development bool

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// Server represents our API server
type Server struct {
	router *mux.Router
	deps   Dependencies
}

// NewServer creates a new API server
func NewServer(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = observability.NopLogger()
	}
	s := &Server{
		router: mux.NewRouter(),
		deps:   deps,
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all the API routes
func (s *Server) setupRoutes() {
	s.router.Use(
		middleware.RequestIDMiddleware(s.deps.Logger),
		httputil.RecoveryMiddleware(s.deps.Logger),
		observability.HTTPMetricsMiddleware(s.deps.Metrics),
		middleware.AccessLogMiddleware,
	)
	if s.deps.Sessions != nil {
		s.router.Use(middleware.SessionMiddleware(s.deps.Sessions))
	}
	s.router.Use(middleware.RequestCacheMiddleware)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	if s.deps.Limiter != nil {
		api.Use(middleware.RateLimitMiddleware(s.deps.Limiter, s.deps.RateLimit))
	}
	api.Use(
		middleware.RequireSession,
		httputil.ContentTypeMiddleware,
		httputil.MaxBytesMiddleware(maxBodyBytes),
	)

	NewMetaHandlers().RegisterRoutes(api)
	NewFlagHandlers(s.deps.Flags, s.deps.Development).RegisterRoutes(api)
	NewOrgHandlers(s.deps.Guard, s.deps.Seats).RegisterRoutes(api)

	if s.deps.Pages != nil {
		s.router.PathPrefix("/o/{org_id}").Handler(middleware.OrgRouteGuard(s.deps.Guard, "org_id")(s.deps.Pages))
	}
}

// Router returns the server's router
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
