package guard

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/platinummonkey/gatehouse/pkg/auth"
	"github.com/platinummonkey/gatehouse/pkg/observability"
	"github.com/platinummonkey/gatehouse/pkg/rbac"
)

// MembershipResolver looks up a user's membership in an organization.
// It returns auth.ErrMembershipNotFound when there is none.
type MembershipResolver interface {
	GetMembership(ctx context.Context, userID, organizationID uuid.UUID) (*rbac.Membership, error)
}

// FreezeChecker reports an organization's stored frozen flag
type FreezeChecker interface {
	IsFrozen(ctx context.Context, organizationID uuid.UUID) (bool, error)
}

// PermissionEvaluator decides a permission for a membership
type PermissionEvaluator interface {
	Can(permission rbac.Permission, membership *rbac.Membership) bool
}

// Guard decides whether a user may reach an organization route. It holds
// no per-request state and is safe for concurrent use.
type Guard struct {
	config    Config
	routes    RouteSource
	members   MembershipResolver
	freezes   FreezeChecker
	evaluator PermissionEvaluator
	logger    *observability.Logger
	metrics   *observability.Metrics
	tracer    trace.Tracer
}

// Option configures a Guard
type Option func(*Guard)

// WithLogger sets the logger
func WithLogger(logger *observability.Logger) Option {
	return func(g *Guard) { g.logger = logger }
}

// WithMetrics sets the metrics sink
func WithMetrics(metrics *observability.Metrics) Option {
	return func(g *Guard) { g.metrics = metrics }
}

// WithEvaluator replaces the built-in permission table
func WithEvaluator(evaluator PermissionEvaluator) Option {
	return func(g *Guard) { g.evaluator = evaluator }
}

// New creates a Guard
func New(routes RouteSource, members MembershipResolver, freezes FreezeChecker, config Config, opts ...Option) *Guard {
	if routes == nil {
		routes = DefaultRouteTable()
	}
	g := &Guard{
		config:    config.withDefaults(),
		routes:    routes,
		members:   members,
		freezes:   freezes,
		evaluator: rbac.Evaluator{},
		logger:    observability.NopLogger(),
		tracer:    observability.Tracer("pkg/guard"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Config returns the effective configuration
func (g *Guard) Config() Config {
	return g.config
}

// Authorize evaluates req against the route table. Routes without an entry
// are denied.
func (g *Guard) Authorize(ctx context.Context, req Request) *Verdict {
	route := CleanRoute(req.Route)
	policy, found := g.routes.Table().Lookup(route)
	if !found {
		policy = RoutePolicy{Path: route}
	}
	return g.run(ctx, req, route, policy, found)
}

// Check evaluates an explicit policy, for callers such as API handlers
// that are not driven by the route table.
func (g *Guard) Check(ctx context.Context, userID *uuid.UUID, organizationID uuid.UUID, policy RoutePolicy) *Verdict {
	req := Request{UserID: userID, OrganizationID: organizationID, Route: policy.Path}
	return g.run(ctx, req, CleanRoute(policy.Path), policy, true)
}

func (g *Guard) run(ctx context.Context, req Request, route string, policy RoutePolicy, known bool) *Verdict {
	cache := verdictCacheFrom(ctx)
	key := cacheKey(req, route, policy, known)
	if v, ok := cache.get(key); ok {
		return v
	}

	ctx, span := g.tracer.Start(ctx, "guard.authorize", trace.WithAttributes(
		attribute.String("guard.route", route),
		attribute.String("guard.permission", string(policy.Permission)),
	))
	defer span.End()

	start := time.Now()
	v := g.evaluate(ctx, req, route, policy, known)
	elapsed := time.Since(start)

	outcome := "allowed"
	if !v.Allowed {
		outcome = "denied"
	}
	span.SetAttributes(
		attribute.String("guard.outcome", outcome),
		attribute.String("guard.reason", string(v.Reason)),
	)
	g.metrics.RecordGuardDecision(outcome, string(v.Reason), elapsed)

	if !v.Allowed {
		fields := map[string]interface{}{
			"route":  route,
			"reason": string(v.Reason),
		}
		if req.UserID != nil {
			fields["user_id"] = req.UserID.String()
		}
		g.logger.WithFields(fields).Debug("Route access denied")
	}

	cache.put(key, v)
	return v
}

func (g *Guard) evaluate(ctx context.Context, req Request, route string, policy RoutePolicy, known bool) *Verdict {
	v := &Verdict{Route: route, State: StateStart, Trail: []State{StateStart}}

	if req.UserID == nil || *req.UserID == uuid.Nil {
		return g.deny(v, ReasonNotAuthenticated, g.loginRedirect(req, route))
	}
	v.advance(StateIdentified)

	if req.OrganizationID == uuid.Nil {
		return g.deny(v, ReasonNotAMember, g.denialRedirect(ReasonNotAMember))
	}

	membership, err := g.members.GetMembership(ctx, *req.UserID, req.OrganizationID)
	switch {
	case errors.Is(err, auth.ErrMembershipNotFound):
		return g.deny(v, ReasonNotAMember, g.denialRedirect(ReasonNotAMember))
	case err != nil:
		g.logger.WithError(err).WithField("route", route).Warn("Membership lookup failed")
		return g.deny(v, ReasonUpstream, g.denialRedirect(ReasonUpstream))
	case membership == nil:
		return g.deny(v, ReasonNotAMember, g.denialRedirect(ReasonNotAMember))
	}
	v.membership = membership
	v.advance(StateMembershipResolved)

	if !known {
		return g.deny(v, ReasonUnknownRoute, g.denialRedirect(ReasonUnknownRoute))
	}
	frozen := false
	if g.evaluator.Can(policy.Permission, membership) && policy.blockedWhenFrozen(g.config.FrozenPolicy) {
		frozen, err = g.freezes.IsFrozen(ctx, req.OrganizationID)
		if err != nil {
			g.logger.WithError(err).WithField("route", route).Warn("Frozen flag lookup failed")
			return g.deny(v, ReasonUpstream, g.denialRedirect(ReasonUpstream))
		}
	}
	if reason := g.decide(policy, membership, frozen); reason != ReasonNone {
		return g.deny(v, reason, g.denialRedirect(reason))
	}

	v.Allowed = true
	v.advance(StateAllowed)
	return v
}

// decide applies the permission and frozen rules of policy to a resolved
// membership. It is the only place those rules are combined.
func (g *Guard) decide(policy RoutePolicy, membership *rbac.Membership, frozen bool) Reason {
	if !g.evaluator.Can(policy.Permission, membership) {
		return ReasonPermissionDenied
	}
	if frozen && policy.blockedWhenFrozen(g.config.FrozenPolicy) {
		return ReasonOrganizationFrozen
	}
	return ReasonNone
}

// Gates reports, for every route in the current table plus extra, whether
// membership passes it given the organization's frozen flag. The result
// matches Check for the same membership and flag, so clients can gate
// controls without restating the rules. Paths are cleaned.
func (g *Guard) Gates(membership *rbac.Membership, frozen bool, extra ...RoutePolicy) map[string]bool {
	policies := append(g.routes.Table().Policies(), extra...)
	gates := make(map[string]bool, len(policies))
	for _, p := range policies {
		gates[CleanRoute(p.Path)] = membership != nil && g.decide(p, membership, frozen) == ReasonNone
	}
	return gates
}

func (v *Verdict) advance(s State) {
	v.State = s
	v.Trail = append(v.Trail, s)
}

func (g *Guard) deny(v *Verdict, reason Reason, redirect string) *Verdict {
	v.Allowed = false
	v.Reason = reason
	v.RedirectTo = redirect
	v.advance(StateDeniedRedirect)
	return v
}

func (g *Guard) loginRedirect(req Request, route string) string {
	returnTo := req.ReturnTo
	if returnTo == "" {
		returnTo = route
	}
	q := url.Values{}
	q.Set(g.config.ReturnToParam, SafeReturnTo(returnTo))
	return g.config.LoginPath + "?" + q.Encode()
}

func (g *Guard) denialRedirect(reason Reason) string {
	if g.config.Production {
		if reason == ReasonOrganizationFrozen {
			return g.config.FrozenPath
		}
		return g.config.ForbiddenPath
	}

	target := g.config.ForbiddenPath
	switch reason {
	case ReasonNotAMember:
		target = g.config.NotMemberPath
	case ReasonOrganizationFrozen:
		target = g.config.FrozenPath
	}
	return target + "?" + url.Values{"reason": {string(reason)}}.Encode()
}

// SafeReturnTo accepts only local absolute paths and falls back to "/"
func SafeReturnTo(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}

// Enforce authorizes req for a page render. It returns true when the page
// may render; otherwise it writes a 303 redirect and returns false.
func (g *Guard) Enforce(w http.ResponseWriter, r *http.Request, req Request) bool {
	if req.ReturnTo == "" {
		req.ReturnTo = r.URL.RequestURI()
	}
	v := g.Authorize(r.Context(), req)
	if v.Allowed {
		return true
	}
	http.Redirect(w, r, v.RedirectTo, http.StatusSeeOther)
	return false
}
