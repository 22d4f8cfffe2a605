// Package api provides the gatehouse HTTP API.
//
// # Overview
//
// The API exposes the access-control core to clients: the organization
// context snapshot consumed by client-side caches, the caller's feature
// flags, seat usage and seat management, and the reference lists of roles
// and organization types. Every organization-scoped endpoint authorizes
// through the same guard.Guard.Check used by page routes, so route guards
// and API handlers always agree.
//
// # Responses
//
// Every response uses the httputil envelope:
//
//	{"error": false, "data": {...}, "message": ""}
//
// Status codes: 200/201 success, 400 malformed input (identifiers must be
// UUID v4), 401 unauthenticated, 403 for any authorization denial with one
// generic message, 404 for missing seats, 500 for upstream failures.
//
// # Routes
//
//	GET    /api/v1/organization-roles
//	GET    /api/v1/organization-types
//	GET    /api/v1/me/flags
//	GET    /api/v1/dev/users/{user_id}/flags
//	GET    /api/v1/organizations/{org_id}/context
//	GET    /api/v1/organizations/{org_id}/seats
//	POST   /api/v1/organizations/{org_id}/seats
//	DELETE /api/v1/organizations/{org_id}/seats/{seat_id}
//	POST   /api/v1/organizations/{org_id}/recompute
//
// Page routes under /o/{org_id}/ are guarded by middleware.OrgRouteGuard
// when a page handler is configured.
package api
