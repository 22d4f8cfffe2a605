// Package middleware provides the HTTP middleware that sits in front of
// gatehouse pages and API handlers.
//
//	router.Use(
//		middleware.RequestIDMiddleware(logger),
//		middleware.SessionMiddleware(resolver),
//		middleware.RequestCacheMiddleware,
//	)
//
//	pages := router.PathPrefix("/o/{org_id}").Subrouter()
//	pages.Use(middleware.OrgRouteGuard(g, "org_id"))
//
// SessionMiddleware never rejects a request; it only records who is
// calling. Anonymous callers are turned away later, by the route guard for
// pages and by RequireSession for the API.
package middleware
