// Package guard decides whether a user may reach an organization-scoped
// route.
//
// Every decision walks the same states:
//
//	START -> IDENTIFIED -> MEMBERSHIP_RESOLVED -> ALLOWED
//	   \          \                 \
//	    +----------+-----------------+-> DENIED_REDIRECT
//
// Anonymous users are sent to the login page with the original path as the
// return-to parameter. Non-members are sent to a generic destination and
// the verdict carries no organization data. Members are checked against the
// route's required permission and, for mutating routes, the organization's
// frozen flag. Routes missing from the table are denied.
//
// Page handlers call Enforce, which writes a 303 redirect on denial:
//
//	if !g.Enforce(w, r, guard.Request{UserID: userID, OrganizationID: orgID, Route: "/chat"}) {
//		return
//	}
//
// API handlers call Check with an explicit policy and map Verdict.Err to a
// status code.
//
// The route table is compiled in (DefaultRouteTable) or loaded from YAML
// with LoadRouteTable, optionally hot-reloaded with WatchRouteTable.
package guard
