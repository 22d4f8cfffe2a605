// Package auth resolves who is making a request and what they are inside an
// organization.
//
// # Session resolution
//
// A SessionResolver turns an incoming request into an optional user id.
// JWTSessionResolver verifies HS256 session tokens issued by the identity
// provider, read from the Authorization bearer header or the session
// cookie. A missing or invalid token yields an anonymous request, never a
// hard failure; the route guard then redirects to login.
//
//	resolver, err := auth.NewJWTSessionResolver(auth.JWTConfig{
//		Secret:     cfg.Auth.JWTSecret,
//		Issuer:     cfg.Auth.JWTIssuer,
//		CookieName: "gatehouse_session",
//	})
//	userID, err := resolver.Resolve(r) // nil for anonymous
//
// # Identity store
//
// IdentityStore answers two questions: the user's profile with their
// optional app-level role, and the user's membership row in one
// organization. PostgresIdentityStore serves both from the profiles,
// user_roles and organization_members tables. Absent rows are reported as
// ErrUserNotFound and ErrMembershipNotFound; connection and deadline
// failures are wrapped with storage.ErrUpstreamUnavailable.
package auth
