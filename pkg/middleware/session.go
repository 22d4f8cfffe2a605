package middleware

import (
	"net/http"

	"github.com/platinummonkey/gatehouse/pkg/auth"
	"github.com/platinummonkey/gatehouse/pkg/contextkeys"
	"github.com/platinummonkey/gatehouse/pkg/httputil"
	"github.com/platinummonkey/gatehouse/pkg/observability"
)

// SessionMiddleware resolves the caller's session and stores the user id in
// the request context. Missing or invalid sessions leave the request
// anonymous.
func SessionMiddleware(resolver auth.SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := resolver.Resolve(r)
			if err != nil {
				observability.FromContext(r.Context()).WithError(err).Debug("Ignoring invalid session")
				next.ServeHTTP(w, r)
				return
			}
			if userID == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := contextkeys.WithSessionUser(r.Context(), *userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession rejects anonymous API requests with a 401 envelope
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if contextkeys.SessionUser(r.Context()) == nil {
			httputil.WriteUnauthorized(w, "Not authenticated")
			return
		}
		next.ServeHTTP(w, r)
	})
}
