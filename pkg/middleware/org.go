package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/platinummonkey/gatehouse/pkg/contextkeys"
	"github.com/platinummonkey/gatehouse/pkg/guard"
	"github.com/platinummonkey/gatehouse/pkg/validation"
)

// OrgRouteGuard enforces the route guard on organization page routes
// mounted under a prefix with an organization id variable, such as
// /o/{org_id}/chat. The organization-relative remainder ("/chat") is looked
// up in the route table. A malformed organization id is treated like an
// organization the caller does not belong to.
func OrgRouteGuard(g *guard.Guard, orgVar string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := mux.Vars(r)[orgVar]
			orgID, err := validation.ParseUUIDv4(orgVar, raw)
			if err != nil {
				orgID = uuid.Nil
			}

			req := guard.Request{
				UserID:         contextkeys.SessionUser(r.Context()),
				OrganizationID: orgID,
				Route:          orgRelativeRoute(r.URL.Path, raw),
			}
			if !g.Enforce(w, r, req) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// orgRelativeRoute strips everything up to and including the organization
// id segment from path.
func orgRelativeRoute(path, rawOrgID string) string {
	if rawOrgID == "" {
		return "/"
	}
	marker := "/" + rawOrgID
	idx := strings.Index(path, marker+"/")
	if idx < 0 {
		if strings.HasSuffix(path, marker) {
			return "/"
		}
		return path
	}
	return path[idx+len(marker):]
}
