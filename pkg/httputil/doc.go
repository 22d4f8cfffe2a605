// Package httputil provides the JSON envelope and request helpers shared by
// the API handlers.
//
// Every API response is an Envelope:
//
//	{"error": false, "data": {...}, "message": ""}
//
// # Response Helpers
//
//	httputil.WriteSuccess(w, data)
//	httputil.WriteErrorMessage(w, http.StatusForbidden, "Access denied")
//	httputil.WriteValidationError(w, err) // 400 with the field-scoped message
//
// # Request Parsing
//
//	orgID, ok := httputil.ParsePathUUIDOrError(w, r, "org_id")
//	if !ok {
//		return // 400 already written
//	}
//
//	var req orgs.CreateSeatRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return
//	}
//
// # Middleware
//
//	handler := httputil.Chain(
//		httputil.RecoveryMiddleware(logger),
//		httputil.MaxBytesMiddleware(1 << 20),
//		httputil.ContentTypeMiddleware,
//	)(router)
package httputil
