package httputil

import (
	"mime"
	"net/http"
	"runtime/debug"

	"github.com/platinummonkey/gatehouse/pkg/contextkeys"
	"github.com/platinummonkey/gatehouse/pkg/observability"
)

// RecoveryMiddleware turns a handler panic into the 500 envelope. The
// panic is logged with the request's logger when one is in the context,
// so the entry carries the request id; fallback is used otherwise.
func RecoveryMiddleware(fallback *observability.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				recovered := recover()
				if recovered == nil {
					return
				}
				if recovered == http.ErrAbortHandler {
					panic(recovered)
				}
				logger := fallback
				if _, ok := r.Context().Value(contextkeys.LoggerKey).(*observability.Logger); ok {
					logger = observability.FromContext(r.Context())
				}
				logger.WithError(observability.PanicError(recovered)).
					WithField("route", r.Method+" "+r.URL.Path).
					WithField("stack", string(debug.Stack())).
					Error("Handler panicked")
				WriteInternalError(w)
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Chain composes middlewares; the first one is outermost
func Chain(middlewares ...func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(final http.Handler) http.Handler {
		for i := len(middlewares) - 1; i >= 0; i-- {
			final = middlewares[i](final)
		}
		return final
	}
}

// ContentTypeMiddleware rejects write requests whose body is declared as
// anything but JSON. Parameters such as charset are allowed.
func ContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			if declared := r.Header.Get("Content-Type"); declared != "" {
				mediaType, _, err := mime.ParseMediaType(declared)
				if err != nil || mediaType != "application/json" {
					WriteBadRequest(w, "Content-Type must be application/json")
					return
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

// MaxBytesMiddleware caps request bodies at maxBytes
func MaxBytesMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
