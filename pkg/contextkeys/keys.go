// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//
//	import "github.com/platinummonkey/gatehouse/pkg/contextkeys"
//	ctx = contextkeys.WithSessionUser(ctx, userID)
//	userID := contextkeys.SessionUser(ctx) // *uuid.UUID, nil when anonymous
//
// Context values stop at the HTTP edge. Handlers read the session user once
// and pass it explicitly into the guard, seat manager and flag resolver.
package contextkeys

import (
	"context"

	"github.com/google/uuid"
)

// Key is the type for context keys to prevent collisions
type Key string

const (
	// SessionUserKey contains the authenticated user's id
	// Set by: middleware.SessionMiddleware (pkg/middleware/session.go)
	// Required by: API handlers and the page guard middleware
	// Type: uuid.UUID
	SessionUserKey Key = "session_user"

	// RequestIDKey contains request ID string (UUID)
	// Set by: middleware.RequestIDMiddleware
	// Used by: Logger, distributed tracing
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: middleware.RequestIDMiddleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"

	// VerdictCacheKey contains the request-scoped guard verdict cache
	// Set by: guard.WithRequestCache (via middleware.RequestCacheMiddleware)
	// Used by: guard.Guard.Authorize and guard.Guard.Check
	// Type: *guard.requestCache
	VerdictCacheKey Key = "verdict_cache"
)

// WithSessionUser adds the authenticated user's id to the context
func WithSessionUser(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, SessionUserKey, userID)
}

// SessionUser returns the authenticated user's id, or nil for anonymous
// requests.
func SessionUser(ctx context.Context) *uuid.UUID {
	if userID, ok := ctx.Value(SessionUserKey).(uuid.UUID); ok && userID != uuid.Nil {
		return &userID
	}
	return nil
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}
