// Package observability provides structured logging, Prometheus and
// OpenTelemetry metrics, tracing, health checks and graceful shutdown for
// the gatehouse binaries.
//
// # Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("org_id", orgID).Info("Organization frozen")
//
// Request-scoped loggers travel in the context; FromContext attaches the
// request id and session user:
//
//	observability.FromContext(r.Context()).WithError(err).Error("Seat insert failed")
//
// # Metrics
//
// NewMetrics registers the gatehouse_* collectors on a registry. Every
// Record helper accepts a nil *Metrics so components can be built without
// instrumentation in tests. AttachOTel mirrors guard and sweep measurements
// onto OpenTelemetry instruments once StartTelemetry has installed a
// meter provider.
//
// # Health
//
// HealthChecker exposes /health/live and /health/ready. The database is
// required; Redis only backs the optional flag cache and degrades
// readiness instead of failing it.
package observability
