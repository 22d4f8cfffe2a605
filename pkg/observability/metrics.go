package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authorization metrics
	GuardDecisionsTotal  *prometheus.CounterVec
	GuardDecisionLatency *prometheus.HistogramVec

	// Seat capacity metrics
	FreezeTransitionsTotal *prometheus.CounterVec
	RecomputeFailuresTotal prometheus.Counter
	SweepRunsTotal         *prometheus.CounterVec
	SweepDuration          prometheus.Histogram
	SweepOrganizations     *prometheus.CounterVec

	// Feature flag metrics
	FlagEvaluationsTotal *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge

	otel *OTelMetrics
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatehouse_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		GuardDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_guard_decisions_total",
				Help: "Route guard verdicts by outcome and denial reason",
			},
			[]string{"outcome", "reason"},
		),
		GuardDecisionLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gatehouse_guard_decision_duration_seconds",
				Help:    "Time to reach a route guard verdict",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 3},
			},
			[]string{"outcome"},
		),

		FreezeTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_freeze_transitions_total",
				Help: "Organization frozen flag transitions",
			},
			[]string{"to"},
		),
		RecomputeFailuresTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gatehouse_recompute_failures_total",
				Help: "Frozen flag recomputations that failed after a seat mutation",
			},
		),
		SweepRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_sweep_runs_total",
				Help: "Freeze sweep runs by result",
			},
			[]string{"result"},
		),
		SweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gatehouse_sweep_duration_seconds",
				Help:    "Freeze sweep run duration in seconds",
				Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 300, 900},
			},
		),
		SweepOrganizations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_sweep_organizations_total",
				Help: "Organizations visited by the freeze sweep",
			},
			[]string{"status"},
		),

		FlagEvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_flag_evaluations_total",
				Help: "Feature flag evaluations by result",
			},
			[]string{"result"},
		),

		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gatehouse_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache"},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatehouse_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "gatehouse_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.GuardDecisionsTotal,
		m.GuardDecisionLatency,
		m.FreezeTransitionsTotal,
		m.RecomputeFailuresTotal,
		m.SweepRunsTotal,
		m.SweepDuration,
		m.SweepOrganizations,
		m.FlagEvaluationsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// AttachOTel mirrors guard and sweep measurements onto OpenTelemetry
// instruments.
func (m *Metrics) AttachOTel(o *OTelMetrics) {
	if m != nil {
		m.otel = o
	}
}

// The Record helpers are nil-safe so components can run without metrics.

// RecordGuardDecision counts one route guard verdict
func (m *Metrics) RecordGuardDecision(outcome, reason string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.GuardDecisionsTotal.WithLabelValues(outcome, reason).Inc()
	m.GuardDecisionLatency.WithLabelValues(outcome).Observe(elapsed.Seconds())
	m.otel.recordGuardDecision(outcome, reason, elapsed)
}

// RecordFreezeTransition counts a frozen flag change
func (m *Metrics) RecordFreezeTransition(frozen bool) {
	if m == nil {
		return
	}
	to := "unfrozen"
	if frozen {
		to = "frozen"
	}
	m.FreezeTransitionsTotal.WithLabelValues(to).Inc()
	m.otel.recordFreezeTransition(to)
}

// RecordRecomputeFailure counts a recompute that could not complete
func (m *Metrics) RecordRecomputeFailure() {
	if m == nil {
		return
	}
	m.RecomputeFailuresTotal.Inc()
}

// RecordSweep records one finished sweep run
func (m *Metrics) RecordSweep(result string, elapsed time.Duration, scanned, failed int) {
	if m == nil {
		return
	}
	m.SweepRunsTotal.WithLabelValues(result).Inc()
	m.SweepDuration.Observe(elapsed.Seconds())
	m.SweepOrganizations.WithLabelValues("ok").Add(float64(scanned - failed))
	m.SweepOrganizations.WithLabelValues("failed").Add(float64(failed))
	m.otel.recordSweep(result, elapsed)
}

// RecordFlagEvaluation counts a flag resolution ("ok", "error", "panic")
func (m *Metrics) RecordFlagEvaluation(result string) {
	if m == nil {
		return
	}
	m.FlagEvaluationsTotal.WithLabelValues(result).Inc()
}

// RecordCacheLookup counts a hit or miss for the named cache
func (m *Metrics) RecordCacheLookup(cache string, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheHitsTotal.WithLabelValues(cache).Inc()
	} else {
		m.CacheMissesTotal.WithLabelValues(cache).Inc()
	}
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// routeLabel returns the matched mux route template so that ids in the
// path do not explode label cardinality.
func routeLabel(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics == nil {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			next.ServeHTTP(rw, r)

			route := routeLabel(r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
