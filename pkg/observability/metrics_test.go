package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestMetrics_RecordHelpers(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordGuardDecision("denied", "not_a_member", time.Millisecond)
	m.RecordGuardDecision("denied", "not_a_member", time.Millisecond)
	m.RecordGuardDecision("allowed", "", time.Millisecond)
	assert.Equal(t, 2.0, testutil.ToFloat64(m.GuardDecisionsTotal.WithLabelValues("denied", "not_a_member")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuardDecisionsTotal.WithLabelValues("allowed", "")))

	m.RecordFreezeTransition(true)
	m.RecordFreezeTransition(false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FreezeTransitionsTotal.WithLabelValues("frozen")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FreezeTransitionsTotal.WithLabelValues("unfrozen")))

	m.RecordSweep("completed", time.Second, 10, 2)
	assert.Equal(t, 8.0, testutil.ToFloat64(m.SweepOrganizations.WithLabelValues("ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SweepOrganizations.WithLabelValues("failed")))

	m.RecordCacheLookup("org_context", true)
	m.RecordCacheLookup("org_context", false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheHitsTotal.WithLabelValues("org_context")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheMissesTotal.WithLabelValues("org_context")))

	m.RecordFlagEvaluation("error")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FlagEvaluationsTotal.WithLabelValues("error")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordGuardDecision("allowed", "", time.Millisecond)
		m.RecordFreezeTransition(true)
		m.RecordRecomputeFailure()
		m.RecordSweep("failed", time.Second, 0, 0)
		m.RecordFlagEvaluation("ok")
		m.RecordCacheLookup("flags", true)
		m.AttachOTel(nil)
	})
}

func TestMetrics_AttachOTel(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	otelMetrics, err := NewOTelMetricsWithMeter(provider.Meter("test"))
	require.NoError(t, err)

	m := NewMetrics(prometheus.NewRegistry())
	m.AttachOTel(otelMetrics)
	m.RecordGuardDecision("denied", "frozen", time.Millisecond)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	names := map[string]bool{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			names[metric.Name] = true
		}
	}
	assert.True(t, names["gatehouse.guard.decisions"])
	assert.True(t, names["gatehouse.guard.duration"])
}

func TestHTTPMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	router := mux.NewRouter()
	router.Use(HTTPMetricsMiddleware(m))
	router.HandleFunc("/api/v1/organizations/{org_id}/seats", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/organizations/4b0e3ec2-0e4a-4b86-9d2a-8f0d6d0b0c1a/seats", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/api/v1/organizations/{org_id}/seats", "403")))
}

func TestRegisterMetricsEndpoint(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewMetrics(registry)
	m.RecordFreezeTransition(true)

	mux := http.NewServeMux()
	RegisterMetricsEndpoint(mux, registry)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `gatehouse_freeze_transitions_total{to="frozen"} 1`))
}
