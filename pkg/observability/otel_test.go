package observability

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/platinummonkey/gatehouse/pkg/contextkeys"
)

func TestStartTelemetry_Disabled(t *testing.T) {
	telemetry, err := StartTelemetry(context.Background(), TelemetryConfig{Enabled: false}, NewLogger(InfoLevel, &bytes.Buffer{}))
	assert.NoError(t, err)
	assert.Nil(t, telemetry)
	assert.NoError(t, telemetry.Shutdown(context.Background()))
}

func TestTelemetryConfig_Sampler(t *testing.T) {
	for ratio, want := range map[float64]string{
		0:    "ParentBased{root:AlwaysOnSampler",
		1:    "ParentBased{root:AlwaysOnSampler",
		0.25: "ParentBased{root:TraceIDRatioBased{0.25}",
	} {
		assert.Contains(t, TelemetryConfig{SampleRatio: ratio}.sampler().Description(), want, "ratio %v", ratio)
	}
}

func TestFromContext_TraceFields(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), NewLogger(InfoLevel, &buf))

	FromContext(ctx).Info("untraced")
	assert.NotContains(t, buf.String(), "trace_id")

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	ctx, span := tp.Tracer("test").Start(ctx, "guard.Authorize")
	defer span.End()
	ctx = contextkeys.WithRequestID(ctx, "req-7")

	buf.Reset()
	FromContext(ctx).Info("traced")
	require.NotZero(t, buf.Len())
	assert.Contains(t, buf.String(), span.SpanContext().TraceID().String())
	assert.Contains(t, buf.String(), "req-7")
}

func TestTracer_NoopWithoutProvider(t *testing.T) {
	_, span := Tracer("guard").Start(context.Background(), "noop")
	defer span.End()
	assert.False(t, span.SpanContext().IsSampled())
}
