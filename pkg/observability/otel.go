package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	tracerPrefix   = "github.com/platinummonkey/gatehouse/"
	exportTimeout  = 10 * time.Second
	exportInterval = 10 * time.Second
)

// TelemetryConfig selects the OTLP collector gatehouse exports guard spans
// and sweep measurements to
type TelemetryConfig struct {
	Enabled        bool
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	Insecure       bool
	// SampleRatio is the fraction of root traces kept. Values outside
	// (0, 1] keep every trace.
	SampleRatio float64
}

func (c TelemetryConfig) sampler() sdktrace.Sampler {
	if c.SampleRatio <= 0 || c.SampleRatio >= 1 {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SampleRatio))
}

func (c TelemetryConfig) dialOptions() []grpc.DialOption {
	if !c.Insecure {
		return nil
	}
	return []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
}

// Telemetry owns the trace and meter providers installed as the process
// globals. A nil *Telemetry is valid and does nothing.
type Telemetry struct {
	traces  *sdktrace.TracerProvider
	metrics *metric.MeterProvider
	logger  *Logger
}

// StartTelemetry installs OTLP trace and meter providers. It returns nil
// when telemetry is disabled, leaving the no-op globals in place.
func StartTelemetry(ctx context.Context, cfg TelemetryConfig, logger *Logger) (*Telemetry, error) {
	if !cfg.Enabled {
		logger.Info("Telemetry export disabled")
		return nil, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(cfg.ServiceVersion),
		),
		resource.WithFromEnv(),
		resource.WithHost(),
		resource.WithProcess(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to describe telemetry resource: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, exportTimeout)
	defer cancel()

	spans, err := otlptracegrpc.New(dialCtx,
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithDialOption(cfg.dialOptions()...),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create span exporter for %s: %w", cfg.Endpoint, err)
	}

	measurements, err := otlpmetricgrpc.New(dialCtx,
		otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
		otlpmetricgrpc.WithDialOption(cfg.dialOptions()...),
	)
	if err != nil {
		_ = spans.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create metric exporter for %s: %w", cfg.Endpoint, err)
	}

	t := &Telemetry{
		traces: sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithBatcher(spans, sdktrace.WithBatchTimeout(5*time.Second)),
			sdktrace.WithSampler(cfg.sampler()),
		),
		metrics: metric.NewMeterProvider(
			metric.WithResource(res),
			metric.WithReader(metric.NewPeriodicReader(measurements, metric.WithInterval(exportInterval))),
		),
		logger: logger,
	}

	otel.SetTracerProvider(t.traces)
	otel.SetMeterProvider(t.metrics)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.WithField("endpoint", cfg.Endpoint).Info("Exporting telemetry")
	return t, nil
}

// Shutdown flushes pending spans and measurements
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil {
		return nil
	}
	err := errors.Join(t.traces.Shutdown(ctx), t.metrics.Shutdown(ctx))
	if err != nil {
		t.logger.WithError(err).Error("Telemetry flush failed")
		return fmt.Errorf("telemetry shutdown: %w", err)
	}
	return nil
}

// Tracer returns a tracer named after a gatehouse package. Spans are
// no-ops until StartTelemetry installs an exporting provider.
func Tracer(pkg string) trace.Tracer {
	return otel.Tracer(tracerPrefix + pkg)
}

// withTrace tags logger with the ids of the recording span in ctx, if any
func withTrace(ctx context.Context, logger *Logger) *Logger {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() || !spanCtx.IsSampled() {
		return logger
	}
	return logger.WithFields(map[string]interface{}{
		"trace_id": spanCtx.TraceID().String(),
		"span_id":  spanCtx.SpanID().String(),
	})
}
