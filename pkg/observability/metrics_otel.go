package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds OpenTelemetry metric instruments
type OTelMetrics struct {
	guardDecisions    metric.Int64Counter
	guardDuration     metric.Float64Histogram
	freezeTransitions metric.Int64Counter
	sweepRuns         metric.Int64Counter
	sweepDuration     metric.Float64Histogram
}

// NewOTelMetrics creates instruments on the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	return NewOTelMetricsWithMeter(otel.Meter("github.com/platinummonkey/gatehouse"))
}

// NewOTelMetricsWithMeter creates instruments on the given meter
func NewOTelMetricsWithMeter(meter metric.Meter) (*OTelMetrics, error) {
	m := &OTelMetrics{}
	var err error

	m.guardDecisions, err = meter.Int64Counter(
		"gatehouse.guard.decisions",
		metric.WithDescription("Route guard verdicts"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create guard decisions counter: %w", err)
	}

	m.guardDuration, err = meter.Float64Histogram(
		"gatehouse.guard.duration",
		metric.WithDescription("Time to reach a route guard verdict"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create guard duration histogram: %w", err)
	}

	m.freezeTransitions, err = meter.Int64Counter(
		"gatehouse.seats.freeze_transitions",
		metric.WithDescription("Organization frozen flag transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create freeze transitions counter: %w", err)
	}

	m.sweepRuns, err = meter.Int64Counter(
		"gatehouse.sweep.runs",
		metric.WithDescription("Freeze sweep runs"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sweep runs counter: %w", err)
	}

	m.sweepDuration, err = meter.Float64Histogram(
		"gatehouse.sweep.duration",
		metric.WithDescription("Freeze sweep run duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sweep duration histogram: %w", err)
	}

	return m, nil
}

func (m *OTelMetrics) recordGuardDecision(outcome, reason string, elapsed time.Duration) {
	if m == nil {
		return
	}
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("reason", reason),
	)
	m.guardDecisions.Add(ctx, 1, attrs)
	m.guardDuration.Record(ctx, elapsed.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *OTelMetrics) recordFreezeTransition(to string) {
	if m == nil {
		return
	}
	m.freezeTransitions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("to", to)))
}

func (m *OTelMetrics) recordSweep(result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.sweepRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	m.sweepDuration.Record(ctx, elapsed.Seconds())
}
