package operations

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"phicli/internal/infrastructure"
)

const TracerName = "phicli.operations"

// RunTracer holds the spans and instruments of a batch run
type RunTracer struct {
	tracer trace.Tracer

	setsProcessed metric.Int64Counter
	setsSkipped   metric.Int64Counter
	setsFailed    metric.Int64Counter
	tpmDuration   metric.Float64Histogram
	phiDuration   metric.Float64Histogram
}

// NewRunTracer creates instruments on the given providers. nil providers
// use the global (by default no-op) tracer and meter.
func NewRunTracer(providers *infrastructure.OTelProviders) (*RunTracer, error) {
	tracer := otel.Tracer(TracerName)
	meter := otel.Meter(TracerName)
	if providers != nil {
		tracer = providers.Tracer
		meter = providers.Meter
	}

	rt := &RunTracer{tracer: tracer}
	var err error

	if rt.setsProcessed, err = meter.Int64Counter("phi_channel_sets_processed_total",
		metric.WithDescription("Channel sets whose bundle was written")); err != nil {
		return nil, fmt.Errorf("failed to create processed counter: %w", err)
	}
	if rt.setsSkipped, err = meter.Int64Counter("phi_channel_sets_skipped_total",
		metric.WithDescription("Channel sets skipped because a bundle existed")); err != nil {
		return nil, fmt.Errorf("failed to create skipped counter: %w", err)
	}
	if rt.setsFailed, err = meter.Int64Counter("phi_channel_sets_failed_total",
		metric.WithDescription("Channel sets that aborted the run")); err != nil {
		return nil, fmt.Errorf("failed to create failure counter: %w", err)
	}
	if rt.tpmDuration, err = meter.Float64Histogram("phi_tpm_build_duration_seconds",
		metric.WithDescription("Time to build one TPM"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create TPM histogram: %w", err)
	}
	if rt.phiDuration, err = meter.Float64Histogram("phi_compute_duration_seconds",
		metric.WithDescription("Time to compute phi over all states of one TPM"),
		metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create phi histogram: %w", err)
	}
	return rt, nil
}

// StartSet opens the span covering one channel set
func (rt *RunTracer) StartSet(ctx context.Context, id, channels int, method string) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, "operations.channel_set",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Int("set.id", id),
			attribute.Int("set.channels", channels),
			attribute.String("tpm.method", method),
		),
	)
}

// RecordTPM records one TPM build
func (rt *RunTracer) RecordTPM(ctx context.Context, method string, d time.Duration) {
	rt.tpmDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("method", method)))
}

// RecordPhi records one all-states phi computation
func (rt *RunTracer) RecordPhi(ctx context.Context, channels int, d time.Duration) {
	rt.phiDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.Int("channels", channels)))
}

// EndSet closes a set's span and counts its outcome
func (rt *RunTracer) EndSet(ctx context.Context, span trace.Span, skipped bool, err error) {
	defer span.End()

	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		rt.setsFailed.Add(ctx, 1)
	case skipped:
		span.SetAttributes(attribute.Bool("set.skipped", true))
		rt.setsSkipped.Add(ctx, 1)
	default:
		span.SetStatus(codes.Ok, "")
		rt.setsProcessed.Add(ctx, 1)
	}
}
