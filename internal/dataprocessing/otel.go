package dataprocessing

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"adcpview/internal/infrastructure"
)

const (
	TracerName = "adcpview.pipeline"
)

// PipelineTracer provides OpenTelemetry instrumentation for pipeline runs
type PipelineTracer struct {
	tracer  trace.Tracer
	metrics *infrastructure.BusinessMetrics
}

// NewPipelineTracer creates a tracer. metrics may be nil, in which case only
// spans are produced.
func NewPipelineTracer(metrics *infrastructure.BusinessMetrics) *PipelineTracer {
	return &PipelineTracer{
		tracer:  otel.Tracer(TracerName),
		metrics: metrics,
	}
}

// TraceRun creates a span for a whole pipeline run
func (pt *PipelineTracer) TraceRun(ctx context.Context, file string) (context.Context, func(error)) {
	ctx, span := pt.tracer.Start(ctx, "pipeline.transform",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("pipeline.file", file)),
	)

	if pt.metrics != nil {
		pt.metrics.PipelineRunsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("file", file)))
	}
	infrastructure.RecordActiveRunChange(ctx, pt.metrics, 1, file)

	return ctx, func(err error) {
		infrastructure.RecordActiveRunChange(ctx, pt.metrics, -1, file)
		if err != nil {
			infrastructure.RecordError(ctx, err)
		}
		span.End()
	}
}

// Stage runs fn inside a child span and records its duration
func (pt *PipelineTracer) Stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := pt.tracer.Start(ctx, "pipeline."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("pipeline.stage", name)),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	infrastructure.RecordStageMetrics(ctx, pt.metrics, name, time.Since(start), err)
	if err != nil {
		infrastructure.RecordError(ctx, err)
	}
	return err
}

// RecordMasked adds the number of samples rejected by quality control
func (pt *PipelineTracer) RecordMasked(ctx context.Context, n int) {
	if pt.metrics == nil || n <= 0 {
		return
	}
	pt.metrics.SamplesMasked.Add(ctx, int64(n))
}
