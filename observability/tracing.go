// Package observability wires workflow execution into OpenTelemetry tracing.
// Each workflow run produces one root span with a child span per executor, so
// runs can be correlated with provider latency in any OTel backend.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the flowmesh tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("flowmesh")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartWorkflowSpan starts a span for an entire workflow run.
	// Returns the context with span and the span itself.
	StartWorkflowSpan(ctx context.Context, workflowName, runID string) (context.Context, trace.Span)

	// StartExecutorSpan starts a span for a single executor invocation.
	// The executor span should be a child of the workflow span.
	StartExecutorSpan(ctx context.Context, executor, kind string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartWorkflowSpan starts a span for an entire workflow run.
func (m *otelSpanManager) StartWorkflowSpan(ctx context.Context, workflowName, runID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "flowmesh.workflow",
		trace.WithAttributes(
			attribute.String("workflow.name", workflowName),
			attribute.String("run.id", runID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartExecutorSpan starts a span for a single executor invocation.
func (m *otelSpanManager) StartExecutorSpan(ctx context.Context, executor, kind string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "flowmesh.executor."+executor,
		trace.WithAttributes(
			attribute.String("executor.name", executor),
			attribute.String("executor.type", kind),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// NoopSpanManager is a SpanManager that records nothing. It still returns a
// valid (non-recording) span so callers never need nil checks.
type NoopSpanManager struct{}

// StartWorkflowSpan returns the context unchanged with a non-recording span.
func (NoopSpanManager) StartWorkflowSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}

// StartExecutorSpan returns the context unchanged with a non-recording span.
func (NoopSpanManager) StartExecutorSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(trace.Span, error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(context.Context, string, ...attribute.KeyValue) {}

// TraceID extracts the hex trace id from the span in ctx, or "" when the
// context carries no sampled span.
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
