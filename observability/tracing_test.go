package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest installs a tracer provider backed by an in-memory span
// recorder and returns a cleanup that restores the previous provider.
func setupTracingTest(t *testing.T) (*tracetest.InMemoryExporter, func()) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)

	originalProvider := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer("flowmesh")

	cleanup := func() {
		otel.SetTracerProvider(originalProvider)
		tracer = otel.Tracer("flowmesh")
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	}

	return exporter, cleanup
}

func TestStartWorkflowSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	ctx, span := sm.StartWorkflowSpan(context.Background(), "pipeline", "run-123")
	require.NotNil(t, span)
	assert.NotEmpty(t, TraceID(ctx))

	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	s := spans[0]
	assert.Equal(t, "flowmesh.workflow", s.Name)

	var workflowName, runID string
	for _, attr := range s.Attributes {
		switch attr.Key {
		case "workflow.name":
			workflowName = attr.Value.AsString()
		case "run.id":
			runID = attr.Value.AsString()
		}
	}
	assert.Equal(t, "pipeline", workflowName)
	assert.Equal(t, "run-123", runID)
}

func TestStartExecutorSpan(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	ctx, workflowSpan := sm.StartWorkflowSpan(context.Background(), "pipeline", "run-1")
	_, execSpan := sm.StartExecutorSpan(ctx, "writer", "agent")
	execSpan.End()
	workflowSpan.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	var execData *tracetest.SpanStub
	for i := range spans {
		if spans[i].Name == "flowmesh.executor.writer" {
			execData = &spans[i]
			break
		}
	}
	require.NotNil(t, execData)

	var kind string
	for _, attr := range execData.Attributes {
		if attr.Key == "executor.type" {
			kind = attr.Value.AsString()
		}
	}
	assert.Equal(t, "agent", kind)

	// The executor span is a child of the workflow span.
	assert.True(t, execData.Parent.IsValid())
}

func TestEndSpanWithError(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	t.Run("nil error sets OK status", func(t *testing.T) {
		_, span := sm.StartWorkflowSpan(context.Background(), "ok", "run-1")
		sm.EndSpanWithError(span, nil)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)
		assert.Equal(t, codes.Ok, spans[0].Status.Code)
	})

	t.Run("error sets Error status and records the error", func(t *testing.T) {
		exporter.Reset()

		_, span := sm.StartWorkflowSpan(context.Background(), "bad", "run-2")
		sm.EndSpanWithError(span, errors.New("executor blew up"))

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)

		s := spans[0]
		assert.Equal(t, codes.Error, s.Status.Code)
		assert.Equal(t, "executor blew up", s.Status.Description)

		found := false
		for _, event := range s.Events {
			if event.Name == "exception" {
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("nil span does not panic", func(t *testing.T) {
		assert.NotPanics(t, func() {
			sm.EndSpanWithError(nil, errors.New("test"))
		})
	})
}

func TestAddSpanEvent(t *testing.T) {
	exporter, cleanup := setupTracingTest(t)
	defer cleanup()

	sm := NewSpanManager()

	ctx, span := sm.StartWorkflowSpan(context.Background(), "pipeline", "run-1")
	sm.AddSpanEvent(ctx, "step_recorded", attribute.String("step", "workflow_built"))
	span.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	found := false
	for _, event := range spans[0].Events {
		if event.Name == "step_recorded" {
			found = true
		}
	}
	assert.True(t, found)

	// No current span is a no-op, not a panic.
	assert.NotPanics(t, func() {
		sm.AddSpanEvent(context.Background(), "orphan_event")
	})
}

func TestNoopSpanManager(t *testing.T) {
	sm := NoopSpanManager{}

	ctx, span := sm.StartWorkflowSpan(context.Background(), "pipeline", "run-1")
	require.NotNil(t, span)
	assert.False(t, span.IsRecording())
	assert.Empty(t, TraceID(ctx))

	_, execSpan := sm.StartExecutorSpan(ctx, "writer", "agent")
	assert.False(t, execSpan.IsRecording())

	assert.NotPanics(t, func() {
		sm.EndSpanWithError(span, errors.New("ignored"))
		sm.AddSpanEvent(ctx, "ignored")
	})
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}
