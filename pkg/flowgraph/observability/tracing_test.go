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

func attributeKey(k string) attribute.Key { return attribute.Key(k) }

func setupTracingTest(t *testing.T) *tracetest.InMemoryExporter {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer("flowgraph")

	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		tracer = otel.Tracer("flowgraph")
		_ = tp.Shutdown(context.Background())
	})
	return exporter
}

func TestSpanManager_RunNodeBranchHierarchy(t *testing.T) {
	exporter := setupTracingTest(t)
	sm := NewSpanManager()

	ctx, runSpan := sm.StartRunSpan(context.Background(), "argus", "run-1")
	branchCtx, branchSpan := sm.StartBranchSpan(ctx, "extract", "founders")
	_, nodeSpan := sm.StartNodeSpan(branchCtx, "founders")

	sm.EndSpanWithError(nodeSpan, nil)
	sm.EndSpanWithError(branchSpan, nil)
	sm.EndSpanWithError(runSpan, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)

	byName := make(map[string]tracetest.SpanStub)
	for _, s := range spans {
		byName[s.Name] = s
	}
	run := byName["flowgraph.run"]
	branch := byName["flowgraph.branch.founders"]
	node := byName["flowgraph.node.founders"]

	assert.Equal(t, run.SpanContext.SpanID(), branch.Parent.SpanID())
	assert.Equal(t, branch.SpanContext.SpanID(), node.Parent.SpanID())
	assert.Contains(t, run.Attributes, attribute.String("run.id", "run-1"))
	assert.Contains(t, branch.Attributes, attribute.String("fork.node", "extract"))
	assert.Equal(t, codes.Ok, node.Status.Code)
}

func TestSpanManager_EndSpanWithError(t *testing.T) {
	exporter := setupTracingTest(t)
	sm := NewSpanManager()

	_, span := sm.StartNodeSpan(context.Background(), "validate")
	sm.EndSpanWithError(span, errors.New("model unavailable"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "model unavailable", spans[0].Status.Description)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
}

func TestSpanManager_AddSpanEvent(t *testing.T) {
	exporter := setupTracingTest(t)
	sm := NewSpanManager()

	ctx, span := sm.StartRunSpan(context.Background(), "argus", "run-2")
	sm.AddSpanEvent(ctx, "fork", attribute.Int("branches", 3))
	sm.EndSpanWithError(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "fork", spans[0].Events[0].Name)

	assert.NotPanics(t, func() {
		sm.AddSpanEvent(context.Background(), "orphan")
		sm.EndSpanWithError(nil, nil)
	})
}

func TestNoopSpanManager(t *testing.T) {
	var sm SpanManager = NoopSpanManager{}
	ctx := context.Background()

	got, span := sm.StartRunSpan(ctx, "g", "r")
	assert.Equal(t, ctx, got)
	assert.False(t, span.IsRecording())

	got, _ = sm.StartBranchSpan(ctx, "f", "b")
	assert.Equal(t, ctx, got)
	assert.NotPanics(t, func() { sm.EndSpanWithError(span, errors.New("x")) })
}
