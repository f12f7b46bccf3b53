package flowgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/randalmurphal/argus/pkg/flowgraph/observability"
)

// testLogHandler captures log records for testing.
type testLogHandler struct {
	buf   *bytes.Buffer
	level slog.Level
}

func newTestLogHandler() *testLogHandler {
	return &testLogHandler{
		buf:   &bytes.Buffer{},
		level: slog.LevelDebug,
	}
}

func (h *testLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *testLogHandler) Handle(_ context.Context, r slog.Record) error {
	data := map[string]any{
		"level": r.Level.String(),
		"msg":   r.Message,
	}
	r.Attrs(func(a slog.Attr) bool {
		data[a.Key] = a.Value.Any()
		return true
	})
	enc := json.NewEncoder(h.buf)
	return enc.Encode(data)
}

func (h *testLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *testLogHandler) WithGroup(name string) slog.Handler {
	return h
}

func (h *testLogHandler) getRecords() []map[string]any {
	var records []map[string]any
	lines := bytes.Split(h.buf.Bytes(), []byte("\n"))
	for _, line := range lines {
		if len(line) > 0 {
			var m map[string]any
			if err := json.Unmarshal(line, &m); err == nil {
				records = append(records, m)
			}
		}
	}
	return records
}

func TestRun_WithObservabilityLogger(t *testing.T) {
	h := newTestLogHandler()
	logger := slog.New(h)

	graph := NewGraph[Counter]().
		AddNode("inc1", increment).
		AddNode("inc2", increment).
		AddEdge("inc1", "inc2").
		AddEdge("inc2", END).
		SetEntry("inc1")

	compiled, err := graph.Compile()
	require.NoError(t, err)

	ctx := NewContext(context.Background(), WithContextRunID("test-run-123"))
	result, err := compiled.Run(ctx, Counter{Value: 0},
		WithObservabilityLogger(logger))

	require.NoError(t, err)
	assert.Equal(t, 2, result.Value)

	// Check log records
	records := h.getRecords()
	require.NotEmpty(t, records, "Expected log records")

	// Should have: run start, node1 start/complete, node2 start/complete, run complete
	var foundRunStart, foundRunComplete bool
	var nodeStarts, nodeCompletes int

	for _, r := range records {
		msg, _ := r["msg"].(string)
		switch msg {
		case "graph run starting":
			foundRunStart = true
			assert.Equal(t, "test-run-123", r["run_id"])
		case "graph run completed":
			foundRunComplete = true
			assert.Equal(t, "test-run-123", r["run_id"])
		case "node starting":
			nodeStarts++
		case "node completed":
			nodeCompletes++
		}
	}

	assert.True(t, foundRunStart, "Expected 'graph run starting' log")
	assert.True(t, foundRunComplete, "Expected 'graph run completed' log")
	assert.Equal(t, 2, nodeStarts, "Expected 2 'node starting' logs")
	assert.Equal(t, 2, nodeCompletes, "Expected 2 'node completed' logs")
}

func TestRun_WithObservabilityLogger_Error(t *testing.T) {
	h := newTestLogHandler()
	logger := slog.New(h)

	errBoom := errors.New("boom")
	failingNode := func(ctx Context, s Counter) (Counter, error) {
		return s, errBoom
	}

	graph := NewGraph[Counter]().
		AddNode("ok", increment).
		AddNode("fail", failingNode).
		AddEdge("ok", "fail").
		AddEdge("fail", END).
		SetEntry("ok")

	compiled, err := graph.Compile()
	require.NoError(t, err)

	ctx := NewContext(context.Background(), WithContextRunID("error-run"))
	_, err = compiled.Run(ctx, Counter{Value: 0},
		WithObservabilityLogger(logger))

	require.Error(t, err)

	// Check log records
	records := h.getRecords()

	var foundNodeError, foundRunError bool
	for _, r := range records {
		msg, _ := r["msg"].(string)
		switch msg {
		case "node failed":
			foundNodeError = true
			assert.Equal(t, "fail", r["node_id"])
		case "graph run failed":
			foundRunError = true
			assert.Equal(t, "error-run", r["run_id"])
		}
	}

	assert.True(t, foundNodeError, "Expected 'node failed' log")
	assert.True(t, foundRunError, "Expected 'graph run failed' log")
}

func TestRun_WithObservabilityLogger_ForkJoin(t *testing.T) {
	h := newTestLogHandler()

	compiled, err := diamond(nil).Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Ledger{}, WithObservabilityLogger(slog.New(h)))
	require.NoError(t, err)

	var forks, joins int
	for _, r := range h.getRecords() {
		switch r["msg"] {
		case "fork starting":
			forks++
			assert.Equal(t, "extract", r["fork_node"])
		case "fork/join completed":
			joins++
			assert.Equal(t, "validate", r["join_node"])
		}
	}
	assert.Equal(t, 1, forks)
	assert.Equal(t, 1, joins)
}

func TestRun_MetricsAndTracingToggles(t *testing.T) {
	tests := []struct {
		name string
		opts []RunOption
	}{
		{"defaults", nil},
		{"metrics enabled", []RunOption{WithMetrics(true)}},
		{"tracing enabled", []RunOption{WithTracing(true)}},
		{"both enabled", []RunOption{WithMetrics(true), WithTracing(true), WithGraphName("argus")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := diamond(nil).Compile()
			require.NoError(t, err)

			result, err := compiled.Run(testCtx(), Ledger{}, tt.opts...)

			require.NoError(t, err)
			assert.Len(t, result.WrittenFields(), 5)
		})
	}
}

func TestRun_TracingSpans(t *testing.T) {
	exporter := installTestTracer(t)

	compiled, err := diamond(nil).Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Ledger{}, WithTracing(true), WithRunID("traced"))
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, span := range exporter.GetSpans() {
		names[span.Name] = true
	}
	for _, want := range []string{
		"flowgraph.run",
		"flowgraph.node.extract",
		"flowgraph.branch.a",
		"flowgraph.branch.b",
		"flowgraph.branch.c",
		"flowgraph.node.a",
		"flowgraph.node.validate",
	} {
		assert.True(t, names[want], "missing span %s", want)
	}
}

var (
	testTracerOnce     sync.Once
	testTracerExporter *tracetest.InMemoryExporter
)

// installTestTracer registers an in-memory exporter as the global tracer
// provider. The global provider can only be delegated once per process.
func installTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	testTracerOnce.Do(func() {
		testTracerExporter = tracetest.NewInMemoryExporter()
		otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSyncer(testTracerExporter)))
	})
	testTracerExporter.Reset()
	return testTracerExporter
}

func TestRun_ObservabilityOptions_AreApplied(t *testing.T) {
	t.Run("WithMetrics true records", func(t *testing.T) {
		cfg := defaultRunConfig()
		WithMetrics(true)(&cfg)
		assert.NotEqual(t, observability.NoopMetrics{}, cfg.metrics)
	})

	t.Run("WithMetrics false sets noop", func(t *testing.T) {
		cfg := defaultRunConfig()
		WithMetrics(false)(&cfg)
		assert.Equal(t, observability.NoopMetrics{}, cfg.metrics)
	})

	t.Run("WithTracing sets tracingEnabled", func(t *testing.T) {
		cfg := defaultRunConfig()
		WithTracing(true)(&cfg)
		assert.True(t, cfg.tracingEnabled)
		assert.NotEqual(t, observability.NoopSpanManager{}, cfg.spans)
	})

	t.Run("WithTracing false sets noop", func(t *testing.T) {
		cfg := defaultRunConfig()
		WithTracing(false)(&cfg)
		assert.False(t, cfg.tracingEnabled)
		assert.Equal(t, observability.NoopSpanManager{}, cfg.spans)
	})

	t.Run("WithObservabilityLogger sets logger", func(t *testing.T) {
		cfg := defaultRunConfig()
		logger := slog.Default()
		WithObservabilityLogger(logger)(&cfg)
		assert.Equal(t, logger, cfg.logger)
	})
}
