package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records graph run metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeExecution records a node execution with its duration and error status.
	RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error)

	// RecordBranch records one parallel branch reaching its join point or failing.
	RecordBranch(ctx context.Context, forkNodeID, branchID string, duration time.Duration, err error)

	// RecordGraphRun records a graph run completion.
	RecordGraphRun(ctx context.Context, success bool, duration time.Duration)

	// RecordSnapshot records a state snapshot save.
	RecordSnapshot(ctx context.Context, nodeID string, sizeBytes int64)
}

type otelMetrics struct {
	nodeExecutions metric.Int64Counter
	nodeLatency    metric.Float64Histogram
	nodeErrors     metric.Int64Counter
	branchLatency  metric.Float64Histogram
	branchErrors   metric.Int64Counter
	graphRuns      metric.Int64Counter
	graphLatency   metric.Float64Histogram
	snapshotSize   metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("flowgraph")
	m := &otelMetrics{}
	var err error

	if m.nodeExecutions, err = meter.Int64Counter("flowgraph.node.executions",
		metric.WithDescription("Number of node executions")); err != nil {
		return nil, err
	}
	if m.nodeLatency, err = meter.Float64Histogram("flowgraph.node.latency_ms",
		metric.WithDescription("Node execution latency in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.nodeErrors, err = meter.Int64Counter("flowgraph.node.errors",
		metric.WithDescription("Number of node execution errors")); err != nil {
		return nil, err
	}
	if m.branchLatency, err = meter.Float64Histogram("flowgraph.branch.latency_ms",
		metric.WithDescription("Parallel branch latency in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.branchErrors, err = meter.Int64Counter("flowgraph.branch.errors",
		metric.WithDescription("Number of failed parallel branches")); err != nil {
		return nil, err
	}
	if m.graphRuns, err = meter.Int64Counter("flowgraph.graph.runs",
		metric.WithDescription("Number of graph runs")); err != nil {
		return nil, err
	}
	if m.graphLatency, err = meter.Float64Histogram("flowgraph.graph.latency_ms",
		metric.WithDescription("Graph run latency in milliseconds"),
		metric.WithUnit("ms")); err != nil {
		return nil, err
	}
	if m.snapshotSize, err = meter.Int64Histogram("flowgraph.snapshot.size_bytes",
		metric.WithDescription("Snapshot size in bytes"),
		metric.WithUnit("By")); err != nil {
		return nil, err
	}
	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("node_id", nodeID))

	m.nodeExecutions.Add(ctx, 1, attrs)
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.nodeErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordBranch(ctx context.Context, forkNodeID, branchID string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("fork_node", forkNodeID),
		attribute.String("branch", branchID),
	)

	m.branchLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if err != nil {
		m.branchErrors.Add(ctx, 1, attrs)
	}
}

func (m *otelMetrics) RecordGraphRun(ctx context.Context, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.graphRuns.Add(ctx, 1, attrs)
	m.graphLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (m *otelMetrics) RecordSnapshot(ctx context.Context, nodeID string, sizeBytes int64) {
	m.snapshotSize.Record(ctx, sizeBytes, metric.WithAttributes(attribute.String("node_id", nodeID)))
}
