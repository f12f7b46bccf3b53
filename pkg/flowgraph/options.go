package flowgraph

import (
	"log/slog"

	"github.com/randalmurphal/argus/pkg/flowgraph/event"
	"github.com/randalmurphal/argus/pkg/flowgraph/observability"
	"github.com/randalmurphal/argus/pkg/flowgraph/snapshot"
)

// runConfig holds configuration for graph execution.
type runConfig struct {
	maxIterations int
	runID         string
	graphName     string

	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool

	bus       event.Bus
	snapshots snapshot.Store
}

func defaultRunConfig() runConfig {
	return runConfig{
		maxIterations: 1000,
		graphName:     "flowgraph",
		metrics:       observability.NoopMetrics{},
		spans:         observability.NoopSpanManager{},
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxIterations sets the maximum number of node executions per path.
// Default: 1000
//
// Example:
//
//	result, err := compiled.Run(ctx, state, flowgraph.WithMaxIterations(100))
func WithMaxIterations(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithRunID overrides the run identifier taken from the Context.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// WithGraphName names the graph in traces.
func WithGraphName(name string) RunOption {
	return func(c *runConfig) {
		if name != "" {
			c.graphName = name
		}
	}
}

// WithObservabilityLogger enables run and node lifecycle logging.
func WithObservabilityLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetrics enables or disables OpenTelemetry metrics.
func WithMetrics(enabled bool) RunOption {
	return func(c *runConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables or disables OpenTelemetry spans for the run,
// each node, and each parallel branch.
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithEventBus publishes run lifecycle events to bus.
func WithEventBus(bus event.Bus) RunOption {
	return func(c *runConfig) {
		c.bus = bus
	}
}

// WithSnapshots records the JSON-serialized state after every successful
// node. Snapshot failures are logged and never fail the run.
func WithSnapshots(store snapshot.Store) RunOption {
	return func(c *runConfig) {
		c.snapshots = store
	}
}
