package flowgraph

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/randalmurphal/argus/pkg/flowgraph/observability"
)

// Context provides execution context to nodes.
// It extends context.Context with run metadata and a logger.
//
// Context is immutable after creation. The executor creates derived contexts
// for each node with updated NodeID and enriched logger.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with run and node context.
	// Never returns nil - defaults to slog.Default() if not configured.
	Logger() *slog.Logger

	// RunID returns the unique identifier for this execution run.
	// Auto-generated if not configured.
	RunID() string

	// NodeID returns the current node being executed.
	// Empty string before execution starts.
	NodeID() string

	// Branch returns the parallel branch the node runs in, or "" on the
	// main path.
	Branch() string
}

type executionContext struct {
	context.Context

	logger *slog.Logger
	runID  string
	nodeID string
	branch string
}

func (c *executionContext) Logger() *slog.Logger { return c.logger }
func (c *executionContext) RunID() string        { return c.runID }
func (c *executionContext) NodeID() string       { return c.nodeID }
func (c *executionContext) Branch() string       { return c.branch }

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// The logger will be enriched with run_id and node_id during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithContextRunID sets the run identifier for the context.
// If not set, a UUID will be auto-generated.
func WithContextRunID(id string) ContextOption {
	return func(c *executionContext) {
		c.runID = id
	}
}

// NewContext creates an execution context from a standard context.
//
// Example:
//
//	ctx := flowgraph.NewContext(context.Background(),
//	    flowgraph.WithLogger(myLogger),
//	    flowgraph.WithContextRunID("run-123"))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		runID:   uuid.New().String(),
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// asExecutionContext adapts any Context into the internal implementation.
func asExecutionContext(ctx Context) *executionContext {
	if ec, ok := ctx.(*executionContext); ok {
		return ec
	}
	return &executionContext{
		Context: ctx,
		logger:  ctx.Logger(),
		runID:   ctx.RunID(),
		nodeID:  ctx.NodeID(),
		branch:  ctx.Branch(),
	}
}

// withRunID returns a copy with a different run identifier.
func (c *executionContext) withRunID(runID string) *executionContext {
	clone := *c
	clone.runID = runID
	return &clone
}

// withNodeID returns a new context with the given node ID set and the
// logger enriched for that node.
func (c *executionContext) withNodeID(nodeID string) *executionContext {
	return &executionContext{
		Context: c.Context,
		logger:  observability.EnrichLogger(c.logger, c.runID, nodeID, c.branch),
		runID:   c.runID,
		nodeID:  nodeID,
		branch:  c.branch,
	}
}

// withContext returns a copy bound to ctx, which carries the active span
// or a narrower cancellation scope.
func (c *executionContext) withContext(ctx context.Context) *executionContext {
	clone := *c
	clone.Context = ctx
	return &clone
}

// withBranch returns a copy bound to ctx for the given parallel branch.
func (c *executionContext) withBranch(ctx context.Context, branch string) *executionContext {
	clone := c.withContext(ctx)
	clone.branch = branch
	return clone
}
