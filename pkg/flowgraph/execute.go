package flowgraph

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/argus/pkg/flowgraph/event"
	"github.com/randalmurphal/argus/pkg/flowgraph/observability"
	"github.com/randalmurphal/argus/pkg/flowgraph/snapshot"
)

// runner carries the per-run configuration through the main path and
// every parallel branch.
type runner[S any] struct {
	cg    *CompiledGraph[S]
	cfg   *runConfig
	runID string
	nodes atomic.Int64
}

// Run executes the graph with the given initial state.
// Returns the final state and any error encountered.
//
// On success, returns the state after the last node executed before END.
// On error, returns the state at the point of failure (useful for debugging).
//
// Execution flow:
//  1. Start at the entry point node
//  2. Check for cancellation
//  3. Execute the current node
//  4. If the node is a fork, run its branches concurrently and merge them
//     at the join node
//  5. Follow the outgoing edge until END is reached or an error occurs
//
// Example:
//
//	ctx := flowgraph.NewContext(context.Background())
//	result, err := compiled.Run(ctx, initialState)
func (cg *CompiledGraph[S]) Run(ctx Context, state S, opts ...RunOption) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	ec := asExecutionContext(ctx)
	runID := cfg.runID
	if runID == "" {
		runID = ec.runID
	} else {
		ec = ec.withRunID(runID)
	}

	r := &runner[S]{cg: cg, cfg: &cfg, runID: runID}
	startTime := time.Now()

	observability.LogRunStart(cfg.logger, runID)
	r.publish(ec, event.TypeRunStarted, event.Payload{RunID: runID})

	if cfg.tracingEnabled {
		spanCtx, runSpan := cfg.spans.StartRunSpan(ec, cfg.graphName, runID)
		ec = ec.withContext(spanCtx)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	result, runErr = r.runPath(ec, state, cg.entryPoint, END)

	duration := time.Since(startTime)
	cfg.metrics.RecordGraphRun(ec, runErr == nil, duration)

	if runErr != nil {
		lastNode := FailedNode(runErr)
		observability.LogRunError(cfg.logger, runID, runErr, durationMs(duration), lastNode)
		r.publish(ec, event.TypeRunFailed, event.Payload{
			RunID:    runID,
			NodeID:   lastNode,
			Duration: duration,
			Error:    runErr.Error(),
		})
	} else {
		observability.LogRunComplete(cfg.logger, runID, durationMs(duration), int(r.nodes.Load()))
		r.publish(ec, event.TypeRunCompleted, event.Payload{RunID: runID, Duration: duration})
	}

	return result, runErr
}

// runPath executes nodes from start until stop (a join node or END).
func (r *runner[S]) runPath(ec *executionContext, state S, start, stop string) (S, error) {
	current := start
	iterations := 0

	for current != stop && current != END {
		iterations++
		if iterations > r.cfg.maxIterations {
			return state, &MaxIterationsError{
				Max:        r.cfg.maxIterations,
				LastNodeID: current,
				State:      state,
			}
		}

		select {
		case <-ec.Done():
			return state, &CancellationError{
				NodeID: current,
				State:  state,
				Cause:  ec.Err(),
			}
		default:
		}

		var err error
		state, err = r.runNode(ec, current, state)
		if err != nil {
			return state, err
		}

		if fork := r.cg.forkNodes[current]; fork != nil {
			state, err = r.forkJoin(ec, fork, state)
			if err != nil {
				return state, err
			}
			current = fork.JoinNodeID
			continue
		}

		next, err := r.cg.nextNode(current)
		if err != nil {
			return state, err
		}
		current = next
	}

	return state, nil
}

// runNode executes one node with logging, metrics, tracing, events, and a
// snapshot on success. On failure the pre-node state is returned.
func (r *runner[S]) runNode(ec *executionContext, nodeID string, state S) (S, error) {
	observability.LogNodeStart(r.cfg.logger, nodeID)
	r.publish(ec, event.TypeNodeStarted, event.Payload{RunID: r.runID, NodeID: nodeID})

	nodeCtx := ec
	var nodeSpan trace.Span
	if r.cfg.tracingEnabled {
		var spanCtx context.Context
		spanCtx, nodeSpan = r.cfg.spans.StartNodeSpan(ec, nodeID)
		nodeCtx = ec.withContext(spanCtx)
	}

	nodeStart := time.Now()
	result, err := r.cg.executeNode(nodeCtx, nodeID, state)
	duration := time.Since(nodeStart)

	r.cfg.metrics.RecordNodeExecution(nodeCtx, nodeID, duration, err)
	if r.cfg.tracingEnabled {
		r.cfg.spans.EndSpanWithError(nodeSpan, err)
	}

	if err != nil {
		observability.LogNodeError(r.cfg.logger, nodeID, err)
		r.publish(ec, event.TypeNodeFailed, event.Payload{
			RunID:    r.runID,
			NodeID:   nodeID,
			Duration: duration,
			Error:    err.Error(),
		})
		return state, err
	}

	observability.LogNodeComplete(r.cfg.logger, nodeID, durationMs(duration))
	r.nodes.Add(1)
	r.publish(ec, event.TypeNodeCompleted, event.Payload{RunID: r.runID, NodeID: nodeID, Duration: duration})
	r.saveSnapshot(ec, nodeID, result)

	return result, nil
}

// executeNode executes a single node with panic recovery and, for state
// types implementing FieldTracker, verification of the declared writes.
func (cg *CompiledGraph[S]) executeNode(ctx *executionContext, nodeID string, state S) (result S, err error) {
	fn, exists := cg.getNode(nodeID)
	if !exists {
		return state, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    fmt.Errorf("node not found: %s", nodeID),
		}
	}

	nodeCtx := ctx.withNodeID(nodeID)

	access, declared := cg.access[nodeID]
	var before []string
	var versions map[string]any
	tracker, tracked := any(state).(FieldTracker)
	if tracked && declared {
		before = tracker.WrittenFields()
		if v, ok := any(state).(FieldVersioner); ok {
			versions = v.FieldVersions()
		}
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = state
			err = &PanicError{
				NodeID: nodeID,
				Value:  rec,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	result, err = fn(nodeCtx, state)
	if err != nil {
		return state, &NodeError{
			NodeID: nodeID,
			Op:     "execute",
			Err:    err,
		}
	}

	if tracked && declared {
		if after, ok := any(result).(FieldTracker); ok {
			accessErr := checkWrites(nodeID, access, before, after.WrittenFields())
			if v, ok := any(result).(FieldVersioner); ok && accessErr == nil && versions != nil {
				accessErr = checkVersions(nodeID, access, versions, v.FieldVersions())
			}
			if accessErr != nil {
				return state, &NodeError{
					NodeID: nodeID,
					Op:     "access",
					Err:    accessErr,
				}
			}
		}
	}

	return result, nil
}

// nextNode returns the single successor of a non-fork node.
func (cg *CompiledGraph[S]) nextNode(current string) (string, error) {
	edges := cg.getEdges(current)
	if len(edges) == 0 {
		return "", &NodeError{
			NodeID: current,
			Op:     "routing",
			Err:    fmt.Errorf("no outgoing edge from node %s", current),
		}
	}
	return edges[0], nil
}

// publish emits a lifecycle event. Delivery failures are logged only.
func (r *runner[S]) publish(ec *executionContext, eventType string, payload event.Payload) {
	if r.cfg.bus == nil {
		return
	}
	if err := r.cfg.bus.Publish(context.WithoutCancel(ec), event.New(eventType, payload)); err != nil {
		ec.logger.Warn("event publish failed",
			"event_type", eventType,
			"error", err.Error())
	}
}

// saveSnapshot records the state after a node. Failures are logged only.
func (r *runner[S]) saveSnapshot(ec *executionContext, nodeID string, state S) {
	if r.cfg.snapshots == nil {
		return
	}

	data, err := json.Marshal(state)
	if err != nil {
		observability.LogSnapshotError(r.cfg.logger, nodeID, "serialize", err)
		return
	}

	err = r.cfg.snapshots.Save(context.WithoutCancel(ec), snapshot.Snapshot{
		RunID:  r.runID,
		NodeID: nodeID,
		Branch: ec.branch,
		State:  data,
	})
	if err != nil {
		observability.LogSnapshotError(r.cfg.logger, nodeID, "save", err)
		return
	}

	observability.LogSnapshot(r.cfg.logger, nodeID, len(data))
	r.cfg.metrics.RecordSnapshot(ec, nodeID, int64(len(data)))
}

func durationMs(d time.Duration) float64 {
	return float64(d.Milliseconds())
}
