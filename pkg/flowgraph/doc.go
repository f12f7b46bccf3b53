/*
Package flowgraph provides a typed task-graph engine with compile-time
field-isolation checks and fork/join execution.

# Overview

A graph is a set of named nodes connected by unconditional edges. Every node
is a function from state to state:

	type NodeFunc[S any] func(ctx Context, state S) (S, error)

Graphs are built with a fluent builder, validated once by Compile, and then
run any number of times. A CompiledGraph is immutable and safe for
concurrent use.

# Basic Usage

	graph := flowgraph.NewGraph[State]().
	    AddNode("extract", extract).
	    AddNode("summarize", summarize).
	    AddEdge("extract", "summarize").
	    AddEdge("summarize", flowgraph.END).
	    SetEntry("extract")

	compiled, err := graph.Compile()
	if err != nil {
	    return err
	}

	ctx := flowgraph.NewContext(context.Background())
	result, err := compiled.Run(ctx, State{Input: "hello"})

# Fork and Join

A node with more than one outgoing edge is a fork. After it runs, each
target starts a branch that executes in its own goroutine on a copy of the
state. Branches run until the join node, the closest node every branch
reaches. When all branches have finished, their states are merged and
execution continues at the join node.

	graph.
	    AddEdge("extract", "founders").
	    AddEdge("extract", "market").
	    AddEdge("extract", "financials").
	    AddEdge("founders", "validate").
	    AddEdge("market", "validate").
	    AddEdge("financials", "validate")

State types control copying and merging by implementing ParallelState.
Without it, branches receive a JSON copy and their changes are discarded at
the join. A failure in any branch fails the run before the join node runs;
ForkJoinError names the branch. ForkJoinConfig bounds concurrency and can
cancel sibling branches on the first failure.

Nested forks inside a branch are rejected by Compile.

# Field Access

Nodes may declare the state fields they read and write:

	graph.SetInputs("document").
	    SetAccess("extract", flowgraph.Access{Reads: []string{"document"}, Writes: []string{"entities"}}).
	    SetAccess("founders", flowgraph.Access{Reads: []string{"entities"}, Writes: []string{"founder_report"}})

Compile rejects a field with two writers or a write to an input. A node may
only read inputs and fields written by its strict ancestors. Sibling branches therefore
cannot observe each other. When the state implements FieldTracker, each
node's actual writes are checked against its declaration at run time.
That check compares field names. A state that also implements
FieldVersioner lets the executor catch an undeclared reassignment of a
field that was already set.

Schedule returns the topological levels of the graph for inspection.

# Error Handling

Node errors are wrapped in NodeError. Panics are recovered as PanicError
with a stack trace. Cancellation between nodes yields CancellationError.
Use errors.Is and errors.As to inspect them:

	var nodeErr *flowgraph.NodeError
	if errors.As(err, &nodeErr) {
	    log.Printf("node %s failed: %v", nodeErr.NodeID, nodeErr.Err)
	}

# Observability

Run options turn on logging, OpenTelemetry metrics and spans, lifecycle
events and per-node state snapshots:

	result, err := compiled.Run(ctx, state,
	    flowgraph.WithObservabilityLogger(logger),
	    flowgraph.WithTracing(true),
	    flowgraph.WithEventBus(bus),
	    flowgraph.WithSnapshots(store))

Snapshots are an audit trail; they are never read back into a run.
*/
package flowgraph
