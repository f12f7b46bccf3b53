package flowgraph

// END is the terminal node identifier.
// Use this as an edge target to indicate the graph should terminate.
const END = "__end__"

// NodeFunc is the signature for all node functions.
// Nodes receive the execution context and current state,
// and return the updated state (or the same state) and any error.
//
// The state parameter is passed by value. Nodes should modify and return
// a new state value, not rely on pointer mutation.
//
// Example:
//
//	func extract(ctx flowgraph.Context, s RunState) (RunState, error) {
//	    s.Entities = parse(ctx)
//	    return s, nil
//	}
type NodeFunc[S any] func(ctx Context, state S) (S, error)
