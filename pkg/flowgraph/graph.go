package flowgraph

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for creating execution graphs.
// Use NewGraph to create a new graph, then chain AddNode, AddEdge,
// and SetEntry calls to define the workflow.
//
// Graph is NOT thread-safe during building. Use a single goroutine
// to construct the graph, then call Compile() to create an immutable
// CompiledGraph that can be safely shared.
//
// Example:
//
//	graph := flowgraph.NewGraph[MyState]().
//	    AddNode("extract", extractNode).
//	    AddNode("founders", foundersNode).
//	    AddNode("market", marketNode).
//	    AddNode("validate", validateNode).
//	    AddEdge("extract", "founders").
//	    AddEdge("extract", "market").
//	    AddEdge("founders", "validate").
//	    AddEdge("market", "validate").
//	    AddEdge("validate", flowgraph.END).
//	    SetEntry("extract")
//
//	compiled, err := graph.Compile()
type Graph[S any] struct {
	mu             sync.RWMutex
	nodes          map[string]NodeFunc[S]
	order          []string
	edges          map[string][]string
	access         map[string]Access
	inputs         []string
	entryPoint     string
	forkJoinConfig ForkJoinConfig
}

// NewGraph creates a new graph builder for state type S.
// The type parameter S defines the state that flows through the graph.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:          make(map[string]NodeFunc[S]),
		edges:          make(map[string][]string),
		access:         make(map[string]Access),
		forkJoinConfig: DefaultForkJoinConfig(),
	}
}

// AddNode adds a named node to the graph.
// Returns the graph for method chaining.
//
// Panics if:
//   - id is empty
//   - id is the reserved word "END" or "__end__" (case-insensitive)
//   - id contains whitespace (space, tab, newline)
//   - fn is nil
//   - id already exists in the graph
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	if id == "" {
		panic("flowgraph: node ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == "__end__" {
		panic("flowgraph: node ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("flowgraph: node ID cannot contain whitespace")
	}

	if fn == nil {
		panic("flowgraph: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("flowgraph: duplicate node ID: %s", id))
	}

	g.nodes[id] = fn
	g.order = append(g.order, id)
	return g
}

// AddEdge adds an unconditional edge from one node to another.
// The target can be a node ID or flowgraph.END.
// Returns the graph for method chaining.
//
// A node with more than one outgoing edge is a fork: its targets run
// concurrently and must converge on a common join node.
//
// Edge validation happens at Compile() time, not here.
// This allows edges to be added in any order.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// SetAccess declares the state fields a node reads and writes.
// Returns the graph for method chaining.
//
// Declarations are validated at Compile() time.
func (g *Graph[S]) SetAccess(id string, access Access) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.access[id] = Access{
		Reads:  append([]string(nil), access.Reads...),
		Writes: append([]string(nil), access.Writes...),
	}
	return g
}

// SetInputs declares fields that are present in the state before the run
// starts. Nodes may read them without an upstream writer.
func (g *Graph[S]) SetInputs(fields ...string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.inputs = append(g.inputs, fields...)
	return g
}

// SetForkJoinConfig configures how parallel branches execute.
func (g *Graph[S]) SetForkJoinConfig(cfg ForkJoinConfig) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.forkJoinConfig = cfg
	return g
}

// SetEntry designates the entry point node.
// This must be called before Compile().
// Returns the graph for method chaining.
//
// Entry point validation happens at Compile() time.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
