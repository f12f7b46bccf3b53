package flowgraph

import "sort"

// CompiledGraph is an immutable, executable graph.
// It is created by calling Compile() on a Graph builder.
//
// CompiledGraph is thread-safe and can be used concurrently for multiple
// Run() calls. The graph structure cannot be modified after compilation.
//
// Use the introspection methods (NodeIDs, Successors, Schedule, etc.) to
// examine the graph structure for debugging or visualization.
type CompiledGraph[S any] struct {
	nodes      map[string]NodeFunc[S]
	edges      map[string][]string
	entryPoint string

	predecessors map[string][]string
	access       map[string]Access
	inputs       []string
	levels       [][]string

	forkJoinConfig ForkJoinConfig
	forkNodes      map[string]*ForkNode // nodes with multiple outgoing edges
	joinNodes      map[string]*JoinNode // nodes where a fork's branches converge
}

// EntryPoint returns the entry node ID.
func (cg *CompiledGraph[S]) EntryPoint() string {
	return cg.entryPoint
}

// NodeIDs returns all node identifiers in the graph, sorted.
func (cg *CompiledGraph[S]) NodeIDs() []string {
	return sortedKeys(cg.nodes)
}

// HasNode checks if a node exists in the graph.
func (cg *CompiledGraph[S]) HasNode(id string) bool {
	_, exists := cg.nodes[id]
	return exists
}

// Successors returns the edge targets of the given node.
// Returns nil for END or unknown nodes.
func (cg *CompiledGraph[S]) Successors(id string) []string {
	if id == END {
		return nil
	}
	return append([]string(nil), cg.edges[id]...)
}

// Predecessors returns the node IDs that have edges to the given node.
// Returns nil for the entry node or unknown nodes.
func (cg *CompiledGraph[S]) Predecessors(id string) []string {
	return append([]string(nil), cg.predecessors[id]...)
}

// Access returns the declared field access of a node.
// The second result is false when nothing was declared.
func (cg *CompiledGraph[S]) Access(id string) (Access, bool) {
	a, ok := cg.access[id]
	if !ok {
		return Access{}, false
	}
	return Access{
		Reads:  append([]string(nil), a.Reads...),
		Writes: append([]string(nil), a.Writes...),
	}, true
}

// Inputs returns the fields declared as present before the run starts.
func (cg *CompiledGraph[S]) Inputs() []string {
	return append([]string(nil), cg.inputs...)
}

// Schedule returns the nodes grouped into topological levels. Every node
// appears after all of its predecessors; nodes within a level are
// independent of each other and sorted by ID.
func (cg *CompiledGraph[S]) Schedule() [][]string {
	out := make([][]string, len(cg.levels))
	for i, level := range cg.levels {
		out[i] = append([]string(nil), level...)
	}
	return out
}

// getNode returns the node function for the given ID.
func (cg *CompiledGraph[S]) getNode(id string) (NodeFunc[S], bool) {
	fn, exists := cg.nodes[id]
	return fn, exists
}

// getEdges returns the edge targets for the given node.
func (cg *CompiledGraph[S]) getEdges(id string) []string {
	return cg.edges[id]
}

// IsForkNode returns true if the node is a detected fork point
// (has multiple outgoing edges that require parallel execution).
func (cg *CompiledGraph[S]) IsForkNode(id string) bool {
	_, exists := cg.forkNodes[id]
	return exists
}

// GetForkNode returns the fork information for a node, or nil if not a fork.
func (cg *CompiledGraph[S]) GetForkNode(id string) *ForkNode {
	return cg.forkNodes[id]
}

// IsJoinNode returns true if the node is a detected join point
// (where parallel branches converge).
func (cg *CompiledGraph[S]) IsJoinNode(id string) bool {
	_, exists := cg.joinNodes[id]
	return exists
}

// GetJoinNode returns the join information for a node, or nil if not a join.
func (cg *CompiledGraph[S]) GetJoinNode(id string) *JoinNode {
	return cg.joinNodes[id]
}

// ForkNodes returns all fork nodes in the graph, ordered by node ID.
func (cg *CompiledGraph[S]) ForkNodes() []*ForkNode {
	result := make([]*ForkNode, 0, len(cg.forkNodes))
	for _, fn := range cg.forkNodes {
		result = append(result, fn)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].NodeID < result[j].NodeID })
	return result
}

// HasParallelExecution returns true if the graph contains any fork/join structures.
func (cg *CompiledGraph[S]) HasParallelExecution() bool {
	return len(cg.forkNodes) > 0
}
