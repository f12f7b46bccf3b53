package flowgraph

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
)

// Compile validates the graph and creates an executable CompiledGraph.
// Returns an error if validation fails. Multiple errors are joined together.
//
// Validation checks (in order):
//  1. Entry point must be set
//  2. Entry point must reference an existing node
//  3. All edge sources must reference existing nodes
//  4. All edge targets must reference existing nodes or END
//  5. The graph must be acyclic
//  6. All nodes must have a path to END
//  7. Every fork must converge on a join node with no nested fork in between
//  8. Field access declarations must be consistent (see validateAccess)
//
// Unreachable nodes (not reachable from entry) are logged as warnings
// but do not cause compilation to fail.
func (g *Graph[S]) Compile() (*CompiledGraph[S], error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var errs []error

	if g.entryPoint == "" {
		errs = append(errs, ErrNoEntryPoint)
	} else if _, exists := g.nodes[g.entryPoint]; !exists {
		errs = append(errs, fmt.Errorf("%w: %s", ErrEntryNotFound, g.entryPoint))
	}

	edgesValid := true
	for _, from := range sortedKeys(g.edges) {
		if _, exists := g.nodes[from]; !exists {
			errs = append(errs, fmt.Errorf("%w: edge source '%s' does not exist", ErrNodeNotFound, from))
			edgesValid = false
		}
		for _, to := range g.edges[from] {
			if to == END {
				continue
			}
			if _, exists := g.nodes[to]; !exists {
				errs = append(errs, fmt.Errorf("%w: edge target '%s' does not exist", ErrNodeNotFound, to))
				edgesValid = false
			}
		}
	}

	levels, acyclic := g.topologicalLevels()
	if !acyclic {
		errs = append(errs, ErrCycle)
	}

	if g.entryPoint != "" && edgesValid {
		if _, exists := g.nodes[g.entryPoint]; exists && !g.hasPathToEnd() {
			errs = append(errs, ErrNoPathToEnd)
		}
	}

	predecessors := buildPredecessors(g.edges)
	forkNodes, joinNodes := detectForkJoinNodes(g.edges, predecessors)
	if acyclic && edgesValid {
		errs = append(errs, validateForks(forkNodes, g.edges)...)
		errs = append(errs, g.validateAccess(predecessors)...)
	}

	g.warnUnreachableNodes()

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	return g.buildCompiledGraph(levels, predecessors, forkNodes, joinNodes), nil
}

// hasPathToEnd checks if there's a path from entry to END.
// This uses a simple reachability analysis.
func (g *Graph[S]) hasPathToEnd() bool {
	canReachEnd := make(map[string]bool)
	canReachEnd[END] = true

	changed := true
	for changed {
		changed = false
		for from, targets := range g.edges {
			if canReachEnd[from] {
				continue
			}
			for _, to := range targets {
				if canReachEnd[to] {
					canReachEnd[from] = true
					changed = true
					break
				}
			}
		}
	}

	return canReachEnd[g.entryPoint]
}

// topologicalLevels groups nodes into levels where every node's
// predecessors sit in earlier levels. Node IDs within a level are sorted.
// The second result is false when the edges contain a cycle.
func (g *Graph[S]) topologicalLevels() ([][]string, bool) {
	indegree := make(map[string]int, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = 0
	}
	for from, targets := range g.edges {
		if _, ok := g.nodes[from]; !ok {
			continue
		}
		for _, to := range targets {
			if _, ok := g.nodes[to]; ok {
				indegree[to]++
			}
		}
	}

	var levels [][]string
	var current []string
	for id, d := range indegree {
		if d == 0 {
			current = append(current, id)
		}
	}

	placed := 0
	for len(current) > 0 {
		sort.Strings(current)
		levels = append(levels, current)
		placed += len(current)

		var next []string
		for _, id := range current {
			for _, to := range g.edges[id] {
				if _, ok := indegree[to]; !ok {
					continue
				}
				indegree[to]--
				if indegree[to] == 0 {
					next = append(next, to)
				}
			}
		}
		current = next
	}

	return levels, placed == len(g.nodes)
}

// validateAccess checks field declarations against the graph structure:
//   - declarations reference existing nodes
//   - no field is written by two nodes, and inputs are never written
//   - every read field is an input or written by a strict ancestor
func (g *Graph[S]) validateAccess(predecessors map[string][]string) []error {
	if len(g.access) == 0 {
		return nil
	}

	var errs []error
	inputs := make(map[string]bool, len(g.inputs))
	for _, f := range g.inputs {
		inputs[f] = true
	}

	writers := make(map[string]string)
	for _, id := range sortedKeys(g.access) {
		if _, exists := g.nodes[id]; !exists {
			errs = append(errs, fmt.Errorf("%w: access declared for '%s'", ErrNodeNotFound, id))
			continue
		}
		for _, f := range g.access[id].Writes {
			if inputs[f] {
				errs = append(errs, fmt.Errorf("%w: node '%s' writes input field '%s'", ErrFieldConflict, id, f))
				continue
			}
			if prev, ok := writers[f]; ok {
				errs = append(errs, fmt.Errorf("%w: field '%s' written by '%s' and '%s'", ErrFieldConflict, f, prev, id))
				continue
			}
			writers[f] = id
		}
	}

	for _, id := range sortedKeys(g.access) {
		if _, exists := g.nodes[id]; !exists {
			continue
		}
		ancestors := computeAncestors(id, predecessors)
		for _, f := range g.access[id].Reads {
			if inputs[f] {
				continue
			}
			writer, ok := writers[f]
			if !ok {
				errs = append(errs, fmt.Errorf("%w: node '%s' reads '%s' which no node writes", ErrReadBeforeWrite, id, f))
				continue
			}
			if !ancestors[writer] {
				errs = append(errs, fmt.Errorf("%w: node '%s' reads '%s' but writer '%s' does not precede it", ErrReadBeforeWrite, id, f, writer))
			}
		}
	}

	return errs
}

// warnUnreachableNodes logs warnings for nodes not reachable from entry.
func (g *Graph[S]) warnUnreachableNodes() {
	if g.entryPoint == "" {
		return
	}

	reachable := computeReachable(g.entryPoint, g.edges)
	for _, nodeID := range g.order {
		if !reachable[nodeID] {
			slog.Warn("node is unreachable from entry", "node_id", nodeID)
		}
	}
}

// buildCompiledGraph creates the immutable CompiledGraph from the builder state.
func (g *Graph[S]) buildCompiledGraph(
	levels [][]string,
	predecessors map[string][]string,
	forkNodes map[string]*ForkNode,
	joinNodes map[string]*JoinNode,
) *CompiledGraph[S] {
	nodes := make(map[string]NodeFunc[S], len(g.nodes))
	for id, fn := range g.nodes {
		nodes[id] = fn
	}

	edges := make(map[string][]string, len(g.edges))
	for from, targets := range g.edges {
		edges[from] = append([]string(nil), targets...)
	}

	access := make(map[string]Access, len(g.access))
	for id, a := range g.access {
		access[id] = Access{
			Reads:  append([]string(nil), a.Reads...),
			Writes: append([]string(nil), a.Writes...),
		}
	}

	return &CompiledGraph[S]{
		nodes:          nodes,
		edges:          edges,
		entryPoint:     g.entryPoint,
		predecessors:   predecessors,
		access:         access,
		inputs:         append([]string(nil), g.inputs...),
		levels:         levels,
		forkJoinConfig: g.forkJoinConfig,
		forkNodes:      forkNodes,
		joinNodes:      joinNodes,
	}
}

// buildPredecessors inverts the edge map, ignoring END.
func buildPredecessors(edges map[string][]string) map[string][]string {
	predecessors := make(map[string][]string)
	for _, from := range sortedKeys(edges) {
		for _, to := range edges[from] {
			if to != END {
				predecessors[to] = append(predecessors[to], from)
			}
		}
	}
	return predecessors
}

// detectForkJoinNodes identifies fork and join nodes in the graph.
// A fork node has multiple outgoing edges.
// A join node is found using a simple heuristic: the first node where all
// branches from a fork converge (post-dominator).
func detectForkJoinNodes(edges map[string][]string, predecessors map[string][]string) (map[string]*ForkNode, map[string]*JoinNode) {
	forkNodes := make(map[string]*ForkNode)
	joinNodes := make(map[string]*JoinNode)

	for from, targets := range edges {
		if len(targets) <= 1 {
			continue
		}
		fork := &ForkNode{
			NodeID:   from,
			Branches: append([]string(nil), targets...),
		}

		joinNodeID := findJoinNode(targets, edges)
		if joinNodeID == "" {
			joinNodeID = END
		}
		fork.JoinNodeID = joinNodeID
		forkNodes[from] = fork

		if joinNodeID != END {
			joinNodes[joinNodeID] = &JoinNode{
				NodeID:           joinNodeID,
				ForkNodeID:       from,
				ExpectedBranches: fork.Branches,
			}
		}
	}

	return forkNodes, joinNodes
}

// validateForks rejects forks whose branches contain another fork before the
// join point; branches execute sequentially inside their goroutine.
func validateForks(forkNodes map[string]*ForkNode, edges map[string][]string) []error {
	var errs []error
	for _, id := range sortedKeys(forkNodes) {
		fork := forkNodes[id]
		seen := make(map[string]bool)
		for _, branch := range fork.Branches {
			if branch == END {
				errs = append(errs, fmt.Errorf("%w: fork '%s' has an edge directly to END", ErrInvalidFork, id))
				continue
			}
			queue := []string{branch}
			for len(queue) > 0 {
				current := queue[0]
				queue = queue[1:]
				if current == fork.JoinNodeID || current == END || seen[current] {
					continue
				}
				seen[current] = true
				if len(edges[current]) > 1 {
					errs = append(errs, fmt.Errorf("%w: nested fork '%s' inside branch of '%s'", ErrInvalidFork, current, id))
					continue
				}
				queue = append(queue, edges[current]...)
			}
		}
	}
	return errs
}

// findJoinNode finds the join point for a fork using simplified post-dominator analysis.
// It finds the first node that all branches must pass through to reach END.
func findJoinNode(branches []string, edges map[string][]string) string {
	if len(branches) == 0 {
		return ""
	}

	branchReachable := make([]map[string]bool, len(branches))
	for i, branch := range branches {
		branchReachable[i] = computeReachable(branch, edges)
	}

	common := make(map[string]bool)
	for node := range branchReachable[0] {
		common[node] = true
	}
	for i := 1; i < len(branches); i++ {
		for node := range common {
			if !branchReachable[i][node] {
				delete(common, node)
			}
		}
	}

	if len(common) == 0 {
		return ""
	}

	return findClosestNode(branches[0], common, edges)
}

// computeReachable returns all nodes reachable from the given start node.
func computeReachable(start string, edges map[string][]string) map[string]bool {
	reachable := make(map[string]bool)
	if start == END {
		return reachable
	}
	queue := []string{start}
	reachable[start] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range edges[current] {
			if next != END && !reachable[next] {
				reachable[next] = true
				queue = append(queue, next)
			}
		}
	}

	return reachable
}

// computeAncestors returns every node with a path to id, excluding id.
func computeAncestors(id string, predecessors map[string][]string) map[string]bool {
	ancestors := make(map[string]bool)
	queue := append([]string(nil), predecessors[id]...)
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if ancestors[current] {
			continue
		}
		ancestors[current] = true
		queue = append(queue, predecessors[current]...)
	}
	return ancestors
}

// findClosestNode finds the closest node in targets reachable from start using BFS.
func findClosestNode(start string, targets map[string]bool, edges map[string][]string) string {
	if targets[start] {
		return start
	}

	visited := make(map[string]bool)
	queue := []string{start}
	visited[start] = true

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, next := range edges[current] {
			if next == END {
				continue
			}
			if targets[next] {
				return next
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	return ""
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
