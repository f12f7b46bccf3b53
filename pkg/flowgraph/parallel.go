package flowgraph

import (
	"encoding/json"
	"fmt"
	"time"
)

// ParallelState is an optional interface for state types that control how
// state is copied into parallel branches and combined at the join.
//
// If the state type does not implement it, branches receive a JSON
// round-tripped copy and the join keeps the pre-fork state, discarding
// branch changes.
//
// Example:
//
//	func (s State) Clone(branchID string) State {
//	    clone := s
//	    clone.Notes = maps.Clone(s.Notes)
//	    return clone
//	}
//
//	func (s State) Merge(branches map[string]State) (State, error) {
//	    merged := s
//	    for id, b := range branches {
//	        merged.Notes[id] = b.Notes[id]
//	    }
//	    return merged, nil
//	}
type ParallelState[S any] interface {
	// Clone creates an independent copy of the state for a parallel branch.
	Clone(branchID string) S

	// Merge combines the final states of all branches. The receiver is the
	// state at the fork point. Merge must not depend on map iteration order.
	Merge(branches map[string]S) (S, error)
}

// ForkJoinConfig configures parallel execution behavior.
// Zero values are valid.
type ForkJoinConfig struct {
	// MaxConcurrency limits the number of branches executing simultaneously.
	// 0 = unlimited.
	MaxConcurrency int

	// FailFast cancels the remaining branches when any branch fails.
	// false = wait for every branch to finish (default).
	FailFast bool

	// MergeTimeout bounds the time from fork to join.
	// 0 = no timeout.
	MergeTimeout time.Duration
}

// DefaultForkJoinConfig returns the default configuration:
// unlimited concurrency, wait for all branches, no timeout.
func DefaultForkJoinConfig() ForkJoinConfig {
	return ForkJoinConfig{}
}

// ForkNode represents a point where execution splits into parallel branches.
// It is computed during compilation from nodes with multiple outgoing edges.
type ForkNode struct {
	// NodeID is the ID of the fork node in the graph.
	NodeID string

	// Branches are the IDs of the first node in each branch.
	Branches []string

	// JoinNodeID is where all branches converge, or END.
	JoinNodeID string
}

// JoinNode represents a point where parallel branches converge.
type JoinNode struct {
	NodeID           string
	ForkNodeID       string
	ExpectedBranches []string
}

// BranchResult holds the outcome of a single branch execution.
type BranchResult[S any] struct {
	// BranchID identifies this branch (same as the first node ID).
	BranchID string

	// State is the branch state when it reached the join point or failed.
	State S

	// Error is set if the branch failed.
	Error error

	// Duration is how long the branch took to execute.
	Duration time.Duration
}

// cloneState creates a copy of state for a parallel branch.
func cloneState[S any](state S, branchID string) (S, error) {
	if ps, ok := any(state).(ParallelState[S]); ok {
		return ps.Clone(branchID), nil
	}

	var clone S
	data, err := json.Marshal(state)
	if err != nil {
		return clone, fmt.Errorf("marshal: %w", err)
	}
	if err := json.Unmarshal(data, &clone); err != nil {
		return clone, fmt.Errorf("unmarshal: %w", err)
	}
	return clone, nil
}

// mergeStates combines branch states back into a single state.
func mergeStates[S any](original S, branches map[string]S) (S, error) {
	if ps, ok := any(original).(ParallelState[S]); ok {
		return ps.Merge(branches)
	}
	return original, nil
}
