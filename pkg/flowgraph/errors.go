package flowgraph

import (
	"errors"
	"fmt"
)

// Sentinel errors for graph building and compilation.
var (
	// ErrNoEntryPoint indicates SetEntry() was not called before Compile().
	ErrNoEntryPoint = errors.New("entry point not set")

	// ErrEntryNotFound indicates the entry point references a non-existent node.
	ErrEntryNotFound = errors.New("entry point node not found")

	// ErrNodeNotFound indicates an edge or declaration references a non-existent node.
	ErrNodeNotFound = errors.New("node not found")

	// ErrNoPathToEnd indicates no path exists from the entry point to END.
	ErrNoPathToEnd = errors.New("no path to END from entry")

	// ErrCycle indicates the edges contain a cycle.
	ErrCycle = errors.New("graph contains a cycle")

	// ErrInvalidFork indicates a fork whose branches cannot be joined.
	ErrInvalidFork = errors.New("invalid fork")

	// ErrFieldConflict indicates a field written by more than one node,
	// or a node writing a declared input.
	ErrFieldConflict = errors.New("conflicting field writers")

	// ErrReadBeforeWrite indicates a node reads a field that no strict
	// ancestor writes and that is not a declared input.
	ErrReadBeforeWrite = errors.New("field read before it is written")
)

// Sentinel errors for execution.
var (
	// ErrMaxIterations indicates the execution loop exceeded the configured limit.
	ErrMaxIterations = errors.New("exceeded maximum iterations")

	// ErrNilContext indicates Run() was called with a nil context.
	ErrNilContext = errors.New("context cannot be nil")
)

// NodeError wraps an error with node context.
// It provides information about which node failed and what operation was attempted.
type NodeError struct {
	// NodeID is the identifier of the node that failed.
	NodeID string
	// Op is the operation that failed ("execute", "access", "routing").
	Op string
	// Err is the underlying error from the node.
	Err error
}

// Error implements the error interface.
func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s: %s: %v", e.NodeID, e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *NodeError) Unwrap() error {
	return e.Err
}

// FieldAccessError reports a node whose writes did not match its declaration.
type FieldAccessError struct {
	NodeID string
	Field  string
	// Op is "write" (undeclared field written), "overwrite" (declared field
	// already set before the node ran), "missing" (declared field not
	// written), or "clear" (existing field removed).
	Op string
}

// Error implements the error interface.
func (e *FieldAccessError) Error() string {
	switch e.Op {
	case "write":
		return fmt.Sprintf("node %s wrote undeclared field %q", e.NodeID, e.Field)
	case "overwrite":
		return fmt.Sprintf("node %s overwrote field %q", e.NodeID, e.Field)
	case "missing":
		return fmt.Sprintf("node %s did not write declared field %q", e.NodeID, e.Field)
	default:
		return fmt.Sprintf("node %s cleared field %q", e.NodeID, e.Field)
	}
}

// PanicError captures panic information from node execution.
// It includes the stack trace for debugging.
type PanicError struct {
	// NodeID is the identifier of the node that panicked.
	NodeID string
	// Value is the value passed to panic().
	Value any
	// Stack is the full stack trace at the point of panic.
	Stack string
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("node %s panicked: %v", e.NodeID, e.Value)
}

// CancellationError captures the state when execution was cancelled.
type CancellationError struct {
	// NodeID is the node that was about to execute.
	NodeID string
	// State is the state at cancellation (can type-assert to the actual type).
	State any
	// Cause is the underlying cancellation cause (context.Canceled or context.DeadlineExceeded).
	Cause error
}

// Error implements the error interface.
func (e *CancellationError) Error() string {
	return fmt.Sprintf("cancelled before node %s: %v", e.NodeID, e.Cause)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *CancellationError) Unwrap() error {
	return e.Cause
}

// ForkJoinError reports a failure while running parallel branches.
type ForkJoinError struct {
	ForkNodeID string
	// BranchID is the branch whose error is reported, empty for merge failures.
	BranchID string
	// Failed lists every branch that failed, in declaration order.
	Failed []string
	// Op is "clone", "branch", or "merge".
	Op  string
	Err error
}

// Error implements the error interface.
func (e *ForkJoinError) Error() string {
	if e.BranchID == "" {
		return fmt.Sprintf("fork %s: %s: %v", e.ForkNodeID, e.Op, e.Err)
	}
	return fmt.Sprintf("fork %s: %s %s: %v", e.ForkNodeID, e.Op, e.BranchID, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *ForkJoinError) Unwrap() error {
	return e.Err
}

// MaxIterationsError provides context when the loop limit is exceeded.
type MaxIterationsError struct {
	// Max is the configured iteration limit.
	Max int
	// LastNodeID is the node that would have executed next.
	LastNodeID string
	// State is the state at termination (can type-assert to the actual type).
	State any
}

// Error implements the error interface.
func (e *MaxIterationsError) Error() string {
	return fmt.Sprintf("exceeded maximum iterations (%d) at node %s", e.Max, e.LastNodeID)
}

// Unwrap returns ErrMaxIterations for errors.Is support.
func (e *MaxIterationsError) Unwrap() error {
	return ErrMaxIterations
}

// FailedNode returns the node an execution error is attributed to, or ""
// when err did not come from a node.
func FailedNode(err error) string {
	var nodeErr *NodeError
	var panicErr *PanicError
	var cancelErr *CancellationError
	var maxErr *MaxIterationsError
	var forkErr *ForkJoinError
	switch {
	case errors.As(err, &nodeErr):
		return nodeErr.NodeID
	case errors.As(err, &panicErr):
		return panicErr.NodeID
	case errors.As(err, &cancelErr):
		return cancelErr.NodeID
	case errors.As(err, &maxErr):
		return maxErr.LastNodeID
	case errors.As(err, &forkErr):
		if forkErr.BranchID != "" {
			return forkErr.BranchID
		}
		return forkErr.ForkNodeID
	}
	return ""
}
