// Package snapshot records per-node state snapshots of a graph run.
//
// Snapshots are an audit trail: each completed node's state is serialized
// and stored so a run can be inspected afterwards. They are never used to
// resume a run.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Snapshot is the serialized state of a run after one node completed.
type Snapshot struct {
	RunID  string `json:"run_id"`
	NodeID string `json:"node_id"`

	// Branch is the parallel branch the node ran in, empty on the main path.
	Branch string `json:"branch,omitempty"`

	// Sequence is assigned by the store and increases per run.
	Sequence  int             `json:"sequence"`
	Timestamp time.Time       `json:"timestamp"`
	State     json.RawMessage `json:"state"`
}

// Info provides snapshot metadata without the state payload.
type Info struct {
	RunID     string
	NodeID    string
	Branch    string
	Sequence  int
	Timestamp time.Time
	Size      int64
}

// RunInfo summarizes the snapshots recorded for one run.
type RunInfo struct {
	RunID     string
	Snapshots int
	FirstAt   time.Time
	LastAt    time.Time
}

// Store persists snapshots.
// Implementations must be safe for concurrent use; parallel branches save
// from separate goroutines.
type Store interface {
	// Save stores a snapshot, assigning its sequence number and timestamp.
	// A later save for the same (run, node) replaces the earlier one.
	Save(ctx context.Context, snap Snapshot) error

	// Load retrieves the snapshot for a node.
	// Returns ErrNotFound if it doesn't exist.
	Load(ctx context.Context, runID, nodeID string) (Snapshot, error)

	// List returns metadata for all snapshots of a run, ordered by sequence.
	// Returns an empty slice (not error) if the run has no snapshots.
	List(ctx context.Context, runID string) ([]Info, error)

	// Runs summarizes every recorded run, most recent first.
	Runs(ctx context.Context) ([]RunInfo, error)

	// DeleteRun removes all snapshots for a run.
	DeleteRun(ctx context.Context, runID string) error

	// Close releases any resources.
	Close() error
}

var (
	// ErrNotFound indicates a snapshot doesn't exist.
	ErrNotFound = errors.New("snapshot not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("snapshot store closed")
)
