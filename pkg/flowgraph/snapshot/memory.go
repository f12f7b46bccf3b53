package snapshot

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory snapshot store.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	runs   map[string]map[string]Snapshot // runID -> nodeID -> snapshot
	seq    map[string]int
	closed bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a new in-memory snapshot store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs: make(map[string]map[string]Snapshot),
		seq:  make(map[string]int),
	}
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if m.runs[snap.RunID] == nil {
		m.runs[snap.RunID] = make(map[string]Snapshot)
	}
	m.seq[snap.RunID]++

	snap.Sequence = m.seq[snap.RunID]
	snap.Timestamp = time.Now().UTC()
	snap.State = append([]byte(nil), snap.State...)
	m.runs[snap.RunID][snap.NodeID] = snap
	return nil
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, runID, nodeID string) (Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return Snapshot{}, ErrStoreClosed
	}

	snap, ok := m.runs[runID][nodeID]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	snap.State = append([]byte(nil), snap.State...)
	return snap, nil
}

// List implements Store.
func (m *MemoryStore) List(_ context.Context, runID string) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	infos := make([]Info, 0, len(m.runs[runID]))
	for _, snap := range m.runs[runID] {
		infos = append(infos, Info{
			RunID:     snap.RunID,
			NodeID:    snap.NodeID,
			Branch:    snap.Branch,
			Sequence:  snap.Sequence,
			Timestamp: snap.Timestamp,
			Size:      int64(len(snap.State)),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Sequence < infos[j].Sequence })
	return infos, nil
}

// Runs implements Store.
func (m *MemoryStore) Runs(_ context.Context) ([]RunInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	runs := make([]RunInfo, 0, len(m.runs))
	for runID, nodes := range m.runs {
		info := RunInfo{RunID: runID, Snapshots: len(nodes)}
		for _, snap := range nodes {
			if info.FirstAt.IsZero() || snap.Timestamp.Before(info.FirstAt) {
				info.FirstAt = snap.Timestamp
			}
			if snap.Timestamp.After(info.LastAt) {
				info.LastAt = snap.Timestamp
			}
		}
		runs = append(runs, info)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].LastAt.Equal(runs[j].LastAt) {
			return runs[i].RunID < runs[j].RunID
		}
		return runs[i].LastAt.After(runs[j].LastAt)
	})
	return runs, nil
}

// DeleteRun implements Store.
func (m *MemoryStore) DeleteRun(_ context.Context, runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	delete(m.runs, runID)
	delete(m.seq, runID)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.runs = nil
	return nil
}

// Len returns the total number of snapshots across all runs.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, nodes := range m.runs {
		count += len(nodes)
	}
	return count
}
