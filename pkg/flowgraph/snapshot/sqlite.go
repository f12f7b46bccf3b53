package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists snapshots to SQLite.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) a snapshot database.
// The path should be a file path (e.g., "./argus.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			run_id TEXT NOT NULL,
			node_id TEXT NOT NULL,
			branch TEXT NOT NULL DEFAULT '',
			sequence INTEGER NOT NULL,
			timestamp TEXT NOT NULL,
			state BLOB NOT NULL,
			PRIMARY KEY (run_id, node_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_snapshots_run_id
		ON snapshots(run_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	state := []byte(snap.State)
	if state == nil {
		state = []byte("null")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (run_id, node_id, branch, sequence, timestamp, state)
		VALUES (
			?, ?, ?,
			COALESCE((SELECT MAX(sequence) FROM snapshots WHERE run_id = ?), 0) + 1,
			?, ?
		)
		ON CONFLICT(run_id, node_id) DO UPDATE SET
			branch = excluded.branch,
			sequence = (SELECT MAX(sequence) FROM snapshots WHERE run_id = excluded.run_id) + 1,
			timestamp = excluded.timestamp,
			state = excluded.state
	`, snap.RunID, snap.NodeID, snap.Branch, snap.RunID,
		time.Now().UTC().Format(time.RFC3339Nano), state)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context, runID, nodeID string) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return Snapshot{}, ErrStoreClosed
	}

	snap := Snapshot{RunID: runID, NodeID: nodeID}
	var timestamp string
	var state []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT branch, sequence, timestamp, state FROM snapshots
		WHERE run_id = ? AND node_id = ?
	`, runID, nodeID).Scan(&snap.Branch, &snap.Sequence, &timestamp, &state)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	snap.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
	snap.State = state
	return snap, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, runID string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT node_id, branch, sequence, timestamp, LENGTH(state)
		FROM snapshots
		WHERE run_id = ?
		ORDER BY sequence
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	infos := []Info{}
	for rows.Next() {
		info := Info{RunID: runID}
		var timestamp string
		if err := rows.Scan(&info.NodeID, &info.Branch, &info.Sequence, &timestamp, &info.Size); err != nil {
			return nil, fmt.Errorf("scan snapshot info: %w", err)
		}
		info.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return infos, nil
}

// Runs implements Store.
func (s *SQLiteStore) Runs(ctx context.Context) ([]RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, COUNT(*), MIN(timestamp), MAX(timestamp)
		FROM snapshots
		GROUP BY run_id
		ORDER BY MAX(timestamp) DESC, run_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		var first, last string
		if err := rows.Scan(&info.RunID, &info.Snapshots, &first, &last); err != nil {
			return nil, fmt.Errorf("scan run info: %w", err)
		}
		info.FirstAt, _ = time.Parse(time.RFC3339Nano, first)
		info.LastAt, _ = time.Parse(time.RFC3339Nano, last)
		runs = append(runs, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// DeleteRun implements Store.
func (s *SQLiteStore) DeleteRun(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("delete run snapshots: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
