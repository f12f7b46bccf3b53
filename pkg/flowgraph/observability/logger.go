// Package observability provides structured logging, metrics, and tracing
// for graph runs.
//
// Logging uses slog. Metrics and tracing use OpenTelemetry and fall back to
// no-op implementations when disabled.
package observability

import "log/slog"

// EnrichLogger adds run context to a logger.
// Returns a new logger with run_id and node_id fields, plus branch when the
// node runs inside a parallel branch.
//
// Example:
//
//	enriched := EnrichLogger(logger, "run-123", "founders", "founders")
//	enriched.Info("doing work") // includes run_id, node_id, branch
func EnrichLogger(logger *slog.Logger, runID, nodeID, branch string) *slog.Logger {
	if logger == nil {
		return nil
	}
	attrs := []any{
		slog.String("run_id", runID),
		slog.String("node_id", nodeID),
	}
	if branch != "" {
		attrs = append(attrs, slog.String("branch", branch))
	}
	return logger.With(attrs...)
}

// LogRunStart logs the start of a graph run.
func LogRunStart(logger *slog.Logger, runID string) {
	if logger == nil {
		return
	}
	logger.Info("graph run starting",
		slog.String("run_id", runID),
	)
}

// LogRunComplete logs successful graph run completion.
func LogRunComplete(logger *slog.Logger, runID string, durationMs float64, nodeCount int) {
	if logger == nil {
		return
	}
	logger.Info("graph run completed",
		slog.String("run_id", runID),
		slog.Float64("duration_ms", durationMs),
		slog.Int("nodes_executed", nodeCount),
	)
}

// LogRunError logs graph run failure.
func LogRunError(logger *slog.Logger, runID string, err error, durationMs float64, lastNode string) {
	if logger == nil {
		return
	}
	logger.Error("graph run failed",
		slog.String("run_id", runID),
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
		slog.String("last_node", lastNode),
	)
}

// LogNodeStart logs node execution start.
func LogNodeStart(logger *slog.Logger, nodeID string) {
	if logger == nil {
		return
	}
	logger.Debug("node starting",
		slog.String("node_id", nodeID),
	)
}

// LogNodeComplete logs successful node completion.
func LogNodeComplete(logger *slog.Logger, nodeID string, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("node completed",
		slog.String("node_id", nodeID),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogNodeError logs node execution error.
func LogNodeError(logger *slog.Logger, nodeID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("node failed",
		slog.String("node_id", nodeID),
		slog.String("error", err.Error()),
	)
}

// LogFork logs the start of parallel branches.
func LogFork(logger *slog.Logger, forkNodeID string, branches []string) {
	if logger == nil {
		return
	}
	logger.Debug("fork starting",
		slog.String("fork_node", forkNodeID),
		slog.Any("branches", branches),
	)
}

// LogJoin logs that every branch of a fork reached the join point.
func LogJoin(logger *slog.Logger, forkNodeID, joinNodeID string, branches int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("fork/join completed",
		slog.String("fork_node", forkNodeID),
		slog.String("join_node", joinNodeID),
		slog.Int("branches", branches),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogSnapshot logs a recorded state snapshot.
func LogSnapshot(logger *slog.Logger, nodeID string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("snapshot saved",
		slog.String("node_id", nodeID),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogSnapshotError logs a snapshot failure. Snapshots never fail a run.
func LogSnapshotError(logger *slog.Logger, nodeID string, op string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("snapshot failed",
		slog.String("node_id", nodeID),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}
