package flowgraph

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	fgerrors "github.com/randalmurphal/argus/pkg/flowgraph/errors"
	"github.com/randalmurphal/argus/pkg/flowgraph/event"
	"github.com/randalmurphal/argus/pkg/flowgraph/observability"
)

// forkJoin runs every branch of fork concurrently on its own copy of state,
// waits for all of them to reach the join node, and merges their states.
// The join node itself runs afterwards on the main path.
func (r *runner[S]) forkJoin(ec *executionContext, fork *ForkNode, state S) (S, error) {
	startTime := time.Now()
	fjc := r.cg.forkJoinConfig

	observability.LogFork(r.cfg.logger, fork.NodeID, fork.Branches)
	r.publish(ec, event.TypeForkStarted, event.Payload{
		RunID:    r.runID,
		NodeID:   fork.NodeID,
		Branches: fork.Branches,
	})
	r.cfg.spans.AddSpanEvent(ec, "fork",
		attribute.String("fork.node", fork.NodeID),
		attribute.Int("branches", len(fork.Branches)))

	clones := make([]S, len(fork.Branches))
	for i, branchID := range fork.Branches {
		clone, err := cloneState(state, branchID)
		if err != nil {
			return state, &ForkJoinError{
				ForkNodeID: fork.NodeID,
				BranchID:   branchID,
				Op:         "clone",
				Err:        err,
			}
		}
		clones[i] = clone
	}

	var parent context.Context = ec
	if fjc.MergeTimeout > 0 {
		var cancel context.CancelFunc
		parent, cancel = context.WithTimeout(parent, fjc.MergeTimeout)
		defer cancel()
	}

	g, gctx := errgroup.WithContext(parent)
	if fjc.MaxConcurrency > 0 {
		g.SetLimit(fjc.MaxConcurrency)
	}

	results := make([]BranchResult[S], len(fork.Branches))
	for i, branchID := range fork.Branches {
		g.Go(func() error {
			results[i] = r.runBranch(gctx, ec, fork, branchID, clones[i])
			if results[i].Error != nil && fjc.FailFast {
				return results[i].Error
			}
			return nil
		})
	}
	_ = g.Wait()

	var failed []string
	var reported *BranchResult[S]
	branchStates := make(map[string]S, len(results))
	for i := range results {
		res := &results[i]
		if res.Error == nil {
			branchStates[res.BranchID] = res.State
			continue
		}
		failed = append(failed, res.BranchID)
		// Prefer the branch that failed on its own over siblings that were
		// cancelled because of it.
		if reported == nil || (isCancellation(reported.Error) && !isCancellation(res.Error)) {
			reported = res
		}
	}

	if reported != nil {
		branchErr := reported.Error
		if errors.Is(parent.Err(), context.DeadlineExceeded) && ec.Err() == nil {
			branchErr = &fgerrors.TimeoutError{
				Operation: "join at " + fork.JoinNodeID,
				Duration:  fjc.MergeTimeout,
				Err:       branchErr,
			}
		}
		return state, &ForkJoinError{
			ForkNodeID: fork.NodeID,
			BranchID:   reported.BranchID,
			Failed:     failed,
			Op:         "branch",
			Err:        branchErr,
		}
	}

	merged, err := mergeStates(state, branchStates)
	if err != nil {
		return state, &ForkJoinError{
			ForkNodeID: fork.NodeID,
			Op:         "merge",
			Err:        err,
		}
	}

	duration := time.Since(startTime)
	observability.LogJoin(r.cfg.logger, fork.NodeID, fork.JoinNodeID, len(fork.Branches), durationMs(duration))
	r.publish(ec, event.TypeJoinCompleted, event.Payload{
		RunID:    r.runID,
		NodeID:   fork.JoinNodeID,
		Branches: fork.Branches,
		Duration: duration,
	})

	return merged, nil
}

// runBranch executes one branch from its first node until the join node.
func (r *runner[S]) runBranch(ctx context.Context, ec *executionContext, fork *ForkNode, branchID string, state S) BranchResult[S] {
	startTime := time.Now()

	var span trace.Span
	if r.cfg.tracingEnabled {
		ctx, span = r.cfg.spans.StartBranchSpan(ctx, fork.NodeID, branchID)
	}

	bec := ec.withBranch(ctx, branchID)
	final, err := r.runPath(bec, state, branchID, fork.JoinNodeID)
	duration := time.Since(startTime)

	r.cfg.metrics.RecordBranch(bec, fork.NodeID, branchID, duration, err)
	if r.cfg.tracingEnabled {
		r.cfg.spans.EndSpanWithError(span, err)
	}

	return BranchResult[S]{
		BranchID: branchID,
		State:    final,
		Error:    err,
		Duration: duration,
	}
}

func isCancellation(err error) bool {
	var cancelErr *CancellationError
	return errors.As(err, &cancelErr) || errors.Is(err, context.Canceled)
}
