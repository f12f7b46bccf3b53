package flowgraph

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fgerrors "github.com/randalmurphal/argus/pkg/flowgraph/errors"
	"github.com/randalmurphal/argus/pkg/flowgraph/event"
)

func TestForkJoin_Basic(t *testing.T) {
	compiled, err := diamond(nil).Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Ledger{}.with("doc", "deck.pdf"))

	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"doc":      "deck.pdf",
		"entities": "e",
		"report_a": "A",
		"report_b": "B",
		"report_c": "C",
		"verdict":  "ok",
	}, result.Fields)
}

func TestForkJoin_BranchesRunConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(3)
	release := make(chan struct{})

	barrierNode := func(field string) NodeFunc[Ledger] {
		return func(ctx Context, s Ledger) (Ledger, error) {
			started.Done()
			select {
			case <-release:
			case <-ctx.Done():
				return s, ctx.Err()
			}
			return s.with(field, field), nil
		}
	}

	compiled, err := diamond(map[string]NodeFunc[Ledger]{
		"a": barrierNode("report_a"),
		"b": barrierNode("report_b"),
		"c": barrierNode("report_c"),
	}).Compile()
	require.NoError(t, err)

	// All three branches must be in flight at once for release to fire.
	go func() {
		started.Wait()
		close(release)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err = compiled.Run(NewContext(ctx), Ledger{})
	require.NoError(t, err)
}

func TestForkJoin_JoinSeesAllBranches(t *testing.T) {
	var seen []string

	compiled, err := diamond(map[string]NodeFunc[Ledger]{
		"a": func(ctx Context, s Ledger) (Ledger, error) {
			time.Sleep(20 * time.Millisecond)
			return s.with("report_a", "A"), nil
		},
		"validate": func(ctx Context, s Ledger) (Ledger, error) {
			seen = s.WrittenFields()
			return s.with("verdict", "ok"), nil
		},
	}).Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Ledger{})

	require.NoError(t, err)
	assert.Equal(t, []string{"entities", "report_a", "report_b", "report_c"}, seen)
}

func TestForkJoin_BranchIsolation(t *testing.T) {
	var sawSibling atomic.Bool

	check := func(field string) NodeFunc[Ledger] {
		return func(ctx Context, s Ledger) (Ledger, error) {
			time.Sleep(5 * time.Millisecond)
			for _, f := range s.WrittenFields() {
				if f == "report_a" || f == "report_b" || f == "report_c" {
					sawSibling.Store(true)
				}
			}
			return s.with(field, field), nil
		}
	}

	compiled, err := diamond(map[string]NodeFunc[Ledger]{
		"a": check("report_a"),
		"b": check("report_b"),
		"c": check("report_c"),
	}).Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Ledger{})

	require.NoError(t, err)
	assert.False(t, sawSibling.Load())
}

func TestForkJoin_BranchContext(t *testing.T) {
	var mu sync.Mutex
	branches := make(map[string]string)

	capture := func(field string) NodeFunc[Ledger] {
		return func(ctx Context, s Ledger) (Ledger, error) {
			mu.Lock()
			branches[ctx.NodeID()] = ctx.Branch()
			mu.Unlock()
			return s.with(field, field), nil
		}
	}

	compiled, err := diamond(map[string]NodeFunc[Ledger]{
		"a":        capture("report_a"),
		"b":        capture("report_b"),
		"c":        capture("report_c"),
		"validate": capture("verdict"),
	}).Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Ledger{})

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "a", "b": "b", "c": "c", "validate": ""}, branches)
}

func TestForkJoin_BranchFailureAbortsBeforeJoin(t *testing.T) {
	var validateRan atomic.Bool
	errBoom := errors.New("market search exploded")

	compiled, err := diamond(map[string]NodeFunc[Ledger]{
		"b": makeFailingNode[Ledger](errBoom),
		"validate": func(ctx Context, s Ledger) (Ledger, error) {
			validateRan.Store(true)
			return s.with("verdict", "ok"), nil
		},
	}).Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Ledger{})

	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, validateRan.Load())

	var forkErr *ForkJoinError
	require.ErrorAs(t, err, &forkErr)
	assert.Equal(t, "extract", forkErr.ForkNodeID)
	assert.Equal(t, "b", forkErr.BranchID)
	assert.Equal(t, []string{"b"}, forkErr.Failed)
	assert.Equal(t, "branch", forkErr.Op)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "b", nodeErr.NodeID)

	// No branch output leaks into the returned state.
	assert.Equal(t, []string{"entities"}, result.WrittenFields())
}

func TestForkJoin_WaitsForAllBranchesByDefault(t *testing.T) {
	var finished atomic.Int32

	slow := func(field string) NodeFunc[Ledger] {
		return func(ctx Context, s Ledger) (Ledger, error) {
			time.Sleep(30 * time.Millisecond)
			if ctx.Err() == nil {
				finished.Add(1)
			}
			return s.with(field, field), nil
		}
	}

	compiled, err := diamond(map[string]NodeFunc[Ledger]{
		"a": makeFailingNode[Ledger](errors.New("fail")),
		"b": slow("report_b"),
		"c": slow("report_c"),
	}).Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Ledger{})

	require.Error(t, err)
	assert.Equal(t, int32(2), finished.Load())
}

func TestForkJoin_FailFastCancelsSiblings(t *testing.T) {
	errBoom := errors.New("boom")

	waitForCancel := func(ctx Context, s Ledger) (Ledger, error) {
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-time.After(5 * time.Second):
			return s, errors.New("sibling was not cancelled")
		}
	}

	g := diamond(map[string]NodeFunc[Ledger]{
		"a": waitForCancel,
		"b": func(ctx Context, s Ledger) (Ledger, error) {
			time.Sleep(10 * time.Millisecond)
			return s, errBoom
		},
		"c": waitForCancel,
	}).SetForkJoinConfig(ForkJoinConfig{FailFast: true})

	compiled, err := g.Compile()
	require.NoError(t, err)

	start := time.Now()
	_, err = compiled.Run(testCtx(), Ledger{})

	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)

	var forkErr *ForkJoinError
	require.ErrorAs(t, err, &forkErr)
	assert.Equal(t, "b", forkErr.BranchID)
	assert.ErrorIs(t, err, errBoom)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, forkErr.Failed)
}

func TestForkJoin_MaxConcurrency(t *testing.T) {
	var current, peak atomic.Int32

	limited := func(field string) NodeFunc[Ledger] {
		return func(ctx Context, s Ledger) (Ledger, error) {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(15 * time.Millisecond)
			current.Add(-1)
			return s.with(field, field), nil
		}
	}

	g := diamond(map[string]NodeFunc[Ledger]{
		"a": limited("report_a"),
		"b": limited("report_b"),
		"c": limited("report_c"),
	}).SetForkJoinConfig(ForkJoinConfig{MaxConcurrency: 1})

	compiled, err := g.Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Ledger{})

	require.NoError(t, err)
	assert.Equal(t, int32(1), peak.Load())
}

func TestForkJoin_MergeTimeout(t *testing.T) {
	g := diamond(map[string]NodeFunc[Ledger]{
		"c": func(ctx Context, s Ledger) (Ledger, error) {
			<-ctx.Done()
			return s, ctx.Err()
		},
	}).SetForkJoinConfig(ForkJoinConfig{MergeTimeout: 20 * time.Millisecond})

	compiled, err := g.Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Ledger{})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	var forkErr *ForkJoinError
	require.ErrorAs(t, err, &forkErr)
	assert.Equal(t, "c", forkErr.BranchID)

	var timeoutErr *fgerrors.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 20*time.Millisecond, timeoutErr.Duration)
	assert.Equal(t, "join at validate", timeoutErr.Operation)
	assert.True(t, fgerrors.IsRetryable(err))
}

func TestForkJoin_MergeConflict(t *testing.T) {
	// Field tracking is off without declarations, so both branches may
	// write the same field and the merge must reject it.
	compiled, err := NewGraph[Ledger]().
		AddNode("start", passthrough[Ledger]).
		AddNode("left", writeNode("shared", "L")).
		AddNode("right", writeNode("shared", "R")).
		AddNode("join", passthrough[Ledger]).
		AddEdge("start", "left").
		AddEdge("start", "right").
		AddEdge("left", "join").
		AddEdge("right", "join").
		AddEdge("join", END).
		SetEntry("start").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Ledger{})

	var forkErr *ForkJoinError
	require.ErrorAs(t, err, &forkErr)
	assert.Equal(t, "merge", forkErr.Op)
	assert.Equal(t, "start", FailedNode(err))
}

func TestForkJoin_JoinAtEND(t *testing.T) {
	compiled, err := NewGraph[Ledger]().
		AddNode("start", passthrough[Ledger]).
		AddNode("left", writeNode("left", "L")).
		AddNode("right", writeNode("right", "R")).
		AddEdge("start", "left").
		AddEdge("start", "right").
		AddEdge("left", END).
		AddEdge("right", END).
		SetEntry("start").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Ledger{})

	require.NoError(t, err)
	assert.Equal(t, []string{"left", "right"}, result.WrittenFields())
}

func TestForkJoin_MultiNodeBranches(t *testing.T) {
	compiled, err := NewGraph[Ledger]().
		AddNode("start", passthrough[Ledger]).
		AddNode("l1", writeNode("l1", "x")).
		AddNode("l2", writeNode("l2", "x")).
		AddNode("r1", writeNode("r1", "x")).
		AddNode("join", writeNode("joined", "x")).
		AddEdge("start", "l1").
		AddEdge("start", "r1").
		AddEdge("l1", "l2").
		AddEdge("l2", "join").
		AddEdge("r1", "join").
		AddEdge("join", END).
		SetEntry("start").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Ledger{})

	require.NoError(t, err)
	assert.Equal(t, []string{"joined", "l1", "l2", "r1"}, result.WrittenFields())
}

func TestForkJoin_WithoutParallelState(t *testing.T) {
	// Plain state types get JSON copies and keep the pre-fork state.
	var mu sync.Mutex
	var ran []string

	compiled, err := NewGraph[Counter]().
		AddNode("start", increment).
		AddNode("left", func(ctx Context, s Counter) (Counter, error) {
			mu.Lock()
			ran = append(ran, "left")
			mu.Unlock()
			s.Value += 10
			return s, nil
		}).
		AddNode("right", func(ctx Context, s Counter) (Counter, error) {
			mu.Lock()
			ran = append(ran, "right")
			mu.Unlock()
			s.Value += 100
			return s, nil
		}).
		AddNode("join", increment).
		AddEdge("start", "left").
		AddEdge("start", "right").
		AddEdge("left", "join").
		AddEdge("right", "join").
		AddEdge("join", END).
		SetEntry("start").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Counter{})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"left", "right"}, ran)
	assert.Equal(t, 2, result.Value)
}

func TestForkJoin_FieldTrackingInBranch(t *testing.T) {
	compiled, err := diamond(map[string]NodeFunc[Ledger]{
		"a": writeNode("report_b", "stolen"),
	}).Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Ledger{})

	var accessErr *FieldAccessError
	require.ErrorAs(t, err, &accessErr)
	assert.Equal(t, "a", accessErr.NodeID)
	assert.Equal(t, "report_b", accessErr.Field)
}

func TestForkJoin_Events(t *testing.T) {
	bus, handler := newTestBus(t)

	compiled, err := diamond(nil).Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), Ledger{}, WithEventBus(bus))
	require.NoError(t, err)

	// run.started, 5x node started/completed, fork.started, join.completed, run.completed
	handler.waitForEvents(t, 14)

	forks := handler.ofType(event.TypeForkStarted)
	require.Len(t, forks, 1)
	assert.Equal(t, "extract", forks[0].Payload().NodeID)
	assert.Equal(t, []string{"a", "b", "c"}, forks[0].Payload().Branches)

	joins := handler.ofType(event.TypeJoinCompleted)
	require.Len(t, joins, 1)
	assert.Equal(t, "validate", joins[0].Payload().NodeID)
}

func TestForkJoin_SequentialGraphHasNoForks(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge("a", "b").
		AddEdge("b", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	assert.False(t, compiled.HasParallelExecution())
	assert.Empty(t, compiled.ForkNodes())
}

func TestCloneState_FallsBackToJSON(t *testing.T) {
	original := State{Progress: []string{"a"}}

	clone, err := cloneState(original, "branch")
	require.NoError(t, err)

	clone.Progress[0] = "changed"
	assert.Equal(t, "a", original.Progress[0])
}

func TestCloneState_Unserializable(t *testing.T) {
	type bad struct {
		Ch chan int
	}

	_, err := cloneState(bad{Ch: make(chan int)}, "branch")
	assert.Error(t, err)
}
