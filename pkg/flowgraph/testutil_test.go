package flowgraph

import (
	"context"
	"fmt"
	"maps"
	"sort"
)

// Counter is a simple state for testing incrementing.
type Counter struct {
	Value int
}

// State is a general-purpose state for linear execution tests.
type State struct {
	Step     int
	Progress []string
	Initial  string
	Output   string
}

// Ledger is a field-tracking state that supports parallel execution.
// Each key in Fields is a written field.
type Ledger struct {
	Fields map[string]string
}

func (l Ledger) WrittenFields() []string {
	keys := make([]string, 0, len(l.Fields))
	for k := range l.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (l Ledger) Clone(string) Ledger {
	return Ledger{Fields: maps.Clone(l.Fields)}
}

func (l Ledger) Merge(branches map[string]Ledger) (Ledger, error) {
	merged := l.Clone("")
	if merged.Fields == nil {
		merged.Fields = make(map[string]string)
	}
	ids := make([]string, 0, len(branches))
	for id := range branches {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		for k, v := range branches[id].Fields {
			if _, base := l.Fields[k]; base {
				continue
			}
			if _, dup := merged.Fields[k]; dup {
				return Ledger{}, fmt.Errorf("field %s written by more than one branch", k)
			}
			merged.Fields[k] = v
		}
	}
	return merged, nil
}

func (l Ledger) with(field, value string) Ledger {
	next := l.Clone("")
	if next.Fields == nil {
		next.Fields = make(map[string]string)
	}
	next.Fields[field] = value
	return next
}

// increment is a node that increments the counter.
func increment(ctx Context, s Counter) (Counter, error) {
	s.Value++
	return s, nil
}

// passthrough returns the state unchanged.
func passthrough[S any](ctx Context, s S) (S, error) {
	return s, nil
}

// makeTrackingNode creates a node that records its execution.
func makeTrackingNode(name string, tracker *[]string) NodeFunc[State] {
	return func(ctx Context, s State) (State, error) {
		*tracker = append(*tracker, name)
		s.Progress = append(s.Progress, name)
		return s, nil
	}
}

// makeFailingNode creates a node that returns the given error.
func makeFailingNode[S any](err error) NodeFunc[S] {
	return func(ctx Context, s S) (S, error) {
		return s, err
	}
}

// makePanicNode creates a node that panics with the given value.
func makePanicNode(value any) NodeFunc[State] {
	return func(ctx Context, s State) (State, error) {
		panic(value)
	}
}

// writeNode creates a Ledger node that writes field=value.
func writeNode(field, value string) NodeFunc[Ledger] {
	return func(ctx Context, s Ledger) (Ledger, error) {
		return s.with(field, value), nil
	}
}

// testCtx creates a simple test context.
func testCtx() Context {
	return NewContext(context.Background())
}

// diamond builds extract -> {a, b, c} -> validate -> END over Ledger with
// declared access. Nodes can be overridden by ID.
func diamond(overrides map[string]NodeFunc[Ledger]) *Graph[Ledger] {
	node := func(id string, def NodeFunc[Ledger]) NodeFunc[Ledger] {
		if fn, ok := overrides[id]; ok {
			return fn
		}
		return def
	}
	return NewGraph[Ledger]().
		AddNode("extract", node("extract", writeNode("entities", "e"))).
		AddNode("a", node("a", writeNode("report_a", "A"))).
		AddNode("b", node("b", writeNode("report_b", "B"))).
		AddNode("c", node("c", writeNode("report_c", "C"))).
		AddNode("validate", node("validate", writeNode("verdict", "ok"))).
		AddEdge("extract", "a").
		AddEdge("extract", "b").
		AddEdge("extract", "c").
		AddEdge("a", "validate").
		AddEdge("b", "validate").
		AddEdge("c", "validate").
		AddEdge("validate", END).
		SetEntry("extract").
		SetInputs("doc").
		SetAccess("extract", Access{Reads: []string{"doc"}, Writes: []string{"entities"}}).
		SetAccess("a", Access{Reads: []string{"entities"}, Writes: []string{"report_a"}}).
		SetAccess("b", Access{Reads: []string{"entities"}, Writes: []string{"report_b"}}).
		SetAccess("c", Access{Reads: []string{"entities"}, Writes: []string{"report_c"}}).
		SetAccess("validate", Access{Reads: []string{"doc", "report_a", "report_b", "report_c"}, Writes: []string{"verdict"}})
}
