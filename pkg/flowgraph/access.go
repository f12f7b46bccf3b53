package flowgraph

import (
	"slices"
	"sort"
)

// Access declares which state fields a node reads and which it writes.
//
// Declarations are checked by Compile (no two nodes write the same field,
// every read is produced by a strict ancestor or is a declared input) and,
// for state types implementing FieldTracker, after every node execution.
type Access struct {
	Reads  []string
	Writes []string
}

// FieldTracker is an optional interface for state types that record which
// fields have been written. When the state implements it, the executor
// rejects nodes that write undeclared fields, drop existing fields, or
// return without writing every declared field.
//
// FieldTracker compares field names only. A node that reassigns a field
// that was already set, without declaring it, goes unnoticed unless the
// state also implements FieldVersioner.
type FieldTracker interface {
	WrittenFields() []string
}

// FieldVersioner is an optional companion to FieldTracker. FieldVersions
// returns one comparable value per written field that changes whenever
// the field is reassigned, such as the pointer the field holds. The
// executor reports a changed version on an undeclared field as an
// overwrite.
type FieldVersioner interface {
	FieldVersions() map[string]any
}

// checkWrites compares tracked fields before and after a node ran.
// It returns nil when the node added exactly its declared writes.
func checkWrites(nodeID string, access Access, before, after []string) error {
	prev := make(map[string]bool, len(before))
	for _, f := range before {
		prev[f] = true
	}
	next := make(map[string]bool, len(after))
	for _, f := range after {
		next[f] = true
	}

	for f := range prev {
		if !next[f] {
			return &FieldAccessError{NodeID: nodeID, Field: f, Op: "clear"}
		}
	}

	var added []string
	for f := range next {
		if !prev[f] {
			added = append(added, f)
		}
	}
	sort.Strings(added)

	for _, f := range added {
		if !slices.Contains(access.Writes, f) {
			return &FieldAccessError{NodeID: nodeID, Field: f, Op: "write"}
		}
	}
	for _, f := range access.Writes {
		if prev[f] {
			return &FieldAccessError{NodeID: nodeID, Field: f, Op: "overwrite"}
		}
		if !next[f] {
			return &FieldAccessError{NodeID: nodeID, Field: f, Op: "missing"}
		}
	}
	return nil
}

// checkVersions reports the first field, in name order, whose version
// changed although the node did not declare it as a write.
func checkVersions(nodeID string, access Access, before, after map[string]any) error {
	fields := make([]string, 0, len(before))
	for f := range before {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	for _, f := range fields {
		next, ok := after[f]
		if !ok || slices.Contains(access.Writes, f) {
			continue
		}
		if next != before[f] {
			return &FieldAccessError{NodeID: nodeID, Field: f, Op: "overwrite"}
		}
	}
	return nil
}
