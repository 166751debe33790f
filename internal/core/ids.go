// Package core holds the pipeline's shared data model: operation
// identifiers, progress events, the operation lifecycle, and the
// CoreContext that replaces global mutable state (spec §9).
package core

import "github.com/google/uuid"

// OperationId opaquely identifies a tree of subprocesses, timers, and HTTP
// calls belonging to a single user action (spec §3).
type OperationId string

// NewOperationId mints a fresh, collision-resistant OperationId.
func NewOperationId() OperationId {
	return OperationId(uuid.NewString())
}

// String returns the id's string form.
func (id OperationId) String() string {
	return string(id)
}

// IsZero reports whether this is the unset OperationId.
func (id OperationId) IsZero() bool {
	return id == ""
}
