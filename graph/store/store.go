package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no checkpoint exists for a session ID.
	ErrNotFound = errors.New("not found")

	// ErrExists is returned by Create when a checkpoint already exists for
	// the session ID.
	ErrExists = errors.New("already exists")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")
)

// Store persists one Checkpoint per session.
//
// The lifecycle is explicit: Create allocates, Get reads, Put replaces the
// whole record and Delete removes it. Implementations must make Put atomic
// with respect to Get: a reader observes either the previous checkpoint or
// the new one, never a mix.
//
// Stores do not serialize callers. Per-session mutual exclusion is provided
// by KeyLocks, held by the engine around every mutating call.
//
// Implementations:
//   - MemStore: volatile, in-process (the reference store)
//   - SQLiteStore: single-file database
//   - MySQLStore: shared relational database
//   - RedisStore: key-value snapshot with a session index
//
// Type parameter S is the workflow state type (must be JSON-serializable).
type Store[S any] interface {
	// Create stores the first checkpoint for a session. Returns ErrExists if
	// the session ID is already taken.
	Create(ctx context.Context, cp Checkpoint[S]) error

	// Get returns the current checkpoint for a session, or ErrNotFound.
	// The returned value never aliases store-internal memory.
	Get(ctx context.Context, sessionID string) (Checkpoint[S], error)

	// Put replaces the checkpoint for cp.SessionID.
	Put(ctx context.Context, cp Checkpoint[S]) error

	// Delete removes a session's checkpoint. Returns ErrNotFound when there
	// is nothing to remove.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions in ascending order.
	List(ctx context.Context) ([]string, error)
}

// encode serializes a checkpoint for storage.
func encode[S any](cp Checkpoint[S]) ([]byte, error) {
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	return data, nil
}

// decode restores a checkpoint produced by encode.
func decode[S any](data []byte) (Checkpoint[S], error) {
	var cp Checkpoint[S]
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint[S]{}, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return cp, nil
}
