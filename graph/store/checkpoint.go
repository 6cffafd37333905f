package store

import (
	"fmt"
	"time"

	"github.com/dshills/postgraph/graph/interrupt"
)

// Status is the lifecycle position of a session.
type Status string

const (
	// StatusReady means the checkpoint has no pending interrupt and the
	// cursor names the next node to run.
	StatusReady Status = "ready"

	// StatusSuspended means execution is parked at the cursor node waiting
	// for a resume value.
	StatusSuspended Status = "suspended"

	// StatusTerminal means the session reached the end of the graph.
	StatusTerminal Status = "terminal"
)

// Checkpoint is the persisted position of one session: its state, the node
// to resume into and the pending interrupt, if any.
type Checkpoint[S any] struct {
	// SessionID is the opaque key the checkpoint is stored under.
	SessionID string `json:"session_id"`

	// State is the workflow state as of the last completed step.
	State S `json:"state"`

	// Cursor is the node to run next (Ready) or the node that suspended
	// (Suspended). Terminal checkpoints carry the end marker.
	Cursor string `json:"cursor"`

	// Pending is the interrupt returned to the caller. Set only when
	// Status is StatusSuspended.
	Pending *interrupt.Interrupt `json:"pending,omitempty"`

	// Status is the session lifecycle state.
	Status Status `json:"status"`

	// Step counts completed node executions.
	Step int `json:"step"`

	// UpdatedAt is when the checkpoint was last written.
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the structural invariants every stored checkpoint holds.
func (c Checkpoint[S]) Validate() error {
	if c.SessionID == "" {
		return fmt.Errorf("checkpoint: empty session id")
	}
	if c.Cursor == "" {
		return fmt.Errorf("checkpoint %s: empty cursor", c.SessionID)
	}
	switch c.Status {
	case StatusSuspended:
		if c.Pending == nil {
			return fmt.Errorf("checkpoint %s: suspended without pending interrupt", c.SessionID)
		}
	case StatusReady, StatusTerminal:
		if c.Pending != nil {
			return fmt.Errorf("checkpoint %s: %s with pending interrupt", c.SessionID, c.Status)
		}
	default:
		return fmt.Errorf("checkpoint %s: unknown status %q", c.SessionID, c.Status)
	}
	return nil
}
