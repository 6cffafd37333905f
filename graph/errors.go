package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/postgraph/graph/store"
)

// ErrMaxStepsExceeded indicates that a single Advance or Resume call ran
// more steps than WithMaxSteps allows. It is returned wrapped in an
// *EngineError with code MAX_STEPS_EXCEEDED.
var ErrMaxStepsExceeded = errors.New("execution exceeded maximum steps limit")

// ErrSessionExists is returned by Start when the session ID is taken.
var ErrSessionExists = errors.New("session already exists")

// GraphDefinitionError reports an invalid graph. Build returns one listing
// every problem; the engine returns one when a node's outcome contradicts
// the graph at run time. Either way it is fatal.
type GraphDefinitionError struct {
	Problems []string
}

func (e *GraphDefinitionError) Error() string {
	if len(e.Problems) == 1 {
		return "graph definition: " + e.Problems[0]
	}
	return fmt.Sprintf("graph definition: %d problems: %s", len(e.Problems), strings.Join(e.Problems, "; "))
}

// InvalidSessionStateError is returned when Advance or Resume is called on a
// session that is not in the status the operation requires.
type InvalidSessionStateError struct {
	SessionID string
	Status    store.Status
	Op        string
}

func (e *InvalidSessionStateError) Error() string {
	return fmt.Sprintf("session %s: cannot %s while %s", e.SessionID, e.Op, e.Status)
}

// SessionBusyError is returned when another call holds the session.
type SessionBusyError struct {
	SessionID string
}

func (e *SessionBusyError) Error() string {
	return "session " + e.SessionID + " is busy"
}

// SessionNotFoundError is returned for unknown session IDs.
type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	return "session " + e.SessionID + " not found"
}

// Unwrap lets errors.Is(err, store.ErrNotFound) match.
func (e *SessionNotFoundError) Unwrap() error {
	return store.ErrNotFound
}

// CollaboratorError wraps a failure of an external service called by a
// node: text generation, search or publishing.
type CollaboratorError struct {
	// Collaborator names the service, e.g. "anthropic" or "tavily".
	Collaborator string

	// Op is the operation that failed, e.g. "chat" or "search".
	Op string

	Err error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Collaborator, e.Op, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// NodeError is returned when a node's Run fails. The checkpoint is left at
// the last completed step.
type NodeError struct {
	NodeID string
	Cause  error
}

func (e *NodeError) Error() string {
	return "node " + e.NodeID + ": " + e.Cause.Error()
}

func (e *NodeError) Unwrap() error {
	return e.Cause
}

// EngineError represents an error from Engine configuration or bookkeeping.
type EngineError struct {
	Message string
	Code    string
	Cause   error
}

func (e *EngineError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

func (e *EngineError) Unwrap() error {
	return e.Cause
}
