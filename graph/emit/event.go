package emit

import "time"

// Event messages emitted by the engine.
const (
	MsgSessionStart = "session_start"
	MsgNodeStart    = "node_start"
	MsgNodeEnd      = "node_end"
	MsgSuspend      = "suspend"
	MsgResume       = "resume"
	MsgComplete     = "complete"
	MsgError        = "error"
	MsgDelete       = "session_delete"
)

// Event represents an observability event emitted during session execution.
//
// Events provide insight into workflow behavior:
//   - Session lifecycle (start, suspend, resume, complete, delete)
//   - Node execution start/end with duration and outcome
//   - Errors returned by nodes or the store
//
// Events are emitted to an Emitter which can log them via slog, turn them
// into OpenTelemetry spans or buffer them for the session history endpoint.
type Event struct {
	// SessionID identifies the session that emitted this event.
	SessionID string `json:"session_id"`

	// Step is the checkpoint step the event belongs to.
	Step int `json:"step"`

	// NodeID identifies the node involved. Empty for session-level events.
	NodeID string `json:"node_id,omitempty"`

	// Msg is the event type (one of the Msg* constants).
	Msg string `json:"msg"`

	// Time is when the event was produced.
	Time time.Time `json:"time"`

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "duration_ms": Node execution duration in milliseconds
	//   - "outcome": continue, route, suspend or terminate
	//   - "next": Node chosen by the outcome
	//   - "kind": Interrupt kind on suspend
	//   - "error": Error details
	Meta map[string]interface{} `json:"meta,omitempty"`
}
