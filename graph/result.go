package graph

import "github.com/dshills/postgraph/graph/interrupt"

// StepResult is what Advance and Resume return when a call ends normally:
// either the session suspended (Interrupt set) or it finished (Done).
type StepResult[S any] struct {
	// Interrupt is the payload for the caller when the session suspended.
	Interrupt *interrupt.Interrupt

	// State is the session state as of the checkpoint just written.
	State S

	// Done is true when the session reached the end of the graph.
	Done bool

	// Step is the checkpoint step count after the call.
	Step int
}

// Suspended reports whether the call ended at an interrupt.
func (r StepResult[S]) Suspended() bool {
	return r.Interrupt != nil
}
