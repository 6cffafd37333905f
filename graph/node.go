// Package graph provides the workflow graph and the step engine that drives
// sessions through it.
package graph

import (
	"context"

	"github.com/dshills/postgraph/graph/interrupt"
)

// Node represents a processing step in the workflow graph.
//
// A node receives a private copy of the session state and, when it is being
// re-entered after a suspension, the caller's resume value. It reports what
// should happen next by returning exactly one Outcome:
//   - Continue: go to a node the step chooses itself
//   - Route: follow the graph's edge for this node
//   - Suspend: park the session and hand a payload to the caller
//   - Terminate: end the session
//
// Returning a non-nil error aborts the current call. The checkpoint is left
// at the last completed step so the call can be retried.
//
// Nodes hold no state between invocations and must tolerate being run again
// for the same step.
//
// Type parameter S is the state type shared across the workflow.
type Node[S any] interface {
	Run(ctx context.Context, state S, resume *interrupt.Resume) (Outcome[S], error)
}

// NodeFunc is a function adapter that implements the Node interface.
//
// Example:
//
//	review := graph.NodeFunc[State](func(ctx context.Context, s State, r *interrupt.Resume) (graph.Outcome[State], error) {
//	    if r == nil {
//	        return graph.Suspend[State](interrupt.New(interrupt.KindPost, &s.Draft)), nil
//	    }
//	    return graph.Continue("publish", s), nil
//	})
type NodeFunc[S any] func(ctx context.Context, state S, resume *interrupt.Resume) (Outcome[S], error)

// Run implements the Node interface for NodeFunc.
func (f NodeFunc[S]) Run(ctx context.Context, state S, resume *interrupt.Resume) (Outcome[S], error) {
	return f(ctx, state, resume)
}

// OutcomeKind discriminates the variants of Outcome.
type OutcomeKind int

const (
	// OutcomeContinue proceeds to Outcome.Next.
	OutcomeContinue OutcomeKind = iota + 1
	// OutcomeRoute proceeds via the node's fixed or conditional edge.
	OutcomeRoute
	// OutcomeSuspend parks the session with Outcome.Interrupt.
	OutcomeSuspend
	// OutcomeTerminate ends the session.
	OutcomeTerminate
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeContinue:
		return "continue"
	case OutcomeRoute:
		return "route"
	case OutcomeSuspend:
		return "suspend"
	case OutcomeTerminate:
		return "terminate"
	default:
		return "unknown"
	}
}

// Outcome is the result of running a node. Build it with Continue, Route,
// Suspend or Terminate rather than by hand.
type Outcome[S any] struct {
	Kind OutcomeKind

	// Next is the target of a Continue outcome.
	Next string

	// State is the updated state for Continue, Route and Terminate.
	State S

	// Interrupt is the payload of a Suspend outcome.
	Interrupt *interrupt.Interrupt
}

// Continue proceeds directly to next, which must be one of the targets the
// node declared with Continues (or End).
func Continue[S any](next string, state S) Outcome[S] {
	return Outcome[S]{Kind: OutcomeContinue, Next: next, State: state}
}

// Route proceeds through the edge registered for the node.
func Route[S any](state S) Outcome[S] {
	return Outcome[S]{Kind: OutcomeRoute, State: state}
}

// Suspend halts the session and returns payload to the caller. The same node
// is re-entered with the caller's resume value. State changes are not
// carried by a suspension.
func Suspend[S any](payload *interrupt.Interrupt) Outcome[S] {
	return Outcome[S]{Kind: OutcomeSuspend, Interrupt: payload}
}

// Terminate ends the session successfully with state as its final value.
func Terminate[S any](state S) Outcome[S] {
	return Outcome[S]{Kind: OutcomeTerminate, State: state}
}
