package graph

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dshills/postgraph/graph/emit"
	"github.com/dshills/postgraph/graph/interrupt"
	"github.com/dshills/postgraph/graph/store"
)

// Engine drives sessions through a Graph, one checkpointed step at a time.
//
// The Engine:
//   - Creates a checkpoint at the entry node for each new session
//   - Runs nodes in sequence until one suspends or the graph ends
//   - Writes the checkpoint after every completed step
//   - Re-enters a suspended node with the caller's resume value
//   - Serializes calls per session and rejects concurrent ones
//   - Emits observability events and metrics
//
// Sessions move between three statuses: Ready (Advance allowed), Suspended
// (Resume allowed) and Terminal (no further steps). The Engine is safe for
// concurrent use across sessions.
//
// Type parameter S is the state type shared across the workflow.
//
// Example:
//
//	engine, err := graph.New(g, store.NewMemStore[State]())
//	if err != nil {
//	    return err
//	}
//	if err := engine.Start(ctx, id, initial); err != nil {
//	    return err
//	}
//	res, err := engine.Advance(ctx, id)
//	if res.Suspended() {
//	    // show res.Interrupt to a human, then:
//	    res, err = engine.Resume(ctx, id, interrupt.Satisfied())
//	}
type Engine[S any] struct {
	graph *Graph[S]
	store store.Store[S]
	locks *store.KeyLocks

	maxSteps int
	emitter  emit.Emitter
	metrics  *PrometheusMetrics
	logger   *slog.Logger
	now      func() time.Time
}

// New creates an Engine over a built graph and a checkpoint store. The
// engine owns its lock table; share the Engine, not the store, between
// callers that drive the same sessions.
func New[S any](g *Graph[S], st store.Store[S], opts ...Option) (*Engine[S], error) {
	if g == nil {
		return nil, &EngineError{Message: "graph is required", Code: "MISSING_GRAPH"}
	}
	if st == nil {
		return nil, &EngineError{Message: "store is required", Code: "MISSING_STORE"}
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	return &Engine[S]{
		graph:    g,
		store:    st,
		locks:    store.NewKeyLocks(),
		maxSteps: cfg.maxSteps,
		emitter:  cfg.emitter,
		metrics:  cfg.metrics,
		logger:   cfg.logger,
		now:      cfg.now,
	}, nil
}

// Graph returns the graph the engine runs.
func (e *Engine[S]) Graph() *Graph[S] { return e.graph }

// Start creates a session positioned at the entry node. No node runs until
// Advance is called. Returns an error wrapping ErrSessionExists if the ID is
// taken.
func (e *Engine[S]) Start(ctx context.Context, sessionID string, initial S) error {
	if sessionID == "" {
		return &EngineError{Message: "session id cannot be empty", Code: "INVALID_SESSION_ID"}
	}
	release, err := e.acquire(sessionID)
	if err != nil {
		return err
	}
	defer release()

	cp := store.Checkpoint[S]{
		SessionID: sessionID,
		State:     initial,
		Cursor:    e.graph.entry,
		Status:    store.StatusReady,
		UpdatedAt: e.now(),
	}
	if err := e.store.Create(ctx, cp); err != nil {
		if errors.Is(err, store.ErrExists) {
			return fmt.Errorf("session %s: %w", sessionID, ErrSessionExists)
		}
		return storeError("create", err)
	}

	e.metrics.SessionStarted()
	e.emit(sessionID, 0, e.graph.entry, emit.MsgSessionStart, nil)
	return nil
}

// Advance runs a Ready session until it suspends or ends.
func (e *Engine[S]) Advance(ctx context.Context, sessionID string) (StepResult[S], error) {
	release, err := e.acquire(sessionID)
	if err != nil {
		return StepResult[S]{}, err
	}
	defer release()

	cp, err := e.loadValid(ctx, sessionID)
	if err != nil {
		return StepResult[S]{}, err
	}
	if cp.Status != store.StatusReady {
		return StepResult[S]{}, &InvalidSessionStateError{SessionID: sessionID, Status: cp.Status, Op: "advance"}
	}
	return e.run(ctx, cp, nil)
}

// Resume re-enters the node a Suspended session is parked at, passing it
// value, and continues until the session suspends again or ends.
func (e *Engine[S]) Resume(ctx context.Context, sessionID string, value interrupt.Resume) (StepResult[S], error) {
	release, err := e.acquire(sessionID)
	if err != nil {
		return StepResult[S]{}, err
	}
	defer release()

	cp, err := e.loadValid(ctx, sessionID)
	if err != nil {
		return StepResult[S]{}, err
	}
	if cp.Status != store.StatusSuspended {
		return StepResult[S]{}, &InvalidSessionStateError{SessionID: sessionID, Status: cp.Status, Op: "resume"}
	}

	e.emit(sessionID, cp.Step, cp.Cursor, emit.MsgResume, map[string]interface{}{
		"kind": string(cp.Pending.Kind),
	})
	return e.run(ctx, cp, &value)
}

// Status returns a copy of the session's current checkpoint.
func (e *Engine[S]) Status(ctx context.Context, sessionID string) (store.Checkpoint[S], error) {
	return e.load(ctx, sessionID)
}

// Sessions lists the IDs of all stored sessions.
func (e *Engine[S]) Sessions(ctx context.Context) ([]string, error) {
	ids, err := e.store.List(ctx)
	if err != nil {
		return nil, storeError("list", err)
	}
	return ids, nil
}

// Delete removes a session's checkpoint. Deleting an unknown or already
// deleted session returns *SessionNotFoundError.
func (e *Engine[S]) Delete(ctx context.Context, sessionID string) error {
	release, err := e.acquire(sessionID)
	if err != nil {
		return err
	}
	defer release()

	cp, err := e.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := e.store.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return &SessionNotFoundError{SessionID: sessionID}
		}
		return storeError("delete", err)
	}

	if cp.Status != store.StatusTerminal {
		e.metrics.SessionAbandoned()
	}
	e.emit(sessionID, cp.Step, "", emit.MsgDelete, map[string]interface{}{
		"status": string(cp.Status),
	})
	return nil
}

// run is the step loop shared by Advance and Resume. resume is handed to
// the first node only.
func (e *Engine[S]) run(ctx context.Context, cp store.Checkpoint[S], resume *interrupt.Resume) (StepResult[S], error) {
	id := cp.SessionID
	for steps := 0; ; steps++ {
		if err := ctx.Err(); err != nil {
			return StepResult[S]{}, err
		}
		if e.maxSteps > 0 && steps >= e.maxSteps {
			e.emitError(cp, ErrMaxStepsExceeded)
			return StepResult[S]{}, &EngineError{
				Message: fmt.Sprintf("session %s exceeded %d steps in one call", id, e.maxSteps),
				Code:    "MAX_STEPS_EXCEEDED",
				Cause:   ErrMaxStepsExceeded,
			}
		}

		name := cp.Cursor
		gn, ok := e.graph.nodes[name]
		if !ok {
			return StepResult[S]{}, &GraphDefinitionError{Problems: []string{
				fmt.Sprintf("session %s is positioned at unknown node %q", id, name),
			}}
		}

		input, err := cloneState(cp.State)
		if err != nil {
			return StepResult[S]{}, &EngineError{Message: err.Error(), Code: "STATE_COPY_FAILED", Cause: err}
		}

		e.emit(id, cp.Step, name, emit.MsgNodeStart, nil)
		start := time.Now()
		out, err := gn.node.Run(ctx, input, resume)
		elapsed := time.Since(start)
		resume = nil

		if err != nil {
			e.metrics.RecordStepLatency(name, elapsed, "error")
			e.emitError(cp, err)
			e.logger.Warn("node failed", "session_id", id, "node_id", name, "error", err)
			return StepResult[S]{}, &NodeError{NodeID: name, Cause: err}
		}
		e.metrics.RecordStepLatency(name, elapsed, "success")
		e.emit(id, cp.Step, name, emit.MsgNodeEnd, map[string]interface{}{
			"duration_ms": elapsed.Milliseconds(),
			"outcome":     out.Kind.String(),
		})

		switch out.Kind {
		case OutcomeSuspend:
			return e.suspend(ctx, cp, out.Interrupt)

		case OutcomeTerminate:
			return e.finish(ctx, cp, out.State)

		case OutcomeContinue, OutcomeRoute:
			next, err := e.graph.resolve(name, out)
			if err != nil {
				e.emitError(cp, err)
				return StepResult[S]{}, err
			}
			if next == End {
				return e.finish(ctx, cp, out.State)
			}
			cp = store.Checkpoint[S]{
				SessionID: id,
				State:     out.State,
				Cursor:    next,
				Status:    store.StatusReady,
				Step:      cp.Step + 1,
				UpdatedAt: e.now(),
			}
			if err := e.store.Put(ctx, cp); err != nil {
				return StepResult[S]{}, storeError("put", err)
			}

		default:
			return StepResult[S]{}, &NodeError{
				NodeID: name,
				Cause:  fmt.Errorf("invalid outcome kind %d", out.Kind),
			}
		}
	}
}

func (e *Engine[S]) suspend(ctx context.Context, cp store.Checkpoint[S], payload *interrupt.Interrupt) (StepResult[S], error) {
	if payload == nil || !payload.Kind.Valid() {
		return StepResult[S]{}, &NodeError{
			NodeID: cp.Cursor,
			Cause:  errors.New("suspend requires an interrupt with a known kind"),
		}
	}

	cp.Pending = payload.Clone()
	cp.Status = store.StatusSuspended
	cp.UpdatedAt = e.now()
	if err := e.store.Put(ctx, cp); err != nil {
		return StepResult[S]{}, storeError("put", err)
	}

	e.metrics.IncrementInterrupts(string(payload.Kind))
	e.emit(cp.SessionID, cp.Step, cp.Cursor, emit.MsgSuspend, map[string]interface{}{
		"kind": string(payload.Kind),
	})
	return StepResult[S]{Interrupt: payload.Clone(), State: cp.State, Step: cp.Step}, nil
}

func (e *Engine[S]) finish(ctx context.Context, cp store.Checkpoint[S], final S) (StepResult[S], error) {
	last := cp.Cursor
	cp = store.Checkpoint[S]{
		SessionID: cp.SessionID,
		State:     final,
		Cursor:    End,
		Status:    store.StatusTerminal,
		Step:      cp.Step + 1,
		UpdatedAt: e.now(),
	}
	if err := e.store.Put(ctx, cp); err != nil {
		return StepResult[S]{}, storeError("put", err)
	}

	e.metrics.SessionCompleted()
	e.emit(cp.SessionID, cp.Step, last, emit.MsgComplete, nil)
	return StepResult[S]{State: final, Done: true, Step: cp.Step}, nil
}

// acquire takes the per-session lock or fails fast.
func (e *Engine[S]) acquire(sessionID string) (func(), error) {
	release, ok := e.locks.TryLock(sessionID)
	if !ok {
		e.metrics.IncrementBusyRejections()
		return nil, &SessionBusyError{SessionID: sessionID}
	}
	return release, nil
}

func (e *Engine[S]) load(ctx context.Context, sessionID string) (store.Checkpoint[S], error) {
	cp, err := e.store.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Checkpoint[S]{}, &SessionNotFoundError{SessionID: sessionID}
		}
		return store.Checkpoint[S]{}, storeError("get", err)
	}
	return cp, nil
}

// loadValid is load for callers that act on the checkpoint. Stores check
// checkpoints on write only, so a row edited behind their back is caught here.
func (e *Engine[S]) loadValid(ctx context.Context, sessionID string) (store.Checkpoint[S], error) {
	cp, err := e.load(ctx, sessionID)
	if err != nil {
		return store.Checkpoint[S]{}, err
	}
	if err := cp.Validate(); err != nil {
		return store.Checkpoint[S]{}, &EngineError{Message: err.Error(), Code: "INVALID_CHECKPOINT", Cause: err}
	}
	return cp, nil
}

func (e *Engine[S]) emit(sessionID string, step int, nodeID, msg string, meta map[string]interface{}) {
	e.emitter.Emit(emit.Event{
		SessionID: sessionID,
		Step:      step,
		NodeID:    nodeID,
		Msg:       msg,
		Time:      e.now(),
		Meta:      meta,
	})
}

func (e *Engine[S]) emitError(cp store.Checkpoint[S], err error) {
	e.emit(cp.SessionID, cp.Step, cp.Cursor, emit.MsgError, map[string]interface{}{
		"error": err.Error(),
	})
}

func storeError(op string, err error) error {
	return &EngineError{Message: op + " checkpoint: " + err.Error(), Code: "STORE_ERROR", Cause: err}
}
