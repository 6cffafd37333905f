package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/dshills/postgraph/graph/emit"
	"github.com/dshills/postgraph/graph/interrupt"
	"github.com/dshills/postgraph/graph/store"
)

// review suspends with a post interrupt, then continues to next on any
// resume value. Feedback sends it back to "a".
func review(next string) Node[testState] {
	return NodeFunc[testState](func(_ context.Context, s testState, r *interrupt.Resume) (Outcome[testState], error) {
		if r == nil {
			draft := fmt.Sprintf("draft %d", s.Count)
			return Suspend[testState](interrupt.New(interrupt.KindPost, &draft)), nil
		}
		choice, err := r.ForPost()
		if err != nil {
			return Outcome[testState]{}, err
		}
		s.Trail = append(s.Trail, "review:"+choice.Action.String())
		if choice.Action == interrupt.ActionFeedback {
			return Continue("a", s), nil
		}
		return Continue(next, s), nil
	})
}

// reviewGraph is a -> review -> publish -> End, with review able to loop
// back to a.
func reviewGraph(t *testing.T) *Graph[testState] {
	t.Helper()
	g, err := NewBuilder[testState]().
		Register("a", visit("a")).
		Register("review", review("publish"), Continues("a", "publish")).
		Register("publish", visit("publish")).
		AddEdge("a", "review").
		AddEdge("publish", End).
		SetEntry("a").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return g
}

func newEngine(t *testing.T, g *Graph[testState], opts ...Option) (*Engine[testState], *store.MemStore[testState]) {
	t.Helper()
	st := store.NewMemStore[testState]()
	e, err := New(g, st, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e, st
}

func mustStart(t *testing.T, e *Engine[testState], id string, s testState) {
	t.Helper()
	if err := e.Start(context.Background(), id, s); err != nil {
		t.Fatalf("Start(%s): %v", id, err)
	}
}

func TestNew_Validation(t *testing.T) {
	g := reviewGraph(t)
	st := store.NewMemStore[testState]()

	tests := []struct {
		name string
		g    *Graph[testState]
		st   store.Store[testState]
		opts []Option
		code string
	}{
		{"nil graph", nil, st, nil, "MISSING_GRAPH"},
		{"nil store", g, nil, nil, "MISSING_STORE"},
		{"negative max steps", g, st, []Option{WithMaxSteps(-1)}, "INVALID_OPTION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.g, tt.st, tt.opts...)
			var ee *EngineError
			if !errors.As(err, &ee) || ee.Code != tt.code {
				t.Fatalf("New error = %v, want EngineError %s", err, tt.code)
			}
		})
	}
}

func TestEngine_StartCreatesReadyCheckpoint(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, reviewGraph(t))
	mustStart(t, e, "s1", testState{Count: 7})

	cp, err := e.Status(ctx, "s1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if cp.Status != store.StatusReady || cp.Cursor != "a" || cp.Step != 0 || cp.Pending != nil {
		t.Errorf("checkpoint = %+v, want ready at a, step 0", cp)
	}

	if err := e.Start(ctx, "s1", testState{}); !errors.Is(err, ErrSessionExists) {
		t.Errorf("duplicate Start error = %v, want ErrSessionExists", err)
	}
	if err := e.Start(ctx, "", testState{}); err == nil {
		t.Error("Start with empty id succeeded")
	}
}

func TestEngine_AdvanceSuspendResumeComplete(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, reviewGraph(t))
	mustStart(t, e, "s1", testState{})

	res, err := e.Advance(ctx, "s1")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if !res.Suspended() || res.Done {
		t.Fatalf("Advance result = %+v, want suspension", res)
	}
	if res.Interrupt.Kind != interrupt.KindPost || res.Interrupt.Text() != "draft 1" {
		t.Errorf("interrupt = %+v, want post 'draft 1'", res.Interrupt)
	}

	cp, _ := e.Status(ctx, "s1")
	if cp.Status != store.StatusSuspended || cp.Cursor != "review" || cp.Step != 1 {
		t.Errorf("suspended checkpoint = %+v, want suspended at review, step 1", cp)
	}
	if cp.Pending == nil || cp.Pending.Text() != "draft 1" {
		t.Errorf("pending = %+v, want draft 1", cp.Pending)
	}

	// Advance is not allowed while suspended.
	_, err = e.Advance(ctx, "s1")
	var ise *InvalidSessionStateError
	if !errors.As(err, &ise) || ise.Status != store.StatusSuspended || ise.Op != "advance" {
		t.Fatalf("Advance on suspended = %v, want InvalidSessionStateError", err)
	}

	res, err = e.Resume(ctx, "s1", interrupt.Satisfied())
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if !res.Done || res.Suspended() {
		t.Fatalf("Resume result = %+v, want done", res)
	}
	if diff := cmp.Diff([]string{"a", "review:satisfied", "publish"}, res.State.Trail); diff != "" {
		t.Errorf("trail mismatch (-want +got):\n%s", diff)
	}

	cp, _ = e.Status(ctx, "s1")
	if cp.Status != store.StatusTerminal || cp.Cursor != End || cp.Step != 3 {
		t.Errorf("terminal checkpoint = %+v, want terminal at End, step 3", cp)
	}

	for _, call := range []func() error{
		func() error { _, err := e.Advance(ctx, "s1"); return err },
		func() error { _, err := e.Resume(ctx, "s1", interrupt.Satisfied()); return err },
	} {
		if err := call(); !errors.As(err, &ise) || ise.Status != store.StatusTerminal {
			t.Errorf("call on terminal session = %v, want InvalidSessionStateError(terminal)", err)
		}
	}
}

func TestEngine_ResumeOnReadySession(t *testing.T) {
	e, _ := newEngine(t, reviewGraph(t))
	mustStart(t, e, "s1", testState{})

	_, err := e.Resume(context.Background(), "s1", interrupt.Satisfied())
	var ise *InvalidSessionStateError
	if !errors.As(err, &ise) || ise.Status != store.StatusReady || ise.Op != "resume" {
		t.Fatalf("Resume on ready = %v, want InvalidSessionStateError(ready)", err)
	}
}

func TestEngine_FeedbackLoopResuspends(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, reviewGraph(t))
	mustStart(t, e, "s1", testState{})

	if _, err := e.Advance(ctx, "s1"); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	res, err := e.Resume(ctx, "s1", interrupt.Feedback("shorter"))
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if !res.Suspended() || res.Interrupt.Text() != "draft 2" {
		t.Fatalf("Resume result = %+v, want re-suspension with draft 2", res)
	}
	if diff := cmp.Diff([]string{"a", "review:feedback", "a"}, res.State.Trail); diff != "" {
		t.Errorf("trail mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_ResumeValueOnlyReachesFirstNode(t *testing.T) {
	var seen []bool
	record := func(name string, out func(testState) Outcome[testState]) Node[testState] {
		return NodeFunc[testState](func(_ context.Context, s testState, r *interrupt.Resume) (Outcome[testState], error) {
			if name == "gate" && r == nil {
				return Suspend[testState](interrupt.New(interrupt.KindImage, nil)), nil
			}
			seen = append(seen, r != nil)
			return out(s), nil
		})
	}
	g, err := NewBuilder[testState]().
		Register("gate", record("gate", func(s testState) Outcome[testState] { return Continue("next", s) }), Continues("next")).
		Register("next", record("next", func(s testState) Outcome[testState] { return Terminate(s) })).
		SetEntry("gate").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ctx := context.Background()
	e, _ := newEngine(t, g)
	mustStart(t, e, "s1", testState{})
	if _, err := e.Advance(ctx, "s1"); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if _, err := e.Resume(ctx, "s1", interrupt.ReplaceImage("https://img")); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	if diff := cmp.Diff([]bool{true, false}, seen); diff != "" {
		t.Errorf("resume visibility mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_NodeErrorLeavesCheckpoint(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("generation failed")
	fail := true

	g, err := NewBuilder[testState]().
		Register("a", visit("a")).
		Register("b", NodeFunc[testState](func(_ context.Context, s testState, _ *interrupt.Resume) (Outcome[testState], error) {
			s.Trail = append(s.Trail, "b-partial")
			if fail {
				return Outcome[testState]{}, &CollaboratorError{Collaborator: "mock", Op: "chat", Err: boom}
			}
			return Terminate(s), nil
		})).
		AddEdge("a", "b").
		SetEntry("a").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	e, _ := newEngine(t, g)
	mustStart(t, e, "s1", testState{})

	_, err = e.Advance(ctx, "s1")
	var ne *NodeError
	if !errors.As(err, &ne) || ne.NodeID != "b" {
		t.Fatalf("Advance error = %v, want NodeError from b", err)
	}
	var ce *CollaboratorError
	if !errors.As(err, &ce) || !errors.Is(err, boom) {
		t.Errorf("error chain lost the collaborator cause: %v", err)
	}

	cp, _ := e.Status(ctx, "s1")
	if cp.Status != store.StatusReady || cp.Cursor != "b" || cp.Step != 1 {
		t.Errorf("checkpoint = %+v, want ready at b, step 1", cp)
	}
	if diff := cmp.Diff([]string{"a"}, cp.State.Trail); diff != "" {
		t.Errorf("state leaked partial node changes (-want +got):\n%s", diff)
	}

	fail = false
	res, err := e.Advance(ctx, "s1")
	if err != nil || !res.Done {
		t.Fatalf("retry Advance = %+v, %v; want done", res, err)
	}
	if diff := cmp.Diff([]string{"a", "b-partial"}, res.State.Trail); diff != "" {
		t.Errorf("trail mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_RuntimeInconsistency(t *testing.T) {
	tests := []struct {
		name    string
		builder func() *Builder[testState]
		want    string
	}{
		{
			name: "route without edge",
			builder: func() *Builder[testState] {
				return NewBuilder[testState]().Register("a", visit("a")).SetEntry("a")
			},
			want: `node "a" returned Route but has no outgoing edge`,
		},
		{
			name: "router returns undeclared target",
			builder: func() *Builder[testState] {
				return NewBuilder[testState]().
					Register("a", visit("a")).
					Register("b", visit("b")).
					AddConditionalEdges("a", func(testState) string { return "c" }, "b").
					SetEntry("a")
			},
			want: `router on "a" returned undeclared target "c"`,
		},
		{
			name: "continue to undeclared target",
			builder: func() *Builder[testState] {
				jump := NodeFunc[testState](func(_ context.Context, s testState, _ *interrupt.Resume) (Outcome[testState], error) {
					return Continue("b", s), nil
				})
				return NewBuilder[testState]().
					Register("a", jump).
					Register("b", visit("b")).
					SetEntry("a")
			},
			want: `node "a" continued to undeclared target "b"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := tt.builder().Build()
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			e, _ := newEngine(t, g)
			mustStart(t, e, "s1", testState{})

			_, err = e.Advance(context.Background(), "s1")
			var gde *GraphDefinitionError
			if !errors.As(err, &gde) {
				t.Fatalf("Advance error = %v, want GraphDefinitionError", err)
			}
			if diff := cmp.Diff([]string{tt.want}, gde.Problems); diff != "" {
				t.Errorf("Problems mismatch (-want +got):\n%s", diff)
			}

			cp, _ := e.Status(context.Background(), "s1")
			if cp.Step != 0 || cp.Cursor != "a" {
				t.Errorf("checkpoint moved to %+v after fatal error", cp)
			}
		})
	}
}

func TestEngine_MaxSteps(t *testing.T) {
	g, err := NewBuilder[testState]().
		Register("loop", visit("loop")).
		AddEdge("loop", "loop").
		SetEntry("loop").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ctx := context.Background()
	e, _ := newEngine(t, g, WithMaxSteps(3))
	mustStart(t, e, "s1", testState{})

	_, err = e.Advance(ctx, "s1")
	var ee *EngineError
	if !errors.As(err, &ee) || ee.Code != "MAX_STEPS_EXCEEDED" {
		t.Fatalf("Advance error = %v, want MAX_STEPS_EXCEEDED", err)
	}
	if !errors.Is(err, ErrMaxStepsExceeded) {
		t.Error("error does not wrap ErrMaxStepsExceeded")
	}

	cp, _ := e.Status(ctx, "s1")
	if cp.Step != 3 || cp.Status != store.StatusReady || cp.State.Count != 3 {
		t.Errorf("checkpoint = %+v, want ready after 3 steps", cp)
	}

	// The limit is per call: the session can be advanced again.
	_, _ = e.Advance(ctx, "s1")
	cp, _ = e.Status(ctx, "s1")
	if cp.Step != 6 {
		t.Errorf("step after second call = %d, want 6", cp.Step)
	}
}

func TestEngine_ContextCanceled(t *testing.T) {
	e, _ := newEngine(t, reviewGraph(t))
	mustStart(t, e, "s1", testState{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Advance(ctx, "s1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("Advance error = %v, want context.Canceled", err)
	}
}

func TestEngine_ConcurrentResumeIsBusy(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	slow := NodeFunc[testState](func(_ context.Context, s testState, r *interrupt.Resume) (Outcome[testState], error) {
		if r == nil {
			return Suspend[testState](interrupt.New(interrupt.KindPost, nil)), nil
		}
		close(entered)
		<-release
		return Terminate(s), nil
	})
	g, err := NewBuilder[testState]().Register("slow", slow).SetEntry("slow").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ctx := context.Background()
	e, _ := newEngine(t, g)
	mustStart(t, e, "s1", testState{})
	if _, err := e.Advance(ctx, "s1"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = e.Resume(ctx, "s1", interrupt.Satisfied())
	}()

	<-entered
	_, err = e.Resume(ctx, "s1", interrupt.Satisfied())
	var busy *SessionBusyError
	if !errors.As(err, &busy) || busy.SessionID != "s1" {
		t.Errorf("second Resume error = %v, want SessionBusyError", err)
	}
	if err := e.Delete(ctx, "s1"); !errors.As(err, &busy) {
		t.Errorf("Delete during Resume = %v, want SessionBusyError", err)
	}

	close(release)
	wg.Wait()
	if firstErr != nil {
		t.Fatalf("first Resume: %v", firstErr)
	}
}

func TestEngine_SimultaneousResumesOneWins(t *testing.T) {
	gate := make(chan struct{})
	slow := NodeFunc[testState](func(_ context.Context, s testState, r *interrupt.Resume) (Outcome[testState], error) {
		if r == nil {
			return Suspend[testState](interrupt.New(interrupt.KindPost, nil)), nil
		}
		<-gate
		return Terminate(s), nil
	})
	g, err := NewBuilder[testState]().Register("slow", slow).SetEntry("slow").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	ctx := context.Background()
	e, _ := newEngine(t, g)
	mustStart(t, e, "s1", testState{})
	if _, err := e.Advance(ctx, "s1"); err != nil {
		t.Fatalf("Advance: %v", err)
	}

	errs := make(chan error, 2)
	start := make(chan struct{})
	for i := 0; i < 2; i++ {
		go func() {
			<-start
			_, err := e.Resume(ctx, "s1", interrupt.Satisfied())
			errs <- err
		}()
	}
	close(start)

	// The loser fails fast while the winner is parked on the gate.
	first := <-errs
	close(gate)
	second := <-errs

	var busy *SessionBusyError
	switch {
	case first == nil || !errors.As(first, &busy):
		t.Fatalf("first finished call = %v, want SessionBusyError", first)
	case second != nil:
		t.Fatalf("winning call = %v, want success", second)
	}
}

func TestEngine_IndependentSessions(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, reviewGraph(t))

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("s%02d", i)
		mustStart(t, e, id, testState{Count: i * 10})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Advance(ctx, id); err != nil {
				errs <- err
				return
			}
			if _, err := e.Resume(ctx, id, interrupt.Satisfied()); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("session call failed: %v", err)
	}

	for i := 0; i < n; i++ {
		cp, err := e.Status(ctx, fmt.Sprintf("s%02d", i))
		if err != nil {
			t.Fatalf("Status: %v", err)
		}
		if cp.Status != store.StatusTerminal || cp.State.Count != i*10+2 {
			t.Errorf("session %d = %+v, want terminal with count %d", i, cp, i*10+2)
		}
	}

	ids, err := e.Sessions(ctx)
	if err != nil || len(ids) != n {
		t.Errorf("Sessions = %d ids, %v; want %d", len(ids), err, n)
	}
}

func TestEngine_Delete(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, reviewGraph(t))
	mustStart(t, e, "s1", testState{})

	if err := e.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	for name, err := range map[string]error{
		"repeat delete": e.Delete(ctx, "s1"),
		"status":        func() error { _, err := e.Status(ctx, "s1"); return err }(),
		"advance":       func() error { _, err := e.Advance(ctx, "s1"); return err }(),
	} {
		var nf *SessionNotFoundError
		if !errors.As(err, &nf) || !errors.Is(err, store.ErrNotFound) {
			t.Errorf("%s after delete = %v, want SessionNotFoundError", name, err)
		}
	}
}

// tamperedStore serves a rewritten checkpoint from Get, the way a row edited
// directly in the database would come back.
type tamperedStore struct {
	*store.MemStore[testState]
	tamper func(*store.Checkpoint[testState])
}

func (s tamperedStore) Get(ctx context.Context, id string) (store.Checkpoint[testState], error) {
	cp, err := s.MemStore.Get(ctx, id)
	if err == nil {
		s.tamper(&cp)
	}
	return cp, err
}

func TestEngine_RejectsInvalidCheckpoint(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemStore[testState]()
	st := tamperedStore{MemStore: mem, tamper: func(cp *store.Checkpoint[testState]) {
		cp.Status = store.StatusSuspended
		cp.Pending = nil
	}}
	e, err := New(reviewGraph(t), st)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	mustStart(t, e, "s1", testState{})

	for name, call := range map[string]func() error{
		"resume":  func() error { _, err := e.Resume(ctx, "s1", interrupt.Satisfied()); return err },
		"advance": func() error { _, err := e.Advance(ctx, "s1"); return err },
	} {
		var ee *EngineError
		if err := call(); !errors.As(err, &ee) || ee.Code != "INVALID_CHECKPOINT" {
			t.Errorf("%s = %v, want INVALID_CHECKPOINT", name, err)
		}
	}

	// The broken checkpoint can still be inspected and removed.
	if _, err := e.Status(ctx, "s1"); err != nil {
		t.Errorf("Status: %v", err)
	}
	if err := e.Delete(ctx, "s1"); err != nil {
		t.Errorf("Delete: %v", err)
	}
}

func TestEngine_CheckpointRoundTrip(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e, _ := newEngine(t, reviewGraph(t), withClock(func() time.Time { return fixed }))
	mustStart(t, e, "s1", testState{Flag: true})

	res, err := e.Advance(ctx, "s1")
	if err != nil {
		t.Fatalf("Advance: %v", err)
	}

	cp, _ := e.Status(ctx, "s1")
	data, err := json.Marshal(cp)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var reloaded store.Checkpoint[testState]
	if err := json.Unmarshal(data, &reloaded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if diff := cmp.Diff(cp, reloaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(res.State, reloaded.State, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("reloaded state differs from in-memory result (-want +got):\n%s", diff)
	}
	if !reloaded.UpdatedAt.Equal(fixed) {
		t.Errorf("UpdatedAt = %v, want %v", reloaded.UpdatedAt, fixed)
	}
}

func TestEngine_StatusIsACopy(t *testing.T) {
	ctx := context.Background()
	e, _ := newEngine(t, reviewGraph(t))
	mustStart(t, e, "s1", testState{Trail: []string{"seed"}})

	cp, _ := e.Status(ctx, "s1")
	cp.State.Trail[0] = "mutated"

	again, _ := e.Status(ctx, "s1")
	if again.State.Trail[0] != "seed" {
		t.Errorf("stored state changed through Status copy: %v", again.State.Trail)
	}
}

func TestEngine_SuspendWithoutPayload(t *testing.T) {
	bad := NodeFunc[testState](func(context.Context, testState, *interrupt.Resume) (Outcome[testState], error) {
		return Suspend[testState](nil), nil
	})
	g, err := NewBuilder[testState]().Register("bad", bad).SetEntry("bad").Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	e, _ := newEngine(t, g)
	mustStart(t, e, "s1", testState{})

	_, err = e.Advance(context.Background(), "s1")
	var ne *NodeError
	if !errors.As(err, &ne) {
		t.Fatalf("Advance error = %v, want NodeError", err)
	}
}

func TestEngine_Events(t *testing.T) {
	ctx := context.Background()
	history := emit.NewBufferedEmitter(0)
	e, _ := newEngine(t, reviewGraph(t), WithEmitter(history))
	mustStart(t, e, "s1", testState{})

	if _, err := e.Advance(ctx, "s1"); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if _, err := e.Resume(ctx, "s1", interrupt.Satisfied()); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	var msgs []string
	for _, ev := range history.GetHistory("s1") {
		msgs = append(msgs, ev.Msg+"@"+ev.NodeID)
	}
	want := []string{
		"session_start@a",
		"node_start@a", "node_end@a",
		"node_start@review", "node_end@review",
		"suspend@review",
		"resume@review",
		"node_start@review", "node_end@review",
		"node_start@publish", "node_end@publish",
		"complete@publish",
	}
	if diff := cmp.Diff(want, msgs); diff != "" {
		t.Errorf("event sequence mismatch (-want +got):\n%s", diff)
	}

	suspends := history.GetHistoryWithFilter("s1", emit.HistoryFilter{Msg: emit.MsgSuspend})
	if len(suspends) != 1 || suspends[0].Meta["kind"] != "post" {
		t.Errorf("suspend events = %+v", suspends)
	}
}
