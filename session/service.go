// Package session is the host-facing API over the post-writing workflow.
//
// A Service mints session IDs, validates caller input into a workflow.State
// and drives the engine. Results come back as a StepResult that is either an
// interrupt awaiting human review or the completion of the session.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/postgraph/graph"
	"github.com/dshills/postgraph/graph/interrupt"
	"github.com/dshills/postgraph/graph/store"
	"github.com/dshills/postgraph/workflow"
)

// Result types.
const (
	TypeInterrupt  = "interrupt"
	TypeCompletion = "completion"
)

// StepResult is the outcome of Advance or Resume: exactly one of Interrupt
// and Completion is set, matching Type.
type StepResult struct {
	Type       string               `json:"type"`
	Interrupt  *interrupt.Interrupt `json:"interrupt,omitempty"`
	Completion *workflow.Completion `json:"completion,omitempty"`
}

// Status describes a session's checkpoint for status queries. The
// credential is never included.
type Status struct {
	SessionID  string               `json:"session_id"`
	Status     store.Status         `json:"status"`
	Node       string               `json:"node"`
	Step       int                  `json:"step"`
	Pending    *interrupt.Interrupt `json:"pending,omitempty"`
	Topic      string               `json:"topic,omitempty"`
	URL        string               `json:"url,omitempty"`
	Platform   workflow.Platform    `json:"platform"`
	PostDraft  string               `json:"post_draft"`
	Completion *workflow.Completion `json:"completion,omitempty"`
	UpdatedAt  time.Time            `json:"updated_at"`
}

// Service runs workflow sessions on an engine.
type Service struct {
	engine *graph.Engine[workflow.State]
	newID  func() string
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithIDGenerator replaces the UUIDv4 session ID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewService creates a Service over engine.
func NewService(engine *graph.Engine[workflow.State], opts ...Option) *Service {
	s := &Service{
		engine: engine,
		newID:  uuid.NewString,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession validates in and creates a session positioned at the entry
// node. Nothing runs until Advance.
func (s *Service) CreateSession(ctx context.Context, in workflow.Input) (string, error) {
	state, err := workflow.NewState(in)
	if err != nil {
		return "", err
	}

	id := s.newID()
	if err := s.engine.Start(ctx, id, state); err != nil {
		return "", err
	}
	s.logger.InfoContext(ctx, "session created", "session_id", id, "platform", state.Platform)
	return id, nil
}

// Advance runs a ready session until it suspends or completes.
func (s *Service) Advance(ctx context.Context, id string) (StepResult, error) {
	res, err := s.engine.Advance(ctx, id)
	if err != nil {
		return StepResult{}, err
	}
	return s.result(ctx, id, res), nil
}

// Resume answers the pending interrupt of a suspended session and runs it
// until it suspends again or completes.
func (s *Service) Resume(ctx context.Context, id string, value interrupt.Resume) (StepResult, error) {
	res, err := s.engine.Resume(ctx, id, value)
	if err != nil {
		return StepResult{}, err
	}
	return s.result(ctx, id, res), nil
}

func (s *Service) result(ctx context.Context, id string, res graph.StepResult[workflow.State]) StepResult {
	if res.Suspended() {
		s.logger.DebugContext(ctx, "session suspended", "session_id", id, "kind", res.Interrupt.Kind)
		return StepResult{Type: TypeInterrupt, Interrupt: res.Interrupt}
	}
	c := res.State.Completion()
	s.logger.InfoContext(ctx, "session completed", "session_id", id, "upload_success", c.UploadSuccess)
	return StepResult{Type: TypeCompletion, Completion: &c}
}

// GetStatus reports where a session is.
func (s *Service) GetStatus(ctx context.Context, id string) (Status, error) {
	cp, err := s.engine.Status(ctx, id)
	if err != nil {
		return Status{}, err
	}

	st := Status{
		SessionID: cp.SessionID,
		Status:    cp.Status,
		Node:      cp.Cursor,
		Step:      cp.Step,
		Pending:   cp.Pending,
		Topic:     cp.State.Topic,
		URL:       cp.State.URL,
		Platform:  cp.State.Platform,
		PostDraft: cp.State.PostDraft,
		UpdatedAt: cp.UpdatedAt,
	}
	if cp.Status == store.StatusTerminal {
		c := cp.State.Completion()
		st.Completion = &c
	}
	return st, nil
}

// Sessions lists the stored session IDs.
func (s *Service) Sessions(ctx context.Context) ([]string, error) {
	return s.engine.Sessions(ctx)
}

// DeleteSession abandons or removes a session.
func (s *Service) DeleteSession(ctx context.Context, id string) error {
	if err := s.engine.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "session deleted", "session_id", id)
	return nil
}
