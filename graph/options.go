package graph

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/dshills/postgraph/graph/emit"
)

// Option is a functional option for configuring an Engine.
//
// Example:
//
//	engine, err := graph.New(g, st,
//	    graph.WithMaxSteps(50),
//	    graph.WithEmitter(emit.NewLogEmitter(logger)),
//	    graph.WithMetrics(graph.NewPrometheusMetrics(registry)),
//	)
type Option func(*engineConfig) error

type engineConfig struct {
	maxSteps int
	emitter  emit.Emitter
	metrics  *PrometheusMetrics
	logger   *slog.Logger
	now      func() time.Time
}

func defaultConfig() engineConfig {
	return engineConfig{
		emitter: emit.NewNullEmitter(),
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
}

// WithMaxSteps bounds the number of nodes a single Advance or Resume call
// may run. Default: 0 (no limit).
//
// The reference workflow loops through human review, so every call ends at a
// suspension after a handful of steps. Set a limit to catch graphs whose
// cycles never reach a Suspend. When it is exceeded the call returns an
// *EngineError with code MAX_STEPS_EXCEEDED and the checkpoint keeps the last
// completed step.
func WithMaxSteps(n int) Option {
	return func(cfg *engineConfig) error {
		if n < 0 {
			return &EngineError{
				Message: fmt.Sprintf("max steps must be >= 0, got %d", n),
				Code:    "INVALID_OPTION",
			}
		}
		cfg.maxSteps = n
		return nil
	}
}

// WithEmitter sets the observability event receiver. Default: NullEmitter.
func WithEmitter(e emit.Emitter) Option {
	return func(cfg *engineConfig) error {
		if e != nil {
			cfg.emitter = e
		}
		return nil
	}
}

// WithMetrics enables Prometheus metrics collection. Default: disabled.
func WithMetrics(m *PrometheusMetrics) Option {
	return func(cfg *engineConfig) error {
		cfg.metrics = m
		return nil
	}
}

// WithLogger sets the logger used for engine diagnostics. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(cfg *engineConfig) error {
		if l != nil {
			cfg.logger = l
		}
		return nil
	}
}

// withClock overrides the checkpoint timestamp source in tests.
func withClock(now func() time.Time) Option {
	return func(cfg *engineConfig) error {
		cfg.now = now
		return nil
	}
}
