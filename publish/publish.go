// Package publish posts finished drafts to social platforms.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// Platforms understood by the dispatcher.
const (
	PlatformTwitter  = "twitter"
	PlatformLinkedIn = "linkedin"
)

var (
	// ErrNoCredential is returned when no credential is available for the
	// platform. No remote call is made.
	ErrNoCredential = errors.New("no credential available")

	// ErrUnknownPlatform is returned for a platform with no publisher.
	ErrUnknownPlatform = errors.New("unknown platform")
)

// Result is the outcome of a publish attempt.
type Result struct {
	Success bool
	PostURL string
}

// Publisher posts content to a single platform. credential is the opaque
// per-session credential and may be empty; imageURL may be empty.
type Publisher interface {
	Publish(ctx context.Context, credential, content, imageURL string) (Result, error)
}

// Recorder counts publish attempts. graph.PrometheusMetrics satisfies it.
type Recorder interface {
	RecordPublish(platform string, success bool)
}

// Dispatcher routes a publish to the publisher registered for a platform.
type Dispatcher struct {
	publishers map[string]Publisher
	recorder   Recorder
	logger     *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPublisher registers p for platform, replacing any earlier one.
func WithPublisher(platform string, p Publisher) Option {
	return func(d *Dispatcher) { d.publishers[strings.ToLower(platform)] = p }
}

// WithRecorder counts every attempt on r.
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithLogger sets the dispatcher's logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		publishers: make(map[string]Publisher),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Platforms lists the registered platforms in sorted order.
func (d *Dispatcher) Platforms() []string {
	names := make([]string, 0, len(d.publishers))
	for name := range d.publishers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Publish sends content to platform. A failed attempt returns a Result
// with Success false together with the cause.
func (d *Dispatcher) Publish(ctx context.Context, platform, credential, content, imageURL string) (Result, error) {
	platform = strings.ToLower(platform)
	p, ok := d.publishers[platform]
	if !ok {
		d.record(platform, false)
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}

	res, err := p.Publish(ctx, credential, content, imageURL)
	if err != nil {
		res.Success = false
	}
	d.record(platform, res.Success)

	if err != nil {
		d.logger.WarnContext(ctx, "publish failed", "platform", platform, "error", err)
		return res, fmt.Errorf("publish to %s: %w", platform, err)
	}
	d.logger.InfoContext(ctx, "published", "platform", platform, "success", res.Success, "post_url", res.PostURL)
	return res, nil
}

func (d *Dispatcher) record(platform string, success bool) {
	if d.recorder != nil {
		d.recorder.RecordPublish(platform, success)
	}
}
