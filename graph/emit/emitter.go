package emit

// Emitter receives and processes observability events from session execution.
//
// Emitters enable pluggable observability backends:
//   - Logging: slog (LogEmitter)
//   - Distributed tracing: OpenTelemetry (OTelEmitter)
//   - History: in-memory per-session buffer (BufferedEmitter)
//
// Implementations should be:
//   - Non-blocking: Avoid slowing down workflow execution
//   - Thread-safe: Sessions run concurrently and share one emitter
//   - Resilient: Handle failures internally, never panic
type Emitter interface {
	// Emit sends an observability event to the configured backend.
	Emit(event Event)
}

// Fanout forwards every event to each wrapped emitter in order.
type Fanout []Emitter

// NewFanout combines emitters, skipping nil entries.
func NewFanout(emitters ...Emitter) Fanout {
	out := make(Fanout, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

// Emit implements Emitter.
func (f Fanout) Emit(event Event) {
	for _, e := range f {
		e.Emit(event)
	}
}
