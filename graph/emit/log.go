package emit

import (
	"context"
	"log/slog"
)

// LogEmitter implements Emitter by writing each event as a structured slog
// record.
//
// The record message is event.Msg; session_id, step and node_id are added as
// attributes and event.Meta is attached as a "meta" group. Errors are logged
// at Error level, everything else at Debug (node events) or Info.
//
// Usage:
//
//	logger := logging.New(slog.LevelInfo, "json")
//	emitter := emit.NewLogEmitter(logger)
type LogEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter creates a LogEmitter. A nil logger falls back to slog.Default().
func NewLogEmitter(logger *slog.Logger) *LogEmitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogEmitter{logger: logger}
}

// Emit writes an event to the logger.
//
// Example text output:
//
//	level=INFO msg=suspend session_id=6f1c… step=3 node_id=post-feedback meta.kind=post
func (l *LogEmitter) Emit(event Event) {
	attrs := []slog.Attr{
		slog.String("session_id", event.SessionID),
		slog.Int("step", event.Step),
	}
	if event.NodeID != "" {
		attrs = append(attrs, slog.String("node_id", event.NodeID))
	}
	if len(event.Meta) > 0 {
		meta := make([]any, 0, len(event.Meta)*2)
		for k, v := range event.Meta {
			meta = append(meta, k, v)
		}
		attrs = append(attrs, slog.Group("meta", meta...))
	}

	l.logger.LogAttrs(context.Background(), levelFor(event.Msg), event.Msg, attrs...)
}

func levelFor(msg string) slog.Level {
	switch msg {
	case MsgError:
		return slog.LevelError
	case MsgNodeStart, MsgNodeEnd:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
