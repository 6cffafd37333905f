// Package tracing sets up an OpenTelemetry tracer provider whose spans are
// written to the application log.
package tracing

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// LogExporter is a span exporter that logs each finished span at debug
// level, or warn when the span recorded an error.
type LogExporter struct {
	logger *slog.Logger
}

// NewLogExporter creates a LogExporter.
func NewLogExporter(logger *slog.Logger) *LogExporter {
	return &LogExporter{logger: logger}
}

// ExportSpans implements sdktrace.SpanExporter.
func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		level := slog.LevelDebug
		if span.Status().Code == codes.Error {
			level = slog.LevelWarn
		}

		attrs := []slog.Attr{
			slog.String("trace_id", span.SpanContext().TraceID().String()),
			slog.Duration("duration", span.EndTime().Sub(span.StartTime())),
		}
		for _, kv := range span.Attributes() {
			attrs = append(attrs, attr(kv))
		}
		if desc := span.Status().Description; desc != "" {
			attrs = append(attrs, slog.String("status", desc))
		}
		e.logger.LogAttrs(ctx, level, span.Name(), attrs...)
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (e *LogExporter) Shutdown(context.Context) error { return nil }

func attr(kv attribute.KeyValue) slog.Attr {
	key := string(kv.Key)
	switch kv.Value.Type() {
	case attribute.BOOL:
		return slog.Bool(key, kv.Value.AsBool())
	case attribute.INT64:
		return slog.Int64(key, kv.Value.AsInt64())
	case attribute.FLOAT64:
		return slog.Float64(key, kv.Value.AsFloat64())
	default:
		return slog.String(key, kv.Value.Emit())
	}
}

// NewProvider returns a tracer provider that logs every span through
// logger. Callers must Shutdown it.
func NewProvider(logger *slog.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(NewLogExporter(logger)),
	)
}
