package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestLogExporter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(NewLogExporter(logger)))
	defer tp.Shutdown(context.Background())

	tracer := tp.Tracer("test")
	_, span := tracer.Start(context.Background(), "postgraph.node_end")
	span.SetAttributes(
		attribute.String("node_id", "draft-generation"),
		attribute.Int("step", 3),
		attribute.Bool("ok", true),
	)
	span.End()

	_, failed := tracer.Start(context.Background(), "postgraph.error")
	failed.SetStatus(codes.Error, "model unavailable")
	failed.End()

	out := buf.String()
	for _, want := range []string{
		"level=DEBUG msg=postgraph.node_end",
		"node_id=draft-generation",
		"step=3",
		"ok=true",
		"level=WARN msg=postgraph.error",
		`status="model unavailable"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
