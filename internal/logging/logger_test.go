package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewWriter_RenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, FormatJSON, slog.LevelInfo)
	log.Info("upload failed", "error", errors.New("no credential"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	if rec["err"] != "no credential" {
		t.Errorf("err = %v", rec["err"])
	}
	if _, ok := rec["error"]; ok {
		t.Error("error key not renamed")
	}
}

func TestNewWriter_TextAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "TEXT", slog.LevelWarn)
	log.Info("hidden")
	log.Warn("shown", "session_id", "s1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("info logged at warn level: %q", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "session_id=s1") {
		t.Errorf("output = %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{" warn ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewNop(t *testing.T) {
	if NewNop().Enabled(context.Background(), slog.LevelError) {
		t.Error("nop logger enabled")
	}
}
