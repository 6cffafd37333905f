package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dshills/postgraph/graph"
	"github.com/dshills/postgraph/graph/interrupt"
	"github.com/dshills/postgraph/graph/model"
	"github.com/dshills/postgraph/graph/store"
	"github.com/dshills/postgraph/graph/tool"
	"github.com/dshills/postgraph/publish"
	"github.com/dshills/postgraph/session"
	"github.com/dshills/postgraph/workflow"
)

type stubImages struct{}

func (stubImages) SearchImage(context.Context, string) (string, error) {
	return "https://img.example/cat.png", nil
}

type stubPlatform struct{ content, image string }

func (s *stubPlatform) Publish(_ context.Context, _, content, image string) (publish.Result, error) {
	s.content, s.image = content, image
	return publish.Result{Success: true, PostURL: "https://twitter.com/i/web/status/9"}, nil
}

func newTestSessions(t *testing.T, platform *stubPlatform) (*session.Service, *store.MemStore[workflow.State]) {
	t.Helper()
	g, err := workflow.BuildGraph(workflow.Deps{
		Model:     &model.MockChatModel{Responses: []model.ChatOut{{Text: "first draft"}, {Text: "first draft"}, {Text: "second draft"}}},
		Tools:     []tool.Tool{&tool.MockTool{ToolName: tool.TavilySearchName}},
		Images:    stubImages{},
		Publisher: publish.NewDispatcher(publish.WithPublisher(publish.PlatformTwitter, platform)),
	})
	if err != nil {
		t.Fatalf("BuildGraph: %v", err)
	}
	st := store.NewMemStore[workflow.State]()
	engine, err := graph.New(g, st)
	if err != nil {
		t.Fatalf("graph.New: %v", err)
	}
	return session.NewService(engine), st
}

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		line    string
		want    interrupt.Choice
		kind    interrupt.Kind
		wantErr bool
	}{
		{"ok", interrupt.Choice{Action: interrupt.ActionApprove}, interrupt.KindPost, false},
		{"  YES ", interrupt.Choice{Action: interrupt.ActionApprove}, interrupt.KindImage, false},
		{"edit My own post", interrupt.Choice{Action: interrupt.ActionEdit, Value: "My own post"}, interrupt.KindPost, false},
		{"feedback  more emoji ", interrupt.Choice{Action: interrupt.ActionFeedback, Value: "more emoji"}, interrupt.KindPost, false},
		{"image https://x.png", interrupt.Choice{Action: interrupt.ActionReplaceImage, Value: "https://x.png"}, interrupt.KindImage, false},
		{"edit", interrupt.Choice{}, interrupt.KindPost, true},
		{"shrug", interrupt.Choice{}, interrupt.KindPost, true},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			r, err := parseAnswer(tt.line)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			got, err := r.For(tt.kind)
			if err != nil {
				t.Fatalf("For(%s): %v", tt.kind, err)
			}
			if got != tt.want {
				t.Errorf("choice = %+v, want %+v", got, tt.want)
			}
		})
	}

	if _, err := parseAnswer("quit"); !errors.Is(err, errQuit) {
		t.Errorf("quit err = %v", err)
	}
}

func TestRunInteractive(t *testing.T) {
	platform := &stubPlatform{}
	svc, _ := newTestSessions(t, platform)

	input := strings.Join([]string{
		"image https://wrong.png",
		"feedback shorter please",
		"ok",
		"ok",
	}, "\n")
	var out bytes.Buffer
	err := runInteractive(context.Background(), svc,
		workflow.Input{Topic: "cats", Platform: "twitter", ImageWanted: true},
		strings.NewReader(input), &out)
	if err != nil {
		t.Fatalf("runInteractive: %v\n%s", err, out.String())
	}

	text := out.String()
	for _, want := range []string{
		"--- Draft ---\nfirst draft",
		"--- Draft ---\nsecond draft",
		"Image: https://img.example/cat.png",
		"https://twitter.com/i/web/status/9",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("output missing %q:\n%s", want, text)
		}
	}
	if platform.content != "second draft" || platform.image != "https://img.example/cat.png" {
		t.Errorf("published %q with %q", platform.content, platform.image)
	}
}

func TestRunInteractive_QuitDeletesSession(t *testing.T) {
	svc, st := newTestSessions(t, &stubPlatform{})

	var out bytes.Buffer
	err := runInteractive(context.Background(), svc,
		workflow.Input{Topic: "cats", Platform: "twitter"},
		strings.NewReader("quit\n"), &out)
	if err != nil {
		t.Fatalf("runInteractive: %v", err)
	}
	if st.Len() != 0 {
		t.Errorf("%d sessions left after quit", st.Len())
	}
}
