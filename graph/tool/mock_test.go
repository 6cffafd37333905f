package tool

import (
	"context"
	"errors"
	"testing"
)

func TestMockTool(t *testing.T) {
	ctx := context.Background()
	mock := &MockTool{
		ToolName:  "tavily_search",
		Responses: []map[string]interface{}{{"content": "one"}, {"content": "two"}},
	}

	var got []string
	for i := 0; i < 3; i++ {
		out, err := mock.Call(ctx, map[string]interface{}{"query": i})
		if err != nil {
			t.Fatalf("Call: %v", err)
		}
		got = append(got, Content(out))
	}
	if got[0] != "one" || got[1] != "two" || got[2] != "two" {
		t.Errorf("contents = %v", got)
	}
	if mock.CallCount() != 3 || mock.Inputs()[2]["query"] != 2 {
		t.Errorf("inputs = %v", mock.Inputs())
	}
	if mock.Spec().Name != "tavily_search" {
		t.Errorf("spec name = %q", mock.Spec().Name)
	}

	mock.Reset()
	if mock.CallCount() != 0 {
		t.Error("Reset kept calls")
	}

	boom := errors.New("boom")
	mock.Err = boom
	if _, err := mock.Call(ctx, nil); !errors.Is(err, boom) {
		t.Errorf("error = %v", err)
	}
}

func TestContent(t *testing.T) {
	if Content(map[string]interface{}{"content": 3}) != "" || Content(nil) != "" {
		t.Error("Content returned text for non-string entry")
	}
}
