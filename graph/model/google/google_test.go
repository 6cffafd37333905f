package google

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"

	"github.com/dshills/postgraph/graph/model"
)

type mockClient struct {
	response *genai.GenerateContentResponse
	err      error
	requests []request
}

func (m *mockClient) generateContent(_ context.Context, req request) (*genai.GenerateContentResponse, error) {
	m.requests = append(m.requests, req)
	return m.response, m.err
}

func reply(parts ...genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content:      &genai.Content{Role: "model", Parts: parts},
		FinishReason: genai.FinishReasonStop,
	}}}
}

func TestChatModel_Text(t *testing.T) {
	mock := &mockClient{response: reply(genai.Text("Line one"), genai.Text("Line two"))}
	m := &ChatModel{modelName: "gemini-test", client: mock}

	out, err := m.Chat(context.Background(), []model.Message{
		{Role: model.RoleSystem, Content: "You write posts."},
		{Role: model.RoleUser, Content: "Input: Go"},
	}, nil)
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if out.Text != "Line one\nLine two" {
		t.Errorf("Text = %q", out.Text)
	}

	req := mock.requests[0]
	if req.modelName != "gemini-test" || req.system != "You write posts." {
		t.Errorf("request = %+v", req)
	}
	if len(req.history) != 0 || len(req.parts) != 1 {
		t.Errorf("history %d, parts %d; want 0, 1", len(req.history), len(req.parts))
	}
	if req.tools != nil {
		t.Error("tools sent without any declared")
	}
}

func TestChatModel_FunctionCalls(t *testing.T) {
	mock := &mockClient{response: reply(
		genai.FunctionCall{Name: "tavily_search", Args: map[string]any{"query": "a"}},
		genai.FunctionCall{Name: "tavily_search", Args: map[string]any{"query": "b"}},
	)}
	m := &ChatModel{modelName: "gemini-test", client: mock}

	out, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "Input: AI"}},
		[]model.ToolSpec{{
			Name: "tavily_search",
			Schema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{"query": map[string]interface{}{"type": "string", "description": "query or URL"}},
				"required":   []string{"query"},
			},
		}})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(out.ToolCalls) != 2 {
		t.Fatalf("tool calls = %+v", out.ToolCalls)
	}
	if out.ToolCalls[0].ID != "call_1" || out.ToolCalls[1].ID != "call_2" {
		t.Errorf("ids = %q, %q", out.ToolCalls[0].ID, out.ToolCalls[1].ID)
	}
	if out.ToolCalls[1].Input["query"] != "b" {
		t.Errorf("second input = %v", out.ToolCalls[1].Input)
	}

	decl := mock.requests[0].tools[0].FunctionDeclarations[0]
	if decl.Name != "tavily_search" || decl.Parameters.Properties["query"].Type != genai.TypeString {
		t.Errorf("declaration = %+v", decl)
	}
	if len(decl.Parameters.Required) != 1 {
		t.Errorf("required = %v", decl.Parameters.Required)
	}
}

func TestConvertMessages_MergesTurns(t *testing.T) {
	got := convertMessages([]model.Message{
		{Role: model.RoleUser, Content: "Input: AI"},
		{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{{ID: "call_1", Name: "tavily_search"}}},
		{Role: model.RoleTool, ToolCallID: "call_1", Name: "tavily_search", Content: "found"},
		{Role: model.RoleUser, Content: "Write it"},
	})

	if len(got) != 3 {
		t.Fatalf("converted %d contents, want 3", len(got))
	}
	if got[1].Role != "model" || len(got[1].Parts) != 1 {
		t.Errorf("model turn = %+v", got[1])
	}
	if got[2].Role != "user" || len(got[2].Parts) != 2 {
		t.Fatalf("user turn = %+v", got[2])
	}
	resp, ok := got[2].Parts[0].(genai.FunctionResponse)
	if !ok || resp.Name != "tavily_search" || resp.Response["content"] != "found" {
		t.Errorf("function response = %+v", got[2].Parts[0])
	}
}

func TestChatModel_SafetyBlock(t *testing.T) {
	mock := &mockClient{response: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		FinishReason: genai.FinishReasonSafety,
		SafetyRatings: []*genai.SafetyRating{
			{Category: genai.HarmCategoryHarassment, Blocked: true},
		},
	}}}}
	m := &ChatModel{modelName: "gemini-test", client: mock}

	_, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "x"}}, nil)

	var safety *SafetyFilterError
	if !errors.As(err, &safety) {
		t.Fatalf("error = %v, want *SafetyFilterError", err)
	}
	if safety.Category() == "" || safety.Reason() == "" {
		t.Errorf("safety = %+v", safety)
	}
}

func TestChatModel_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		m := &ChatModel{modelName: "x", client: &mockClient{err: &googleapi.Error{Code: 503, Message: "unavailable"}}}
		_, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "x"}}, nil)

		var perr *model.ProviderError
		if !errors.As(err, &perr) || perr.StatusCode != 503 || !perr.Temporary() {
			t.Errorf("error = %v, want temporary ProviderError", err)
		}
	})

	t.Run("empty conversation", func(t *testing.T) {
		mock := &mockClient{}
		m := &ChatModel{modelName: "x", client: mock}
		_, err := m.Chat(context.Background(), []model.Message{{Role: model.RoleSystem, Content: "only system"}}, nil)
		if err == nil || len(mock.requests) != 0 {
			t.Errorf("error = %v after %d requests", err, len(mock.requests))
		}
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := NewChatModel("", "").Chat(context.Background(), []model.Message{{Role: model.RoleUser, Content: "x"}}, nil)
		if !errors.Is(err, model.ErrNoAPIKey) {
			t.Errorf("error = %v, want ErrNoAPIKey", err)
		}
	})
}
