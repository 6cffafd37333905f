package model

import (
	"context"
	"sync"
)

// MockChatModel is a scripted ChatModel for tests.
//
// It returns Responses in order (repeating the last one once they run out),
// or Err when set. Respond, when non-nil, takes precedence over both and
// lets a test compute the reply from the conversation. Every call is
// recorded with a private copy of its messages.
//
// Example:
//
//	mock := &model.MockChatModel{
//	    Responses: []model.ChatOut{
//	        {ToolCalls: []model.ToolCall{{ID: "call_1", Name: "tavily_search", Input: map[string]interface{}{"query": "AI trends"}}}},
//	        {Text: "Here is your post."},
//	    },
//	}
type MockChatModel struct {
	Responses []ChatOut
	Err       error
	Respond   func(messages []Message, tools []ToolSpec) (ChatOut, error)

	mu        sync.Mutex
	calls     []MockChatCall
	callIndex int
}

// MockChatCall records a single invocation of Chat.
type MockChatCall struct {
	Messages []Message
	Tools    []ToolSpec
}

// Chat implements the ChatModel interface.
func (m *MockChatModel) Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return ChatOut{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, MockChatCall{
		Messages: append([]Message(nil), messages...),
		Tools:    append([]ToolSpec(nil), tools...),
	})

	switch {
	case m.Respond != nil:
		return m.Respond(messages, tools)
	case m.Err != nil:
		return ChatOut{}, m.Err
	case len(m.Responses) == 0:
		return ChatOut{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// Calls returns a copy of the recorded invocations.
func (m *MockChatModel) Calls() []MockChatCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockChatCall(nil), m.calls...)
}

// LastCall returns the most recent invocation, if any.
func (m *MockChatModel) LastCall() (MockChatCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return MockChatCall{}, false
	}
	return m.calls[len(m.calls)-1], true
}

// CallCount returns the number of times Chat has been called.
func (m *MockChatModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Reset clears the call history and rewinds Responses.
func (m *MockChatModel) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.callIndex = 0
}
