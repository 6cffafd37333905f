package tool

import (
	"context"
	"sync"

	"github.com/dshills/postgraph/graph/model"
)

// MockTool is a scripted Tool for tests.
//
// Responses are returned in order and the last one repeats. Err, when set,
// is returned instead. Every input is recorded.
type MockTool struct {
	ToolName  string
	Responses []map[string]interface{}
	Err       error

	mu        sync.Mutex
	inputs    []map[string]interface{}
	callIndex int
}

// Name implements Tool.
func (m *MockTool) Name() string { return m.ToolName }

// Spec implements Describer with a single string "query" parameter.
func (m *MockTool) Spec() model.ToolSpec {
	return model.ToolSpec{Name: m.ToolName, Schema: querySchema()}
}

// Call implements Tool.
func (m *MockTool) Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.inputs = append(m.inputs, input)
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Responses) == 0 {
		return map[string]interface{}{}, nil
	}

	idx := m.callIndex
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	} else {
		m.callIndex++
	}
	return m.Responses[idx], nil
}

// Inputs returns the recorded call inputs in call order.
func (m *MockTool) Inputs() []map[string]interface{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]map[string]interface{}(nil), m.inputs...)
}

// CallCount returns the number of calls made.
func (m *MockTool) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

// Reset clears recorded calls and rewinds Responses.
func (m *MockTool) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inputs = nil
	m.callIndex = 0
}
