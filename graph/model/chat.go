// Package model provides LLM integration adapters.
package model

import (
	"context"
	"strings"
)

// ChatModel defines the interface for LLM chat providers.
//
// This interface abstracts the differences between providers (Anthropic,
// OpenAI, Google) behind one call used by the workflow's text generation
// steps.
//
// Implementations should:
//   - Convert the standard Message history, including tool calls and tool
//     results, to the provider format
//   - Parse provider responses back to ChatOut, assigning every tool call an
//     ID that later tool messages can reference
//   - Respect context cancellation and timeouts
//
// Example with tools:
//
//	tools := []model.ToolSpec{{
//	    Name:        "tavily_search",
//	    Description: "Search the web or extract a page",
//	    Schema: map[string]interface{}{
//	        "type": "object",
//	        "properties": map[string]interface{}{
//	            "query": map[string]interface{}{"type": "string"},
//	        },
//	        "required": []string{"query"},
//	    },
//	}}
//	out, err := m.Chat(ctx, messages, tools)
//	for _, call := range out.ToolCalls {
//	    fmt.Printf("Tool: %s, Input: %v\n", call.Name, call.Input)
//	}
type ChatModel interface {
	// Chat sends messages to the LLM and returns the response.
	//
	// The LLM may respond with text, tool calls, or both.
	Chat(ctx context.Context, messages []Message, tools []ToolSpec) (ChatOut, error)
}

// Message represents a single message in an LLM conversation.
//
// Typical conversation structure:
//   - System message (optional): sets context and behavior
//   - User messages: user input
//   - Assistant messages: LLM replies, possibly requesting tool calls
//   - Tool messages: results of those calls, linked by ToolCallID
//
// Messages are part of the persisted workflow state, so the JSON field names
// are stable.
type Message struct {
	// Role identifies the message sender. Use the Role* constants.
	Role string `json:"role"`

	// Content contains the message text.
	// May be empty for assistant messages that only contain tool calls.
	Content string `json:"content"`

	// ToolCalls lists the tools an assistant message asked for.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// Name is the tool name on tool messages.
	Name string `json:"name,omitempty"`
}

// Standard role constants for LLM conversations.
const (
	// RoleSystem indicates a system message that sets context or instructions.
	RoleSystem = "system"

	// RoleUser indicates a message from the human user.
	RoleUser = "user"

	// RoleAssistant indicates a response from the LLM.
	RoleAssistant = "assistant"

	// RoleTool carries the result of a tool call back to the LLM.
	RoleTool = "tool"
)

// ToolSpec describes a tool that an LLM can call.
//
// The Schema field follows JSON Schema format and describes the expected
// input parameters.
type ToolSpec struct {
	// Name uniquely identifies the tool.
	// Must be a valid function name (alphanumeric + underscores).
	Name string

	// Description explains what the tool does.
	// The LLM uses this to decide when to call the tool.
	Description string

	// Schema defines the tool's input parameters using JSON Schema format.
	// Optional for tools with no parameters.
	Schema map[string]interface{}
}

// ChatOut represents the output from an LLM chat completion.
type ChatOut struct {
	// Text contains the LLM's generated response.
	// May be empty if the LLM only wants to call tools.
	Text string

	// ToolCalls contains tools the LLM wants to invoke.
	// Empty if the LLM provided a direct text response.
	ToolCalls []ToolCall
}

// Message converts the output into an assistant message for the history.
func (o ChatOut) Message() Message {
	return Message{Role: RoleAssistant, Content: o.Text, ToolCalls: o.ToolCalls}
}

// ToolCall represents a request from the LLM to invoke a specific tool.
//
// After the LLM requests tool calls, the application should:
//  1. Execute each tool with the provided Input.
//  2. Append one RoleTool message per call, with ToolCallID set to ID.
//  3. Send the extended history back to the LLM.
type ToolCall struct {
	// ID identifies this call. Tool result messages reference it.
	ID string `json:"id"`

	// Name identifies which tool to call.
	// Must match a ToolSpec.Name from the available tools.
	Name string `json:"name"`

	// Input contains the parameters for the tool call.
	// May be nil for tools that take no parameters.
	Input map[string]interface{} `json:"input,omitempty"`
}

// SplitSystem separates system messages from the conversation. Providers
// that take the system prompt as a separate parameter use it. Multiple
// system messages are joined with a blank line.
func SplitSystem(messages []Message) (string, []Message) {
	var system []string
	conversation := make([]Message, 0, len(messages))

	for _, msg := range messages {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		conversation = append(conversation, msg)
	}
	return strings.Join(system, "\n\n"), conversation
}
