// Package anthropic adapts Anthropic's Messages API to model.ChatModel.
package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/dshills/postgraph/graph/model"
)

const (
	defaultModel     = "claude-3-5-sonnet-20241022"
	defaultMaxTokens = 4096
)

// ChatModel implements model.ChatModel for Anthropic's Claude API.
//
// System messages are lifted into the request's system parameter, tool
// results are sent back as tool_result blocks and consecutive messages with
// the same role are merged, since the API requires alternating turns.
// Requests that declare no tools cannot carry tool blocks, so tool calls and
// results are rendered as plain text in that case.
//
//	m := anthropic.NewChatModel(os.Getenv("ANTHROPIC_API_KEY"), "")
//	out, err := m.Chat(ctx, messages, tools)
type ChatModel struct {
	modelName string
	client    anthropicClient
}

// anthropicClient is the seam between the adapter and the SDK.
type anthropicClient interface {
	createMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error)
}

// NewChatModel creates a ChatModel. An empty modelName selects a current
// Sonnet model.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = defaultModel
	}
	return &ChatModel{
		modelName: modelName,
		client:    newDefaultClient(apiKey),
	}
}

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	msg, err := m.client.createMessage(ctx, buildParams(m.modelName, messages, tools))
	if err != nil {
		return model.ChatOut{}, translateError(err)
	}
	return parseMessage(msg)
}

func buildParams(modelName string, messages []model.Message, tools []model.ToolSpec) anthropic.MessageNewParams {
	system, conversation := model.SplitSystem(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(modelName),
		MaxTokens: defaultMaxTokens,
		Messages:  convertMessages(conversation, len(tools) > 0),
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}
	return params
}

func convertMessages(messages []model.Message, toolBlocks bool) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(messages))

	for _, msg := range messages {
		role := anthropic.MessageParamRoleUser
		var blocks []anthropic.ContentBlockParamUnion

		switch msg.Role {
		case model.RoleAssistant:
			role = anthropic.MessageParamRoleAssistant
			if msg.Content != "" {
				blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				if !toolBlocks {
					blocks = append(blocks, anthropic.NewTextBlock(toolCallText(call)))
					continue
				}
				input := call.Input
				if input == nil {
					input = map[string]interface{}{}
				}
				blocks = append(blocks, anthropic.NewToolUseBlock(call.ID, input, call.Name))
			}
		case model.RoleTool:
			if !toolBlocks {
				blocks = append(blocks, anthropic.NewTextBlock(fmt.Sprintf("[%s result]\n%s", msg.Name, msg.Content)))
				break
			}
			blocks = append(blocks, anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false))
		default:
			blocks = append(blocks, anthropic.NewTextBlock(msg.Content))
		}

		if len(blocks) == 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			continue
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}
	return out
}

func toolCallText(call model.ToolCall) string {
	input, err := json.Marshal(call.Input)
	if err != nil || call.Input == nil {
		return fmt.Sprintf("[called %s]", call.Name)
	}
	return fmt.Sprintf("[called %s %s]", call.Name, input)
}

func convertTools(tools []model.ToolSpec) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, spec := range tools {
		schema := anthropic.ToolInputSchemaParam{
			Properties: spec.Schema["properties"],
			Required:   requiredFields(spec.Schema),
		}
		tool := &anthropic.ToolParam{
			Name:        spec.Name,
			InputSchema: schema,
		}
		if spec.Description != "" {
			tool.Description = anthropic.String(spec.Description)
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: tool})
	}
	return out
}

// requiredFields accepts both []string and the []interface{} a decoded
// JSON schema produces.
func requiredFields(schema map[string]interface{}) []string {
	switch v := schema["required"].(type) {
	case []string:
		return v
	case []interface{}:
		fields := make([]string, 0, len(v))
		for _, f := range v {
			if s, ok := f.(string); ok {
				fields = append(fields, s)
			}
		}
		return fields
	}
	return nil
}

func parseMessage(msg *anthropic.Message) (model.ChatOut, error) {
	var out model.ChatOut
	if msg == nil {
		return out, nil
	}

	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			out.Text += block.Text
		case "tool_use":
			var input map[string]interface{}
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &input); err != nil {
					return model.ChatOut{}, fmt.Errorf("anthropic: decode input of tool %q: %w", block.Name, err)
				}
			}
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{
				ID:    block.ID,
				Name:  block.Name,
				Input: input,
			})
		}
	}
	return out, nil
}

func translateError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &model.ProviderError{Provider: "anthropic", StatusCode: apiErr.StatusCode, Err: err}
	}
	return &model.ProviderError{Provider: "anthropic", Err: err}
}

type defaultClient struct {
	client *anthropic.Client
}

func newDefaultClient(apiKey string) anthropicClient {
	if apiKey == "" {
		return missingKeyClient{}
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &defaultClient{client: &client}
}

func (c *defaultClient) createMessage(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	return c.client.Messages.New(ctx, params)
}

type missingKeyClient struct{}

func (missingKeyClient) createMessage(context.Context, anthropic.MessageNewParams) (*anthropic.Message, error) {
	return nil, model.ErrNoAPIKey
}
