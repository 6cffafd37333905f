// Package openai adapts OpenAI's Chat Completions API to model.ChatModel.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/dshills/postgraph/graph/model"
)

const defaultModel = "gpt-4o-mini"

// ChatModel implements model.ChatModel for OpenAI's GPT models.
//
// Transient failures (rate limits and 5xx responses) are retried up to
// maxRetries times. Rate limits back off linearly; other transient errors
// wait retryDelay between attempts.
type ChatModel struct {
	modelName  string
	client     openaiClient
	maxRetries int
	retryDelay time.Duration
}

// openaiClient is the seam between the adapter and the SDK.
type openaiClient interface {
	createChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)
}

// NewChatModel creates a ChatModel. An empty modelName selects gpt-4o-mini.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = defaultModel
	}
	return &ChatModel{
		modelName:  modelName,
		client:     newDefaultClient(apiKey),
		maxRetries: 3,
		retryDelay: time.Second,
	}
}

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	params := buildParams(m.modelName, messages, tools)

	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		resp, err := m.client.createChatCompletion(ctx, params)
		if err == nil {
			return parseCompletion(resp)
		}

		lastErr = translateError(err)
		var perr *model.ProviderError
		if !errors.As(lastErr, &perr) || !perr.Temporary() {
			return model.ChatOut{}, lastErr
		}
		if attempt == m.maxRetries {
			break
		}

		delay := m.retryDelay
		if perr.RateLimited() {
			delay = m.retryDelay * time.Duration(attempt+1)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.ChatOut{}, ctx.Err()
		}
	}

	return model.ChatOut{}, fmt.Errorf("openai: giving up after %d retries: %w", m.maxRetries, lastErr)
}

func buildParams(modelName string, messages []model.Message, tools []model.ToolSpec) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(modelName),
		Messages: convertMessages(messages),
	}
	if len(tools) > 0 {
		params.Tools = convertTools(tools)
	}
	return params
}

func convertMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case model.RoleTool:
			out = append(out, openai.ToolMessage(msg.Content, msg.ToolCallID))
		case model.RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(msg.Content))
				continue
			}
			out = append(out, assistantWithCalls(msg))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}

func assistantWithCalls(msg model.Message) openai.ChatCompletionMessageParamUnion {
	calls := make([]openai.ChatCompletionMessageToolCallParam, 0, len(msg.ToolCalls))
	for _, call := range msg.ToolCalls {
		args := "{}"
		if call.Input != nil {
			if data, err := json.Marshal(call.Input); err == nil {
				args = string(data)
			}
		}
		calls = append(calls, openai.ChatCompletionMessageToolCallParam{
			ID: call.ID,
			Function: openai.ChatCompletionMessageToolCallFunctionParam{
				Name:      call.Name,
				Arguments: args,
			},
		})
	}

	assistant := &openai.ChatCompletionAssistantMessageParam{ToolCalls: calls}
	if msg.Content != "" {
		assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(msg.Content),
		}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: assistant}
}

func convertTools(tools []model.ToolSpec) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, spec := range tools {
		fn := shared.FunctionDefinitionParam{
			Name:       spec.Name,
			Parameters: shared.FunctionParameters(spec.Schema),
		}
		if spec.Description != "" {
			fn.Description = openai.String(spec.Description)
		}
		out = append(out, openai.ChatCompletionToolParam{Function: fn})
	}
	return out
}

func parseCompletion(resp *openai.ChatCompletion) (model.ChatOut, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return model.ChatOut{}, &model.ProviderError{Provider: "openai", Err: errors.New("response has no choices")}
	}

	msg := resp.Choices[0].Message
	out := model.ChatOut{Text: msg.Content}
	for _, call := range msg.ToolCalls {
		var input map[string]interface{}
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &input); err != nil {
				return model.ChatOut{}, fmt.Errorf("openai: decode arguments of tool %q: %w", call.Function.Name, err)
			}
		}
		out.ToolCalls = append(out.ToolCalls, model.ToolCall{
			ID:    call.ID,
			Name:  call.Function.Name,
			Input: input,
		})
	}
	return out, nil
}

func translateError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &model.ProviderError{Provider: "openai", StatusCode: apiErr.StatusCode, Err: err}
	}
	return &model.ProviderError{Provider: "openai", Err: err}
}

type defaultClient struct {
	client *openai.Client
}

func newDefaultClient(apiKey string) openaiClient {
	if apiKey == "" {
		return missingKeyClient{}
	}
	client := openai.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0))
	return &defaultClient{client: &client}
}

func (c *defaultClient) createChatCompletion(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return c.client.Chat.Completions.New(ctx, params)
}

type missingKeyClient struct{}

func (missingKeyClient) createChatCompletion(context.Context, openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	return nil, model.ErrNoAPIKey
}
