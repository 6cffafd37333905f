// Package google adapts Gemini (generative-ai-go) to model.ChatModel.
package google

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/dshills/postgraph/graph/model"
)

const defaultModel = "gemini-2.5-flash"

// ChatModel implements model.ChatModel for Google's Gemini models.
//
// Gemini does not assign ids to function calls, so the adapter numbers them
// within each reply. Tool results are matched back to declarations by tool
// name.
type ChatModel struct {
	modelName string
	client    googleClient
}

// request is one chat turn: prior history plus the parts of the final
// user turn.
type request struct {
	modelName string
	system    string
	history   []*genai.Content
	parts     []genai.Part
	tools     []*genai.Tool
}

// googleClient is the seam between the adapter and the SDK.
type googleClient interface {
	generateContent(ctx context.Context, req request) (*genai.GenerateContentResponse, error)
}

// NewChatModel creates a ChatModel. An empty modelName selects Gemini 2.5
// Flash.
func NewChatModel(apiKey, modelName string) *ChatModel {
	if modelName == "" {
		modelName = defaultModel
	}
	return &ChatModel{
		modelName: modelName,
		client:    &defaultClient{apiKey: apiKey},
	}
}

// Chat implements model.ChatModel.
func (m *ChatModel) Chat(ctx context.Context, messages []model.Message, tools []model.ToolSpec) (model.ChatOut, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatOut{}, err
	}

	system, conversation := model.SplitSystem(messages)
	contents := convertMessages(conversation)
	if len(contents) == 0 {
		return model.ChatOut{}, &model.ProviderError{Provider: "google", Err: errors.New("no messages to send")}
	}

	last := contents[len(contents)-1]
	req := request{
		modelName: m.modelName,
		system:    system,
		history:   contents[:len(contents)-1],
		parts:     last.Parts,
	}
	if len(tools) > 0 {
		req.tools = convertTools(tools)
	}

	resp, err := m.client.generateContent(ctx, req)
	if err != nil {
		return model.ChatOut{}, translateError(err)
	}
	return convertResponse(resp)
}

// convertMessages maps the history onto Gemini's user/model turns, merging
// consecutive messages that land on the same role.
func convertMessages(messages []model.Message) []*genai.Content {
	var out []*genai.Content

	for _, msg := range messages {
		role := "user"
		var parts []genai.Part

		switch msg.Role {
		case model.RoleAssistant:
			role = "model"
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
			for _, call := range msg.ToolCalls {
				parts = append(parts, genai.FunctionCall{Name: call.Name, Args: call.Input})
			}
		case model.RoleTool:
			parts = append(parts, genai.FunctionResponse{
				Name:     msg.Name,
				Response: map[string]any{"content": msg.Content},
			})
		default:
			if msg.Content != "" {
				parts = append(parts, genai.Text(msg.Content))
			}
		}

		if len(parts) == 0 {
			continue
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, parts...)
			continue
		}
		out = append(out, &genai.Content{Role: role, Parts: parts})
	}
	return out
}

func convertTools(tools []model.ToolSpec) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, len(tools))
	for i, tool := range tools {
		declarations[i] = &genai.FunctionDeclaration{
			Name:        tool.Name,
			Description: tool.Description,
			Parameters:  convertSchema(tool.Schema),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

func convertSchema(schema map[string]interface{}) *genai.Schema {
	if schema == nil {
		return nil
	}

	result := &genai.Schema{Type: genai.TypeObject}
	if desc, ok := schema["description"].(string); ok {
		result.Description = desc
	}
	if props, ok := schema["properties"].(map[string]interface{}); ok {
		result.Properties = make(map[string]*genai.Schema, len(props))
		for key, val := range props {
			prop, ok := val.(map[string]interface{})
			if !ok {
				continue
			}
			s := &genai.Schema{}
			if t, ok := prop["type"].(string); ok {
				s.Type = convertType(t)
			}
			if desc, ok := prop["description"].(string); ok {
				s.Description = desc
			}
			result.Properties[key] = s
		}
	}

	switch required := schema["required"].(type) {
	case []string:
		result.Required = required
	case []interface{}:
		for _, v := range required {
			if s, ok := v.(string); ok {
				result.Required = append(result.Required, s)
			}
		}
	}
	return result
}

func convertType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

func convertResponse(resp *genai.GenerateContentResponse) (model.ChatOut, error) {
	var out model.ChatOut
	if resp == nil {
		return out, nil
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return out, &SafetyFilterError{reason: resp.PromptFeedback.BlockReason.String()}
	}
	if len(resp.Candidates) == 0 {
		return out, nil
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		var category string
		for _, rating := range candidate.SafetyRatings {
			if rating.Blocked {
				category = rating.Category.String()
				break
			}
		}
		return out, &SafetyFilterError{reason: candidate.FinishReason.String(), category: category}
	}
	if candidate.Content == nil {
		return out, nil
	}

	for _, part := range candidate.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			if out.Text != "" {
				out.Text += "\n"
			}
			out.Text += string(p)
		case genai.FunctionCall:
			out.ToolCalls = append(out.ToolCalls, model.ToolCall{
				ID:    fmt.Sprintf("call_%d", len(out.ToolCalls)+1),
				Name:  p.Name,
				Input: p.Args,
			})
		}
	}
	return out, nil
}

func translateError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return &model.ProviderError{Provider: "google", StatusCode: apiErr.Code, Err: err}
	}
	return &model.ProviderError{Provider: "google", Err: err}
}

// SafetyFilterError reports a prompt or reply blocked by Gemini's safety
// settings.
type SafetyFilterError struct {
	reason   string
	category string
}

func (e *SafetyFilterError) Error() string {
	if e.category == "" {
		return "google: content blocked: " + e.reason
	}
	return "google: content blocked: " + e.reason + " (" + e.category + ")"
}

// Category is the harm category that triggered the block, if reported.
func (e *SafetyFilterError) Category() string { return e.category }

// Reason is the block or finish reason reported by the API.
func (e *SafetyFilterError) Reason() string { return e.reason }

// defaultClient opens the SDK client on first use and keeps it.
type defaultClient struct {
	apiKey string

	once   sync.Once
	client *genai.Client
	err    error
}

func (c *defaultClient) generateContent(ctx context.Context, req request) (*genai.GenerateContentResponse, error) {
	if c.apiKey == "" {
		return nil, model.ErrNoAPIKey
	}
	c.once.Do(func() {
		c.client, c.err = genai.NewClient(context.Background(), option.WithAPIKey(c.apiKey))
	})
	if c.err != nil {
		return nil, fmt.Errorf("create client: %w", c.err)
	}

	gm := c.client.GenerativeModel(req.modelName)
	if req.system != "" {
		gm.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.system)}}
	}
	gm.Tools = req.tools

	session := gm.StartChat()
	session.History = req.history
	return session.SendMessage(ctx, req.parts...)
}
