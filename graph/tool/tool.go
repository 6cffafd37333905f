// Package tool defines the tools a chat model may call during a workflow
// and the Tavily client that backs web search, page extraction and image
// search.
package tool

import (
	"context"

	"github.com/dshills/postgraph/graph/model"
)

// Tool is a named operation a chat model can request.
//
// Input is the decoded argument object from the model's tool call. The
// result is a JSON-compatible map; tools that produce text put it under
// the "content" key.
type Tool interface {
	// Name must match the ToolSpec advertised to the model.
	Name() string

	// Call executes the tool. Implementations must honor ctx cancellation
	// and be safe for concurrent use.
	Call(ctx context.Context, input map[string]interface{}) (map[string]interface{}, error)
}

// Describer is implemented by tools that can advertise themselves to a
// chat model.
type Describer interface {
	Spec() model.ToolSpec
}

// Content returns the text result of a tool call: the "content" entry when
// it is a string, otherwise "".
func Content(result map[string]interface{}) string {
	s, _ := result["content"].(string)
	return s
}
