package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/postgraph/graph"
	"github.com/dshills/postgraph/graph/interrupt"
	"github.com/dshills/postgraph/graph/model"
	"github.com/dshills/postgraph/graph/tool"
	"github.com/dshills/postgraph/publish"
)

// Node names.
const (
	NodeEntry         = "entry"
	NodeTools         = "tools"
	NodeDraft         = "draft-generation"
	NodePostFeedback  = "post-feedback"
	NodeImageSearch   = "image-search"
	NodeImageFeedback = "image-feedback"
	NodeUpload        = "upload"
)

// ImageSearcher finds an image for a text query. An empty result means
// none was found.
type ImageSearcher interface {
	SearchImage(ctx context.Context, query string) (string, error)
}

// Publisher publishes a post to a platform. *publish.Dispatcher satisfies
// it.
type Publisher interface {
	Publish(ctx context.Context, platform, credential, content, imageURL string) (publish.Result, error)
}

// maxParallelTools bounds concurrent tool calls from a single reply.
const maxParallelTools = 4

type nodes struct {
	model     model.ChatModel
	tools     map[string]tool.Tool
	specs     []model.ToolSpec
	images    ImageSearcher
	publisher Publisher
	logger    *slog.Logger
}

func collaboratorError(collaborator, op string, err error) error {
	return &graph.CollaboratorError{Collaborator: collaborator, Op: op, Err: err}
}

// entry records the user's input and asks the model whether to research.
func (n *nodes) entry(ctx context.Context, s State, _ *interrupt.Resume) (graph.Outcome[State], error) {
	turn := model.Message{Role: model.RoleUser, Content: entryTurn(s.Source())}
	s.Messages = append(s.Messages, turn)

	out, err := n.model.Chat(ctx, []model.Message{
		{Role: model.RoleSystem, Content: entrySystemPrompt},
		turn,
	}, n.specs)
	if err != nil {
		return graph.Outcome[State]{}, collaboratorError("model", "generate", err)
	}
	s.Messages = append(s.Messages, out.Message())
	return graph.Route(s), nil
}

// routeFromEntry sends a reply that requested tools to the tools node.
func routeFromEntry(s State) string {
	if n := len(s.Messages); n > 0 && len(s.Messages[n-1].ToolCalls) > 0 {
		return NodeTools
	}
	return NodeDraft
}

// runTools runs every tool call in the last message and appends the results
// in request order.
func (n *nodes) runTools(ctx context.Context, s State, _ *interrupt.Resume) (graph.Outcome[State], error) {
	if len(s.Messages) == 0 {
		return graph.Route(s), nil
	}
	calls := s.Messages[len(s.Messages)-1].ToolCalls
	results := make([]model.Message, len(calls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelTools)
	for i, call := range calls {
		g.Go(func() error {
			msg := model.Message{Role: model.RoleTool, ToolCallID: call.ID, Name: call.Name}

			t, ok := n.tools[call.Name]
			if !ok {
				msg.Content = fmt.Sprintf("Error: unknown tool %q", call.Name)
				results[i] = msg
				return nil
			}

			out, err := t.Call(gctx, call.Input)
			if err != nil {
				return collaboratorError(call.Name, "call", err)
			}
			msg.Content = toolText(out)
			results[i] = msg
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return graph.Outcome[State]{}, err
	}

	s.Messages = append(s.Messages, results...)
	return graph.Route(s), nil
}

func toolText(out map[string]interface{}) string {
	if text := tool.Content(out); text != "" {
		return text
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Sprint(out)
	}
	return string(data)
}

// draft writes the post: a revision of the whole conversation when
// feedback is pending, otherwise a fresh draft from the research.
func (n *nodes) draft(ctx context.Context, s State, _ *interrupt.Resume) (graph.Outcome[State], error) {
	if s.FeedbackText != nil {
		s.Messages = append(s.Messages, model.Message{Role: model.RoleUser, Content: *s.FeedbackText})
		var specs []model.ToolSpec
		if hasToolTurns(s.Messages) {
			specs = n.specs
		}
		out, err := n.model.Chat(ctx, s.Messages, specs)
		if err != nil {
			return graph.Outcome[State]{}, collaboratorError("model", "revise", err)
		}
		// Revisions never run tools; an unanswered call would poison the
		// history for the next revision.
		reply := out.Message()
		reply.ToolCalls = nil
		s.Messages = append(s.Messages, reply)
		s.FeedbackText = nil
		s.PostDraft = out.Text
		return graph.Route(s), nil
	}

	prompt := model.Message{Role: model.RoleUser, Content: draftPrompt(s.Platform, draftSource(s.Messages), s.Topic)}
	s.Messages = append(s.Messages, prompt)
	out, err := n.model.Chat(ctx, []model.Message{prompt}, nil)
	if err != nil {
		return graph.Outcome[State]{}, collaboratorError("model", "draft", err)
	}
	s.Messages = append(s.Messages, out.Message())
	s.PostDraft = out.Text
	return graph.Route(s), nil
}

// hasToolTurns reports whether the history carries tool calls or results.
// Providers reject such a history unless the tools are declared.
func hasToolTurns(messages []model.Message) bool {
	for _, m := range messages {
		if m.Role == model.RoleTool || len(m.ToolCalls) > 0 {
			return true
		}
	}
	return false
}

func (s State) afterPostReview() string {
	if s.ImageWanted {
		return NodeImageSearch
	}
	return NodeUpload
}

// postFeedback suspends for review of the draft.
func (n *nodes) postFeedback(_ context.Context, s State, resume *interrupt.Resume) (graph.Outcome[State], error) {
	if resume == nil {
		return graph.Suspend[State](interrupt.New(interrupt.KindPost, &s.PostDraft)), nil
	}

	choice, err := resume.ForPost()
	if err != nil {
		return graph.Outcome[State]{}, err
	}
	switch choice.Action {
	case interrupt.ActionEdit:
		s.PostDraft = choice.Value
		return graph.Continue(s.afterPostReview(), s), nil
	case interrupt.ActionFeedback:
		s.FeedbackText = ptr(choice.Value)
		return graph.Continue(NodeDraft, s), nil
	default:
		return graph.Continue(s.afterPostReview(), s), nil
	}
}

// imageSearch looks for an image matching the start of the draft.
func (n *nodes) imageSearch(ctx context.Context, s State, _ *interrupt.Resume) (graph.Outcome[State], error) {
	found, err := n.images.SearchImage(ctx, imageQuery(s.PostDraft))
	if err != nil {
		return graph.Outcome[State]{}, collaboratorError("tavily", "image search", err)
	}
	s.ImageURL = nil
	if found != "" {
		s.ImageURL = ptr(found)
	}
	return graph.Route(s), nil
}

// imageFeedback suspends for review of the chosen image.
func (n *nodes) imageFeedback(_ context.Context, s State, resume *interrupt.Resume) (graph.Outcome[State], error) {
	if resume == nil {
		return graph.Suspend[State](interrupt.New(interrupt.KindImage, s.ImageURL)), nil
	}

	choice, err := resume.ForImage()
	if err != nil {
		return graph.Outcome[State]{}, err
	}
	if choice.Action == interrupt.ActionReplaceImage {
		s.ImageURL = ptr(choice.Value)
	}
	return graph.Continue(NodeUpload, s), nil
}

// upload publishes the draft. Failures never abort the call; they send
// the session back to review.
func (n *nodes) upload(ctx context.Context, s State, _ *interrupt.Resume) (graph.Outcome[State], error) {
	res, err := n.publisher.Publish(ctx, string(s.Platform), s.Credential, s.PostDraft, deref(s.ImageURL))
	if err != nil {
		n.logger.WarnContext(ctx, "upload failed", "platform", s.Platform, "error", err)
		res = publish.Result{}
	}

	s.UploadSuccess = res.Success
	s.PostURL = nil
	if res.Success && res.PostURL != "" {
		s.PostURL = ptr(res.PostURL)
	}

	if s.UploadSuccess {
		return graph.Continue(graph.End, s), nil
	}
	return graph.Continue(NodePostFeedback, s), nil
}
