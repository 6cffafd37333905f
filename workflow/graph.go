package workflow

import (
	"errors"
	"log/slog"

	"github.com/dshills/postgraph/graph"
	"github.com/dshills/postgraph/graph/model"
	"github.com/dshills/postgraph/graph/tool"
)

// Deps are the collaborators the workflow nodes call.
type Deps struct {
	Model     model.ChatModel
	Tools     []tool.Tool
	Images    ImageSearcher
	Publisher Publisher
	Logger    *slog.Logger
}

func (d Deps) validate() error {
	var errs []error
	if d.Model == nil {
		errs = append(errs, errors.New("workflow: chat model is required"))
	}
	if d.Images == nil {
		errs = append(errs, errors.New("workflow: image searcher is required"))
	}
	if d.Publisher == nil {
		errs = append(errs, errors.New("workflow: publisher is required"))
	}
	for _, t := range d.Tools {
		if t == nil {
			errs = append(errs, errors.New("workflow: nil tool"))
		}
	}
	return errors.Join(errs...)
}

// BuildGraph wires the seven workflow nodes:
//
//	entry ──(tool calls?)──> tools ──> draft-generation ──> post-feedback
//	  └────────────────────────────────────^                   │
//	post-feedback ──> draft-generation | image-search | upload
//	image-search ──> image-feedback ──> upload
//	upload ──> End | post-feedback
func BuildGraph(d Deps) (*graph.Graph[State], error) {
	if err := d.validate(); err != nil {
		return nil, err
	}

	n := &nodes{
		model:     d.Model,
		tools:     make(map[string]tool.Tool, len(d.Tools)),
		images:    d.Images,
		publisher: d.Publisher,
		logger:    d.Logger,
	}
	if n.logger == nil {
		n.logger = slog.New(slog.DiscardHandler)
	}
	for _, t := range d.Tools {
		n.tools[t.Name()] = t
		if desc, ok := t.(tool.Describer); ok {
			n.specs = append(n.specs, desc.Spec())
		} else {
			n.specs = append(n.specs, model.ToolSpec{Name: t.Name()})
		}
	}

	b := graph.NewBuilder[State]()
	b.Register(NodeEntry, graph.NodeFunc[State](n.entry))
	b.Register(NodeTools, graph.NodeFunc[State](n.runTools))
	b.Register(NodeDraft, graph.NodeFunc[State](n.draft))
	b.Register(NodePostFeedback, graph.NodeFunc[State](n.postFeedback),
		graph.Continues(NodeDraft, NodeImageSearch, NodeUpload))
	b.Register(NodeImageSearch, graph.NodeFunc[State](n.imageSearch))
	b.Register(NodeImageFeedback, graph.NodeFunc[State](n.imageFeedback),
		graph.Continues(NodeUpload))
	b.Register(NodeUpload, graph.NodeFunc[State](n.upload),
		graph.Continues(graph.End, NodePostFeedback))

	b.AddConditionalEdges(NodeEntry, routeFromEntry, NodeTools, NodeDraft)
	b.AddEdge(NodeTools, NodeDraft)
	b.AddEdge(NodeDraft, NodePostFeedback)
	b.AddEdge(NodeImageSearch, NodeImageFeedback)
	b.SetEntry(NodeEntry)

	return b.Build()
}
