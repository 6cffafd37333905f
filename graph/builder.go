package graph

import "fmt"

// RegisterOption configures a node at registration time.
type RegisterOption func(*nodeDecl)

// Continues declares the nodes a Continue outcome from this node may name.
// Include End to let the node finish the session. Continuing anywhere else
// is a GraphDefinitionError at run time.
func Continues(targets ...string) RegisterOption {
	return func(d *nodeDecl) {
		d.continues = append(d.continues, targets...)
	}
}

type nodeDecl struct {
	continues []string
}

type edgeDecl[S any] struct {
	from string
	edge edge[S]
}

// Builder declares a workflow graph. Declarations are not checked until
// Build, which reports every problem at once.
//
// Example:
//
//	b := graph.NewBuilder[State]()
//	b.Register("draft", draftNode)
//	b.Register("review", reviewNode, graph.Continues("draft", "publish"))
//	b.Register("publish", publishNode, graph.Continues(graph.End, "review"))
//	b.AddEdge("draft", "review")
//	b.SetEntry("draft")
//	g, err := b.Build()
type Builder[S any] struct {
	order    []string
	nodes    map[string]Node[S]
	decls    map[string]*nodeDecl
	edges    []edgeDecl[S]
	entry    string
	problems []string
}

// NewBuilder returns an empty Builder.
func NewBuilder[S any]() *Builder[S] {
	return &Builder[S]{
		nodes: make(map[string]Node[S]),
		decls: make(map[string]*nodeDecl),
	}
}

// Register adds a named node.
func (b *Builder[S]) Register(name string, node Node[S], opts ...RegisterOption) *Builder[S] {
	switch {
	case name == "":
		b.problems = append(b.problems, "node name is empty")
		return b
	case name == End:
		b.problems = append(b.problems, fmt.Sprintf("node name %q is reserved", End))
		return b
	case node == nil:
		b.problems = append(b.problems, fmt.Sprintf("node %q is nil", name))
		return b
	}
	if _, dup := b.nodes[name]; dup {
		b.problems = append(b.problems, fmt.Sprintf("duplicate node name %q", name))
		return b
	}

	decl := &nodeDecl{}
	for _, opt := range opts {
		opt(decl)
	}
	b.order = append(b.order, name)
	b.nodes[name] = node
	b.decls[name] = decl
	return b
}

// AddEdge adds a fixed transition taken when from returns Route.
func (b *Builder[S]) AddEdge(from, to string) *Builder[S] {
	b.edges = append(b.edges, edgeDecl[S]{from: from, edge: fixedEdge[S](to)})
	return b
}

// AddConditionalEdges adds a transition whose target router computes from
// state when from returns Route. targets is the closed set of names the
// router may return.
func (b *Builder[S]) AddConditionalEdges(from string, router Router[S], targets ...string) *Builder[S] {
	if router == nil {
		b.problems = append(b.problems, fmt.Sprintf("router on %q is nil", from))
		return b
	}
	if len(targets) == 0 {
		b.problems = append(b.problems, fmt.Sprintf("router on %q declares no targets", from))
		return b
	}
	b.edges = append(b.edges, edgeDecl[S]{from: from, edge: conditionalEdge(router, targets)})
	return b
}

// SetEntry designates the node new sessions start at.
func (b *Builder[S]) SetEntry(name string) *Builder[S] {
	b.entry = name
	return b
}

// Build validates the declarations and returns an immutable Graph. On
// failure it returns a *GraphDefinitionError listing every problem found.
func (b *Builder[S]) Build() (*Graph[S], error) {
	problems := append([]string(nil), b.problems...)
	known := func(name string) bool {
		if name == End {
			return true
		}
		_, ok := b.nodes[name]
		return ok
	}

	switch {
	case b.entry == "":
		problems = append(problems, "entry node not set")
	case b.entry == End:
		problems = append(problems, "entry node cannot be the end marker")
	case !known(b.entry):
		problems = append(problems, fmt.Sprintf("entry node %q is not registered", b.entry))
	}

	for _, name := range b.order {
		for _, target := range b.decls[name].continues {
			if !known(target) {
				problems = append(problems, fmt.Sprintf("node %q declares unregistered continuation target %q", name, target))
			}
		}
	}

	outgoing := make(map[string]edge[S], len(b.edges))
	for _, d := range b.edges {
		if _, ok := b.nodes[d.from]; !ok {
			problems = append(problems, fmt.Sprintf("edge source %q is not registered", d.from))
		} else if _, dup := outgoing[d.from]; dup {
			problems = append(problems, fmt.Sprintf("node %q has more than one outgoing edge", d.from))
		} else {
			outgoing[d.from] = d.edge
		}
		for _, target := range d.edge.targets {
			if !known(target) {
				problems = append(problems, fmt.Sprintf("%s edge %q -> %q targets an unregistered node", d.edge.kind, d.from, target))
			}
		}
	}

	if len(problems) > 0 {
		return nil, &GraphDefinitionError{Problems: problems}
	}

	g := &Graph[S]{
		entry: b.entry,
		order: append([]string(nil), b.order...),
		nodes: make(map[string]graphNode[S], len(b.nodes)),
	}
	for _, name := range b.order {
		gn := graphNode[S]{
			node: b.nodes[name],
			cont: explicitEdge[S](b.decls[name].continues),
		}
		if e, ok := outgoing[name]; ok {
			gn.out = &e
		}
		g.nodes[name] = gn
	}
	return g, nil
}
