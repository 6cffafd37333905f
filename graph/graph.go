package graph

import (
	"fmt"
	"slices"
)

// Graph is a validated, immutable workflow graph produced by Builder.Build.
// It is safe for concurrent use by any number of sessions.
type Graph[S any] struct {
	entry string
	order []string
	nodes map[string]graphNode[S]
}

type graphNode[S any] struct {
	node Node[S]
	out  *edge[S]
	cont edge[S]
}

// Entry returns the start node.
func (g *Graph[S]) Entry() string { return g.entry }

// Nodes returns node names in registration order.
func (g *Graph[S]) Nodes() []string {
	return append([]string(nil), g.order...)
}

// Has reports whether name is a registered node.
func (g *Graph[S]) Has(name string) bool {
	_, ok := g.nodes[name]
	return ok
}

// EdgeKind returns the kind of the edge leaving name, if it has one.
func (g *Graph[S]) EdgeKind(name string) (RouterKind, bool) {
	gn, ok := g.nodes[name]
	if !ok || gn.out == nil {
		return 0, false
	}
	return gn.out.kind, true
}

// Successors returns every node name reachable in one step from name: its
// edge targets followed by its declared continuation targets.
func (g *Graph[S]) Successors(name string) []string {
	gn, ok := g.nodes[name]
	if !ok {
		return nil
	}
	var out []string
	if gn.out != nil {
		out = append(out, gn.out.targets...)
	}
	for _, t := range gn.cont.targets {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// resolve turns a Continue or Route outcome into the next node name.
func (g *Graph[S]) resolve(from string, out Outcome[S]) (string, error) {
	gn := g.nodes[from]
	switch out.Kind {
	case OutcomeContinue:
		if !gn.cont.allows(out.Next) {
			return "", &GraphDefinitionError{Problems: []string{
				fmt.Sprintf("node %q continued to undeclared target %q", from, out.Next),
			}}
		}
		return out.Next, nil
	case OutcomeRoute:
		if gn.out == nil {
			return "", &GraphDefinitionError{Problems: []string{
				fmt.Sprintf("node %q returned Route but has no outgoing edge", from),
			}}
		}
		return gn.out.next(from, out.State)
	default:
		return "", fmt.Errorf("outcome %s has no successor", out.Kind)
	}
}
