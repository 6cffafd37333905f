package graph

import (
	"fmt"
	"slices"
)

// End is the terminal marker. Routing or continuing to End finishes the
// session.
const End = "__end__"

// RouterKind is the closed set of ways a node's successor can be chosen.
type RouterKind int

const (
	// RouterFixed always goes to the same target.
	RouterFixed RouterKind = iota + 1

	// RouterConditional computes the target from state after the node runs.
	// The router may only return one of its declared targets.
	RouterConditional

	// RouterExplicit is a node-chosen Continue. The node declares the
	// targets it may pick at registration time.
	RouterExplicit
)

func (k RouterKind) String() string {
	switch k {
	case RouterFixed:
		return "fixed"
	case RouterConditional:
		return "conditional"
	case RouterExplicit:
		return "explicit"
	default:
		return "unknown"
	}
}

// Router picks the next node from state. It must be a pure function.
type Router[S any] func(state S) string

// edge is a resolved transition out of one node. Every kind carries the
// full set of targets it may produce so they can be checked at build time.
type edge[S any] struct {
	kind    RouterKind
	targets []string
	router  Router[S]
}

func fixedEdge[S any](to string) edge[S] {
	return edge[S]{kind: RouterFixed, targets: []string{to}}
}

func conditionalEdge[S any](router Router[S], targets []string) edge[S] {
	return edge[S]{kind: RouterConditional, targets: dedupe(targets), router: router}
}

func explicitEdge[S any](targets []string) edge[S] {
	return edge[S]{kind: RouterExplicit, targets: dedupe(targets)}
}

func (e edge[S]) allows(target string) bool {
	return slices.Contains(e.targets, target)
}

// next resolves the target of a Route outcome.
func (e edge[S]) next(from string, state S) (string, error) {
	switch e.kind {
	case RouterFixed:
		return e.targets[0], nil
	case RouterConditional:
		target := e.router(state)
		if !e.allows(target) {
			return "", &GraphDefinitionError{Problems: []string{
				fmt.Sprintf("router on %q returned undeclared target %q", from, target),
			}}
		}
		return target, nil
	default:
		return "", &GraphDefinitionError{Problems: []string{
			fmt.Sprintf("node %q has no routable edge", from),
		}}
	}
}

func dedupe(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
