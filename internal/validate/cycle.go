package validate

import (
	"strings"

	"github.com/jward/graft/internal/graph"
)

// Cycles reports dependency cycles in which every edge is a request that
// needs the value itself. A Provider, Lazy or Producer edge anywhere on the
// loop breaks the cycle.
func Cycles(g *graph.BindingGraph) []Diagnostic {
	var out []Diagnostic
	for _, scc := range g.Cycles(graph.InstanceOnly) {
		path := cyclePath(g, scc)
		var b strings.Builder
		b.WriteString("Found a dependency cycle:")
		var elements []string
		for _, e := range path {
			b.WriteByte('\n')
			b.WriteString(FormatRequest(e.Request, false))
			elements = append(elements, e.Request.Element)
		}
		out = append(out, Diagnostic{
			Kind:      KindCycle,
			Severity:  Error,
			Component: g.Path.String(),
			Key:       scc[0].Key.String(),
			Element:   strings.Join(elements, ", "),
			Message:   b.String(),
		})
	}
	return out
}

// cyclePath walks instance edges inside scc from its first node until it
// returns there.
func cyclePath(g *graph.BindingGraph, scc []*graph.Node) []graph.Edge {
	in := make(map[*graph.Node]bool, len(scc))
	for _, n := range scc {
		in[n] = true
	}
	start := scc[0]
	visited := map[*graph.Node]bool{start: true}
	var path []graph.Edge
	var walk func(n *graph.Node) bool
	walk = func(n *graph.Node) bool {
		for _, e := range g.Dependencies(n) {
			if !graph.InstanceOnly(e.Request) || !in[e.To] {
				continue
			}
			path = append(path, e)
			if e.To == start {
				return true
			}
			if !visited[e.To] {
				visited[e.To] = true
				if walk(e.To) {
					return true
				}
			}
			path = path[:len(path)-1]
		}
		return false
	}
	walk(start)
	return path
}
