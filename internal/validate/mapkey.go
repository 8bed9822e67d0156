package validate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jward/graft/internal/binding"
	"github.com/jward/graft/internal/graph"
	"github.com/jward/graft/internal/key"
)

// MapKeys returns the map-key validator. It reports missing, ambiguous and
// unrecognized map keys, and duplicate map-key values unless the policy
// defers those to runtime.
func MapKeys(policy MapKeyCollisionPolicy) Func {
	return func(g *graph.BindingGraph) []Diagnostic {
		path := g.Path.String()
		var out []Diagnostic
		for _, m := range g.OwnedModules {
			for _, r := range m.Rejected {
				if !r.Shape.IsMapKey() {
					continue
				}
				out = append(out, Diagnostic{
					Kind:      KindMapKey,
					Severity:  Error,
					Component: path,
					Element:   r.Element,
					Message:   r.String(),
				})
			}
		}
		if policy == DeferToRuntime {
			return out
		}

		reported := make(map[key.Key]bool)
		for _, n := range g.OwnedNodes() {
			if n.Binding == nil || n.Binding.Kind != binding.MultiboundMap {
				continue
			}
			collection := g.Keys().UnwrapMapValue(n.Key)
			if reported[collection] {
				continue
			}
			reported[collection] = true
			out = append(out, collisions(g, n, collection)...)
		}
		return out
	}
}

func collisions(g *graph.BindingGraph, n *graph.Node, collection key.Key) []Diagnostic {
	byValue := make(map[string][]*binding.Binding)
	var values []string
	for _, e := range graph.MapEntries(g, n.Binding) {
		v := e.Key.Value
		if _, ok := byValue[v]; !ok {
			values = append(values, v)
		}
		byValue[v] = append(byValue[v], e.Binding)
	}
	sort.Strings(values)

	var out []Diagnostic
	for _, v := range values {
		bs := byValue[v]
		if len(bs) < 2 {
			continue
		}
		var elements []string
		for _, b := range bs {
			elements = append(elements, b.Element)
		}
		out = append(out, Diagnostic{
			Kind:      KindMapKey,
			Severity:  Error,
			Component: g.Path.String(),
			Key:       collection.String(),
			Element:   strings.Join(elements, ", "),
			Message: fmt.Sprintf("The same map key is bound more than once for %s: %q%s",
				collection, v, FormatBindings(bs)),
		})
	}
	return out
}
