package validate

import (
	"fmt"

	"github.com/jward/graft/internal/binding"
	"github.com/jward/graft/internal/graph"
	"github.com/jward/graft/internal/key"
)

// Shape reports declarations rejected during extraction, other than map-key
// problems, and production bindings used outside production components.
func Shape(g *graph.BindingGraph) []Diagnostic {
	path := g.Path.String()
	var out []Diagnostic
	add := func(r binding.Rejected) {
		if r.Shape.IsMapKey() {
			return
		}
		out = append(out, Diagnostic{
			Kind:      KindShape,
			Severity:  Error,
			Component: path,
			Element:   r.Element,
			Message:   r.String(),
		})
	}
	for _, r := range g.Component.Rejected {
		add(r)
	}
	for _, m := range g.OwnedModules {
		for _, r := range m.Rejected {
			add(r)
		}
	}

	if g.Component.Kind.IsProducer() {
		return out
	}
	for _, ep := range g.Component.EntryPoints {
		switch ep.Request.Kind {
		case key.Producer, key.Produced, key.Future:
			out = append(out, Diagnostic{
				Kind:      KindShape,
				Severity:  Error,
				Component: path,
				Key:       ep.Request.Key.String(),
				Element:   ep.Request.Element,
				Message: fmt.Sprintf("%s: %s requests may only be made by production components",
					ep.Request.Element, ep.Request.Kind),
			})
		}
	}
	for _, n := range g.OwnedNodes() {
		if n.Binding == nil || !n.Binding.IsProduction() {
			continue
		}
		out = append(out, Diagnostic{
			Kind:      KindShape,
			Severity:  Error,
			Component: path,
			Key:       n.Key.String(),
			Element:   n.Binding.Element,
			Message: fmt.Sprintf("%s is a production binding and may only be used in production components, not %s",
				n.Binding.Declaration(), g.Component.Name),
		})
	}
	return out
}
