package validate

import (
	"fmt"
	"strings"

	"github.com/jward/graft/internal/binding"
	"github.com/jward/graft/internal/graph"
)

// Scopes reports bindings whose scope is not carried by the component that
// owns them, and subcomponents that repeat a scope of an ancestor. Reusable
// bindings may be cached anywhere.
func Scopes(g *graph.BindingGraph) []Diagnostic {
	var out []Diagnostic
	path := g.Path.String()

	var incompatible []*binding.Binding
	for _, n := range g.OwnedNodes() {
		b := n.Binding
		if b == nil || !b.IsScoped() || b.IsReusable() {
			continue
		}
		if !g.CarriesScope(b.Scope) {
			incompatible = append(incompatible, b)
		}
	}
	if len(incompatible) > 0 {
		var msg strings.Builder
		msg.WriteString(path)
		if len(g.Component.Scopes) == 0 {
			msg.WriteString(" (unscoped) may not reference scoped bindings:")
		} else {
			msg.WriteString(" scoped with ")
			msg.WriteString(strings.Join(g.Component.Scopes, " "))
			msg.WriteString(" may not reference bindings with different scopes:")
		}
		msg.WriteString(FormatBindings(incompatible))
		elements := make([]string, len(incompatible))
		for i, b := range incompatible {
			elements[i] = b.Element
		}
		out = append(out, Diagnostic{
			Kind:      KindScope,
			Severity:  Error,
			Component: path,
			Element:   strings.Join(elements, ", "),
			Message:   msg.String(),
		})
	}

	for _, s := range g.Component.Scopes {
		if s == binding.ProductionScope {
			continue
		}
		for _, a := range g.Ancestors() {
			if a.CarriesScope(s) {
				out = append(out, Diagnostic{
					Kind:      KindScope,
					Severity:  Error,
					Component: path,
					Element:   g.Component.Name,
					Message: fmt.Sprintf("%s has conflicting scopes: %s also has %s",
						path, a.Path, s),
				})
				break
			}
		}
	}
	return out
}
