package validate

import (
	"fmt"

	"github.com/jward/graft/internal/graph"
	"github.com/jward/graft/internal/key"
)

// Missing reports every key that could not be resolved, with the request
// chain that led to it.
func Missing(g *graph.BindingGraph) []Diagnostic {
	out := make([]Diagnostic, 0, len(g.Missing))
	for _, m := range g.Missing {
		element := ""
		if len(m.Chain) > 0 {
			element = m.Chain[len(m.Chain)-1].Element
		}
		out = append(out, Diagnostic{
			Kind:      KindMissing,
			Severity:  Error,
			Component: g.Path.String(),
			Key:       m.Key.String(),
			Element:   element,
			Message:   missingMessage(m.Key) + FormatChain(m.Chain),
			Chain:     m.Chain,
		})
	}
	return out
}

func missingMessage(k key.Key) string {
	switch {
	case k.Qualifier() != "":
		return fmt.Sprintf("%s cannot be provided without an @Provides-annotated method.", k)
	case key.IsMultibindingType(k):
		return fmt.Sprintf("%s cannot be provided without an @Provides-annotated method or a multibinding contribution.", k)
	}
	return fmt.Sprintf("%s cannot be provided without an @Inject constructor or an @Provides-annotated method.", k)
}

// Duplicates reports keys with more than one competing binding. Each
// conflict is reported once, in the graph that owns it.
func Duplicates(g *graph.BindingGraph) []Diagnostic {
	var out []Diagnostic
	for _, n := range g.OwnedNodes() {
		if !n.Conflict() {
			continue
		}
		verb := "is bound multiple times:"
		for _, b := range n.Conflicts {
			if b.IsContribution() {
				verb = "has incompatible bindings or declarations:"
				break
			}
		}
		out = append(out, Diagnostic{
			Kind:      KindDuplicate,
			Severity:  Error,
			Component: g.Path.String(),
			Key:       n.Key.String(),
			Element:   n.Conflicts[0].Element,
			Message:   fmt.Sprintf("%s %s%s", n.Key, verb, FormatBindings(n.Conflicts)),
		})
	}
	return out
}
