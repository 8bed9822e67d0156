package validate

import "github.com/jward/graft/internal/graph"

// Func checks one graph. It must not modify the graph.
type Func func(g *graph.BindingGraph) []Diagnostic

// Validator is a named check.
type Validator struct {
	Name  string
	Check Func
}

// Builtin returns the built-in validators in their fixed order.
func Builtin(opts Options) []Validator {
	return []Validator{
		{Name: "binding_shape", Check: Shape},
		{Name: "map_key", Check: MapKeys(opts.MapKeyCollision)},
		{Name: "missing_binding", Check: Missing},
		{Name: "duplicate_binding", Check: Duplicates},
		{Name: "dependency_cycle", Check: Cycles},
		{Name: "incompatible_scope", Check: Scopes},
	}
}

// Run applies every validator to every graph of the forest and returns the
// combined report. All validators run even when earlier ones report errors.
func Run(f *graph.Forest, validators []Validator, opts Options) *Report {
	r := &Report{}
	for _, v := range validators {
		for _, g := range f.Graphs() {
			for _, d := range v.Check(g) {
				r.Add(opts.apply(d))
			}
		}
	}
	return r
}
