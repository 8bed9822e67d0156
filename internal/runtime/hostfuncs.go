package runtime

import (
	"context"

	"github.com/risor-io/risor/object"

	"github.com/jward/graft/internal/graph"
	"github.com/jward/graft/internal/key"
	"github.com/jward/graft/internal/validate"
)

// graphHost exposes one resolved graph to a validator script and collects
// the diagnostics it reports.
//
// Globals:
//
//	component          map: name, path, kind, scopes, parent
//	bindings()         list of node maps, sorted by key
//	binding_for(key)   node map for a rendered key, or nil
//	entry_points()     list of request maps with a "method" entry
//	report(severity, message[, key[, element]])
type graphHost struct {
	g     *graph.BindingGraph
	kind  validate.Kind
	nodes map[string]*graph.Node
	diags []validate.Diagnostic
}

func newGraphHost(g *graph.BindingGraph, kind validate.Kind) *graphHost {
	h := &graphHost{g: g, kind: kind, nodes: make(map[string]*graph.Node)}
	for _, n := range g.Nodes() {
		h.nodes[n.Key.String()] = n
	}
	return h
}

func (h *graphHost) globals() map[string]any {
	return map[string]any{
		"component":    componentObject(h.g),
		"bindings":     h.makeBindingsFn(),
		"binding_for":  h.makeBindingForFn(),
		"entry_points": h.makeEntryPointsFn(),
		"report":       h.makeReportFn(),
	}
}

func componentObject(g *graph.BindingGraph) object.Object {
	scopes := make([]object.Object, len(g.Component.Scopes))
	for i, s := range g.Component.Scopes {
		scopes[i] = object.NewString(s)
	}
	m := map[string]object.Object{
		"name":   object.NewString(g.Component.Name),
		"path":   object.NewString(g.Path.String()),
		"kind":   object.NewString(string(g.Component.Kind)),
		"scopes": object.NewList(scopes),
		"parent": object.Nil,
	}
	if g.Parent != nil {
		m["parent"] = object.NewString(g.Parent.Path.String())
	}
	return object.NewMap(m)
}

// makeBindingsFn creates the "bindings" host function.
//
// bindings() → []map
func (h *graphHost) makeBindingsFn() *object.Builtin {
	return object.NewBuiltin("bindings", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("bindings", 0, len(args))
		}
		nodes := h.g.Nodes()
		out := make([]object.Object, len(nodes))
		for i, n := range nodes {
			out[i] = nodeObject(n)
		}
		return object.NewList(out)
	})
}

// makeBindingForFn creates the "binding_for" host function.
//
// binding_for(key) → map or nil
func (h *graphHost) makeBindingForFn() *object.Builtin {
	return object.NewBuiltin("binding_for", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("binding_for", 1, len(args))
		}
		k, err := toString(args[0])
		if err != nil {
			return object.Errorf("binding_for: %v", err)
		}
		n, ok := h.nodes[k]
		if !ok {
			return object.Nil
		}
		return nodeObject(n)
	})
}

// makeEntryPointsFn creates the "entry_points" host function.
//
// entry_points() → []map
func (h *graphHost) makeEntryPointsFn() *object.Builtin {
	return object.NewBuiltin("entry_points", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 0 {
			return object.NewArgsError("entry_points", 0, len(args))
		}
		eps := h.g.Component.EntryPoints
		out := make([]object.Object, len(eps))
		for i, ep := range eps {
			m := requestMap(ep.Request)
			m["method"] = object.NewString(ep.Method)
			out[i] = object.NewMap(m)
		}
		return object.NewList(out)
	})
}

// makeReportFn creates the "report" host function.
//
// report(severity, message[, key[, element]]) → nil
func (h *graphHost) makeReportFn() *object.Builtin {
	return object.NewBuiltin("report", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) < 2 || len(args) > 4 {
			return object.Errorf("report: expected 2 to 4 arguments, got %d", len(args))
		}
		sevStr, err := toString(args[0])
		if err != nil {
			return object.Errorf("report: severity: %v", err)
		}
		sev, err := validate.ParseSeverity(sevStr)
		if err != nil {
			return object.Errorf("report: %v", err)
		}
		msg, err := toString(args[1])
		if err != nil {
			return object.Errorf("report: message: %v", err)
		}
		d := validate.Diagnostic{
			Kind:      h.kind,
			Severity:  sev,
			Component: h.g.Path.String(),
			Message:   msg,
		}
		if len(args) > 2 {
			d.Key = optionalString(args[2])
		}
		if len(args) > 3 {
			d.Element = optionalString(args[3])
		}
		h.diags = append(h.diags, d)
		return object.Nil
	})
}

// nodeObject renders a node. Missing and conflicting nodes carry empty
// binding details; references report the owner's component.
func nodeObject(n *graph.Node) object.Object {
	owner := n.Owner()
	m := map[string]object.Object{
		"key":          object.NewString(n.Key.String()),
		"owned":        object.NewBool(n.Owned()),
		"component":    object.NewString(owner.Graph.Path.String()),
		"missing":      object.NewBool(n.Missing),
		"conflict":     object.NewBool(n.Conflict()),
		"kind":         object.NewString("missing"),
		"scope":        object.NewString(""),
		"nullable":     object.NewBool(false),
		"module":       object.NewString(""),
		"element":      object.NewString(""),
		"declaration":  object.NewString(""),
		"dependencies": object.NewList([]object.Object{}),
	}
	b := n.Binding
	if b == nil || n.Missing {
		return object.NewMap(m)
	}
	deps := make([]object.Object, len(b.Dependencies))
	for i, d := range b.Dependencies {
		deps[i] = object.NewMap(requestMap(d))
	}
	m["kind"] = object.NewString(b.Kind.String())
	m["scope"] = object.NewString(b.Scope)
	m["nullable"] = object.NewBool(b.Nullable)
	m["module"] = object.NewString(b.Module)
	m["element"] = object.NewString(b.Element)
	m["declaration"] = object.NewString(b.Declaration())
	m["dependencies"] = object.NewList(deps)
	return object.NewMap(m)
}

func requestMap(r key.DependencyRequest) map[string]object.Object {
	return map[string]object.Object{
		"key":      object.NewString(r.Key.String()),
		"kind":     object.NewString(r.Kind.String()),
		"element":  object.NewString(r.Element),
		"nullable": object.NewBool(r.Nullable),
	}
}
