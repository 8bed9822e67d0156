// Package graph resolves component hierarchies into binding graphs.
//
// A Forest holds one BindingGraph per component path. Each graph maps keys to
// nodes; a node either owns its binding, references the node of an ancestor
// that owns it, lists conflicting bindings, or marks the key as missing.
package graph

import (
	"sort"
	"strings"

	"github.com/jward/graft/internal/binding"
	"github.com/jward/graft/internal/key"
)

// ComponentPath is the chain of components from a root to a subcomponent.
type ComponentPath []*binding.ComponentDescriptor

// Current returns the last component on the path.
func (p ComponentPath) Current() *binding.ComponentDescriptor { return p[len(p)-1] }

// Root returns the first component on the path.
func (p ComponentPath) Root() *binding.ComponentDescriptor { return p[0] }

// Child returns a new path extended by cd.
func (p ComponentPath) Child(cd *binding.ComponentDescriptor) ComponentPath {
	out := make(ComponentPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, cd)
}

// String renders the path as "App/Session/Screen".
func (p ComponentPath) String() string {
	names := make([]string, len(p))
	for i, cd := range p {
		names[i] = cd.Name
	}
	return strings.Join(names, "/")
}

// Incoming is a request that reached a node.
type Incoming struct {
	Request key.DependencyRequest
	// From is the key whose binding made the request; zero for entry points.
	From key.Key
}

// Node is the resolution of one key in one graph.
type Node struct {
	Key   key.Key
	Graph *BindingGraph
	// Binding is the chosen binding; shared with the owner for references.
	Binding *binding.Binding
	// Target is the owning node in an ancestor graph, nil when owned here.
	Target *Node
	// Conflicts lists every binding competing for the key.
	Conflicts []*binding.Binding
	Missing   bool
	Requests  []Incoming
}

// Owned reports whether the node belongs to its own graph.
func (n *Node) Owned() bool { return n.Target == nil }

// Owner returns the node that owns the binding.
func (n *Node) Owner() *Node {
	if n.Target != nil {
		return n.Target
	}
	return n
}

// Conflict reports whether more than one binding competes for the key.
func (n *Node) Conflict() bool { return len(n.Conflicts) > 1 }

// ID renders a forest-unique identity "path|key".
func (n *Node) ID() string { return n.Graph.Path.String() + "|" + n.Key.String() }

// MissingBinding records an unresolvable request and the chain of requests
// from the entry point that led to it (entry point first).
type MissingBinding struct {
	Key   key.Key
	Chain []key.DependencyRequest
}

// Edge is one dependency of an owned node.
type Edge struct {
	Request key.DependencyRequest
	To      *Node
}

// BindingGraph is the resolved graph of one component path.
type BindingGraph struct {
	Path      ComponentPath
	Component *binding.ComponentDescriptor
	Parent    *BindingGraph
	Children  []*BindingGraph
	// OwnedModules are the modules of the component's closure not already
	// installed by an ancestor.
	OwnedModules []*binding.ModuleDescriptor
	Missing      []MissingBinding

	nodes   map[key.Key]*Node
	order   []key.Key
	frozen  bool
	catalog *binding.Catalog

	explicit      map[key.Key][]*binding.Binding
	contributions map[key.Key][]*binding.Binding
	multibinds    map[key.Key][]binding.Declaration
	optionals     map[key.Key][]binding.Declaration
}

// Node returns the node for k in this graph.
func (g *BindingGraph) Node(k key.Key) (*Node, bool) {
	n, ok := g.nodes[k]
	return n, ok
}

// Lookup returns the owning node for k, following references.
func (g *BindingGraph) Lookup(k key.Key) (*Node, bool) {
	n, ok := g.nodes[k]
	if !ok {
		return nil, false
	}
	return n.Owner(), true
}

// Nodes returns every node sorted by key.
func (g *BindingGraph) Nodes() []*Node {
	keys := make([]key.Key, len(g.order))
	copy(keys, g.order)
	sort.Slice(keys, func(i, j int) bool { return key.Compare(keys[i], keys[j]) < 0 })
	out := make([]*Node, len(keys))
	for i, k := range keys {
		out[i] = g.nodes[k]
	}
	return out
}

// OwnedNodes returns the owned nodes sorted by key.
func (g *BindingGraph) OwnedNodes() []*Node {
	var out []*Node
	for _, n := range g.Nodes() {
		if n.Owned() {
			out = append(out, n)
		}
	}
	return out
}

// Len returns the number of nodes.
func (g *BindingGraph) Len() int { return len(g.nodes) }

// Dependencies returns the edges of an owned node with a single binding.
func (g *BindingGraph) Dependencies(n *Node) []Edge {
	if n.Binding == nil || !n.Owned() {
		return nil
	}
	edges := make([]Edge, 0, len(n.Binding.Dependencies))
	for _, d := range n.Binding.Dependencies {
		to, ok := n.Graph.nodes[d.Key]
		if !ok {
			continue
		}
		edges = append(edges, Edge{Request: d, To: to.Owner()})
	}
	return edges
}

// Ancestors returns the graphs above g, nearest first.
func (g *BindingGraph) Ancestors() []*BindingGraph {
	var out []*BindingGraph
	for a := g.Parent; a != nil; a = a.Parent {
		out = append(out, a)
	}
	return out
}

// Keys returns the round's key factory.
func (g *BindingGraph) Keys() *key.Factory { return g.catalog.Keys() }

// CanonicalScope resolves scope aliases.
func (g *BindingGraph) CanonicalScope(s string) string {
	return g.catalog.CanonicalScope(s)
}

// CarriesScope reports whether the component declares s, directly or
// through a scope alias.
func (g *BindingGraph) CarriesScope(s string) bool {
	want := g.CanonicalScope(s)
	for _, have := range g.Component.Scopes {
		if g.CanonicalScope(have) == want {
			return true
		}
	}
	return false
}

// Frozen reports whether the graph no longer accepts changes.
func (g *BindingGraph) Frozen() bool { return g.frozen }

func (g *BindingGraph) put(n *Node) {
	if g.frozen {
		panic("graph: modifying frozen graph " + g.Path.String())
	}
	n.Graph = g
	g.nodes[n.Key] = n
	g.order = append(g.order, n.Key)
}

// Forest is the set of graphs for every root component of a round.
type Forest struct {
	Roots   []*BindingGraph
	Catalog *binding.Catalog
}

// Graphs returns every graph, depth-first pre-order.
func (f *Forest) Graphs() []*BindingGraph {
	var out []*BindingGraph
	var walk func(g *BindingGraph)
	walk = func(g *BindingGraph) {
		out = append(out, g)
		for _, c := range g.Children {
			walk(c)
		}
	}
	for _, r := range f.Roots {
		walk(r)
	}
	return out
}

// Graph returns the graph with the given path string.
func (f *Forest) Graph(path string) (*BindingGraph, bool) {
	for _, g := range f.Graphs() {
		if g.Path.String() == path {
			return g, true
		}
	}
	return nil, false
}

// Freeze makes every graph immutable.
func (f *Forest) Freeze() {
	for _, g := range f.Graphs() {
		g.frozen = true
	}
}
