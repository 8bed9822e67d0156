// Package strategy decides how the emission stage realizes each binding of a
// validated forest: which factory shape it gets, whether and how its value
// is cached, and how dependents reach it.
package strategy

import (
	"fmt"

	"github.com/jward/graft/internal/binding"
	"github.com/jward/graft/internal/graph"
	"github.com/jward/graft/internal/key"
)

// Factory is the shape of the generated factory.
type Factory int

const (
	// Stateless factories have no dependencies and no module instance; one
	// shared instance serves every component.
	Stateless Factory = iota
	// Instance factories are constructed once per owning component instance
	// with the providers of their dependencies.
	Instance
)

var factoryNames = [...]string{Stateless: "stateless", Instance: "instance"}

func (f Factory) String() string { return factoryNames[f] }

// Caching is the generated caching layer around a factory.
type Caching int

const (
	None Caching = iota
	// DoubleCheck computes at most once per scope-owning component
	// instance, even under concurrent first access.
	DoubleCheck
	// SingleCheck tolerates duplicate computation on a race; every caller
	// converges on one of the computed values.
	SingleCheck
)

var cachingNames = [...]string{None: "none", DoubleCheck: "double_check", SingleCheck: "single_check"}

func (c Caching) String() string { return cachingNames[c] }

// Access is how dependents obtain the value.
type Access int

const (
	// Inline is a direct constructor or method call at the use site.
	Inline Access = iota
	// PrivateMethod wraps the call in a component method shared by every
	// use site so the construction body is generated once.
	PrivateMethod
	// FactoryField stores the factory in a field so framework requests
	// (Provider, Lazy, Producer) can hand it out.
	FactoryField
	// CachedField stores the caching wrapper in a field.
	CachedField
	// Indirection is a lazily-initialized delegate field that lets a cycle
	// broken by a deferred request reference its target before it exists.
	Indirection
)

var accessNames = [...]string{
	Inline:        "inline",
	PrivateMethod: "private_method",
	FactoryField:  "factory_field",
	CachedField:   "cached_field",
	Indirection:   "indirection",
}

func (a Access) String() string { return accessNames[a] }

// Strategy is the decision for one owned binding.
type Strategy struct {
	Component string
	Key       key.Key
	Binding   *binding.Binding
	Factory   Factory
	Caching   Caching
	Access    Access
	// Requests counts every request reaching the binding, including those
	// made through references in descendant graphs.
	Requests int
}

func (s Strategy) String() string {
	return fmt.Sprintf("%s %s: %s/%s/%s", s.Component, s.Key, s.Factory, s.Caching, s.Access)
}

// Plan holds the strategies of a forest in graph pre-order, nodes sorted by
// key within each graph.
type Plan struct {
	Strategies []Strategy
	byNode     map[*graph.Node]int
}

// For returns the strategy of the node that owns n's binding.
func (p *Plan) For(n *graph.Node) (Strategy, bool) {
	i, ok := p.byNode[n.Owner()]
	if !ok {
		return Strategy{}, false
	}
	return p.Strategies[i], true
}

// Select computes the strategy of every owned, bound node of f. Missing and
// conflicting nodes get no strategy.
func Select(f *graph.Forest) *Plan {
	requests := make(map[*graph.Node]int)
	framework := make(map[*graph.Node]bool)
	for _, g := range f.Graphs() {
		for _, n := range g.Nodes() {
			owner := n.Owner()
			requests[owner] += len(n.Requests)
			for _, in := range n.Requests {
				if in.Request.Kind.Framework() {
					framework[owner] = true
				}
			}
		}
	}

	cyclic := make(map[*graph.Node]bool)
	for _, scc := range f.Cycles(graph.AllEdges) {
		for _, n := range scc {
			cyclic[n] = true
		}
	}

	p := &Plan{byNode: make(map[*graph.Node]int)}
	for _, g := range f.Graphs() {
		for _, n := range g.OwnedNodes() {
			b := n.Binding
			if b == nil || n.Conflict() {
				continue
			}
			s := Strategy{
				Component: g.Path.String(),
				Key:       n.Key,
				Binding:   b,
				Factory:   factoryFor(b),
				Caching:   cachingFor(g, b),
				Requests:  requests[n],
			}
			s.Access = accessFor(b, s.Caching, s.Requests, framework[n], cyclic[n])
			p.byNode[n] = len(p.Strategies)
			p.Strategies = append(p.Strategies, s)
		}
	}
	return p
}

func factoryFor(b *binding.Binding) Factory {
	if len(b.Dependencies) == 0 && !b.RequiresModuleInstance {
		return Stateless
	}
	return Instance
}

// cachingFor picks the caching for an owned binding. A scoped binding is
// cached even with a single request site: the scope promises one instance
// per component, not one per request.
func cachingFor(g *graph.BindingGraph, b *binding.Binding) Caching {
	switch {
	case !b.IsScoped():
		return None
	case b.IsReusable():
		return SingleCheck
	case b.Kind == binding.Delegate && delegatesToSameScope(g, b):
		// The target's cache already serves the alias.
		return None
	}
	return DoubleCheck
}

func delegatesToSameScope(g *graph.BindingGraph, b *binding.Binding) bool {
	if len(b.Dependencies) != 1 {
		return false
	}
	target, ok := g.Node(b.Dependencies[0].Key)
	if !ok || target.Binding == nil || !target.Binding.IsScoped() {
		return false
	}
	return g.CanonicalScope(target.Binding.Scope) == g.CanonicalScope(b.Scope)
}

func accessFor(b *binding.Binding, c Caching, requests int, framework, cyclic bool) Access {
	switch {
	case cyclic:
		return Indirection
	case c != None:
		return CachedField
	case framework:
		return FactoryField
	case requests > 1 && len(b.Dependencies) > 0:
		return PrivateMethod
	}
	return Inline
}
