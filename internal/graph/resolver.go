package graph

import (
	"github.com/jward/graft/internal/binding"
	"github.com/jward/graft/internal/key"
)

// chainLink is one request in the chain from an entry point.
type chainLink struct {
	req    key.DependencyRequest
	from   key.Key
	parent *chainLink
}

func (c *chainLink) requests() []key.DependencyRequest {
	var out []key.DependencyRequest
	for l := c; l != nil; l = l.parent {
		out = append(out, l.req)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

type workItem struct {
	g     *BindingGraph
	chain *chainLink
}

type resolver struct {
	catalog *binding.Catalog
	keys    *key.Factory
	queue   []workItem
}

// Resolve builds the forest for every root component in the catalog. It
// never fails: unresolvable requests are recorded as missing bindings and
// conflicting bindings as conflict nodes.
func Resolve(c *binding.Catalog) *Forest {
	r := &resolver{catalog: c, keys: c.Keys()}
	f := &Forest{Catalog: c}
	for _, root := range c.Roots() {
		f.Roots = append(f.Roots, r.newGraph(nil, ComponentPath{root}))
	}
	for _, g := range f.Graphs() {
		for _, ep := range g.Component.EntryPoints {
			r.enqueue(g, &chainLink{req: ep.Request})
		}
	}
	for len(r.queue) > 0 {
		it := r.queue[0]
		r.queue = r.queue[1:]
		r.resolve(it.g, it.chain)
	}
	return f
}

func (r *resolver) enqueue(g *BindingGraph, chain *chainLink) {
	r.queue = append(r.queue, workItem{g: g, chain: chain})
}

func (r *resolver) newGraph(parent *BindingGraph, path ComponentPath) *BindingGraph {
	cd := path.Current()
	g := &BindingGraph{
		Path:          path,
		Component:     cd,
		Parent:        parent,
		catalog:       r.catalog,
		nodes:         make(map[key.Key]*Node),
		explicit:      make(map[key.Key][]*binding.Binding),
		contributions: make(map[key.Key][]*binding.Binding),
		multibinds:    make(map[key.Key][]binding.Declaration),
		optionals:     make(map[key.Key][]binding.Declaration),
	}

	installed := make(map[string]bool)
	for _, a := range g.Ancestors() {
		for _, m := range a.OwnedModules {
			installed[m.Name] = true
		}
	}
	for _, m := range cd.Closure {
		if !installed[m.Name] {
			g.OwnedModules = append(g.OwnedModules, m)
		}
	}

	g.addExplicit(cd.SelfBinding())
	for _, b := range cd.DependencyBindings {
		g.addExplicit(b)
	}
	for _, m := range g.OwnedModules {
		for _, b := range m.Bindings {
			g.addExplicit(b)
		}
		for _, d := range m.Multibinds {
			ck := r.collectionKey(d.Key)
			g.multibinds[ck] = append(g.multibinds[ck], d)
		}
		for _, d := range m.OptionalOf {
			g.optionals[d.Key] = append(g.optionals[d.Key], d)
		}
	}

	for _, sub := range cd.Subcomponents {
		g.Children = append(g.Children, r.newGraph(g, path.Child(sub)))
	}
	return g
}

func (g *BindingGraph) addExplicit(b *binding.Binding) {
	g.explicit[b.Key] = append(g.explicit[b.Key], b)
	if b.IsContribution() {
		ck := b.Key.WithoutContribution()
		g.contributions[ck] = append(g.contributions[ck], b)
	}
}

// resolve handles one work item: the last request of the chain at g.
func (r *resolver) resolve(g *BindingGraph, chain *chainLink) *Node {
	k := chain.req.Key
	in := Incoming{Request: chain.req, From: chain.from}

	if n, ok := g.nodes[k]; ok {
		n.Requests = append(n.Requests, in)
		return n
	}

	n := r.lookup(g, chain)
	n.Key = k
	n.Requests = append(n.Requests, in)
	g.put(n)
	if n.Owned() && n.Binding != nil {
		for _, d := range n.Binding.Dependencies {
			r.enqueue(g, &chainLink{req: d, from: k, parent: chain})
		}
	}
	if n.Missing {
		g.Missing = append(g.Missing, MissingBinding{Key: k, Chain: chain.requests()})
	}
	return n
}

// lookup finds the node for a key not yet present in g, in precedence order.
func (r *resolver) lookup(g *BindingGraph, chain *chainLink) *Node {
	k := chain.req.Key

	if !r.dependsOnLocalBindings(g, k) {
		for _, a := range g.Ancestors() {
			if an, ok := a.nodes[k]; ok && !an.Missing {
				owner := an.Owner()
				return &Node{Binding: owner.Binding, Target: owner, Conflicts: owner.Conflicts}
			}
		}
	}

	if local := g.explicit[k]; len(local) > 0 {
		if all := r.conflicting(g, k, local); len(all) > 1 {
			return &Node{Conflicts: all}
		}
		return &Node{Binding: local[0]}
	}

	for _, a := range g.Ancestors() {
		if len(a.explicit[k]) == 0 {
			continue
		}
		if contribs := r.visibleContributions(g, k); len(contribs) > 0 {
			return &Node{Conflicts: append(append([]*binding.Binding{}, a.explicit[k]...), contribs...)}
		}
		return r.reference(a, chain)
	}

	if n, ok := r.multibinding(g, chain); ok {
		return n
	}
	if n, ok := r.optional(g, k); ok {
		return n
	}
	if b, ok := r.catalog.MembersInjection(k); ok {
		return &Node{Binding: b}
	}
	if b, ok := r.catalog.Injection(k); ok {
		if owner := r.scopeOwner(g, b); owner != g {
			return r.reference(owner, chain)
		}
		return &Node{Binding: b}
	}
	return &Node{Missing: true}
}

// reference resolves the request at an ancestor and returns a local node
// pointing at the owner.
func (r *resolver) reference(a *BindingGraph, chain *chainLink) *Node {
	owner := r.resolve(a, chain).Owner()
	return &Node{Binding: owner.Binding, Target: owner, Conflicts: owner.Conflicts}
}

// conflicting returns local plus every binding that competes with it: the
// explicit bindings of ancestors (local shadowing) and multibinding
// contributions to the same key.
func (r *resolver) conflicting(g *BindingGraph, k key.Key, local []*binding.Binding) []*binding.Binding {
	all := append([]*binding.Binding{}, local...)
	if _, ok := k.Contribution(); ok {
		return all
	}
	for _, a := range g.Ancestors() {
		all = append(all, a.explicit[k]...)
	}
	all = append(all, r.visibleContributions(g, k)...)
	return all
}

// hasLocalBindings reports whether g itself declares something for k that
// would make an ancestor's resolution wrong for g.
func (r *resolver) hasLocalBindings(g *BindingGraph, k key.Key) bool {
	if len(g.explicit[k]) > 0 {
		return true
	}
	if ck, ok := r.multibindingCollection(k); ok {
		for _, fk := range r.contributionKeys(ck) {
			if len(g.contributions[fk]) > 0 {
				return true
			}
		}
		if len(g.multibinds[ck]) > 0 {
			return true
		}
	}
	if inner, _, ok := r.keys.UnwrapOptional(k); ok {
		return r.hasLocalBindings(g, inner)
	}
	return false
}

// dependsOnLocalBindings reports whether resolving k at g could differ from
// an ancestor's resolution of k: either k itself has local bindings, or a key
// reached through bindings that g would own (unscoped injections, members
// injection, optionals) does. Explicit ancestor bindings and scoped
// injections stop the walk since their owner is fixed regardless of g.
func (r *resolver) dependsOnLocalBindings(g *BindingGraph, k key.Key) bool {
	seen := make(map[key.Key]bool)
	stack := []key.Key{k}
	for len(stack) > 0 {
		x := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[x] {
			continue
		}
		seen[x] = true
		if r.hasLocalBindings(g, x) {
			return true
		}
		for _, d := range r.locallyOwnedDependencies(g, x) {
			stack = append(stack, d.Key)
		}
	}
	return false
}

// locallyOwnedDependencies returns the dependencies of the binding g would
// own for k when g declares nothing for k itself, or nil when k is owned
// elsewhere or cannot be resolved.
func (r *resolver) locallyOwnedDependencies(g *BindingGraph, k key.Key) []key.DependencyRequest {
	for a := g.Parent; a != nil; a = a.Parent {
		if len(a.explicit[k]) > 0 {
			return nil
		}
	}
	if inner, kind, ok := r.keys.UnwrapOptional(k); ok {
		return []key.DependencyRequest{{Kind: kind, Key: inner}}
	}
	if b, ok := r.catalog.MembersInjection(k); ok {
		return b.Dependencies
	}
	if b, ok := r.catalog.Injection(k); ok && r.scopeOwner(g, b) == g {
		return b.Dependencies
	}
	return nil
}

// scopeOwner returns the nearest graph on the path whose component carries
// the binding's scope, or g when the binding is unscoped, reusable, or no
// component carries the scope.
func (r *resolver) scopeOwner(g *BindingGraph, b *binding.Binding) *BindingGraph {
	if !b.IsScoped() || b.IsReusable() {
		return g
	}
	for a := g; a != nil; a = a.Parent {
		if a.CarriesScope(b.Scope) {
			return a
		}
	}
	return g
}

// resolvable reports whether k would resolve to a binding at g, without
// recording anything.
func (r *resolver) resolvable(g *BindingGraph, k key.Key) bool {
	if n, ok := g.nodes[k]; ok {
		return !n.Missing
	}
	for a := g; a != nil; a = a.Parent {
		if len(a.explicit[k]) > 0 {
			return true
		}
	}
	if ck, ok := r.multibindingCollection(k); ok && r.hasMultibindingDeclarations(g, ck) {
		return true
	}
	if key.IsOptional(k) {
		return true
	}
	if _, ok := r.catalog.MembersInjection(k); ok {
		return true
	}
	_, ok := r.catalog.Injection(k)
	return ok
}

// optional synthesizes the binding for Optional<T>: present when T is
// resolvable, absent otherwise. Absence is never an error.
func (r *resolver) optional(g *BindingGraph, k key.Key) (*Node, bool) {
	inner, kind, ok := r.keys.UnwrapOptional(k)
	if !ok {
		return nil, false
	}
	b := &binding.Binding{
		Kind:       binding.Optional,
		Key:        k,
		Underlying: inner,
		Element:    "Optional<" + inner.String() + ">",
	}
	for a := g; a != nil; a = a.Parent {
		if decls := a.optionals[inner]; len(decls) > 0 {
			b.Module = decls[0].Module
			b.Element = decls[0].Element
			break
		}
	}
	if r.resolvable(g, inner) {
		b.Present = true
		b.Dependencies = []key.DependencyRequest{{Kind: kind, Key: inner, Element: b.Element}}
	}
	return &Node{Binding: b}, true
}
