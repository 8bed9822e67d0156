package binding

import (
	"github.com/jward/graft/internal/decl"
	"github.com/jward/graft/internal/key"
)

// Catalog builds and memoizes descriptors for one round. It is not safe for
// concurrent use; resolution is single threaded.
type Catalog struct {
	index  *decl.Index
	keys   *key.Factory
	policy Policy

	modules    *Arena[ModuleDescriptor]
	components *Arena[ComponentDescriptor]
	injections *Arena[Binding]
	members    *Arena[Binding]
}

// NewCatalog returns a catalog over a declaration set.
func NewCatalog(set *decl.Set, policy Policy) *Catalog {
	return &Catalog{
		index:      decl.NewIndex(set),
		keys:       key.NewFactory(set.Classpath),
		policy:     policy,
		modules:    NewArena[ModuleDescriptor](),
		components: NewArena[ComponentDescriptor](),
		injections: NewArena[Binding](),
		members:    NewArena[Binding](),
	}
}

// Keys returns the key factory bound to the round's classpath.
func (c *Catalog) Keys() *key.Factory { return c.keys }

// Policy returns the extraction policy.
func (c *Catalog) Policy() Policy { return c.policy }

// Module returns the descriptor of the named module.
func (c *Catalog) Module(name string) (*ModuleDescriptor, bool) {
	d, ok := c.index.Module(name)
	if !ok {
		return nil, false
	}
	return c.modules.Get(name, func(md *ModuleDescriptor) { c.buildModule(d, md) }), true
}

// Component returns the descriptor of the named component.
func (c *Catalog) Component(name string) (*ComponentDescriptor, bool) {
	d, ok := c.index.Component(name)
	if !ok {
		return nil, false
	}
	return c.component(d), true
}

func (c *Catalog) component(d *decl.Component) *ComponentDescriptor {
	return c.components.Get(d.Name, func(cd *ComponentDescriptor) { c.buildComponent(d, cd) })
}

// Roots returns the descriptors of all root components, sorted by name.
func (c *Catalog) Roots() []*ComponentDescriptor {
	names := c.index.RootComponents()
	out := make([]*ComponentDescriptor, 0, len(names))
	for _, name := range names {
		cd, _ := c.Component(name)
		out = append(out, cd)
	}
	return out
}

// Injection returns the implicit constructor-injection binding for k. Only
// unqualified keys of declared injectable types have one.
func (c *Catalog) Injection(k key.Key) (*Binding, bool) {
	if k.Qualifier() != "" {
		return nil, false
	}
	if _, ok := k.Contribution(); ok {
		return nil, false
	}
	in, ok := c.index.Injectable(k.TypeString())
	if !ok || in.MembersOnly {
		return nil, false
	}
	b := c.injections.Get(k.TypeString(), func(b *Binding) {
		b.Kind = Injection
		b.Key = k
		b.Scope = in.Scope
		b.Element = k.TypeString()
		b.Dependencies = c.injectionRequests(k.TypeString(), in.Params, in.Members)
	})
	return b, true
}

// MembersInjection returns the binding for a MembersInjector<T> key. Types
// with no declared injectable members get a binding with no dependencies.
func (c *Catalog) MembersInjection(k key.Key) (*Binding, bool) {
	t := k.Type()
	if !t.Is(key.TypeMembersInjector, 1) || k.Qualifier() != "" {
		return nil, false
	}
	target := t.Args[0].String()
	b := c.members.Get(target, func(b *Binding) {
		b.Kind = MembersInjection
		b.Key = k
		b.Element = target
		if in, ok := c.index.Injectable(target); ok {
			b.Dependencies = c.injectionRequests(target, nil, in.Members)
		}
	})
	return b, true
}

func (c *Catalog) injectionRequests(owner string, params, members []decl.Param) []key.DependencyRequest {
	out := make([]key.DependencyRequest, 0, len(params)+len(members))
	add := func(p decl.Param, element string) {
		t, err := key.ParseType(p.Type)
		if err != nil {
			// Rejected when the manifest is loaded.
			return
		}
		req := key.RequestFor(t, p.Qualifier, element)
		req.Nullable = p.Nullable
		out = append(out, req)
	}
	for _, p := range params {
		add(p, owner+"("+p.Name+")")
	}
	for _, p := range members {
		add(p, owner+"."+p.Name)
	}
	return out
}

// CanonicalScope follows scope aliases to the scope they stand for.
func (c *Catalog) CanonicalScope(s string) string {
	seen := map[string]bool{s: true}
	for {
		of, ok := c.index.AliasOf(s)
		if !ok || seen[of] {
			return s
		}
		seen[of] = true
		s = of
	}
}

// Stats reports arena counters by arena name.
func (c *Catalog) Stats() map[string]ArenaStats {
	return map[string]ArenaStats{
		"modules":    c.modules.Stats(),
		"components": c.components.Stats(),
		"injections": c.injections.Stats(),
		"members":    c.members.Stats(),
	}
}

// Reset discards every memoized descriptor.
func (c *Catalog) Reset() {
	c.modules.Reset()
	c.components.Reset()
	c.injections.Reset()
	c.members.Reset()
}
