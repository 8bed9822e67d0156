package decl

import (
	"sort"

	"github.com/jward/graft/internal/key"
)

// Index provides lookup by name over a Set. The first declaration of a name
// wins; duplicate names are rejected earlier, when manifests are merged.
type Index struct {
	set         *Set
	modules     map[string]*Module
	components  map[string]*Component
	injectables map[string]*Injectable
	aliases     map[string]string
}

// NewIndex indexes s. The Set must not be modified afterwards.
func NewIndex(s *Set) *Index {
	idx := &Index{
		set:         s,
		modules:     make(map[string]*Module, len(s.Modules)),
		components:  make(map[string]*Component, len(s.Components)),
		injectables: make(map[string]*Injectable, len(s.Injectables)),
		aliases:     make(map[string]string, len(s.ScopeAliases)),
	}
	for i := range s.Modules {
		m := &s.Modules[i]
		if _, ok := idx.modules[m.Name]; !ok {
			idx.modules[m.Name] = m
		}
	}
	for i := range s.Components {
		c := &s.Components[i]
		if _, ok := idx.components[c.Name]; !ok {
			idx.components[c.Name] = c
		}
	}
	for i := range s.Injectables {
		in := &s.Injectables[i]
		typ := in.Type
		if t, err := key.ParseType(typ); err == nil {
			typ = t.String()
		}
		if _, ok := idx.injectables[typ]; !ok {
			idx.injectables[typ] = in
		}
	}
	for _, a := range s.ScopeAliases {
		idx.aliases[a.Alias] = a.Of
	}
	return idx
}

// Set returns the indexed declaration set.
func (idx *Index) Set() *Set { return idx.set }

// Module returns the module declaration with the given name.
func (idx *Index) Module(name string) (*Module, bool) {
	m, ok := idx.modules[name]
	return m, ok
}

// Component returns the component declaration with the given name.
func (idx *Index) Component(name string) (*Component, bool) {
	c, ok := idx.components[name]
	return c, ok
}

// Injectable returns the injectable declaration for a canonical type name.
func (idx *Index) Injectable(typ string) (*Injectable, bool) {
	in, ok := idx.injectables[typ]
	return in, ok
}

// AliasOf returns the scope that alias stands for.
func (idx *Index) AliasOf(alias string) (string, bool) {
	of, ok := idx.aliases[alias]
	return of, ok
}

// RootComponents returns the names of all root components, sorted.
func (idx *Index) RootComponents() []string {
	var names []string
	for name, c := range idx.components {
		if c.Kind.IsRoot() {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}
