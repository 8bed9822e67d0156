package graph

import (
	"github.com/jward/graft/internal/binding"
	"github.com/jward/graft/internal/decl"
	"github.com/jward/graft/internal/key"
)

// multibindingCollection returns the plain collection key (Set<T> or
// Map<K, V>) that a request for k aggregates. Contribution keys are not
// collection requests.
func (r *resolver) multibindingCollection(k key.Key) (key.Key, bool) {
	if _, ok := k.Contribution(); ok {
		return key.Key{}, false
	}
	t := k.Type()
	switch {
	case t.Is(key.TypeSet, 1):
		if unwrapped, ok := r.keys.UnwrapSetKey(k, key.TypeProduced); ok {
			return unwrapped, true
		}
		return k, true
	case t.Is(key.TypeMap, 2):
		return r.keys.UnwrapMapValue(k), true
	}
	return key.Key{}, false
}

func (r *resolver) collectionKey(k key.Key) key.Key {
	if ck, ok := r.multibindingCollection(k); ok {
		return ck
	}
	return k
}

// contributionKeys returns the keys contributions to a collection are
// declared under.
func (r *resolver) contributionKeys(ck key.Key) []key.Key {
	if key.IsMap(ck) {
		return r.keys.ImplicitFrameworkMapKeys(ck)
	}
	return []key.Key{ck}
}

func (r *resolver) ownsMultibinding(g *BindingGraph, ck key.Key) bool {
	if len(g.multibinds[ck]) > 0 {
		return true
	}
	for _, fk := range r.contributionKeys(ck) {
		if len(g.contributions[fk]) > 0 {
			return true
		}
	}
	return false
}

func (r *resolver) hasMultibindingDeclarations(g *BindingGraph, ck key.Key) bool {
	for a := g; a != nil; a = a.Parent {
		if r.ownsMultibinding(a, ck) {
			return true
		}
	}
	return false
}

// visibleContributions returns every contribution to k's collection
// declared along g's component path, root first.
func (r *resolver) visibleContributions(g *BindingGraph, k key.Key) []*binding.Binding {
	ck, ok := r.multibindingCollection(k)
	if !ok {
		return nil
	}
	path := append([]*BindingGraph{g}, g.Ancestors()...)
	var out []*binding.Binding
	for i := len(path) - 1; i >= 0; i-- {
		for _, fk := range r.contributionKeys(ck) {
			out = append(out, path[i].contributions[fk]...)
		}
	}
	return out
}

// multibinding synthesizes a Set or Map binding from all contributions
// visible on the path. The binding is owned by the deepest graph that
// declares a contribution; graphs below it reference that binding since
// their view of the collection is identical.
func (r *resolver) multibinding(g *BindingGraph, chain *chainLink) (*Node, bool) {
	k := chain.req.Key
	ck, ok := r.multibindingCollection(k)
	if !ok || !r.hasMultibindingDeclarations(g, ck) {
		return nil, false
	}
	for a := g; a != nil; a = a.Parent {
		if !r.ownsMultibinding(a, ck) {
			continue
		}
		if a != g {
			return r.reference(a, chain), true
		}
		break
	}

	b := &binding.Binding{Kind: binding.MultiboundSet, Key: k, Element: k.String()}
	depKind := key.Instance
	if key.IsMap(k) {
		b.Kind = binding.MultiboundMap
		switch key.MapValueWrapper(k) {
		case key.TypeProvider:
			depKind = key.Provider
		case key.TypeProducer:
			depKind = key.Producer
		case key.TypeProduced:
			depKind = key.Produced
		}
	} else if ck != k {
		depKind = key.Produced
	}
	for _, c := range r.visibleContributions(g, k) {
		b.Contributions = append(b.Contributions, c.Key)
		b.Dependencies = append(b.Dependencies, key.DependencyRequest{
			Kind:    depKind,
			Key:     c.Key,
			Element: c.Element,
		})
	}
	return &Node{Binding: b}, true
}

// MapEntries returns the map-key values of a synthesized map binding's
// contributions, in contribution order. Contributions are looked up in g.
func MapEntries(g *BindingGraph, b *binding.Binding) []MapEntry {
	if b.Kind != binding.MultiboundMap {
		return nil
	}
	var out []MapEntry
	for _, ck := range b.Contributions {
		n, ok := g.Lookup(ck)
		if !ok || n.Binding == nil || n.Binding.MapKey == nil {
			continue
		}
		out = append(out, MapEntry{Key: *n.Binding.MapKey, Binding: n.Binding})
	}
	return out
}

// MapEntry is one realized entry of a multibound map.
type MapEntry struct {
	Key     decl.MapKey
	Binding *binding.Binding
}
