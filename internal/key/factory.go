package key

// Classpath lists which optional framework classes are available in the
// current compilation. Provider is always available; Producer and Produced
// require producers support.
type Classpath struct {
	Producers bool `yaml:"producers" json:"producers"`
}

// Has reports whether the named wrapper class is available.
func (c Classpath) Has(name string) bool {
	switch name {
	case TypeProducer, TypeProduced:
		return c.Producers
	}
	return true
}

// Factory converts between the representations of the same logical key.
type Factory struct {
	classpath Classpath
}

// NewFactory returns a Factory bound to a classpath.
func NewFactory(cp Classpath) *Factory {
	return &Factory{classpath: cp}
}

// Classpath returns the classpath the factory was created with.
func (f *Factory) Classpath() Classpath { return f.classpath }

var mapValueWrappers = []string{TypeProvider, TypeProducer, TypeProduced}

// UnwrapMapValue turns Map<K, Provider<V>>, Map<K, Producer<V>> and
// Map<K, Produced<V>> into Map<K, V>. Any other key is returned unchanged.
func (f *Factory) UnwrapMapValue(k Key) Key {
	t := k.Type()
	if !t.Is(TypeMap, 2) {
		return k
	}
	v := t.Args[1]
	for _, w := range mapValueWrappers {
		if v.Is(w, 1) {
			return k.WithType(T(TypeMap, t.Args[0], v.Args[0]))
		}
	}
	return k
}

// MapValueWrapper returns the wrapper class of a map key's value type, or "".
func MapValueWrapper(k Key) string {
	t := k.Type()
	if !t.Is(TypeMap, 2) {
		return ""
	}
	for _, w := range mapValueWrappers {
		if t.Args[1].Is(w, 1) {
			return w
		}
	}
	return ""
}

// WrapMapKey turns Map<K, V> into Map<K, W<V>>. It returns false when k is
// not a map, when V is already W<...>, or when W is not on the classpath.
func (f *Factory) WrapMapKey(k Key, wrapper string) (Key, bool) {
	t := k.Type()
	if !t.Is(TypeMap, 2) || t.Args[1].Is(wrapper, 1) {
		return Key{}, false
	}
	if !f.classpath.Has(wrapper) {
		return Key{}, false
	}
	return k.WithType(T(TypeMap, t.Args[0], T(wrapper, t.Args[1]))), true
}

// RewrapMapKey turns Map<K, From<V>> into Map<K, To<V>>. It returns false
// when the value is not wrapped in From or To is not on the classpath.
func (f *Factory) RewrapMapKey(k Key, from, to string) (Key, bool) {
	if from == to {
		panic("key: RewrapMapKey with identical wrappers " + from)
	}
	t := k.Type()
	if !t.Is(TypeMap, 2) || !t.Args[1].Is(from, 1) {
		return Key{}, false
	}
	if !f.classpath.Has(to) {
		return Key{}, false
	}
	return k.WithType(T(TypeMap, t.Args[0], T(to, t.Args[1].Args[0]))), true
}

// ImplicitMapProviderKey returns the Map<K, Provider<V>> key under which
// provision contributions to k are stored.
func (f *Factory) ImplicitMapProviderKey(k Key) (Key, bool) {
	if r, ok := f.RewrapMapKey(k, TypeProduced, TypeProvider); ok {
		return r, true
	}
	return f.WrapMapKey(k, TypeProvider)
}

// ImplicitMapProducerKey returns the Map<K, Producer<V>> key under which
// production contributions to k are stored.
func (f *Factory) ImplicitMapProducerKey(k Key) (Key, bool) {
	if r, ok := f.RewrapMapKey(k, TypeProduced, TypeProducer); ok {
		return r, true
	}
	return f.WrapMapKey(k, TypeProducer)
}

// ImplicitFrameworkMapKeys returns the provider and producer variants of k
// that exist on the classpath.
func (f *Factory) ImplicitFrameworkMapKeys(k Key) []Key {
	var out []Key
	if p, ok := f.ImplicitMapProviderKey(k); ok {
		out = append(out, p)
	}
	if p, ok := f.ImplicitMapProducerKey(k); ok {
		out = append(out, p)
	}
	return out
}

// UnwrapSetKey turns Set<W<T>> into Set<T>.
func (f *Factory) UnwrapSetKey(k Key, wrapper string) (Key, bool) {
	t := k.Type()
	if !t.Is(TypeSet, 1) || !t.Args[0].Is(wrapper, 1) {
		return Key{}, false
	}
	return k.WithType(T(TypeSet, t.Args[0].Args[0])), true
}

// UnwrapOptional turns Optional<T> into the key of T, removing any request
// wrapper from T. The request kind of the wrapped value is returned as well.
func (f *Factory) UnwrapOptional(k Key) (Key, RequestKind, bool) {
	t := k.Type()
	if !t.Is(TypeOptional, 1) {
		return Key{}, Instance, false
	}
	kind, inner := ExtractRequestKind(t.Args[0])
	return k.WithType(inner), kind, true
}

// SetOf returns the Set<T> type.
func SetOf(t TypeRef) TypeRef { return T(TypeSet, t) }

// MapOf returns the Map<K, V> type.
func MapOf(k, v TypeRef) TypeRef { return T(TypeMap, k, v) }
