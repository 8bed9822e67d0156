package key

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrapMapValue(t *testing.T) {
	t.Parallel()
	f := NewFactory(Classpath{Producers: true})

	want := MustOf("Map<String, Foo>", "@Q")
	for _, expr := range []string{
		"Map<String, Provider<Foo>>",
		"Map<String, Producer<Foo>>",
		"Map<String, Produced<Foo>>",
		"Map<String, Foo>",
	} {
		assert.Equal(t, want, f.UnwrapMapValue(MustOf(expr, "@Q")), expr)
	}

	notMap := MustOf("Set<Foo>", "")
	assert.Equal(t, notMap, f.UnwrapMapValue(notMap))
}

func TestWrapAndUnwrapAreInverse(t *testing.T) {
	t.Parallel()
	f := NewFactory(Classpath{Producers: true})

	plain := MustOf("Map<String, Foo>", "")
	c := Contribution{Module: "M", Method: "m"}
	plain = plain.WithContribution(c)

	for _, w := range []string{TypeProvider, TypeProducer} {
		wrapped, ok := f.WrapMapKey(plain, w)
		require.True(t, ok, w)
		assert.Equal(t, w, MapValueWrapper(wrapped))
		got, _ := wrapped.Contribution()
		assert.Equal(t, c, got, "contribution survives wrapping")
		assert.Equal(t, plain, f.UnwrapMapValue(wrapped))
	}

	// Already wrapped: no double wrap.
	_, ok := f.WrapMapKey(MustOf("Map<String, Provider<Foo>>", ""), TypeProvider)
	assert.False(t, ok)
}

func TestRewrapWithoutProducersOnClasspath(t *testing.T) {
	t.Parallel()
	f := NewFactory(Classpath{})

	_, ok := f.RewrapMapKey(MustOf("Map<String, Provider<Foo>>", ""), TypeProvider, TypeProducer)
	assert.False(t, ok, "Producer is unavailable")

	_, ok = f.ImplicitMapProducerKey(MustOf("Map<String, Foo>", ""))
	assert.False(t, ok)

	keys := f.ImplicitFrameworkMapKeys(MustOf("Map<String, Foo>", ""))
	require.Len(t, keys, 1)
	assert.Equal(t, MustOf("Map<String, Provider<Foo>>", ""), keys[0])

	assert.Panics(t, func() {
		f.RewrapMapKey(MustOf("Map<String, Provider<Foo>>", ""), TypeProvider, TypeProvider)
	})
}

func TestImplicitMapProviderKeyFromProduced(t *testing.T) {
	t.Parallel()
	f := NewFactory(Classpath{Producers: true})

	got, ok := f.ImplicitMapProviderKey(MustOf("Map<K, Produced<V>>", ""))
	require.True(t, ok)
	assert.Equal(t, MustOf("Map<K, Provider<V>>", ""), got)
}

func TestUnwrapSetAndOptional(t *testing.T) {
	t.Parallel()
	f := NewFactory(Classpath{Producers: true})

	got, ok := f.UnwrapSetKey(MustOf("Set<Produced<Foo>>", ""), TypeProduced)
	require.True(t, ok)
	assert.Equal(t, MustOf("Set<Foo>", ""), got)

	_, ok = f.UnwrapSetKey(MustOf("Set<Foo>", ""), TypeProduced)
	assert.False(t, ok)

	inner, kind, ok := f.UnwrapOptional(MustOf("Optional<Provider<Foo>>", "@Q"))
	require.True(t, ok)
	assert.Equal(t, Provider, kind)
	assert.Equal(t, MustOf("Foo", "@Q"), inner)

	_, _, ok = f.UnwrapOptional(MustOf("Foo", ""))
	assert.False(t, ok)
}

func TestRequestFor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr string
		kind RequestKind
		key  string
	}{
		{"Foo", Instance, "Foo"},
		{"Provider<Foo>", Provider, "Foo"},
		{"Lazy<Foo>", Lazy, "Foo"},
		{"Provider<Lazy<Foo>>", ProviderOfLazy, "Foo"},
		{"Producer<Foo>", Producer, "Foo"},
		{"Produced<Foo>", Produced, "Foo"},
		{"Future<Foo>", Future, "Foo"},
		{"Set<Provider<Foo>>", Instance, "Set<Provider<Foo>>"},
	}
	for _, tt := range tests {
		r := RequestFor(MustParseType(tt.expr), "", "X.y(z)")
		assert.Equal(t, tt.kind, r.Kind, tt.expr)
		assert.Equal(t, tt.key, r.Key.TypeString(), tt.expr)
		assert.Equal(t, tt.expr, RequestType(r.Kind, r.Key.Type()).String(), "round trip %s", tt.expr)
	}
}

func TestRequestKindDeferred(t *testing.T) {
	t.Parallel()

	deferred := map[RequestKind]bool{Provider: true, Lazy: true, ProviderOfLazy: true, Producer: true}
	for k := Instance; k <= MembersInjection; k++ {
		assert.Equal(t, deferred[k], k.Deferred(), k.String())
		back, ok := ParseRequestKind(k.String())
		require.True(t, ok)
		assert.Equal(t, k, back)
	}
}
