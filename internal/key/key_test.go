package key

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		expr string
		want string
	}{
		{"Foo", "Foo"},
		{"Set<Foo>", "Set<Foo>"},
		{"Map<String,Provider<Foo>>", "Map<String, Provider<Foo>>"},
		{"  Map< String , Foo >  ", "Map<String, Foo>"},
		{"Set<? extends Foo>", "Set<Foo>"},
		{"List<? super Bar>", "List<Bar>"},
		{"Class<?>", "Class<?>"},
	}
	for _, tt := range tests {
		got, err := ParseType(tt.expr)
		require.NoError(t, err, tt.expr)
		assert.Equal(t, tt.want, got.String(), tt.expr)
	}
}

func TestParseType_Malformed(t *testing.T) {
	t.Parallel()

	for _, expr := range []string{"", "Set<", "Set<Foo", "Map<A,>", "Foo>", "?<Foo>"} {
		_, err := ParseType(expr)
		assert.Error(t, err, expr)
	}
}

func TestKeyEquality(t *testing.T) {
	t.Parallel()

	a := MustOf("Foo", "")
	b := MustOf("Foo", "")
	assert.Equal(t, a, b)

	named := MustOf("Foo", `@Named("x")`)
	assert.NotEqual(t, a, named, "qualifier changes identity")

	wild := MustOf("Set<? extends Foo>", "")
	assert.Equal(t, MustOf("Set<Foo>", ""), wild)
}

func TestKeyContribution(t *testing.T) {
	t.Parallel()

	base := MustOf("Set<Foo>", "")
	c1 := base.WithContribution(Contribution{Module: "AModule", Method: "foo"})
	c2 := base.WithContribution(Contribution{Module: "BModule", Method: "foo"})

	assert.NotEqual(t, c1, c2, "contributions to the same collection are distinct keys")
	assert.NotEqual(t, base, c1)
	assert.Equal(t, base, c1.WithoutContribution())

	_, ok := base.Contribution()
	assert.False(t, ok)
	got, ok := c1.Contribution()
	require.True(t, ok)
	assert.Equal(t, "AModule", got.Module)

	set := map[Key]bool{c1: true, c2: true, base: true}
	assert.Len(t, set, 3)
}

func TestKeyStringAndParse(t *testing.T) {
	t.Parallel()

	k := MustOf("Map<String, Foo>", `@Named("a b")`)
	assert.Equal(t, `@Named("a b") Map<String, Foo>`, k.String())

	back, err := Parse(k.String())
	require.NoError(t, err)
	assert.Equal(t, k, back)

	plain, err := Parse("Foo")
	require.NoError(t, err)
	assert.Equal(t, MustOf("Foo", ""), plain)

	_, err = Parse("@Named")
	assert.Error(t, err)
}

func TestSetElementPanicsOnNonSet(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Foo", SetElement(MustOf("Set<Foo>", "")).String())
	assert.Panics(t, func() { SetElement(MustOf("Foo", "")) })
	assert.Panics(t, func() { MapTypes(MustOf("Set<Foo>", "")) })
}

func TestCompare(t *testing.T) {
	t.Parallel()

	a := MustOf("A", "")
	b := MustOf("B", "")
	assert.Negative(t, Compare(a, b))
	assert.Positive(t, Compare(b, a))
	assert.Zero(t, Compare(a, a))
	assert.Negative(t, Compare(a, a.WithContribution(Contribution{Module: "M", Method: "m"})))
}
