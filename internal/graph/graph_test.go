package graph

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/graft/internal/binding"
	"github.com/jward/graft/internal/decl"
	"github.com/jward/graft/internal/key"
)

func resolveSet(t *testing.T, set *decl.Set) *Forest {
	t.Helper()
	return Resolve(binding.NewCatalog(set, binding.DefaultPolicy()))
}

func provides(name, returns string, params ...string) decl.Member {
	m := decl.Member{Name: name, Roles: []decl.Role{decl.RoleProvides}, Returns: returns}
	for i, p := range params {
		m.Params = append(m.Params, decl.Param{Name: fmt.Sprintf("p%d", i), Type: p})
	}
	return m
}

func entry(method, returns string) decl.EntryPoint {
	return decl.EntryPoint{Method: method, Returns: returns}
}

func mustGraph(t *testing.T, f *Forest, path string) *BindingGraph {
	t.Helper()
	g, ok := f.Graph(path)
	require.True(t, ok, "graph %s", path)
	return g
}

func mustNode(t *testing.T, g *BindingGraph, k string) *Node {
	t.Helper()
	n, ok := g.Node(key.MustOf(k, ""))
	require.True(t, ok, "node %s in %s", k, g.Path)
	return n
}

// dump renders a forest for structural comparison.
func dump(f *Forest) []string {
	var out []string
	for _, g := range f.Graphs() {
		for _, n := range g.Nodes() {
			line := n.ID()
			switch {
			case n.Missing:
				line += " missing"
			case n.Conflict():
				line += fmt.Sprintf(" conflict(%d)", len(n.Conflicts))
			case !n.Owned():
				line += " -> " + n.Target.ID()
			default:
				line += " " + n.Binding.Declaration()
			}
			out = append(out, line)
		}
		for _, m := range g.Missing {
			out = append(out, fmt.Sprintf("%s missing %s chain=%d", g.Path, m.Key, len(m.Chain)))
		}
	}
	return out
}

// =============================================================================
// Basic resolution
// =============================================================================

func TestResolve_EntryPointResolvedOrMissing(t *testing.T) {
	t.Parallel()
	f := resolveSet(t, &decl.Set{
		Modules: []decl.Module{{Name: "M", Members: []decl.Member{provides("foo", "Foo", "Baz")}}},
		Components: []decl.Component{{
			Name:        "App",
			Modules:     []string{"M"},
			EntryPoints: []decl.EntryPoint{entry("foo", "Foo"), entry("bar", "Bar"), entry("bar2", "Provider<Bar>")},
		}},
	})

	g := mustGraph(t, f, "App")
	foo := mustNode(t, g, "Foo")
	assert.False(t, foo.Missing)
	require.NotNil(t, foo.Binding)

	bar := mustNode(t, g, "Bar")
	assert.True(t, bar.Missing)
	assert.Nil(t, bar.Binding)
	assert.Len(t, bar.Requests, 2)

	missing := map[string]int{}
	for _, m := range g.Missing {
		missing[m.Key.String()]++
	}
	assert.Equal(t, map[string]int{"Bar": 1, "Baz": 1}, missing)

	for _, m := range g.Missing {
		if m.Key.String() == "Baz" {
			require.Len(t, m.Chain, 2)
			assert.Equal(t, "App.foo()", m.Chain[0].Element)
			assert.Equal(t, "M.foo(p0)", m.Chain[1].Element)
		}
	}
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()
	set := func() *decl.Set {
		return &decl.Set{
			Modules: []decl.Module{
				{Name: "A", Includes: []string{"B"}, Members: []decl.Member{
					provides("foo", "Foo", "Bar", "Set<Plugin>"),
					{Name: "p1", Roles: []decl.Role{decl.RoleProvides}, Returns: "Plugin", Contribution: decl.IntoSet},
				}},
				{Name: "B", Includes: []string{"A"}, Members: []decl.Member{
					provides("bar", "Bar", "Provider<Foo>", "Missing"),
					{Name: "p2", Roles: []decl.Role{decl.RoleProvides}, Returns: "Plugin", Contribution: decl.IntoSet},
				}},
			},
			Injectables: []decl.Injectable{{Type: "Svc", Params: []decl.Param{{Name: "foo", Type: "Foo"}}}},
			Components: []decl.Component{
				{Name: "App", Modules: []string{"A"}, Subcomponents: []string{"Child"},
					EntryPoints: []decl.EntryPoint{entry("svc", "Svc")}},
				{Name: "Child", Kind: decl.KindSubcomponent, EntryPoints: []decl.EntryPoint{entry("foo", "Foo"), entry("x", "Optional<X>")}},
			},
		}
	}

	first := dump(resolveSet(t, set()))
	second := dump(resolveSet(t, set()))
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestResolve_CyclicIncludesTerminate(t *testing.T) {
	t.Parallel()
	f := resolveSet(t, &decl.Set{
		Modules: []decl.Module{
			{Name: "A", Includes: []string{"B"}, Members: []decl.Member{provides("a", "Foo")}},
			{Name: "B", Includes: []string{"A"}, Members: []decl.Member{provides("b", "Bar")}},
		},
		Components: []decl.Component{{
			Name: "App", Modules: []string{"A", "B"},
			EntryPoints: []decl.EntryPoint{entry("foo", "Foo"), entry("bar", "Bar")},
		}},
	})
	g := mustGraph(t, f, "App")
	require.Len(t, g.OwnedModules, 2)
	assert.False(t, mustNode(t, g, "Foo").Conflict())
	assert.False(t, mustNode(t, g, "Bar").Conflict())
	assert.Empty(t, g.Missing)
}

// =============================================================================
// Hierarchy
// =============================================================================

func TestResolve_AncestorOwnsBinding(t *testing.T) {
	t.Parallel()
	f := resolveSet(t, &decl.Set{
		Modules: []decl.Module{{Name: "M", Members: []decl.Member{provides("foo", "Foo")}}},
		Components: []decl.Component{
			{Name: "App", Modules: []string{"M"}, Subcomponents: []string{"Child"}},
			{Name: "Child", Kind: decl.KindSubcomponent, EntryPoints: []decl.EntryPoint{entry("foo", "Foo"), entry("app", "App")}},
		},
	})

	app := mustGraph(t, f, "App")
	child := mustGraph(t, f, "App/Child")

	ref := mustNode(t, child, "Foo")
	assert.False(t, ref.Owned())
	owner := mustNode(t, app, "Foo")
	assert.Same(t, owner, ref.Target)
	assert.Same(t, owner.Binding, ref.Binding)

	self := mustNode(t, child, "App")
	assert.Equal(t, binding.ComponentSelf, self.Owner().Binding.Kind)
	assert.Same(t, app, self.Owner().Graph)
}

func TestResolve_ModuleInstalledByAncestorIsNotReinstalled(t *testing.T) {
	t.Parallel()
	f := resolveSet(t, &decl.Set{
		Modules: []decl.Module{{Name: "M", Members: []decl.Member{provides("foo", "Foo")}}},
		Components: []decl.Component{
			{Name: "App", Modules: []string{"M"}, Subcomponents: []string{"Child"}},
			{Name: "Child", Kind: decl.KindSubcomponent, Modules: []string{"M"}, EntryPoints: []decl.EntryPoint{entry("foo", "Foo")}},
		},
	})
	child := mustGraph(t, f, "App/Child")
	assert.Empty(t, child.OwnedModules)
	n := mustNode(t, child, "Foo")
	assert.False(t, n.Conflict())
	assert.False(t, n.Owned())
}

func TestResolve_LocalBindingShadowingAncestorConflicts(t *testing.T) {
	t.Parallel()
	f := resolveSet(t, &decl.Set{
		Modules: []decl.Module{
			{Name: "Parent", Members: []decl.Member{provides("foo", "Foo")}},
			{Name: "Local", Members: []decl.Member{provides("foo", "Foo")}},
		},
		Components: []decl.Component{
			{Name: "App", Modules: []string{"Parent"}, Subcomponents: []string{"Child"}},
			{Name: "Child", Kind: decl.KindSubcomponent, Modules: []string{"Local"}, EntryPoints: []decl.EntryPoint{entry("foo", "Foo")}},
		},
	})
	n := mustNode(t, mustGraph(t, f, "App/Child"), "Foo")
	require.True(t, n.Conflict())
	assert.Equal(t, "Local.foo", n.Conflicts[0].Element)
	assert.Equal(t, "Parent.foo", n.Conflicts[1].Element)
}

func TestResolve_ScopedInjectionOwnedByScopedAncestor(t *testing.T) {
	t.Parallel()
	f := resolveSet(t, &decl.Set{
		Injectables: []decl.Injectable{
			{Type: "Db", Scope: "@Singleton"},
			{Type: "Presenter", Params: []decl.Param{{Name: "db", Type: "Db"}}},
		},
		Components: []decl.Component{
			{Name: "App", Scopes: []string{"@Singleton"}, Subcomponents: []string{"Screen"}},
			{Name: "Screen", Kind: decl.KindSubcomponent, EntryPoints: []decl.EntryPoint{entry("p", "Presenter")}},
		},
	})

	screen := mustGraph(t, f, "App/Screen")
	assert.True(t, mustNode(t, screen, "Presenter").Owned())
	db := mustNode(t, screen, "Db")
	assert.False(t, db.Owned())
	assert.Equal(t, "App", db.Target.Graph.Path.String())
}

// =============================================================================
// Conflicts
// =============================================================================

func TestResolve_SiblingModulesConflict(t *testing.T) {
	t.Parallel()
	f := resolveSet(t, &decl.Set{
		Modules: []decl.Module{
			{Name: "A", Members: []decl.Member{provides("foo", "Foo")}},
			{Name: "B", Members: []decl.Member{provides("foo", "Foo")}},
		},
		Components: []decl.Component{{Name: "App", Modules: []string{"A", "B"}, EntryPoints: []decl.EntryPoint{entry("foo", "Foo")}}},
	})
	n := mustNode(t, mustGraph(t, f, "App"), "Foo")
	require.True(t, n.Conflict())
	assert.Nil(t, n.Binding)
	assert.Len(t, n.Conflicts, 2)
}

func TestResolve_UniqueAndContributionsConflict(t *testing.T) {
	t.Parallel()
	f := resolveSet(t, &decl.Set{
		Modules: []decl.Module{{Name: "M", Members: []decl.Member{
			provides("all", "Set<Foo>"),
			{Name: "one", Roles: []decl.Role{decl.RoleProvides}, Returns: "Foo", Contribution: decl.IntoSet},
		}}},
		Components: []decl.Component{{Name: "App", Modules: []string{"M"}, EntryPoints: []decl.EntryPoint{entry("foos", "Set<Foo>")}}},
	})
	n := mustNode(t, mustGraph(t, f, "App"), "Set<Foo>")
	require.True(t, n.Conflict())
	assert.Len(t, n.Conflicts, 2)
}

// =============================================================================
// Multibindings
// =============================================================================

func mapContribution(method, value string) decl.Member {
	return decl.Member{
		Name: method, Roles: []decl.Role{decl.RoleProvides}, Returns: "Foo", Contribution: decl.IntoMap,
		MapKeys: []decl.MapKey{{Annotation: "@StringKey", Value: value}},
	}
}

func TestResolve_MapMultibinding(t *testing.T) {
	t.Parallel()
	f := resolveSet(t, &decl.Set{
		Modules: []decl.Module{
			{Name: "A", Members: []decl.Member{mapContribution("a", "a")}},
			{Name: "B", Members: []decl.Member{mapContribution("b", "b")}},
		},
		Components: []decl.Component{{
			Name: "App", Modules: []string{"A", "B"},
			EntryPoints: []decl.EntryPoint{entry("providers", "Map<String, Provider<Foo>>"), entry("values", "Map<String, Foo>")},
		}},
	})
	g := mustGraph(t, f, "App")

	n := mustNode(t, g, "Map<String, Provider<Foo>>")
	require.NotNil(t, n.Binding)
	assert.Equal(t, binding.MultiboundMap, n.Binding.Kind)
	require.Len(t, n.Binding.Contributions, 2)
	assert.Equal(t, key.Provider, n.Binding.Dependencies[0].Kind)

	var values []string
	for _, e := range MapEntries(g, n.Binding) {
		values = append(values, e.Key.Value)
	}
	assert.Equal(t, []string{"a", "b"}, values)

	plain := mustNode(t, g, "Map<String, Foo>")
	require.NotNil(t, plain.Binding)
	assert.Equal(t, key.Instance, plain.Binding.Dependencies[0].Kind)
	assert.Empty(t, g.Missing)
}

func TestResolve_EmptyDeclaredMultibinding(t *testing.T) {
	t.Parallel()
	f := resolveSet(t, &decl.Set{
		Modules: []decl.Module{{Name: "M", Members: []decl.Member{
			{Name: "plugins", Roles: []decl.Role{decl.RoleMultibinds}, Returns: "Set<Plugin>"},
		}}},
		Components: []decl.Component{{Name: "App", Modules: []string{"M"}, EntryPoints: []decl.EntryPoint{entry("p", "Set<Plugin>")}}},
	})
	g := mustGraph(t, f, "App")
	n := mustNode(t, g, "Set<Plugin>")
	require.NotNil(t, n.Binding)
	assert.Empty(t, n.Binding.Contributions)
	assert.Empty(t, g.Missing)
}

func TestResolve_ChildMultibindings(t *testing.T) {
	t.Parallel()
	plugin := func(name string) decl.Member {
		return decl.Member{Name: name, Roles: []decl.Role{decl.RoleProvides}, Returns: "Plugin", Contribution: decl.IntoSet}
	}
	f := resolveSet(t, &decl.Set{
		Modules: []decl.Module{
			{Name: "Root", Members: []decl.Member{plugin("core")}},
			{Name: "Extra", Members: []decl.Member{plugin("extra")}},
		},
		Components: []decl.Component{
			{Name: "App", Modules: []string{"Root"}, Subcomponents: []string{"Same", "More"},
				EntryPoints: []decl.EntryPoint{entry("p", "Set<Plugin>")}},
			{Name: "Same", Kind: decl.KindSubcomponent, EntryPoints: []decl.EntryPoint{entry("p", "Set<Plugin>")}},
			{Name: "More", Kind: decl.KindSubcomponent, Modules: []string{"Extra"}, EntryPoints: []decl.EntryPoint{entry("p", "Set<Plugin>")}},
		},
	})

	root := mustNode(t, mustGraph(t, f, "App"), "Set<Plugin>")
	require.Len(t, root.Binding.Contributions, 1)

	same := mustNode(t, mustGraph(t, f, "App/Same"), "Set<Plugin>")
	assert.False(t, same.Owned(), "identical view of the collection is referenced")
	assert.Same(t, root, same.Target)

	more := mustNode(t, mustGraph(t, f, "App/More"), "Set<Plugin>")
	require.True(t, more.Owned())
	require.Len(t, more.Binding.Contributions, 2)
	assert.Equal(t, "Root", mustContribution(t, more.Binding.Contributions[0]).Module)
	assert.Equal(t, "Extra", mustContribution(t, more.Binding.Contributions[1]).Module)

	contrib, ok := mustGraph(t, f, "App/More").Node(more.Binding.Contributions[0])
	require.True(t, ok)
	assert.False(t, contrib.Owned(), "ancestor contribution is referenced")
}

// A child must not reuse the ancestor's node for a key whose binding reaches
// a collection the child contributes to, whatever the ancestor requested.
func TestResolve_ChildReresolvesDependentsOfLocalContributions(t *testing.T) {
	t.Parallel()
	plugin := func(name string) decl.Member {
		return decl.Member{Name: name, Roles: []decl.Role{decl.RoleProvides}, Returns: "Plugin", Contribution: decl.IntoSet}
	}
	for _, appRequestsHost := range []bool{false, true} {
		t.Run(fmt.Sprintf("app requests host=%v", appRequestsHost), func(t *testing.T) {
			t.Parallel()
			app := decl.Component{Name: "App", Modules: []string{"Root"}, Subcomponents: []string{"Child"}}
			if appRequestsHost {
				app.EntryPoints = []decl.EntryPoint{entry("host", "Host")}
			}
			f := resolveSet(t, &decl.Set{
				Modules: []decl.Module{
					{Name: "Root", Members: []decl.Member{plugin("core")}},
					{Name: "Extra", Members: []decl.Member{plugin("extra")}},
				},
				Injectables: []decl.Injectable{
					{Type: "Host", Params: []decl.Param{{Name: "plugins", Type: "Set<Plugin>"}}},
				},
				Components: []decl.Component{
					app,
					{Name: "Child", Kind: decl.KindSubcomponent, Modules: []string{"Extra"},
						EntryPoints: []decl.EntryPoint{entry("host", "Host"), entry("plugins", "Set<Plugin>")}},
				},
			})

			child := mustGraph(t, f, "App/Child")
			host := mustNode(t, child, "Host")
			require.True(t, host.Owned())
			set := mustNode(t, child, "Set<Plugin>")
			require.True(t, set.Owned())
			assert.Len(t, set.Binding.Contributions, 2)

			if appRequestsHost {
				parent := mustNode(t, mustGraph(t, f, "App"), "Host")
				assert.NotSame(t, parent, host)
				assert.Len(t, mustNode(t, mustGraph(t, f, "App"), "Set<Plugin>").Binding.Contributions, 1)
			}
		})
	}
}

func TestResolve_ChildReresolvesDependentsOfLocalOptionalTarget(t *testing.T) {
	t.Parallel()
	f := resolveSet(t, &decl.Set{
		Modules: []decl.Module{
			{Name: "Maybe", Members: []decl.Member{
				{Name: "maybeThing", Roles: []decl.Role{decl.RoleBindsOptionalOf}, Returns: "Thing"},
			}},
			{Name: "Things", Members: []decl.Member{provides("thing", "Thing")}},
		},
		Injectables: []decl.Injectable{
			{Type: "Host", Params: []decl.Param{{Name: "thing", Type: "Optional<Thing>"}}},
		},
		Components: []decl.Component{
			{Name: "App", Modules: []string{"Maybe"}, Subcomponents: []string{"Child"},
				EntryPoints: []decl.EntryPoint{entry("host", "Host")}},
			{Name: "Child", Kind: decl.KindSubcomponent, Modules: []string{"Things"},
				EntryPoints: []decl.EntryPoint{entry("host", "Host")}},
		},
	})

	assert.False(t, mustNode(t, mustGraph(t, f, "App"), "Optional<Thing>").Binding.Present)

	child := mustGraph(t, f, "App/Child")
	require.True(t, mustNode(t, child, "Host").Owned())
	opt := mustNode(t, child, "Optional<Thing>")
	require.True(t, opt.Owned())
	assert.True(t, opt.Binding.Present)
}

// Keys whose closure only reaches ancestor-owned bindings are still shared.
func TestResolve_ChildReusesAncestorWithoutLocalDependencies(t *testing.T) {
	t.Parallel()
	f := resolveSet(t, &decl.Set{
		Modules: []decl.Module{
			{Name: "M", Members: []decl.Member{provides("foo", "Foo")}},
			{Name: "Local", Members: []decl.Member{provides("baz", "Baz")}},
		},
		Injectables: []decl.Injectable{
			{Type: "Host", Params: []decl.Param{{Name: "foo", Type: "Foo"}}},
		},
		Components: []decl.Component{
			{Name: "App", Modules: []string{"M"}, Subcomponents: []string{"Child"},
				EntryPoints: []decl.EntryPoint{entry("host", "Host")}},
			{Name: "Child", Kind: decl.KindSubcomponent, Modules: []string{"Local"},
				EntryPoints: []decl.EntryPoint{entry("host", "Host"), entry("baz", "Baz")}},
		},
	})

	host := mustNode(t, mustGraph(t, f, "App/Child"), "Host")
	assert.False(t, host.Owned())
	assert.Same(t, mustNode(t, mustGraph(t, f, "App"), "Host"), host.Target)
}

func mustContribution(t *testing.T, k key.Key) key.Contribution {
	t.Helper()
	c, ok := k.Contribution()
	require.True(t, ok)
	return c
}

// =============================================================================
// Optional and members injection
// =============================================================================

func TestResolve_OptionalPresentAndAbsent(t *testing.T) {
	t.Parallel()
	f := resolveSet(t, &decl.Set{
		Modules: []decl.Module{{Name: "M", Members: []decl.Member{
			provides("foo", "Foo"),
			{Name: "maybeFoo", Roles: []decl.Role{decl.RoleBindsOptionalOf}, Returns: "Foo"},
			{Name: "maybeBar", Roles: []decl.Role{decl.RoleBindsOptionalOf}, Returns: "Bar"},
		}}},
		Components: []decl.Component{{Name: "App", Modules: []string{"M"}, EntryPoints: []decl.EntryPoint{
			entry("foo", "Optional<Provider<Foo>>"),
			entry("bar", "Optional<Bar>"),
		}}},
	})
	g := mustGraph(t, f, "App")
	assert.Empty(t, g.Missing, "absent optionals are not errors")

	foo := mustNode(t, g, "Optional<Provider<Foo>>")
	require.NotNil(t, foo.Binding)
	assert.Equal(t, binding.Optional, foo.Binding.Kind)
	assert.True(t, foo.Binding.Present)
	assert.Equal(t, "M.maybeFoo", foo.Binding.Element)
	require.Len(t, foo.Binding.Dependencies, 1)
	assert.Equal(t, key.Provider, foo.Binding.Dependencies[0].Kind)

	bar := mustNode(t, g, "Optional<Bar>")
	assert.False(t, bar.Binding.Present)
	assert.Empty(t, bar.Binding.Dependencies)
	_, resolved := g.Node(key.MustOf("Bar", ""))
	assert.False(t, resolved)
}

func TestResolve_MembersInjection(t *testing.T) {
	t.Parallel()
	f := resolveSet(t, &decl.Set{
		Injectables: []decl.Injectable{
			{Type: "Activity", MembersOnly: true, Members: []decl.Param{{Name: "svc", Type: "Svc"}}},
			{Type: "Svc"},
		},
		Components: []decl.Component{{Name: "App", EntryPoints: []decl.EntryPoint{
			{Method: "inject", Returns: "Activity", MembersInjection: true},
			entry("injector", "MembersInjector<Activity>"),
		}}},
	})
	g := mustGraph(t, f, "App")
	n := mustNode(t, g, "MembersInjector<Activity>")
	require.NotNil(t, n.Binding)
	assert.Equal(t, binding.MembersInjection, n.Binding.Kind)
	assert.Len(t, n.Requests, 2)
	assert.True(t, mustNode(t, g, "Svc").Owned())
	assert.Empty(t, g.Missing)
}

// =============================================================================
// Cycles and freezing
// =============================================================================

func cycleSet(backEdge string) *decl.Set {
	return &decl.Set{
		Modules: []decl.Module{{Name: "M", Members: []decl.Member{
			provides("a", "A", "B"),
			provides("b", "B", backEdge),
		}}},
		Components: []decl.Component{{Name: "App", Modules: []string{"M"}, EntryPoints: []decl.EntryPoint{entry("a", "A")}}},
	}
}

func TestCycles_DeferredEdgeBreaksCycle(t *testing.T) {
	t.Parallel()

	broken := resolveSet(t, cycleSet("Provider<A>"))
	assert.Empty(t, broken.Cycles(InstanceOnly))
	all := broken.Cycles(AllEdges)
	require.Len(t, all, 1)
	assert.Len(t, all[0], 2)

	illegal := resolveSet(t, cycleSet("A"))
	cycles := illegal.Cycles(InstanceOnly)
	require.Len(t, cycles, 1)
	var ids []string
	for _, n := range cycles[0] {
		ids = append(ids, n.ID())
	}
	sort.Strings(ids)
	assert.Equal(t, []string{"App|A", "App|B"}, ids)
}

func TestCycles_SelfLoop(t *testing.T) {
	t.Parallel()
	f := resolveSet(t, &decl.Set{
		Modules:    []decl.Module{{Name: "M", Members: []decl.Member{provides("a", "A", "A")}}},
		Components: []decl.Component{{Name: "App", Modules: []string{"M"}, EntryPoints: []decl.EntryPoint{entry("a", "A")}}},
	})
	cycles := f.Cycles(InstanceOnly)
	require.Len(t, cycles, 1)
	assert.Len(t, cycles[0], 1)
}

func TestForest_Freeze(t *testing.T) {
	t.Parallel()
	f := resolveSet(t, cycleSet("A"))
	f.Freeze()
	g := mustGraph(t, f, "App")
	assert.True(t, g.Frozen())
	assert.Panics(t, func() { g.put(&Node{Key: key.MustOf("Z", "")}) })
}
