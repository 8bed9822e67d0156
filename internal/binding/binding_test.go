package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jward/graft/internal/decl"
	"github.com/jward/graft/internal/key"
)

func provides(name, returns string, params ...decl.Param) decl.Member {
	return decl.Member{Name: name, Roles: []decl.Role{decl.RoleProvides}, Returns: returns, Params: params}
}

func newCatalog(t *testing.T, set *decl.Set) *Catalog {
	t.Helper()
	return NewCatalog(set, DefaultPolicy())
}

func mustModule(t *testing.T, c *Catalog, name string) *ModuleDescriptor {
	t.Helper()
	md, ok := c.Module(name)
	require.True(t, ok, "module %s", name)
	return md
}

func moduleNames(mods []*ModuleDescriptor) []string {
	out := make([]string, len(mods))
	for i, m := range mods {
		out[i] = m.Name
	}
	return out
}

// =============================================================================
// Arena
// =============================================================================

func TestArena_ReentrantGetReturnsInFlightValue(t *testing.T) {
	t.Parallel()
	a := NewArena[ModuleDescriptor]()

	var inner *ModuleDescriptor
	outer := a.Get("A", func(md *ModuleDescriptor) {
		md.Name = "A"
		assert.True(t, a.InProgress("A"))
		inner = a.Get("A", func(*ModuleDescriptor) {
			t.Fatal("build must not run for an in-flight entry")
		})
	})

	assert.Same(t, outer, inner)
	assert.False(t, a.InProgress("A"))
	assert.Equal(t, ArenaStats{Builds: 1, Reentrant: 1}, a.Stats())

	again := a.Get("A", func(*ModuleDescriptor) { t.Fatal("rebuilt") })
	assert.Same(t, outer, again)
	assert.Equal(t, 1, a.Stats().Hits)

	a.Reset()
	assert.Zero(t, a.Len())
	_, ok := a.Lookup("A")
	assert.False(t, ok)
}

// =============================================================================
// Module extraction
// =============================================================================

func TestModule_ProvidesAndBinds(t *testing.T) {
	t.Parallel()
	c := newCatalog(t, &decl.Set{Modules: []decl.Module{{
		Name: "AppModule",
		Members: []decl.Member{
			provides("provideFoo", "Foo", decl.Param{Name: "bar", Type: "Provider<Bar>"}),
			{Name: "bindRepo", Roles: []decl.Role{decl.RoleBinds}, Returns: "Repo", Static: true,
				Params: []decl.Param{{Name: "impl", Type: "SqlRepo"}}},
		},
	}}})

	md := mustModule(t, c, "AppModule")
	require.Len(t, md.Bindings, 2)
	assert.Empty(t, md.Rejected)

	foo := md.Bindings[0]
	assert.Equal(t, Provision, foo.Kind)
	assert.Equal(t, key.MustOf("Foo", ""), foo.Key)
	assert.True(t, foo.RequiresModuleInstance)
	require.Len(t, foo.Dependencies, 1)
	assert.Equal(t, key.Provider, foo.Dependencies[0].Kind)
	assert.Equal(t, key.MustOf("Bar", ""), foo.Dependencies[0].Key)
	assert.Equal(t, "@Provides Foo AppModule.provideFoo(Provider<Bar>)", foo.Declaration())

	repo := md.Bindings[1]
	assert.Equal(t, Delegate, repo.Kind)
	assert.False(t, repo.RequiresModuleInstance)
}

func TestModule_RoleErrorsAreRejectedNotFatal(t *testing.T) {
	t.Parallel()
	c := newCatalog(t, &decl.Set{Modules: []decl.Module{{
		Name: "M",
		Members: []decl.Member{
			{Name: "none", Returns: "Foo"},
			{Name: "both", Roles: []decl.Role{decl.RoleProvides, decl.RoleBinds}, Returns: "Foo"},
			{Name: "odd", Roles: []decl.Role{"injects"}, Returns: "Foo"},
			provides("ok", "Bar"),
		},
	}}})

	md := mustModule(t, c, "M")
	require.Len(t, md.Bindings, 1)
	assert.Equal(t, "M.ok", md.Bindings[0].Element)

	require.Len(t, md.Rejected, 3)
	assert.Equal(t, ShapeNoRole, md.Rejected[0].Shape)
	assert.Equal(t, ShapeMultipleRoles, md.Rejected[1].Shape)
	assert.Contains(t, md.Rejected[1].Detail, "provides, binds")
	assert.Equal(t, ShapeUnknownRole, md.Rejected[2].Shape)
}

func TestModule_ShapeRules(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		producer bool
		member   decl.Member
		want     Shape
	}{
		{"binds without param", false,
			decl.Member{Name: "m", Roles: []decl.Role{decl.RoleBinds}, Returns: "Foo"}, ShapeBindsArity},
		{"multibinds non collection", false,
			decl.Member{Name: "m", Roles: []decl.Role{decl.RoleMultibinds}, Returns: "Foo"}, ShapeMultibindsShape},
		{"elementsIntoSet non set", false,
			decl.Member{Name: "m", Roles: []decl.Role{decl.RoleProvides}, Returns: "Foo", Contribution: decl.ElementsIntoSet}, ShapeElementsIntoSetReturn},
		{"optional of provider", false,
			decl.Member{Name: "m", Roles: []decl.Role{decl.RoleBindsOptionalOf}, Returns: "Provider<Foo>"}, ShapeOptionalOfShape},
		{"produces outside producer module", false,
			decl.Member{Name: "m", Roles: []decl.Role{decl.RoleProduces}, Returns: "Foo"}, ShapeProducesOutsideProducerModule},
		{"scoped produces", true,
			decl.Member{Name: "m", Roles: []decl.Role{decl.RoleProduces}, Returns: "Foo", Scope: "@Singleton"}, ShapeProducesScoped},
		{"missing map key", false,
			decl.Member{Name: "m", Roles: []decl.Role{decl.RoleProvides}, Returns: "Foo", Contribution: decl.IntoMap}, ShapeMapKeyMissing},
		{"two map keys", false,
			decl.Member{Name: "m", Roles: []decl.Role{decl.RoleProvides}, Returns: "Foo", Contribution: decl.IntoMap,
				MapKeys: []decl.MapKey{{Annotation: "@StringKey", Value: "a"}, {Annotation: "@IntKey", Value: "1"}}}, ShapeMapKeyAmbiguous},
		{"unknown map key", false,
			decl.Member{Name: "m", Roles: []decl.Role{decl.RoleProvides}, Returns: "Foo", Contribution: decl.IntoMap,
				MapKeys: []decl.MapKey{{Annotation: "@Custom", Value: "a"}}}, ShapeMapKeyUnrecognized},
		{"map key on set", false,
			decl.Member{Name: "m", Roles: []decl.Role{decl.RoleProvides}, Returns: "Foo", Contribution: decl.IntoSet,
				MapKeys: []decl.MapKey{{Annotation: "@StringKey", Value: "a"}}}, ShapeMapKeyNotAllowed},
		{"bad type", false,
			decl.Member{Name: "m", Roles: []decl.Role{decl.RoleProvides}, Returns: "Set<Foo"}, ShapeInvalidType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := NewCatalog(&decl.Set{
				Classpath: key.Classpath{Producers: true},
				Modules:   []decl.Module{{Name: "M", Producer: tt.producer, Members: []decl.Member{tt.member}}},
			}, DefaultPolicy())
			md := mustModule(t, c, "M")
			assert.Empty(t, md.Bindings)
			require.Len(t, md.Rejected, 1)
			assert.Equal(t, tt.want, md.Rejected[0].Shape)
			assert.Equal(t, "M.m", md.Rejected[0].Element)
		})
	}
}

func TestModule_ContributionKeys(t *testing.T) {
	t.Parallel()
	c := newCatalog(t, &decl.Set{Modules: []decl.Module{{
		Name: "M",
		Members: []decl.Member{
			{Name: "one", Roles: []decl.Role{decl.RoleProvides}, Returns: "Foo", Contribution: decl.IntoSet},
			{Name: "many", Roles: []decl.Role{decl.RoleProvides}, Returns: "Set<Foo>", Contribution: decl.ElementsIntoSet},
			{Name: "entry", Roles: []decl.Role{decl.RoleProvides}, Returns: "Foo", Contribution: decl.IntoMap,
				MapKeys: []decl.MapKey{{Annotation: "@StringKey", Value: "a"}}},
			{Name: "all", Roles: []decl.Role{decl.RoleMultibinds}, Returns: "Map<String, Foo>"},
			{Name: "maybe", Roles: []decl.Role{decl.RoleBindsOptionalOf}, Returns: "Baz", Qualifier: "@Q"},
		},
	}}})

	md := mustModule(t, c, "M")
	require.Len(t, md.Bindings, 3)

	set := key.MustOf("Set<Foo>", "")
	assert.Equal(t, set.WithContribution(key.Contribution{Module: "M", Method: "one"}), md.Bindings[0].Key)
	assert.Equal(t, set.WithContribution(key.Contribution{Module: "M", Method: "many"}), md.Bindings[1].Key)

	entry := md.Bindings[2]
	assert.Equal(t, "Map<String, Provider<Foo>>", entry.Key.TypeString())
	require.NotNil(t, entry.MapKey)
	assert.Equal(t, "a", entry.MapKey.Value)
	assert.Equal(t, "@Provides Foo M.entry()", entry.Declaration())

	require.Len(t, md.Multibinds, 1)
	assert.Equal(t, key.MustOf("Map<String, Foo>", ""), md.Multibinds[0].Key)
	require.Len(t, md.OptionalOf, 1)
	assert.Equal(t, key.MustOf("Baz", "@Q"), md.OptionalOf[0].Key)
}

func TestModule_ProducesMapUsesProducer(t *testing.T) {
	t.Parallel()
	c := NewCatalog(&decl.Set{
		Classpath: key.Classpath{Producers: true},
		Modules: []decl.Module{{Name: "P", Producer: true, Members: []decl.Member{
			{Name: "p", Roles: []decl.Role{decl.RoleProduces}, Returns: "Foo", Contribution: decl.IntoMap,
				MapKeys: []decl.MapKey{{Annotation: "@IntKey", Value: "1"}}},
		}}},
	}, DefaultPolicy())

	md := mustModule(t, c, "P")
	require.Len(t, md.Bindings, 1)
	assert.Equal(t, "Map<Integer, Producer<Foo>>", md.Bindings[0].Key.TypeString())
}

// =============================================================================
// Companion modules
// =============================================================================

func companionSet() *decl.Set {
	return &decl.Set{Modules: []decl.Module{{
		Name: "M",
		Members: []decl.Member{
			{Name: "provideFoo", Roles: []decl.Role{decl.RoleProvides}, Returns: "Foo", Static: true},
		},
		Companion: &decl.Module{
			Name: "M.Companion",
			Members: []decl.Member{
				{Name: "provideFoo", Roles: []decl.Role{decl.RoleProvides}, Returns: "Foo"},
				{Name: "provideBar", Roles: []decl.Role{decl.RoleProvides}, Returns: "Bar", Mirrored: true},
				{Name: "provideBaz", Roles: []decl.Role{decl.RoleProvides}, Returns: "Baz"},
				{Name: "helper", Returns: "Qux"},
			},
		},
	}}}
}

func TestCompanion_DuplicatesDroppedByDefault(t *testing.T) {
	t.Parallel()
	c := NewCatalog(companionSet(), DefaultPolicy())

	md := mustModule(t, c, "M")
	require.Len(t, md.Bindings, 2)
	assert.Equal(t, "M.provideFoo", md.Bindings[0].Element)
	assert.Equal(t, "M.Companion.provideBaz", md.Bindings[1].Element)
	assert.Equal(t, "M", md.Bindings[1].Module)
	assert.False(t, md.Bindings[1].RequiresModuleInstance)
	assert.Equal(t, []string{"M.Companion.provideFoo"}, md.DroppedCompanion)
	assert.Empty(t, md.Rejected, "companion members without a role are ignored")
}

func TestCompanion_KeepDuplicatesWhenPolicyDisabled(t *testing.T) {
	t.Parallel()
	c := NewCatalog(companionSet(), Policy{DropCompanionDuplicates: false})

	md := mustModule(t, c, "M")
	require.Len(t, md.Bindings, 3)
	assert.Equal(t, md.Bindings[0].Key, md.Bindings[1].Key)
	assert.Empty(t, md.DroppedCompanion)
}

// =============================================================================
// Transitive closure
// =============================================================================

func TestClosure_MutualIncludes(t *testing.T) {
	t.Parallel()
	c := newCatalog(t, &decl.Set{Modules: []decl.Module{
		{Name: "A", Includes: []string{"B"}},
		{Name: "B", Includes: []string{"A"}},
	}})

	a := mustModule(t, c, "A")
	require.Len(t, a.Includes, 1)
	b := a.Includes[0]
	require.Len(t, b.Includes, 1)
	assert.Same(t, a, b.Includes[0], "cycle closes on the in-flight descriptor")

	closure := TransitiveModules([]*ModuleDescriptor{a, b})
	assert.Equal(t, []string{"A", "B"}, moduleNames(closure))
}

func TestClosure_PreOrderWithSuperclass(t *testing.T) {
	t.Parallel()
	c := newCatalog(t, &decl.Set{Modules: []decl.Module{
		{Name: "Root", Superclass: "Base", Includes: []string{"X", "Y"}},
		{Name: "Base", Includes: []string{"Shared"}},
		{Name: "X", Includes: []string{"Shared", "Missing"}},
		{Name: "Y", Includes: []string{"Root"}},
		{Name: "Shared"},
	}})

	root := mustModule(t, c, "Root")
	assert.Equal(t, []string{"Root", "Base", "Shared", "X", "Y"}, moduleNames(TransitiveModules([]*ModuleDescriptor{root})))

	x := mustModule(t, c, "X")
	require.Len(t, x.Rejected, 1)
	assert.Equal(t, ShapeUnknownModule, x.Rejected[0].Shape)
}

// =============================================================================
// Components
// =============================================================================

func TestComponent_Descriptor(t *testing.T) {
	t.Parallel()
	c := newCatalog(t, &decl.Set{
		Modules: []decl.Module{{Name: "M"}},
		Components: []decl.Component{
			{
				Name:          "App",
				Scopes:        []string{"@Singleton"},
				Modules:       []string{"M", "Nope"},
				Subcomponents: []string{"Child", "Ghost", "Other"},
				Dependencies: []decl.Dependency{{Type: "Ext", Provisions: []decl.Provision{
					{Method: "clock", Returns: "Clock"},
				}}},
				EntryPoints: []decl.EntryPoint{
					{Method: "foo", Returns: "Provider<Foo>"},
					{Method: "inject", Returns: "Activity", MembersInjection: true},
				},
			},
			{Name: "Child", Kind: decl.KindSubcomponent, Subcomponents: []string{"Child"}},
			{Name: "Other", Kind: decl.KindProductionComponent},
		},
	})

	roots := c.Roots()
	require.Len(t, roots, 2)
	app := roots[0]
	assert.Equal(t, "App", app.Name)
	assert.Equal(t, []string{"M"}, moduleNames(app.Closure))

	require.Len(t, app.EntryPoints, 2)
	assert.Equal(t, key.Provider, app.EntryPoints[0].Request.Kind)
	assert.Equal(t, key.MustOf("Foo", ""), app.EntryPoints[0].Request.Key)
	assert.Equal(t, key.MembersInjection, app.EntryPoints[1].Request.Kind)
	assert.Equal(t, key.MustOf("MembersInjector<Activity>", ""), app.EntryPoints[1].Request.Key)

	require.Len(t, app.DependencyBindings, 2)
	assert.Equal(t, ComponentDependency, app.DependencyBindings[0].Kind)
	assert.Equal(t, ComponentProvision, app.DependencyBindings[1].Kind)
	assert.Equal(t, "Ext.clock", app.DependencyBindings[1].Element)

	shapes := map[Shape]bool{}
	for _, r := range app.Rejected {
		shapes[r.Shape] = true
	}
	assert.True(t, shapes[ShapeUnknownModule])
	assert.True(t, shapes[ShapeUnknownSubcomponent])
	assert.True(t, shapes[ShapeNotSubcomponent])

	require.Len(t, app.Subcomponents, 1)
	child := app.Subcomponents[0]
	assert.Empty(t, child.Subcomponents)
	require.Len(t, child.Rejected, 1)
	assert.Equal(t, ShapeSubcomponentCycle, child.Rejected[0].Shape)

	other := roots[1]
	assert.Equal(t, []string{ProductionScope}, other.Scopes)
}

func TestCatalog_InjectionAndMembers(t *testing.T) {
	t.Parallel()
	c := newCatalog(t, &decl.Set{Injectables: []decl.Injectable{
		{Type: "Foo", Scope: "@Singleton", Params: []decl.Param{{Name: "bar", Type: "Lazy<Bar>"}},
			Members: []decl.Param{{Name: "log", Type: "Logger"}}},
		{Type: "Activity", MembersOnly: true, Members: []decl.Param{{Name: "foo", Type: "Foo"}}},
	}})

	foo, ok := c.Injection(key.MustOf("Foo", ""))
	require.True(t, ok)
	assert.Equal(t, "@Singleton", foo.Scope)
	require.Len(t, foo.Dependencies, 2)
	assert.Equal(t, key.Lazy, foo.Dependencies[0].Kind)
	assert.Equal(t, "Foo.log", foo.Dependencies[1].Element)

	again, _ := c.Injection(key.MustOf("Foo", ""))
	assert.Same(t, foo, again)

	_, ok = c.Injection(key.MustOf("Foo", "@Q"))
	assert.False(t, ok, "qualified keys are never injected implicitly")
	_, ok = c.Injection(key.MustOf("Activity", ""))
	assert.False(t, ok)

	mi, ok := c.MembersInjection(key.MustOf("MembersInjector<Activity>", ""))
	require.True(t, ok)
	require.Len(t, mi.Dependencies, 1)
	assert.Equal(t, key.MustOf("Foo", ""), mi.Dependencies[0].Key)

	empty, ok := c.MembersInjection(key.MustOf("MembersInjector<Plain>", ""))
	require.True(t, ok)
	assert.Empty(t, empty.Dependencies)
}

func TestCatalog_CanonicalScope(t *testing.T) {
	t.Parallel()
	c := newCatalog(t, &decl.Set{ScopeAliases: []decl.ScopeAlias{
		{Alias: "@AliasScoped", Of: "@Singleton"},
		{Alias: "@Loop", Of: "@Loop2"},
		{Alias: "@Loop2", Of: "@Loop"},
	}})

	assert.Equal(t, "@Singleton", c.CanonicalScope("@AliasScoped"))
	assert.Equal(t, "@Singleton", c.CanonicalScope("@Singleton"))
	assert.Equal(t, "@Loop2", c.CanonicalScope("@Loop"))
}
