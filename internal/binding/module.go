package binding

import (
	"fmt"
	"strings"

	"github.com/jward/graft/internal/decl"
	"github.com/jward/graft/internal/key"
)

// Declaration is a non-binding declaration carried by a module: a
// multibinds marker (Key is the Set or Map) or a bindsOptionalOf marker (Key
// is the wrapped type).
type Declaration struct {
	Key     key.Key
	Module  string
	Element string
}

// ModuleDescriptor is the extracted form of one module.
type ModuleDescriptor struct {
	Name       string
	Producer   bool
	Bindings   []*Binding
	Multibinds []Declaration
	OptionalOf []Declaration
	// Includes holds the included modules, superclass first. Entries may be
	// in flight while the descriptor graph is cyclic.
	Includes []*ModuleDescriptor
	Rejected []Rejected
	// DroppedCompanion lists companion members skipped as duplicates.
	DroppedCompanion []string
}

// Built-in map-key annotations and the key type they imply.
var builtinMapKeys = map[string]string{
	"@StringKey":    "String",
	"@IntKey":       "Integer",
	"@LongKey":      "Long",
	"@ClassKey":     "Class<?>",
	"@LazyClassKey": "Class<?>",
}

// MapKeyType returns the map key type for an annotation, or false when the
// annotation is not recognized.
func MapKeyType(mk decl.MapKey) (key.TypeRef, bool) {
	expr := mk.KeyType
	if expr == "" {
		expr = builtinMapKeys[mk.Annotation]
	}
	if expr == "" {
		return key.TypeRef{}, false
	}
	t, err := key.ParseType(expr)
	if err != nil {
		return key.TypeRef{}, false
	}
	return t, true
}

type memberExtractor struct {
	keys     *key.Factory
	md       *ModuleDescriptor
	element  string
	static   bool
	producer bool
}

func (c *Catalog) buildModule(d *decl.Module, md *ModuleDescriptor) {
	md.Name = d.Name
	md.Producer = d.Producer

	captured := make(map[string]bool)
	for _, m := range d.Members {
		x := memberExtractor{
			keys:     c.keys,
			md:       md,
			element:  d.Name + "." + m.Name,
			static:   m.Static,
			producer: d.Producer,
		}
		if x.extract(m, false) {
			captured[m.Descriptor()] = true
		}
	}

	if comp := d.Companion; comp != nil {
		prefix := comp.Name
		if prefix == "" {
			prefix = d.Name + ".Companion"
		}
		for _, m := range comp.Members {
			if m.Mirrored {
				continue
			}
			if c.policy.DropCompanionDuplicates && captured[m.Descriptor()] {
				md.DroppedCompanion = append(md.DroppedCompanion, prefix+"."+m.Name)
				continue
			}
			x := memberExtractor{
				keys:     c.keys,
				md:       md,
				element:  prefix + "." + m.Name,
				static:   true,
				producer: d.Producer,
			}
			x.extract(m, true)
		}
	}

	var includes []string
	if d.Superclass != "" {
		includes = append(includes, d.Superclass)
	}
	includes = append(includes, d.Includes...)
	for _, name := range includes {
		inc, ok := c.Module(name)
		if !ok {
			md.Rejected = append(md.Rejected, Rejected{
				Shape:   ShapeUnknownModule,
				Module:  d.Name,
				Element: d.Name,
				Detail:  fmt.Sprintf("includes unknown module %s", name),
			})
			continue
		}
		md.Includes = append(md.Includes, inc)
	}
}

func (x *memberExtractor) reject(s Shape, format string, args ...any) bool {
	x.md.Rejected = append(x.md.Rejected, Rejected{
		Shape:   s,
		Module:  x.md.Name,
		Element: x.element,
		Detail:  fmt.Sprintf(format, args...),
	})
	return false
}

// extract classifies one member and records the resulting binding or
// declaration. It reports whether a binding was captured. Companion members
// only contribute provides and produces bindings.
func (x *memberExtractor) extract(m decl.Member, companion bool) bool {
	switch {
	case len(m.Roles) == 0:
		if companion {
			return false
		}
		return x.reject(ShapeNoRole, "member has no binding role")
	case len(m.Roles) > 1:
		names := make([]string, len(m.Roles))
		for i, r := range m.Roles {
			names[i] = string(r)
		}
		return x.reject(ShapeMultipleRoles, "member has more than one binding role: %s", strings.Join(names, ", "))
	case !m.Roles[0].Known():
		return x.reject(ShapeUnknownRole, "unknown binding role %q", m.Roles[0])
	}
	role := m.Roles[0]
	if companion && role != decl.RoleProvides && role != decl.RoleProduces {
		return false
	}

	ret, err := key.ParseType(m.Returns)
	if err != nil {
		return x.reject(ShapeInvalidType, "invalid return type: %v", err)
	}
	deps := make([]key.DependencyRequest, 0, len(m.Params))
	for _, p := range m.Params {
		pt, err := key.ParseType(p.Type)
		if err != nil {
			return x.reject(ShapeInvalidType, "invalid parameter %s: %v", p.Name, err)
		}
		req := key.RequestFor(pt, p.Qualifier, x.element+"("+p.Name+")")
		req.Nullable = p.Nullable
		deps = append(deps, req)
	}

	contribution := m.Contribution.Normalize()
	switch contribution {
	case decl.Unique, decl.IntoSet, decl.ElementsIntoSet, decl.IntoMap:
	default:
		return x.reject(ShapeUnknownContribution, "unknown contribution type %q", m.Contribution)
	}

	switch role {
	case decl.RoleMultibinds:
		return x.multibinds(m, ret, deps, contribution)
	case decl.RoleBindsOptionalOf:
		return x.optionalOf(m, ret, deps, contribution)
	}

	b := &Binding{
		Key:          key.New(ret, m.Qualifier),
		Dependencies: deps,
		Scope:        m.Scope,
		Nullable:     m.Nullable,
		Contribution: contribution,
		Module:       x.md.Name,
		Element:      x.element,
	}
	switch role {
	case decl.RoleProvides:
		b.Kind = Provision
		b.RequiresModuleInstance = !x.static
	case decl.RoleProduces:
		b.Kind = Production
		b.RequiresModuleInstance = !x.static
		if !x.producer {
			return x.reject(ShapeProducesOutsideProducerModule, "production methods may only be declared in producer modules")
		}
		if !x.keys.Classpath().Producers {
			return x.reject(ShapeProducesOutsideProducerModule, "production methods require producers on the classpath")
		}
		if m.Scope != "" {
			return x.reject(ShapeProducesScoped, "production methods may not be scoped (found %s)", m.Scope)
		}
	case decl.RoleBinds:
		b.Kind = Delegate
		if len(deps) != 1 {
			return x.reject(ShapeBindsArity, "delegate methods must have exactly one parameter, found %d", len(deps))
		}
	}

	if len(m.MapKeys) > 0 && contribution != decl.IntoMap {
		return x.reject(ShapeMapKeyNotAllowed, "map key %s on a non-map contribution", m.MapKeys[0].Annotation)
	}

	contributionID := key.Contribution{Module: x.md.Name, Method: m.Name}
	switch contribution {
	case decl.IntoSet:
		b.Key = key.New(key.SetOf(ret), m.Qualifier).WithContribution(contributionID)
	case decl.ElementsIntoSet:
		if !ret.Is(key.TypeSet, 1) {
			return x.reject(ShapeElementsIntoSetReturn, "elementsIntoSet methods must return a Set, found %s", ret)
		}
		b.Key = b.Key.WithContribution(contributionID)
	case decl.IntoMap:
		switch len(m.MapKeys) {
		case 0:
			return x.reject(ShapeMapKeyMissing, "map contributions must declare a map key")
		case 1:
		default:
			names := make([]string, len(m.MapKeys))
			for i, mk := range m.MapKeys {
				names[i] = mk.Annotation
			}
			return x.reject(ShapeMapKeyAmbiguous, "map contributions may declare only one map key, found %s", strings.Join(names, ", "))
		}
		mk := m.MapKeys[0]
		kt, ok := MapKeyType(mk)
		if !ok {
			return x.reject(ShapeMapKeyUnrecognized, "unrecognized map key annotation %s", mk.Annotation)
		}
		wrapper := key.TypeProvider
		if b.Kind == Production {
			wrapper = key.TypeProducer
		}
		b.Key = key.New(key.MapOf(kt, key.T(wrapper, ret)), m.Qualifier).WithContribution(contributionID)
		b.MapKey = &mk
	}

	x.md.Bindings = append(x.md.Bindings, b)
	return true
}

func (x *memberExtractor) multibinds(m decl.Member, ret key.TypeRef, deps []key.DependencyRequest, c decl.ContributionType) bool {
	switch {
	case len(deps) > 0:
		return x.reject(ShapeMultibindsShape, "multibinds declarations may not have parameters")
	case c != decl.Unique:
		return x.reject(ShapeMultibindsShape, "multibinds declarations may not be contributions")
	case !ret.Is(key.TypeSet, 1) && !ret.Is(key.TypeMap, 2):
		return x.reject(ShapeMultibindsShape, "multibinds declarations must return a parameterized Set or Map, found %s", ret)
	case m.Scope != "":
		return x.reject(ShapeMultibindsShape, "multibinds declarations may not be scoped")
	}
	x.md.Multibinds = append(x.md.Multibinds, Declaration{
		Key:     key.New(ret, m.Qualifier),
		Module:  x.md.Name,
		Element: x.element,
	})
	return false
}

func (x *memberExtractor) optionalOf(m decl.Member, ret key.TypeRef, deps []key.DependencyRequest, c decl.ContributionType) bool {
	if kind, _ := key.ExtractRequestKind(ret); kind != key.Instance {
		return x.reject(ShapeOptionalOfShape, "bindsOptionalOf may not return a framework type, found %s", ret)
	}
	switch {
	case len(deps) > 0:
		return x.reject(ShapeOptionalOfShape, "bindsOptionalOf declarations may not have parameters")
	case c != decl.Unique:
		return x.reject(ShapeOptionalOfShape, "bindsOptionalOf declarations may not be contributions")
	case m.Scope != "":
		return x.reject(ShapeOptionalOfShape, "bindsOptionalOf declarations may not be scoped")
	}
	x.md.OptionalOf = append(x.md.OptionalOf, Declaration{
		Key:     key.New(ret, m.Qualifier),
		Module:  x.md.Name,
		Element: x.element,
	})
	return false
}

// TransitiveModules returns every module reachable from roots through
// include edges, depth-first pre-order, each module exactly once. Include
// cycles are allowed.
func TransitiveModules(roots []*ModuleDescriptor) []*ModuleDescriptor {
	seen := make(map[string]bool)
	var out []*ModuleDescriptor
	var visit func(m *ModuleDescriptor)
	visit = func(m *ModuleDescriptor) {
		if seen[m.Name] {
			return
		}
		seen[m.Name] = true
		out = append(out, m)
		for _, inc := range m.Includes {
			visit(inc)
		}
	}
	for _, m := range roots {
		visit(m)
	}
	return out
}
