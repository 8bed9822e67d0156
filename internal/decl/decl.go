// Package decl holds the declaration data model consumed by the resolver.
// Declarations arrive as data (usually decoded from YAML manifests); nothing
// in this package interprets them beyond simple indexing.
package decl

import "github.com/jward/graft/internal/key"

// Role is the binding-producing role of a module member.
type Role string

const (
	RoleProvides        Role = "provides"
	RoleProduces        Role = "produces"
	RoleBinds           Role = "binds"
	RoleMultibinds      Role = "multibinds"
	RoleBindsOptionalOf Role = "bindsOptionalOf"
)

// Known reports whether r is one of the recognized roles.
func (r Role) Known() bool {
	switch r {
	case RoleProvides, RoleProduces, RoleBinds, RoleMultibinds, RoleBindsOptionalOf:
		return true
	}
	return false
}

// ContributionType says how a binding contributes to its key.
type ContributionType string

const (
	Unique          ContributionType = "unique"
	IntoSet         ContributionType = "intoSet"
	ElementsIntoSet ContributionType = "elementsIntoSet"
	IntoMap         ContributionType = "intoMap"
)

// IsMultibinding reports whether c contributes to a Set or Map.
func (c ContributionType) IsMultibinding() bool {
	return c == IntoSet || c == ElementsIntoSet || c == IntoMap
}

// Normalize maps the empty contribution type to Unique.
func (c ContributionType) Normalize() ContributionType {
	if c == "" {
		return Unique
	}
	return c
}

// ComponentKind is the kind of a component declaration.
type ComponentKind string

const (
	KindComponent              ComponentKind = "component"
	KindSubcomponent           ComponentKind = "subcomponent"
	KindProductionComponent    ComponentKind = "productionComponent"
	KindProductionSubcomponent ComponentKind = "productionSubcomponent"
)

// IsRoot reports whether components of this kind start a hierarchy.
func (k ComponentKind) IsRoot() bool {
	return k == "" || k == KindComponent || k == KindProductionComponent
}

// IsProducer reports whether production bindings may be used.
func (k ComponentKind) IsProducer() bool {
	return k == KindProductionComponent || k == KindProductionSubcomponent
}

// Param is a dependency of a member or constructor: an ordered (type,
// qualifier) pair.
type Param struct {
	Name      string `yaml:"name,omitempty" json:"name,omitempty"`
	Type      string `yaml:"type" json:"type"`
	Qualifier string `yaml:"qualifier,omitempty" json:"qualifier,omitempty"`
	Nullable  bool   `yaml:"nullable,omitempty" json:"nullable,omitempty"`
}

// MapKey is a map-key annotation on an intoMap contribution, e.g.
// {Annotation: "@StringKey", Value: "a"}. KeyType overrides the map key type
// for annotations that are not built in.
type MapKey struct {
	Annotation string `yaml:"annotation" json:"annotation"`
	Value      string `yaml:"value" json:"value"`
	KeyType    string `yaml:"keyType,omitempty" json:"keyType,omitempty"`
}

// Member is one declared member of a module.
type Member struct {
	Name         string           `yaml:"name" json:"name"`
	Roles        []Role           `yaml:"roles" json:"roles"`
	Returns      string           `yaml:"returns" json:"returns"`
	Qualifier    string           `yaml:"qualifier,omitempty" json:"qualifier,omitempty"`
	Scope        string           `yaml:"scope,omitempty" json:"scope,omitempty"`
	Nullable     bool             `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	Static       bool             `yaml:"static,omitempty" json:"static,omitempty"`
	Mirrored     bool             `yaml:"mirrored,omitempty" json:"mirrored,omitempty"`
	Contribution ContributionType `yaml:"contribution,omitempty" json:"contribution,omitempty"`
	MapKeys      []MapKey         `yaml:"mapKeys,omitempty" json:"mapKeys,omitempty"`
	Params       []Param          `yaml:"params,omitempty" json:"params,omitempty"`
}

// Descriptor identifies the member's method signature: name, parameter
// types and return type.
func (m Member) Descriptor() string {
	d := m.Name + "("
	for i, p := range m.Params {
		if i > 0 {
			d += ","
		}
		d += p.Type
	}
	return d + ")" + m.Returns
}

// Module is a module declaration.
type Module struct {
	Name       string   `yaml:"name" json:"name"`
	Superclass string   `yaml:"superclass,omitempty" json:"superclass,omitempty"`
	Includes   []string `yaml:"includes,omitempty" json:"includes,omitempty"`
	Producer   bool     `yaml:"producer,omitempty" json:"producer,omitempty"`
	Members    []Member `yaml:"members,omitempty" json:"members,omitempty"`
	// Companion is a nested helper module whose bindings are merged into
	// this one.
	Companion *Module `yaml:"companion,omitempty" json:"companion,omitempty"`
}

// Injectable is a type with an injectable constructor and/or injectable
// members.
type Injectable struct {
	Type    string  `yaml:"type" json:"type"`
	Scope   string  `yaml:"scope,omitempty" json:"scope,omitempty"`
	Params  []Param `yaml:"params,omitempty" json:"params,omitempty"`
	Members []Param `yaml:"members,omitempty" json:"members,omitempty"`
	// MembersOnly marks types that have injectable members but no
	// injectable constructor.
	MembersOnly bool `yaml:"membersOnly,omitempty" json:"membersOnly,omitempty"`
}

// Provision is a method on a component dependency that exposes a value.
type Provision struct {
	Method    string `yaml:"method" json:"method"`
	Returns   string `yaml:"returns" json:"returns"`
	Qualifier string `yaml:"qualifier,omitempty" json:"qualifier,omitempty"`
	Nullable  bool   `yaml:"nullable,omitempty" json:"nullable,omitempty"`
}

// Dependency is an external component dependency.
type Dependency struct {
	Type       string      `yaml:"type" json:"type"`
	Provisions []Provision `yaml:"provisions,omitempty" json:"provisions,omitempty"`
}

// EntryPoint is an abstract method on the component contract.
type EntryPoint struct {
	Method    string `yaml:"method" json:"method"`
	Returns   string `yaml:"returns" json:"returns"`
	Qualifier string `yaml:"qualifier,omitempty" json:"qualifier,omitempty"`
	// MembersInjection marks "void inject(T)" style methods; Returns names T.
	MembersInjection bool `yaml:"membersInjection,omitempty" json:"membersInjection,omitempty"`
	Nullable         bool `yaml:"nullable,omitempty" json:"nullable,omitempty"`
}

// Component is a component or subcomponent declaration. Subcomponents are
// referenced by name.
type Component struct {
	Name          string        `yaml:"name" json:"name"`
	Kind          ComponentKind `yaml:"kind,omitempty" json:"kind,omitempty"`
	Scopes        []string      `yaml:"scopes,omitempty" json:"scopes,omitempty"`
	Modules       []string      `yaml:"modules,omitempty" json:"modules,omitempty"`
	Dependencies  []Dependency  `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	Subcomponents []string      `yaml:"subcomponents,omitempty" json:"subcomponents,omitempty"`
	EntryPoints   []EntryPoint  `yaml:"entryPoints,omitempty" json:"entryPoints,omitempty"`
}

// ScopeAlias declares that scope Alias is interchangeable with scope Of.
type ScopeAlias struct {
	Alias string `yaml:"alias" json:"alias"`
	Of    string `yaml:"of" json:"of"`
}

// Set is the full declaration input of one round.
type Set struct {
	Classpath    key.Classpath `yaml:"classpath" json:"classpath"`
	Modules      []Module      `yaml:"modules,omitempty" json:"modules,omitempty"`
	Injectables  []Injectable  `yaml:"injectables,omitempty" json:"injectables,omitempty"`
	Components   []Component   `yaml:"components,omitempty" json:"components,omitempty"`
	ScopeAliases []ScopeAlias  `yaml:"scopeAliases,omitempty" json:"scopeAliases,omitempty"`
}
