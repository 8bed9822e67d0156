// Package binding turns declarations into module and component descriptors
// and defines the Binding tagged union the resolver works with.
package binding

import (
	"fmt"
	"strings"

	"github.com/jward/graft/internal/decl"
	"github.com/jward/graft/internal/key"
)

// Kind is the tag of a Binding.
type Kind int

const (
	Injection Kind = iota
	Provision
	Production
	Delegate
	MultiboundSet
	MultiboundMap
	Optional
	MembersInjection
	ComponentDependency
	ComponentProvision
	ComponentSelf
)

var kindNames = [...]string{
	Injection:           "injection",
	Provision:           "provision",
	Production:          "production",
	Delegate:            "delegate",
	MultiboundSet:       "multibound_set",
	MultiboundMap:       "multibound_map",
	Optional:            "optional",
	MembersInjection:    "members_injection",
	ComponentDependency: "component_dependency",
	ComponentProvision:  "component_provision",
	ComponentSelf:       "component",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsSynthetic reports whether bindings of this kind are created by the
// resolver rather than declared.
func (k Kind) IsSynthetic() bool {
	switch k {
	case MultiboundSet, MultiboundMap, Optional, ComponentSelf:
		return true
	}
	return false
}

// IsMultibound reports whether k is a synthesized Set or Map.
func (k Kind) IsMultibound() bool {
	return k == MultiboundSet || k == MultiboundMap
}

// ReusableScope is the scope that may be cached in any component.
const ReusableScope = "@Reusable"

// ProductionScope is implicitly carried by every production component.
const ProductionScope = "@ProductionScope"

// Binding is one way of satisfying a key.
type Binding struct {
	Kind         Kind
	Key          key.Key
	Dependencies []key.DependencyRequest
	Scope        string
	Nullable     bool
	Contribution decl.ContributionType
	// MapKey is set for intoMap contributions.
	MapKey *decl.MapKey
	// Module is the declaring module, "" for implicit bindings.
	Module string
	// Element names the declaring element, e.g. "AppModule.provideFoo".
	Element string
	// RequiresModuleInstance is set when calling the binding method needs an
	// instance of the declaring module.
	RequiresModuleInstance bool
	// Contributions lists the contribution keys a synthesized multibinding
	// aggregates, in declaration-path order.
	Contributions []key.Key
	// Underlying is the wrapped key of an Optional binding.
	Underlying key.Key
	// Present is set on Optional bindings whose underlying key resolved.
	Present bool
}

// IsScoped reports whether the binding has a scope.
func (b *Binding) IsScoped() bool { return b.Scope != "" }

// IsReusable reports whether the binding is @Reusable.
func (b *Binding) IsReusable() bool { return b.Scope == ReusableScope }

// IsContribution reports whether b contributes to a multibinding.
func (b *Binding) IsContribution() bool {
	return b.Contribution.Normalize().IsMultibinding()
}

// IsProduction reports whether b requires a production component.
func (b *Binding) IsProduction() bool {
	if b.Kind == Production {
		return true
	}
	for _, d := range b.Dependencies {
		if d.Kind == key.Producer || d.Kind == key.Produced || d.Kind == key.Future {
			return true
		}
	}
	return false
}

// Declaration renders the provenance of b for diagnostics.
func (b *Binding) Declaration() string {
	switch b.Kind {
	case Injection:
		return "@Inject " + b.Key.TypeString() + "(" + paramList(b.Dependencies) + ")"
	case MembersInjection:
		return "members of " + b.Key.TypeString()
	case Provision:
		return "@Provides " + b.signature()
	case Production:
		return "@Produces " + b.signature()
	case Delegate:
		return "@Binds " + b.signature()
	case ComponentDependency:
		return "component dependency " + b.Key.TypeString()
	case ComponentProvision:
		return b.Element + "()"
	case ComponentSelf:
		return "component " + b.Key.TypeString()
	}
	return b.Kind.String() + " " + b.Key.String()
}

func (b *Binding) signature() string {
	var sb strings.Builder
	if b.Scope != "" {
		sb.WriteString(b.Scope)
		sb.WriteByte(' ')
	}
	if q := b.Key.Qualifier(); q != "" {
		sb.WriteString(q)
		sb.WriteByte(' ')
	}
	sb.WriteString(b.returnType())
	sb.WriteByte(' ')
	sb.WriteString(b.Element)
	sb.WriteByte('(')
	sb.WriteString(paramList(b.Dependencies))
	sb.WriteByte(')')
	return sb.String()
}

// returnType is the declared return type, which for map contributions is the
// value type rather than the synthesized map key.
func (b *Binding) returnType() string {
	switch b.Contribution {
	case decl.IntoSet:
		return key.SetElement(b.Key).String()
	case decl.IntoMap:
		_, v := key.MapTypes(b.Key)
		_, inner := key.ExtractRequestKind(v)
		return inner.String()
	}
	return b.Key.TypeString()
}

func paramList(deps []key.DependencyRequest) string {
	parts := make([]string, len(deps))
	for i, d := range deps {
		parts[i] = key.RequestType(d.Kind, d.Key.Type()).String()
		if q := d.Key.Qualifier(); q != "" {
			parts[i] = q + " " + parts[i]
		}
	}
	return strings.Join(parts, ", ")
}

func (b *Binding) String() string {
	return b.Kind.String() + " " + b.Key.String()
}
