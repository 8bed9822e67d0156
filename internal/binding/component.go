package binding

import (
	"fmt"

	"github.com/jward/graft/internal/decl"
	"github.com/jward/graft/internal/key"
)

// EntryPoint is an abstract component method and the request it makes.
type EntryPoint struct {
	Method  string
	Request key.DependencyRequest
}

// ComponentDescriptor is the extracted form of one component.
type ComponentDescriptor struct {
	Name   string
	Kind   decl.ComponentKind
	Scopes []string
	// Modules are installed directly; Closure is their transitive closure.
	Modules []*ModuleDescriptor
	Closure []*ModuleDescriptor
	// DependencyBindings holds the bindings for external dependencies and
	// their provision methods.
	DependencyBindings []*Binding
	Subcomponents      []*ComponentDescriptor
	EntryPoints        []EntryPoint
	Rejected           []Rejected
}

// SelfBinding returns the binding that lets the component be injected.
func (cd *ComponentDescriptor) SelfBinding() *Binding {
	return &Binding{
		Kind:    ComponentSelf,
		Key:     key.New(key.T(cd.Name), ""),
		Element: cd.Name,
	}
}

// HasScope reports whether the component declares s, without alias expansion.
func (cd *ComponentDescriptor) HasScope(s string) bool {
	for _, have := range cd.Scopes {
		if have == s {
			return true
		}
	}
	return false
}

func (cd *ComponentDescriptor) reject(s Shape, element, format string, args ...any) {
	cd.Rejected = append(cd.Rejected, Rejected{
		Shape:   s,
		Module:  cd.Name,
		Element: element,
		Detail:  fmt.Sprintf(format, args...),
	})
}

func (c *Catalog) buildComponent(d *decl.Component, cd *ComponentDescriptor) {
	cd.Name = d.Name
	cd.Kind = d.Kind
	if cd.Kind == "" {
		cd.Kind = decl.KindComponent
	}
	cd.Scopes = append(cd.Scopes, d.Scopes...)
	if cd.Kind.IsProducer() && !cd.HasScope(ProductionScope) {
		cd.Scopes = append(cd.Scopes, ProductionScope)
	}

	for _, name := range d.Modules {
		m, ok := c.Module(name)
		if !ok {
			cd.reject(ShapeUnknownModule, d.Name, "installs unknown module %s", name)
			continue
		}
		cd.Modules = append(cd.Modules, m)
	}
	cd.Closure = TransitiveModules(cd.Modules)

	for _, dep := range d.Dependencies {
		dt, err := key.ParseType(dep.Type)
		if err != nil {
			cd.reject(ShapeInvalidType, d.Name, "invalid dependency type: %v", err)
			continue
		}
		cd.DependencyBindings = append(cd.DependencyBindings, &Binding{
			Kind:    ComponentDependency,
			Key:     key.New(dt, ""),
			Element: dt.String(),
		})
		for _, p := range dep.Provisions {
			element := dt.String() + "." + p.Method
			rt, err := key.ParseType(p.Returns)
			if err != nil {
				cd.reject(ShapeInvalidType, element, "invalid provision type: %v", err)
				continue
			}
			cd.DependencyBindings = append(cd.DependencyBindings, &Binding{
				Kind:     ComponentProvision,
				Key:      key.New(rt, p.Qualifier),
				Nullable: p.Nullable,
				Element:  element,
			})
		}
	}

	for _, ep := range d.EntryPoints {
		element := d.Name + "." + ep.Method + "()"
		t, err := key.ParseType(ep.Returns)
		if err != nil {
			cd.reject(ShapeInvalidEntryPoint, element, "invalid entry point type: %v", err)
			continue
		}
		var req key.DependencyRequest
		if ep.MembersInjection {
			req = key.DependencyRequest{
				Kind:    key.MembersInjection,
				Key:     key.New(key.T(key.TypeMembersInjector, t), ep.Qualifier),
				Element: element,
			}
		} else {
			req = key.RequestFor(t, ep.Qualifier, element)
		}
		req.Nullable = ep.Nullable
		cd.EntryPoints = append(cd.EntryPoints, EntryPoint{Method: ep.Method, Request: req})
	}

	for _, name := range d.Subcomponents {
		sd, ok := c.index.Component(name)
		switch {
		case !ok:
			cd.reject(ShapeUnknownSubcomponent, d.Name, "declares unknown subcomponent %s", name)
			continue
		case sd.Kind.IsRoot():
			cd.reject(ShapeNotSubcomponent, d.Name, "%s is a root component and cannot be a subcomponent", name)
			continue
		case c.components.InProgress(name):
			cd.reject(ShapeSubcomponentCycle, d.Name, "subcomponent %s is already an ancestor of %s", name, d.Name)
			continue
		}
		cd.Subcomponents = append(cd.Subcomponents, c.component(sd))
	}
}
