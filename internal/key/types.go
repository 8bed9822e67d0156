package key

import (
	"fmt"
	"strings"
)

// Well-known type names understood by the resolver.
const (
	TypeSet              = "Set"
	TypeMap              = "Map"
	TypeOptional         = "Optional"
	TypeProvider         = "Provider"
	TypeLazy             = "Lazy"
	TypeProducer         = "Producer"
	TypeProduced         = "Produced"
	TypeFuture           = "Future"
	TypeMembersInjector  = "MembersInjector"
	wildcard             = "?"
	wildcardExtendsToken = "? extends "
	wildcardSuperToken   = "? super "
)

// TypeRef is a structural type expression: a name and its type arguments.
type TypeRef struct {
	Name string
	Args []TypeRef
}

// T builds a TypeRef.
func T(name string, args ...TypeRef) TypeRef {
	return TypeRef{Name: name, Args: args}
}

// String renders the canonical form, e.g. "Map<String, Provider<Foo>>".
func (t TypeRef) String() string {
	if len(t.Args) == 0 {
		return t.Name
	}
	var b strings.Builder
	b.WriteString(t.Name)
	b.WriteByte('<')
	for i, a := range t.Args {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(a.String())
	}
	b.WriteByte('>')
	return b.String()
}

// Is reports whether t is the named type with exactly n type arguments.
func (t TypeRef) Is(name string, n int) bool {
	return t.Name == name && len(t.Args) == n
}

// IsRaw reports whether t is a generic collection used without arguments.
func (t TypeRef) IsRaw() bool {
	return len(t.Args) == 0
}

// ParseType parses a type expression. Wildcards with a bound are reduced to
// the bound, so "Set<? extends Foo>" and "Set<Foo>" are the same type.
func ParseType(expr string) (TypeRef, error) {
	p := &typeParser{src: expr}
	t, err := p.parse()
	if err != nil {
		return TypeRef{}, fmt.Errorf("parse type %q: %w", expr, err)
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return TypeRef{}, fmt.Errorf("parse type %q: unexpected %q at offset %d", expr, p.src[p.pos:], p.pos)
	}
	return t, nil
}

// MustParseType is ParseType that panics on malformed input.
func MustParseType(expr string) TypeRef {
	t, err := ParseType(expr)
	if err != nil {
		panic(err)
	}
	return t
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeParser) parse() (TypeRef, error) {
	p.skipSpace()
	rest := p.src[p.pos:]
	switch {
	case strings.HasPrefix(rest, wildcardExtendsToken):
		p.pos += len(wildcardExtendsToken)
		return p.parse()
	case strings.HasPrefix(rest, wildcardSuperToken):
		p.pos += len(wildcardSuperToken)
		return p.parse()
	}

	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '<' || c == '>' || c == ',' || c == ' ' || c == '\t' {
			break
		}
		p.pos++
	}
	name := p.src[start:p.pos]
	if name == "" {
		return TypeRef{}, fmt.Errorf("expected type name at offset %d", start)
	}

	t := TypeRef{Name: name}
	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '<' {
		if name == wildcard {
			return TypeRef{}, fmt.Errorf("wildcard cannot take type arguments")
		}
		p.pos++
		for {
			arg, err := p.parse()
			if err != nil {
				return TypeRef{}, err
			}
			t.Args = append(t.Args, arg)
			p.skipSpace()
			if p.pos >= len(p.src) {
				return TypeRef{}, fmt.Errorf("unterminated type argument list")
			}
			if p.src[p.pos] == ',' {
				p.pos++
				continue
			}
			if p.src[p.pos] == '>' {
				p.pos++
				break
			}
			return TypeRef{}, fmt.Errorf("unexpected %q at offset %d", p.src[p.pos], p.pos)
		}
	}
	return t, nil
}
