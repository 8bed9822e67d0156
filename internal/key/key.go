package key

import (
	"fmt"
	"strings"
)

// Contribution identifies a single multibinding contribution: the module and
// method that declared it. Two contributions to the same collection type have
// distinct keys because their Contribution values differ.
type Contribution struct {
	Module string
	Method string
}

// IsZero reports whether c is unset.
func (c Contribution) IsZero() bool {
	return c.Module == "" && c.Method == ""
}

func (c Contribution) String() string {
	return c.Module + "#" + c.Method
}

// Key identifies a requested dependency. Keys are comparable values and are
// used directly as map keys and graph node identities.
type Key struct {
	typ          string
	qualifier    string
	contribution Contribution
}

// New returns the key for a type with an optional qualifier ("" = unqualified).
func New(t TypeRef, qualifier string) Key {
	return Key{typ: t.String(), qualifier: strings.TrimSpace(qualifier)}
}

// Of parses expr and returns its key.
func Of(expr, qualifier string) (Key, error) {
	t, err := ParseType(expr)
	if err != nil {
		return Key{}, err
	}
	return New(t, qualifier), nil
}

// MustOf is Of that panics on a malformed type expression.
func MustOf(expr, qualifier string) Key {
	k, err := Of(expr, qualifier)
	if err != nil {
		panic(err)
	}
	return k
}

// Type returns the parsed type of the key. The canonical form always parses.
func (k Key) Type() TypeRef {
	return MustParseType(k.typ)
}

// TypeString returns the canonical type expression.
func (k Key) TypeString() string { return k.typ }

// Qualifier returns the qualifier annotation, or "".
func (k Key) Qualifier() string { return k.qualifier }

// Contribution returns the multibinding contribution identifier, if any.
func (k Key) Contribution() (Contribution, bool) {
	return k.contribution, !k.contribution.IsZero()
}

// IsZero reports whether k is the zero Key.
func (k Key) IsZero() bool { return k == Key{} }

// WithType returns a copy of k with a different type, keeping qualifier and
// contribution identifier.
func (k Key) WithType(t TypeRef) Key {
	k.typ = t.String()
	return k
}

// WithContribution attaches a multibinding contribution identifier.
func (k Key) WithContribution(c Contribution) Key {
	k.contribution = c
	return k
}

// WithoutContribution removes the contribution identifier.
func (k Key) WithoutContribution() Key {
	k.contribution = Contribution{}
	return k
}

// String renders the key as it appears in diagnostics: "@Named("a") Foo".
func (k Key) String() string {
	var b strings.Builder
	if k.qualifier != "" {
		b.WriteString(k.qualifier)
		b.WriteByte(' ')
	}
	b.WriteString(k.typ)
	if !k.contribution.IsZero() {
		fmt.Fprintf(&b, " [%s]", k.contribution)
	}
	return b.String()
}

// Parse is the inverse of String for keys without a contribution identifier.
// A leading "@..." token is taken as the qualifier.
func Parse(s string) (Key, error) {
	s = strings.TrimSpace(s)
	var qualifier string
	if strings.HasPrefix(s, "@") {
		depth := 0
		end := -1
		for i, c := range s {
			switch c {
			case '(':
				depth++
			case ')':
				depth--
			case ' ':
				if depth == 0 && end < 0 {
					end = i
				}
			}
			if end >= 0 {
				break
			}
		}
		if end < 0 {
			return Key{}, fmt.Errorf("parse key %q: qualifier without type", s)
		}
		qualifier, s = s[:end], s[end+1:]
	}
	return Of(s, qualifier)
}

// IsSet reports whether the key's type is Set<T>.
func IsSet(k Key) bool { return k.Type().Is(TypeSet, 1) }

// IsMap reports whether the key's type is Map<K, V>.
func IsMap(k Key) bool { return k.Type().Is(TypeMap, 2) }

// IsOptional reports whether the key's type is Optional<T>.
func IsOptional(k Key) bool { return k.Type().Is(TypeOptional, 1) }

// IsMultibindingType reports whether k names a Set or Map.
func IsMultibindingType(k Key) bool { return IsSet(k) || IsMap(k) }

// SetElement returns T for a key of type Set<T>. Calling it on any other key
// is a programming error and panics.
func SetElement(k Key) TypeRef {
	t := k.Type()
	if !t.Is(TypeSet, 1) {
		panic(fmt.Sprintf("key: %s is not a Set type", k))
	}
	return t.Args[0]
}

// MapTypes returns (K, V) for a key of type Map<K, V>. Panics otherwise.
func MapTypes(k Key) (TypeRef, TypeRef) {
	t := k.Type()
	if !t.Is(TypeMap, 2) {
		panic(fmt.Sprintf("key: %s is not a Map type", k))
	}
	return t.Args[0], t.Args[1]
}

// Compare orders keys by type, then qualifier, then contribution.
func Compare(a, b Key) int {
	if c := strings.Compare(a.typ, b.typ); c != 0 {
		return c
	}
	if c := strings.Compare(a.qualifier, b.qualifier); c != 0 {
		return c
	}
	if c := strings.Compare(a.contribution.Module, b.contribution.Module); c != 0 {
		return c
	}
	return strings.Compare(a.contribution.Method, b.contribution.Method)
}
