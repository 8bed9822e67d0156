package key

import "fmt"

// RequestKind describes how a dependency is requested.
type RequestKind int

const (
	Instance RequestKind = iota
	Provider
	Lazy
	ProviderOfLazy
	Producer
	Produced
	Future
	MembersInjection
)

var requestKindNames = [...]string{
	Instance:         "instance",
	Provider:         "provider",
	Lazy:             "lazy",
	ProviderOfLazy:   "provider_of_lazy",
	Producer:         "producer",
	Produced:         "produced",
	Future:           "future",
	MembersInjection: "members_injection",
}

func (k RequestKind) String() string {
	if int(k) < len(requestKindNames) {
		return requestKindNames[k]
	}
	return fmt.Sprintf("RequestKind(%d)", int(k))
}

// ParseRequestKind is the inverse of RequestKind.String.
func ParseRequestKind(s string) (RequestKind, bool) {
	for i, n := range requestKindNames {
		if n == s {
			return RequestKind(i), true
		}
	}
	return 0, false
}

// Deferred reports whether a request of this kind does not need the target
// value to exist yet. Deferred edges break dependency cycles.
func (k RequestKind) Deferred() bool {
	switch k {
	case Provider, Lazy, ProviderOfLazy, Producer:
		return true
	}
	return false
}

// Framework reports whether the request is satisfied by a framework object
// (Provider, Lazy, Producer, ...) rather than the value itself.
func (k RequestKind) Framework() bool {
	return k != Instance && k != MembersInjection
}

// DependencyRequest is a reference to a Key with a request kind.
type DependencyRequest struct {
	Kind RequestKind
	Key  Key
	// Element names the request site, e.g. "AppModule.provideFoo(bar)".
	Element string
	// Nullable is set when the request site accepts null.
	Nullable bool
}

func (r DependencyRequest) String() string {
	if r.Kind == Instance {
		return r.Key.String()
	}
	return fmt.Sprintf("%s(%s)", r.Kind, r.Key)
}

// RequestFor derives the request kind and key from a possibly
// framework-wrapped type: Provider<T>, Lazy<T>, Provider<Lazy<T>>,
// Producer<T>, Produced<T> and Future<T> unwrap to T.
func RequestFor(t TypeRef, qualifier, element string) DependencyRequest {
	kind, inner := ExtractRequestKind(t)
	return DependencyRequest{Kind: kind, Key: New(inner, qualifier), Element: element}
}

// ExtractRequestKind splits a framework wrapper off t.
func ExtractRequestKind(t TypeRef) (RequestKind, TypeRef) {
	switch {
	case t.Is(TypeProvider, 1):
		if t.Args[0].Is(TypeLazy, 1) {
			return ProviderOfLazy, t.Args[0].Args[0]
		}
		return Provider, t.Args[0]
	case t.Is(TypeLazy, 1):
		return Lazy, t.Args[0]
	case t.Is(TypeProducer, 1):
		return Producer, t.Args[0]
	case t.Is(TypeProduced, 1):
		return Produced, t.Args[0]
	case t.Is(TypeFuture, 1):
		return Future, t.Args[0]
	}
	return Instance, t
}

// RequestType is the inverse of ExtractRequestKind.
func RequestType(kind RequestKind, t TypeRef) TypeRef {
	switch kind {
	case Provider:
		return T(TypeProvider, t)
	case Lazy:
		return T(TypeLazy, t)
	case ProviderOfLazy:
		return T(TypeProvider, T(TypeLazy, t))
	case Producer:
		return T(TypeProducer, t)
	case Produced:
		return T(TypeProduced, t)
	case Future:
		return T(TypeFuture, t)
	}
	return t
}
