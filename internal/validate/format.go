package validate

import (
	"strings"

	"github.com/jward/graft/internal/binding"
	"github.com/jward/graft/internal/key"
)

const (
	indent       = "    "
	doubleIndent = indent + indent
)

// FormatRequest renders one request of a chain:
//
//	Foo is injected at
//	        Bar(foo)
func FormatRequest(r key.DependencyRequest, entryPoint bool) string {
	if r.Element == "" {
		return ""
	}
	var subject string
	if entryPoint {
		subject = r.Key.String()
	} else {
		subject = key.RequestType(r.Kind, r.Key.Type()).String()
		if q := r.Key.Qualifier(); q != "" {
			subject = q + " " + subject
		}
	}
	return indent + subject + " is " + requestVerb(r, entryPoint) + " at\n" + doubleIndent + r.Element
}

func requestVerb(r key.DependencyRequest, entryPoint bool) string {
	if !entryPoint {
		return "injected"
	}
	if r.Kind == key.MembersInjection {
		return "injected"
	}
	return "requested"
}

// FormatChain renders a request chain starting at the failing request and
// ending at the entry point.
func FormatChain(chain []key.DependencyRequest) string {
	var b strings.Builder
	for i := len(chain) - 1; i >= 0; i-- {
		line := FormatRequest(chain[i], i == 0)
		if line == "" {
			continue
		}
		b.WriteByte('\n')
		b.WriteString(line)
	}
	return b.String()
}

// FormatBindings lists bindings one per line, indented.
func FormatBindings(bs []*binding.Binding) string {
	var b strings.Builder
	for _, x := range bs {
		b.WriteByte('\n')
		b.WriteString(indent)
		b.WriteString(declaration(x))
	}
	return b.String()
}

func declaration(b *binding.Binding) string {
	if b.Kind == binding.Injection && b.Scope != "" {
		return b.Scope + " class " + b.Key.TypeString()
	}
	return b.Declaration()
}
