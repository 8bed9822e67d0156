// Package validate runs the ordered list of checks over resolved binding
// graphs and collects their diagnostics into a Report.
package validate

import (
	"fmt"
	"strings"

	"github.com/jward/graft/internal/key"
)

// Severity of a diagnostic. Only errors fail a round.
type Severity int

const (
	Warning Severity = iota
	Error
)

func (s Severity) String() string {
	if s == Error {
		return "error"
	}
	return "warning"
}

// ParseSeverity is the inverse of Severity.String.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(s) {
	case "error":
		return Error, nil
	case "warning", "warn":
		return Warning, nil
	}
	return 0, fmt.Errorf("validate: unknown severity %q", s)
}

// Kind names the check that produced a diagnostic.
type Kind string

const (
	KindShape     Kind = "binding_shape"
	KindMapKey    Kind = "map_key"
	KindMissing   Kind = "missing_binding"
	KindDuplicate Kind = "duplicate_binding"
	KindCycle     Kind = "dependency_cycle"
	KindScope     Kind = "incompatible_scope"
	KindNullable  Kind = "nullable"
	KindScript    Kind = "script"
)

// Kinds lists the built-in kinds in pipeline order.
var Kinds = []Kind{KindShape, KindMapKey, KindMissing, KindDuplicate, KindCycle, KindScope, KindNullable, KindScript}

// Diagnostic is one problem found in a graph.
type Diagnostic struct {
	Kind      Kind
	Severity  Severity
	Component string
	Key       string
	Element   string
	Message   string
	// Chain is the request chain from the entry point, when relevant.
	Chain []key.DependencyRequest
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("[%s] %s %s: %s", d.Severity, d.Kind, d.Component, d.Message)
}

func (d Diagnostic) identity() string {
	return string(d.Kind) + "\x00" + d.Component + "\x00" + d.Element + "\x00" + d.Message
}

// Report accumulates diagnostics across every validator of a round.
type Report struct {
	Diagnostics []Diagnostic
	seen        map[string]bool
}

// Add appends d unless an identical diagnostic was already reported.
func (r *Report) Add(d Diagnostic) {
	if r.seen == nil {
		r.seen = make(map[string]bool)
	}
	id := d.identity()
	if r.seen[id] {
		return
	}
	r.seen[id] = true
	r.Diagnostics = append(r.Diagnostics, d)
}

// Failed reports whether any diagnostic is an error.
func (r *Report) Failed() bool { return r.Errors() > 0 }

// Errors counts error diagnostics.
func (r *Report) Errors() int { return r.count(Error) }

// Warnings counts warning diagnostics.
func (r *Report) Warnings() int { return r.count(Warning) }

func (r *Report) count(s Severity) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Severity == s {
			n++
		}
	}
	return n
}

// ByKind returns the diagnostics of one kind.
func (r *Report) ByKind(k Kind) []Diagnostic {
	var out []Diagnostic
	for _, d := range r.Diagnostics {
		if d.Kind == k {
			out = append(out, d)
		}
	}
	return out
}
