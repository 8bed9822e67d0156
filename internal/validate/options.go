package validate

import "fmt"

// MapKeyCollisionPolicy decides what happens when two contributions to the
// same map use the same map key.
type MapKeyCollisionPolicy int

const (
	// RejectAtResolution reports the collision as a diagnostic.
	RejectAtResolution MapKeyCollisionPolicy = iota
	// DeferToRuntime accepts the graph; the generated map builder rejects
	// the duplicate key when the map is built.
	DeferToRuntime
)

func (p MapKeyCollisionPolicy) String() string {
	if p == DeferToRuntime {
		return "runtime"
	}
	return "resolution"
}

// ParseMapKeyCollisionPolicy is the inverse of MapKeyCollisionPolicy.String.
func ParseMapKeyCollisionPolicy(s string) (MapKeyCollisionPolicy, error) {
	switch s {
	case "", "resolution":
		return RejectAtResolution, nil
	case "runtime":
		return DeferToRuntime, nil
	}
	return 0, fmt.Errorf("validate: unknown map key collision policy %q", s)
}

// Options configures the pipeline.
type Options struct {
	// Severity overrides the default severity of a kind.
	Severity        map[Kind]Severity
	MapKeyCollision MapKeyCollisionPolicy
}

// DefaultOptions returns options with every built-in check at its default
// severity and map-key collisions rejected at resolution.
func DefaultOptions() Options {
	return Options{Severity: map[Kind]Severity{KindNullable: Error}}
}

func (o Options) apply(d Diagnostic) Diagnostic {
	if s, ok := o.Severity[d.Kind]; ok {
		d.Severity = s
	}
	return d
}
