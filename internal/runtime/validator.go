package runtime

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jward/graft/internal/graph"
	"github.com/jward/graft/internal/validate"
)

// NullableScript is the name of the bundled nullable-binding check.
const NullableScript = "nullable"

// Script is a validator script held in memory for the lifetime of a round.
type Script struct {
	Name   string
	Kind   validate.Kind
	Source string
}

// LoadValidator reads the validator script called name from
// validate/<name>.risor.
func (r *Runtime) LoadValidator(name string) (*Script, error) {
	src, err := r.LoadScript(ValidatorScriptPath(name))
	if err != nil {
		return nil, err
	}
	kind := validate.KindScript
	if name == NullableScript {
		kind = validate.KindNullable
	}
	return &Script{Name: name, Kind: kind, Source: src}, nil
}

// Validator adapts s to the validation pipeline. A script that fails to run
// is reported as an error diagnostic on the graph it was checking, alongside
// whatever it reported before failing.
func (r *Runtime) Validator(ctx context.Context, s *Script) validate.Validator {
	label := ValidatorScriptPath(s.Name)
	return validate.Validator{
		Name: s.Name,
		Check: func(g *graph.BindingGraph) []validate.Diagnostic {
			h := newGraphHost(g, s.Kind)
			if err := r.eval(ctx, s.Source, label, h.globals()); err != nil {
				r.logger.Warn("validator script failed",
					zap.String("script", s.Name),
					zap.String("component", g.Path.String()),
					zap.Error(err))
				return append(h.diags, validate.Diagnostic{
					Kind:      validate.KindScript,
					Severity:  validate.Error,
					Component: g.Path.String(),
					Element:   label,
					Message:   fmt.Sprintf("validator %s failed: %v", s.Name, err),
				})
			}
			return h.diags
		},
	}
}
