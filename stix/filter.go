package stix

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// DefaultFilterExpr excludes revoked and deprecated ATT&CK objects, the
// standard hygiene applied before ingesting the enterprise bundle.
const DefaultFilterExpr = `!(has(object.revoked) && object.revoked == true) && ` +
	`!(has(object.x_mitre_deprecated) && object.x_mitre_deprecated == true)`

// Filter decides which bundle objects participate in ingestion, using a CEL
// expression evaluated against each decoded object bound as `object`.
type Filter struct {
	expr string
	prg  cel.Program
}

// NewFilter compiles a CEL filter expression. The expression must evaluate
// to a boolean; true keeps the object.
func NewFilter(expr string) (*Filter, error) {
	env, err := cel.NewEnv(
		cel.Variable("object", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter environment: %w", err)
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("invalid filter expression %q: %w", expr, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("filter expression %q must evaluate to bool, got %s", expr, ast.OutputType())
	}

	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to build filter program: %w", err)
	}
	return &Filter{expr: expr, prg: prg}, nil
}

// NewDefaultFilter compiles DefaultFilterExpr.
func NewDefaultFilter() (*Filter, error) { return NewFilter(DefaultFilterExpr) }

// Expr returns the source expression the filter was compiled from.
func (f *Filter) Expr() string { return f.expr }

// Keep reports whether obj passes the filter.
func (f *Filter) Keep(obj Object) (bool, error) {
	out, _, err := f.prg.Eval(map[string]any{"object": map[string]any(obj)})
	if err != nil {
		return false, fmt.Errorf("filter evaluation failed: %w", err)
	}
	keep, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter returned %T, expected bool", out.Value())
	}
	return keep, nil
}
