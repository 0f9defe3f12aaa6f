package sweep

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/macropower/sweep/pkg/expr"
)

// Exclusions filters run configurations out of a sweep. It combines exact
// partial-match rules with CEL match expressions.
//
// CEL expressions have access to the variable `config` (map<string, dyn>),
// the candidate run configuration. They must return a boolean:
//
//   - config.batch_size == 16 && config.epochs > 10
//   - config.data_name.startsWith("mnist")
//   - false - expression doesn't match
type Exclusions struct {
	rules    []map[string]any
	programs []cel.Program
	exprs    []string
}

// NewExclusions compiles the given exact-match rules and CEL expressions.
func NewExclusions(rules []map[string]any, expressions []string) (*Exclusions, error) {
	e := &Exclusions{
		rules: rules,
		exprs: expressions,
	}

	if len(expressions) == 0 {
		return e, nil
	}

	env, err := expr.NewEnvironment(
		cel.Variable("config", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, err
	}

	for _, expression := range expressions {
		program, err := env.Compile(expression)
		if err != nil {
			return nil, fmt.Errorf("exclusion %q: %w", expression, err)
		}

		e.programs = append(e.programs, program)
	}

	return e, nil
}

// MustNewExclusions compiles exclusions and panics on error.
func MustNewExclusions(rules []map[string]any, expressions []string) *Exclusions {
	e, err := NewExclusions(rules, expressions)
	if err != nil {
		panic(err)
	}

	return e
}

// Empty reports whether there is nothing to exclude.
func (e *Exclusions) Empty() bool {
	return e == nil || (len(e.rules) == 0 && len(e.programs) == 0)
}

// Matches reports whether rc matches at least one rule or expression.
// Rule order is irrelevant; the first match short-circuits.
func (e *Exclusions) Matches(rc RunConfig) (bool, error) {
	if e == nil {
		return false, nil
	}

	for _, rule := range e.rules {
		if rc.MatchesRule(rule) {
			return true, nil
		}
	}

	for i, program := range e.programs {
		matched, err := expr.EvalBool(program, map[string]any{"config": map[string]any(rc)})
		if err != nil {
			return false, fmt.Errorf("exclusion %q: %w", e.exprs[i], err)
		}

		if matched {
			return true, nil
		}
	}

	return false, nil
}
