package persist

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// RuleError captures rule metadata alongside the originating error.
type RuleError struct {
	Expr string
	Cell string
	Err  error
}

func (e *RuleError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cell == "" {
		return fmt.Sprintf("persist: rule expr=%q: %v", e.Expr, e.Err)
	}
	return fmt.Sprintf("persist: rule expr=%q cell=%s: %v", e.Expr, e.Cell, e.Err)
}

func (e *RuleError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// rule is a compiled persistence predicate. It decides per set whether the
// entry enters the snapshot; it never sees reset-sentinel writes.
type rule struct {
	expression string
	program    *exprvm.Program
}

func compileRule(expression string) (*rule, error) {
	program, err := exprlang.Compile(expression,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	)
	if err != nil {
		return nil, &RuleError{Expr: expression, Err: err}
	}
	return &rule{expression: expression, program: program}, nil
}

// evaluate runs the rule for one candidate entry. Evaluation failures and
// non-boolean results fail open so a bad rule cannot black-hole writes.
func (r *rule) evaluate(cell string, value any, snapshot Snapshot) (bool, error) {
	env := map[string]any{
		"key":      cell,
		"value":    value,
		"snapshot": map[string]any(snapshot),
	}
	out, err := exprlang.Run(r.program, env)
	if err != nil {
		return true, &RuleError{Expr: r.expression, Cell: cell, Err: err}
	}
	allowed, ok := out.(bool)
	if !ok {
		return true, &RuleError{Expr: r.expression, Cell: cell, Err: fmt.Errorf("expected bool result, got %T", out)}
	}
	return allowed, nil
}

func (p *Persister) allow(cell string, value any, snapshot Snapshot) bool {
	if p.rule == nil {
		return true
	}
	allowed, err := p.rule.evaluate(cell, value, snapshot)
	if err != nil {
		p.logger.LogStorage(StorageLogEvent{Op: OpRule, Key: p.key, Cell: cell, Err: err})
	}
	return allowed
}
