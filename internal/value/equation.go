package value

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// EquationEngine evaluates property equation-transformer expressions.
//
// Expressions are CEL programs over a single double variable x, e.g.
// "x / 2.0 + 16.0". Each expression is compiled once and the compiled
// program cached for the engine's lifetime, so per-call cost is a single
// map lookup plus evaluation.
//
// Equations are only defined for numeric values; applying one to a
// non-numeric value is a no-op.
//
// All methods are safe for concurrent use.
type EquationEngine struct {
	env      *cel.Env
	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewEquationEngine creates an engine with an empty program cache.
func NewEquationEngine() (*EquationEngine, error) {
	env, err := cel.NewEnv(cel.Variable("x", cel.DoubleType))
	if err != nil {
		return nil, fmt.Errorf("creating expression environment: %w", err)
	}
	return &EquationEngine{
		env:      env,
		programs: make(map[string]cel.Program),
	}, nil
}

// Apply evaluates the expression with the value bound to x. Non-numeric and
// null values pass through untouched. Compilation and evaluation failures
// are reported as ErrInvalidValue.
func (e *EquationEngine) Apply(expression string, v Value) (Value, error) {
	f, ok := v.Float64()
	if !ok {
		return v, nil
	}

	prg, err := e.program(expression)
	if err != nil {
		return Null(), err
	}

	out, _, err := prg.Eval(map[string]any{"x": f})
	if err != nil {
		return Null(), fmt.Errorf("%w: evaluating %q: %v", ErrInvalidValue, expression, err)
	}

	switch result := out.Value().(type) {
	case float64:
		return Float(result), nil
	case int64:
		return Float(float64(result)), nil
	case uint64:
		return Float(float64(result)), nil
	default:
		return Null(), fmt.Errorf("%w: expression %q produced non-numeric %T", ErrInvalidValue, expression, result)
	}
}

// program returns the cached compiled program for the expression, compiling
// and caching it on first use.
func (e *EquationEngine) program(expression string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Another goroutine may have compiled it while we waited for the lock.
	if prg, ok := e.programs[expression]; ok {
		return prg, nil
	}

	ast, iss := e.env.Compile(expression)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("%w: compiling %q: %v", ErrInvalidValue, expression, iss.Err())
	}

	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("%w: building program for %q: %v", ErrInvalidValue, expression, err)
	}

	e.programs[expression] = prg
	return prg, nil
}
