// Package expression evaluates flow conditions and script assignments.
package expression

import (
	"errors"
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

const (
	LanguageExpr   = "expr"
	LanguageSimple = "simple"
)

var ErrUnsupportedLanguage = errors.New("unsupported expression language")

// Evaluator compiles and runs expressions against a variable environment.
// Compiled programs are cached by source, so one Evaluator is meant to be shared.
type Evaluator struct {
	mu       sync.RWMutex
	programs map[string]*vm.Program
	simple   SimpleInterpreter
}

func NewEvaluator() *Evaluator {
	return &Evaluator{programs: make(map[string]*vm.Program)}
}

// Condition evaluates a boolean guard. Empty conditions hold.
func (e *Evaluator) Condition(language, code string, env map[string]any) (bool, error) {
	switch language {
	case "", LanguageExpr:
		if code == "" {
			return true, nil
		}

		value, err := e.run(code, env)
		if err != nil {
			return false, err
		}

		result, ok := value.(bool)
		if !ok {
			return false, fmt.Errorf("condition %q returned %T, expected bool", code, value)
		}

		return result, nil
	case LanguageSimple:
		return e.simple.Evaluate(code)
	default:
		return false, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
}

// Value evaluates an expression and returns its raw result.
func (e *Evaluator) Value(code string, env map[string]any) (any, error) {
	return e.run(code, env)
}

// Validate compiles the code without running it.
func (e *Evaluator) Validate(language, code string) error {
	switch language {
	case "", LanguageExpr:
		_, err := e.program(code)

		return err
	case LanguageSimple:
		_, err := e.simple.Evaluate(code)

		return err
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
}

func (e *Evaluator) run(code string, env map[string]any) (any, error) {
	program, err := e.program(code)
	if err != nil {
		return nil, err
	}

	if env == nil {
		env = map[string]any{}
	}

	value, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate %q: %w", code, err)
	}

	return value, nil
}

func (e *Evaluator) program(code string) (*vm.Program, error) {
	e.mu.RLock()
	program, ok := e.programs[code]
	e.mu.RUnlock()

	if ok {
		return program, nil
	}

	program, err := expr.Compile(code, expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("failed to compile %q: %w", code, err)
	}

	e.mu.Lock()
	e.programs[code] = program
	e.mu.Unlock()

	return program, nil
}
