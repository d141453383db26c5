package expression

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluator_Condition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		language string
		code     string
		env      map[string]any
		expected bool
		wantErr  bool
	}{
		{name: "empty condition holds", code: "", expected: true},
		{name: "greater than true", code: "x > 0", env: map[string]any{"x": 5}, expected: true},
		{name: "greater than false", code: "x > 0", env: map[string]any{"x": -1}, expected: false},
		{name: "string equality", language: LanguageExpr, code: `status == "active"`, env: map[string]any{"status": "active"}, expected: true},
		{name: "nested map access", code: `order.total >= 100`, env: map[string]any{"order": map[string]any{"total": 150}}, expected: true},
		{name: "simple literal", language: LanguageSimple, code: "false", expected: false},
		{name: "non boolean result", code: "x + 1", env: map[string]any{"x": 1}, wantErr: true},
		{name: "syntax error", code: "x >", wantErr: true},
		{name: "unknown language", language: "python", code: "True", wantErr: true},
	}

	evaluator := NewEvaluator()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := evaluator.Condition(tt.language, tt.code, tt.env)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEvaluator_Value(t *testing.T) {
	t.Parallel()

	evaluator := NewEvaluator()

	value, err := evaluator.Value("price * quantity", map[string]any{"price": 2, "quantity": 3})
	require.NoError(t, err)
	assert.Equal(t, 6, value)

	// second call hits the program cache
	value, err = evaluator.Value("price * quantity", map[string]any{"price": 4, "quantity": 3})
	require.NoError(t, err)
	assert.Equal(t, 12, value)
}

func TestEvaluator_Validate(t *testing.T) {
	t.Parallel()

	evaluator := NewEvaluator()

	require.NoError(t, evaluator.Validate("", "a && b"))
	require.NoError(t, evaluator.Validate(LanguageSimple, "true"))
	require.Error(t, evaluator.Validate(LanguageSimple, "maybe"))
	require.ErrorIs(t, evaluator.Validate("lua", "x"), ErrUnsupportedLanguage)
}

func TestSimpleInterpreter_Evaluate(t *testing.T) {
	t.Parallel()

	interpreter := SimpleInterpreter{}

	tests := []struct {
		input    any
		expected bool
		wantErr  bool
	}{
		{input: nil, expected: true},
		{input: true, expected: true},
		{input: "", expected: true},
		{input: "false", expected: false},
		{input: "1", expected: true},
		{input: 0, expected: false},
		{input: int64(2), expected: true},
		{input: 0.0, expected: false},
		{input: "yes please", wantErr: true},
		{input: []string{"x"}, wantErr: true},
	}

	for _, tt := range tests {
		result, err := interpreter.Evaluate(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %v", tt.input)

			continue
		}

		require.NoError(t, err, "input %v", tt.input)
		assert.Equal(t, tt.expected, result, "input %v", tt.input)
	}
}
