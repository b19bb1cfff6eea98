package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculatorEval(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"2+2", "4"},
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"10 / 4", "2.5"},
		{"10 % 3", "1"},
		{"2 ^ 10", "1024"},
		{"2 ^ 3 ^ 2", "512"}, // right-associative
		{"-5 + 3", "-2"},
		{"--4", "4"},
		{"1.5 * 2", "3"},
		{"((1))", "1"},
	}

	calc := NewCalculatorTool()
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := calc.Exec(context.Background(), map[string]any{"expression": tt.expr})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCalculatorErrors(t *testing.T) {
	tests := []struct {
		name string
		expr string
	}{
		{"division by zero", "1/0"},
		{"modulo by zero", "1%0"},
		{"unterminated paren", "(1+2"},
		{"trailing garbage", "1+2)"},
		{"empty", ""},
		{"letters", "two plus two"},
		{"function call", "__import__('os')"},
		{"double dot", "1..2"},
	}

	calc := NewCalculatorTool()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := calc.Exec(context.Background(), map[string]any{"expression": tt.expr})
			assert.Error(t, err)
		})
	}
}

func TestCalculatorArgValidation(t *testing.T) {
	calc := NewCalculatorTool()

	_, err := calc.Exec(context.Background(), map[string]any{})
	assert.ErrorContains(t, err, "missing required argument")

	_, err = calc.Exec(context.Background(), map[string]any{"expression": 42})
	assert.ErrorContains(t, err, "must be a string")
}
