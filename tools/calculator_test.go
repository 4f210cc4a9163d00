package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func calcArgs(expr string) json.RawMessage {
	args, _ := json.Marshal(map[string]string{"expression": expr})
	return args
}

func TestCalculatorBasics(t *testing.T) {
	tool := NewCalculatorTool()

	cases := []struct {
		expr string
		want string
	}{
		{"2+3", "5"},
		{"2 * (3 + 4)", "14"},
		{"10 / 4", "2.5"},
		{"-5 + 3", "-2"},
		{"1.5 * 2", "3"},
		{"1,000 + 1", "1001"},
		{"2 + 3 * 4", "14"},
		{"(2 + 3) * 4", "20"},
		{"--3", "3"},
	}

	for _, tc := range cases {
		result, err := tool.Execute(context.Background(), calcArgs(tc.expr))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.expr, err)
		}
		if !result.Success() {
			t.Errorf("%s: expected success, got %v", tc.expr, result.Error)
			continue
		}
		if result.Output != tc.want {
			t.Errorf("%s: expected %s, got %s", tc.expr, tc.want, result.Output)
		}
	}
}

func TestCalculatorDivisionByZero(t *testing.T) {
	tool := NewCalculatorTool()
	result, err := tool.Execute(context.Background(), calcArgs("1 / 0"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success() {
		t.Fatal("expected failure for division by zero")
	}
	if !strings.Contains(result.Error.Error(), "division by zero") {
		t.Errorf("expected division by zero error, got %v", result.Error)
	}
}

func TestCalculatorRejectsInvalidCharacters(t *testing.T) {
	tool := NewCalculatorTool()

	for _, expr := range []string{"2 + x", "import os", "2**3 % 1;"} {
		if err := tool.Validate(calcArgs(expr)); err == nil && strings.ContainsAny(expr, "x%;") {
			t.Errorf("%s: expected validation error", expr)
		}
		result, err := tool.Execute(context.Background(), calcArgs(expr))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", expr, err)
		}
		if result.Success() {
			t.Errorf("%s: expected failure", expr)
		}
	}
}

func TestCalculatorMalformedExpressions(t *testing.T) {
	tool := NewCalculatorTool()

	for _, expr := range []string{"", "2 +", "(2 + 3", ")("} {
		result, err := tool.Execute(context.Background(), calcArgs(expr))
		if err != nil {
			t.Fatalf("%q: unexpected error: %v", expr, err)
		}
		if result.Success() {
			t.Errorf("%q: expected failure, got %s", expr, result.Output)
		}
	}
}
