// Calculator Tool - safe arithmetic expression evaluation.
//
// Information Hiding:
// - Expression grammar and parsing strategy hidden
// - Only the four basic operators, parentheses and decimals are accepted

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// allowedExprChars is the full set of characters an expression may contain.
const allowedExprChars = "0123456789+-*/()., "

// CalculatorTool evaluates arithmetic expressions.
type CalculatorTool struct{}

// NewCalculatorTool creates a new calculator tool.
func NewCalculatorTool() *CalculatorTool {
	return &CalculatorTool{}
}

// Metadata returns the tool metadata.
func (t *CalculatorTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "calculate",
		Description: "Evaluate a basic arithmetic expression (+, -, *, / and parentheses)",
		Parameters: []ToolParameter{
			{Name: "expression", ParamType: "string", Description: "The arithmetic expression to evaluate, e.g. '2 * (3 + 4)'", Required: true},
		},
	}
}

type calculatorArgs struct {
	Expression string `json:"expression"`
}

// Validate checks the expression contains only permitted characters.
func (t *CalculatorTool) Validate(args json.RawMessage) error {
	var a calculatorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(a.Expression) == "" {
		return fmt.Errorf("expression cannot be empty")
	}
	for _, c := range a.Expression {
		if !strings.ContainsRune(allowedExprChars, c) {
			return fmt.Errorf("expression contains invalid character %q", c)
		}
	}
	return nil
}

// Execute evaluates the expression.
func (t *CalculatorTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a calculatorArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return FailureResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}

	if err := t.Validate(args); err != nil {
		return FailureResult(err), nil
	}

	result, err := evalExpression(a.Expression)
	if err != nil {
		return FailureResult(err), nil
	}

	return SuccessResult(strconv.FormatFloat(result, 'g', -1, 64)), nil
}

// evalExpression parses and evaluates an arithmetic expression.
// Grammar:
//
//	expr   = term   { ("+" | "-") term }
//	term   = factor { ("*" | "/") factor }
//	factor = number | "(" expr ")" | "-" factor
func evalExpression(input string) (float64, error) {
	p := &exprParser{input: stripSeparators(input)}
	result, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	if p.pos != len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return result, nil
}

// stripSeparators removes spaces and thousands-separator commas.
func stripSeparators(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		if c == ' ' || c == ',' {
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

type exprParser struct {
	input string
	pos   int
}

func (p *exprParser) peek() byte {
	if p.pos < len(p.input) {
		return p.input[p.pos]
	}
	return 0
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parseFactor()
	if err != nil {
		return 0, err
	}
	for {
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parseFactor()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseFactor() (float64, error) {
	switch p.peek() {
	case '-':
		p.pos++
		v, err := p.parseFactor()
		if err != nil {
			return 0, err
		}
		return -v, nil
	case '(':
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}
	return p.parseNumber()
}

func (p *exprParser) parseNumber() (float64, error) {
	start := p.pos
	for p.pos < len(p.input) && (isDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	if start == p.pos {
		if p.pos < len(p.input) {
			return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
		}
		return 0, fmt.Errorf("unexpected end of expression")
	}
	v, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", p.input[start:p.pos])
	}
	return v, nil
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// Verify CalculatorTool implements Tool
var _ Tool = (*CalculatorTool)(nil)
