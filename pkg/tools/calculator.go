package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CalculatorTool evaluates arithmetic expressions with a restricted
// recursive-descent parser. Supported: + - * / % ^, unary minus,
// parentheses, decimal literals. Nothing else is evaluated.
type CalculatorTool struct{}

// NewCalculatorTool creates a calculator tool.
func NewCalculatorTool() *CalculatorTool {
	return &CalculatorTool{}
}

// Definition returns the tool descriptor.
func (c *CalculatorTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "calculator",
		Description: "Evaluate an arithmetic expression. Supports + - * / % ^ and parentheses.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"expression": {
					Type:        "string",
					Description: "The arithmetic expression to evaluate, e.g. '(2 + 3) * 4'",
				},
			},
			Required: []string{"expression"},
		},
	}
}

// Exec evaluates the expression argument.
func (c *CalculatorTool) Exec(_ context.Context, args map[string]any) (string, error) {
	raw, ok := args["expression"]
	if !ok {
		return "", fmt.Errorf("missing required argument: expression")
	}
	expr, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("expression must be a string")
	}

	value, err := evalExpression(expr)
	if err != nil {
		return "", err
	}
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return "", fmt.Errorf("expression result is not a finite number")
	}
	return strconv.FormatFloat(value, 'g', -1, 64), nil
}

// exprParser walks the expression byte by byte.
//
// Grammar:
//
//	expr   := term (('+'|'-') term)*
//	term   := power (('*'|'/'|'%') power)*
//	power  := unary ('^' power)?        right-associative
//	unary  := '-' unary | primary
//	primary:= number | '(' expr ')'
type exprParser struct {
	input string
	pos   int
}

func evalExpression(input string) (float64, error) {
	p := &exprParser{input: input}
	value, err := p.parseExpr()
	if err != nil {
		return 0, err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return 0, fmt.Errorf("unexpected character %q at position %d", p.input[p.pos], p.pos)
	}
	return value, nil
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && (p.input[p.pos] == ' ' || p.input[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) peek() (byte, bool) {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '+' && op != '-') {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			left += right
		} else {
			left -= right
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '*' && op != '/' && op != '%') {
			return left, nil
		}
		p.pos++
		right, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		switch op {
		case '*':
			left *= right
		case '/':
			if right == 0 {
				return 0, fmt.Errorf("division by zero")
			}
			left /= right
		case '%':
			if right == 0 {
				return 0, fmt.Errorf("modulo by zero")
			}
			left = math.Mod(left, right)
		}
	}
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	op, ok := p.peek()
	if !ok || op != '^' {
		return base, nil
	}
	p.pos++
	exp, err := p.parsePower()
	if err != nil {
		return 0, err
	}
	return math.Pow(base, exp), nil
}

func (p *exprParser) parseUnary() (float64, error) {
	ch, ok := p.peek()
	if ok && ch == '-' {
		p.pos++
		value, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -value, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (float64, error) {
	ch, ok := p.peek()
	if !ok {
		return 0, fmt.Errorf("unexpected end of expression")
	}

	if ch == '(' {
		p.pos++
		value, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		close, ok := p.peek()
		if !ok || close != ')' {
			return 0, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return value, nil
	}

	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c >= '0' && c <= '9') || c == '.' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return 0, fmt.Errorf("unexpected character %q at position %d", ch, p.pos)
	}
	literal := strings.TrimSpace(p.input[start:p.pos])
	value, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", literal, err)
	}
	return value, nil
}
