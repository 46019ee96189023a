package assertions

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Operator compares the value at a subject with an expected value
type Operator string

const (
	OpEquals         Operator = "=="
	OpNotEquals      Operator = "!="
	OpGreaterThan    Operator = ">"
	OpGreaterOrEqual Operator = ">="
	OpLessThan       Operator = "<"
	OpLessOrEqual    Operator = "<="
	OpContains       Operator = "contains"
	OpNotContains    Operator = "!contains"
	OpStartsWith     Operator = "startsWith"
	OpEndsWith       Operator = "endsWith"
	OpMatches        Operator = "matches"
	OpExists         Operator = "exists"
	OpNotExists      Operator = "!exists"
	OpLength         Operator = "length"
	OpType           Operator = "type"
	OpSchema         Operator = "schema"
)

var operators = map[Operator]bool{
	OpEquals: true, OpNotEquals: true,
	OpGreaterThan: true, OpGreaterOrEqual: true, OpLessThan: true, OpLessOrEqual: true,
	OpContains: true, OpNotContains: true, OpStartsWith: true, OpEndsWith: true,
	OpMatches: true, OpExists: true, OpNotExists: true,
	OpLength: true, OpType: true, OpSchema: true,
}

// unary operators take no value
func (op Operator) unary() bool {
	return op == OpExists || op == OpNotExists
}

// Assertion is one parsed expectation
type Assertion struct {
	Subject  string
	Operator Operator
	Expected any
}

func (a *Assertion) String() string {
	if a.Operator.unary() {
		return fmt.Sprintf("%s %s", a.Subject, a.Operator)
	}
	return fmt.Sprintf("%s %s %v", a.Subject, a.Operator, a.Expected)
}

// Parse reads "subject operator [value]"
func Parse(expr string) (*Assertion, error) {
	fields := strings.Fields(expr)
	if len(fields) < 2 {
		return nil, fmt.Errorf("invalid expectation %q: want \"subject operator [value]\"", expr)
	}

	a := &Assertion{Subject: fields[0], Operator: Operator(fields[1])}
	if !operators[a.Operator] {
		return nil, fmt.Errorf("invalid expectation %q: unknown operator %q", expr, fields[1])
	}

	rest := strings.TrimPrefix(strings.TrimSpace(expr), fields[0])
	rest = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), fields[1]))
	switch {
	case a.Operator.unary():
		if rest != "" {
			return nil, fmt.Errorf("invalid expectation %q: %s takes no value", expr, a.Operator)
		}
	case rest == "":
		return nil, fmt.Errorf("invalid expectation %q: missing value", expr)
	default:
		a.Expected = parseValue(rest)
	}
	return a, nil
}

// ParseAll parses every expression, stopping at the first error
func ParseAll(exprs []string) ([]*Assertion, error) {
	out := make([]*Assertion, 0, len(exprs))
	for _, expr := range exprs {
		a, err := Parse(expr)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// parseValue decodes JSON literals (numbers, booleans, quoted strings,
// arrays) and keeps anything else as a bare string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}
