package cql

import "github.com/rusticdb/rusticdb/rusticerr"

// Condition is a node in a WHERE-clause boolean expression tree: either a simple field/operator/
// value comparison, or a complex node combining one or two sub-conditions with a LogicalOperator
// (Left is nil for NOT, which takes only a Right operand).
type Condition struct {
	Field    string
	Operator Operator
	Value    string

	Left     *Condition
	LogicalOp LogicalOperator
	Right    *Condition

	simple bool
}

// IsSimple reports whether this node is a leaf field/operator/value comparison.
func (c *Condition) IsSimple() bool { return c.simple }

func newSimpleCondition(field string, op Operator, value string) *Condition {
	return &Condition{Field: field, Operator: op, Value: value, simple: true}
}

func newComplexCondition(left *Condition, op LogicalOperator, right *Condition) *Condition {
	return &Condition{Left: left, LogicalOp: op, Right: right}
}

// NewSimpleCondition builds a leaf field/operator/value condition, exported for callers outside
// this package that reconstruct a Condition tree from a non-CQL wire representation (the
// coordinator's internode query encoding).
func NewSimpleCondition(field string, op Operator, value string) *Condition {
	return newSimpleCondition(field, op, value)
}

// NewComplexCondition builds a condition combining one or two sub-conditions with op, exported
// for the same reason as NewSimpleCondition.
func NewComplexCondition(left *Condition, op LogicalOperator, right *Condition) *Condition {
	return newComplexCondition(left, op, right)
}

// ParseCondition parses a WHERE-clause token stream into a Condition tree. Precedence from
// loosest to tightest is OR, AND, NOT, with parenthesized sub-expressions binding tightest of all.
func ParseCondition(tokens []string) (*Condition, error) {
	pos := 0
	cond, err := parseOr(tokens, &pos)
	if err != nil {
		return nil, err
	}
	if pos != len(tokens) {
		return nil, rusticerr.SyntaxError("unexpected token %q in WHERE clause", tokens[pos])
	}
	return cond, nil
}

func parseOr(tokens []string, pos *int) (*Condition, error) {
	left, err := parseAnd(tokens, pos)
	if err != nil {
		return nil, err
	}
	for *pos < len(tokens) && isOr(tokens[*pos]) {
		*pos++
		right, err := parseAnd(tokens, pos)
		if err != nil {
			return nil, err
		}
		left = newComplexCondition(left, LogicalOperatorOr, right)
	}
	return left, nil
}

func parseAnd(tokens []string, pos *int) (*Condition, error) {
	left, err := parseNot(tokens, pos)
	if err != nil {
		return nil, err
	}
	for *pos < len(tokens) && isAnd(tokens[*pos]) {
		*pos++
		right, err := parseNot(tokens, pos)
		if err != nil {
			return nil, err
		}
		left = newComplexCondition(left, LogicalOperatorAnd, right)
	}
	return left, nil
}

func parseNot(tokens []string, pos *int) (*Condition, error) {
	if *pos < len(tokens) && isNot(tokens[*pos]) {
		*pos++
		expr, err := parseNot(tokens, pos)
		if err != nil {
			return nil, err
		}
		return newComplexCondition(nil, LogicalOperatorNot, expr), nil
	}
	return parseBase(tokens, pos)
}

func parseBase(tokens []string, pos *int) (*Condition, error) {
	if *pos >= len(tokens) {
		return nil, rusticerr.SyntaxError("unexpected end of WHERE clause")
	}
	if isLeftParen(tokens[*pos]) {
		*pos++
		expr, err := parseOr(tokens, pos)
		if err != nil {
			return nil, err
		}
		if *pos >= len(tokens) || !isRightParen(tokens[*pos]) {
			return nil, rusticerr.SyntaxError("expected closing parenthesis in WHERE clause")
		}
		*pos++
		return expr, nil
	}
	if *pos+2 >= len(tokens) {
		return nil, rusticerr.SyntaxError("incomplete condition in WHERE clause")
	}
	field := tokens[*pos]
	op, err := parseOperator(tokens[*pos+1])
	if err != nil {
		return nil, err
	}
	value := stripQuotes(tokens[*pos+2])
	*pos += 3
	return newSimpleCondition(field, op, value), nil
}

// Fields returns every field name referenced by a simple condition anywhere in the tree, paired
// with the operator used against it.
func (c *Condition) Fields() map[string][]Operator {
	out := make(map[string][]Operator)
	c.collectFields(out)
	return out
}

func (c *Condition) collectFields(out map[string][]Operator) {
	if c == nil {
		return
	}
	if c.simple {
		out[c.Field] = append(out[c.Field], c.Operator)
		return
	}
	c.Left.collectFields(out)
	c.Right.collectFields(out)
}
