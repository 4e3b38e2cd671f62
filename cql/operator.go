package cql

import "github.com/rusticdb/rusticdb/rusticerr"

// Operator is a comparison operator usable in a WHERE-clause simple condition.
type Operator int

const (
	OperatorEqual Operator = iota
	OperatorGreater
	OperatorLesser
)

func (o Operator) String() string {
	switch o {
	case OperatorEqual:
		return "="
	case OperatorGreater:
		return ">"
	case OperatorLesser:
		return "<"
	default:
		return "?"
	}
}

func parseOperator(token string) (Operator, error) {
	switch token {
	case "=":
		return OperatorEqual, nil
	case ">":
		return OperatorGreater, nil
	case "<":
		return OperatorLesser, nil
	default:
		return 0, rusticerr.SyntaxError("invalid comparison operator %q", token)
	}
}

// LogicalOperator joins or negates conditions in a WHERE clause.
type LogicalOperator int

const (
	LogicalOperatorAnd LogicalOperator = iota
	LogicalOperatorOr
	LogicalOperatorNot
)

func (o LogicalOperator) String() string {
	switch o {
	case LogicalOperatorAnd:
		return "AND"
	case LogicalOperatorOr:
		return "OR"
	case LogicalOperatorNot:
		return "NOT"
	default:
		return "?"
	}
}
