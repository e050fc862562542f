package filter

import (
	"strings"

	"golang.org/x/text/cases"
)

// Operator is a normalized comparison operator.
type Operator string

const (
	OpEq      Operator = "="
	OpNotEq   Operator = "!="
	OpGt      Operator = ">"
	OpGtEq    Operator = ">="
	OpLt      Operator = "<"
	OpLtEq    Operator = "<="
	OpLike    Operator = "like"
	OpIn      Operator = "in"
	OpNotIn   Operator = "not in"
	OpBetween Operator = "between"
	OpNull    Operator = "null"
	OpNotNull Operator = "not null"
)

// ValueShape is the operand shape an operator accepts.
type ValueShape int

const (
	ShapeScalar ValueShape = iota // exactly one scalar
	ShapeList                     // a list of scalars
	ShapePair                     // a list of exactly two scalars
	ShapeNone                     // no operand
)

func (s ValueShape) String() string {
	switch s {
	case ShapeScalar:
		return "scalar"
	case ShapeList:
		return "list"
	case ShapePair:
		return "two-element list"
	case ShapeNone:
		return "no value"
	default:
		return "unknown"
	}
}

var operators = map[Operator]ValueShape{
	OpEq:      ShapeScalar,
	OpNotEq:   ShapeScalar,
	OpGt:      ShapeScalar,
	OpGtEq:    ShapeScalar,
	OpLt:      ShapeScalar,
	OpLtEq:    ShapeScalar,
	OpLike:    ShapeScalar,
	OpIn:      ShapeList,
	OpNotIn:   ShapeList,
	OpBetween: ShapePair,
	OpNull:    ShapeNone,
	OpNotNull: ShapeNone,
}

// Shape returns the operand shape op accepts.
func (op Operator) Shape() ValueShape {
	return operators[op]
}

// IsSet reports whether op is IN or NOT IN.
func (op Operator) IsSet() bool {
	return op == OpIn || op == OpNotIn
}

// NormalizeOperator case-folds raw and collapses inner whitespace, so "IN",
// "In" and "not   IN" all resolve. It reports false for operators outside
// the recognized set.
//
// A Caser is stateful, so one is built per call.
func NormalizeOperator(raw string) (Operator, bool) {
	folded := strings.Join(strings.Fields(cases.Fold().String(raw)), " ")
	op := Operator(folded)
	if _, ok := operators[op]; !ok {
		return "", false
	}
	return op, true
}
