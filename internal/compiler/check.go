package compiler

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/roach88/relfilter/internal/filter"
	"github.com/roach88/relfilter/internal/ir"
)

// leaf is a Comparison whose path, operator and value have been checked.
type leaf struct {
	path  filter.Path
	op    filter.Operator
	value ir.Value
}

func prepare(cmp filter.Comparison) (leaf, error) {
	path, err := resolve(cmp.Path)
	if err != nil {
		return leaf{}, err
	}

	op, ok := filter.NormalizeOperator(cmp.Operator)
	if !ok {
		return leaf{}, &CompileError{
			Code:     ErrCodeUnsupportedOperator,
			Message:  fmt.Sprintf("unsupported operator %q", cmp.Operator),
			Path:     cmp.Path,
			Operator: cmp.Operator,
		}
	}

	if cmp.Invalid != "" {
		return leaf{}, &CompileError{
			Code:     ErrCodeInvalidValueShape,
			Message:  fmt.Sprintf("%s expects %s: %s", op, op.Shape(), cmp.Invalid),
			Path:     cmp.Path,
			Operator: cmp.Operator,
		}
	}

	if !fitsShape(op.Shape(), cmp.Value) {
		return leaf{}, &CompileError{
			Code:     ErrCodeInvalidValueShape,
			Message:  fmt.Sprintf("%s expects %s, got %s", op, op.Shape(), ir.Format(cmp.Value)),
			Path:     cmp.Path,
			Operator: cmp.Operator,
		}
	}

	value := cmp.Value
	if op.Shape() == filter.ShapeNone {
		value = nil
	}
	return leaf{path: path, op: op, value: value}, nil
}

func fitsShape(shape filter.ValueShape, v ir.Value) bool {
	switch shape {
	case filter.ShapeScalar:
		return ir.IsScalar(v)
	case filter.ShapeList:
		_, ok := v.(ir.List)
		return ok
	case filter.ShapePair:
		list, ok := v.(ir.List)
		return ok && len(list) == 2
	case filter.ShapeNone:
		_, isNull := v.(ir.Null)
		return v == nil || isNull
	default:
		return false
	}
}

func resolve(raw string) (filter.Path, error) {
	path, err := filter.ResolvePath(raw)
	if err != nil {
		return filter.Path{}, &CompileError{
			Code:    ErrCodeEmptyRelationSegment,
			Message: err.Error(),
			Path:    raw,
			Err:     err,
		}
	}
	return path, nil
}

func checkConnective(conn filter.Connective) error {
	if conn == filter.And || conn == filter.Or {
		return nil
	}
	return &CompileError{
		Code:    ErrCodeInvalidConnective,
		Message: fmt.Sprintf("connective %q must be and or or", conn),
	}
}

// check validates node and everything beneath it. It stops at the first
// problem.
func check(node filter.Node) error {
	var first error
	walk(node, func(err error) bool {
		first = err
		return false
	})
	return first
}

// Check validates every node without compiling it and reports all problems
// found. A nil result means Compile will not fail with a CompileError.
func Check(nodes []filter.Node) error {
	var result *multierror.Error
	for _, node := range nodes {
		walk(node, func(err error) bool {
			result = multierror.Append(result, err)
			return true
		})
	}
	return result.ErrorOrNil()
}

// walk reports each invalid node to report until report returns false.
func walk(node filter.Node, report func(error) bool) bool {
	switch n := node.(type) {
	case filter.Comparison:
		if _, err := prepare(n); err != nil {
			return report(err)
		}
	case filter.RelationRequired:
		if n.Constraints != nil {
			return walk(n.Constraints, report)
		}
	case filter.LogicalGroup:
		if err := checkConnective(n.Connective); err != nil && !report(err) {
			return false
		}
		return walkAll(n.Children, report)
	case filter.HybridRelationFilter:
		if len(n.Children) == 0 {
			return true
		}
		if _, err := resolve(n.Path); err != nil && !report(err) {
			return false
		}
		if err := checkConnective(n.Connective); err != nil && !report(err) {
			return false
		}
		return walkAll(n.Children, report)
	}
	return true
}

func walkAll(nodes []filter.Node, report func(error) bool) bool {
	for _, child := range nodes {
		if !walk(child, report) {
			return false
		}
	}
	return true
}
