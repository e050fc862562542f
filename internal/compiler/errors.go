package compiler

import (
	"errors"
	"fmt"
)

// CompileError is a filter rejected at compile time. It is returned before
// the offending node issues any adapter call.
type CompileError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Path is the dot-path of the offending node, when it has one.
	Path string

	// Operator is the raw operator string, when relevant.
	Operator string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes compile errors.
type ErrorCode string

const (
	// ErrCodeUnsupportedOperator indicates an operator outside the recognized set.
	ErrCodeUnsupportedOperator ErrorCode = "UNSUPPORTED_OPERATOR"

	// ErrCodeInvalidValueShape indicates a value that does not fit the operator.
	ErrCodeInvalidValueShape ErrorCode = "INVALID_VALUE_SHAPE"

	// ErrCodeEmptyRelationSegment indicates a dot-path with an empty segment.
	ErrCodeEmptyRelationSegment ErrorCode = "EMPTY_RELATION_SEGMENT"

	// ErrCodeInvalidConnective indicates a group connective other than and/or.
	ErrCodeInvalidConnective ErrorCode = "INVALID_CONNECTIVE"

	// ErrCodeInvalidSortDirection indicates a sort order other than asc/desc.
	ErrCodeInvalidSortDirection ErrorCode = "INVALID_SORT_DIRECTION"

	// ErrCodeUnsupportedSortPath indicates a sort attribute with a relation prefix.
	ErrCodeUnsupportedSortPath ErrorCode = "UNSUPPORTED_SORT_PATH"
)

// Error implements the error interface.
func (e *CompileError) Error() string {
	switch {
	case e.Path != "" && e.Operator != "":
		return fmt.Sprintf("%s: %s (path=%s, operator=%s)", e.Code, e.Message, e.Path, e.Operator)
	case e.Path != "":
		return fmt.Sprintf("%s: %s (path=%s)", e.Code, e.Message, e.Path)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// CodeOf returns the CompileError code in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsUnsupportedOperator reports whether err is an unsupported operator error.
func IsUnsupportedOperator(err error) bool {
	return CodeOf(err) == ErrCodeUnsupportedOperator
}

// IsInvalidValueShape reports whether err is an invalid value shape error.
func IsInvalidValueShape(err error) bool {
	return CodeOf(err) == ErrCodeInvalidValueShape
}

// IsEmptyRelationSegment reports whether err is an empty path segment error.
func IsEmptyRelationSegment(err error) bool {
	return CodeOf(err) == ErrCodeEmptyRelationSegment
}

// IsSortError reports whether err rejects a sort directive.
func IsSortError(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeInvalidSortDirection || code == ErrCodeUnsupportedSortPath
}
