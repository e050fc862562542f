package filter

import "github.com/roach88/relfilter/internal/ir"

// Adapter receives the constraint calls emitted by the compiler.
//
// conn is how the call combines with the siblings already present in the
// current scope. Adapters ignore it for the first entry of a scope.
//
// Group and RelationExists open a nested scope and hand it to build; the
// scope is closed when build returns. An error returned by build must be
// returned unchanged.
type Adapter interface {
	// Predicate adds a leaf comparison. value is nil for NULL / NOT NULL
	// and a two-element ir.List for BETWEEN.
	Predicate(conn Connective, attribute string, op Operator, value ir.Value) error

	// ValueInSet adds an IN (or NOT IN when negated) leaf.
	ValueInSet(conn Connective, attribute string, values ir.List, negated bool) error

	// Group opens a parenthesized predicate group.
	Group(conn Connective, build func(Adapter) error) error

	// RelationExists requires at least one related record matching the
	// predicates added to the nested scope.
	RelationExists(relation string, conn Connective, build func(Adapter) error) error

	// RelationAbsent requires zero related records.
	RelationAbsent(relation string, conn Connective) error

	// OrderBy sets the result ordering.
	OrderBy(attribute string, dir Direction) error
}
