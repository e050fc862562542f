package filter

import "github.com/roach88/relfilter/internal/ir"

// Connective joins a predicate or scope with its siblings.
type Connective string

const (
	And Connective = "and"
	Or  Connective = "or"
)

// Node is one filter specification node.
//
// This is a sealed interface: only types in this package implement it.
type Node interface {
	filterNode()
}

// RelationRequired requires at least one related record. Constraints, when
// non-nil, restrict which related records satisfy the check.
type RelationRequired struct {
	Relation    string
	Constraints Node
}

func (RelationRequired) filterNode() {}

// RelationForbidden requires zero related records.
type RelationForbidden struct {
	Relation string
}

func (RelationForbidden) filterNode() {}

// LogicalGroup joins its children with Connective inside one parenthesized
// group. A group without children is a no-op.
type LogicalGroup struct {
	Connective Connective
	Children   []Node
}

func (LogicalGroup) filterNode() {}

// Comparison is a leaf predicate on a dot-path.
//
// Operator holds the raw wire string. It is normalized and checked against
// the value shape when the node is compiled, not when it is decoded.
type Comparison struct {
	Path     string
	Operator string
	Value    ir.Value // nil when absent (NULL / NOT NULL)

	// Invalid is set when a value was present but is not an operand (an
	// object, a nested list, an out-of-range number). Value is nil then and
	// compiling the node fails.
	Invalid string
}

func (Comparison) filterNode() {}

// HybridRelationFilter carries both a path and a logical group. Only the
// relation prefix of Path is used: children are compiled inside the scope
// reached by traversing it.
type HybridRelationFilter struct {
	Path       string
	Connective Connective
	Children   []Node
}

func (HybridRelationFilter) filterNode() {}

// Empty is the no-op node produced for malformed or unrecognized input.
type Empty struct {
	Reason string
}

func (Empty) filterNode() {}

// Request is a decoded filtering request: the top-level nodes in order plus
// an optional sort directive.
type Request struct {
	Filters []Node
	Sort    *Sort
}
