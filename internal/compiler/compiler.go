package compiler

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/roach88/relfilter/internal/filter"
	"github.com/roach88/relfilter/internal/ir"
)

// Compiler compiles filter nodes against a filter.Adapter.
type Compiler struct {
	logger *slog.Logger
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used for skipped nodes. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// New creates a Compiler.
func New(opts ...Option) *Compiler {
	c := &Compiler{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Apply compiles req.Filters and then applies req.Sort.
func (c *Compiler) Apply(a filter.Adapter, req filter.Request) error {
	if err := c.Compile(a, req.Filters); err != nil {
		return err
	}
	return c.ApplySort(a, req.Sort)
}

// Compile compiles nodes in order, each under the AND ambient connective.
//
// Every node is checked in full before it issues its first adapter call.
// On error, calls made by earlier nodes are not undone; callers that need
// all-or-nothing behavior should discard the adapter.
func (c *Compiler) Compile(a filter.Adapter, nodes []filter.Node) error {
	for i, node := range nodes {
		if err := check(node); err != nil {
			c.logger.Debug("filter rejected", "index", i, "error", err)
			return err
		}
		if err := c.compile(a, node, filter.And); err != nil {
			return err
		}
	}
	return nil
}

// ApplySort issues a single OrderBy for s. A nil directive or one without an
// attribute is a no-op.
func (c *Compiler) ApplySort(a filter.Adapter, s *filter.Sort) error {
	if s == nil || s.Attribute == "" {
		return nil
	}
	if strings.Contains(s.Attribute, ".") {
		return &CompileError{
			Code:    ErrCodeUnsupportedSortPath,
			Message: "sorting by a related attribute is not supported",
			Path:    s.Attribute,
		}
	}
	dir, err := filter.ParseDirection(s.Direction)
	if err != nil {
		return &CompileError{
			Code:    ErrCodeInvalidSortDirection,
			Message: fmt.Sprintf("sort order %q must be asc or desc", s.Direction),
			Path:    s.Attribute,
			Err:     err,
		}
	}
	return a.OrderBy(s.Attribute, dir)
}

func (c *Compiler) compile(a filter.Adapter, node filter.Node, ambient filter.Connective) error {
	switch n := node.(type) {
	case nil:
		return nil

	case filter.Empty:
		c.logger.Debug("skipping filter node", "reason", n.Reason)
		return nil

	case filter.RelationForbidden:
		return a.RelationAbsent(n.Relation, ambient)

	case filter.RelationRequired:
		return a.RelationExists(n.Relation, ambient, func(scope filter.Adapter) error {
			if n.Constraints == nil {
				return nil
			}
			return c.compile(scope, n.Constraints, filter.And)
		})

	case filter.Comparison:
		l, err := prepare(n)
		if err != nil {
			return err
		}
		return c.traverse(a, l.path.Relations, ambient, func(scope filter.Adapter, conn filter.Connective) error {
			return emitLeaf(scope, conn, l)
		})

	case filter.LogicalGroup:
		return c.group(a, n.Connective, n.Children, ambient)

	case filter.HybridRelationFilter:
		if len(n.Children) == 0 {
			return nil
		}
		path, err := resolve(n.Path)
		if err != nil {
			return err
		}
		// Without a relation prefix the children apply at the current scope
		// and nothing is traversed.
		return c.traverse(a, path.Relations, ambient, func(scope filter.Adapter, conn filter.Connective) error {
			return c.group(scope, n.Connective, n.Children, conn)
		})

	default:
		return fmt.Errorf("unknown filter node %T", node)
	}
}

func (c *Compiler) group(a filter.Adapter, conn filter.Connective, children []filter.Node, ambient filter.Connective) error {
	if !anyEffect(children) {
		return nil
	}
	if err := checkConnective(conn); err != nil {
		return err
	}
	return a.Group(ambient, func(scope filter.Adapter) error {
		for _, child := range children {
			if err := c.compile(scope, child, conn); err != nil {
				return err
			}
		}
		return nil
	})
}

// anyEffect reports whether compiling nodes would reach the adapter at all.
func anyEffect(nodes []filter.Node) bool {
	for _, n := range nodes {
		switch n := n.(type) {
		case nil, filter.Empty:
		case filter.LogicalGroup:
			if anyEffect(n.Children) {
				return true
			}
		case filter.HybridRelationFilter:
			if len(n.Children) > 0 {
				return true
			}
		default:
			return true
		}
	}
	return false
}

// traverse opens one RelationExists scope per relation and runs terminal in
// the innermost one. The first scope joins its siblings with ambient; every
// nested scope starts over with AND.
func (c *Compiler) traverse(a filter.Adapter, relations []string, ambient filter.Connective, terminal func(filter.Adapter, filter.Connective) error) error {
	if len(relations) == 0 {
		return terminal(a, ambient)
	}
	return a.RelationExists(relations[0], ambient, func(scope filter.Adapter) error {
		return c.traverse(scope, relations[1:], filter.And, terminal)
	})
}

func emitLeaf(a filter.Adapter, conn filter.Connective, l leaf) error {
	if l.op.IsSet() {
		values, _ := l.value.(ir.List)
		return a.ValueInSet(conn, l.path.Attribute, values, l.op == filter.OpNotIn)
	}
	return a.Predicate(conn, l.path.Attribute, l.op, l.value)
}
