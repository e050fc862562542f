package sqladapter

import (
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/relfilter/internal/filter"
	"github.com/roach88/relfilter/internal/ir"
	"github.com/roach88/relfilter/internal/schema"
)

var (
	// ErrUnknownRelation is returned for a relation the scope's table does not declare.
	ErrUnknownRelation = errors.New("unknown relation")

	// ErrUnknownAttribute is returned for a column the scope's table does not declare.
	ErrUnknownAttribute = errors.New("unknown attribute")

	// ErrNestedOrder is returned when OrderBy is called inside a nested scope.
	ErrNestedOrder = errors.New("order by is only valid at the top level")
)

// Builder accumulates a SELECT over the schema's root table.
// A Builder is single-use and not safe for concurrent use.
type Builder struct {
	*scope

	schema  *schema.Schema
	dialect Dialect
	aliases int
	order   *orderTerm
}

type orderTerm struct {
	attribute string
	dir       filter.Direction
}

var _ filter.Adapter = (*Builder)(nil)

// Option configures a Builder.
type Option func(*Builder)

// WithDialect sets the placeholder dialect. Defaults to SQLite.
func WithDialect(d Dialect) Option {
	return func(b *Builder) {
		b.dialect = d
	}
}

// New returns a Builder selecting from s's root table.
func New(s *schema.Schema, opts ...Option) *Builder {
	b := &Builder{schema: s, dialect: SQLite}
	for _, opt := range opts {
		opt(b)
	}
	b.scope = &scope{b: b, table: s.RootTable(), alias: b.nextAlias(), top: true}
	return b
}

func (b *Builder) nextAlias() string {
	alias := fmt.Sprintf("t%d", b.aliases)
	b.aliases++
	return alias
}

// Build returns the SELECT statement and its arguments.
//
// The statement always ends with the root primary key ascending so that
// rows with equal sort keys come back in a stable order.
func (b *Builder) Build() (string, []any, error) {
	q, err := b.Query()
	if err != nil {
		return "", nil, err
	}
	return q.ToSql()
}

// Query returns the statement as a squirrel builder for callers that want to
// add to it.
func (b *Builder) Query() (sq.SelectBuilder, error) {
	root := b.scope.table
	if root == nil {
		return sq.SelectBuilder{}, fmt.Errorf("schema root %q is not a table", b.schema.Root)
	}

	cols := make([]string, len(root.Columns))
	for i, col := range root.Columns {
		cols[i] = b.scope.column(col)
	}

	q := sq.Select(cols...).
		From(root.Name + " AS " + b.scope.alias).
		PlaceholderFormat(b.dialect.placeholder())

	if where := b.scope.where(); where != nil {
		q = q.Where(where)
	}

	if b.order != nil {
		q = q.OrderBy(b.scope.column(b.order.attribute) + " " + strings.ToUpper(string(b.order.dir)))
		if b.order.attribute == root.PrimaryKey {
			return q, nil
		}
	}
	return q.OrderBy(b.scope.column(root.PrimaryKey) + " ASC"), nil
}

type term struct {
	conn filter.Connective
	pred sq.Sqlizer
}

// scope is one predicate context: the root query, a group, or a relation
// subquery. Groups share their parent's table and alias.
type scope struct {
	b     *Builder
	table *schema.Table
	alias string
	top   bool
	terms []term
}

var _ filter.Adapter = (*scope)(nil)

func (s *scope) column(name string) string {
	return s.alias + "." + name
}

func (s *scope) add(conn filter.Connective, pred sq.Sqlizer) {
	s.terms = append(s.terms, term{conn: conn, pred: pred})
}

func (s *scope) attribute(name string) (string, error) {
	if !s.table.HasColumn(name) {
		return "", fmt.Errorf("%w: %s.%s", ErrUnknownAttribute, s.table.Name, name)
	}
	return s.column(name), nil
}

// where combines the scope's terms, or returns nil when there are none.
// The first term's connective is ignored.
func (s *scope) where() sq.Sqlizer {
	if len(s.terms) == 0 {
		return nil
	}

	var runs sq.Or
	run := sq.And{s.terms[0].pred}
	for _, t := range s.terms[1:] {
		if t.conn == filter.Or {
			runs = append(runs, collapse(run))
			run = sq.And{}
		}
		run = append(run, t.pred)
	}
	runs = append(runs, collapse(run))

	if len(runs) == 1 {
		return runs[0]
	}
	return runs
}

func collapse(run sq.And) sq.Sqlizer {
	if len(run) == 1 {
		return run[0]
	}
	return run
}

func (s *scope) Predicate(conn filter.Connective, attribute string, op filter.Operator, value ir.Value) error {
	col, err := s.attribute(attribute)
	if err != nil {
		return err
	}

	var pred sq.Sqlizer
	switch op {
	case filter.OpEq:
		pred = sq.Eq{col: ir.Native(value)}
	case filter.OpNotEq:
		pred = sq.NotEq{col: ir.Native(value)}
	case filter.OpGt:
		pred = sq.Gt{col: ir.Native(value)}
	case filter.OpGtEq:
		pred = sq.GtOrEq{col: ir.Native(value)}
	case filter.OpLt:
		pred = sq.Lt{col: ir.Native(value)}
	case filter.OpLtEq:
		pred = sq.LtOrEq{col: ir.Native(value)}
	case filter.OpLike:
		pred = sq.Like{col: ir.Native(value)}
	case filter.OpBetween:
		bounds, ok := value.(ir.List)
		if !ok || len(bounds) != 2 {
			return fmt.Errorf("between on %s needs two bounds, got %s", col, ir.Format(value))
		}
		pred = sq.Expr(col+" BETWEEN ? AND ?", ir.Native(bounds[0]), ir.Native(bounds[1]))
	case filter.OpNull:
		pred = sq.Eq{col: nil}
	case filter.OpNotNull:
		pred = sq.NotEq{col: nil}
	default:
		return fmt.Errorf("operator %q has no SQL form here", op)
	}

	s.add(conn, pred)
	return nil
}

func (s *scope) ValueInSet(conn filter.Connective, attribute string, values ir.List, negated bool) error {
	col, err := s.attribute(attribute)
	if err != nil {
		return err
	}

	set := ir.Native(values).([]any)
	if negated {
		s.add(conn, sq.NotEq{col: set})
	} else {
		s.add(conn, sq.Eq{col: set})
	}
	return nil
}

func (s *scope) Group(conn filter.Connective, build func(filter.Adapter) error) error {
	nested := &scope{b: s.b, table: s.table, alias: s.alias}
	if err := build(nested); err != nil {
		return err
	}
	if where := nested.where(); where != nil {
		s.add(conn, where)
	}
	return nil
}

func (s *scope) RelationExists(relation string, conn filter.Connective, build func(filter.Adapter) error) error {
	sub, err := s.subquery(relation, build)
	if err != nil {
		return err
	}
	s.add(conn, sq.Expr("EXISTS (?)", sub))
	return nil
}

func (s *scope) RelationAbsent(relation string, conn filter.Connective) error {
	sub, err := s.subquery(relation, nil)
	if err != nil {
		return err
	}
	s.add(conn, sq.Expr("NOT EXISTS (?)", sub))
	return nil
}

// subquery builds the correlated SELECT for relation, running build inside
// its scope when build is non-nil.
func (s *scope) subquery(relation string, build func(filter.Adapter) error) (sq.SelectBuilder, error) {
	rel, ok := s.table.Relation(relation)
	if !ok {
		return sq.SelectBuilder{}, fmt.Errorf("%w: %s.%s", ErrUnknownRelation, s.table.Name, relation)
	}
	related, ok := s.b.schema.Table(rel.Table)
	if !ok {
		return sq.SelectBuilder{}, fmt.Errorf("%w: %s.%s targets undeclared table %s", ErrUnknownRelation, s.table.Name, relation, rel.Table)
	}

	nested := &scope{b: s.b, table: related, alias: s.b.nextAlias()}
	if build != nil {
		if err := build(nested); err != nil {
			return sq.SelectBuilder{}, err
		}
	}

	sub := sq.Select("1").
		From(related.Name + " AS " + nested.alias).
		Where(nested.column(rel.ForeignKey) + " = " + s.column(rel.LocalKey))
	if where := nested.where(); where != nil {
		sub = sub.Where(where)
	}
	return sub, nil
}

func (s *scope) OrderBy(attribute string, dir filter.Direction) error {
	if !s.top {
		return ErrNestedOrder
	}
	if _, err := s.attribute(attribute); err != nil {
		return err
	}
	s.b.order = &orderTerm{attribute: attribute, dir: dir}
	return nil
}
