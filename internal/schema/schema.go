package schema

import (
	"fmt"
	"slices"
)

// Relation kinds.
const (
	HasMany   = "has_many"
	BelongsTo = "belongs_to"
)

// Schema is a validated set of tables reachable from Root.
type Schema struct {
	Root   string
	Tables map[string]*Table

	// order is the declaration order of Tables.
	order []string
}

// Table is one table with its filterable columns and outgoing relations.
type Table struct {
	Name       string
	PrimaryKey string
	Columns    []string
	Relations  map[string]Relation
}

// Relation joins an owner table to a related table:
// Table.ForeignKey = owner.LocalKey.
type Relation struct {
	Name       string
	Table      string
	Kind       string
	LocalKey   string
	ForeignKey string
}

// RootTable returns the table filters start from.
func (s *Schema) RootTable() *Table {
	return s.Tables[s.Root]
}

// Table returns the named table.
func (s *Schema) Table(name string) (*Table, bool) {
	t, ok := s.Tables[name]
	return t, ok
}

// TableNames returns table names in declaration order.
func (s *Schema) TableNames() []string {
	return slices.Clone(s.order)
}

// HasColumn reports whether col is a declared column of t.
func (t *Table) HasColumn(col string) bool {
	return slices.Contains(t.Columns, col)
}

// Relation returns the named outgoing relation of t.
func (t *Table) Relation(name string) (Relation, bool) {
	r, ok := t.Relations[name]
	return r, ok
}

func (r Relation) String() string {
	return fmt.Sprintf("%s(%s.%s = owner.%s)", r.Name, r.Table, r.ForeignKey, r.LocalKey)
}
