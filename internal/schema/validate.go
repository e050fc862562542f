package schema

import (
	"fmt"
	"maps"
	"slices"

	"github.com/hashicorp/go-multierror"
)

// Validate resolves relation key defaults and checks that every table,
// relation and key refers to something declared. All problems are reported
// together.
func (s *Schema) Validate() error {
	var result *multierror.Error
	fail := func(field, format string, args ...any) {
		result = multierror.Append(result, &SchemaError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if s.Root == "" {
		fail("root", "root table is required")
	} else if _, ok := s.Tables[s.Root]; !ok {
		fail("root", "root table %q is not declared", s.Root)
	}

	for _, name := range s.order {
		t := s.Tables[name]
		field := "tables." + name
		if t.PrimaryKey == "" {
			fail(field+".primary_key", "primary key is required")
		} else if !t.HasColumn(t.PrimaryKey) {
			fail(field+".primary_key", "primary key %q is not a declared column", t.PrimaryKey)
		}

		for _, relName := range slices.Sorted(maps.Keys(t.Relations)) {
			r := t.Relations[relName]
			relField := field + ".relations." + relName
			related, ok := s.Tables[r.Table]
			if !ok {
				fail(relField+".table", "table %q is not declared", r.Table)
				continue
			}

			switch r.Kind {
			case HasMany:
				if r.LocalKey == "" {
					r.LocalKey = t.PrimaryKey
				}
				if r.ForeignKey == "" {
					fail(relField+".foreign_key", "has_many relation needs foreign_key")
				}
			case BelongsTo:
				if r.ForeignKey == "" {
					r.ForeignKey = related.PrimaryKey
				}
				if r.LocalKey == "" {
					fail(relField+".local_key", "belongs_to relation needs local_key")
				}
			default:
				fail(relField+".kind", "unknown relation kind %q", r.Kind)
			}

			if r.LocalKey != "" && !t.HasColumn(r.LocalKey) {
				fail(relField+".local_key", "%q is not a column of %s", r.LocalKey, t.Name)
			}
			if r.ForeignKey != "" && !related.HasColumn(r.ForeignKey) {
				fail(relField+".foreign_key", "%q is not a column of %s", r.ForeignKey, related.Name)
			}
			t.Relations[relName] = r
		}
	}

	return result.ErrorOrNil()
}
