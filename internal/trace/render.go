package trace

import (
	"fmt"
	"strings"

	"github.com/roach88/relfilter/internal/filter"
	"github.com/roach88/relfilter/internal/ir"
)

// Canonical converts calls into plain maps and slices suitable for
// ir.MarshalCanonical. Sequence numbers are omitted: the tree order already
// carries them.
func Canonical(calls []Call) []any {
	out := make([]any, len(calls))
	for i, c := range calls {
		out[i] = canonicalCall(c)
	}
	return out
}

func canonicalCall(c Call) map[string]any {
	m := map[string]any{"kind": string(c.Kind)}
	if c.Conn != "" {
		m["conn"] = string(c.Conn)
	}
	switch c.Kind {
	case KindPredicate:
		m["attribute"] = c.Attribute
		m["operator"] = string(c.Operator)
		if c.Value != nil {
			m["value"] = c.Value
		}
	case KindValueInSet:
		m["attribute"] = c.Attribute
		m["value"] = c.Value
		m["negated"] = c.Negated
	case KindGroup:
		m["children"] = Canonical(c.Children)
	case KindRelationExists:
		m["relation"] = c.Relation
		m["children"] = Canonical(c.Children)
	case KindRelationAbsent:
		m["relation"] = c.Relation
	case KindOrderBy:
		m["attribute"] = c.Attribute
		m["direction"] = string(c.Direction)
	}
	return m
}

// JSON returns the canonical JSON encoding of calls.
func JSON(calls []Call) ([]byte, error) {
	return ir.MarshalCanonical(Canonical(calls))
}

// Fingerprint identifies a call tree. Equal trees have equal fingerprints.
func Fingerprint(calls []Call) (string, error) {
	return ir.Fingerprint(ir.DomainTrace, Canonical(calls))
}

// Text renders calls one per line, nested scopes indented by two spaces:
//
//	and relation_exists department
//	  and predicate name = "Engineering"
func Text(calls []Call) string {
	var b strings.Builder
	writeText(&b, calls, 0)
	return b.String()
}

func writeText(b *strings.Builder, calls []Call, depth int) {
	for _, c := range calls {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(describe(c))
		b.WriteByte('\n')
		writeText(b, c.Children, depth+1)
	}
}

func describe(c Call) string {
	conn := string(c.Conn)
	switch c.Kind {
	case KindPredicate:
		if c.Operator.Shape() == filter.ShapeNone {
			return fmt.Sprintf("%s predicate %s %s", conn, c.Attribute, c.Operator)
		}
		return fmt.Sprintf("%s predicate %s %s %s", conn, c.Attribute, c.Operator, ir.Format(c.Value))
	case KindValueInSet:
		op := filter.OpIn
		if c.Negated {
			op = filter.OpNotIn
		}
		return fmt.Sprintf("%s value_in_set %s %s %s", conn, c.Attribute, op, ir.Format(c.Value))
	case KindGroup:
		return conn + " group"
	case KindRelationExists:
		return fmt.Sprintf("%s relation_exists %s", conn, c.Relation)
	case KindRelationAbsent:
		return fmt.Sprintf("%s relation_absent %s", conn, c.Relation)
	case KindOrderBy:
		return fmt.Sprintf("order_by %s %s", c.Attribute, c.Direction)
	default:
		return string(c.Kind)
	}
}
