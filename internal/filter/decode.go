package filter

import (
	"fmt"

	"github.com/valyala/fastjson"

	"github.com/roach88/relfilter/internal/ir"
)

// Wire keys recognized in a filter object. Any other key is ignored.
const (
	KeyHave        = "have"
	KeyDoesNotHave = "does_not_have"
	KeyOr          = "or"
	KeyAnd         = "and"
	KeyColumnName  = "column_name"
	KeyOperator    = "operator"
	KeyValue       = "value"

	KeyFilters   = "filters"
	KeySortBy    = "sort_by"
	KeySortOrder = "sort_order"
)

var parserPool fastjson.ParserPool

// Parse decodes a JSON list of filter objects. A single object is accepted
// as a one-element list. Only malformed JSON is an error; objects that do
// not fit the grammar decode to Empty.
func Parse(data []byte) ([]Node, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("parse filters: %w", err)
	}
	return decodeList(v)
}

// ParseRequest decodes a request document:
//
//	{"filters": [...], "sort_by": "name", "sort_order": "desc"}
//
// A bare list is accepted as a request without a sort directive.
func ParseRequest(data []byte) (Request, error) {
	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.ParseBytes(data)
	if err != nil {
		return Request{}, fmt.Errorf("parse request: %w", err)
	}

	if v.Type() == fastjson.TypeArray {
		nodes, err := decodeList(v)
		if err != nil {
			return Request{}, err
		}
		return Request{Filters: nodes}, nil
	}

	obj, err := v.Object()
	if err != nil {
		return Request{}, fmt.Errorf("parse request: expected object or list, got %s", v.Type())
	}

	var req Request
	if filters := obj.Get(KeyFilters); filters != nil {
		req.Filters, err = decodeList(filters)
		if err != nil {
			return Request{}, err
		}
	}

	sortBy := stringField(obj, KeySortBy)
	if sortBy != "" {
		req.Sort = &Sort{
			Attribute: sortBy,
			Direction: stringField(obj, KeySortOrder),
		}
	}
	return req, nil
}

func decodeList(v *fastjson.Value) ([]Node, error) {
	switch v.Type() {
	case fastjson.TypeObject:
		obj, _ := v.Object()
		return []Node{Decode(obj)}, nil
	case fastjson.TypeArray:
		items, _ := v.Array()
		nodes := make([]Node, len(items))
		for i, item := range items {
			nodes[i] = decodeItem(item)
		}
		return nodes, nil
	default:
		return nil, fmt.Errorf("filters must be a list of objects, got %s", v.Type())
	}
}

func decodeItem(v *fastjson.Value) Node {
	obj, err := v.Object()
	if err != nil {
		return Empty{Reason: fmt.Sprintf("filter entry is %s, not an object", v.Type())}
	}
	return Decode(obj)
}

// Decode interprets one wire object. The first matching rule wins:
//
//  1. "have"          -> RelationRequired; the object's remaining logical and
//     comparison keys become its constraints
//  2. "does_not_have" -> RelationForbidden
//  3. "or"            -> LogicalGroup(Or), or HybridRelationFilter when
//     "column_name" is also present
//  4. "and"           -> same as 3 with And
//  5. "column_name" + "operator" + "value" -> Comparison ("value" may be
//     omitted for the null / not null operators; a value that is not an
//     operand is kept as Comparison.Invalid)
//  6. otherwise       -> Empty
func Decode(obj *fastjson.Object) Node {
	if obj.Get(KeyHave) != nil {
		relation, ok := stringValue(obj.Get(KeyHave))
		if !ok || relation == "" {
			return Empty{Reason: "have must be a non-empty string"}
		}
		required := RelationRequired{Relation: relation}
		if constraints := decodeConstraints(obj); !isEmpty(constraints) {
			required.Constraints = constraints
		}
		return required
	}

	if obj.Get(KeyDoesNotHave) != nil {
		relation, ok := stringValue(obj.Get(KeyDoesNotHave))
		if !ok || relation == "" {
			return Empty{Reason: "does_not_have must be a non-empty string"}
		}
		return RelationForbidden{Relation: relation}
	}

	return decodeConstraints(obj)
}

// decodeConstraints applies rules 3 to 6, ignoring the relation keys.
func decodeConstraints(obj *fastjson.Object) Node {
	for _, logical := range []struct {
		key  string
		conn Connective
	}{
		{KeyOr, Or},
		{KeyAnd, And},
	} {
		raw := obj.Get(logical.key)
		if raw == nil {
			continue
		}
		if raw.Type() != fastjson.TypeArray {
			return Empty{Reason: fmt.Sprintf("%s must be a list, got %s", logical.key, raw.Type())}
		}

		items, _ := raw.Array()
		children := make([]Node, len(items))
		for i, item := range items {
			children[i] = decodeItem(item)
		}

		if col := obj.Get(KeyColumnName); col != nil {
			path, ok := stringValue(col)
			if !ok {
				return Empty{Reason: "column_name must be a string"}
			}
			return HybridRelationFilter{Path: path, Connective: logical.conn, Children: children}
		}
		return LogicalGroup{Connective: logical.conn, Children: children}
	}

	return decodeComparison(obj)
}

func decodeComparison(obj *fastjson.Object) Node {
	col, op := obj.Get(KeyColumnName), obj.Get(KeyOperator)
	if col == nil && op == nil && obj.Get(KeyValue) == nil {
		return Empty{Reason: "no recognized keys"}
	}
	if col == nil || op == nil {
		return Empty{Reason: "comparison requires column_name, operator and value"}
	}

	path, ok := stringValue(col)
	if !ok {
		return Empty{Reason: "column_name must be a string"}
	}
	operator, ok := stringValue(op)
	if !ok {
		return Empty{Reason: "operator must be a string"}
	}

	cmp := Comparison{Path: path, Operator: operator}

	raw := obj.Get(KeyValue)
	if raw == nil {
		if normalized, known := NormalizeOperator(operator); known && normalized.Shape() == ShapeNone {
			return cmp
		}
		return Empty{Reason: "comparison requires column_name, operator and value"}
	}

	value, err := ir.FromJSON(raw)
	if err != nil {
		cmp.Invalid = err.Error()
		return cmp
	}
	cmp.Value = value
	return cmp
}

func stringValue(v *fastjson.Value) (string, bool) {
	if v == nil || v.Type() != fastjson.TypeString {
		return "", false
	}
	return string(v.GetStringBytes()), true
}

func stringField(obj *fastjson.Object, key string) string {
	s, _ := stringValue(obj.Get(key))
	return s
}

func isEmpty(n Node) bool {
	_, ok := n.(Empty)
	return ok
}
