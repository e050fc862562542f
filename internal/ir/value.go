package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/valyala/fastjson"
)

// Value is a sealed interface over filter operand values.
// Only Null, String, Int, Float, Bool and List implement it.
type Value interface {
	irValue()
}

// Null is an explicit JSON null.
type Null struct{}

func (Null) irValue() {}

// String is a string operand.
type String string

func (String) irValue() {}

// Int is an integral numeric operand.
type Int int64

func (Int) irValue() {}

// Float is a non-integral numeric operand. NaN and infinities never reach a
// Float; conversion rejects them.
type Float float64

func (Float) irValue() {}

// Bool is a boolean operand.
type Bool bool

func (Bool) irValue() {}

// List is a sequence of scalar operands, used by IN, NOT IN and BETWEEN.
type List []Value

func (List) irValue() {}

// IsScalar reports whether v is a non-list value. nil is not a scalar.
func IsScalar(v Value) bool {
	switch v.(type) {
	case Null, String, Int, Float, Bool:
		return true
	default:
		return false
	}
}

// Native converts a scalar Value to the Go type database/sql drivers accept.
// Lists are converted element-wise to []any.
func Native(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Native(elem)
		}
		return out
	default:
		return nil
	}
}

// Format renders v for human-readable traces. Strings are quoted.
func Format(v Value) string {
	switch val := v.(type) {
	case nil:
		return "<none>"
	case Null:
		return "null"
	case String:
		return strconv.Quote(string(val))
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(val))
	case List:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = Format(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", v)
	}
}

// FromJSON converts a parsed fastjson value into a Value.
// Objects and nested lists are rejected.
func FromJSON(v *fastjson.Value) (Value, error) {
	return fromJSON(v, true)
}

func fromJSON(v *fastjson.Value, allowList bool) (Value, error) {
	if v == nil {
		return nil, fmt.Errorf("missing value")
	}

	switch v.Type() {
	case fastjson.TypeNull:
		return Null{}, nil
	case fastjson.TypeString:
		return String(v.GetStringBytes()), nil
	case fastjson.TypeTrue:
		return Bool(true), nil
	case fastjson.TypeFalse:
		return Bool(false), nil
	case fastjson.TypeNumber:
		return numberFromString(v.String())
	case fastjson.TypeArray:
		if !allowList {
			return nil, fmt.Errorf("nested lists are not valid operands")
		}
		items, _ := v.Array()
		list := make(List, len(items))
		for i, item := range items {
			elem, err := fromJSON(item, false)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = elem
		}
		return list, nil
	default:
		return nil, fmt.Errorf("objects are not valid operands")
	}
}

// numberFromString keeps integers exact and uses float64 for numbers with a
// fraction or exponent. Integers outside the int64 range are rejected.
func numberFromString(s string) (Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("integer out of range: %s", s)
		}
		return Int(n), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("number out of range: %s", s)
	}
	return Float(f), nil
}

// FromAny converts a decoded Go value (encoding/json with UseNumber, or
// yaml.v3) into a Value.
func FromAny(v any) (Value, error) {
	return fromAny(v, true)
}

func fromAny(v any, allowList bool) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return Int(int64(val)), nil
		}
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return nil, fmt.Errorf("number out of range: %v", val)
		}
		return Float(val), nil
	case json.Number:
		return numberFromString(val.String())
	case []any:
		if !allowList {
			return nil, fmt.Errorf("nested lists are not valid operands")
		}
		list := make(List, len(val))
		for i, item := range val {
			elem, err := fromAny(item, false)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = elem
		}
		return list, nil
	default:
		return nil, fmt.Errorf("unsupported operand type: %T", v)
	}
}
