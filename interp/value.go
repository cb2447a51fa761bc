// Package interp implements the kernel's runtime: scope management, value
// expansion, and statement execution over the parser's AST.
package interp

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind names a Value's runtime type.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
)

// String names a Kind the way a parameter-type mismatch error reports it.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is the kernel's single runtime value type: every expansion,
// argument, and tool result carries one of these.
type Value struct {
	Kind   Kind
	Bool   bool
	Int    int64
	Float  float64
	Str    string
	Array  []Value
	Object map[string]Value
}

// Null is the shared null value.
var Null = Value{Kind: KindNull}

func Bool(b bool) Value           { return Value{Kind: KindBool, Bool: b} }
func Int(i int64) Value           { return Value{Kind: KindInt, Int: i} }
func Float(f float64) Value       { return Value{Kind: KindFloat, Float: f} }
func String(s string) Value       { return Value{Kind: KindString, Str: s} }
func Array(v []Value) Value       { return Value{Kind: KindArray, Array: v} }
func Object(m map[string]Value) Value {
	return Value{Kind: KindObject, Object: m}
}

// Truthy reports whether a value counts as true in a condition: false,
// null, 0, 0.0, the empty string, and an empty array or object are
// false, everything else is true.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindNull:
		return false
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int != 0
	case KindFloat:
		return v.Float != 0
	case KindString:
		return v.Str != ""
	case KindArray:
		return len(v.Array) > 0
	case KindObject:
		return len(v.Object) > 0
	default:
		return false
	}
}

// String returns the value's string expansion: the form it takes when
// interpolated, printed, or passed as a bareword argument.
func (v Value) String() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindArray:
		parts := make([]string, len(v.Array))
		for i, e := range v.Array {
			parts[i] = e.String()
		}
		return strings.Join(parts, " ")
	case KindObject:
		return fmt.Sprintf("%v", v.Object)
	default:
		return ""
	}
}

// Len returns the length used by `${#VAR}`: string byte length for
// strings, element count for arrays and objects, 0 otherwise.
func (v Value) Len() int {
	switch v.Kind {
	case KindString:
		return len(v.Str)
	case KindArray:
		return len(v.Array)
	case KindObject:
		return len(v.Object)
	default:
		return 0
	}
}

// Index applies a `[i]` path segment. Out-of-range indexing yields Null
// rather than an error, matching the kernel's permissive path expansion.
func (v Value) Index(i int) Value {
	if v.Kind != KindArray || i < 0 || i >= len(v.Array) {
		return Null
	}
	return v.Array[i]
}

// Field applies a `.field` path segment.
func (v Value) Field(name string) Value {
	if v.Kind != KindObject {
		return Null
	}
	if val, ok := v.Object[name]; ok {
		return val
	}
	return Null
}

// Equal implements `==`/`!=` value equality across compatible kinds.
func (v Value) Equal(other Value) bool {
	if v.Kind == other.Kind {
		switch v.Kind {
		case KindNull:
			return true
		case KindBool:
			return v.Bool == other.Bool
		case KindInt:
			return v.Int == other.Int
		case KindFloat:
			return v.Float == other.Float
		case KindString:
			return v.Str == other.Str
		}
	}
	return v.String() == other.String()
}

// MarshalJSON encodes a Value as plain JSON, the form the state store
// persists variables in: null, a bool, a number, a string, an array, or
// an object, with no kind tag.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return json.Marshal(nil)
	case KindBool:
		return json.Marshal(v.Bool)
	case KindInt:
		return json.Marshal(v.Int)
	case KindFloat:
		return json.Marshal(v.Float)
	case KindString:
		return json.Marshal(v.Str)
	case KindArray:
		return json.Marshal(v.Array)
	case KindObject:
		return json.Marshal(v.Object)
	default:
		return json.Marshal(nil)
	}
}

// UnmarshalJSON decodes a persisted variable back into a Value,
// inferring its Kind from the JSON shape.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = fromAny(raw)
	return nil
}

func fromAny(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Null
	case bool:
		return Bool(t)
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t))
		}
		return Float(t)
	case string:
		return String(t)
	case []interface{}:
		elems := make([]Value, len(t))
		for i, e := range t {
			elems[i] = fromAny(e)
		}
		return Array(elems)
	case map[string]interface{}:
		obj := make(map[string]Value, len(t))
		for k, e := range t {
			obj[k] = fromAny(e)
		}
		return Object(obj)
	default:
		return Null
	}
}

// AssignableTo reports whether v can bind to a declared parameter of the
// given type, per §4.5's assignable-pairs rule: identity on tag, with a
// documented int→float widening. Null is always assignable, since an
// unbound optional parameter without a default binds to Null regardless
// of its declared type.
func (v Value) AssignableTo(paramType string) bool {
	if v.Kind == KindNull {
		return true
	}
	switch paramType {
	case "string":
		return v.Kind == KindString
	case "int":
		return v.Kind == KindInt
	case "float":
		return v.Kind == KindFloat || v.Kind == KindInt
	case "bool":
		return v.Kind == KindBool
	case "array":
		return v.Kind == KindArray
	case "object":
		return v.Kind == KindObject
	default:
		return true
	}
}

// AsFloat coerces a value to a float64 for numeric comparison, parsing
// strings where possible.
func (v Value) AsFloat() (float64, bool) {
	switch v.Kind {
	case KindInt:
		return float64(v.Int), true
	case KindFloat:
		return v.Float, true
	case KindString:
		f, err := strconv.ParseFloat(v.Str, 64)
		return f, err == nil
	case KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
