package source

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Kind tags the variant held by a Value.
type Kind uint8

// Value kinds. Missing is the zero value and marks an unresolved path.
const (
	KindMissing Kind = iota
	KindNull
	KindString
	KindNumber
	KindBool
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Value is a node of a parsed source document: a tagged union over
// null, string, number, bool, array and object. Numbers keep their literal text.
type Value struct {
	kind Kind
	text string
	b    bool
	arr  []Value
	obj  map[string]Value
}

// Missing is returned by lookups that do not resolve.
var Missing = Value{}

// Null returns a null value.
func Null() Value { return Value{kind: KindNull} }

// String returns a string value.
func String(s string) Value { return Value{kind: KindString, text: s} }

// Number returns a number value from its literal representation.
func Number(literal string) Value { return Value{kind: KindNumber, text: literal} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Array returns an array value.
func Array(items ...Value) Value { return Value{kind: KindArray, arr: items} }

// Object returns an object value. The map is not copied.
func Object(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindObject, obj: fields}
}

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

// IsMissing reports whether v is the Missing sentinel.
func (v Value) IsMissing() bool { return v.kind == KindMissing }

// IsScalar reports whether v is a string, number or bool.
func (v Value) IsScalar() bool {
	return v.kind == KindString || v.kind == KindNumber || v.kind == KindBool
}

// Text returns the textual form of a scalar; empty for null, missing and containers.
func (v Value) Text() string {
	switch v.kind {
	case KindString, KindNumber:
		return v.text
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return ""
	}
}

// Field returns the member of an object by key.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindObject {
		return Missing, false
	}
	f, ok := v.obj[key]
	return f, ok
}

// Index returns the i-th array element.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindArray || i < 0 || i >= len(v.arr) {
		return Missing, false
	}
	return v.arr[i], true
}

// Items returns array elements. An object is treated as a single-element list,
// which is how XML represents a repeated element that occurs once.
func (v Value) Items() []Value {
	switch v.kind {
	case KindArray:
		return v.arr
	case KindObject:
		return []Value{v}
	default:
		return nil
	}
}

// Keys returns object keys in sorted order.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Interface converts v back to plain Go values (json.Number for numbers).
func (v Value) Interface() any {
	switch v.kind {
	case KindNull, KindMissing:
		return nil
	case KindString:
		return v.text
	case KindNumber:
		return json.Number(v.text)
	case KindBool:
		return v.b
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, f := range v.obj {
			out[k] = f.Interface()
		}
		return out
	default:
		return nil
	}
}

// MarshalJSON encodes the tree as plain JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

// FromAny converts decoded JSON/XML data into a Value.
func FromAny(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case string:
		return String(t), nil
	case json.Number:
		return Number(t.String()), nil
	case float64:
		return Number(strconv.FormatFloat(t, 'f', -1, 64)), nil
	case float32:
		return Number(strconv.FormatFloat(float64(t), 'f', -1, 32)), nil
	case int:
		return Number(strconv.Itoa(t)), nil
	case int64:
		return Number(strconv.FormatInt(t, 10)), nil
	case bool:
		return Bool(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			item, err := FromAny(e)
			if err != nil {
				return Missing, err
			}
			items[i] = item
		}
		return Array(items...), nil
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, e := range t {
			f, err := FromAny(e)
			if err != nil {
				return Missing, err
			}
			fields[k] = f
		}
		return Object(fields), nil
	default:
		return Missing, fmt.Errorf("unsupported source value of type %T", x)
	}
}
