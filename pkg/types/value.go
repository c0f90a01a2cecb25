package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sort"
)

// ErrUnsupportedValue is returned by ValueOf when a Go value has no JSON-like
// representation (channels, funcs, structs, ...).
var ErrUnsupportedValue = errors.New("unsupported value type")

// Kind identifies which variant of a Value is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

// String returns the lowercase kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

// Value is a JSON-like tagged union used for the associated data of features
// and experiments. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	lit  string // decoded JSON number text, re-emitted verbatim
	s    string
	list []Value
	m    Values
}

// Values is the associated data of a feature or experiment. Keys that this
// package does not interpret are preserved verbatim on round-trip.
type Values map[string]Value

// NullValue returns the null Value.
func NullValue() Value { return Value{} }

// BoolValue wraps a bool.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// NumberValue wraps a number.
func NumberValue(n float64) Value { return Value{kind: KindNumber, n: n} }

// StringValue wraps a string.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// ListValue wraps an ordered list of values.
func ListValue(items ...Value) Value {
	return Value{kind: KindList, list: append([]Value(nil), items...)}
}

// MapValue wraps a nested mapping.
func MapValue(m Values) Value {
	return Value{kind: KindMap, m: m.Clone()}
}

// ValueOf converts a decoded JSON value (or a plain Go scalar, slice or map)
// into a Value.
func ValueOf(v any) (Value, error) {
	switch t := v.(type) {
	case nil:
		return NullValue(), nil
	case Value:
		return t, nil
	case Values:
		return MapValue(t), nil
	case bool:
		return BoolValue(t), nil
	case string:
		return StringValue(t), nil
	case float64:
		return NumberValue(t), nil
	case float32:
		return NumberValue(float64(t)), nil
	case int:
		return NumberValue(float64(t)), nil
	case int32:
		return NumberValue(float64(t)), nil
	case int64:
		return NumberValue(float64(t)), nil
	case uint:
		return NumberValue(float64(t)), nil
	case uint32:
		return NumberValue(float64(t)), nil
	case uint64:
		return NumberValue(float64(t)), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		return Value{kind: KindNumber, n: f, lit: t.String()}, nil
	case []string:
		items := make([]Value, len(t))
		for i, s := range t {
			items[i] = StringValue(s)
		}
		return Value{kind: KindList, list: items}, nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			converted, err := ValueOf(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = converted
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]any:
		vs, err := ValuesFrom(t)
		if err != nil {
			return Value{}, err
		}
		return Value{kind: KindMap, m: vs}, nil
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// ValuesFrom converts a decoded JSON object into Values.
func ValuesFrom(m map[string]any) (Values, error) {
	if m == nil {
		return nil, nil
	}
	out := make(Values, len(m))
	for k, raw := range m {
		v, err := ValueOf(raw)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		out[k] = v
	}
	return out, nil
}

// Kind reports the populated variant.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the wrapped bool, if v is a bool.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsNumber returns the wrapped number, if v is a number. Integers beyond
// 2^53 are rounded; NumberText returns them exactly.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == KindNumber }

// NumberText returns the number as JSON text: the decoded literal when v
// came from JSON, otherwise the shortest float representation.
func (v Value) NumberText() (string, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	if v.lit != "" {
		return v.lit, true
	}
	data, err := json.Marshal(v.n)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// AsString returns the wrapped string, if v is a string.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsList returns a copy of the wrapped list, if v is a list.
func (v Value) AsList() ([]Value, bool) {
	if v.kind != KindList {
		return nil, false
	}
	return append([]Value(nil), v.list...), true
}

// AsMap returns a copy of the wrapped mapping, if v is a map.
func (v Value) AsMap() (Values, bool) {
	if v.kind != KindMap {
		return nil, false
	}
	return v.m.Clone(), true
}

// Interface converts v back into plain Go values (the inverse of ValueOf for
// decoded JSON).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = item.Interface()
		}
		return out
	case KindMap:
		return v.m.Interface()
	default:
		return nil
	}
}

// Equal reports deep equality.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == other.b
	case KindNumber:
		return sameNumber(v, other)
	case KindString:
		return v.s == other.s
	case KindList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		return v.m.Equal(other.m)
	}
	return false
}

// sameNumber compares two numbers at full precision when both carry a
// decoded literal, so 9007199254740993 and 9007199254740992 differ.
func sameNumber(a, b Value) bool {
	if a.n != b.n {
		return false
	}
	if a.lit == "" || b.lit == "" || a.lit == b.lit {
		return true
	}
	x, _, errX := big.ParseFloat(a.lit, 10, 256, big.ToNearestEven)
	y, _, errY := big.ParseFloat(b.lit, 10, 256, big.ToNearestEven)
	if errX != nil || errY != nil {
		return true
	}
	return x.Cmp(y) == 0
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindBool:
		return json.Marshal(v.b)
	case KindNumber:
		if v.lit != "" {
			return []byte(v.lit), nil
		}
		return json.Marshal(v.n)
	case KindString:
		return json.Marshal(v.s)
	case KindList:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case KindMap:
		if v.m == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(map[string]Value(v.m))
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	converted, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = converted
	return nil
}

// Get returns the value stored under key.
func (vs Values) Get(key string) (Value, bool) {
	v, ok := vs[key]
	return v, ok
}

// StringFor returns vs[key] when it is a string.
func (vs Values) StringFor(key string) (string, bool) {
	v, ok := vs[key]
	if !ok {
		return "", false
	}
	return v.AsString()
}

// BoolFor returns vs[key] when it is a bool.
func (vs Values) BoolFor(key string) (bool, bool) {
	v, ok := vs[key]
	if !ok {
		return false, false
	}
	return v.AsBool()
}

// Clone returns a deep copy. Cloning nil yields nil.
func (vs Values) Clone() Values {
	if vs == nil {
		return nil
	}
	out := make(Values, len(vs))
	for k, v := range vs {
		switch v.kind {
		case KindList:
			v.list = append([]Value(nil), v.list...)
		case KindMap:
			v.m = v.m.Clone()
		}
		out[k] = v
	}
	return out
}

// Equal reports deep equality between two mappings. nil and empty are equal.
func (vs Values) Equal(other Values) bool {
	if len(vs) != len(other) {
		return false
	}
	for k, v := range vs {
		o, ok := other[k]
		if !ok || !v.Equal(o) {
			return false
		}
	}
	return true
}

// Keys returns the keys in sorted order.
func (vs Values) Keys() []string {
	keys := make([]string, 0, len(vs))
	for k := range vs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Interface converts vs into a map[string]any.
func (vs Values) Interface() map[string]any {
	if vs == nil {
		return nil
	}
	out := make(map[string]any, len(vs))
	for k, v := range vs {
		out[k] = v.Interface()
	}
	return out
}
