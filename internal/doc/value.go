package doc

import (
	"strconv"
	"strings"
)

// Kind identifies the dynamic type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindList
	KindMap
)

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

// Value is a provider-defined document, or any part of one. The zero Value
// is null. Map keys keep the order in which they were first set.
type Value struct {
	kind Kind
	b    bool
	s    string // string contents, or the literal text of a number
	list []Value
	obj  *object
}

type object struct {
	keys []string
	vals map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// BoolValue wraps b.
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// StringValue wraps s.
func StringValue(s string) Value { return Value{kind: KindString, s: s} }

// NumberValue wraps a number given by its literal text, e.g. "42" or "1.5e3".
func NumberValue(literal string) Value { return Value{kind: KindNumber, s: literal} }

// IntValue wraps n.
func IntValue(n int64) Value { return NumberValue(strconv.FormatInt(n, 10)) }

// FloatValue wraps f.
func FloatValue(f float64) Value { return NumberValue(strconv.FormatFloat(f, 'g', -1, 64)) }

// ListValue wraps items.
func ListValue(items ...Value) Value { return Value{kind: KindList, list: items} }

// NewMap returns an empty map value.
func NewMap() Value {
	return Value{kind: KindMap, obj: &object{vals: map[string]Value{}}}
}

// Kind reports the dynamic type of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Bool returns the boolean held by v.
func (v Value) Bool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// Str returns the string held by v.
func (v Value) Str() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Number returns the literal text of the number held by v.
func (v Value) Number() (string, bool) {
	if v.kind != KindNumber {
		return "", false
	}
	return v.s, true
}

// Float returns the number held by v as a float64.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Len returns the number of elements of a list or keys of a map, 0 otherwise.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.obj.keys)
	}
	return 0
}

// Items returns the elements of a list. The slice must not be modified.
func (v Value) Items() []Value {
	if v.kind != KindList {
		return nil
	}
	return v.list
}

// Index returns element i of a list.
func (v Value) Index(i int) (Value, bool) {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Value{}, false
	}
	return v.list[i], true
}

// Keys returns the keys of a map in insertion order.
func (v Value) Keys() []string {
	if v.kind != KindMap {
		return nil
	}
	out := make([]string, len(v.obj.keys))
	copy(out, v.obj.keys)
	return out
}

// Get returns the value stored under key. A key that is present with a null
// value is reported as found; callers that treat null as absent use Present.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	val, ok := v.obj.vals[key]
	return val, ok
}

// Path walks nested maps.
func (v Value) Path(keys ...string) (Value, bool) {
	cur := v
	for _, k := range keys {
		next, ok := cur.Get(k)
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// Lookup walks a dotted path such as "user.screen_name".
func (v Value) Lookup(path string) (Value, bool) {
	if path == "" {
		return v, true
	}
	return v.Path(strings.Split(path, ".")...)
}

// Present reports whether the dotted path exists and is not null.
func (v Value) Present(path string) bool {
	got, ok := v.Lookup(path)
	return ok && !got.IsNull()
}

// Set stores val under key, appending key if it is new. It panics if v is
// not a map.
func (v Value) Set(key string, val Value) {
	if v.kind != KindMap {
		panic("doc: Set on " + v.kind.String())
	}
	if _, ok := v.obj.vals[key]; !ok {
		v.obj.keys = append(v.obj.keys, key)
	}
	v.obj.vals[key] = val
}

// Equal reports deep equality. Map key order is ignored; numbers compare by
// numeric value when both parse.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindString:
		return v.s == o.s
	case KindNumber:
		if v.s == o.s {
			return true
		}
		a, ok1 := v.Float()
		b, ok2 := o.Float()
		return ok1 && ok2 && a == b
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(v.obj.keys) != len(o.obj.keys) {
			return false
		}
		for _, k := range v.obj.keys {
			ov, ok := o.obj.vals[k]
			if !ok || !v.obj.vals[k].Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}
