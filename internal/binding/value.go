package binding

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindJSON
	KindArray
	KindObject
	KindError
)

var kindNames = [...]string{
	KindNull:   "null",
	KindBool:   "bool",
	KindInt:    "int",
	KindFloat:  "float",
	KindString: "string",
	KindBytes:  "bytes",
	KindJSON:   "json",
	KindArray:  "array",
	KindObject: "object",
	KindError:  "error",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Value is any datum that can cross the host/guest boundary. The zero Value
// is Null. Values are immutable once built; accessors return the backing
// slices and maps, which callers must not modify.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string // String, JSON and Error payloads
	raw  []byte
	arr  []Value
	obj  map[string]Value
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int wraps a signed 64-bit integer.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float wraps a 64-bit float.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps a UTF-8 string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bytes wraps a raw byte payload.
func Bytes(b []byte) Value { return Value{kind: KindBytes, raw: b} }

// JSON wraps pre-encoded JSON text.
func JSON(text string) Value { return Value{kind: KindJSON, s: text} }

// Array wraps an ordered list of values.
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, arr: items}
}

// Object wraps a string-keyed mapping.
func Object(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindObject, obj: fields}
}

// Error returns an error Value carrying msg.
func Error(msg string) Value { return Value{kind: KindError, s: msg} }

// Errorf is Error with fmt formatting.
func Errorf(format string, args ...any) Value {
	return Error(fmt.Sprintf(format, args...))
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsError() bool  { return v.kind == KindError }
func (v Value) IsObject() bool { return v.kind == KindObject }

// AsBool reports the boolean payload.
func (v Value) AsBool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// AsInt reports the integer payload. Floats without a fractional part
// convert.
func (v Value) AsInt() (int64, bool) {
	switch v.kind {
	case KindInt:
		return v.i, true
	case KindFloat:
		if v.f == math.Trunc(v.f) && !math.IsInf(v.f, 0) && math.Abs(v.f) < 1<<63 {
			return int64(v.f), true
		}
	}
	return 0, false
}

// AsFloat reports the numeric payload, widening Int.
func (v Value) AsFloat() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	}
	return 0, false
}

// AsString reports the string payload of a String Value.
func (v Value) AsString() (string, bool) {
	return v.s, v.kind == KindString
}

// AsBytes reports the payload of a Bytes Value.
func (v Value) AsBytes() ([]byte, bool) {
	return v.raw, v.kind == KindBytes
}

// AsJSON reports the raw text of a JSON Value.
func (v Value) AsJSON() (string, bool) {
	return v.s, v.kind == KindJSON
}

// AsArray reports the items of an Array Value.
func (v Value) AsArray() ([]Value, bool) {
	return v.arr, v.kind == KindArray
}

// AsObject reports the fields of an Object Value.
func (v Value) AsObject() (map[string]Value, bool) {
	return v.obj, v.kind == KindObject
}

// ErrorMessage returns the message of an Error Value.
func (v Value) ErrorMessage() (string, bool) {
	return v.s, v.kind == KindError
}

// Get returns the field named key of an Object Value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[key]
	return f, ok
}

// Equal reports deep equality. NaN floats compare equal to each other.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		if math.IsNaN(a.f) && math.IsNaN(b.f) {
			return true
		}
		return a.f == b.f
	case KindString, KindJSON, KindError:
		return a.s == b.s
	case KindBytes:
		return string(a.raw) == string(b.raw)
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !Equal(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.obj) != len(b.obj) {
			return false
		}
		for k, av := range a.obj {
			bv, ok := b.obj[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// String renders v for logs and CLI output. Object keys are sorted so the
// rendering is stable.
func (v Value) String() string {
	var sb strings.Builder
	v.render(&sb)
	return sb.String()
}

func (v Value) render(sb *strings.Builder) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		sb.WriteString(strconv.FormatFloat(v.f, 'g', -1, 64))
	case KindString, KindJSON:
		sb.WriteString(v.s)
	case KindBytes:
		fmt.Fprintf(sb, "<bytes: %d bytes>", len(v.raw))
	case KindArray:
		sb.WriteByte('[')
		for i, item := range v.arr {
			if i > 0 {
				sb.WriteString(", ")
			}
			item.render(sb)
		}
		sb.WriteByte(']')
	case KindObject:
		keys := make([]string, 0, len(v.obj))
		for k := range v.obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			v.obj[k].render(sb)
		}
		sb.WriteByte('}')
	case KindError:
		sb.WriteString("Error: ")
		sb.WriteString(v.s)
	}
}
