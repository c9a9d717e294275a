package binding

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ToNative converts v into a tree of plain Go values suitable for
// encoding/json: nil, bool, int64, float64, string, []any and
// map[string]any. Bytes become a string when valid UTF-8 and a list of
// byte values otherwise; JSON text is decoded in place when it parses.
func ToNative(v Value) any {
	switch v.kind {
	case KindNull:
		return nil
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		if math.IsNaN(v.f) || math.IsInf(v.f, 0) {
			return nil
		}
		return v.f
	case KindString:
		return v.s
	case KindBytes:
		if utf8.Valid(v.raw) {
			return string(v.raw)
		}
		out := make([]any, len(v.raw))
		for i, c := range v.raw {
			out[i] = int64(c)
		}
		return out
	case KindJSON:
		var decoded any
		if err := json.Unmarshal([]byte(v.s), &decoded); err != nil {
			return v.s
		}
		return decoded
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = ToNative(item)
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, item := range v.obj {
			out[k] = ToNative(item)
		}
		return out
	case KindError:
		return "Error: " + v.s
	}
	return nil
}

// FromNative converts a plain Go value into a Value. It accepts the shapes
// produced by encoding/json (including json.Number) plus the common scalar
// and container types. Anything else degrades to its string rendering.
func FromNative(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null()
	case Value:
		return t
	case bool:
		return Bool(t)
	case int:
		return Int(int64(t))
	case int32:
		return Int(int64(t))
	case int64:
		return Int(t)
	case uint32:
		return Int(int64(t))
	case float32:
		return numberValue(float64(t))
	case float64:
		return numberValue(t)
	case json.Number:
		if i, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return Int(i)
		}
		f, err := t.Float64()
		if err != nil {
			return String(string(t))
		}
		return numberValue(f)
	case string:
		return String(t)
	case []byte:
		return Bytes(t)
	case []string:
		out := make([]Value, len(t))
		for i, s := range t {
			out[i] = String(s)
		}
		return Array(out...)
	case []any:
		out := make([]Value, len(t))
		for i, item := range t {
			out[i] = FromNative(item)
		}
		return Array(out...)
	case []Value:
		return Array(t...)
	case map[string]any:
		out := make(map[string]Value, len(t))
		for k, item := range t {
			out[k] = FromNative(item)
		}
		return Object(out)
	case map[string]string:
		out := make(map[string]Value, len(t))
		for k, s := range t {
			out[k] = String(s)
		}
		return Object(out)
	case map[string]Value:
		return Object(t)
	case error:
		return Error(t.Error())
	}
	b, err := json.Marshal(x)
	if err != nil {
		return String(stringify(x))
	}
	var decoded any
	if err := json.Unmarshal(b, &decoded); err != nil {
		return String(string(b))
	}
	return FromNative(decoded)
}

// numberValue applies the guest numeric rule: no fractional part means Int.
func numberValue(f float64) Value {
	if f == math.Trunc(f) && !math.IsInf(f, 0) && math.Abs(f) < 1<<63 {
		return Int(int64(f))
	}
	return Float(f)
}

func stringify(x any) string {
	if s, ok := x.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(x)
}

// MarshalJSON encodes v through ToNative.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToNative(v))
}

// ParseJSON decodes JSON text into a Value, keeping integers exact.
func ParseJSON(text string) (Value, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return Value{}, err
	}
	return FromNative(decoded), nil
}
