// Package marshal converts binding values to and from the guest engine.
//
// Values cross the engine boundary as JSON text in a tagged form
// {"t": tag, "v": payload}. The Go side of the codec lives here; the guest
// side is installed into a runtime by Setup.
package marshal

import (
	"encoding/json"
	"math"
	"strconv"
	"unicode/utf8"

	"github.com/cryguy/raven/internal/binding"
)

const (
	tagNull   = "n"
	tagBool   = "b"
	tagInt    = "i"
	tagFloat  = "f"
	tagString = "s"
	tagBytes  = "y"
	tagJSON   = "j"
	tagArray  = "a"
	tagObject = "o"
	tagError  = "e"
)

type wireValue struct {
	T string          `json:"t"`
	V json.RawMessage `json:"v,omitempty"`
}

// Encode renders v in wire form for the guest side. Bytes that are valid
// UTF-8 are sent as strings; the rest travel as byte lists and surface in
// guest code as a Uint8Array.
func Encode(v binding.Value) string {
	b, err := json.Marshal(encodeTree(v))
	if err != nil {
		// Only reachable through a value that json cannot represent, which
		// encodeTree already rules out. Degrade to its rendering.
		b, _ = json.Marshal(map[string]any{"t": tagString, "v": v.String()})
	}
	return string(b)
}

// EncodeList renders args as a wire array.
func EncodeList(args []binding.Value) string {
	return Encode(binding.Array(args...))
}

func encodeTree(v binding.Value) map[string]any {
	switch v.Kind() {
	case binding.KindBool:
		b, _ := v.AsBool()
		return map[string]any{"t": tagBool, "v": b}
	case binding.KindInt:
		i, _ := v.AsInt()
		return map[string]any{"t": tagInt, "v": strconv.FormatInt(i, 10)}
	case binding.KindFloat:
		f, _ := v.AsFloat()
		switch {
		case math.IsNaN(f):
			return map[string]any{"t": tagFloat, "v": "NaN"}
		case math.IsInf(f, 1):
			return map[string]any{"t": tagFloat, "v": "Infinity"}
		case math.IsInf(f, -1):
			return map[string]any{"t": tagFloat, "v": "-Infinity"}
		}
		return map[string]any{"t": tagFloat, "v": f}
	case binding.KindString:
		s, _ := v.AsString()
		return map[string]any{"t": tagString, "v": s}
	case binding.KindBytes:
		raw, _ := v.AsBytes()
		if utf8.Valid(raw) {
			return map[string]any{"t": tagString, "v": string(raw)}
		}
		list := make([]int, len(raw))
		for i, c := range raw {
			list[i] = int(c)
		}
		return map[string]any{"t": tagBytes, "v": list}
	case binding.KindJSON:
		s, _ := v.AsJSON()
		return map[string]any{"t": tagJSON, "v": s}
	case binding.KindArray:
		items, _ := v.AsArray()
		out := make([]map[string]any, len(items))
		for i, item := range items {
			out[i] = encodeTree(item)
		}
		return map[string]any{"t": tagArray, "v": out}
	case binding.KindObject:
		fields, _ := v.AsObject()
		out := make(map[string]map[string]any, len(fields))
		for k, item := range fields {
			out[k] = encodeTree(item)
		}
		return map[string]any{"t": tagObject, "v": out}
	case binding.KindError:
		msg, _ := v.ErrorMessage()
		return map[string]any{"t": tagError, "v": msg}
	}
	return map[string]any{"t": tagNull}
}

// Decode parses wire text produced by the guest side. It never fails:
// malformed input degrades to a String holding the raw text.
func Decode(text string) binding.Value {
	var w wireValue
	if err := json.Unmarshal([]byte(text), &w); err != nil || w.T == "" {
		return binding.String(text)
	}
	return decodeWire(w)
}

// DecodeList parses a wire array into its items. Anything that is not an
// array becomes a one-element list.
func DecodeList(text string) []binding.Value {
	v := Decode(text)
	if items, ok := v.AsArray(); ok {
		return items
	}
	return []binding.Value{v}
}

func decodeWire(w wireValue) binding.Value {
	switch w.T {
	case tagNull:
		return binding.Null()
	case tagBool:
		var b bool
		if json.Unmarshal(w.V, &b) != nil {
			return binding.String(string(w.V))
		}
		return binding.Bool(b)
	case tagInt:
		var s string
		if json.Unmarshal(w.V, &s) != nil {
			return decodeNumber(w.V)
		}
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return binding.Int(i)
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return binding.Float(f)
		}
		return binding.String(s)
	case tagFloat:
		var s string
		if json.Unmarshal(w.V, &s) == nil {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return binding.String(s)
			}
			return binding.Float(f)
		}
		return decodeNumber(w.V)
	case tagString:
		var s string
		if json.Unmarshal(w.V, &s) != nil {
			return binding.String(string(w.V))
		}
		return binding.String(s)
	case tagBytes:
		var list []int
		if json.Unmarshal(w.V, &list) != nil {
			return binding.String(string(w.V))
		}
		raw := make([]byte, len(list))
		for i, c := range list {
			raw[i] = byte(c)
		}
		return binding.Bytes(raw)
	case tagJSON:
		var s string
		if json.Unmarshal(w.V, &s) != nil {
			return binding.JSON(string(w.V))
		}
		return binding.JSON(s)
	case tagArray:
		var items []wireValue
		if json.Unmarshal(w.V, &items) != nil {
			return binding.String(string(w.V))
		}
		out := make([]binding.Value, len(items))
		for i, item := range items {
			out[i] = decodeWire(item)
		}
		return binding.Array(out...)
	case tagObject:
		var fields map[string]wireValue
		if json.Unmarshal(w.V, &fields) != nil {
			return binding.String(string(w.V))
		}
		out := make(map[string]binding.Value, len(fields))
		for k, item := range fields {
			out[k] = decodeWire(item)
		}
		return binding.Object(out)
	case tagError:
		var s string
		if json.Unmarshal(w.V, &s) != nil {
			s = string(w.V)
		}
		return binding.Error(s)
	}
	return binding.String(string(w.V))
}

func decodeNumber(raw json.RawMessage) binding.Value {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return binding.String(string(raw))
	}
	return binding.Float(f)
}
