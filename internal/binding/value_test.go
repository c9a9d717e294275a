package binding

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_ZeroIsNull(t *testing.T) {
	var v Value
	assert.True(t, v.IsNull())
	assert.Equal(t, KindNull, v.Kind())
	assert.Equal(t, "null", v.String())
}

func TestValue_Accessors(t *testing.T) {
	b, ok := Bool(true).AsBool()
	assert.True(t, ok)
	assert.True(t, b)

	i, ok := Int(42).AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(42), i)

	_, ok = String("x").AsInt()
	assert.False(t, ok)

	f, ok := Int(3).AsFloat()
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)

	raw, ok := Bytes([]byte{1, 2}).AsBytes()
	assert.True(t, ok)
	assert.Equal(t, []byte{1, 2}, raw)

	msg, ok := Errorf("bad %d", 7).ErrorMessage()
	assert.True(t, ok)
	assert.Equal(t, "bad 7", msg)
}

func TestValue_AsIntFromWholeFloat(t *testing.T) {
	i, ok := Float(8).AsInt()
	assert.True(t, ok)
	assert.Equal(t, int64(8), i)

	_, ok = Float(8.5).AsInt()
	assert.False(t, ok)
	_, ok = Float(math.Inf(1)).AsInt()
	assert.False(t, ok)
}

func TestValue_EmptyContainers(t *testing.T) {
	items, ok := Array().AsArray()
	assert.True(t, ok)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	fields, ok := Object(nil).AsObject()
	assert.True(t, ok)
	assert.NotNil(t, fields)
}

func TestValue_Get(t *testing.T) {
	obj := Object(map[string]Value{"a": Int(1)})
	v, ok := obj.Get("a")
	assert.True(t, ok)
	assert.True(t, Equal(Int(1), v))

	_, ok = obj.Get("missing")
	assert.False(t, ok)
	_, ok = Int(1).Get("a")
	assert.False(t, ok)
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{"null", Null(), Null(), true},
		{"kind mismatch", Int(1), Float(1), false},
		{"nan", Float(math.NaN()), Float(math.NaN()), true},
		{"bytes", Bytes([]byte("ab")), Bytes([]byte("ab")), true},
		{"array order", Array(Int(1), Int(2)), Array(Int(2), Int(1)), false},
		{"nested object", Object(map[string]Value{"k": Array(String("v"))}), Object(map[string]Value{"k": Array(String("v"))}), true},
		{"object extra key", Object(map[string]Value{"a": Null()}), Object(nil), false},
		{"error text", Error("x"), Error("y"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestValue_String(t *testing.T) {
	v := Object(map[string]Value{
		"b": Array(Int(1), Float(2.5)),
		"a": String("x"),
	})
	assert.Equal(t, "{a: x, b: [1, 2.5]}", v.String())
	assert.Equal(t, "Error: boom", Error("boom").String())
	assert.Equal(t, "<bytes: 3 bytes>", Bytes([]byte("abc")).String())
}

func TestFromNative_WholeNumbersBecomeInt(t *testing.T) {
	assert.Equal(t, KindInt, FromNative(5.0).Kind())
	assert.Equal(t, KindFloat, FromNative(5.25).Kind())
	assert.Equal(t, KindInt, FromNative(json.Number("12")).Kind())
	assert.Equal(t, KindFloat, FromNative(json.Number("1.5")).Kind())
}

func TestFromNative_Structs(t *testing.T) {
	type item struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	v := FromNative(item{Name: "n", Count: 2})
	require.True(t, v.IsObject())
	name, _ := v.Get("name")
	count, _ := v.Get("count")
	assert.True(t, Equal(String("n"), name))
	assert.True(t, Equal(Int(2), count))
}

func TestToNative(t *testing.T) {
	v := Object(map[string]Value{
		"list": Array(Int(1), Bool(false), Null()),
		"json": JSON(`{"x":1}`),
		"err":  Error("bad"),
		"bin":  Bytes([]byte{0xff}),
	})
	got := ToNative(v).(map[string]any)
	assert.Equal(t, []any{int64(1), false, nil}, got["list"])
	assert.Equal(t, map[string]any{"x": float64(1)}, got["json"])
	assert.Equal(t, "Error: bad", got["err"])
	assert.Equal(t, []any{int64(255)}, got["bin"])
}

func TestParseJSON(t *testing.T) {
	v, err := ParseJSON(`{"big": 9007199254740993, "f": 0.5, "s": ["a"]}`)
	require.NoError(t, err)
	big, _ := v.Get("big")
	i, ok := big.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(9007199254740993), i)

	_, err = ParseJSON(`{`)
	assert.Error(t, err)
}

func TestValue_MarshalJSON(t *testing.T) {
	out, err := json.Marshal(Array(String("a"), Int(2)))
	require.NoError(t, err)
	assert.JSONEq(t, `["a", 2]`, string(out))
}
