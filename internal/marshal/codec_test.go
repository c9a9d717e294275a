package marshal

import (
	"math"
	"testing"

	"github.com/cryguy/raven/internal/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	values := []binding.Value{
		binding.Null(),
		binding.Bool(true),
		binding.Int(math.MaxInt64),
		binding.Int(-7),
		binding.Float(1.25),
		binding.Float(math.Inf(-1)),
		binding.String("héllo \"quoted\""),
		binding.Bytes([]byte{0x00, 0xff, 0x10}),
		binding.JSON(`{"a":[1,2]}`),
		binding.Error("it broke"),
		binding.Array(binding.Int(1), binding.Array(), binding.Object(nil)),
		binding.Object(map[string]binding.Value{
			"nested": binding.Object(map[string]binding.Value{"k": binding.String("v")}),
			"":       binding.Null(),
		}),
	}
	for _, v := range values {
		t.Run(v.Kind().String(), func(t *testing.T) {
			got := Decode(Encode(v))
			assert.True(t, binding.Equal(v, got), "got %s, want %s", got, v)
		})
	}
}

func TestCodec_NaN(t *testing.T) {
	got := Decode(Encode(binding.Float(math.NaN())))
	f, ok := got.AsFloat()
	require.True(t, ok)
	assert.True(t, math.IsNaN(f))
}

func TestCodec_UTF8BytesTravelAsString(t *testing.T) {
	assert.JSONEq(t, `{"t":"s","v":"abc"}`, Encode(binding.Bytes([]byte("abc"))))
}

func TestCodec_IntsAreExact(t *testing.T) {
	assert.JSONEq(t, `{"t":"i","v":"9007199254740993"}`, Encode(binding.Int(9007199254740993)))
	got := Decode(`{"t":"i","v":"9007199254740993"}`)
	i, ok := got.AsInt()
	require.True(t, ok)
	assert.Equal(t, int64(9007199254740993), i)
}

func TestDecode_MalformedDegradesToString(t *testing.T) {
	for _, text := range []string{"not json", `{"v":1}`, `[1,2]`} {
		got := Decode(text)
		s, ok := got.AsString()
		assert.True(t, ok, text)
		assert.Equal(t, text, s)
	}
}

func TestDecode_UnknownTag(t *testing.T) {
	got := Decode(`{"t":"zz","v":"x"}`)
	assert.Equal(t, binding.KindString, got.Kind())
}

func TestDecodeList(t *testing.T) {
	args := DecodeList(EncodeList([]binding.Value{binding.String("a"), binding.Int(2)}))
	require.Len(t, args, 2)
	assert.True(t, binding.Equal(binding.Int(2), args[1]))

	single := DecodeList(Encode(binding.Bool(false)))
	require.Len(t, single, 1)
	assert.Equal(t, binding.KindBool, single[0].Kind())
}
