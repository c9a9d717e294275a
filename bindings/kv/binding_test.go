package kv

import (
	"testing"
	"time"

	"github.com/cryguy/raven/internal/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) binding.Value { return binding.String(s) }

func TestBinding_PutGet(t *testing.T) {
	b := NewMemory("KV")
	assert.Equal(t, "KV", b.Name())

	out := b.Call("put", []binding.Value{str("a"), str("1")})
	assert.True(t, out.IsNull(), out.String())

	got := b.Call("get", []binding.Value{str("a")})
	assert.True(t, binding.Equal(str("1"), got))

	missing := b.Call("get", []binding.Value{str("nope")})
	assert.True(t, missing.IsNull())
}

func TestBinding_JSONValues(t *testing.T) {
	b := NewMemory("KV")
	obj := binding.Object(map[string]binding.Value{"n": binding.Int(3)})
	require.True(t, b.Call("put", []binding.Value{str("cfg"), obj}).IsNull())

	got := b.Call("get", []binding.Value{str("cfg"), str("json")})
	n, ok := got.Get("n")
	require.True(t, ok, got.String())
	assert.True(t, binding.Equal(binding.Int(3), n))

	text := b.Call("get", []binding.Value{str("cfg"), binding.Object(map[string]binding.Value{"type": str("text")})})
	assert.True(t, binding.Equal(str(`{"n":3}`), text))
}

func TestBinding_Metadata(t *testing.T) {
	b := NewMemory("KV")
	opts := binding.Object(map[string]binding.Value{
		"metadata": binding.Object(map[string]binding.Value{"tag": str("x")}),
	})
	require.True(t, b.Call("put", []binding.Value{str("k"), str("v"), opts}).IsNull())

	got := b.Call("getWithMetadata", []binding.Value{str("k")})
	value, _ := got.Get("value")
	assert.True(t, binding.Equal(str("v"), value))
	meta, _ := got.Get("metadata")
	raw, ok := meta.AsJSON()
	require.True(t, ok)
	assert.JSONEq(t, `{"tag":"x"}`, raw)

	empty := b.Call("getWithMetadata", []binding.Value{str("absent")})
	value, _ = empty.Get("value")
	assert.True(t, value.IsNull())
}

func TestBinding_TTL(t *testing.T) {
	clock := &fakeClock{t: time.Unix(100, 0)}
	store := NewMemoryStore()
	store.now = clock.now
	b := New("KV", store)
	b.now = clock.now

	opts := binding.Object(map[string]binding.Value{"expirationTtl": binding.Int(60)})
	require.True(t, b.Call("put", []binding.Value{str("k"), str("v"), opts}).IsNull())
	clock.t = clock.t.Add(61 * time.Second)
	assert.True(t, b.Call("get", []binding.Value{str("k")}).IsNull())

	bad := b.Call("put", []binding.Value{str("k"), str("v"), binding.Int(-1)})
	assert.True(t, bad.IsError())
}

func TestBinding_DeleteAndList(t *testing.T) {
	b := NewMemory("KV")
	for _, k := range []string{"p:1", "p:2", "q"} {
		require.True(t, b.Call("put", []binding.Value{str(k), str(k)}).IsNull())
	}
	deleted := b.Call("delete", []binding.Value{str("q")})
	assert.True(t, binding.Equal(binding.Bool(true), deleted))

	out := b.Call("list", []binding.Value{binding.Object(map[string]binding.Value{"prefix": str("p:")})})
	keys, _ := out.Get("keys")
	assert.True(t, binding.Equal(binding.Array(str("p:1"), str("p:2")), keys))
	complete, _ := out.Get("list_complete")
	assert.True(t, binding.Equal(binding.Bool(true), complete))
	_, hasCursor := out.Get("cursor")
	assert.False(t, hasCursor)
}

func TestBinding_BadArguments(t *testing.T) {
	b := NewMemory("KV")

	msg, _ := b.Call("get", nil).ErrorMessage()
	assert.Equal(t, "get requires a string key", msg)

	msg, _ = b.Call("put", []binding.Value{str("k")}).ErrorMessage()
	assert.Equal(t, "put requires a value", msg)

	msg, _ = b.Call("explode", nil).ErrorMessage()
	assert.Equal(t, "Unknown method: explode", msg)
}
