package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func echoBinding(name string) *Func {
	return &Func{
		BindingName: name,
		Table: map[string]func(args []Value) Value{
			"echo":  func(args []Value) Value { return Arg(args, 0) },
			"panic": func(args []Value) Value { panic("kaboom") },
		},
	}
}

func TestRegistry_RegisterGetRemove(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.IsEmpty())

	r.Register("A", echoBinding("A"))
	r.Register("B", echoBinding("B"))
	assert.Equal(t, 2, r.Len())
	assert.True(t, r.Contains("A"))
	assert.Equal(t, []string{"A", "B"}, r.Names())

	b, ok := r.Remove("A")
	assert.True(t, ok)
	assert.Equal(t, "A", b.Name())
	assert.False(t, r.Contains("A"))

	_, ok = r.Remove("A")
	assert.False(t, ok)
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	r := NewRegistry()
	first := echoBinding("first")
	second := echoBinding("second")
	r.Register("X", first)
	r.Register("X", second)

	got, ok := r.Get("X")
	assert.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_CloneIsIndependent(t *testing.T) {
	r := NewRegistry()
	r.Register("A", echoBinding("A"))
	c := r.Clone()
	c.Register("B", echoBinding("B"))

	assert.False(t, r.Contains("B"))
	assert.True(t, c.Contains("A"))
}

func TestRegistry_Call(t *testing.T) {
	r := NewRegistry()
	r.Register("E", echoBinding("E"))

	got := r.Call("E", "echo", []Value{String("hi")})
	assert.True(t, Equal(String("hi"), got))

	missing := r.Call("Nope", "echo", nil)
	msg, ok := missing.ErrorMessage()
	assert.True(t, ok)
	assert.Equal(t, "Binding 'Nope' not found", msg)

	unknown := r.Call("E", "frobnicate", nil)
	msg, _ = unknown.ErrorMessage()
	assert.Equal(t, "Unknown method: frobnicate", msg)
}

func TestRegistry_CallRecoversPanics(t *testing.T) {
	r := NewRegistry()
	r.Register("E", echoBinding("E"))

	got := r.Call("E", "panic", nil)
	msg, ok := got.ErrorMessage()
	assert.True(t, ok)
	assert.Contains(t, msg, "kaboom")
}

func TestFunc_MethodsSorted(t *testing.T) {
	methods := echoBinding("E").Methods()
	assert.Equal(t, []Method{Sync("echo", Variadic), Sync("panic", Variadic)}, methods)

	custom := &Func{BindingName: "C", Descriptors: []Method{Async("go", 1)}}
	assert.Equal(t, []Method{{Name: "go", Arity: 1, Async: true}}, custom.Methods())
}
