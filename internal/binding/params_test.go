package binding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireParams(t *testing.T) {
	_, errv := RequireParams("addUser", nil)
	msg, _ := errv.ErrorMessage()
	assert.Equal(t, "addUser requires params object", msg)

	_, errv = RequireParams("addUser", []Value{Null()})
	msg, _ = errv.ErrorMessage()
	assert.Equal(t, "addUser requires params object", msg)

	_, errv = RequireParams("addUser", []Value{String("x")})
	msg, _ = errv.ErrorMessage()
	assert.Equal(t, "addUser params must be an object", msg)

	p, errv := RequireParams("addUser", []Value{Object(map[string]Value{"username": String("u")})})
	assert.True(t, errv.IsNull())
	assert.True(t, p.Has("username"))
}

func TestOptionalParams(t *testing.T) {
	p, errv := OptionalParams("listUsers", nil)
	assert.True(t, errv.IsNull())
	assert.NotNil(t, p)

	_, errv = OptionalParams("listUsers", []Value{Int(1)})
	assert.True(t, errv.IsError())
}

func TestParams_Fields(t *testing.T) {
	p := Params{
		"name":   String("n"),
		"count":  Float(3),
		"flag":   Bool(true),
		"one":    String("solo"),
		"many":   Array(String("a"), Int(1), String("b")),
		"absent": Null(),
	}

	s, errv := p.String("name")
	assert.Equal(t, "n", s)
	assert.True(t, errv.IsNull())

	_, errv = p.String("count")
	msg, _ := errv.ErrorMessage()
	assert.Equal(t, "count is required", msg)

	assert.False(t, p.Has("absent"))
	assert.False(t, p.Has("nothing"))
	assert.Equal(t, "def", p.OptString("nothing", "def"))
	assert.Equal(t, int64(3), p.OptInt("count", 0))
	assert.Equal(t, int64(9), p.OptInt("name", 9))
	assert.True(t, p.OptBool("flag", false))
	assert.Equal(t, []string{"solo"}, p.OptStrings("one", nil))
	assert.Equal(t, []string{"a", "b"}, p.OptStrings("many", nil))
	assert.Equal(t, []string{"ALL"}, p.OptStrings("missing", []string{"ALL"}))
}

func TestArg(t *testing.T) {
	args := []Value{Int(1)}
	assert.True(t, Equal(Int(1), Arg(args, 0)))
	assert.True(t, Arg(args, 5).IsNull())
}
