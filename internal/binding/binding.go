// Package binding defines the boundary value type and the contract that
// every native capability exposed to guest scripts implements.
package binding

// Variadic is the arity sentinel for methods accepting any argument count.
const Variadic = -1

// Method describes one callable member of a Binding. Async marks the guest
// calling convention only; dispatch is always synchronous on the host.
type Method struct {
	Name  string `json:"name"`
	Arity int    `json:"arity"`
	Async bool   `json:"async"`
}

// Sync returns a descriptor for a synchronous method.
func Sync(name string, arity int) Method {
	return Method{Name: name, Arity: arity}
}

// Async returns a descriptor for a method guest code is expected to await.
func Async(name string, arity int) Method {
	return Method{Name: name, Arity: arity, Async: true}
}

// Binding is a native capability exposed to guest code under Name. Call
// must never panic for bad input; failures are returned as Error values.
// Implementations that hold mutable state synchronize it themselves.
type Binding interface {
	Name() string
	Methods() []Method
	Call(method string, args []Value) Value
}

// UnknownMethod is the Error value every binding returns for a method name it
// does not implement.
func UnknownMethod(method string) Value {
	return Errorf("Unknown method: %s", method)
}

// Func adapts a plain Go function table into a Binding. It is handy for
// embedders registering small ad-hoc capabilities.
type Func struct {
	BindingName string
	Table       map[string]func(args []Value) Value
	Descriptors []Method
}

var _ Binding = (*Func)(nil)

func (f *Func) Name() string { return f.BindingName }

func (f *Func) Methods() []Method {
	if f.Descriptors != nil {
		return f.Descriptors
	}
	out := make([]Method, 0, len(f.Table))
	for _, name := range sortedKeys(f.Table) {
		out = append(out, Sync(name, Variadic))
	}
	return out
}

func (f *Func) Call(method string, args []Value) Value {
	fn, ok := f.Table[method]
	if !ok {
		return UnknownMethod(method)
	}
	return fn(args)
}
