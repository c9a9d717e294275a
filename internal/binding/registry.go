package binding

import (
	"fmt"
	"sort"

	"github.com/cryguy/raven/internal/core"
	"go.uber.org/zap"
)

// Registry maps binding names to live Binding instances. It is not safe for
// concurrent mutation; a host drives it from its single script goroutine.
type Registry struct {
	bindings map[string]Binding
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]Binding)}
}

// Register stores b under name, replacing any binding already registered
// under that name. The last registration wins and no error is reported.
func (r *Registry) Register(name string, b Binding) {
	if _, exists := r.bindings[name]; exists {
		core.Logger().Debug("replacing binding", zap.String("binding", name))
	}
	r.bindings[name] = b
}

// Get returns the binding registered under name.
func (r *Registry) Get(name string) (Binding, bool) {
	b, ok := r.bindings[name]
	return b, ok
}

// Remove unregisters name and returns the binding that was stored there.
func (r *Registry) Remove(name string) (Binding, bool) {
	b, ok := r.bindings[name]
	if ok {
		delete(r.bindings, name)
	}
	return b, ok
}

// Contains reports whether name is registered.
func (r *Registry) Contains(name string) bool {
	_, ok := r.bindings[name]
	return ok
}

// Names lists the registered names in sorted order.
func (r *Registry) Names() []string {
	return sortedKeys(r.bindings)
}

func (r *Registry) Len() int      { return len(r.bindings) }
func (r *Registry) IsEmpty() bool { return len(r.bindings) == 0 }

// Clone returns a registry sharing the same binding instances under a new
// name table.
func (r *Registry) Clone() *Registry {
	out := &Registry{bindings: make(map[string]Binding, len(r.bindings))}
	for k, b := range r.bindings {
		out.bindings[k] = b
	}
	return out
}

// Call dispatches method on the binding registered under name. A missing
// binding, or a binding that panics, yields an Error value.
func (r *Registry) Call(name, method string, args []Value) (out Value) {
	b, ok := r.bindings[name]
	if !ok {
		return Errorf("Binding '%s' not found", name)
	}
	defer func() {
		if p := recover(); p != nil {
			core.Logger().Error("binding panic",
				zap.String("binding", name),
				zap.String("method", method),
				zap.Any("panic", p))
			out = Error(fmt.Sprintf("%s.%s panicked: %v", name, method, p))
		}
	}()
	return b.Call(method, args)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
