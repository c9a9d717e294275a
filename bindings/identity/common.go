package identity

import (
	"github.com/cryguy/raven/internal/binding"
	"github.com/cryguy/raven/internal/core"
	"go.uber.org/zap"
)

// handler is a method body that receives already validated params.
type handler func(p binding.Params) binding.Value

// method pairs a descriptor with its body. Optional marks methods whose
// params object may be omitted.
type method struct {
	desc     binding.Method
	optional bool
	fn       handler
}

// manager is the dispatch core shared by the four identity bindings.
type manager struct {
	name    string
	dir     *Directory
	methods []method
}

func (m *manager) Name() string { return m.name }

// Directory returns the shared store the manager writes to.
func (m *manager) Directory() *Directory { return m.dir }

func (m *manager) Methods() []binding.Method {
	out := make([]binding.Method, len(m.methods))
	for i, mt := range m.methods {
		out[i] = mt.desc
	}
	return out
}

func (m *manager) Call(name string, args []binding.Value) binding.Value {
	for _, mt := range m.methods {
		if mt.desc.Name != name {
			continue
		}
		var (
			p    binding.Params
			errv binding.Value
		)
		if mt.optional {
			p, errv = binding.OptionalParams(name, args)
		} else {
			p, errv = binding.RequireParams(name, args)
		}
		if errv.IsError() {
			return errv
		}
		core.Logger().Debug("identity call",
			zap.String("binding", m.name),
			zap.String("method", name))
		return mt.fn(p)
	}
	return binding.UnknownMethod(name)
}

// ok builds the {success: true, message, ...} result object.
func ok(message string, fields map[string]binding.Value) binding.Value {
	out := map[string]binding.Value{
		"success": binding.Bool(true),
		"message": binding.String(message),
	}
	for k, v := range fields {
		out[k] = v
	}
	return binding.Object(out)
}

func failed(err error) binding.Value {
	return binding.Error(err.Error())
}

func stringList(list []string) binding.Value {
	items := make([]binding.Value, len(list))
	for i, s := range list {
		items[i] = binding.String(s)
	}
	return binding.Array(items...)
}
