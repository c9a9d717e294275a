package script

import (
	"encoding/json"
	"fmt"

	"github.com/cryguy/raven/internal/binding"
	"github.com/cryguy/raven/internal/core"
	"github.com/cryguy/raven/internal/marshal"
)

// Globals the host reserves in every runtime.
const (
	EntryGlobal  = "__raven_entry"
	stagedGlobal = "__raven_staged"
	sourceGlobal = "__raven_src"
)

// bindJS installs __raven_bind and __raven_unbind. A bound capability is a
// plain object whose methods pack their arguments, dispatch through
// __raven_call and unpack the result. The descriptor list is kept on a
// non-enumerable __methods property.
const bindJS = `
(function() {
	globalThis.__raven_bind = function(name, methodsJSON) {
		var methods = JSON.parse(methodsJSON);
		var obj = {};
		methods.forEach(function(m) {
			obj[m.name] = function() {
				var args = Array.prototype.slice.call(arguments);
				return __raven_unpack(__raven_call(name, m.name, __raven_pack(args)));
			};
		});
		Object.defineProperty(obj, '__methods', {value: methods, enumerable: false});
		Object.defineProperty(globalThis, name, {
			value: obj, writable: true, configurable: true, enumerable: false
		});
	};
	globalThis.__raven_unbind = function(name) {
		delete globalThis[name];
	};
})();
`

// bind exposes b to guest code under name.
func bind(rt core.JSRuntime, name string, b binding.Binding) error {
	methods, err := json.Marshal(b.Methods())
	if err != nil {
		return fmt.Errorf("encoding methods of %s: %w", name, err)
	}
	js := fmt.Sprintf("__raven_bind(%s, %s);", core.JsEscape(name), core.JsEscape(string(methods)))
	if err := rt.Eval(js); err != nil {
		return fmt.Errorf("binding %s: %w", name, err)
	}
	return nil
}

func unbind(rt core.JSRuntime, name string) error {
	return rt.Eval(fmt.Sprintf("__raven_unbind(%s);", core.JsEscape(name)))
}

// injectAll binds every entry of reg.
func injectAll(rt core.JSRuntime, reg *binding.Registry) error {
	if reg == nil {
		return nil
	}
	for _, name := range reg.Names() {
		b, _ := reg.Get(name)
		if err := bind(rt, name, b); err != nil {
			return err
		}
	}
	return nil
}

// evalStaged evaluates src at global scope and stores its completion value
// in the staging global.
func evalStaged(rt core.JSRuntime, src string) error {
	if err := rt.SetGlobal(sourceGlobal, src); err != nil {
		return fmt.Errorf("staging source: %w", err)
	}
	err := rt.Eval("globalThis." + stagedGlobal + " = (0, eval)(globalThis." + sourceGlobal + ");")
	_ = rt.Eval("delete globalThis." + sourceGlobal + ";")
	if err != nil {
		_ = rt.Eval("delete globalThis." + stagedGlobal + ";")
		return err
	}
	return nil
}

// commitStaged moves the staged completion value to EntryGlobal.
func commitStaged(rt core.JSRuntime) error {
	return rt.Eval("globalThis." + EntryGlobal + " = globalThis." + stagedGlobal +
		"; delete globalThis." + stagedGlobal + ";")
}

// readGlobal converts a guest global into a Value.
func readGlobal(rt core.JSRuntime, name string) (binding.Value, error) {
	return marshal.FromJS(rt, "globalThis["+core.JsEscape(name)+"]")
}
