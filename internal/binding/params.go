package binding

// Params is the named-parameter object most binding methods take as their
// first argument.
type Params map[string]Value

// RequireParams extracts the parameter object from args. When it is missing
// or not an object, the returned Value is the Error the method should hand
// back to guest code; otherwise it is Null.
func RequireParams(method string, args []Value) (Params, Value) {
	if len(args) == 0 || args[0].IsNull() {
		return nil, Errorf("%s requires params object", method)
	}
	obj, ok := args[0].AsObject()
	if !ok {
		return nil, Errorf("%s params must be an object", method)
	}
	return Params(obj), Null()
}

// OptionalParams is RequireParams for methods whose params may be omitted.
func OptionalParams(method string, args []Value) (Params, Value) {
	if len(args) == 0 || args[0].IsNull() {
		return Params{}, Null()
	}
	return RequireParams(method, args)
}

// Has reports whether key is present and not null.
func (p Params) Has(key string) bool {
	v, ok := p[key]
	return ok && !v.IsNull()
}

// String returns the mandatory string field key. The second result is the
// "<key> is required" Error when it is absent or not a string.
func (p Params) String(key string) (string, Value) {
	if s, ok := p[key].AsString(); ok {
		return s, Null()
	}
	return "", Errorf("%s is required", key)
}

// OptString returns field key as a string, or def.
func (p Params) OptString(key, def string) string {
	if s, ok := p[key].AsString(); ok {
		return s
	}
	return def
}

// OptInt returns field key as an integer, or def.
func (p Params) OptInt(key string, def int64) int64 {
	if i, ok := p[key].AsInt(); ok {
		return i
	}
	return def
}

// OptBool returns field key as a boolean, or def.
func (p Params) OptBool(key string, def bool) bool {
	if b, ok := p[key].AsBool(); ok {
		return b
	}
	return def
}

// OptStrings returns field key as a string list. A bare string is treated as
// a one-element list; non-string items are skipped.
func (p Params) OptStrings(key string, def []string) []string {
	v, ok := p[key]
	if !ok {
		return def
	}
	if s, ok := v.AsString(); ok {
		return []string{s}
	}
	items, ok := v.AsArray()
	if !ok {
		return def
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.AsString(); ok {
			out = append(out, s)
		}
	}
	return out
}

// Arg returns args[i], or Null when out of range.
func Arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return Null()
}
