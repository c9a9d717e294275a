package kv

import (
	"encoding/json"
	"time"
	"unicode/utf8"

	"github.com/cryguy/raven/internal/binding"
	"github.com/cryguy/raven/internal/core"
	"go.uber.org/zap"
)

// Binding exposes a Store to guest code.
type Binding struct {
	name  string
	store Store
	now   func() time.Time
}

var _ binding.Binding = (*Binding)(nil)

// New returns a KV binding named name backed by store.
func New(name string, store Store) *Binding {
	return &Binding{name: name, store: store, now: time.Now}
}

// NewMemory returns a KV binding over a fresh MemoryStore.
func NewMemory(name string) *Binding {
	return New(name, NewMemoryStore())
}

func (b *Binding) Name() string { return b.name }

// Store returns the backing store.
func (b *Binding) Store() Store { return b.store }

func (b *Binding) Methods() []binding.Method {
	return []binding.Method{
		binding.Async("get", 1),
		binding.Async("getWithMetadata", 1),
		binding.Async("put", 2),
		binding.Async("delete", 1),
		binding.Async("list", 0),
	}
}

func (b *Binding) Call(method string, args []binding.Value) binding.Value {
	switch method {
	case "get":
		return b.get(args)
	case "getWithMetadata":
		return b.getWithMetadata(args)
	case "put":
		return b.put(args)
	case "delete":
		return b.delete(args)
	case "list":
		return b.list(args)
	}
	return binding.UnknownMethod(method)
}

func keyArg(method string, args []binding.Value) (string, binding.Value) {
	if k, ok := binding.Arg(args, 0).AsString(); ok {
		return k, binding.Null()
	}
	return "", binding.Errorf("%s requires a string key", method)
}

// valueType reads the optional type selector: "json" or the default "text".
func valueType(opt binding.Value) string {
	if s, ok := opt.AsString(); ok {
		return s
	}
	if t, ok := opt.Get("type"); ok {
		if s, ok := t.AsString(); ok {
			return s
		}
	}
	return "text"
}

func decodeStored(raw []byte, typ string) binding.Value {
	if typ == "json" {
		v, err := binding.ParseJSON(string(raw))
		if err != nil {
			return binding.Errorf("get: invalid JSON value: %v", err)
		}
		return v
	}
	if utf8.Valid(raw) {
		return binding.String(string(raw))
	}
	return binding.Bytes(raw)
}

func (b *Binding) get(args []binding.Value) binding.Value {
	key, errv := keyArg("get", args)
	if errv.IsError() {
		return errv
	}
	e, err := b.store.Get(key)
	if err != nil {
		return b.storeError("get", err)
	}
	if e == nil {
		return binding.Null()
	}
	return decodeStored(e.Value, valueType(binding.Arg(args, 1)))
}

func (b *Binding) getWithMetadata(args []binding.Value) binding.Value {
	key, errv := keyArg("getWithMetadata", args)
	if errv.IsError() {
		return errv
	}
	e, err := b.store.Get(key)
	if err != nil {
		return b.storeError("getWithMetadata", err)
	}
	if e == nil {
		return binding.Object(map[string]binding.Value{
			"value":    binding.Null(),
			"metadata": binding.Null(),
		})
	}
	metadata := binding.Null()
	if e.Metadata != nil {
		metadata = binding.JSON(*e.Metadata)
	}
	return binding.Object(map[string]binding.Value{
		"value":    decodeStored(e.Value, valueType(binding.Arg(args, 1))),
		"metadata": metadata,
	})
}

// encodeValue turns any storable Value into the bytes kept in the store.
func encodeValue(v binding.Value) ([]byte, bool) {
	switch v.Kind() {
	case binding.KindString:
		s, _ := v.AsString()
		return []byte(s), true
	case binding.KindBytes:
		raw, _ := v.AsBytes()
		return raw, true
	case binding.KindJSON:
		s, _ := v.AsJSON()
		return []byte(s), true
	case binding.KindInt, binding.KindFloat, binding.KindBool:
		return []byte(v.String()), true
	case binding.KindArray, binding.KindObject:
		data, err := json.Marshal(binding.ToNative(v))
		if err != nil {
			return nil, false
		}
		return data, true
	}
	return nil, false
}

func (b *Binding) put(args []binding.Value) binding.Value {
	key, errv := keyArg("put", args)
	if errv.IsError() {
		return errv
	}
	value, ok := encodeValue(binding.Arg(args, 1))
	if !ok {
		return binding.Error("put requires a value")
	}
	opts, errv := b.putOptions(binding.Arg(args, 2))
	if errv.IsError() {
		return errv
	}
	if err := b.store.Put(key, value, opts); err != nil {
		return b.storeError("put", err)
	}
	return binding.Null()
}

// putOptions accepts a bare TTL in seconds or an options object with
// expirationTtl (seconds from now), expiration (unix seconds) and metadata.
func (b *Binding) putOptions(opt binding.Value) (PutOptions, binding.Value) {
	var opts PutOptions
	if ttl, ok := opt.AsFloat(); ok {
		if ttl <= 0 {
			return opts, binding.Error("put: expirationTtl must be positive")
		}
		opts.ExpiresAt = b.now().Add(time.Duration(ttl * float64(time.Second)))
		return opts, binding.Null()
	}
	fields, ok := opt.AsObject()
	if !ok {
		return opts, binding.Null()
	}
	if v, ok := fields["expirationTtl"]; ok && !v.IsNull() {
		ttl, ok := v.AsFloat()
		if !ok || ttl <= 0 {
			return opts, binding.Error("put: expirationTtl must be positive")
		}
		opts.ExpiresAt = b.now().Add(time.Duration(ttl * float64(time.Second)))
	} else if v, ok := fields["expiration"]; ok && !v.IsNull() {
		at, ok := v.AsInt()
		if !ok {
			return opts, binding.Error("put: expiration must be a unix timestamp")
		}
		opts.ExpiresAt = time.Unix(at, 0)
	}
	if v, ok := fields["metadata"]; ok && !v.IsNull() {
		data, err := json.Marshal(binding.ToNative(v))
		if err != nil {
			return opts, binding.Errorf("put: metadata: %v", err)
		}
		m := string(data)
		opts.Metadata = &m
	}
	return opts, binding.Null()
}

func (b *Binding) delete(args []binding.Value) binding.Value {
	key, errv := keyArg("delete", args)
	if errv.IsError() {
		return errv
	}
	existed, err := b.store.Delete(key)
	if err != nil {
		return b.storeError("delete", err)
	}
	return binding.Bool(existed)
}

func (b *Binding) list(args []binding.Value) binding.Value {
	var opts ListOptions
	arg := binding.Arg(args, 0)
	if prefix, ok := arg.AsString(); ok {
		opts.Prefix = prefix
	} else if fields, ok := arg.AsObject(); ok {
		p := binding.Params(fields)
		opts.Prefix = p.OptString("prefix", "")
		opts.Limit = int(p.OptInt("limit", 0))
		opts.Cursor = p.OptString("cursor", "")
	}
	res, err := b.store.List(opts)
	if err != nil {
		return b.storeError("list", err)
	}
	keys := make([]binding.Value, len(res.Keys))
	for i, k := range res.Keys {
		keys[i] = binding.String(k)
	}
	out := map[string]binding.Value{
		"keys":          binding.Array(keys...),
		"list_complete": binding.Bool(res.ListComplete),
	}
	if res.Cursor != "" {
		out["cursor"] = binding.String(res.Cursor)
	}
	return binding.Object(out)
}

func (b *Binding) storeError(method string, err error) binding.Value {
	core.Logger().Warn("kv store error",
		zap.String("binding", b.name),
		zap.String("method", method),
		zap.Error(err))
	return binding.Errorf("%s: %v", method, err)
}
