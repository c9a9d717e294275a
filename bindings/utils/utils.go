// Package utils implements the UTILS capability: pure helper functions for
// strings, hashing, encoding, numbers, time and compression.
package utils

import (
	"crypto/md5"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"hash"
	"math/big"
	"time"
	"unicode/utf8"

	"github.com/cryguy/raven/internal/binding"
	"github.com/google/uuid"
	strftime "github.com/ncruces/go-strftime"
)

// DefaultDateFormat is the strftime layout formatDate uses when none is given.
const DefaultDateFormat = "%Y-%m-%d %H:%M:%S"

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// maxRandomLength caps randomString output.
const maxRandomLength = 4096

// Binding is the UTILS capability. It holds no state.
type Binding struct {
	name string
	now  func() time.Time
}

var _ binding.Binding = (*Binding)(nil)

// New returns a UTILS binding exposed under name.
func New(name string) *Binding {
	return &Binding{name: name, now: time.Now}
}

func (b *Binding) Name() string { return b.name }

func (b *Binding) Methods() []binding.Method {
	return []binding.Method{
		binding.Sync("reverse", 1),
		binding.Sync("hash", 1),
		binding.Sync("sum", 1),
		binding.Sync("average", 1),
		binding.Sync("prettyJson", 1),
		binding.Sync("timestamp", 0),
		binding.Sync("formatDate", binding.Variadic),
		binding.Sync("base64Encode", 1),
		binding.Sync("base64Decode", 1),
		binding.Sync("randomString", binding.Variadic),
		binding.Sync("uuid", 0),
		binding.Sync("compress", 2),
		binding.Sync("decompress", 2),
	}
}

func (b *Binding) Call(method string, args []binding.Value) binding.Value {
	switch method {
	case "reverse":
		return reverse(args)
	case "hash":
		return hashOf(args)
	case "sum":
		return sum(args)
	case "average":
		return average(args)
	case "prettyJson":
		return prettyJSON(args)
	case "timestamp":
		return binding.Int(b.now().UnixMilli())
	case "formatDate":
		return formatDate(args)
	case "base64Encode":
		return base64Encode(args)
	case "base64Decode":
		return base64Decode(args)
	case "randomString":
		return randomString(args)
	case "uuid":
		return binding.String(uuid.NewString())
	case "compress":
		return compress(args)
	case "decompress":
		return decompress(args)
	}
	return binding.UnknownMethod(method)
}

// payload reads a String or Bytes argument as raw bytes.
func payload(v binding.Value) ([]byte, bool) {
	if s, ok := v.AsString(); ok {
		return []byte(s), true
	}
	if raw, ok := v.AsBytes(); ok {
		return raw, true
	}
	return nil, false
}

// textOrBytes returns raw as a String when it is valid UTF-8.
func textOrBytes(raw []byte) binding.Value {
	if utf8.Valid(raw) {
		return binding.String(string(raw))
	}
	return binding.Bytes(raw)
}

func reverse(args []binding.Value) binding.Value {
	s, ok := binding.Arg(args, 0).AsString()
	if !ok {
		return binding.Error("reverse requires a string argument")
	}
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return binding.String(string(runes))
}

var hashes = map[string]func() hash.Hash{
	"md5":    md5.New,
	"sha1":   sha1.New,
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
}

func hashOf(args []binding.Value) binding.Value {
	data, ok := payload(binding.Arg(args, 0))
	if !ok {
		return binding.Error("hash requires string or bytes")
	}
	algo := "sha256"
	if s, ok := binding.Arg(args, 1).AsString(); ok {
		algo = s
	}
	newHash, ok := hashes[algo]
	if !ok {
		return binding.Errorf("hash: unsupported algorithm %q", algo)
	}
	h := newHash()
	h.Write(data)
	return binding.String(hex.EncodeToString(h.Sum(nil)))
}

// numbers sums the numeric items of an array and counts them. Non-numeric
// items are skipped.
func numbers(items []binding.Value) (total float64, count int) {
	for _, item := range items {
		if f, ok := item.AsFloat(); ok {
			total += f
			count++
		}
	}
	return total, count
}

func sum(args []binding.Value) binding.Value {
	items, ok := binding.Arg(args, 0).AsArray()
	if !ok {
		return binding.Error("sum requires an array argument")
	}
	total, _ := numbers(items)
	return binding.Float(total)
}

func average(args []binding.Value) binding.Value {
	items, ok := binding.Arg(args, 0).AsArray()
	if !ok {
		return binding.Error("average requires an array argument")
	}
	total, count := numbers(items)
	if count == 0 {
		return binding.Float(0)
	}
	return binding.Float(total / float64(count))
}

func prettyJSON(args []binding.Value) binding.Value {
	arg := binding.Arg(args, 0)
	var tree any
	switch arg.Kind() {
	case binding.KindString, binding.KindJSON:
		text := arg.String()
		if err := json.Unmarshal([]byte(text), &tree); err != nil {
			return binding.Errorf("Invalid JSON: %v", err)
		}
	case binding.KindObject, binding.KindArray:
		tree = binding.ToNative(arg)
	default:
		return binding.Error("prettyJson requires a string or object")
	}
	out, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		return binding.Errorf("Failed to format JSON: %v", err)
	}
	return binding.String(string(out))
}

func formatDate(args []binding.Value) binding.Value {
	ms, ok := binding.Arg(args, 0).AsFloat()
	if !ok {
		return binding.Error("formatDate requires a timestamp")
	}
	layout := DefaultDateFormat
	if s, ok := binding.Arg(args, 1).AsString(); ok {
		layout = s
	}
	t := time.UnixMilli(int64(ms)).UTC()
	return binding.String(strftime.Format(layout, t))
}

func base64Encode(args []binding.Value) binding.Value {
	data, ok := payload(binding.Arg(args, 0))
	if !ok {
		return binding.Error("base64Encode requires string or bytes")
	}
	return binding.String(base64.StdEncoding.EncodeToString(data))
}

func base64Decode(args []binding.Value) binding.Value {
	s, ok := binding.Arg(args, 0).AsString()
	if !ok {
		return binding.Error("base64Decode requires a string")
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return binding.Errorf("Failed to decode base64: %v", err)
	}
	return textOrBytes(raw)
}

func randomString(args []binding.Value) binding.Value {
	n := int64(16)
	if v, ok := binding.Arg(args, 0).AsFloat(); ok {
		n = int64(v)
	}
	if n < 0 {
		n = 0
	}
	if n > maxRandomLength {
		n = maxRandomLength
	}
	out := make([]byte, n)
	limit := big.NewInt(int64(len(alphanumeric)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return binding.Errorf("randomString: %v", err)
		}
		out[i] = alphanumeric[idx.Int64()]
	}
	return binding.String(string(out))
}
