package marshal

import (
	"fmt"

	"github.com/cryguy/raven/internal/binding"
	"github.com/cryguy/raven/internal/core"
)

// guestJS installs __raven_pack and __raven_unpack, the guest half of the
// wire codec. pack walks arrays by index and objects by own enumerable
// keys; integral numbers inside the int64 range become ints.
const guestJS = `
(function() {
	var MAX_DEPTH = 64;
	var INT_LIMIT = 9223372036854775808;

	function bytesOf(view) {
		var out = new Array(view.length);
		for (var i = 0; i < view.length; i++) out[i] = view[i];
		return out;
	}

	function pack(v, depth, seen) {
		if (v === null || v === undefined) return {t: 'n'};
		switch (typeof v) {
		case 'boolean':
			return {t: 'b', v: v};
		case 'number':
			if (v !== v) return {t: 'f', v: 'NaN'};
			if (v === Infinity) return {t: 'f', v: 'Infinity'};
			if (v === -Infinity) return {t: 'f', v: '-Infinity'};
			if (Number.isInteger(v) && Math.abs(v) < INT_LIMIT) return {t: 'i', v: String(v)};
			return {t: 'f', v: v};
		case 'string':
			return {t: 's', v: v};
		case 'object':
			break;
		default:
			try { return {t: 's', v: String(v)}; } catch (e) { return {t: 's', v: typeof v}; }
		}
		if (depth >= MAX_DEPTH) return {t: 's', v: '[MaxDepth]'};
		if (seen.indexOf(v) !== -1) return {t: 's', v: '[Circular]'};
		if (typeof ArrayBuffer !== 'undefined') {
			if (v instanceof ArrayBuffer) return {t: 'y', v: bytesOf(new Uint8Array(v))};
			if (ArrayBuffer.isView(v)) return {t: 'y', v: bytesOf(new Uint8Array(v.buffer, v.byteOffset, v.byteLength))};
		}
		if (v instanceof Error) return {t: 'e', v: String(v.message)};
		if (v instanceof Date) return {t: 's', v: isNaN(v.getTime()) ? 'Invalid Date' : v.toISOString()};
		seen.push(v);
		var out;
		if (Array.isArray(v)) {
			var items = new Array(v.length);
			for (var i = 0; i < v.length; i++) items[i] = packField(v, i, depth, seen);
			out = {t: 'a', v: items};
		} else {
			var fields = Object.create(null);
			var keys = Object.keys(v);
			for (var k = 0; k < keys.length; k++) fields[keys[k]] = packField(v, keys[k], depth, seen);
			out = {t: 'o', v: fields};
		}
		seen.pop();
		return out;
	}

	function packField(holder, key, depth, seen) {
		var item;
		try { item = holder[key]; } catch (e) { return {t: 's', v: String(e)}; }
		return pack(item, depth + 1, seen);
	}

	function unpack(w) {
		if (!w || typeof w !== 'object') return null;
		switch (w.t) {
		case 'n': return null;
		case 'b': return !!w.v;
		case 'i': return Number(w.v);
		case 'f': return typeof w.v === 'string' ? Number(w.v) : w.v;
		case 's': return w.v;
		case 'y': return new Uint8Array(w.v);
		case 'j':
			try { return JSON.parse(w.v); } catch (e) { return w.v; }
		case 'a':
			var arr = new Array(w.v.length);
			for (var i = 0; i < w.v.length; i++) arr[i] = unpack(w.v[i]);
			return arr;
		case 'o':
			var obj = {};
			var keys = Object.keys(w.v);
			for (var k = 0; k < keys.length; k++) {
				Object.defineProperty(obj, keys[k], {
					value: unpack(w.v[keys[k]]),
					enumerable: true, writable: true, configurable: true
				});
			}
			return obj;
		case 'e': return 'Error: ' + w.v;
		}
		return null;
	}

	globalThis.__raven_pack = function(v) {
		return JSON.stringify(pack(v, 0, []));
	};
	globalThis.__raven_unpack = function(text) {
		try { return unpack(JSON.parse(text)); } catch (e) { return String(text); }
	};
})();
`

// Setup installs the guest half of the codec into rt.
func Setup(rt core.JSRuntime) error {
	if err := rt.Eval(guestJS); err != nil {
		return fmt.Errorf("installing value codec: %w", err)
	}
	return nil
}

// FromJS evaluates expr in rt and converts the result to a Value. Only
// engine failures are reported as errors; the conversion itself is total.
func FromJS(rt core.JSRuntime, expr string) (binding.Value, error) {
	text, err := rt.EvalString("__raven_pack(" + expr + ")")
	if err != nil {
		return binding.Null(), fmt.Errorf("reading guest value: %w", err)
	}
	return Decode(text), nil
}

// ToJS stores v as the guest global name.
func ToJS(rt core.JSRuntime, name string, v binding.Value) error {
	if err := rt.SetGlobal(name, Encode(v)); err != nil {
		return fmt.Errorf("setting %s: %w", name, err)
	}
	js := fmt.Sprintf("globalThis[%s] = __raven_unpack(globalThis[%s]);",
		core.JsEscape(name), core.JsEscape(name))
	if err := rt.Eval(js); err != nil {
		return fmt.Errorf("decoding %s: %w", name, err)
	}
	return nil
}
