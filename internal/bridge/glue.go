package bridge

// glueJS defines the guest-side Request, Response and Headers shapes plus
// the helpers the bridge drives: request construction, response shaping and
// the waitUntil queue.
const glueJS = `
(function() {
	function RavenHeaders(init) {
		this._map = Object.create(null);
		if (!init) return;
		if (init instanceof RavenHeaders) {
			var src = init._map;
			for (var key in src) this._map[key] = src[key];
		} else if (Array.isArray(init)) {
			for (var i = 0; i < init.length; i++) this.set(init[i][0], init[i][1]);
		} else if (typeof init === 'object') {
			var keys = Object.keys(init);
			for (var k = 0; k < keys.length; k++) this.set(keys[k], init[keys[k]]);
		}
	}
	RavenHeaders.prototype.get = function(name) {
		var v = this._map[String(name).toLowerCase()];
		return v === undefined ? null : v;
	};
	RavenHeaders.prototype.set = function(name, value) {
		this._map[String(name).toLowerCase()] = String(value);
	};
	RavenHeaders.prototype.append = function(name, value) {
		var key = String(name).toLowerCase();
		this._map[key] = key in this._map ? this._map[key] + ', ' + String(value) : String(value);
	};
	RavenHeaders.prototype.has = function(name) {
		return String(name).toLowerCase() in this._map;
	};
	RavenHeaders.prototype['delete'] = function(name) {
		delete this._map[String(name).toLowerCase()];
	};
	RavenHeaders.prototype.keys = function() {
		return Object.keys(this._map).sort();
	};
	RavenHeaders.prototype.entries = function() {
		var self = this;
		return this.keys().map(function(k) { return [k, self._map[k]]; });
	};
	RavenHeaders.prototype.forEach = function(fn, thisArg) {
		var entries = this.entries();
		for (var i = 0; i < entries.length; i++) fn.call(thisArg, entries[i][1], entries[i][0], this);
	};

	function bodyText(body) {
		if (body === null || body === undefined) return '';
		if (typeof body === 'string') return body;
		if (body instanceof ArrayBuffer || ArrayBuffer.isView(body)) {
			var view = body instanceof ArrayBuffer ? new Uint8Array(body)
				: new Uint8Array(body.buffer, body.byteOffset, body.byteLength);
			var out = '';
			for (var i = 0; i < view.length; i++) out += String.fromCharCode(view[i]);
			try { return decodeURIComponent(escape(out)); } catch (e) { return out; }
		}
		return String(body);
	}

	function Response(body, init) {
		init = init || {};
		this._body = body === undefined ? null : body;
		this.status = init.status === undefined ? 200 : Number(init.status);
		this.statusText = init.statusText === undefined ? '' : String(init.statusText);
		this.headers = new RavenHeaders(init.headers);
		this.ok = this.status >= 200 && this.status < 300;
	}
	Object.defineProperty(Response.prototype, 'body', {
		get: function() { return this._body; }
	});
	Response.prototype.text = function() {
		return Promise.resolve(bodyText(this._body));
	};
	Response.prototype.json = function() {
		var self = this;
		return Promise.resolve().then(function() { return JSON.parse(bodyText(self._body)); });
	};
	Response.json = function(data, init) {
		init = init || {};
		var headers = new RavenHeaders(init.headers);
		if (!headers.has('content-type')) headers.set('content-type', 'application/json');
		return new Response(JSON.stringify(data), {
			status: init.status, statusText: init.statusText, headers: headers
		});
	};

	globalThis.Headers = RavenHeaders;
	globalThis.Response = Response;

	globalThis.__raven_make_request = function(init) {
		var req = {
			url: init.url,
			method: init.method,
			headers: new RavenHeaders(init.headers),
			body: init.body === undefined ? null : init.body
		};
		req.text = function() { return Promise.resolve(bodyText(req.body)); };
		req.json = function() {
			return Promise.resolve().then(function() { return JSON.parse(bodyText(req.body)); });
		};
		return req;
	};

	globalThis.__raven_make_ctx = function() {
		globalThis.__raven_wait_until = [];
		return {
			waitUntil: function(p) { globalThis.__raven_wait_until.push(Promise.resolve(p)); },
			passThroughOnException: function() {}
		};
	};

	globalThis.__raven_settle_wait_until = function() {
		var pending = globalThis.__raven_wait_until || [];
		globalThis.__raven_wait_until = [];
		return Promise.allSettled(pending);
	};

	// __raven_shape splits a response-like value into status, headers and a
	// body left in globalThis.__raven_body for the value codec.
	globalThis.__raven_shape = function(r) {
		if (r === null || r === undefined) return JSON.stringify({error: 'fetch returned ' + r});
		if (r instanceof Error) return JSON.stringify({error: String(r)});
		if (typeof r !== 'object') return JSON.stringify({error: 'fetch returned a ' + typeof r + ', not a response object'});
		var headers = {};
		var h = r.headers;
		if (h) {
			var pairs;
			if (h instanceof RavenHeaders) pairs = h.entries();
			else if (Array.isArray(h)) pairs = h;
			else pairs = Object.keys(h).map(function(k) { return [k, h[k]]; });
			for (var i = 0; i < pairs.length; i++) {
				var name = String(pairs[i][0]);
				if (name.charAt(0) === '_') continue;
				headers[name.toLowerCase()] = String(pairs[i][1]);
			}
		}
		var body = '_body' in r ? r._body : r.body;
		if (body === null || body === undefined) body = '';
		else if (typeof body === 'object' && !(body instanceof ArrayBuffer) && !ArrayBuffer.isView(body)) {
			body = JSON.stringify(body);
		}
		globalThis.__raven_body = body;
		var status = r.status === undefined || r.status === null ? 200 : Math.trunc(Number(r.status));
		if (!isFinite(status) || status < 100 || status > 599) {
			return JSON.stringify({error: 'invalid response status ' + String(r.status) + ': must be between 100 and 599'});
		}
		return JSON.stringify({status: status, headers: headers});
	};
})();
`
