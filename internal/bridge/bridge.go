// Package bridge turns host HTTP requests into calls of a loaded worker
// script's fetch handler and shapes the results into host responses.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/cryguy/raven/internal/binding"
	"github.com/cryguy/raven/internal/core"
	"github.com/cryguy/raven/internal/marshal"
	"github.com/cryguy/raven/internal/script"
	"go.uber.org/zap"
)

// ErrNoFetchHandler is returned when the loaded script's default export has
// no callable fetch.
var ErrNoFetchHandler = errors.New("worker script does not export a fetch handler")

const (
	requestGlobal  = "__raven_request"
	envGlobal      = "__raven_env"
	ctxGlobal      = "__raven_ctx"
	responseGlobal = "__raven_response"
	bodyGlobal     = "__raven_body"
	waitGlobal     = "__raven_wait_all"
)

// Bridge serves requests through a Host holding a worker script.
type Bridge struct {
	host *script.Host
	addr string
	vars map[string]string
}

// New installs the request/response glue into host. addr is the
// host:port used to build request URLs when a request has no Host header.
func New(host *script.Host, addr string) (*Bridge, error) {
	b := &Bridge{
		host: host,
		addr: addr,
		vars: host.Catalog().Options().Vars,
	}
	if err := host.Extend(func(rt core.JSRuntime) error { return rt.Eval(glueJS) }); err != nil {
		return nil, fmt.Errorf("installing request glue: %w", err)
	}
	return b, nil
}

// Handle runs req through the worker's fetch handler. Every failure is
// turned into a 500 response carrying the error text.
func (b *Bridge) Handle(req *core.HTTPRequest) (resp *core.HTTPResponse) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			resp = ErrorResponse(fmt.Errorf("worker panic: %v", r))
		}
		core.Logger().Info("request",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Int("status", resp.Status),
			zap.Duration("duration", time.Since(start)))
	}()

	b.host.Logs().Drain()
	err := b.host.Exec(func(rt core.JSRuntime) error {
		r, err := b.serve(rt, req)
		resp = r
		return err
	})
	if err != nil {
		return ErrorResponse(err)
	}
	return resp
}

func (b *Bridge) serve(rt core.JSRuntime, req *core.HTTPRequest) (*core.HTTPResponse, error) {
	defer func() {
		_ = rt.Eval("delete globalThis." + requestGlobal + "; delete globalThis." + envGlobal +
			"; delete globalThis." + ctxGlobal + "; delete globalThis." + responseGlobal +
			"; delete globalThis." + bodyGlobal + ";")
	}()

	hasFetch, err := rt.EvalBool("!!globalThis." + script.EntryGlobal +
		" && typeof globalThis." + script.EntryGlobal + ".fetch === 'function'")
	if err != nil {
		return nil, fmt.Errorf("inspecting entry: %w", err)
	}
	if !hasFetch {
		return nil, ErrNoFetchHandler
	}

	if err := b.buildRequest(rt, req); err != nil {
		return nil, err
	}
	if err := b.buildEnv(rt); err != nil {
		return nil, err
	}
	if err := rt.Eval("globalThis." + ctxGlobal + " = __raven_make_ctx();"); err != nil {
		return nil, fmt.Errorf("building ctx: %w", err)
	}

	invoke := fmt.Sprintf("globalThis.%s = globalThis.%s.fetch(globalThis.%s, globalThis.%s, globalThis.%s);",
		responseGlobal, script.EntryGlobal, requestGlobal, envGlobal, ctxGlobal)
	if err := rt.Eval(invoke); err != nil {
		return nil, fmt.Errorf("fetch threw: %w", err)
	}
	if err := b.host.Await(responseGlobal); err != nil {
		return nil, fmt.Errorf("fetch failed: %w", err)
	}

	resp, err := shapeResponse(rt)
	if err != nil {
		return nil, err
	}
	b.drainWaitUntil(rt)
	return resp, nil
}

// buildRequest stores the guest request object in requestGlobal.
func (b *Bridge) buildRequest(rt core.JSRuntime, req *core.HTTPRequest) error {
	headers := make(map[string]binding.Value, len(req.Headers))
	for k, v := range req.Headers {
		headers[k] = binding.String(v)
	}
	body := binding.Null()
	if len(req.Body) > 0 {
		if utf8.Valid(req.Body) {
			body = binding.String(string(req.Body))
		} else {
			body = binding.Bytes(req.Body)
		}
	}
	host := req.Header("host")
	if host == "" {
		host = b.addr
	}
	init := binding.Object(map[string]binding.Value{
		"url":     binding.String("http://" + host + req.Path),
		"method":  binding.String(req.Method),
		"headers": binding.Object(headers),
		"body":    body,
	})
	if err := marshal.ToJS(rt, requestGlobal, init); err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if err := rt.Eval("globalThis." + requestGlobal + " = __raven_make_request(globalThis." + requestGlobal + ");"); err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	return nil
}

// buildEnv stores the env object: the configured vars, nothing else.
func (b *Bridge) buildEnv(rt core.JSRuntime) error {
	vars := make(map[string]binding.Value, len(b.vars))
	for k, v := range b.vars {
		vars[k] = binding.String(v)
	}
	if err := marshal.ToJS(rt, envGlobal, binding.Object(vars)); err != nil {
		return fmt.Errorf("building env: %w", err)
	}
	return nil
}

func shapeResponse(rt core.JSRuntime) (*core.HTTPResponse, error) {
	shaped, err := rt.EvalString("__raven_shape(globalThis." + responseGlobal + ")")
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	var meta struct {
		Status  int               `json:"status"`
		Headers map[string]string `json:"headers"`
		Error   string            `json:"error"`
	}
	if err := json.Unmarshal([]byte(shaped), &meta); err != nil {
		return nil, fmt.Errorf("parsing response shape: %w", err)
	}
	if meta.Error != "" {
		return nil, errors.New(meta.Error)
	}

	bodyValue, err := marshal.FromJS(rt, "globalThis."+bodyGlobal)
	if err != nil {
		return nil, err
	}
	var body []byte
	switch bodyValue.Kind() {
	case binding.KindBytes:
		body, _ = bodyValue.AsBytes()
	case binding.KindString:
		s, _ := bodyValue.AsString()
		body = []byte(s)
	default:
		body = []byte(bodyValue.String())
	}

	status := meta.Status
	if status == 0 {
		status = 200
	}
	if status < 100 || status > 599 {
		return nil, fmt.Errorf("invalid response status %d: must be between 100 and 599", status)
	}
	headers := meta.Headers
	if headers == nil {
		headers = make(map[string]string)
	}
	return Finalize(&core.HTTPResponse{Status: status, Headers: headers, Body: body}), nil
}

// drainWaitUntil settles promises passed to ctx.waitUntil. Failures are
// logged and never affect the response.
func (b *Bridge) drainWaitUntil(rt core.JSRuntime) {
	if err := rt.Eval("globalThis." + waitGlobal + " = __raven_settle_wait_until();"); err != nil {
		core.Logger().Warn("waitUntil", zap.Error(err))
		return
	}
	if err := b.host.Await(waitGlobal); err != nil {
		core.Logger().Warn("waitUntil", zap.Error(err))
	}
	_ = rt.Eval("delete globalThis." + waitGlobal + ";")
}

// Finalize fills the status text and default content type and recomputes
// content-length from the body.
func Finalize(resp *core.HTTPResponse) *core.HTTPResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.StatusText = core.StatusText(resp.Status)
	if _, ok := resp.Headers["content-type"]; !ok && len(resp.Body) > 0 {
		resp.Headers["content-type"] = "text/plain; charset=utf-8"
	}
	resp.Headers["content-length"] = strconv.Itoa(len(resp.Body))
	return resp
}

// ErrorResponse is the 500 response for err.
func ErrorResponse(err error) *core.HTTPResponse {
	return Finalize(&core.HTTPResponse{
		Status:  500,
		Headers: map[string]string{"content-type": "text/plain; charset=utf-8"},
		Body:    []byte(err.Error()),
	})
}
