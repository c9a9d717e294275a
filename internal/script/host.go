// Package script implements the script host: one guest runtime, the binding
// registry active for the loaded script, and the load/run lifecycle.
package script

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cryguy/raven/internal/binding"
	"github.com/cryguy/raven/internal/core"
	"github.com/cryguy/raven/internal/eventloop"
	"github.com/cryguy/raven/internal/imports"
	"github.com/cryguy/raven/internal/marshal"
	"go.uber.org/zap"
)

// LoadedScript describes the script currently installed in a Host.
type LoadedScript struct {
	Source   string           // cleaned and wrapped source, as evaluated
	Imports  []imports.Import // resolved imports, in declaration order
	Bindings []string         // globals injected for the script, sorted
	Wrapper  string
	module   bool
}

// Host owns one guest runtime. It is not safe for concurrent use: every
// method must be called from a single goroutine at a time.
type Host struct {
	factory core.RuntimeFactory
	cfg     core.HostConfig
	catalog *imports.Catalog

	rt   core.JSRuntime
	el   *eventloop.EventLoop
	logs *core.LogBuffer

	// base holds bindings registered by the embedder; every load starts
	// from a copy of it.
	base *binding.Registry
	// active is the registry native callbacks dispatch through.
	active *binding.Registry

	loaded     *LoadedScript
	resolution *imports.Resolution
	extensions []func(rt core.JSRuntime) error

	broken atomic.Bool
}

// New creates a Host with a fresh runtime from factory. A nil catalog gets
// the default one.
func New(factory core.RuntimeFactory, cfg core.HostConfig, catalog *imports.Catalog) (*Host, error) {
	if catalog == nil {
		catalog = imports.NewCatalog(imports.Options{})
	}
	cfg = cfg.WithDefaults()
	h := &Host{
		factory: factory,
		cfg:     cfg,
		catalog: catalog,
		el:      eventloop.New(),
		logs:    core.NewLogBuffer(cfg.MaxLogEntries),
		base:    binding.NewRegistry(),
	}
	h.active = h.base
	if err := h.boot(); err != nil {
		return nil, err
	}
	return h, nil
}

// boot creates the runtime and installs the host glue.
func (h *Host) boot() error {
	rt, err := h.factory(h.cfg)
	if err != nil {
		return fmt.Errorf("creating runtime: %w", err)
	}
	setups := []struct {
		name string
		fn   func() error
	}{
		{"codec", func() error { return marshal.Setup(rt) }},
		{"console", func() error { return setupConsole(rt, h.logs) }},
		{"timers", func() error { return eventloop.Setup(rt, h.el) }},
		{"dispatch", func() error { return rt.RegisterFunc("__raven_call", h.dispatch) }},
		{"bind", func() error { return rt.Eval(bindJS) }},
	}
	for _, s := range setups {
		if err := s.fn(); err != nil {
			rt.Close()
			return fmt.Errorf("setting up %s: %w", s.name, err)
		}
	}
	for i, ext := range h.extensions {
		if err := ext(rt); err != nil {
			rt.Close()
			return fmt.Errorf("setting up extension %d: %w", i, err)
		}
	}
	h.rt = rt
	h.broken.Store(false)
	return nil
}

// dispatch is the single native entry point guest proxies call. It reads
// the host's active registry at call time.
func (h *Host) dispatch(name, method, argsWire string) string {
	reg := h.active
	if reg == nil {
		return marshal.Encode(binding.Errorf("Binding '%s' not found", name))
	}
	return marshal.Encode(reg.Call(name, method, marshal.DecodeList(argsWire)))
}

// rebuild replaces a runtime the watchdog interrupted. The active bindings
// are injected again and a module-style script is re-evaluated so the entry
// object exists in the new runtime.
func (h *Host) rebuild() error {
	core.Logger().Warn("rebuilding interrupted runtime")
	if h.rt != nil {
		h.rt.Close()
		h.rt = nil
	}
	h.el.Reset()
	if err := h.boot(); err != nil {
		return err
	}
	if err := injectAll(h.rt, h.active); err != nil {
		return err
	}
	if h.loaded != nil && h.loaded.module {
		if err := evalStaged(h.rt, h.loaded.Source); err != nil {
			return fmt.Errorf("re-evaluating script: %w", err)
		}
		return commitStaged(h.rt)
	}
	return nil
}

func (h *Host) ensureRuntime() error {
	if h.rt != nil && !h.broken.Load() {
		return nil
	}
	return h.rebuild()
}

// guard runs fn under the execution watchdog when one is configured. An
// interrupted runtime is marked broken and rebuilt before its next use.
func (h *Host) guard(fn func() error) (err error) {
	if h.cfg.ExecutionTimeout <= 0 {
		return fn()
	}
	var timedOut atomic.Bool
	rt := h.rt
	watchdog := time.AfterFunc(h.cfg.ExecutionTimeout, func() {
		timedOut.Store(true)
		rt.Interrupt()
	})
	defer func() {
		watchdog.Stop()
		r := recover()
		if timedOut.Load() {
			h.broken.Store(true)
			err = fmt.Errorf("%w (limit: %v)", ErrTimeout, h.cfg.ExecutionTimeout)
			return
		}
		if r != nil {
			h.broken.Store(true)
			err = fmt.Errorf("engine panic: %v", r)
		}
	}()
	return fn()
}

// Extend installs fn into the current runtime and into every runtime the
// host rebuilds later.
func (h *Host) Extend(fn func(rt core.JSRuntime) error) error {
	h.extensions = append(h.extensions, fn)
	if h.rt == nil {
		return nil
	}
	return fn(h.rt)
}

// Register adds an embedder-provided binding that every subsequent load
// exposes, in addition to the script's own imports.
func (h *Host) Register(b binding.Binding) {
	h.base.Register(b.Name(), b)
}

// Load resolves the imports of source, strips them, wraps the rest with w
// and evaluates it. On success the new script replaces the old one
// entirely; on failure the previous script and its bindings stay in place.
func (h *Host) Load(source string, w Wrapper) (*LoadedScript, error) {
	if err := h.ensureRuntime(); err != nil {
		return nil, err
	}
	found, cleaned := imports.ScanAndStrip(source)
	res, err := h.catalog.Resolve(found)
	if err != nil {
		return nil, &LoadError{Stage: StageResolve, Err: err}
	}
	wrapped, err := w.Wrap(cleaned)
	if err != nil {
		_ = res.Close()
		return nil, &LoadError{Stage: StageWrap, Err: err}
	}

	reg := h.base.Clone()
	for _, name := range res.Registry.Names() {
		b, _ := res.Registry.Get(name)
		reg.Register(name, b)
	}

	// The new script must never see capabilities of the previous one.
	prev := h.active
	if prev != nil {
		for _, name := range prev.Names() {
			if !reg.Contains(name) {
				_ = unbind(h.rt, name)
			}
		}
	}
	if err := injectAll(h.rt, reg); err != nil {
		h.rollback(reg, prev)
		_ = res.Close()
		return nil, &LoadError{Stage: StageEval, Err: err}
	}
	h.el.Reset()
	h.active = reg
	err = h.guard(func() error { return evalStaged(h.rt, wrapped) })
	if err == nil {
		err = commitStaged(h.rt)
	}
	if err != nil {
		h.active = prev
		h.rollback(reg, prev)
		_ = res.Close()
		return nil, &LoadError{Stage: StageEval, Err: err}
	}

	if h.resolution != nil {
		if err := h.resolution.Close(); err != nil {
			core.Logger().Warn("closing previous bindings", zap.Error(err))
		}
	}
	h.resolution = res
	h.loaded = &LoadedScript{
		Source:   wrapped,
		Imports:  found,
		Bindings: reg.Names(),
		Wrapper:  w.Name,
		module:   w.Module,
	}
	core.Logger().Info("script loaded",
		zap.String("wrapper", w.Name),
		zap.Int("imports", len(found)),
		zap.Strings("bindings", h.loaded.Bindings))
	return h.loaded, nil
}

// rollback restores the guest globals of prev after a failed load that had
// already injected reg.
func (h *Host) rollback(reg, prev *binding.Registry) {
	if h.broken.Load() {
		if err := h.rebuild(); err != nil {
			core.Logger().Error("rebuilding runtime after failed load", zap.Error(err))
		}
		return
	}
	for _, name := range reg.Names() {
		if prev == nil || !prev.Contains(name) {
			_ = unbind(h.rt, name)
		}
	}
	if err := injectAll(h.rt, prev); err != nil {
		core.Logger().Error("restoring bindings after failed load", zap.Error(err))
	}
}

// Loaded returns the current script, or nil.
func (h *Host) Loaded() *LoadedScript { return h.loaded }

// Registry returns the registry native callbacks currently dispatch through.
func (h *Host) Registry() *binding.Registry { return h.active }

// Catalog returns the module catalog used for import resolution.
func (h *Host) Catalog() *imports.Catalog { return h.catalog }

// Config returns the effective host configuration.
func (h *Host) Config() core.HostConfig { return h.cfg }

// Logs returns the console capture buffer.
func (h *Host) Logs() *core.LogBuffer { return h.logs }

// Exec runs fn against the runtime under the watchdog. It is the hook the
// request bridge uses to drive a loaded worker.
func (h *Host) Exec(fn func(rt core.JSRuntime) error) error {
	if h.loaded == nil {
		return ErrNotLoaded
	}
	if err := h.ensureRuntime(); err != nil {
		return err
	}
	return h.guard(func() error { return fn(h.rt) })
}

// Await settles globalThis[name] in place. It must be called from within
// Exec.
func (h *Host) Await(name string) error {
	return h.awaitGlobal(name, time.Now().Add(h.cfg.AwaitTimeout))
}

// Read converts globalThis[name] into a Value. It must be called from within
// Exec.
func (h *Host) Read(name string) (binding.Value, error) {
	return readGlobal(h.rt, name)
}

// RunResult is the outcome of a one-shot script.
type RunResult struct {
	Value    binding.Value
	Logs     []core.LogEntry
	Duration time.Duration
}

// Run loads source as a one-shot script and waits for its result. A
// rejected result is reported as a LoadError at StageAwait.
func (h *Host) Run(source string) (*RunResult, error) {
	start := time.Now()
	h.logs.Drain()
	if _, err := h.Load(source, Operator); err != nil {
		return &RunResult{Logs: h.logs.Drain(), Duration: time.Since(start)}, err
	}
	var value binding.Value
	err := h.guard(func() error {
		if err := h.Await(EntryGlobal); err != nil {
			return err
		}
		v, err := h.Read(EntryGlobal)
		value = v
		return err
	})
	result := &RunResult{Value: value, Logs: h.logs.Drain(), Duration: time.Since(start)}
	if err != nil {
		return result, &LoadError{Stage: StageAwait, Err: err}
	}
	return result, nil
}

// Close releases the runtime and every binding resource.
func (h *Host) Close() error {
	var errs []error
	if h.resolution != nil {
		errs = append(errs, h.resolution.Close())
		h.resolution = nil
	}
	if h.rt != nil {
		h.rt.Close()
		h.rt = nil
	}
	h.loaded = nil
	return errors.Join(errs...)
}
