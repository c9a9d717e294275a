package core

// JSRuntime abstracts the JavaScript engine (QuickJS or V8) behind the small
// surface the script host needs. All methods must be called from the
// goroutine that owns the runtime, except Interrupt.
type JSRuntime interface {
	// Eval evaluates JavaScript source and discards the result.
	Eval(js string) error

	// EvalString evaluates JavaScript and returns the result as a Go string.
	EvalString(js string) (string, error)

	// EvalBool evaluates JavaScript and returns the result as a Go bool.
	EvalBool(js string) (bool, error)

	// RegisterFunc registers a Go function as a global JavaScript function.
	// Arguments and results of type string, int, float64 and bool are
	// converted automatically. A (T, error) result throws a TypeError in
	// guest code when the error is non-nil.
	RegisterFunc(name string, fn any) error

	// SetGlobal sets a global variable on the JS context. Basic Go types
	// (string, int, float64, bool) are auto-converted to JS types.
	SetGlobal(name string, value any) error

	// RunMicrotasks pumps the microtask queue (Promise callbacks, etc.).
	// V8: PerformMicrotaskCheckpoint, QuickJS: ExecutePendingJob loop.
	RunMicrotasks()

	// Interrupt aborts the evaluation currently running. It is safe to call
	// from another goroutine and is used by the execution watchdog.
	Interrupt()

	// Close releases the engine. The runtime is unusable afterwards.
	Close()
}

// RuntimeFactory creates a fresh engine context honoring cfg.
type RuntimeFactory func(cfg HostConfig) (JSRuntime, error)
