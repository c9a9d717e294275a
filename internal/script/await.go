package script

import (
	"errors"
	"fmt"
	"time"

	"github.com/cryguy/raven/internal/core"
	"go.uber.org/zap"
)

// ErrRejected wraps the reason of a rejected promise.
var ErrRejected = errors.New("promise rejected")

// awaitGlobal settles a possibly-promise value stored in globalThis[name]
// and writes the fulfilled value back in place. Microtasks are pumped and
// timers fired between checks. A promise that can no longer settle, because
// neither microtasks nor timers remain, fails immediately.
func (h *Host) awaitGlobal(name string, deadline time.Time) error {
	rt := h.rt
	ref := "globalThis[" + core.JsEscape(name) + "]"

	isPromise, err := rt.EvalBool(ref + " instanceof Promise")
	if err != nil {
		return fmt.Errorf("inspecting %s: %w", name, err)
	}
	if !isPromise {
		return nil
	}

	setupJS := fmt.Sprintf(`
		delete globalThis.__raven_await_result;
		delete globalThis.__raven_await_state;
		Promise.resolve(%s).then(
			function(r) { globalThis.__raven_await_result = r; globalThis.__raven_await_state = 'fulfilled'; },
			function(e) { globalThis.__raven_await_result = e; globalThis.__raven_await_state = 'rejected'; }
		);
	`, ref)
	if err := rt.Eval(setupJS); err != nil {
		return fmt.Errorf("setting up promise await: %w", err)
	}
	defer func() {
		_ = rt.Eval("delete globalThis.__raven_await_result; delete globalThis.__raven_await_state;")
	}()

	idle := 0
	for {
		rt.RunMicrotasks()

		state, err := rt.EvalString("String(globalThis.__raven_await_state)")
		if err != nil {
			return fmt.Errorf("checking promise state: %w", err)
		}
		if state != "undefined" {
			break
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("promise resolution timed out")
		}

		fired, err := h.el.RunNext(rt, deadline)
		if err != nil {
			core.Logger().Warn("timer callback failed", zap.Error(err))
			h.logs.Add("error", "Uncaught (in timer) "+err.Error())
		}
		if fired {
			idle = 0
			continue
		}
		if !h.el.HasPending() {
			// One extra pump covers job queues longer than a single pass.
			idle++
			if idle > 1 {
				return fmt.Errorf("promise never settled")
			}
			continue
		}
		// The next timer is past the deadline.
		return fmt.Errorf("promise resolution timed out")
	}

	state, _ := rt.EvalString("String(globalThis.__raven_await_state)")
	if state == "rejected" {
		reason, _ := rt.EvalString("String(globalThis.__raven_await_result)")
		return fmt.Errorf("%w: %s", ErrRejected, reason)
	}
	return rt.Eval(ref + " = globalThis.__raven_await_result;")
}
