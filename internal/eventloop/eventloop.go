// Package eventloop provides Go-backed setTimeout/setInterval scheduling
// for a single JS runtime.
package eventloop

import (
	"fmt"
	"sync"
	"time"

	"github.com/cryguy/raven/internal/core"
)

// minInterval is the shortest period a setInterval timer may use.
const minInterval = 10 * time.Millisecond

// timerEntry represents a pending setTimeout or setInterval callback.
// The actual callback is stored in globalThis.__timerCallbacks[id] on the
// JS side. Go only tracks scheduling metadata.
type timerEntry struct {
	deadline time.Time
	interval time.Duration // 0 for setTimeout, >0 for setInterval
	id       int
}

// EventLoop tracks timers registered by guest code. Callbacks fire only
// while Drain runs, on the caller's goroutine.
type EventLoop struct {
	mu     sync.Mutex
	timers map[int]*timerEntry
	nextID int
}

// New creates a new EventLoop.
func New() *EventLoop {
	return &EventLoop{
		timers: make(map[int]*timerEntry),
	}
}

// RegisterTimer creates a timer entry and returns its ID.
func (el *EventLoop) RegisterTimer(delay time.Duration, isInterval bool) int {
	el.mu.Lock()
	defer el.mu.Unlock()
	if delay < 0 {
		delay = 0
	}
	el.nextID++
	id := el.nextID
	entry := &timerEntry{
		deadline: time.Now().Add(delay),
		id:       id,
	}
	if isInterval {
		if delay < minInterval {
			delay = minInterval
		}
		entry.interval = delay
	}
	el.timers[id] = entry
	return id
}

// ClearTimer cancels a timer by ID.
func (el *EventLoop) ClearTimer(id int) {
	el.mu.Lock()
	defer el.mu.Unlock()
	delete(el.timers, id)
}

// HasPending reports whether any timer is still scheduled.
func (el *EventLoop) HasPending() bool {
	el.mu.Lock()
	defer el.mu.Unlock()
	return len(el.timers) > 0
}

// Reset drops every timer. Called when a new script replaces the old one.
func (el *EventLoop) Reset() {
	el.mu.Lock()
	defer el.mu.Unlock()
	el.timers = make(map[int]*timerEntry)
	el.nextID = 0
}

// next returns the earliest scheduled timer, or nil.
func (el *EventLoop) next() *timerEntry {
	el.mu.Lock()
	defer el.mu.Unlock()
	var next *timerEntry
	for _, t := range el.timers {
		if next == nil || t.deadline.Before(next.deadline) {
			next = t
		}
	}
	return next
}

// fireTimer invokes the JS-side callback for id.
func (el *EventLoop) fireTimer(rt core.JSRuntime, id int) error {
	js := fmt.Sprintf(`(function() {
		var entry = globalThis.__timerCallbacks[%d];
		if (!entry) return;
		if (!entry.interval) delete globalThis.__timerCallbacks[%d];
		entry.fn.apply(null, entry.args || []);
	})()`, id, id)
	return rt.Eval(js)
}

// RunNext waits for the earliest timer and fires it. It reports false
// without firing when no timer is scheduled or the earliest one falls after
// deadline. Must be called on the runtime's goroutine.
func (el *EventLoop) RunNext(rt core.JSRuntime, deadline time.Time) (bool, error) {
	for {
		next := el.next()
		if next == nil {
			return false, nil
		}
		if next.deadline.After(deadline) {
			return false, nil
		}
		if wait := time.Until(next.deadline); wait > 0 {
			time.Sleep(wait)
		}

		el.mu.Lock()
		if _, live := el.timers[next.id]; !live {
			el.mu.Unlock()
			continue
		}
		if next.interval > 0 {
			next.deadline = time.Now().Add(next.interval)
		} else {
			delete(el.timers, next.id)
		}
		el.mu.Unlock()

		err := el.fireTimer(rt, next.id)
		rt.RunMicrotasks()
		return true, err
	}
}
