package utils

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of work per key into a single callback that
// fires after a quiet period. Scheduling a key with a pending timer
// replaces the timer, so only the last callback scheduled within the
// window runs. Used for screening-profile autosave.
type Debouncer struct {
	window time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	funcs  map[string]func()
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window: window,
		timers: make(map[string]*time.Timer),
		funcs:  make(map[string]func()),
	}
}

// Schedule queues fn to run after the quiet window. A pending timer for
// the same key is cancelled and replaced.
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.funcs[key] = fn
	d.timers[key] = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		fn, ok := d.funcs[key]
		delete(d.timers, key)
		delete(d.funcs, key)
		d.mu.Unlock()
		if ok {
			fn()
		}
	})
}

// Cancel drops any pending callback for key.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
		delete(d.funcs, key)
	}
}

// Flush runs a pending callback for key immediately, if any.
func (d *Debouncer) Flush(key string) {
	d.mu.Lock()
	fn, ok := d.funcs[key]
	if ok {
		d.timers[key].Stop()
		delete(d.timers, key)
		delete(d.funcs, key)
	}
	d.mu.Unlock()
	if ok {
		fn()
	}
}

// Stop cancels all pending callbacks.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
		delete(d.funcs, key)
	}
}

// Pending reports whether a callback is queued for key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[key]
	return ok
}
