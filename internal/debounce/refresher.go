// Package debounce coalesces bursts of invalidation signals into a single delayed call.
package debounce

import (
	"sync"
	"time"
)

// Refresher runs a function at most once per window.
//
// The window opens on the first Schedule call and closes delay later; calls
// made inside an open window are absorbed and do not push the deadline back.
// A call made after the window fired opens a new one, so the function always
// runs at least once after the last call. A zero delay runs the function on
// the next timer tick, coalescing whatever arrives before it starts.
//
// The function never runs concurrently with itself: calls made while it runs
// open a window that is armed once the run returns.
//
// The zero value is not usable; create instances with New.
type Refresher struct {
	delay time.Duration

	mu         sync.Mutex
	timer      *time.Timer
	fn         func()
	pending    bool
	running    bool
	closed     bool
	gen        uint64
	onCoalesce func()
}

// New creates a refresher with the given window length.
//
// Parameters:
//   - delay: Window length (0 = immediate with coalescing)
//
// Returns:
//   - *Refresher: New refresher instance
func New(delay time.Duration) *Refresher {
	if delay < 0 {
		delay = 0
	}

	return &Refresher{delay: delay}
}

// OnCoalesce registers a callback invoked for every absorbed Schedule call.
func (r *Refresher) OnCoalesce(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onCoalesce = fn
}

// Delay returns the configured window length.
func (r *Refresher) Delay() time.Duration {
	return r.delay
}

// Schedule arms the window if needed and records fn as the function to run.
//
// When several calls share a window, the fn passed last is the one invoked.
//
// Returns:
//   - bool: false if the refresher was closed
func (r *Refresher) Schedule(fn func()) bool {
	r.mu.Lock()

	if r.closed {
		r.mu.Unlock()
		return false
	}

	r.fn = fn
	if r.pending {
		cb := r.onCoalesce
		r.mu.Unlock()
		if cb != nil {
			cb()
		}

		return true
	}

	r.pending = true
	if !r.running {
		r.armLocked()
	}
	r.mu.Unlock()

	return true
}

func (r *Refresher) armLocked() {
	gen := r.gen
	r.timer = time.AfterFunc(r.delay, func() { r.fire(gen) })
}

// Pending reports whether a window is open.
func (r *Refresher) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.pending
}

// Cancel clears the pending window, if any.
//
// A timer that already fired but has not started fn yet is suppressed. A
// running fn is not interrupted. The refresher stays usable.
func (r *Refresher) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelLocked()
}

// Close cancels the pending window and rejects future Schedule calls.
func (r *Refresher) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelLocked()
	r.closed = true
}

func (r *Refresher) cancelLocked() {
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.pending = false
	r.fn = nil
}

func (r *Refresher) fire(gen uint64) {
	r.mu.Lock()
	if gen != r.gen || !r.pending {
		r.mu.Unlock()
		return
	}
	fn := r.fn
	r.pending = false
	r.running = true
	r.timer = nil
	r.fn = nil
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		if r.pending && !r.closed {
			r.armLocked()
		}
		r.mu.Unlock()
	}()

	if fn != nil {
		fn()
	}
}
