package registry

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// RebuildTrigger coalesces many "the live-worker set changed" signals into
// one rebuild call. A burst of heartbeat timeouts during a sweep, or a
// register/deregister racing the sweeper, should not each pay for their own
// full ring rebuild: Enqueue restarts a short debounce timer, and the timer
// fire is itself run through a singleflight.Group so that two timers
// landing back to back still only execute fn once concurrently.
type RebuildTrigger struct {
	fn       func()
	debounce time.Duration

	mu    sync.Mutex
	timer *time.Timer

	group singleflight.Group
}

// NewRebuildTrigger builds a trigger that calls fn no sooner than debounce
// after the last Enqueue (0 uses a 50ms default).
func NewRebuildTrigger(fn func(), debounce time.Duration) *RebuildTrigger {
	if debounce <= 0 {
		debounce = 50 * time.Millisecond
	}
	return &RebuildTrigger{fn: fn, debounce: debounce}
}

// Enqueue schedules a rebuild. Calling it repeatedly within the debounce
// window resets the timer rather than scheduling additional rebuilds.
func (t *RebuildTrigger) Enqueue() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.debounce, t.fire)
}

func (t *RebuildTrigger) fire() {
	t.group.Do("rebuild", func() (any, error) {
		t.fn()
		return nil, nil
	})
}

// Flush runs a rebuild immediately, bypassing the debounce window, and
// waits for it to finish. Used by tests.
func (t *RebuildTrigger) Flush() {
	t.mu.Lock()
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.mu.Unlock()
	t.fire()
}
