// Package debounce coalesces bursts of input into a single deferred call
// and tags the resulting requests so stale responses can be dropped.
package debounce

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWindow is the settle time used when a Debouncer is built with a
// non-positive window.
const DefaultWindow = 500 * time.Millisecond

// Debouncer runs the most recently triggered function once no new trigger
// has arrived for the configured window. At most one call is pending.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// New creates a Debouncer with the given settle window.
func New(window time.Duration) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{window: window}
}

// Window returns the settle window.
func (d *Debouncer) Window() time.Duration {
	return d.window
}

// Trigger schedules fn, replacing any call still waiting on the timer.
// Triggers after Stop are ignored.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		if d.stopped || gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops the pending call, if any. It reports whether one was dropped.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

func (d *Debouncer) cancelLocked() bool {
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}

// Pending reports whether a call is waiting on the timer.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels the pending call and disables the Debouncer for good.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

// Sequencer hands out monotonically increasing request numbers. A response
// is applied only if its number is still the latest one issued.
type Sequencer struct {
	n atomic.Uint64
}

// Next issues a new sequence number, superseding all earlier ones.
func (s *Sequencer) Next() uint64 {
	return s.n.Add(1)
}

// Current returns the latest issued sequence number, 0 if none.
func (s *Sequencer) Current() uint64 {
	return s.n.Load()
}

// IsLatest reports whether seq is the most recently issued number.
func (s *Sequencer) IsLatest(seq uint64) bool {
	return seq != 0 && s.n.Load() == seq
}
