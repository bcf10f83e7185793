// Package schedule coalesces bursts of viewport events into a single marker
// recompute.
package schedule

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// DefaultWait is the quiet period after the last viewport event before the
// markers are recomputed.
const DefaultWait = 250 * time.Millisecond

// Debouncer runs fn once the calls to Trigger have stopped for the wait
// period. Each Trigger replaces any pending run.
type Debouncer struct {
	clock      clock.Clock
	wait       time.Duration
	fn         func()
	dispatch   func(func())
	superseded func()

	mu      sync.Mutex
	timer   *clock.Timer
	gen     uint64
	pending bool
	closed  bool
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithDispatch routes the fired callback through dispatch, typically to run
// it on an event loop instead of the timer goroutine.
func WithDispatch(dispatch func(func())) Option {
	return func(d *Debouncer) { d.dispatch = dispatch }
}

// OnSuperseded registers a hook called whenever a pending run is replaced.
func OnSuperseded(fn func()) Option {
	return func(d *Debouncer) { d.superseded = fn }
}

// NewDebouncer creates a debouncer. A nil clock uses the wall clock.
func NewDebouncer(clk clock.Clock, wait time.Duration, fn func(), opts ...Option) *Debouncer {
	if clk == nil {
		clk = clock.New()
	}
	d := &Debouncer{
		clock:    clk,
		wait:     wait,
		fn:       fn,
		dispatch: func(f func()) { f() },
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Trigger schedules fn, cancelling any run that has not happened yet.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if d.pending {
		d.timer.Stop()
		if d.superseded != nil {
			d.superseded()
		}
	}

	d.gen++
	gen := d.gen
	d.pending = true
	d.timer = d.clock.AfterFunc(d.wait, func() {
		d.dispatch(func() {
			if d.claim(gen) {
				d.fn()
			}
		})
	})
}

// claim marks the run for gen as started. It fails if the run was replaced
// or cancelled after its timer fired.
func (d *Debouncer) claim(gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || !d.pending || gen != d.gen {
		return false
	}
	d.pending = false
	d.timer = nil
	return true
}

// Cancel drops the pending run, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = false
	d.gen++
}

// Pending reports whether a run is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Close cancels the pending run and turns later triggers into no-ops.
func (d *Debouncer) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.closed = true
}

// Closed reports whether Close has been called.
func (d *Debouncer) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
