package schedule

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Scheduler decides when the marker layer is recomputed. Viewport changes
// are debounced; data changes recompute at once.
type Scheduler struct {
	debouncer *Debouncer
	ready     func() bool
	sync      func()
}

// NewScheduler creates a scheduler that calls sync. ready is consulted
// before an immediate recompute; a nil ready is treated as always ready.
func NewScheduler(clk clock.Clock, wait time.Duration, ready func() bool, sync func(), opts ...Option) *Scheduler {
	if ready == nil {
		ready = func() bool { return true }
	}
	return &Scheduler{
		debouncer: NewDebouncer(clk, wait, sync, opts...),
		ready:     ready,
		sync:      sync,
	}
}

// ViewportChanged requests a recompute after the debounce window.
func (s *Scheduler) ViewportChanged() {
	s.debouncer.Trigger()
}

// DataChanged recomputes immediately when the map is ready.
func (s *Scheduler) DataChanged() {
	if s.debouncer.Closed() || !s.ready() {
		return
	}
	s.sync()
}

// Pending reports whether a debounced recompute is scheduled.
func (s *Scheduler) Pending() bool {
	return s.debouncer.Pending()
}

// Close cancels any pending recompute and stops accepting new ones.
func (s *Scheduler) Close() {
	s.debouncer.Close()
}
