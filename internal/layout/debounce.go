package layout

import (
	"sync"
	"time"
)

// Debouncer runs the most recently scheduled function once its delay has
// passed without another Schedule call. Rescheduling replaces the pending
// function.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
	seq   uint64
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

func (d *Debouncer) Schedule(fn func()) {
	d.after(d.delay, fn)
}

func (d *Debouncer) after(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = time.AfterFunc(delay, func() {
		d.mu.Lock()
		current := d.seq == seq
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Stop drops any pending function.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}

// Settler defers a function past the next frame boundary and then a fixed
// settle delay, giving fonts and images time to change the surface metrics.
// A new Schedule replaces whichever stage is pending.
type Settler struct {
	frame time.Duration
	delay time.Duration
	d     Debouncer
}

func NewSettler(frame, delay time.Duration) *Settler {
	return &Settler{frame: frame, delay: delay}
}

func (s *Settler) Schedule(fn func()) {
	s.d.after(s.frame, func() {
		s.d.after(s.delay, fn)
	})
}

func (s *Settler) Stop() { s.d.Stop() }
