// Package debounce collapses bursts of calls into one trailing call.
package debounce

import (
	"sync"
	"time"

	"multical/internal/sched"
)

// Flush runs the pending call right away when now is true.
type Flush func(now bool)

// Debouncer delays fn until Trigger has not been called for delay. Only the
// most recent argument is kept.
type Debouncer[T any] struct {
	s     sched.Scheduler
	delay time.Duration
	fn    func(T)

	mu      sync.Mutex
	timer   sched.Timer
	gen     uint64
	pending bool
	arg     T
}

// New returns a Debouncer that calls fn on s after delay.
func New[T any](s sched.Scheduler, delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{s: s, delay: delay, fn: fn}
}

// Trigger records arg and restarts the delay.
func (d *Debouncer[T]) Trigger(arg T) Flush {
	d.mu.Lock()
	d.arg = arg
	d.pending = true
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = d.s.AfterFunc(d.delay, func() { d.fire(gen) })
	d.mu.Unlock()
	return d.Flush
}

// Flush runs the pending call immediately if now is true. Without a pending
// call it does nothing.
func (d *Debouncer[T]) Flush(now bool) {
	if !now {
		return
	}
	d.mu.Lock()
	d.fire0()
}

// Stop drops any pending call.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Pending reports whether a call is waiting for the delay to pass.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	// A dispatching scheduler can deliver a callback after it was replaced.
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.fire0()
}

// fire0 is called with d.mu held and releases it.
func (d *Debouncer[T]) fire0() {
	if !d.pending {
		d.mu.Unlock()
		return
	}
	arg := d.arg
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	d.fn(arg)
}
