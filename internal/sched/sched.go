// Package sched abstracts timers so components own and cancel them
// explicitly, and so tests can drive time by hand.
package sched

import (
	"sync"
	"time"
)

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop cancels the timer. It reports whether the call stopped it.
	Stop() bool
}

// Scheduler creates one-shot and repeating timers.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
	Every(d time.Duration, fn func()) Timer
	Now() time.Time
}

type realScheduler struct{}

// Real returns a scheduler backed by the time package. Callbacks run on the
// timer goroutine.
func Real() Scheduler {
	return realScheduler{}
}

// Dispatching returns a real scheduler whose callbacks are handed to post
// instead of being run directly, so an event loop can run them on its own
// goroutine.
func Dispatching(post func(func())) Scheduler {
	return Dispatch(Real(), post)
}

// Dispatch wraps s so its callbacks are handed to post.
func Dispatch(s Scheduler, post func(func())) Scheduler {
	return dispatcher{Scheduler: s, post: post}
}

type dispatcher struct {
	Scheduler
	post func(func())
}

func (d dispatcher) AfterFunc(dur time.Duration, fn func()) Timer {
	return d.Scheduler.AfterFunc(dur, func() { d.post(fn) })
}

func (d dispatcher) Every(dur time.Duration, fn func()) Timer {
	return d.Scheduler.Every(dur, func() { d.post(fn) })
}

func (s realScheduler) Now() time.Time {
	return time.Now()
}

func (s realScheduler) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

func (s realScheduler) Every(d time.Duration, fn func()) Timer {
	t := &ticker{done: make(chan struct{})}
	if d <= 0 {
		t.Stop()
		return t
	}
	tk := time.NewTicker(d)
	go func() {
		defer tk.Stop()
		for {
			select {
			case <-t.done:
				return
			case <-tk.C:
				fn()
			}
		}
	}()
	return t
}

type ticker struct {
	once sync.Once
	done chan struct{}
}

func (t *ticker) Stop() bool {
	stopped := false
	t.once.Do(func() {
		close(t.done)
		stopped = true
	})
	return stopped
}
