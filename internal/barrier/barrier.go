// Package barrier tells a calendar group when every widget has finished
// rendering the same pass.
package barrier

import (
	"log/slog"
	"sync"
	"time"

	"multical/internal/bus"
	"multical/internal/model"
)

// Dispatcher receives the group-wide notification.
type Dispatcher interface {
	AllRendered()
}

// DispatcherFunc adapts a func to Dispatcher.
type DispatcherFunc func()

func (f DispatcherFunc) AllRendered() { f() }

// Barrier counts per-widget render reports. Out-of-order and duplicate
// reports are logged and recovered from, never fatal.
type Barrier struct {
	bus *bus.Bus
	log *slog.Logger

	mu         sync.Mutex
	root       Dispatcher
	registered map[string]bool
	reported   map[string]bool
	passDate   time.Time
	inPass     bool
	passes     int
}

// Option configures a Barrier.
type Option func(*Barrier)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Barrier) { b.log = l }
}

// New returns a Barrier that falls back to b.AllRendered when no root is set.
func New(b *bus.Bus, opts ...Option) *Barrier {
	br := &Barrier{
		bus:        b,
		log:        slog.Default(),
		registered: make(map[string]bool),
		reported:   make(map[string]bool),
	}
	for _, opt := range opts {
		opt(br)
	}
	return br
}

// SetRoot sets where the completed-pass notification goes.
func (b *Barrier) SetRoot(d Dispatcher) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.root = d
}

// Register adds a widget and returns the callback it reports with.
func (b *Barrier) Register(uid string) func(date time.Time) {
	b.mu.Lock()
	if b.registered[uid] {
		b.log.Warn("widget registered twice", "uid", uid)
	}
	b.registered[uid] = true
	b.mu.Unlock()

	return func(date time.Time) { b.report(uid, date) }
}

// Passes returns the number of completed passes.
func (b *Barrier) Passes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.passes
}

// Reported returns how many distinct widgets reported in the current pass.
func (b *Barrier) Reported() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.reported)
}

func (b *Barrier) report(uid string, date time.Time) {
	b.mu.Lock()
	switch {
	case !b.inPass:
		b.startPass(date)
	case b.reported[uid]:
		b.log.Warn("widget rendered twice in one pass, restarting pass",
			"uid", uid, "pass_date", b.passDate.Format(model.DateLayout), "date", date.Format(model.DateLayout))
		b.startPass(date)
	case !date.Equal(b.passDate):
		b.log.Warn("widget rendered a different date than the pass",
			"uid", uid, "pass_date", b.passDate.Format(model.DateLayout), "date", date.Format(model.DateLayout))
	}
	b.reported[uid] = true

	if len(b.reported) < len(b.registered) {
		b.mu.Unlock()
		return
	}
	b.reset()
	b.passes++
	root := b.root
	b.mu.Unlock()

	if root != nil {
		root.AllRendered()
		return
	}
	b.bus.AllRendered.Publish(struct{}{})
}

// startPass must be called with b.mu held.
func (b *Barrier) startPass(date time.Time) {
	b.reset()
	b.inPass = true
	b.passDate = date
}

// reset must be called with b.mu held.
func (b *Barrier) reset() {
	clear(b.reported)
	b.inPass = false
	b.passDate = time.Time{}
}
