// Package bus is a small typed publish/subscribe bus shared by a group of
// calendars. Delivery is synchronous, in registration order.
package bus

import (
	"sync"
	"time"
)

// Topic carries values of a single type.
type Topic[T any] struct {
	mu   sync.Mutex
	next int
	subs []subscriber[T]
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and returns a func that removes it again.
func (t *Topic[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	t.mu.Lock()
	t.next++
	id := t.next
	t.subs = append(t.subs, subscriber[T]{id: id, fn: fn})
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			for i, s := range t.subs {
				if s.id == id {
					t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Publish calls every subscriber with v before returning. Subscribers may
// publish or subscribe again from inside the callback.
func (t *Topic[T]) Publish(v T) {
	t.mu.Lock()
	subs := make([]subscriber[T], len(t.subs))
	copy(subs, t.subs)
	t.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len returns the number of subscribers.
func (t *Topic[T]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.subs)
}

// Bus groups the topics a widget group communicates over.
type Bus struct {
	// DateChanged carries the new canonical start date.
	DateChanged Topic[time.Time]
	// ViewChanged carries the new view name.
	ViewChanged Topic[string]
	// AllRendered fires once per completed render pass.
	AllRendered Topic[struct{}]
}

// New returns an empty bus.
func New() *Bus {
	return &Bus{}
}
