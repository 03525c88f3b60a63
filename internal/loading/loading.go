// Package loading drives the busy indicator shown while events are fetched.
package loading

import (
	"strings"
	"sync"
	"time"

	"multical/internal/model"
	"multical/internal/sched"
)

// HideDelay is how long Hide waits before clearing the busy state.
const HideDelay = 500 * time.Millisecond

// Element is the visual the indicator animates.
type Element interface {
	SetBusy(busy bool)
}

// Indicator tracks show/hide requests. The zero value is not usable; call New.
type Indicator struct {
	s sched.Scheduler

	mu     sync.Mutex
	el     Element
	busy   bool
	hide   sched.Timer
	gen    uint64
	onShow func()
	onHide func()
}

// New returns an idle indicator using s for the delayed hide.
func New(s sched.Scheduler) *Indicator {
	return &Indicator{s: s}
}

// Show marks the indicator busy and cancels a pending hide.
func (in *Indicator) Show() {
	in.mu.Lock()
	in.gen++
	if in.hide != nil {
		in.hide.Stop()
		in.hide = nil
	}
	changed := !in.busy
	in.busy = true
	el, hook := in.el, in.onShow
	in.mu.Unlock()

	if !changed {
		return
	}
	if el != nil {
		el.SetBusy(true)
	}
	if hook != nil {
		hook()
	}
}

// Hide clears the busy state after HideDelay unless Show is called first.
func (in *Indicator) Hide() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.gen++
	gen := in.gen
	if in.hide != nil {
		in.hide.Stop()
	}
	in.hide = in.s.AfterFunc(HideDelay, func() { in.finishHide(gen) })
}

func (in *Indicator) finishHide(gen uint64) {
	in.mu.Lock()
	if gen != in.gen || !in.busy {
		in.mu.Unlock()
		return
	}
	in.busy = false
	in.hide = nil
	el, hook := in.el, in.onHide
	in.mu.Unlock()

	if el != nil {
		el.SetBusy(false)
	}
	if hook != nil {
		hook()
	}
}

// Busy reports the current visual state.
func (in *Indicator) Busy() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.busy
}

// On registers fn for "show" or "hide", matched case-insensitively.
func (in *Indicator) On(event string, fn func()) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	switch strings.ToUpper(event) {
	case "SHOW":
		in.onShow = fn
	case "HIDE":
		in.onHide = fn
	default:
		return model.ConfigErr("loading.on", `"`+event+`" is not a valid event, want "show" or "hide"`)
	}
	return nil
}

// SetLoadingElement binds el and puts it in the current state.
func (in *Indicator) SetLoadingElement(el Element) error {
	if el == nil {
		return model.ConfigErr("loading element", "element is required")
	}
	in.mu.Lock()
	in.el = el
	busy := in.busy
	in.mu.Unlock()
	el.SetBusy(busy)
	return nil
}

// Stop cancels a pending hide.
func (in *Indicator) Stop() {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.gen++
	if in.hide != nil {
		in.hide.Stop()
		in.hide = nil
	}
}
