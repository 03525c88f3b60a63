// Package dateview owns the current start date and view of a calendar group
// and keeps the date picker, the deep link and every widget in step with it.
package dateview

import (
	"log/slog"
	"regexp"
	"sync"
	"time"

	"multical/internal/bus"
	"multical/internal/model"
)

// DatePicker is the input the user edits the date with.
type DatePicker interface {
	SetValue(v string)
	SetType(t string)
	OnChange(fn func(v string))
}

// Location holds the deep-link fragment, e.g. "start=2024-03-04".
type Location interface {
	Fragment() string
	SetFragment(f string)
}

// Controller is the single writer of the group's date and view.
type Controller struct {
	bus *bus.Bus
	log *slog.Logger
	loc Location

	mu     sync.Mutex
	date   time.Time
	view   int
	picker DatePicker
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithLocation binds the deep-link location. An existing start= fragment
// seeds the initial date.
func WithLocation(loc Location) Option {
	return func(c *Controller) { c.loc = loc }
}

// WithDate overrides the initial date.
func WithDate(t time.Time) Option {
	return func(c *Controller) { c.date = t }
}

// New returns a controller on b starting at today in the default view.
func New(b *bus.Bus, opts ...Option) *Controller {
	c := &Controller{bus: b, view: DefaultView, log: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	if c.date.IsZero() {
		c.date = time.Now()
	}
	if c.loc != nil {
		if t, ok := ParseFragment(c.loc.Fragment()); ok {
			c.date = t
		}
	}
	c.date = Views[c.view].Normalize(c.date)
	return c
}

// Date returns the normalized current start date.
func (c *Controller) Date() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.date
}

// ViewType returns the active view name.
func (c *Controller) ViewType() string {
	return c.View().Name
}

// View returns the active view.
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Views[c.view]
}

// SetDate moves the group to t. Dates in the current bucket are ignored, so
// widgets echoing the date back do not cause another broadcast.
func (c *Controller) SetDate(t time.Time) {
	c.mu.Lock()
	v := Views[c.view]
	t = wallIn(t, c.date.Location())
	n := v.Normalize(t)
	if n.Equal(c.date) {
		c.mu.Unlock()
		return
	}
	c.date = n
	picker := c.picker
	c.mu.Unlock()

	if picker != nil {
		picker.SetValue(v.Format(n))
	}
	if c.loc != nil {
		c.loc.SetFragment(Fragment(t))
	}
	c.log.Debug("date changed", "date", n.Format(model.DateLayout), "view", v.Name)
	c.bus.DateChanged.Publish(n)
}

// SetViewType switches to the view called name. Unknown names are logged
// and ignored.
func (c *Controller) SetViewType(name string) {
	v, idx, ok := Lookup(name)
	if !ok {
		c.log.Error("invalid view type", "view", name)
		return
	}

	c.mu.Lock()
	if idx == c.view {
		c.mu.Unlock()
		return
	}
	c.view = idx
	c.date = v.Normalize(c.date)
	date := c.date
	picker := c.picker
	c.mu.Unlock()

	c.log.Debug("view changed", "view", v.Name)
	c.bus.ViewChanged.Publish(v.Name)
	if picker != nil {
		picker.SetType(v.PickerType)
		picker.SetValue(v.Format(date))
	}
}

// SetWeekPicker binds p. User edits flow back into SetDate.
func (c *Controller) SetWeekPicker(p DatePicker) error {
	if p == nil {
		return model.ConfigErr("week picker", "a picker element is required")
	}

	c.mu.Lock()
	c.picker = p
	v := Views[c.view]
	date := c.date
	c.mu.Unlock()

	p.SetType(v.PickerType)
	p.SetValue(v.Format(date))
	p.OnChange(func(value string) {
		t, err := ParseValue(value)
		if err != nil {
			c.log.Warn("ignoring picker value", "value", value, "err", err)
			return
		}
		c.SetDate(t)
	})
	return nil
}

var fragmentDate = regexp.MustCompile(`(\d{4})-(\d{2})-(\d{2})`)

// Fragment returns the deep-link fragment for t.
func Fragment(t time.Time) string {
	return "start=" + t.Format(model.DateLayout)
}

// ParseFragment extracts the first YYYY-MM-DD date in f.
func ParseFragment(f string) (time.Time, bool) {
	m := fragmentDate.FindString(f)
	if m == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(model.DateLayout, m, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// wallIn keeps t's calendar date and clock reading but places it in loc.
func wallIn(t time.Time, loc *time.Location) time.Time {
	if t.Location() == loc {
		return t
	}
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
