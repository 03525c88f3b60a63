// Package multical wires a group of calendar widgets to a shared date
// controller, event loader and render barrier.
package multical

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"multical/internal/barrier"
	"multical/internal/bus"
	"multical/internal/dateview"
	"multical/internal/debounce"
	"multical/internal/loader"
	"multical/internal/loading"
	"multical/internal/model"
	"multical/internal/sched"
)

const (
	// ResponsiveWidth is the widest target still shown in day view.
	ResponsiveWidth = 750
	// ResizeDelay debounces Resize.
	ResizeDelay = 300 * time.Millisecond
	// AutoReloadInterval is the default reload period.
	AutoReloadInterval = 60 * time.Second
)

// DataProvider resolves the events a widget shows for [start, end).
type DataProvider func(ctx context.Context, start, end time.Time) ([]model.Event, error)

// Host creates widgets and reports the space they get.
type Host interface {
	NewWidget(opts WidgetOptions) (Widget, error)
	Width() int
}

// Widget is one rendered calendar.
type Widget interface {
	UID() string
	GotoDate(t time.Time)
	ChangeView(name string)
	// RefetchEvents asks the widget to pull its data again. It may be called
	// from any goroutine.
	RefetchEvents()
	// Range is the window currently shown.
	Range() model.Range
}

// ControlsCarrier is implemented by controller widgets that render the
// shared controls.
type ControlsCarrier interface {
	DatePicker() dateview.DatePicker
	LoadingElement() loading.Element
}

// WidgetOptions is what a host needs to build a widget.
type WidgetOptions struct {
	Calendar   CalendarConfig
	Controller bool
	View       string
	Date       time.Time
	Events     DataProvider
	// Rendered must be called each time the widget finished rendering the
	// window starting at date.
	Rendered func(date time.Time)
	// ViewRender is set on the controller only; call it with the new view
	// start whenever the user navigates.
	ViewRender func(start time.Time)
	// Reload is set on the controller only.
	Reload func()
}

// MultiCalendar is a running calendar group.
type MultiCalendar struct {
	cfg        Config
	log        *slog.Logger
	s          sched.Scheduler
	bus        *bus.Bus
	dates      *dateview.Controller
	loader     *loader.Loader
	indicator  *loading.Indicator
	barrier    *barrier.Barrier
	resize     *debounce.Debouncer[int]
	widgets    []Widget
	unsubs     []func()
	breakpoint int

	reloadCtxTimeout time.Duration
	wg               sync.WaitGroup

	mu          sync.Mutex
	reloadTimer sched.Timer
	interval    time.Duration
	closed      bool
}

type options struct {
	log         *slog.Logger
	s           sched.Scheduler
	bus         *bus.Bus
	loaderOpts  []loader.Option
	dateOpts    []dateview.Option
	breakpoint  int
	interval    time.Duration
	reloadLimit time.Duration
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithScheduler sets the scheduler for debounce, delayed hide and auto-reload.
func WithScheduler(s sched.Scheduler) Option {
	return func(o *options) { o.s = s }
}

// WithBus shares an existing bus.
func WithBus(b *bus.Bus) Option {
	return func(o *options) { o.bus = b }
}

// WithHTTPClient sets the loader's client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.loaderOpts = append(o.loaderOpts, loader.WithHTTPClient(c)) }
}

// WithLoaderOptions passes options through to the loader.
func WithLoaderOptions(opts ...loader.Option) Option {
	return func(o *options) { o.loaderOpts = append(o.loaderOpts, opts...) }
}

// WithAlerter sets where null-payload alerts go.
func WithAlerter(a loader.Alerter) Option {
	return func(o *options) { o.loaderOpts = append(o.loaderOpts, loader.WithAlerter(a)) }
}

// WithLocation binds the deep-link location.
func WithLocation(loc dateview.Location) Option {
	return func(o *options) { o.dateOpts = append(o.dateOpts, dateview.WithLocation(loc)) }
}

// WithDate sets the initial date.
func WithDate(t time.Time) Option {
	return func(o *options) { o.dateOpts = append(o.dateOpts, dateview.WithDate(t)) }
}

// WithResponsiveWidth overrides ResponsiveWidth.
func WithResponsiveWidth(w int) Option {
	return func(o *options) { o.breakpoint = w }
}

// WithAutoReload overrides AutoReloadInterval. Zero disables it.
func WithAutoReload(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// New validates cfg and builds the group. A *model.ConfigurationError is
// returned before any widget is created, except when the controller widget
// lacks its controls: that is only known once the controller exists, so the
// error comes before any other widget is created.
func New(cfg Config, opts ...Option) (*MultiCalendar, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{
		log:         slog.Default(),
		breakpoint:  ResponsiveWidth,
		interval:    AutoReloadInterval,
		reloadLimit: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.s == nil {
		o.s = sched.Real()
	}
	if o.bus == nil {
		o.bus = bus.New()
	}

	m := &MultiCalendar{
		cfg:              cfg,
		log:              o.log,
		s:                o.s,
		bus:              o.bus,
		breakpoint:       o.breakpoint,
		reloadCtxTimeout: o.reloadLimit,
	}

	m.indicator = loading.New(m.s)
	if cfg.LoadingAnimationStart != nil {
		if err := m.indicator.On("show", cfg.LoadingAnimationStart); err != nil {
			return nil, err
		}
	}
	if cfg.LoadingAnimationStop != nil {
		if err := m.indicator.On("hide", cfg.LoadingAnimationStop); err != nil {
			return nil, err
		}
	}

	m.dates = dateview.New(m.bus, append([]dateview.Option{dateview.WithLogger(m.log)}, o.dateOpts...)...)

	loaderOpts := append([]loader.Option{
		loader.WithLogger(m.log),
		loader.WithIndicator(m.indicator),
		loader.WithRefreshed(m.onRefreshed),
	}, o.loaderOpts...)
	m.loader = loader.New(loaderOpts...)
	m.loader.Init(cfg.UIDs(), cfg.LoadURL)

	m.barrier = barrier.New(m.bus, barrier.WithLogger(m.log))

	if err := m.createWidgets(); err != nil {
		m.teardown()
		return nil, err
	}

	m.resize = debounce.New(m.s, ResizeDelay, m.adjustSize)
	m.adjustSize(cfg.Target.Width())
	m.SetAutoReload(o.interval)

	m.log.Info("calendar group ready", "calendars", len(m.cfg.Calendars), "url", cfg.LoadURL, "view", m.dates.ViewType())
	return m, nil
}

func (m *MultiCalendar) createWidgets() error {
	for i, cal := range m.cfg.Calendars {
		opts := WidgetOptions{
			Calendar:   cal,
			Controller: i == 0,
			View:       m.dates.ViewType(),
			Date:       m.dates.Date(),
			Events:     m.provider(cal.UID),
			Rendered:   m.barrier.Register(cal.UID),
		}
		if opts.Controller {
			opts.ViewRender = m.dates.SetDate
			opts.Reload = m.Reload
		}

		w, err := m.cfg.Target.NewWidget(opts)
		if err != nil {
			return fmt.Errorf("create widget %q: %w", cal.UID, err)
		}
		m.mu.Lock()
		m.widgets = append(m.widgets, w)
		m.mu.Unlock()
		m.unsubs = append(m.unsubs,
			m.bus.DateChanged.Subscribe(w.GotoDate),
			m.bus.ViewChanged.Subscribe(w.ChangeView),
		)

		if opts.Controller {
			if err := m.bindControls(w); err != nil {
				return err
			}
		}
	}
	return nil
}

func (m *MultiCalendar) bindControls(w Widget) error {
	carrier, ok := w.(ControlsCarrier)
	if !ok {
		return nil
	}
	picker, element := carrier.DatePicker(), carrier.LoadingElement()
	if picker == nil {
		return model.ConfigErr("datePicker", "the controller widget has no date picker")
	}
	if element == nil {
		return model.ConfigErr("loadingElement", "the controller widget has no loading element")
	}
	if err := m.dates.SetWeekPicker(picker); err != nil {
		return err
	}
	return m.indicator.SetLoadingElement(element)
}

func (m *MultiCalendar) provider(uid string) DataProvider {
	return func(ctx context.Context, start, end time.Time) ([]model.Event, error) {
		payload, err := m.loader.GetEvents(ctx, start, end)
		if err != nil {
			return nil, err
		}
		return payload.Events(uid), nil
	}
}

// adjustSize applies the responsive policy for width.
func (m *MultiCalendar) adjustSize(width int) {
	current := m.dates.ViewType()
	switch {
	case width <= m.breakpoint && current != dateview.BasicDay:
		m.dates.SetViewType(dateview.BasicDay)
	case width > m.breakpoint && current == dateview.BasicDay:
		m.dates.SetViewType(dateview.BasicWeek)
	}
}

// Resize reports a new target width. The view follows after ResizeDelay.
func (m *MultiCalendar) Resize(width int) debounce.Flush {
	return m.resize.Trigger(width)
}

// Reload refreshes the last window in the background and then has every
// widget pull its data again.
func (m *MultiCalendar) Reload() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.reloadCtxTimeout)
		defer cancel()
		if err := m.ReloadContext(ctx); err != nil {
			m.log.Warn("reload failed", "err", err)
		}
	}()
}

// ReloadContext is Reload without the goroutine.
func (m *MultiCalendar) ReloadContext(ctx context.Context) error {
	if _, err := m.loader.Load(ctx, time.Time{}, time.Time{}); err != nil {
		return err
	}
	for _, w := range m.Widgets() {
		w.RefetchEvents()
	}
	return nil
}

// SetAutoReload reloads every d. Zero or negative clears the timer.
func (m *MultiCalendar) SetAutoReload(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reloadTimer != nil {
		m.reloadTimer.Stop()
		m.reloadTimer = nil
	}
	m.interval = 0
	if d <= 0 || m.closed {
		return
	}
	m.interval = d
	m.reloadTimer = m.s.Every(d, m.Reload)
}

// AutoReload returns the active reload interval, zero when off.
func (m *MultiCalendar) AutoReload() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.interval
}

// onRefreshed re-pulls widgets already showing the refreshed window, which
// are then served from cache.
func (m *MultiCalendar) onRefreshed(r model.Range) {
	for _, w := range m.Widgets() {
		if w.Range().Equal(r) {
			w.RefetchEvents()
		}
	}
}

// Close stops every timer and waits for background work.
func (m *MultiCalendar) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	if m.reloadTimer != nil {
		m.reloadTimer.Stop()
		m.reloadTimer = nil
	}
	m.interval = 0
	m.mu.Unlock()

	m.resize.Stop()
	m.teardown()
	m.wg.Wait()
	m.loader.Wait()
}

func (m *MultiCalendar) teardown() {
	m.indicator.Stop()
	for _, unsub := range m.unsubs {
		unsub()
	}
	m.unsubs = nil
}

// Dates returns the date/view controller.
func (m *MultiCalendar) Dates() *dateview.Controller { return m.dates }

// Loader returns the shared event loader.
func (m *MultiCalendar) Loader() *loader.Loader { return m.loader }

// Barrier returns the render barrier.
func (m *MultiCalendar) Barrier() *barrier.Barrier { return m.barrier }

// Bus returns the group bus.
func (m *MultiCalendar) Bus() *bus.Bus { return m.bus }

// Indicator returns the loading indicator.
func (m *MultiCalendar) Indicator() *loading.Indicator { return m.indicator }

// Widgets returns the widgets in configuration order. The first one is the
// controller.
func (m *MultiCalendar) Widgets() []Widget {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Widget(nil), m.widgets...)
}

// Calendars returns the validated calendar configs.
func (m *MultiCalendar) Calendars() []CalendarConfig { return m.cfg.Calendars }
