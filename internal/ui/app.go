package ui

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"multical/internal/dateview"
	"multical/internal/model"
	"multical/internal/multical"
	"multical/internal/sched"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Options configures the terminal host.
type Options struct {
	// Width is the terminal width known before the first resize message.
	Width  int
	Height int
	State  *StateStore
	Logger *slog.Logger
	Now    func() time.Time
}

// Model is the root Bubble Tea model. It is also the multical.Host the
// calendar group creates its widgets on.
type Model struct {
	tasks  *taskQueue
	log    *slog.Logger
	state  *StateStore
	now    func() time.Time
	ctx    context.Context
	cancel context.CancelFunc

	group      *multical.MultiCalendar
	widgets    []*CalendarWidget
	active     int
	autoReload time.Duration

	screen model.Screen
	mode   model.Mode
	width  int
	height int

	spinner    spinner.Model
	keys       KeyMap
	pickerKeys PickerKeyMap

	alert  string
	error  string
	info   string
	synced time.Time
	passes int

	detailUID   string
	detailEvent model.Event
}

// New creates the root model. Call Attach once the calendar group exists.
func New(opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.State == nil {
		opts.State = &StateStore{}
	}
	ctx, cancel := context.WithCancel(context.Background())

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = HelpKeyStyle

	return &Model{
		tasks:      newTaskQueue(),
		log:        opts.Logger,
		state:      opts.State,
		now:        opts.Now,
		ctx:        ctx,
		cancel:     cancel,
		width:      opts.Width,
		height:     opts.Height,
		screen:     model.ScreenCalendars,
		mode:       model.ModeNav,
		spinner:    sp,
		keys:       DefaultKeyMap(),
		pickerKeys: DefaultPickerKeyMap(),
	}
}

// NewWidget implements multical.Host.
func (m *Model) NewWidget(opts multical.WidgetOptions) (multical.Widget, error) {
	if opts.Events == nil {
		return nil, fmt.Errorf("calendar %q has no data provider", opts.Calendar.UID)
	}
	w := newCalendarWidget(opts, func() { m.tasks.post(nil) })
	m.widgets = append(m.widgets, w)
	return w, nil
}

// Width implements multical.Host.
func (m *Model) Width() int { return m.width }

// Post runs fn on the Update loop.
func (m *Model) Post(fn func()) { m.tasks.post(fn) }

// Scheduler wraps base so its callbacks run on the Update loop.
func (m *Model) Scheduler(base sched.Scheduler) sched.Scheduler { return sched.Dispatch(base, m.Post) }

// Alert shows msg in a banner until dismissed. Safe from any goroutine.
func (m *Model) Alert(msg string) {
	m.Post(func() { m.alert = msg })
}

// AllRendered is called by the render barrier once every calendar drew the
// same window.
func (m *Model) AllRendered() {
	m.synced = m.now()
	m.passes++
	m.log.Debug("all calendars rendered", "passes", m.passes)
}

// Attach binds the calendar group and restores persisted options.
func (m *Model) Attach(group *multical.MultiCalendar) {
	m.group = group
	m.autoReload = group.AutoReload()
	if m.autoReload == 0 {
		m.autoReload = multical.AutoReloadInterval
	}
	group.Barrier().SetRoot(m)
	if m.state.State().PauseAutoReload {
		group.SetAutoReload(0)
	}
}

// Close stops the task queue and cancels in-flight fetches.
func (m *Model) Close() {
	m.tasks.close()
	m.cancel()
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.tasks.wait(), m.spinner.Tick, m.fetchCmds())
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	return m, tea.Batch(cmd, m.fetchCmds())
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.group != nil {
			m.group.Resize(msg.Width)
		}
		return nil

	case taskMsg:
		m.tasks.drain()
		return m.tasks.wait()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return cmd

	case model.EventsLoadedMsg:
		if w := m.widget(msg.UID); w != nil {
			if !w.Apply(msg) {
				m.log.Debug("dropping stale events", "uid", msg.UID, "range", msg.Range.String())
			} else if msg.Err != nil {
				m.log.Warn("data provider failed", "uid", msg.UID, "err", msg.Err)
			}
		}
		return nil

	case model.AlertMsg:
		m.alert = msg.Text
		return nil

	case model.InfoMsg:
		m.info = msg.Text
		return nil

	case model.ErrorMsg:
		m.error = msg.Err.Error()
		return nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.alert != "" {
			if msg.String() == "enter" || msg.String() == "esc" {
				m.alert = ""
			}
			return nil
		}
		if m.mode == model.ModeInsert {
			return m.handleInsertMode(msg)
		}
		switch m.screen {
		case model.ScreenHelp:
			return m.handleHelpNav(msg)
		case model.ScreenEventDetail:
			return m.handleDetailNav(msg)
		default:
			return m.handleNavMode(msg)
		}
	}
	return nil
}

func (m *Model) quit() tea.Cmd {
	m.Close()
	return tea.Quit
}

// fetchCmds collects the pending fetch of every widget.
func (m *Model) fetchCmds() tea.Cmd {
	var cmds []tea.Cmd
	for _, w := range m.widgets {
		if cmd := w.FetchCmd(m.ctx); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) widget(uid string) *CalendarWidget {
	for _, w := range m.widgets {
		if w.UID() == uid {
			return w
		}
	}
	return nil
}

func (m *Model) controller() *CalendarWidget {
	for _, w := range m.widgets {
		if w.Controller() {
			return w
		}
	}
	return nil
}

func (m *Model) activeWidget() *CalendarWidget {
	if m.active < 0 || m.active >= len(m.widgets) {
		return nil
	}
	return m.widgets[m.active]
}

func (m *Model) handleInsertMode(msg tea.KeyMsg) tea.Cmd {
	ctrl := m.controller()
	if ctrl == nil {
		m.mode = model.ModeNav
		return nil
	}
	switch {
	case key.Matches(msg, m.pickerKeys.Commit):
		m.mode = model.ModeNav
		before := ctrl.picker.Value()
		ctrl.picker.Commit()
		if ctrl.picker.Value() == before {
			m.info = "Date unchanged"
		} else {
			m.info = ""
		}
		return nil
	case key.Matches(msg, m.pickerKeys.Cancel):
		m.mode = model.ModeNav
		ctrl.picker.Cancel()
		return nil
	}
	return ctrl.picker.Update(msg)
}

func (m *Model) handleHelpNav(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Help):
		m.screen = model.ScreenCalendars
	}
	return nil
}

func (m *Model) handleDetailNav(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Back), key.Matches(msg, m.keys.Prev):
		m.screen = model.ScreenCalendars
	case key.Matches(msg, m.keys.NextEvent), key.Matches(msg, m.keys.PrevEvent):
		w := m.widget(m.detailUID)
		if w == nil {
			return nil
		}
		if key.Matches(msg, m.keys.NextEvent) {
			w.NextEvent()
		} else {
			w.PrevEvent()
		}
		if ev, ok := w.Selected(); ok {
			m.openEvent(w, ev)
		}
	}
	return nil
}

// handleNavMode handles the calendars screen.
func (m *Model) handleNavMode(msg tea.KeyMsg) tea.Cmd {
	m.error = ""
	ctrl := m.controller()
	w := m.activeWidget()

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Help):
		m.screen = model.ScreenHelp
	case key.Matches(msg, m.keys.Prev):
		if ctrl != nil {
			ctrl.Prev()
		}
	case key.Matches(msg, m.keys.Next):
		if ctrl != nil {
			ctrl.Next()
		}
	case key.Matches(msg, m.keys.Today):
		if ctrl != nil {
			ctrl.Today(m.now())
		}
	case key.Matches(msg, m.keys.DayView):
		m.setView(dateview.BasicDay)
	case key.Matches(msg, m.keys.WeekView):
		m.setView(dateview.BasicWeek)
	case key.Matches(msg, m.keys.EditDate):
		if ctrl != nil && ctrl.picker != nil {
			m.mode = model.ModeInsert
			return ctrl.picker.Edit()
		}
	case key.Matches(msg, m.keys.Reload):
		if ctrl != nil && ctrl.Reload() {
			m.info = "Reloading events"
		}
	case key.Matches(msg, m.keys.AutoReload):
		m.toggleAutoReload()
	case key.Matches(msg, m.keys.Weekends):
		m.toggleWeekends()
	case key.Matches(msg, m.keys.Down):
		if len(m.widgets) > 0 {
			m.active = (m.active + 1) % len(m.widgets)
		}
	case key.Matches(msg, m.keys.Up):
		if len(m.widgets) > 0 {
			m.active = (m.active - 1 + len(m.widgets)) % len(m.widgets)
		}
	case key.Matches(msg, m.keys.NextEvent):
		if w != nil {
			w.NextEvent()
			m.showTooltip(w)
		}
	case key.Matches(msg, m.keys.PrevEvent):
		if w != nil {
			w.PrevEvent()
			m.showTooltip(w)
		}
	case key.Matches(msg, m.keys.Select):
		if w == nil {
			return nil
		}
		ev, ok := w.Selected()
		if !ok {
			m.info = "No event selected (tab to select)"
			return nil
		}
		if hook := w.Calendar().EventClick; hook != nil {
			hook(ev, w.UID())
		}
		m.openEvent(w, ev)
	case key.Matches(msg, m.keys.Title):
		if w != nil {
			m.titleClick(w)
		}
	case key.Matches(msg, m.keys.DayHeader):
		if w != nil {
			m.dayHeaderClick(w, int(msg.String()[0]-'0'))
		}
	}
	return nil
}

func (m *Model) setView(name string) {
	if m.group == nil {
		return
	}
	m.group.Dates().SetViewType(name)
}

func (m *Model) toggleAutoReload() {
	if m.group == nil {
		return
	}
	paused := m.group.AutoReload() > 0
	if paused {
		m.group.SetAutoReload(0)
		m.info = "Auto-reload off"
	} else {
		m.group.SetAutoReload(m.autoReload)
		m.info = fmt.Sprintf("Auto-reload every %s", m.autoReload)
	}
	if err := m.state.Update(func(s *UIState) { s.PauseAutoReload = paused }); err != nil {
		m.log.Warn("saving ui state", "err", err)
	}
}

func (m *Model) toggleWeekends() {
	var hidden bool
	if err := m.state.Update(func(s *UIState) {
		s.HideWeekends = !s.HideWeekends
		hidden = s.HideWeekends
	}); err != nil {
		m.log.Warn("saving ui state", "err", err)
	}
	if hidden {
		m.info = "Weekends hidden"
	} else {
		m.info = "Weekends shown"
	}
}

func (m *Model) showTooltip(w *CalendarWidget) {
	ev, ok := w.Selected()
	if !ok {
		m.info = ""
		return
	}
	if tip := strings.TrimSpace(ev.Tooltip); tip != "" {
		m.info = ev.Title + ": " + tip
		return
	}
	m.info = ev.Title
}

func (m *Model) openEvent(w *CalendarWidget, ev model.Event) {
	m.detailUID = w.UID()
	m.detailEvent = ev
	m.screen = model.ScreenEventDetail
}

func (m *Model) titleClick(w *CalendarWidget) {
	r := w.Range()
	if hook := w.Calendar().TitleClick; hook != nil {
		hook(w.UID(), r.Start, r.End)
		return
	}
	m.info = fmt.Sprintf("%s: %s", w.Calendar().DisplayName(), r.String())
}

// dayHeaderClick runs the hook for the nth visible day. Without a hook it
// opens that day in the day view.
func (m *Model) dayHeaderClick(w *CalendarWidget, n int) {
	days := w.Days(!m.state.State().HideWeekends)
	if n < 1 || n > len(days) {
		return
	}
	day := days[n-1]
	if hook := w.Calendar().DayHeaderClick; hook != nil {
		hook(day, w.UID())
		return
	}
	if m.group == nil {
		return
	}
	m.group.Dates().SetViewType(dateview.BasicDay)
	m.group.Dates().SetDate(day)
}

// View renders the UI.
func (m *Model) View() string {
	if m.width == 0 {
		return ""
	}
	if m.screen == model.ScreenHelp {
		return RenderFullHelp(m.width, m.height)
	}

	var crumbs []string
	var content string
	switch m.screen {
	case model.ScreenEventDetail:
		name := m.detailUID
		if w := m.widget(m.detailUID); w != nil {
			name = w.Calendar().DisplayName()
		}
		crumbs = []string{"Calendars", name}
		content = PanelStyle.Width(m.width - 2).Render(renderMarkdown(eventMarkdown(name, m.detailEvent), m.width-8))
	default:
		crumbs = []string{"Calendars"}
		content = m.renderCalendars()
	}

	rows := []string{m.renderHeader(crumbs)}
	if m.alert != "" {
		rows = append(rows, AlertStyle.Width(m.width).Render(m.alert+"  (enter to dismiss)"))
	}
	if m.error != "" {
		rows = append(rows, ErrorStyle.Width(m.width).Render("Error: "+m.error))
	}
	if m.info != "" {
		rows = append(rows, SuccessStyle.Width(m.width).Render(m.info))
	}
	rows = append(rows, content, RenderHelp(m.screen, m.mode, m.width))
	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m *Model) renderCalendars() string {
	if len(m.widgets) == 0 {
		return EmptyStateStyle.Render("No calendars configured")
	}
	frame := widgetFrame{
		width:    m.width,
		weekends: !m.state.State().HideWeekends,
		spinner:  m.spinner.View(),
		now:      m.now(),
	}
	parts := make([]string, len(m.widgets))
	for i, w := range m.widgets {
		frame.active = i == m.active
		parts[i] = w.Render(frame)
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m *Model) renderHeader(crumbs []string) string {
	title := HeaderStyle.Render("multical")
	var breadcrumb string
	if len(crumbs) > 0 {
		separator := BreadcrumbStyle.Render(" › ")
		parts := make([]string, len(crumbs))
		for i, part := range crumbs {
			if i == len(crumbs)-1 {
				parts[i] = BreadcrumbActiveStyle.Render(part)
			} else {
				parts[i] = BreadcrumbStyle.Render(part)
			}
		}
		breadcrumb = separator + strings.Join(parts, separator)
	}
	left := "  " + title + breadcrumb

	var status []string
	if m.group != nil {
		if d := m.group.AutoReload(); d > 0 {
			status = append(status, "auto "+d.String())
		} else {
			status = append(status, "auto off")
		}
	}
	if !m.synced.IsZero() {
		status = append(status, "synced "+m.synced.Format("15:04:05"))
	}
	status = append(status, m.now().Format("Mon 02 Jan"))
	right := BreadcrumbStyle.Render(strings.Join(status, " · ")) + "  "

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}
	return TitleStyle.Width(m.width).Render(left + strings.Repeat(" ", padding) + right)
}
