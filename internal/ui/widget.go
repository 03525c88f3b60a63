package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"multical/internal/dateview"
	"multical/internal/loading"
	"multical/internal/model"
	"multical/internal/multical"
	"multical/internal/util"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// maxEventLines caps the events listed per day column.
const maxEventLines = 6

// CalendarWidget renders one calendar. Navigation is only wired on the
// controller widget; the others follow the shared date.
type CalendarWidget struct {
	cal        multical.CalendarConfig
	controller bool
	events     multical.DataProvider
	rendered   func(time.Time)
	viewRender func(time.Time)
	reload     func()
	wake       func()

	picker *WeekPicker
	busy   atomic.Bool

	mu     sync.Mutex
	view   dateview.View
	start  time.Time
	fetch  bool
	loaded model.Range
	items  []model.Event
	err    error
	cursor int
}

func newCalendarWidget(opts multical.WidgetOptions, wake func()) *CalendarWidget {
	v, _, ok := dateview.Lookup(opts.View)
	if !ok {
		v = dateview.Views[dateview.DefaultView]
	}
	w := &CalendarWidget{
		cal:        opts.Calendar,
		controller: opts.Controller,
		events:     opts.Events,
		rendered:   opts.Rendered,
		viewRender: opts.ViewRender,
		reload:     opts.Reload,
		wake:       wake,
		view:       v,
		start:      v.Normalize(opts.Date),
		fetch:      true,
		cursor:     -1,
	}
	if w.controller {
		w.picker = NewWeekPicker()
	}
	return w
}

func (w *CalendarWidget) UID() string { return w.cal.UID }

// Calendar returns the widget's configuration.
func (w *CalendarWidget) Calendar() multical.CalendarConfig { return w.cal }

// Controller reports whether this widget carries the shared controls.
func (w *CalendarWidget) Controller() bool { return w.controller }

func (w *CalendarWidget) GotoDate(t time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	start := w.view.Normalize(t)
	if start.Equal(w.start) {
		return
	}
	w.start = start
	w.fetch = true
}

func (w *CalendarWidget) ChangeView(name string) {
	v, _, ok := dateview.Lookup(name)
	if !ok {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if v.Name == w.view.Name {
		return
	}
	w.view = v
	w.start = v.Normalize(w.start)
	w.fetch = true
}

func (w *CalendarWidget) RefetchEvents() {
	w.mu.Lock()
	w.fetch = true
	w.mu.Unlock()
	if w.wake != nil {
		w.wake()
	}
}

func (w *CalendarWidget) Range() model.Range {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view.Span(w.start)
}

// View returns the active view.
func (w *CalendarWidget) View() dateview.View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.view
}

func (w *CalendarWidget) DatePicker() dateview.DatePicker { return w.picker }

func (w *CalendarWidget) LoadingElement() loading.Element { return w }

// SetBusy is called by the loading indicator, possibly off the Update loop.
func (w *CalendarWidget) SetBusy(busy bool) { w.busy.Store(busy) }

// Busy reports the loading state.
func (w *CalendarWidget) Busy() bool { return w.busy.Load() }

// FetchCmd returns the pending fetch, if any.
func (w *CalendarWidget) FetchCmd(ctx context.Context) tea.Cmd {
	w.mu.Lock()
	if !w.fetch || w.events == nil {
		w.mu.Unlock()
		return nil
	}
	w.fetch = false
	r := w.view.Span(w.start)
	w.mu.Unlock()

	uid, events := w.cal.UID, w.events
	return func() tea.Msg {
		evs, err := events(ctx, r.Start, r.End)
		return model.EventsLoadedMsg{UID: uid, Range: r, Events: evs, Err: err}
	}
}

// Apply stores a fetch result and reports the render. Results for a window
// the widget has since left are dropped.
func (w *CalendarWidget) Apply(msg model.EventsLoadedMsg) bool {
	w.mu.Lock()
	r := w.view.Span(w.start)
	if !msg.Range.Equal(r) {
		w.mu.Unlock()
		return false
	}
	w.loaded = msg.Range
	w.err = msg.Err
	w.items = append([]model.Event(nil), msg.Events...)
	sort.SliceStable(w.items, func(i, j int) bool {
		return w.items[i].Start.Before(w.items[j].Start.Time)
	})
	if w.cursor >= len(w.items) {
		w.cursor = len(w.items) - 1
	}
	w.mu.Unlock()

	if w.rendered != nil {
		w.rendered(msg.Range.Start)
	}
	return true
}

// Prev moves the group one view span back.
func (w *CalendarWidget) Prev() { w.shift(-1) }

// Next moves the group one view span forward.
func (w *CalendarWidget) Next() { w.shift(1) }

func (w *CalendarWidget) shift(dir int) {
	w.mu.Lock()
	v, start := w.view, w.start
	w.mu.Unlock()
	w.navigate(v.Shift(start, dir))
}

// Today moves the group to now.
func (w *CalendarWidget) Today(now time.Time) { w.navigate(now) }

func (w *CalendarWidget) navigate(t time.Time) {
	if w.viewRender != nil {
		w.viewRender(t)
	}
}

// Reload runs the group reload, controller only.
func (w *CalendarWidget) Reload() bool {
	if w.reload == nil {
		return false
	}
	w.reload()
	return true
}

// Days returns the days shown, optionally without Saturday and Sunday.
func (w *CalendarWidget) Days(weekends bool) []time.Time {
	r := w.Range()
	var days []time.Time
	for d := r.Start; d.Before(r.End); d = d.AddDate(0, 0, 1) {
		if !weekends && (d.Weekday() == time.Saturday || d.Weekday() == time.Sunday) {
			continue
		}
		days = append(days, d)
	}
	return days
}

// EventsOn returns the loaded events overlapping day.
func (w *CalendarWidget) EventsOn(day time.Time) []model.Event {
	end := day.AddDate(0, 0, 1)
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []model.Event
	for _, ev := range w.items {
		evEnd := ev.End.Time
		if evEnd.IsZero() || !evEnd.After(ev.Start.Time) {
			evEnd = ev.Start.Add(time.Nanosecond)
		}
		if ev.Start.Before(end) && evEnd.After(day) {
			out = append(out, ev)
		}
	}
	return out
}

// NextEvent moves the selection forward, wrapping around.
func (w *CalendarWidget) NextEvent() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.items) == 0 {
		w.cursor = -1
		return
	}
	w.cursor = (w.cursor + 1) % len(w.items)
}

// PrevEvent moves the selection back, wrapping around.
func (w *CalendarWidget) PrevEvent() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.items) == 0 {
		w.cursor = -1
		return
	}
	w.cursor--
	if w.cursor < 0 {
		w.cursor = len(w.items) - 1
	}
}

// Selected returns the selected event.
func (w *CalendarWidget) Selected() (model.Event, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cursor < 0 || w.cursor >= len(w.items) {
		return model.Event{}, false
	}
	return w.items[w.cursor], true
}

// Loaded reports whether the shown window has data.
func (w *CalendarWidget) Loaded() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.loaded.IsZero() && w.loaded.Equal(w.view.Span(w.start))
}

type widgetFrame struct {
	width    int
	active   bool
	weekends bool
	spinner  string
	now      time.Time
}

// Render draws the widget in f.width cells.
func (w *CalendarWidget) Render(f widgetFrame) string {
	style := CalendarStyle
	if f.active {
		style = ActiveCalendarStyle
	}
	inner := f.width - style.GetHorizontalFrameSize()
	if inner < 10 {
		inner = 10
	}

	title := w.renderTitle(inner, f)

	var body string
	w.mu.Lock()
	err := w.err
	w.mu.Unlock()
	switch {
	case !w.Loaded():
		body = EmptyStateStyle.Padding(0, 1).Render("Loading...")
	case err != nil:
		body = ErrorStyle.Render("Could not load events: " + err.Error())
	default:
		body = w.renderDays(inner, f)
	}

	return style.Width(f.width - style.GetHorizontalBorderSize()).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, body),
	)
}

func (w *CalendarWidget) renderTitle(width int, f widgetFrame) string {
	r := w.Range()
	left := LabelStyle.Render(w.cal.DisplayName()) + "  " + BreadcrumbStyle.Render(util.FormatRange(r.Start, r.End))

	var right string
	if w.controller {
		parts := []string{w.picker.View()}
		if w.Busy() {
			parts = append(parts, f.spinner)
		}
		right = strings.Join(parts, " ")
	}
	if desc := strings.TrimSpace(w.cal.Description); desc != "" && right == "" {
		right = HelpDescStyle.Render(util.Truncate(desc, width/2))
	}

	pad := width - lipgloss.Width(left) - lipgloss.Width(right)
	if pad < 1 {
		pad = 1
	}
	return left + strings.Repeat(" ", pad) + right
}

func (w *CalendarWidget) renderDays(width int, f widgetFrame) string {
	days := w.Days(f.weekends)
	if len(days) == 0 {
		return EmptyStateStyle.Padding(0, 1).Render("No days to show")
	}
	colWidth := width / len(days)
	if colWidth < 8 {
		colWidth = 8
	}

	gran := w.View().Granularity
	selected, hasSel := w.Selected()
	cols := make([]string, len(days))
	for i, day := range days {
		header := util.FormatDayHeader(day)
		if gran == dateview.Day {
			header = util.FormatDayHuman(day, f.now)
		}
		headerStyle := DayHeaderStyle
		if sameDate(day, f.now) {
			headerStyle = headerStyle.Foreground(ColorYellow)
		}
		lines := []string{headerStyle.Width(colWidth).Render(util.Truncate(fmt.Sprintf("%d %s", i+1, header), colWidth-2))}

		evs := w.EventsOn(day)
		for j, ev := range evs {
			if j == maxEventLines {
				lines = append(lines, HelpDescStyle.Render(fmt.Sprintf(" +%d more", len(evs)-j)))
				break
			}
			text := util.Truncate(eventLabel(ev, gran), colWidth-1)
			rowStyle := EventStyle
			if hasSel && ev.ID == selected.ID && ev.Start.Equal(selected.Start.Time) {
				rowStyle = SelectedEventStyle
			}
			lines = append(lines, rowStyle.Width(colWidth-1).Render(text))
		}
		if len(evs) == 0 {
			lines = append(lines, HelpDescStyle.Render(" -"))
		}
		cols[i] = lipgloss.NewStyle().Width(colWidth).Render(strings.Join(lines, "\n"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

// eventLabel is the one-line form of ev. Week columns are narrow, so they
// only show the start time.
func eventLabel(ev model.Event, gran dateview.Granularity) string {
	span := util.FormatEventTime(ev.Start.Time, ev.End.Time)
	if gran == dateview.Week && span != "all day" {
		span = ev.Start.Format("15:04")
	}
	return span + " " + ev.Title
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
