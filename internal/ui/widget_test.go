package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"multical/internal/dateview"
	"multical/internal/model"
	"multical/internal/multical"
)

var (
	monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.Local)
	week1  = model.Range{Start: monday, End: monday.AddDate(0, 0, 7)}
)

func event(id, title string, start time.Time, d time.Duration) model.Event {
	return model.Event{
		ID:    model.EventID(id),
		Title: title,
		Start: model.Timestamp{Time: start},
		End:   model.Timestamp{Time: start.Add(d)},
	}
}

type widgetRecorder struct {
	calls    []model.Range
	rendered []time.Time
	navs     []time.Time
	events   []model.Event
	err      error
}

func newRecordedWidget(t *testing.T, controller bool) (*CalendarWidget, *widgetRecorder) {
	t.Helper()
	p := &widgetRecorder{}
	opts := multical.WidgetOptions{
		Calendar:   multical.CalendarConfig{UID: "alice", Name: "Alice"},
		Controller: controller,
		View:       dateview.BasicWeek,
		Date:       monday.AddDate(0, 0, 3),
		Events: func(_ context.Context, start, end time.Time) ([]model.Event, error) {
			p.calls = append(p.calls, model.Range{Start: start, End: end})
			return p.events, p.err
		},
		Rendered: func(d time.Time) { p.rendered = append(p.rendered, d) },
	}
	if controller {
		opts.ViewRender = func(d time.Time) { p.navs = append(p.navs, d) }
	}
	return newCalendarWidget(opts, nil), p
}

func load(t *testing.T, w *CalendarWidget) model.EventsLoadedMsg {
	t.Helper()
	cmd := w.FetchCmd(context.Background())
	if cmd == nil {
		t.Fatal("expected a pending fetch")
	}
	msg, ok := cmd().(model.EventsLoadedMsg)
	if !ok {
		t.Fatalf("unexpected message %T", msg)
	}
	return msg
}

func TestWidgetFetchesItsWindow(t *testing.T) {
	w, p := newRecordedWidget(t, false)
	p.events = []model.Event{
		event("2", "Review", monday.Add(33*time.Hour), time.Hour),
		event("1", "Standup", monday.Add(9*time.Hour), 15*time.Minute),
	}

	if !w.Range().Equal(week1) {
		t.Fatalf("range = %s", w.Range())
	}
	msg := load(t, w)
	if msg.UID != "alice" || !msg.Range.Equal(week1) || len(p.calls) != 1 {
		t.Fatalf("fetch = %+v calls=%v", msg, p.calls)
	}
	if w.FetchCmd(context.Background()) != nil {
		t.Fatal("fetch should be consumed")
	}

	if !w.Apply(msg) {
		t.Fatal("current window dropped")
	}
	if len(p.rendered) != 1 || !p.rendered[0].Equal(monday) {
		t.Fatalf("render report = %v", p.rendered)
	}
	if got := w.EventsOn(monday); len(got) != 1 || got[0].Title != "Standup" {
		t.Fatalf("monday events = %+v", got)
	}
	if got := w.EventsOn(monday.AddDate(0, 0, 1)); len(got) != 1 || got[0].Title != "Review" {
		t.Fatalf("tuesday events = %+v", got)
	}

	w.NextEvent()
	if ev, ok := w.Selected(); !ok || ev.Title != "Standup" {
		t.Fatalf("events should be sorted by start, selected %+v", ev)
	}
	w.PrevEvent()
	if ev, _ := w.Selected(); ev.Title != "Review" {
		t.Fatalf("prev should wrap, selected %+v", ev)
	}
}

func TestWidgetDropsStaleResults(t *testing.T) {
	w, p := newRecordedWidget(t, false)
	msg := load(t, w)

	w.GotoDate(monday.AddDate(0, 0, 9))
	if w.Apply(msg) {
		t.Fatal("result for the old window applied")
	}
	if len(p.rendered) != 0 {
		t.Fatal("stale result reported a render")
	}
	if w.Loaded() {
		t.Fatal("widget claims data for the new window")
	}
	if w.FetchCmd(context.Background()) == nil {
		t.Fatal("moving should request a fetch")
	}
}

func TestWidgetGotoSameBucketIsNoop(t *testing.T) {
	w, _ := newRecordedWidget(t, false)
	load(t, w)
	w.GotoDate(monday.AddDate(0, 0, 5))
	if w.FetchCmd(context.Background()) != nil {
		t.Fatal("same week should not refetch")
	}
	w.RefetchEvents()
	if w.FetchCmd(context.Background()) == nil {
		t.Fatal("RefetchEvents should request a fetch")
	}
}

func TestWidgetChangeView(t *testing.T) {
	w, _ := newRecordedWidget(t, false)
	w.ChangeView(dateview.BasicDay)
	r := w.Range()
	if !r.Start.Equal(monday) || !r.End.Equal(monday.AddDate(0, 0, 1)) {
		t.Fatalf("day range = %s", r)
	}
	w.ChangeView("month")
	if w.View().Name != dateview.BasicDay {
		t.Fatal("unknown view applied")
	}
}

func TestWidgetErrorRender(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	w, p := newRecordedWidget(t, false)
	p.err = errors.New("boom")
	msg := load(t, w)
	if msg.Err == nil {
		t.Fatal("error not forwarded")
	}
	w.Apply(msg)
	out := w.Render(widgetFrame{width: 100, weekends: true, now: monday})
	if !strings.Contains(out, "boom") {
		t.Fatalf("error not rendered: %q", out)
	}
}

func TestWidgetDays(t *testing.T) {
	w, _ := newRecordedWidget(t, false)
	if got := len(w.Days(true)); got != 7 {
		t.Fatalf("with weekends: %d days", got)
	}
	days := w.Days(false)
	if len(days) != 5 || days[4].Weekday() != time.Friday {
		t.Fatalf("without weekends: %v", days)
	}
}

func TestControllerNavigation(t *testing.T) {
	w, p := newRecordedWidget(t, true)
	w.Next()
	w.Prev()
	now := time.Date(2024, 5, 1, 13, 0, 0, 0, time.Local)
	w.Today(now)

	if len(p.navs) != 3 {
		t.Fatalf("navs = %v", p.navs)
	}
	if !p.navs[0].Equal(monday.AddDate(0, 0, 7)) || !p.navs[1].Equal(monday.AddDate(0, 0, -7)) || !p.navs[2].Equal(now) {
		t.Fatalf("navs = %v", p.navs)
	}
	if w.DatePicker() == nil || w.LoadingElement() == nil {
		t.Fatal("controller should carry the controls")
	}
	w.SetBusy(true)
	if !w.Busy() {
		t.Fatal("busy not stored")
	}
	if w.Reload() {
		t.Fatal("no reload hook was set")
	}
}

func TestWeekPickerCommit(t *testing.T) {
	p := NewWeekPicker()
	var changes []string
	p.OnChange(func(v string) { changes = append(changes, v) })
	p.SetType("week")
	p.SetValue("2024-W10")

	p.Edit()
	if !p.Editing() {
		t.Fatal("picker not focused")
	}
	p.input.SetValue("Mar 20, 2024")
	p.Commit()
	if p.Editing() {
		t.Fatal("picker still focused after commit")
	}
	if len(changes) != 1 || changes[0] != "2024-03-20" {
		t.Fatalf("changes = %v", changes)
	}

	p.Edit()
	p.input.SetValue("2024-W11")
	p.Cancel()
	if len(changes) != 1 || p.Value() != "2024-W10" {
		t.Fatalf("cancel reported a change: %v", changes)
	}
}

func TestNavigationAcrossDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name  string
		view  string
		start time.Time
		next  time.Time
		prev  time.Time
	}{
		{"spring week", dateview.BasicWeek, time.Date(2024, 3, 4, 0, 0, 0, 0, ny), time.Date(2024, 3, 11, 0, 0, 0, 0, ny), time.Date(2024, 2, 26, 0, 0, 0, 0, ny)},
		{"spring day", dateview.BasicDay, time.Date(2024, 3, 10, 0, 0, 0, 0, ny), time.Date(2024, 3, 11, 0, 0, 0, 0, ny), time.Date(2024, 3, 9, 0, 0, 0, 0, ny)},
		{"fall day", dateview.BasicDay, time.Date(2024, 11, 3, 0, 0, 0, 0, ny), time.Date(2024, 11, 4, 0, 0, 0, 0, ny), time.Date(2024, 11, 2, 0, 0, 0, 0, ny)},
		{"after spring week", dateview.BasicWeek, time.Date(2024, 3, 11, 0, 0, 0, 0, ny), time.Date(2024, 3, 18, 0, 0, 0, 0, ny), time.Date(2024, 3, 4, 0, 0, 0, 0, ny)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var navs []time.Time
			w := newCalendarWidget(multical.WidgetOptions{
				Calendar:   multical.CalendarConfig{UID: "alice"},
				Controller: true,
				View:       tt.view,
				Date:       tt.start,
				Events: func(context.Context, time.Time, time.Time) ([]model.Event, error) {
					return nil, nil
				},
				ViewRender: func(d time.Time) { navs = append(navs, d) },
			}, nil)
			w.Next()
			w.Prev()
			if len(navs) != 2 || !navs[0].Equal(tt.next) || !navs[1].Equal(tt.prev) {
				t.Fatalf("navs = %v, want [%s %s]", navs, tt.next, tt.prev)
			}
		})
	}
}
