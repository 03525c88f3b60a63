package ui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"multical/internal/dateview"
	"multical/internal/model"
	"multical/internal/multical"
	"multical/internal/sched"
	"multical/pkg/eventstest"

	tea "github.com/charmbracelet/bubbletea"
)

type harness struct {
	m      *Model
	group  *multical.MultiCalendar
	fake   *sched.Fake
	server *eventstest.Server
	clicks []string
}

func newHarness(t *testing.T, width int) *harness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("NO_COLOR", "1")
	t.Setenv("MULTICAL_MD_STYLE", "notty")

	h := &harness{server: eventstest.NewServer(), fake: sched.NewFake(monday)}
	t.Cleanup(h.server.Close)
	h.server.AddEvent("alice", event("1", "Standup", monday.Add(9*time.Hour), 15*time.Minute))
	h.server.AddEvent("bob", event("2", "Review", monday.Add(33*time.Hour), time.Hour))

	h.m = New(Options{Width: width, Height: 40, State: LoadState(), Now: func() time.Time { return monday.Add(10 * time.Hour) }})
	group, err := multical.New(multical.Config{
		Target:  h.m,
		LoadURL: h.server.URL,
		Calendars: []multical.CalendarConfig{
			{UID: "alice", Name: "Alice"},
			{UID: "bob", Name: "Bob", TitleClick: func(uid string, start, end time.Time) {
				h.clicks = append(h.clicks, "title:"+uid+":"+start.Format(model.DateLayout))
			}},
		},
	}, multical.WithScheduler(h.m.Scheduler(h.fake)),
		multical.WithDate(monday),
		multical.WithAutoReload(time.Minute),
		multical.WithResponsiveWidth(100),
		multical.WithLocation(h.m.state),
	)
	if err != nil {
		t.Fatalf("multical.New: %v", err)
	}
	t.Cleanup(group.Close)
	h.m.Attach(group)
	h.group = group
	return h
}

// settle runs the fetches the model asked for and feeds the results back.
func (h *harness) settle(t *testing.T, cmds ...tea.Cmd) {
	t.Helper()
	for i := 0; i < 10 && len(cmds) > 0; i++ {
		var next []tea.Cmd
		for _, cmd := range cmds {
			next = append(next, h.run(cmd)...)
		}
		cmds = next
	}
}

func (h *harness) run(cmd tea.Cmd) []tea.Cmd {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case tea.BatchMsg:
		var out []tea.Cmd
		for _, c := range msg {
			out = append(out, h.run(c)...)
		}
		return out
	case model.EventsLoadedMsg:
		_, next := h.m.Update(msg)
		return []tea.Cmd{next}
	}
	return nil
}

func (h *harness) key(t *testing.T, k string) {
	t.Helper()
	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	_, cmd := h.m.Update(msg)
	if h.m.mode == model.ModeInsert {
		// The picker's cursor blink command sleeps; leave it unrun.
		return
	}
	h.settle(t, cmd)
}

func TestInitialLoadReachesBarrier(t *testing.T) {
	h := newHarness(t, 120)
	h.settle(t, h.m.fetchCmds())

	if h.server.Hits() != 1 {
		t.Fatalf("two calendars should share one request, hits=%d", h.server.Hits())
	}
	if h.m.synced.IsZero() || h.m.passes != 1 {
		t.Fatalf("barrier did not report, passes=%d", h.m.passes)
	}
	out := h.m.View()
	for _, want := range []string{"Alice", "Bob", "Standup", "Review", "2024-W10"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestNavigationMovesAllCalendars(t *testing.T) {
	h := newHarness(t, 120)
	h.settle(t, h.m.fetchCmds())

	h.key(t, "l")
	next := model.Range{Start: monday.AddDate(0, 0, 7), End: monday.AddDate(0, 0, 14)}
	for _, w := range h.m.widgets {
		if !w.Range().Equal(next) || !w.Loaded() {
			t.Fatalf("%s range = %s loaded=%v", w.UID(), w.Range(), w.Loaded())
		}
	}
	if h.m.passes < 2 {
		t.Fatalf("passes = %d", h.m.passes)
	}
	if got := h.m.state.State().Fragment; got != "start=2024-03-11" {
		t.Fatalf("deep link = %q", got)
	}

	h.key(t, "t")
	if !h.m.widgets[1].Range().Equal(week1) {
		t.Fatalf("today: %s", h.m.widgets[1].Range())
	}
}

func TestViewKeys(t *testing.T) {
	h := newHarness(t, 120)
	h.key(t, "d")
	if h.group.Dates().ViewType() != dateview.BasicDay {
		t.Fatalf("view = %s", h.group.Dates().ViewType())
	}
	if got := h.m.widgets[1].Range(); !got.End.Equal(got.Start.AddDate(0, 0, 1)) {
		t.Fatalf("bob did not follow: %s", got)
	}
	h.key(t, "w")
	if h.group.Dates().ViewType() != dateview.BasicWeek {
		t.Fatalf("view = %s", h.group.Dates().ViewType())
	}
}

func TestPickerEdit(t *testing.T) {
	h := newHarness(t, 120)
	h.key(t, "/")
	if h.m.mode != model.ModeInsert {
		t.Fatal("picker not opened")
	}
	h.key(t, "2024-W12")
	h.key(t, "enter")
	if h.m.mode != model.ModeNav {
		t.Fatal("still editing")
	}
	want := monday.AddDate(0, 0, 14)
	for _, w := range h.m.widgets {
		if !w.Range().Start.Equal(want) {
			t.Fatalf("%s start = %s", w.UID(), w.Range().Start)
		}
	}
}

func TestResizeSwitchesView(t *testing.T) {
	h := newHarness(t, 120)
	h.m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})
	h.fake.Advance(multical.ResizeDelay)
	// The debounced callback is queued for the Update loop.
	if h.group.Dates().ViewType() != dateview.BasicWeek {
		t.Fatal("switched before the queued task ran")
	}
	h.m.Update(taskMsg{})
	if h.group.Dates().ViewType() != dateview.BasicDay {
		t.Fatalf("view = %s", h.group.Dates().ViewType())
	}
}

func TestEventDetailAndHooks(t *testing.T) {
	h := newHarness(t, 120)
	h.settle(t, h.m.fetchCmds())

	h.key(t, "j")
	h.key(t, "tab")
	if !strings.Contains(h.m.info, "Review") {
		t.Fatalf("info = %q", h.m.info)
	}
	h.key(t, "enter")
	if h.m.screen != model.ScreenEventDetail || h.m.detailEvent.Title != "Review" {
		t.Fatalf("screen=%v event=%+v", h.m.screen, h.m.detailEvent)
	}
	if !strings.Contains(h.m.View(), "Review") {
		t.Fatal("detail not rendered")
	}
	h.key(t, "esc")
	if h.m.screen != model.ScreenCalendars {
		t.Fatal("esc did not close detail")
	}

	h.key(t, "T")
	if len(h.clicks) != 1 || h.clicks[0] != "title:bob:2024-03-04" {
		t.Fatalf("clicks = %v", h.clicks)
	}

	// Alice has no day header hook, so 2 opens Tuesday in day view.
	h.key(t, "k")
	h.key(t, "2")
	if h.group.Dates().ViewType() != dateview.BasicDay || !h.group.Dates().Date().Equal(monday.AddDate(0, 0, 1)) {
		t.Fatalf("day header: %s %s", h.group.Dates().ViewType(), h.group.Dates().Date())
	}
}

func TestTogglesPersist(t *testing.T) {
	h := newHarness(t, 120)

	h.key(t, "W")
	h.key(t, "a")
	if h.group.AutoReload() != 0 {
		t.Fatal("auto-reload still on")
	}

	data, err := os.ReadFile(filepath.Join(os.Getenv("HOME"), ".multical", "ui_state.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"hide_weekends": true`) || !strings.Contains(string(data), `"pause_auto_reload": true`) {
		t.Fatalf("state file = %s", data)
	}
	if got := LoadState().State(); !got.HideWeekends || !got.PauseAutoReload {
		t.Fatalf("reloaded state = %+v", got)
	}

	h.key(t, "a")
	if h.group.AutoReload() != time.Minute {
		t.Fatalf("auto-reload = %s", h.group.AutoReload())
	}
}

func TestAlertBanner(t *testing.T) {
	h := newHarness(t, 120)
	h.m.Alert("Error fetching events. Please refresh.")
	h.m.Update(taskMsg{})
	if !strings.Contains(h.m.View(), "Please refresh") {
		t.Fatal("alert not shown")
	}
	h.key(t, "l")
	if h.m.alert == "" {
		t.Fatal("navigation should be blocked by the alert")
	}
	h.key(t, "enter")
	if h.m.alert != "" {
		t.Fatal("enter should dismiss the alert")
	}
}
