package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"multical/internal/db"
	"multical/internal/multical"

	tea "github.com/charmbracelet/bubbletea"
)

func TestLoadDotEnvKeepsExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "# comment\nMULTICAL_TEST_A=\"from file\"\nMULTICAL_TEST_B=file\nbroken line\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MULTICAL_TEST_A", "")
	t.Setenv("MULTICAL_TEST_B", "env")

	loadDotEnv(path)

	if got := os.Getenv("MULTICAL_TEST_A"); got != "from file" {
		t.Fatalf("A = %q", got)
	}
	if got := os.Getenv("MULTICAL_TEST_B"); got != "env" {
		t.Fatalf("B = %q", got)
	}
}

func TestParseCalendars(t *testing.T) {
	got, err := parseCalendars([]string{"alice:Alice, bob", "carol:Carol Jones"})
	if err != nil {
		t.Fatal(err)
	}
	want := []multical.CalendarConfig{
		{UID: "alice", Name: "Alice"},
		{UID: "bob"},
		{UID: "carol", Name: "Carol Jones"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %+v", got)
	}
	for i := range want {
		if got[i].UID != want[i].UID || got[i].Name != want[i].Name {
			t.Errorf("%d = %+v, want %+v", i, got[i], want[i])
		}
	}
	if _, err := parseCalendars([]string{":nameless"}); err == nil {
		t.Fatal("empty uid accepted")
	}
}

func TestFileConfigRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "conf")
	fc, err := loadFileConfig(dir)
	if err != nil || fc.LoadURL != "" {
		t.Fatalf("missing file: %+v %v", fc, err)
	}

	in := FileConfig{
		LoadURL:           "https://cal.example.com/events",
		Token:             "s3cret",
		Calendars:         []multical.CalendarConfig{{UID: "alice", Name: "Alice"}},
		AutoReloadSeconds: 90,
	}
	if err := saveFileConfig(dir, in); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(configPath(dir))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("mode = %v", info.Mode().Perm())
	}
	out, err := loadFileConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if out.LoadURL != in.LoadURL || out.Token != in.Token || len(out.Calendars) != 1 || out.AutoReloadSeconds != 90 {
		t.Fatalf("round trip = %+v", out)
	}
}

func TestMergePrecedence(t *testing.T) {
	fc := FileConfig{
		LoadURL:           "http://file/events",
		Token:             "file-token",
		Calendars:         []multical.CalendarConfig{{UID: "file"}},
		ResponsiveWidth:   80,
		AutoReloadSeconds: 30,
	}

	flags := Config{LoadURL: "http://flag/events", Calendars: []multical.CalendarConfig{{UID: "flag"}}}
	flags.merge(fc)
	if flags.LoadURL != "http://flag/events" || flags.Calendars[0].UID != "flag" {
		t.Fatalf("flags lost: %+v", flags)
	}
	if flags.Token != "file-token" || flags.ResponsiveWidth != 80 || flags.AutoReload != 30*time.Second {
		t.Fatalf("file values not applied: %+v", flags)
	}

	var empty Config
	empty.merge(FileConfig{})
	if empty.ResponsiveWidth != 100 || empty.AutoReload != multical.AutoReloadInterval {
		t.Fatalf("defaults = %+v", empty)
	}
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("MULTICAL_TEST_DUR", "90")
	if got := envDuration("MULTICAL_TEST_DUR", 0); got != 90*time.Second {
		t.Fatalf("seconds = %s", got)
	}
	t.Setenv("MULTICAL_TEST_DUR", "2m")
	if got := envDuration("MULTICAL_TEST_DUR", 0); got != 2*time.Minute {
		t.Fatalf("duration = %s", got)
	}
	t.Setenv("MULTICAL_TEST_INT", "nope")
	if got := envInt("MULTICAL_TEST_INT", 7); got != 7 {
		t.Fatalf("int fallback = %d", got)
	}
}

func TestCalendarsURL(t *testing.T) {
	tests := []struct {
		in, want string
		ok       bool
	}{
		{"http://localhost:5000/events", "http://localhost:5000/calendars", true},
		{"https://x.test/api/events/?v=1", "https://x.test/api/calendars", true},
		{"https://x.test/feed", "", false},
	}
	for _, tt := range tests {
		got, err := calendarsURL(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("calendarsURL(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestDiscoverCalendars(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calendars" || r.Header.Get("Authorization") != "Bearer s3cret" {
			http.Error(w, "nope", http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`[{"uid":"alice","name":"Alice"},{"uid":"bob","name":"Bob","description":"ops"}]`))
	}))
	defer ts.Close()

	cals, err := discoverCalendars(context.Background(), ts.URL+"/events", "s3cret")
	if err != nil {
		t.Fatal(err)
	}
	if len(cals) != 2 || cals[1].UID != "bob" || cals[1].Description != "ops" {
		t.Fatalf("calendars = %+v", cals)
	}
	if _, err := discoverCalendars(context.Background(), ts.URL+"/events", ""); err == nil {
		t.Fatal("expected unauthorized error")
	}
}

func TestDemoWindow(t *testing.T) {
	thursday := time.Date(2024, 3, 7, 15, 0, 0, 0, time.Local)
	from, to := demoWindow(thursday, 2)
	if !from.Equal(time.Date(2024, 2, 26, 0, 0, 0, 0, time.Local)) {
		t.Fatalf("from = %s", from)
	}
	if !to.Equal(from.AddDate(0, 0, 14)) {
		t.Fatalf("to = %s", to)
	}
}

func TestSeedCommand(t *testing.T) {
	dir := t.TempDir()
	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"--config-dir", dir, "seed", "--calendar", "alice:Alice", "--from", "2024-03-04", "--weeks", "1", "--seed", "3"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "for 1 calendars") || !strings.Contains(out.String(), filepath.Join(dir, "events.db")) {
		t.Fatalf("output = %q", out.String())
	}
}

func TestSeedCommandReset(t *testing.T) {
	dir := t.TempDir()
	seed := func(extra ...string) string {
		t.Helper()
		root := NewRootCmd("test")
		var out bytes.Buffer
		root.SetOut(&out)
		args := []string{"--config-dir", dir, "seed", "--calendar", "alice", "--from", "2024-03-04", "--weeks", "2", "--seed", "5"}
		root.SetArgs(append(args, extra...))
		if err := root.Execute(); err != nil {
			t.Fatal(err)
		}
		return out.String()
	}
	count := func() int {
		t.Helper()
		conn, err := db.Open(filepath.Join(dir, "events.db"))
		if err != nil {
			t.Fatal(err)
		}
		defer conn.Close()
		n, err := db.CountEvents(conn)
		if err != nil {
			t.Fatal(err)
		}
		return n
	}

	seed()
	first := count()
	seed()
	if got := count(); got != 2*first {
		t.Fatalf("reseed without reset = %d, want %d", got, 2*first)
	}
	out := seed("--reset")
	if !strings.Contains(out, fmt.Sprintf("Cleared %d events", 2*first)) {
		t.Fatalf("output = %q", out)
	}
	if got := count(); got != first {
		t.Fatalf("after reset = %d, want %d", got, first)
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestOnboardingFlow(t *testing.T) {
	m := newOnboardingModel(FileConfig{})

	next, _ := m.Update(key("ftp://nope"))
	next, _ = next.Update(key("enter"))
	m = next.(onboardingModel)
	if m.step != stepURL || m.warn == "" {
		t.Fatalf("bad URL accepted: step=%v", m.step)
	}

	m.urlInput.SetValue("http://cal.test/events")
	next, _ = m.Update(key("enter"))
	next, _ = next.Update(key("tok"))
	next, _ = next.Update(key("enter"))
	m = next.(onboardingModel)
	if m.step != stepDone || m.config.LoadURL != "http://cal.test/events" || m.config.Token != "tok" {
		t.Fatalf("config = %+v step=%v", m.config, m.step)
	}
	if !strings.Contains(m.View(), "Setup Complete") {
		t.Fatal("done screen not rendered")
	}
}

func TestOnboardingEscUsesDemo(t *testing.T) {
	next, _ := newOnboardingModel(FileConfig{}).Update(key("esc"))
	m := next.(onboardingModel)
	if m.config.LoadURL != DefaultLoadURL || m.canceled {
		t.Fatalf("config = %+v", m.config)
	}
}
