package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"multical/internal/db"
	"multical/internal/loader"
	"multical/internal/model"

	"github.com/gin-gonic/gin"
)

var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.Local)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newStore(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	for _, c := range []model.Calendar{{UID: "alice", Name: "Alice"}, {UID: "bob", Name: "Bob"}} {
		if err := db.UpsertCalendar(conn, c); err != nil {
			t.Fatal(err)
		}
	}
	standup := model.Event{
		ID:      "1",
		Title:   "Standup",
		Start:   model.Timestamp{Time: monday.Add(9 * time.Hour)},
		End:     model.Timestamp{Time: monday.Add(9*time.Hour + 15*time.Minute)},
		Tooltip: "daily",
	}
	if _, err := db.InsertEvent(conn, "alice", standup); err != nil {
		t.Fatal(err)
	}
	return conn
}

func quiet() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func post(t *testing.T, h http.Handler, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/events", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestEventsEndpoint(t *testing.T) {
	h := New(newStore(t), WithLogger(quiet())).Handler()
	body := fmt.Sprintf(`{"uid":["alice","bob"],"start":%d,"end":%d}`, monday.Unix(), monday.AddDate(0, 0, 7).Unix())

	rec := post(t, h, body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var payload model.Payload
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatal(err)
	}
	if len(payload["alice"]) != 1 || payload["alice"][0].Title != "Standup" || payload["alice"][0].Tooltip != "daily" {
		t.Fatalf("alice = %+v", payload["alice"])
	}
	if bob, ok := payload["bob"]; !ok || len(bob) != 0 {
		t.Fatalf("bob = %#v", bob)
	}
}

func TestEventsValidation(t *testing.T) {
	h := New(newStore(t), WithLogger(quiet())).Handler()
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"uid":`},
		{"no calendars", fmt.Sprintf(`{"uid":[],"start":%d,"end":%d}`, monday.Unix(), monday.Unix()+60)},
		{"empty window", fmt.Sprintf(`{"uid":["alice"],"start":%d,"end":%d}`, monday.Unix(), monday.Unix())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := post(t, h, tt.body, ""); rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
		})
	}
}

func TestDeleteEvent(t *testing.T) {
	conn := newStore(t)
	h := New(conn, WithLogger(quiet()), WithToken("s3cret")).Handler()

	del := func(id, token string) int {
		req := httptest.NewRequest(http.MethodDelete, "/events/"+id, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := del("1", ""); code != http.StatusUnauthorized {
		t.Fatalf("anonymous delete = %d", code)
	}
	if code := del("1", "s3cret"); code != http.StatusNoContent {
		t.Fatalf("delete = %d", code)
	}
	if code := del("1", "s3cret"); code != http.StatusNotFound {
		t.Fatalf("second delete = %d", code)
	}
	if n, _ := db.CountEvents(conn); n != 0 {
		t.Fatalf("count = %d", n)
	}
}

func TestBearerToken(t *testing.T) {
	h := New(newStore(t), WithToken("s3cret"), WithLogger(quiet())).Handler()
	body := fmt.Sprintf(`{"uid":["alice"],"start":%d,"end":%d}`, monday.Unix(), monday.AddDate(0, 0, 1).Unix())

	if rec := post(t, h, body, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("no token: %d", rec.Code)
	}
	if rec := post(t, h, body, "wrong"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong token: %d", rec.Code)
	}
	if rec := post(t, h, body, "s3cret"); rec.Code != http.StatusOK {
		t.Fatalf("right token: %d", rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz should stay open, got %d", rec.Code)
	}
}

func TestCalendarsAndCORS(t *testing.T) {
	h := New(newStore(t), WithLogger(quiet())).Handler()

	req := httptest.NewRequest(http.MethodGet, "/calendars", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin = %q", got)
	}
	var cals []model.Calendar
	if err := json.Unmarshal(rec.Body.Bytes(), &cals); err != nil {
		t.Fatal(err)
	}
	if len(cals) != 2 || cals[0].UID != "alice" {
		t.Fatalf("calendars = %+v", cals)
	}
}

func TestLoaderRoundTrip(t *testing.T) {
	ts := httptest.NewServer(New(newStore(t), WithToken("s3cret"), WithLogger(quiet())).Handler())
	defer ts.Close()

	l := loader.New(loader.WithBearerToken("s3cret"), loader.WithLogger(quiet()))
	l.Init([]string{"alice", "bob"}, ts.URL+"/events")

	payload, err := l.Load(context.Background(), monday, monday.AddDate(0, 0, 7))
	if err != nil {
		t.Fatal(err)
	}
	got := payload.Events("alice")
	if len(got) != 1 || got[0].ID != "1" || !got[0].Start.Equal(monday.Add(9*time.Hour)) {
		t.Fatalf("alice = %+v", got)
	}
	if len(payload.Events("bob")) != 0 {
		t.Fatalf("bob = %+v", payload.Events("bob"))
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(newStore(t), WithLogger(quiet()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}
