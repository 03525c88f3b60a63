package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestEventDecode(t *testing.T) {
	body := `{
		"alice": [
			{"id": 17, "title": "Standup", "start": "2024-03-04 09:00:00", "end": "2024-03-04 09:15:00"},
			{"id": "abc", "title": "Review", "start": "2024-03-05T14:00:00Z", "end": "2024-03-05T15:00:00Z", "tooltip": "room 2"}
		],
		"bob": []
	}`

	var p Payload
	if err := json.Unmarshal([]byte(body), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}

	alice := p.Events("alice")
	if len(alice) != 2 {
		t.Fatalf("expected 2 events for alice, got %d", len(alice))
	}
	if alice[0].ID != "17" {
		t.Errorf("numeric id: got %q", alice[0].ID)
	}
	if alice[1].ID != "abc" {
		t.Errorf("string id: got %q", alice[1].ID)
	}
	want := time.Date(2024, 3, 4, 9, 0, 0, 0, time.Local)
	if !alice[0].Start.Equal(want) {
		t.Errorf("start: got %v want %v", alice[0].Start, want)
	}
	if alice[1].Tooltip != "room 2" {
		t.Errorf("tooltip: got %q", alice[1].Tooltip)
	}
	if got := p.Events("carol"); got == nil || len(got) != 0 {
		t.Errorf("missing uid should give empty non-nil slice, got %#v", got)
	}
}

func TestEventDecodeRejectsBadTimestamp(t *testing.T) {
	var e Event
	err := json.Unmarshal([]byte(`{"id":1,"title":"x","start":"yesterday","end":"2024-01-01"}`), &e)
	if err == nil {
		t.Fatal("expected error for unparseable start")
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-01-02 03:04:05", time.Date(2024, 1, 2, 3, 4, 5, 0, time.Local)},
		{"2024-01-02", time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local)},
		{"2024-01-02T03:04:05Z", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if err != nil {
			t.Errorf("ParseTimestamp(%q): %v", tt.in, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("ParseTimestamp(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRangeEqual(t *testing.T) {
	a := Range{Start: time.Unix(100, 0), End: time.Unix(200, 0)}
	b := Range{Start: time.Unix(100, 0).UTC(), End: time.Unix(200, 0).UTC()}
	if !a.Equal(b) {
		t.Error("ranges with the same instants in different zones should be equal")
	}
	if a.Equal(Range{Start: a.Start, End: a.End.Add(time.Second)}) {
		t.Error("different end should not be equal")
	}
	if !(Range{}).IsZero() {
		t.Error("zero range should report IsZero")
	}
}

func TestConfigurationError(t *testing.T) {
	err := ConfigErr("calendars[1].uid", "uid is required")
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatal("expected *ConfigurationError")
	}
	if !strings.Contains(err.Error(), "uid") {
		t.Errorf("message should mention uid: %q", err.Error())
	}
}
