package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Event is a single calendar entry as served by the events endpoint.
type Event struct {
	ID      EventID   `json:"id"`
	Title   string    `json:"title"`
	Start   Timestamp `json:"start"`
	End     Timestamp `json:"end"`
	Tooltip string    `json:"tooltip,omitempty"`
}

// Payload maps a calendar uid to its events, in server order.
type Payload map[string][]Event

// Events returns the slice for uid, never nil.
func (p Payload) Events(uid string) []Event {
	if p == nil || p[uid] == nil {
		return []Event{}
	}
	return p[uid]
}

// Calendar is a calendar known to the demo endpoint.
type Calendar struct {
	UID         string `json:"uid"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Range is a fetched date window.
type Range struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether neither bound is set.
func (r Range) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Equal compares both bounds at instant precision.
func (r Range) Equal(o Range) bool {
	return r.Start.Equal(o.Start) && r.End.Equal(o.End)
}

func (r Range) String() string {
	return r.Start.Format(DateLayout) + ".." + r.End.Format(DateLayout)
}

// EventID accepts either a JSON string or a JSON number.
type EventID string

func (id *EventID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("event id: %w", err)
		}
		*id = EventID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("event id: %w", err)
	}
	*id = EventID(n.String())
	return nil
}

const (
	// DateLayout is the day-precision layout used for deep links and day views.
	DateLayout = "2006-01-02"
	// DateTimeLayout is the layout the events endpoint uses for start/end.
	DateTimeLayout = "2006-01-02 15:04:05"
)

var timestampLayouts = []string{
	DateTimeLayout,
	time.RFC3339,
	"2006-01-02T15:04:05",
	DateLayout,
}

// ParseTimestamp parses the date-time formats the events endpoint may send.
// Values without a zone are read in local time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// Timestamp is a time.Time that decodes from the endpoint's string formats.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Format(DateTimeLayout))
}
