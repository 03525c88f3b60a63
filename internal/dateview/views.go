package dateview

import (
	"fmt"
	"strings"
	"time"

	"multical/internal/model"
)

// Granularity is the unit dates are normalized to.
type Granularity string

const (
	Day  Granularity = "day"
	Week Granularity = "week"
)

// View describes one calendar rendering mode.
type View struct {
	Name        string
	Granularity Granularity
	// PickerType is the input type the date picker switches to.
	PickerType string
}

const (
	BasicDay  = "basicDay"
	BasicWeek = "basicWeek"
)

// Views are the built-in views, in order.
var Views = []View{
	{Name: BasicDay, Granularity: Day, PickerType: "date"},
	{Name: BasicWeek, Granularity: Week, PickerType: "week"},
}

// DefaultView is the index into Views used at startup.
const DefaultView = 1

// Lookup returns the view called name.
func Lookup(name string) (View, int, bool) {
	for i, v := range Views {
		if v.Name == name {
			return v, i, true
		}
	}
	return View{}, -1, false
}

// Normalize truncates t to the start of its bucket: local midnight for day
// views, the ISO week's Monday for week views.
func (v View) Normalize(t time.Time) time.Time {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	if v.Granularity == Week {
		offset := (int(d.Weekday()) + 6) % 7
		d = d.AddDate(0, 0, -offset)
	}
	return d
}

// Format renders t as the picker value for this view.
func (v View) Format(t time.Time) string {
	if v.Granularity == Week {
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	}
	return t.Format(model.DateLayout)
}

// Span returns the half-open window the view shows when starting at start.
func (v View) Span(start time.Time) model.Range {
	start = v.Normalize(start)
	return model.Range{Start: start, End: v.Shift(start, 1)}
}

// Shift moves t by n view spans in calendar days, so DST days of 23 or 25
// hours still count as one day.
func (v View) Shift(t time.Time, n int) time.Time {
	t = v.Normalize(t)
	if v.Granularity == Week {
		return t.AddDate(0, 0, 7*n)
	}
	return t.AddDate(0, 0, n)
}

// ParseValue reads a picker value: a day (2006-01-02), an ISO week
// (2006-W01) or any timestamp the events endpoint understands.
func ParseValue(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	var year, week int
	if n, err := fmt.Sscanf(strings.ToUpper(s), "%d-W%d", &year, &week); err == nil && n == 2 {
		return isoWeekStart(year, week)
	}
	return model.ParseTimestamp(s)
}

func isoWeekStart(year, week int) (time.Time, error) {
	if week < 1 || week > 53 {
		return time.Time{}, fmt.Errorf("week %d out of range", week)
	}
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.Local)
	monday := jan4.AddDate(0, 0, -((int(jan4.Weekday()) + 6) % 7))
	start := monday.AddDate(0, 0, (week-1)*7)
	if y, _ := start.ISOWeek(); y != year {
		return time.Time{}, fmt.Errorf("%d has no week %d", year, week)
	}
	return start, nil
}
