package util

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
)

// FormatDayHuman formats a day relative to now.
// "Today", "Tomorrow", "Yesterday", "Mon 04 Mar", "Mon 04 Mar '23"
func FormatDayHuman(t, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())

	switch int(day.Sub(today).Round(time.Hour).Hours() / 24) {
	case 0:
		return "Today"
	case 1:
		return "Tomorrow"
	case -1:
		return "Yesterday"
	}
	if t.Year() == now.Year() {
		return t.Format("Mon 02 Jan")
	}
	return t.Format("Mon 02 Jan '06")
}

// FormatDayHeader is the short column header for a day, e.g. "Mon 04".
func FormatDayHeader(t time.Time) string {
	return t.Format("Mon 02")
}

// FormatRange formats the half-open window [start, end) for a title bar.
func FormatRange(start, end time.Time) string {
	last := end.AddDate(0, 0, -1)
	switch {
	case !last.After(start):
		return start.Format("Mon 02 Jan 2006")
	case start.Year() != last.Year():
		return start.Format("02 Jan 2006") + " - " + last.Format("02 Jan 2006")
	case start.Month() != last.Month():
		return start.Format("02 Jan") + " - " + last.Format("02 Jan 2006")
	default:
		return start.Format("02") + " - " + last.Format("02 Jan 2006")
	}
}

// FormatEventTime formats an event's time span. Events that start and end
// at midnight are shown as all-day.
func FormatEventTime(start, end time.Time) string {
	if isMidnight(start) && (end.IsZero() || isMidnight(end)) {
		return "all day"
	}
	if end.IsZero() || !end.After(start) {
		return start.Format("15:04")
	}
	return start.Format("15:04") + "-" + end.Format("15:04")
}

// FormatEventWhen is the long form of FormatEventTime including the day.
func FormatEventWhen(start, end time.Time) string {
	day := start.Format("Mon 02 Jan 2006")
	span := FormatEventTime(start, end)
	if !end.IsZero() && end.After(start) && !sameDay(start, end.Add(-time.Nanosecond)) {
		return fmt.Sprintf("%s %s to %s %s", day, start.Format("15:04"), end.Format("Mon 02 Jan 2006"), end.Format("15:04"))
	}
	return day + ", " + span
}

// NormalizeDateInput rewrites loose date input to YYYY-MM-DD. Input it does
// not recognise, including ISO weeks like 2024-W10, is returned trimmed.
func NormalizeDateInput(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return s
	}

	layouts := []string{
		"January 2, 2006",
		"Jan 2, 2006",
		"2 Jan 2006",
		"1/2/2006",
		"01/02/2006",
		"2006/01/02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return s
}

// Truncate shortens s to width cells, keeping ANSI sequences intact.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(s) <= width {
		return s
	}
	if width < 3 {
		return ansi.Truncate(s, width, "")
	}
	return ansi.Truncate(s, width, "...")
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
