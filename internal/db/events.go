package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"multical/internal/model"

	"github.com/oklog/ulid/v2"
)

// Events are stored with model.DateTimeLayout in local time, so string
// comparison orders them chronologically.

// InsertEvent stores e for uid. An empty e.ID gets a new ULID.
func InsertEvent(db *sql.DB, uid string, e model.Event) (model.EventID, error) {
	if strings.TrimSpace(uid) == "" {
		return "", fmt.Errorf("failed to insert event: uid is required")
	}
	if e.Start.IsZero() {
		return "", fmt.Errorf("failed to insert event: start is required")
	}
	end := e.End.Time
	if end.IsZero() {
		end = e.Start.Time
	}
	if end.Before(e.Start.Time) {
		return "", fmt.Errorf("failed to insert event: end %s before start %s",
			end.Format(model.DateTimeLayout), e.Start.Format(model.DateTimeLayout))
	}
	id := e.ID
	if id == "" {
		id = model.EventID(ulid.Make().String())
	}

	var tooltip interface{}
	if e.Tooltip != "" {
		tooltip = e.Tooltip
	}

	_, err := db.Exec(`
		INSERT INTO events (id, uid, title, start_at, end_at, tooltip)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(id), uid, e.Title, formatTime(e.Start.Time), formatTime(end), tooltip)
	if err != nil {
		return "", fmt.Errorf("failed to insert event: %w", err)
	}
	return id, nil
}

// ListEvents returns the events of uids overlapping [start, end). Every
// requested uid has an entry, empty when it has no events.
func ListEvents(ctx context.Context, db *sql.DB, uids []string, start, end time.Time) (model.Payload, error) {
	payload := make(model.Payload, len(uids))
	if len(uids) == 0 {
		return payload, nil
	}
	args := make([]interface{}, 0, len(uids)+2)
	for _, uid := range uids {
		payload[uid] = []model.Event{}
		args = append(args, uid)
	}
	args = append(args, formatTime(end), formatTime(start))

	query := `
		SELECT id, uid, title, start_at, end_at, COALESCE(tooltip, '')
		FROM events
		WHERE uid IN (?` + strings.Repeat(", ?", len(uids)-1) + `)
		  AND start_at < ?
		  AND (end_at > ? OR end_at = start_at)
		ORDER BY start_at, id
	`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, uid, startAt, endAt string
			e                       model.Event
		)
		if err := rows.Scan(&id, &uid, &e.Title, &startAt, &endAt, &e.Tooltip); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		e.ID = model.EventID(id)
		if e.Start.Time, err = model.ParseTimestamp(startAt); err != nil {
			return nil, fmt.Errorf("event %s: %w", id, err)
		}
		if e.End.Time, err = model.ParseTimestamp(endAt); err != nil {
			return nil, fmt.Errorf("event %s: %w", id, err)
		}
		// Zero-length events only match when they start inside the window.
		if !e.End.After(e.Start.Time) && e.Start.Before(start) {
			continue
		}
		payload[uid] = append(payload[uid], e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return payload, nil
}

// ErrNotFound is returned when a row to change does not exist.
var ErrNotFound = errors.New("not found")

// DeleteEvent deletes an event.
func DeleteEvent(db *sql.DB, id model.EventID) error {
	res, err := db.Exec("DELETE FROM events WHERE id = ?", string(id))
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("event %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteCalendarEvents removes every event of uid and returns how many
// were deleted.
func DeleteCalendarEvents(db *sql.DB, uid string) (int, error) {
	res, err := db.Exec("DELETE FROM events WHERE uid = ?", uid)
	if err != nil {
		return 0, fmt.Errorf("failed to clear events of %s: %w", uid, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to clear events of %s: %w", uid, err)
	}
	return int(n), nil
}

// CountEvents returns the number of stored events.
func CountEvents(db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRow("SELECT COUNT(*) FROM events").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return n, nil
}

func formatTime(t time.Time) string {
	return t.In(time.Local).Format(model.DateTimeLayout)
}
