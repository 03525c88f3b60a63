package db

import (
	"database/sql"
	"fmt"
	"strings"

	"multical/internal/model"
)

// UpsertCalendar creates or renames a calendar.
func UpsertCalendar(db *sql.DB, c model.Calendar) error {
	if strings.TrimSpace(c.UID) == "" {
		return fmt.Errorf("failed to save calendar: uid is required")
	}
	name := c.Name
	if strings.TrimSpace(name) == "" {
		name = c.UID
	}
	var desc interface{}
	if c.Description != "" {
		desc = c.Description
	}

	_, err := db.Exec(`
		INSERT INTO calendars (uid, name, description)
		VALUES (?, ?, ?)
		ON CONFLICT(uid) DO UPDATE SET name = excluded.name, description = excluded.description
	`, c.UID, name, desc)
	if err != nil {
		return fmt.Errorf("failed to save calendar: %w", err)
	}
	return nil
}

// ListCalendars returns all calendars ordered by name.
func ListCalendars(db *sql.DB) ([]model.Calendar, error) {
	rows, err := db.Query(`
		SELECT uid, name, COALESCE(description, '')
		FROM calendars
		ORDER BY name COLLATE NOCASE, uid
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list calendars: %w", err)
	}
	defer rows.Close()

	var results []model.Calendar
	for rows.Next() {
		var c model.Calendar
		if err := rows.Scan(&c.UID, &c.Name, &c.Description); err != nil {
			return nil, fmt.Errorf("failed to scan calendar row: %w", err)
		}
		results = append(results, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating calendar rows: %w", err)
	}
	return results, nil
}
