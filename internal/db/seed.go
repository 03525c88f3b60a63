package db

import (
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"multical/internal/model"
)

// MaxSeedEvents bounds the random event count per calendar (exclusive).
const MaxSeedEvents = 10

// Seed stores calendars and gives each a random number of events on days in
// [from, to). It returns the number of events created.
func Seed(db *sql.DB, rng *rand.Rand, calendars []model.Calendar, from, to time.Time) (int, error) {
	from = dayStart(from)
	to = dayStart(to)
	days := int(to.Sub(from).Hours() / 24)
	if days < 1 {
		days = 1
	}

	created := 0
	for _, c := range calendars {
		if err := UpsertCalendar(db, c); err != nil {
			return created, err
		}
		n := rng.Intn(MaxSeedEvents)
		for i := 0; i < n; i++ {
			day := from.AddDate(0, 0, rng.Intn(days))
			if _, err := InsertEvent(db, c.UID, demoEvent(rng, day)); err != nil {
				return created, fmt.Errorf("seed %s: %w", c.UID, err)
			}
			created++
		}
	}
	return created, nil
}

func demoEvent(rng *rand.Rand, day time.Time) model.Event {
	startHour := rng.Intn(22)
	startMin := rng.Intn(59)
	endHour := startHour + rng.Intn(23-startHour)
	endMin := rng.Intn(59)
	if endHour == startHour && endMin < startMin {
		startMin, endMin = endMin, startMin
	}

	start := day.Add(time.Duration(startHour)*time.Hour + time.Duration(startMin)*time.Minute)
	end := day.Add(time.Duration(endHour)*time.Hour + time.Duration(endMin)*time.Minute)
	return model.Event{
		Title:   "Simple title - " + day.Format(model.DateLayout),
		Start:   model.Timestamp{Time: start},
		End:     model.Timestamp{Time: end},
		Tooltip: fmt.Sprintf("%s to %s", start.Format("15:04"), end.Format("15:04")),
	}
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
