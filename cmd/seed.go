package cmd

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"multical/internal/db"
	"multical/internal/model"
	"multical/internal/util"

	"github.com/spf13/cobra"
)

func newSeedCmd(a *app) *cobra.Command {
	var (
		path      string
		calendars []string
		from      string
		weeks     int
		seed      int64
		reset     bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill the local store with random demo events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cals := demoCalendars
			if len(calendars) > 0 {
				parsed, err := parseCalendars(calendars)
				if err != nil {
					return err
				}
				cals = cals[:0:0]
				for _, c := range parsed {
					cals = append(cals, model.Calendar{UID: c.UID, Name: c.Name})
				}
			}

			start, end := demoWindow(time.Now(), weeks)
			if strings.TrimSpace(from) != "" {
				t, err := time.ParseInLocation(model.DateLayout, util.NormalizeDateInput(from), time.Local)
				if err != nil {
					return fmt.Errorf("invalid --from %q: %w", from, err)
				}
				start, end = t, t.AddDate(0, 0, 7*weeks)
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			p, err := a.dbPath(path)
			if err != nil {
				return err
			}
			conn, err := db.Open(p)
			if err != nil {
				return err
			}
			defer conn.Close()

			if reset {
				cleared := 0
				for _, c := range cals {
					n, err := db.DeleteCalendarEvents(conn, c.UID)
					if err != nil {
						return err
					}
					cleared += n
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d events\n", cleared)
			}

			created, err := db.Seed(conn, rand.New(rand.NewSource(seed)), cals, start, end)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d events for %d calendars (%s) into %s\n",
				created, len(cals), util.FormatRange(start, end), p)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "db", envOr("MULTICAL_DB", ""), "SQLite database (default <config-dir>/events.db)")
	cmd.Flags().StringSliceVar(&calendars, "calendar", nil, "Calendar as uid[:name] (default alice, bob, carol)")
	cmd.Flags().StringVar(&from, "from", "", "First day (default the Monday before this week)")
	cmd.Flags().IntVar(&weeks, "weeks", 4, "Number of weeks to fill")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (default time based)")
	cmd.Flags().BoolVar(&reset, "reset", false, "Delete the calendars' existing events first")
	return cmd
}
