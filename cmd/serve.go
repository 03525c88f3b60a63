package cmd

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"multical/internal/db"
	"multical/internal/model"
	"multical/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var demoCalendars = []model.Calendar{
	{UID: "alice", Name: "Alice", Description: "Product"},
	{UID: "bob", Name: "Bob", Description: "Engineering"},
	{UID: "carol", Name: "Carol", Description: "Support"},
}

func (a *app) dbPath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	dir, err := a.configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "events.db"), nil
}

func newServeCmd(a *app) *cobra.Command {
	var (
		addr  string
		path  string
		token string
		demo  bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve events from the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(a.cfg.LogLevel)}))
			if parseLevel(a.cfg.LogLevel) > slog.LevelDebug {
				gin.SetMode(gin.ReleaseMode)
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

			if demo {
				n, err := db.CountEvents(conn)
				if err != nil {
					return err
				}
				if n == 0 {
					from, to := demoWindow(time.Now(), 4)
					created, err := db.Seed(conn, rand.New(rand.NewSource(time.Now().UnixNano())), demoCalendars, from, to)
					if err != nil {
						return err
					}
					log.Info("seeded demo events", "events", created, "from", from.Format(model.DateLayout))
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.New(conn, server.WithToken(token), server.WithLogger(log))
			if err := srv.Run(ctx, addr); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", envOr("MULTICAL_ADDR", server.DefaultAddr), "Listen address")
	cmd.Flags().StringVar(&path, "db", envOr("MULTICAL_DB", ""), "SQLite database (default <config-dir>/events.db)")
	cmd.Flags().StringVar(&token, "token", envOr("MULTICAL_SERVE_TOKEN", ""), "Require this bearer token")
	cmd.Flags().BoolVar(&demo, "demo", false, "Seed demo calendars when the store is empty")
	return cmd
}

// demoWindow starts on the Monday before now and spans weeks weeks.
func demoWindow(now time.Time, weeks int) (time.Time, time.Time) {
	y, m, d := now.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	offset := (int(day.Weekday()) + 6) % 7
	from := day.AddDate(0, 0, -offset-7)
	return from, from.AddDate(0, 0, 7*weeks)
}
