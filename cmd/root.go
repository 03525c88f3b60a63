package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"multical/internal/loader"
	"multical/internal/multical"
	"multical/internal/sched"
	"multical/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type app struct {
	cfg       Config
	calendars []string
}

// Execute runs the CLI.
func Execute(version string) error {
	return NewRootCmd(version).Execute()
}

func NewRootCmd(version string) *cobra.Command {
	// .env files feed the MULTICAL_* defaults below.
	loadDotEnv(".env")
	loadDotEnv(".env.local")

	a := &app{}

	cmd := &cobra.Command{
		Use:          "multical",
		Short:        "Several calendars side by side, one shared date",
		Version:      version,
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Browse the calendars configured in ~/.multical/config.json
  multical

  # Point at an endpoint and pick calendars
  multical --url http://localhost:5000/events --calendar alice:Alice,bob:Bob

  # Run the demo endpoint with generated events
  multical seed && multical serve
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), a)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.cfg.Dir, "config-dir", envOr("MULTICAL_HOME", ""), "Directory for config.json, logs and the demo database (default ~/.multical)")
	flags.StringVar(&a.cfg.LogLevel, "log-level", envOr("MULTICAL_LOG_LEVEL", "info"), "Log level (debug|info|warn|error)")

	local := cmd.Flags()
	local.StringVar(&a.cfg.LoadURL, "url", envOr("MULTICAL_LOAD_URL", ""), "Events endpoint")
	local.StringVar(&a.cfg.Token, "token", envOr("MULTICAL_TOKEN", ""), "Bearer token for the events endpoint")
	local.StringSliceVar(&a.calendars, "calendar", envList("MULTICAL_CALENDARS"), "Calendar as uid[:name]; repeat or comma separate")
	local.IntVar(&a.cfg.ResponsiveWidth, "responsive-width", envInt("MULTICAL_RESPONSIVE_WIDTH", 0), "Width at or below which the day view is used")
	local.DurationVar(&a.cfg.AutoReload, "auto-reload", envDuration("MULTICAL_AUTO_RELOAD", 0), "Auto-reload interval")

	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newSeedCmd(a))

	return cmd
}

func (a *app) configDir() (string, error) {
	if a.cfg.Dir != "" {
		if err := os.MkdirAll(a.cfg.Dir, 0700); err != nil {
			return "", fmt.Errorf("failed to create config directory: %w", err)
		}
		return a.cfg.Dir, nil
	}
	dir, err := defaultConfigDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	a.cfg.Dir = dir
	return dir, nil
}

// resolve merges flags, environment and config.json, running onboarding
// when no endpoint is known yet.
func (a *app) resolve(ctx context.Context, interactive bool) (Config, error) {
	dir, err := a.configDir()
	if err != nil {
		return Config{}, err
	}
	cals, err := parseCalendars(a.calendars)
	if err != nil {
		return Config{}, err
	}
	cfg := a.cfg
	cfg.Calendars = cals

	fc, err := loadFileConfig(dir)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.LoadURL == "" && fc.LoadURL == "" && interactive && shouldRunOnboarding() {
		fc, err = runOnboarding(dir, fc)
		if err != nil {
			return Config{}, fmt.Errorf("failed to run onboarding: %w", err)
		}
	}
	cfg.merge(fc)

	if cfg.LoadURL == "" {
		return Config{}, errors.New("no events endpoint configured: pass --url, set MULTICAL_LOAD_URL or edit " + configPath(dir))
	}
	if len(cfg.Calendars) == 0 {
		found, err := discoverCalendars(ctx, cfg.LoadURL, cfg.Token)
		if err != nil {
			return Config{}, fmt.Errorf("no calendars configured and discovery failed: %w", err)
		}
		cfg.Calendars = found
	}
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func runTUI(ctx context.Context, a *app) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := a.resolve(ctx, true)
	if err != nil {
		return err
	}

	// The screen belongs to the UI, so logs go to a file.
	logFile, err := tea.LogToFile(filepath.Join(cfg.Dir, "multical.log"), "multical")
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer logFile.Close()
	log := slog.New(slog.NewTextHandler(logFile, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))
	slog.SetDefault(log)

	width, height := 100, 30
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
		width, height = w, h
	}

	ui.ConfigureColors()
	state := ui.LoadState()
	m := ui.New(ui.Options{Width: width, Height: height, State: state, Logger: log, Now: time.Now})
	defer m.Close()

	group, err := multical.New(multical.Config{
		Target:    m,
		LoadURL:   cfg.LoadURL,
		Calendars: cfg.Calendars,
	},
		multical.WithLogger(log),
		multical.WithScheduler(m.Scheduler(sched.Real())),
		multical.WithAlerter(m),
		multical.WithLocation(state),
		multical.WithLoaderOptions(loader.WithBearerToken(cfg.Token)),
		multical.WithResponsiveWidth(cfg.ResponsiveWidth),
		multical.WithAutoReload(cfg.AutoReload),
	)
	if err != nil {
		return err
	}
	defer group.Close()
	m.Attach(group)

	log.Info("starting", "url", cfg.LoadURL, "calendars", len(cfg.Calendars))
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running app: %w", err)
	}
	if err := state.Err(); err != nil {
		log.Warn("ui state not saved", "error", err)
	}
	return nil
}
