package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"multical/internal/multical"
)

// DefaultLoadURL is the events route of `multical serve` on its default port.
const DefaultLoadURL = "http://localhost:5000/events"

// FileConfig is ~/.multical/config.json.
type FileConfig struct {
	LoadURL           string                    `json:"load_url"`
	Token             string                    `json:"token,omitempty"`
	Calendars         []multical.CalendarConfig `json:"calendars,omitempty"`
	ResponsiveWidth   int                       `json:"responsive_width,omitempty"`
	AutoReloadSeconds int                       `json:"auto_reload_seconds,omitempty"`
}

// Config is the resolved configuration: flags, then MULTICAL_* environment,
// then the config file, then defaults.
type Config struct {
	Dir             string
	LoadURL         string
	Token           string
	Calendars       []multical.CalendarConfig
	ResponsiveWidth int
	AutoReload      time.Duration
	LogLevel        string
}

func defaultConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".multical"), nil
}

func configPath(dir string) string {
	return filepath.Join(dir, "config.json")
}

func loadFileConfig(dir string) (FileConfig, error) {
	data, err := os.ReadFile(configPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, err
	}

	var fc FileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return FileConfig{}, fmt.Errorf("parse %s: %w", configPath(dir), err)
	}
	return fc, nil
}

func saveFileConfig(dir string, fc FileConfig) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	// The file may carry a token.
	return os.WriteFile(configPath(dir), data, 0600)
}

// merge fills the fields flags and environment left empty.
func (c *Config) merge(fc FileConfig) {
	if c.LoadURL == "" {
		c.LoadURL = fc.LoadURL
	}
	if c.Token == "" {
		c.Token = fc.Token
	}
	if len(c.Calendars) == 0 {
		c.Calendars = fc.Calendars
	}
	if c.ResponsiveWidth <= 0 {
		c.ResponsiveWidth = fc.ResponsiveWidth
	}
	if c.ResponsiveWidth <= 0 {
		c.ResponsiveWidth = 100
	}
	if c.AutoReload <= 0 && fc.AutoReloadSeconds > 0 {
		c.AutoReload = time.Duration(fc.AutoReloadSeconds) * time.Second
	}
	if c.AutoReload <= 0 {
		c.AutoReload = multical.AutoReloadInterval
	}
}

// parseCalendars reads "uid[:name]" entries, comma separated or repeated.
func parseCalendars(entries []string) ([]multical.CalendarConfig, error) {
	var out []multical.CalendarConfig
	for _, entry := range entries {
		for _, part := range strings.Split(entry, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			uid, name, _ := strings.Cut(part, ":")
			uid = strings.TrimSpace(uid)
			if uid == "" {
				return nil, fmt.Errorf("calendar %q has no uid", part)
			}
			out = append(out, multical.CalendarConfig{UID: uid, Name: strings.TrimSpace(name)})
		}
	}
	return out, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key))); err == nil {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

func envList(key string) []string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return []string{v}
	}
	return nil
}

func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" {
			continue
		}

		value = strings.Trim(value, `"'`)
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, value)
		}
	}
}
