package multical

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"multical/internal/model"
)

// Config describes a calendar group.
type Config struct {
	// Target hosts the widgets.
	Target Host
	// LoadURL is the events endpoint.
	LoadURL   string
	Calendars []CalendarConfig

	LoadingAnimationStart func()
	LoadingAnimationStop  func()
}

// CalendarConfig describes one calendar. The click hooks are optional.
type CalendarConfig struct {
	UID         string `json:"uid"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`

	TitleClick     func(uid string, viewStart, viewEnd time.Time) `json:"-"`
	DayHeaderClick func(date time.Time, uid string)              `json:"-"`
	EventClick     func(ev model.Event, uid string)              `json:"-"`
}

// DisplayName falls back to the uid.
func (c CalendarConfig) DisplayName() string {
	if strings.TrimSpace(c.Name) != "" {
		return c.Name
	}
	return c.UID
}

// Validate checks cfg before anything is created.
func (cfg Config) Validate() error {
	if cfg.Target == nil {
		return model.ConfigErr("target", "no target provided")
	}
	if strings.TrimSpace(cfg.LoadURL) == "" {
		return model.ConfigErr("loadUrl", "no load URL provided")
	}
	u, err := url.Parse(cfg.LoadURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return model.ConfigErr("loadUrl", fmt.Sprintf("%q is not a valid http(s) URL", cfg.LoadURL))
	}
	if len(cfg.Calendars) == 0 {
		return model.ConfigErr("calendars", "at least one calendar is required")
	}
	seen := make(map[string]int, len(cfg.Calendars))
	for i, cal := range cfg.Calendars {
		field := fmt.Sprintf("calendars[%d].uid", i)
		if strings.TrimSpace(cal.UID) == "" {
			return model.ConfigErr(field, "uid is required")
		}
		if j, dup := seen[cal.UID]; dup {
			return model.ConfigErr(field, fmt.Sprintf("uid %q already used by calendars[%d]", cal.UID, j))
		}
		seen[cal.UID] = i
	}
	return nil
}

// UIDs returns the calendar uids in order.
func (cfg Config) UIDs() []string {
	uids := make([]string, len(cfg.Calendars))
	for i, cal := range cfg.Calendars {
		uids[i] = cal.UID
	}
	return uids
}
