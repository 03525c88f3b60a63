package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"multical/internal/model"
	"multical/internal/multical"

	"golang.org/x/oauth2"
)

// calendarsURL maps ".../events" to the sibling ".../calendars" route.
func calendarsURL(loadURL string) (string, error) {
	u, err := url.Parse(loadURL)
	if err != nil {
		return "", err
	}
	trimmed := strings.TrimSuffix(u.Path, "/")
	if !strings.HasSuffix(trimmed, "/events") {
		return "", fmt.Errorf("cannot derive a calendars route from %q", loadURL)
	}
	u.Path = strings.TrimSuffix(trimmed, "events") + "calendars"
	u.RawQuery = ""
	return u.String(), nil
}

// discoverCalendars asks the endpoint which calendars it knows.
func discoverCalendars(ctx context.Context, loadURL, token string) ([]multical.CalendarConfig, error) {
	endpoint, err := calendarsURL(loadURL)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	if token != "" {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client)
		client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list calendars: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("list calendars: status %d", resp.StatusCode)
	}

	var cals []model.Calendar
	if err := json.NewDecoder(resp.Body).Decode(&cals); err != nil {
		return nil, fmt.Errorf("decode calendars: %w", err)
	}
	out := make([]multical.CalendarConfig, 0, len(cals))
	for _, c := range cals {
		out = append(out, multical.CalendarConfig{UID: c.UID, Name: c.Name, Description: c.Description})
	}
	return out, nil
}
