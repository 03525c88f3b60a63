// Package loader fetches events for a fixed set of calendars from a single
// endpoint. It remembers the last successful window, shares one in-flight
// request between all callers and serves stale data while it refreshes.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"multical/internal/model"
)

var (
	ErrNotInitialized = errors.New("loader: not initialized")
	ErrNoRange        = errors.New("loader: no range given and nothing loaded yet")
	ErrInvalidRange   = errors.New("loader: invalid range")
	ErrNullPayload    = errors.New("loader: server returned a null payload")
)

// NullPayloadAlert is shown to the user when the endpoint answers null.
const NullPayloadAlert = "Error fetching events. Please refresh."

// flightKey is constant: every load shares the one outstanding request.
const flightKey = "load"

// Indicator is told when a request starts and ends.
type Indicator interface {
	Show()
	Hide()
}

// Alerter raises a blocking user notification.
type Alerter interface {
	Alert(msg string)
}

// AlerterFunc adapts a func to Alerter.
type AlerterFunc func(msg string)

func (f AlerterFunc) Alert(msg string) { f(msg) }

type noopIndicator struct{}

func (noopIndicator) Show() {}
func (noopIndicator) Hide() {}

// Loader is safe for concurrent use.
type Loader struct {
	client    *http.Client
	token     string
	timeout   time.Duration
	ind       Indicator
	alert     Alerter
	log       *slog.Logger
	refreshed func(model.Range)

	group singleflight.Group
	bg    sync.WaitGroup

	mu          sync.Mutex
	initialized bool
	uids        []string
	url         string
	last        model.Range
	payload     model.Payload
	cached      bool
	waiting     int
	// refreshing is the window a background refresh is already queued for.
	refreshing  model.Range
}

// Option configures a Loader.
type Option func(*Loader)

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) { l.client = c }
}

// WithBearerToken authenticates requests with a static bearer token.
func WithBearerToken(token string) Option {
	return func(l *Loader) { l.token = token }
}

// WithTimeout bounds a single request. Defaults to 30s.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) { l.timeout = d }
}

// WithIndicator sets the busy indicator.
func WithIndicator(ind Indicator) Option {
	return func(l *Loader) { l.ind = ind }
}

// WithAlerter sets where null-payload alerts go.
func WithAlerter(a Alerter) Option {
	return func(l *Loader) { l.alert = a }
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(l *Loader) { l.log = log }
}

// WithRefreshed registers fn to run after a background refresh replaced the
// cache with r.
func WithRefreshed(fn func(r model.Range)) Option {
	return func(l *Loader) { l.refreshed = fn }
}

// New returns an uninitialized loader.
func New(opts ...Option) *Loader {
	l := &Loader{
		client:  &http.Client{},
		timeout: 30 * time.Second,
		ind:     noopIndicator{},
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.alert == nil {
		l.alert = AlerterFunc(func(msg string) { l.log.Error("alert", "msg", msg) })
	}
	if l.token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, l.client)
		l.client = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: l.token}))
	}
	return l
}

// Init sets the calendars to load and the endpoint. It must be called before
// Load or GetEvents.
func (l *Loader) Init(uids []string, endpoint string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.uids = append([]string(nil), uids...)
	l.url = endpoint
	l.initialized = true
}

// Load fetches [start, end). Zero bounds fall back to the last successful
// window. While a request is outstanding every caller receives its result,
// whatever range they asked for.
//
// Transport failures are not returned: they are logged and Load yields an
// empty payload. A null response body raises an alert and returns
// ErrNullPayload. ctx only bounds the caller's wait.
func (l *Loader) Load(ctx context.Context, start, end time.Time) (model.Payload, error) {
	l.mu.Lock()
	if !l.initialized {
		l.mu.Unlock()
		return nil, ErrNotInitialized
	}
	if start.IsZero() && l.last.Start.IsZero() {
		l.mu.Unlock()
		return nil, ErrNoRange
	}
	if start.IsZero() {
		start = l.last.Start
	}
	if end.IsZero() {
		end = l.last.End
	}
	if end.IsZero() || end.Before(start) {
		l.mu.Unlock()
		return nil, ErrInvalidRange
	}
	r := model.Range{Start: start, End: end}
	// Joining under the lock keeps the flight from finishing in between.
	ch := l.group.DoChan(flightKey, func() (any, error) {
		return l.fetch(r)
	})
	l.waiting++
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.waiting--
		l.mu.Unlock()
	}()

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(model.Payload), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GetEvents is the read-through entry point widgets call. An exact match
// with the cached window is served without network. A different window gets
// the stale payload now and refreshes in the background. Without any cache
// it waits for Load.
func (l *Loader) GetEvents(ctx context.Context, start, end time.Time) (model.Payload, error) {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return nil, fmt.Errorf("%w: %s..%s", ErrInvalidRange, start, end)
	}
	r := model.Range{Start: start, End: end}

	l.mu.Lock()
	cached, payload, last := l.cached, l.payload, l.last
	l.mu.Unlock()

	switch {
	case cached && last.Equal(r):
		return payload, nil
	case cached:
		l.refresh(r)
		return payload, nil
	default:
		return l.Load(ctx, start, end)
	}
}

func (l *Loader) refresh(r model.Range) {
	l.mu.Lock()
	if l.refreshing.Equal(r) {
		l.mu.Unlock()
		return
	}
	l.refreshing = r
	l.bg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.bg.Done()
		defer func() {
			l.mu.Lock()
			if l.refreshing.Equal(r) {
				l.refreshing = model.Range{}
			}
			l.mu.Unlock()
		}()
		ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
		defer cancel()
		if _, err := l.Load(ctx, r.Start, r.End); err != nil {
			l.log.Debug("background refresh failed", "range", r.String(), "err", err)
			return
		}
		l.mu.Lock()
		fresh := l.cached && l.last.Equal(r)
		l.mu.Unlock()
		if fresh && l.refreshed != nil {
			l.refreshed(r)
		}
	}()
}

// Cached returns the last successful window and its payload.
func (l *Loader) Cached() (model.Range, model.Payload, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last, l.payload, l.cached
}

// Waiting returns the number of callers blocked on the current request.
func (l *Loader) Waiting() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waiting
}

// Wait blocks until background refreshes have finished.
func (l *Loader) Wait() {
	l.bg.Wait()
}

func (l *Loader) fetch(r model.Range) (model.Payload, error) {
	l.mu.Lock()
	uids, endpoint := l.uids, l.url
	l.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	l.ind.Show()
	payload, err := l.post(ctx, endpoint, uids, r)
	l.ind.Hide()

	switch {
	case errors.Is(err, ErrNullPayload):
		l.log.Warn("null payload", "url", endpoint, "range", r.String())
		l.alert.Alert(NullPayloadAlert)
		return nil, err
	case err != nil:
		return recoverEmpty(l.log, r, err), nil
	}

	l.mu.Lock()
	l.last = r
	l.payload = payload
	l.cached = true
	l.mu.Unlock()
	return payload, nil
}

// recoverEmpty turns a failed fetch into an empty result. Callers cannot
// tell it apart from a window with no events; the cache is left alone.
func recoverEmpty(log *slog.Logger, r model.Range, err error) model.Payload {
	log.Warn("fetching events failed", "range", r.String(), "err", err)
	return model.Payload{}
}
