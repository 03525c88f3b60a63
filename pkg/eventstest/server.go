// Package eventstest provides a fake events endpoint for tests.
package eventstest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"time"

	"multical/internal/model"
)

// Request is a decoded events request.
type Request struct {
	UIDs  []string `json:"uid"`
	Start int64    `json:"start"`
	End   int64    `json:"end"`
	Auth  string   `json:"-"`
}

// Server answers POST requests the way the real endpoint does.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	events   map[string][]model.Event
	requests []Request
	null     bool
	status   int
	gate     chan struct{}
}

// NewServer starts a fake endpoint.
func NewServer() *Server {
	s := &Server{events: make(map[string][]model.Event)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// AddEvent stores e for uid.
func (s *Server) AddEvent(uid string, e model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[uid] = append(s.events[uid], e)
}

// SetNull makes the server answer with a literal null body.
func (s *Server) SetNull(null bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.null = null
}

// SetStatus makes the server fail with code. Zero restores normal answers.
func (s *Server) SetStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = code
}

// Hold makes subsequent requests block until the returned func is called.
func (s *Server) Hold() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.gate = gate
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.gate == gate {
				s.gate = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Hits returns the number of requests received.
func (s *Server) Hits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// Reset clears events, recorded requests and failure modes.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[string][]model.Event)
	s.requests = nil
	s.null = false
	s.status = 0
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid JSON: %v", err), http.StatusBadRequest)
		return
	}
	req.Auth = r.Header.Get("Authorization")

	s.mu.Lock()
	s.requests = append(s.requests, req)
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	s.mu.Lock()
	null, status := s.null, s.status
	payload := s.window(req)
	s.mu.Unlock()

	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if null {
		w.Write([]byte("null"))
		return
	}
	json.NewEncoder(w).Encode(payload)
}

// window must be called with s.mu held.
func (s *Server) window(req Request) model.Payload {
	start := time.Unix(req.Start, 0)
	end := time.Unix(req.End, 0)
	payload := make(model.Payload, len(req.UIDs))
	for _, uid := range req.UIDs {
		matched := []model.Event{}
		for _, e := range s.events[uid] {
			if e.Start.Before(end) && e.End.After(start) {
				matched = append(matched, e)
			}
		}
		sort.SliceStable(matched, func(i, j int) bool { return matched[i].Start.Before(matched[j].Start.Time) })
		payload[uid] = matched
	}
	return payload
}
