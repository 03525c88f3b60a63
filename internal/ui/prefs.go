package ui

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// UIState stores persisted view options. Zero values are the defaults.
type UIState struct {
	// Fragment is the last deep link, e.g. "start=2024-03-04".
	Fragment        string `json:"fragment,omitempty"`
	HideWeekends    bool   `json:"hide_weekends,omitempty"`
	PauseAutoReload bool   `json:"pause_auto_reload,omitempty"`
}

func statePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}
	return filepath.Join(home, ".multical", "ui_state.json"), nil
}

func loadUIState() UIState {
	path, err := statePath()
	if err != nil {
		return UIState{}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return UIState{}
	}

	var state UIState
	if err := json.Unmarshal(data, &state); err != nil {
		return UIState{}
	}
	return state
}

func saveUIState(state UIState) error {
	path, err := statePath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create state dir: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	return nil
}

// StateStore is the persisted UI state. It doubles as the deep-link
// location of the calendar group.
type StateStore struct {
	mu    sync.Mutex
	state UIState
	err   error
}

// LoadState reads ~/.multical/ui_state.json, falling back to defaults.
func LoadState() *StateStore {
	return &StateStore{state: loadUIState()}
}

// State returns a copy of the current state.
func (s *StateStore) State() UIState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Update applies fn and saves the result.
func (s *StateStore) Update(fn func(*UIState)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.state)
	s.err = saveUIState(s.state)
	return s.err
}

// Err returns the last save error.
func (s *StateStore) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *StateStore) Fragment() string {
	return s.State().Fragment
}

func (s *StateStore) SetFragment(f string) {
	_ = s.Update(func(st *UIState) { st.Fragment = f })
}
