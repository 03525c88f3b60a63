package model

import "time"

// Bubble Tea message types

// ErrorMsg represents an error message.
type ErrorMsg struct {
	Err error
}

// EventsLoadedMsg is sent when a calendar's data provider resolves.
type EventsLoadedMsg struct {
	UID    string
	Range  Range
	Events []Event
	Err    error
}

// AlertMsg is a blocking user notification.
type AlertMsg struct {
	Text string
}

// InfoMsg is a transient status line message.
type InfoMsg struct {
	Text string
}

// AllRenderedMsg is sent once every calendar finished rendering a pass.
type AllRenderedMsg struct {
	At time.Time
}

// Screen represents different app screens.
type Screen int

const (
	ScreenCalendars Screen = iota
	ScreenEventDetail
	ScreenHelp
)

// Mode represents the current interaction mode.
type Mode int

const (
	ModeNav Mode = iota
	ModeInsert
)
