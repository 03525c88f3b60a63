package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keybindings for nav mode.
type KeyMap struct {
	Prev       key.Binding
	Next       key.Binding
	Today      key.Binding
	Up         key.Binding
	Down       key.Binding
	NextEvent  key.Binding
	PrevEvent  key.Binding
	Select     key.Binding
	Back       key.Binding
	DayView    key.Binding
	WeekView   key.Binding
	EditDate   key.Binding
	Reload     key.Binding
	AutoReload key.Binding
	Weekends   key.Binding
	Title      key.Binding
	DayHeader  key.Binding
	Quit       key.Binding
	Help       key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Prev: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "previous"),
		),
		Next: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "next"),
		),
		Today: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "today"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "prev calendar"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next calendar"),
		),
		NextEvent: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next event"),
		),
		PrevEvent: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev event"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "event detail"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "b"),
			key.WithHelp("esc", "back"),
		),
		DayView: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "day view"),
		),
		WeekView: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "week view"),
		),
		EditDate: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "go to date"),
		),
		Reload: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reload"),
		),
		AutoReload: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "auto-reload"),
		),
		Weekends: key.NewBinding(
			key.WithKeys("W"),
			key.WithHelp("W", "weekends"),
		),
		Title: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "title action"),
		),
		DayHeader: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7"),
			key.WithHelp("1-7", "day action"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
	}
}

// PickerKeyMap defines keybindings while the date picker is focused.
type PickerKeyMap struct {
	Commit key.Binding
	Cancel key.Binding
}

// DefaultPickerKeyMap returns the default picker keybindings.
func DefaultPickerKeyMap() PickerKeyMap {
	return PickerKeyMap{
		Commit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "go"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}
