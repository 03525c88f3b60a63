package ui

import (
	"multical/internal/util"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// WeekPicker is the date input shown on the controller calendar. It only
// reports a change when the user commits an edit with enter.
type WeekPicker struct {
	input    textinput.Model
	typ      string
	value    string
	onChange func(string)
}

// NewWeekPicker returns an unfocused picker.
func NewWeekPicker() *WeekPicker {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 32
	ti.Width = 18
	p := &WeekPicker{input: ti}
	p.SetType("week")
	return p
}

func (p *WeekPicker) SetValue(v string) {
	p.value = v
	if !p.input.Focused() {
		p.input.SetValue(v)
	}
}

func (p *WeekPicker) SetType(t string) {
	p.typ = t
	switch t {
	case "week":
		p.input.Placeholder = "YYYY-Www"
	default:
		p.input.Placeholder = "YYYY-MM-DD"
	}
}

func (p *WeekPicker) OnChange(fn func(string)) {
	p.onChange = fn
}

// Type returns the input type set by the date controller.
func (p *WeekPicker) Type() string { return p.typ }

// Value returns the last value set by the date controller.
func (p *WeekPicker) Value() string { return p.value }

// Editing reports whether the user is typing in the picker.
func (p *WeekPicker) Editing() bool { return p.input.Focused() }

// Edit focuses the picker with an empty input.
func (p *WeekPicker) Edit() tea.Cmd {
	p.input.SetValue("")
	return p.input.Focus()
}

// Commit ends the edit and reports the typed value.
func (p *WeekPicker) Commit() {
	typed := util.NormalizeDateInput(p.input.Value())
	p.input.Blur()
	p.input.SetValue(p.value)
	if typed != "" && typed != p.value && p.onChange != nil {
		p.onChange(typed)
	}
}

// Cancel ends the edit without a change.
func (p *WeekPicker) Cancel() {
	p.input.Blur()
	p.input.SetValue(p.value)
}

// Update forwards key input while editing.
func (p *WeekPicker) Update(msg tea.Msg) tea.Cmd {
	if !p.input.Focused() {
		return nil
	}
	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return cmd
}

func (p *WeekPicker) View() string {
	if p.input.Focused() {
		return InputStyle.Render(p.input.View())
	}
	return HelpKeyStyle.Render(p.value)
}
