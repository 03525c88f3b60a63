package ui

import (
	"strings"

	"multical/internal/model"

	"github.com/charmbracelet/lipgloss"
)

// RenderHelp renders context-sensitive help footer.
func RenderHelp(screen model.Screen, mode model.Mode, width int) string {
	if mode == model.ModeInsert {
		return renderPickerHelp(width)
	}

	switch screen {
	case model.ScreenCalendars:
		return renderCalendarsHelp(width)
	case model.ScreenEventDetail:
		return renderDetailHelp(width)
	default:
		return renderDefaultHelp(width)
	}
}

func renderCalendarsHelp(width int) string {
	keys := []string{
		helpKey("h/l", "prev/next"),
		helpKey("t", "today"),
		helpKey("d/w", "day/week"),
		helpKey("/", "go to date"),
		helpKey("j/k", "calendar"),
		helpKey("tab", "event"),
		helpKey("enter", "details"),
		helpKey("r", "reload"),
		helpKey("?", "help"),
	}
	return renderHelpLine(keys, width)
}

func renderDetailHelp(width int) string {
	keys := []string{
		helpKey("esc", "back"),
		helpKey("tab", "next event"),
		helpKey("q", "quit"),
	}
	return renderHelpLine(keys, width)
}

func renderPickerHelp(width int) string {
	keys := []string{
		helpKey("enter", "go"),
		helpKey("esc", "cancel"),
		helpKey("", "YYYY-Www, YYYY-MM-DD or Mar 4, 2024"),
	}
	return renderHelpLine(keys, width)
}

func renderDefaultHelp(width int) string {
	keys := []string{
		helpKey("esc", "close"),
		helpKey("q", "quit"),
	}
	return renderHelpLine(keys, width)
}

func helpKey(key, desc string) string {
	if key == "" {
		return HelpDescStyle.Render(desc)
	}
	return HelpKeyStyle.Render(key) + " " + HelpDescStyle.Render(desc)
}

func renderHelpLine(keys []string, width int) string {
	line := strings.Join(keys, "  ")
	return FooterStyle.Width(width).Render(line)
}

const helpMarkdown = `
## Navigation

| Key | Action |
| --- | --- |
| h / ← | Previous day or week |
| l / → | Next day or week |
| t | Jump to today |
| / | Type a date (YYYY-Www, YYYY-MM-DD, Mar 4, 2024) |
| d / w | Day view / week view |

## Calendars

| Key | Action |
| --- | --- |
| j / k | Select calendar |
| tab / shift+tab | Cycle events |
| enter | Event detail |
| T | Calendar title action |
| 1-7 | Day header action |

## Data

| Key | Action |
| --- | --- |
| r | Reload events |
| a | Toggle auto-reload |
| W | Show or hide weekends |

Narrow terminals switch to the day view automatically; widening the
window switches back to the week view.

Press **esc** to close this help, **q** to quit.
`

// RenderFullHelp renders the full help screen.
func RenderFullHelp(width, height int) string {
	body := renderMarkdown(helpMarkdown, width-4)
	content := lipgloss.NewStyle().
		Width(width - 4).
		Height(height - 4).
		Padding(0, 2).
		Render(body)

	return lipgloss.JoinVertical(
		lipgloss.Left,
		TitleStyle.Width(width).Render("Help"),
		content,
		FooterStyle.Width(width).Render(HelpKeyStyle.Render("esc")+" "+HelpDescStyle.Render("close help")),
	)
}
