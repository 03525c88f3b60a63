package ui

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"multical/internal/model"
	"multical/internal/util"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	mdRendererMu sync.Mutex
	// Keyed by style and wrap width. WithAutoStyle queries the terminal and
	// can block, so the style is picked once from the environment.
	mdRenderers = map[string]*glamour.TermRenderer{}
)

// renderMarkdown renders md wrapped to width, falling back to the raw text.
func renderMarkdown(md string, width int) string {
	md = strings.TrimSpace(md)
	if md == "" {
		return ""
	}
	if width < 20 {
		width = 20
	}

	style := markdownStyle()
	key := style + ":" + strconv.Itoa(width)

	mdRendererMu.Lock()
	r := mdRenderers[key]
	if r == nil {
		rr, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			mdRendererMu.Unlock()
			return md
		}
		mdRenderers[key] = rr
		r = rr
	}
	mdRendererMu.Unlock()

	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}

func markdownStyle() string {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("MULTICAL_MD_STYLE"))) {
	case "light":
		return "light"
	case "dark":
		return "dark"
	case "notty", "ascii":
		return "notty"
	}
	if os.Getenv("NO_COLOR") != "" {
		return "notty"
	}
	// COLORFGBG is "fg;bg"; xterm colors 7-15 are light.
	if v := strings.TrimSpace(os.Getenv("COLORFGBG")); v != "" {
		parts := strings.Split(v, ";")
		if bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1])); err == nil {
			if bg >= 7 {
				return "light"
			}
			return "dark"
		}
	}
	if lipgloss.HasDarkBackground() {
		return "dark"
	}
	return "light"
}

// eventMarkdown describes ev for the detail screen.
func eventMarkdown(calendar string, ev model.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(ev.Title))
	fmt.Fprintf(&b, "- **Calendar:** %s\n", escapeMarkdown(calendar))
	fmt.Fprintf(&b, "- **When:** %s\n", util.FormatEventWhen(ev.Start.Time, ev.End.Time))
	if ev.ID != "" {
		fmt.Fprintf(&b, "- **ID:** `%s`\n", ev.ID)
	}
	if tip := strings.TrimSpace(ev.Tooltip); tip != "" {
		b.WriteString("\n")
		b.WriteString(tip)
		b.WriteString("\n")
	}
	return b.String()
}

var mdEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "#", `\#`, "[", `\[`, "]", `\]`)

func escapeMarkdown(s string) string {
	return mdEscaper.Replace(s)
}
