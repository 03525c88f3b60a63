package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

func shouldRunOnboarding() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

type onboardingStep int

const (
	stepURL onboardingStep = iota
	stepToken
	stepDone
)

type onboardingModel struct {
	step       onboardingStep
	urlInput   textinput.Model
	tokenInput textinput.Model
	config     FileConfig
	canceled   bool
	status     string
	warn       string
	width      int
	height     int
}

var (
	obColorMuted  = lipgloss.Color("#7E8C80")
	obColorText   = lipgloss.Color("#D6E0D3")
	obColorAccent = lipgloss.Color("#8FA082")
	obColorDanger = lipgloss.Color("#f38ba8")

	obTitleStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true)

	obHeaderStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(obColorMuted)

	obTabsStyle = lipgloss.NewStyle().
			Padding(0, 2).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(obColorMuted)

	obTabInactive = lipgloss.NewStyle().
			Foreground(obColorMuted).
			Padding(0, 2)

	obTabActive = lipgloss.NewStyle().
			Foreground(obColorText).
			Bold(true).
			Underline(true).
			Padding(0, 2)

	obPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(obColorMuted).
			Padding(1, 2)

	obInputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(obColorAccent).
			Padding(0, 1)

	obLabelStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true)

	obMutedStyle = lipgloss.NewStyle().
			Foreground(obColorMuted)

	obWarnStyle = lipgloss.NewStyle().
			Foreground(obColorDanger)

	obFooterStyle = lipgloss.NewStyle().
			Foreground(obColorMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(obColorMuted)
)

func newInput(prompt, placeholder string) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 300
	in.Prompt = prompt
	in.TextStyle = lipgloss.NewStyle().Foreground(obColorText)
	in.PlaceholderStyle = lipgloss.NewStyle().Foreground(obColorMuted)
	in.Cursor.Style = lipgloss.NewStyle().Foreground(obColorText).Background(obColorAccent)
	return in
}

func newOnboardingModel(existing FileConfig) onboardingModel {
	urlIn := newInput("url> ", DefaultLoadURL)
	urlIn.SetValue(existing.LoadURL)
	urlIn.Focus()

	tokenIn := newInput("token> ", "leave empty if the endpoint is open")
	tokenIn.EchoMode = textinput.EchoPassword
	tokenIn.EchoCharacter = '*'
	tokenIn.SetValue(existing.Token)

	return onboardingModel{
		step:       stepURL,
		urlInput:   urlIn,
		tokenInput: tokenIn,
		config:     existing,
	}
}

func (m onboardingModel) Init() tea.Cmd { return textinput.Blink }

func (m onboardingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.canceled = true
			m.status = "Setup canceled. Pass --url or set MULTICAL_LOAD_URL to continue."
			m.step = stepDone
			return m, tea.Quit
		}
		switch m.step {
		case stepURL:
			switch msg.String() {
			case "enter":
				u := strings.TrimSpace(m.urlInput.Value())
				if u == "" {
					u = DefaultLoadURL
				}
				if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
					m.warn = "The endpoint must be an http(s) URL."
					return m, nil
				}
				m.warn = ""
				m.config.LoadURL = u
				m.step = stepToken
				m.urlInput.Blur()
				return m, m.tokenInput.Focus()
			case "esc":
				m.config.LoadURL = DefaultLoadURL
				m.status = "Using the local demo endpoint " + DefaultLoadURL + "."
				m.step = stepDone
				return m, tea.Quit
			}
			var cmd tea.Cmd
			m.urlInput, cmd = m.urlInput.Update(msg)
			return m, cmd
		case stepToken:
			switch msg.String() {
			case "enter":
				m.config.Token = strings.TrimSpace(m.tokenInput.Value())
				if m.config.Token == "" {
					m.status = "Endpoint saved without a token."
				} else {
					m.status = "Endpoint and token saved."
				}
				m.step = stepDone
				return m, tea.Quit
			case "esc":
				m.config.Token = ""
				m.status = "Endpoint saved without a token."
				m.step = stepDone
				return m, tea.Quit
			}
			var cmd tea.Cmd
			m.tokenInput, cmd = m.tokenInput.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m onboardingModel) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 28
	}

	header := m.renderHeader(width)
	tabs := m.renderTabs(width)
	footer := m.renderFooter(width)

	contentHeight := height - 6
	if contentHeight < 8 {
		contentHeight = 8
	}
	content := m.renderContent(width, contentHeight)
	ui := lipgloss.JoinVertical(lipgloss.Left, header, tabs, content, footer)

	return lipgloss.NewStyle().
		Foreground(obColorText).
		Width(width).
		Height(height).
		Render(ui)
}

func (m onboardingModel) renderHeader(width int) string {
	left := "  " + obTitleStyle.Render("multical") + " " + obMutedStyle.Render("› Setup")
	right := obMutedStyle.Render(time.Now().Format("Mon 02 Jan")) + "  "
	padding := width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 0 {
		padding = 0
	}
	return obHeaderStyle.Width(width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m onboardingModel) renderTabs(width int) string {
	urlTab := obTabInactive.Render("Endpoint")
	tokenTab := obTabInactive.Render("Token")
	if m.step == stepURL {
		urlTab = obTabActive.Render("Endpoint")
	}
	if m.step == stepToken {
		tokenTab = obTabActive.Render("Token")
	}
	return obTabsStyle.Width(width).Render(lipgloss.JoinHorizontal(lipgloss.Left, "  ", urlTab, tokenTab))
}

func (m onboardingModel) renderFooter(width int) string {
	switch m.step {
	case stepURL:
		return obFooterStyle.Width(width).Render("enter next  esc use local demo  ctrl+c cancel")
	case stepToken:
		return obFooterStyle.Width(width).Render("enter save  esc no token  ctrl+c cancel")
	default:
		return obFooterStyle.Width(width).Render("Setup complete")
	}
}

func (m onboardingModel) renderContent(width, height int) string {
	cardWidth := min(92, width-6)
	if cardWidth < 40 {
		cardWidth = width - 2
	}
	inputWidth := max(30, cardWidth-14)

	var body string
	switch m.step {
	case stepURL:
		lines := []string{
			obLabelStyle.Render("Where are your events served from?"),
			"",
			obMutedStyle.Render("The endpoint receives POST {uid, start, end} and answers with"),
			obMutedStyle.Render("events keyed by calendar uid."),
			obMutedStyle.Render("Run `multical seed && multical serve` for a local demo."),
			"",
			obLabelStyle.Render("Events URL"),
			obInputStyle.Width(inputWidth).Render(m.urlInput.View()),
		}
		if m.warn != "" {
			lines = append(lines, "", obWarnStyle.Render(m.warn))
		}
		body = lipgloss.JoinVertical(lipgloss.Left, lines...)
	case stepToken:
		body = lipgloss.JoinVertical(
			lipgloss.Left,
			obLabelStyle.Render("Bearer token (optional)"),
			"",
			obMutedStyle.Render("Sent as Authorization: Bearer <token> with every request."),
			"",
			obInputStyle.Width(inputWidth).Render(m.tokenInput.View()),
			"",
			obMutedStyle.Render("Saved in ~/.multical/config.json, readable only by you."),
		)
	default:
		msg := obMutedStyle.Render(m.status)
		if m.canceled {
			msg = obWarnStyle.Render(m.status)
		}
		body = lipgloss.JoinVertical(lipgloss.Left, obLabelStyle.Render("Setup Complete"), "", msg)
	}

	card := obPanelStyle.Width(cardWidth).Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, card)
}

func runOnboarding(configDir string, existing FileConfig) (FileConfig, error) {
	prog := tea.NewProgram(newOnboardingModel(existing), tea.WithAltScreen())
	finalModel, err := prog.Run()
	if err != nil {
		return existing, fmt.Errorf("onboarding tui failed: %w", err)
	}
	m, ok := finalModel.(onboardingModel)
	if !ok {
		return existing, fmt.Errorf("unexpected onboarding model type")
	}
	if m.canceled {
		return existing, nil
	}
	if err := saveFileConfig(configDir, m.config); err != nil {
		return existing, err
	}
	return m.config, nil
}
