// Package authprompt asks the user to grant the scrobbler access to their
// Last.fm account and collects the resulting token.
package authprompt

import (
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/llehouerou/nowscrobble/internal/ui/render"
	"github.com/llehouerou/nowscrobble/internal/ui/styles"
)

const keyEsc = "esc"

func labelStyle() lipgloss.Style {
	return styles.T().S().Base
}

func linkStyle() lipgloss.Style {
	return styles.T().S().Value.Underline(true)
}

func hintStyle() lipgloss.Style {
	return styles.T().S().Subtle
}

func errorStyle() lipgloss.Style {
	return styles.T().S().Error
}

func successStyle() lipgloss.Style {
	return styles.T().S().Success
}

// tokenMsg carries a token delivered by the browser redirect.
type tokenMsg string

// Model is the bubbletea model of the prompt.
type Model struct {
	authURL    string
	callback   bool // a redirect may deliver the token on its own
	input      textinput.Model
	width      int
	errMsg     string
	token      string
	canceled   bool
	redirected bool
}

// NewModel creates a prompt for authURL. callback tells the user the token
// may also arrive through the browser redirect.
func NewModel(authURL string, callback bool) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "token or redirect URL"
	ti.CharLimit = 512
	ti.Focus()

	return Model{
		authURL:  authURL,
		callback: callback,
		input:    ti,
	}
}

// Token returns the collected token, or "" when none was submitted.
func (m Model) Token() string {
	return m.token
}

// Canceled reports whether the user dismissed the prompt.
func (m Model) Canceled() bool {
	return m.canceled
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-len(m.input.Prompt)-1, 10)
		return m, nil

	case tokenMsg:
		m.token = string(msg)
		m.redirected = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case keyEsc, "ctrl+c":
			m.canceled = true
			return m, tea.Quit
		case "enter":
			token := ParseToken(m.input.Value())
			if token == "" {
				m.errMsg = "Paste the token from the redirect URL first"
				return m, nil
			}
			m.token = token
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.errMsg != "" && m.input.Value() != "" {
		m.errMsg = ""
	}
	return m, cmd
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styles.T().Heading("Last.fm authorization"))
	b.WriteString("\n\n")

	if m.token != "" {
		msg := "Token received"
		if m.redirected {
			msg = "Token received from the browser"
		}
		b.WriteString(successStyle().Render(msg))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(labelStyle().Render("1. Open this page and allow access:"))
	b.WriteString("\n")
	b.WriteString(linkStyle().Render(render.Wrap(m.authURL, m.width)))
	b.WriteString("\n\n")

	if m.callback {
		b.WriteString(labelStyle().Render("2. Waiting for the browser redirect, or paste the token here:"))
	} else {
		b.WriteString(labelStyle().Render("2. Copy the token from the redirect URL and paste it here:"))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	if m.errMsg != "" {
		b.WriteString(errorStyle().Render(m.errMsg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(hintStyle().Render("[Enter] Submit  [Esc] Cancel"))
	b.WriteString("\n")
	return b.String()
}

// ParseToken extracts the token from user input: either the bare token or
// the full redirect URL carrying a token query parameter.
func ParseToken(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	if !strings.Contains(input, "token=") {
		return input
	}

	if u, err := url.Parse(input); err == nil {
		if token := u.Query().Get("token"); token != "" {
			return token
		}
	}
	if q, err := url.ParseQuery(strings.TrimPrefix(input, "?")); err == nil {
		return q.Get("token")
	}
	return ""
}
