// ABOUTME: Model is the Bubble Tea overlay that mirrors the authentication flow
// ABOUTME: Approve/Deny decisions go out on a channel; success lingers briefly before quitting

package authui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"

	"github.com/mauromedda/player2-go/pkg/player2/auth"
)

// Decision is the user's answer to the verification prompt.
type Decision int

const (
	Approve Decision = iota + 1
	Deny
)

// StateMsg carries an auth state transition into the program.
type StateMsg auth.StateChange

// SessionMsg announces the issued device code.
type SessionMsg auth.Session

// PollMsg carries one token poll.
type PollMsg auth.PollEvent

type tickMsg struct{}

type closeMsg struct{}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

const (
	spinnerInterval = 100 * time.Millisecond
	defaultWidth    = 72
)

const requiresAuthMarkdown = `**Sign in to Player2**

This game uses your Player2 account for AI characters. Approving opens the
verification page in your browser; once you confirm there, this window
closes on its own.`

// Model implements tea.Model with value semantics.
type Model struct {
	state     auth.State
	session   *auth.Session
	err       error
	polls     int
	interval  time.Duration
	frame     int
	width     int
	linger    time.Duration
	decisions chan<- Decision
	decided   bool
	body      string
}

// NewModel creates the overlay. Decisions are sent without blocking, so
// decisions should be buffered.
func NewModel(decisions chan<- Decision, linger time.Duration) Model {
	return Model{
		state:     auth.Checking,
		width:     defaultWidth,
		linger:    linger,
		decisions: decisions,
	}
}

// State returns the flow state the overlay is showing.
func (m Model) State() auth.State { return m.state }

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(spinnerInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

// Update handles flow messages and key presses.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if m.state.Terminal() {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, tick()

	case tea.WindowSizeMsg:
		m.width = min(max(msg.Width-4, 30), 100)
		m.body = ""
		if m.state == auth.RequiresAuth {
			m.body = renderMarkdown(requiresAuthMarkdown, m.width-6)
		}

	case SessionMsg:
		s := auth.Session(msg)
		m.session = &s
		m.interval = s.Interval

	case PollMsg:
		m.polls = msg.Attempt
		m.interval = msg.Interval

	case StateMsg:
		m.state = msg.To
		m.err = msg.Err
		switch msg.To {
		case auth.RequiresAuth:
			if m.body == "" {
				m.body = renderMarkdown(requiresAuthMarkdown, m.width-6)
			}
		case auth.Success:
			return m, m.closeAfter(m.linger)
		case auth.Error:
			return m, m.closeAfter(3 * m.linger)
		}

	case closeMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) closeAfter(d time.Duration) tea.Cmd {
	if d <= 0 {
		return tea.Quit
	}
	return tea.Tick(d, func(time.Time) tea.Msg { return closeMsg{} })
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.decide(Deny)
		return m, tea.Quit
	case "enter", "a", "y":
		if m.state == auth.RequiresAuth && m.session != nil {
			m.decide(Approve)
		}
	case "esc", "d", "n":
		if m.state == auth.RequiresAuth {
			m.decide(Deny)
		}
	case "q":
		if m.state.Terminal() {
			return m, tea.Quit
		}
	}
	return m, nil
}

// decide sends at most one decision per overlay.
func (m *Model) decide(d Decision) {
	if m.decided {
		return
	}
	m.decided = true
	select {
	case m.decisions <- d:
	default:
	}
}

// View renders the panel for the current state.
func (m Model) View() string {
	s := styleOnce()
	inner := m.width - 6
	var b strings.Builder

	b.WriteString(s.Title.Render("Player2 authentication"))
	b.WriteString("\n\n")

	switch m.state {
	case auth.Idle, auth.Checking:
		fmt.Fprintf(&b, "%s Checking authentication…", spinnerFrames[m.frame])
	case auth.LocalLogin:
		fmt.Fprintf(&b, "%s Looking for the Player2 app on this machine…", spinnerFrames[m.frame])
	case auth.StartingDeviceFlow:
		fmt.Fprintf(&b, "%s Requesting a sign-in code…", spinnerFrames[m.frame])
	case auth.RequiresAuth:
		if m.body != "" {
			b.WriteString(m.body)
		} else {
			b.WriteString(requiresAuthMarkdown)
		}
		b.WriteString("\n\n")
		if m.session != nil {
			b.WriteString(s.URL.Render(runewidth.Truncate(m.session.VerificationURIComplete, inner, "…")))
			if m.session.UserCode != "" {
				b.WriteString("\n" + s.Muted.Render("Code: ") + s.Key.Render(m.session.UserCode))
			}
			b.WriteString("\n\n")
		}
		if m.decided {
			b.WriteString(s.Muted.Render("Opening browser…"))
		} else {
			fmt.Fprintf(&b, "%s Approve    %s Deny", s.Key.Render("[enter]"), s.Key.Render("[esc]"))
		}
	case auth.WaitingForUser:
		fmt.Fprintf(&b, "%s Waiting for you to confirm in the browser…", spinnerFrames[m.frame])
		if m.session != nil {
			b.WriteString("\n" + s.Muted.Render(runewidth.Truncate(m.session.VerificationURIComplete, inner, "…")))
			remaining := time.Until(m.session.Deadline()).Round(time.Second)
			b.WriteString("\n" + s.Muted.Render(fmt.Sprintf("%d checks, every %s, %s left", m.polls, m.interval, max(remaining, 0))))
		}
	case auth.Success:
		b.WriteString(s.Success.Render("✓ Authenticated"))
	case auth.Error:
		b.WriteString(s.Error.Render("✗ Authentication failed"))
		if m.err != nil {
			b.WriteString("\n" + runewidth.Wrap(m.err.Error(), inner))
		}
		b.WriteString("\n\n" + s.Muted.Render("[q] close"))
	}

	return s.Panel.Width(m.width).Render(b.String())
}

// renderMarkdown renders md for the terminal, falling back to the raw text.
func renderMarkdown(md string, width int) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n ")
}
