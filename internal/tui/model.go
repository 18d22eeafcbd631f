// Package tui presents a session in the terminal. Dropping a file is done
// by typing or pasting its path; exports land in a directory.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/GriffinCanCode/ncube-web/internal/bootstrap"
	"github.com/GriffinCanCode/ncube-web/internal/session"
	"github.com/GriffinCanCode/ncube-web/internal/surface"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	warningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#E0A040"))

	dropStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#50C878"))

	noticeStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#E0A040")).
			Padding(0, 1)

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

// maxLog bounds the lines of drop and export history shown.
const maxLog = 8

// Session is what the model drives. *session.Session implements it.
type Session interface {
	ID() string
	Outbound() <-chan session.Message
	Send(in session.Inbound) error
	Drop(f surface.File) error
}

// Model is the bubbletea model for one session.
type Model struct {
	session Session
	spinner spinner.Model
	input   textinput.Model

	phase    string
	hovering bool
	notice   *session.Message
	log      []string
	err      string
	done     bool
}

type sessionMsg session.Message

type sessionClosedMsg struct{}

// New creates a model for s.
func New(s Session) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Line

	in := textinput.New()
	in.Placeholder = "path/to/4cube.data"
	in.Prompt = "drop> "
	in.CharLimit = 4096
	in.Focus()

	return &Model{
		session: s,
		spinner: sp,
		input:   in,
		phase:   bootstrap.FetchingBinary.String(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, textinput.Blink, m.next())
}

// next waits for the session's next message.
func (m *Model) next() tea.Cmd {
	out := m.session.Outbound()
	return func() tea.Msg {
		msg, ok := <-out
		if !ok {
			return sessionClosedMsg{}
		}
		return sessionMsg(msg)
	}
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.done = true
			return m, tea.Quit
		case "ctrl+n":
			if m.notice != nil {
				m.notice = nil
				_ = m.session.Send(session.Inbound{Type: session.TypeDismissNotice})
			}
			return m, nil
		case "enter":
			if !m.loaded() {
				return m, nil
			}
			m.drop(strings.TrimSpace(m.input.Value()))
			m.input.Reset()
			return m, nil
		}

	case sessionMsg:
		m.apply(session.Message(msg))
		return m, m.next()

	case sessionClosedMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) drop(path string) {
	if path == "" {
		return
	}
	// Pasted paths often arrive quoted.
	path = strings.Trim(path, `"'`)
	if err := m.session.Drop(surface.DiskFile{Path: path}); err != nil {
		m.err = err.Error()
		return
	}
	m.record("dropped " + path)
}

func (m *Model) apply(msg session.Message) {
	switch msg.Type {
	case session.TypePhase:
		m.phase = msg.Phase
	case session.TypeHover:
		m.hovering = msg.Hovering != nil && *msg.Hovering
	case session.TypeNotice:
		m.notice = &msg
	case session.TypeDownload:
		m.record("exported " + msg.Name)
	case session.TypeError:
		m.err = msg.Error
	}
}

func (m *Model) record(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLog {
		m.log = m.log[len(m.log)-maxLog:]
	}
}

func (m *Model) loaded() bool { return m.phase == bootstrap.Loaded.String() }

// View implements tea.Model.
func (m *Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(surface.Title))
	b.WriteString("\n\n")

	if !m.loaded() {
		if m.err == "" {
			b.WriteString(m.spinner.View() + " ")
		}
		if m.phase == bootstrap.LoadingApp.String() {
			b.WriteString(surface.FetchedText + "\n" + surface.EnteringText + "\n")
			b.WriteString(warningStyle.Render(surface.WarningText) + "\n")
		} else {
			b.WriteString(surface.FetchingText + "\n")
		}
	} else {
		if m.hovering {
			b.WriteString(dropStyle.Render(surface.DropText) + "\n")
		}
		b.WriteString(m.input.View() + "\n")
		for _, line := range m.log {
			b.WriteString(resultStyle.Render(line) + "\n")
		}
	}

	if m.err != "" {
		b.WriteString("\n" + errorStyle.Render("Error: "+m.err) + "\n")
	}

	if m.notice != nil {
		var nb strings.Builder
		nb.WriteString(m.notice.Text)
		for _, l := range m.notice.Links {
			nb.WriteString(fmt.Sprintf("\n%s: %s", l.Text, l.Href))
		}
		b.WriteString("\n" + noticeStyle.Render(nb.String()) + "\n")
		b.WriteString(helpStyle.Render("ctrl+n: close") + "\n")
	}

	b.WriteString("\n" + helpStyle.Render("enter: drop file • esc: quit"))
	return b.String()
}
