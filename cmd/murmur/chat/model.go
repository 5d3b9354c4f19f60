package chatcmder

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/papercomputeco/murmur/cmd/murmur/termui"
	"github.com/papercomputeco/murmur/pkg/client"
	"github.com/papercomputeco/murmur/pkg/dataurl"
	"github.com/papercomputeco/murmur/pkg/llm"
)

const imageCommand = "/image"

// inputHeight covers the prompt line and the status line.
const inputHeight = 3

type entry struct {
	role llm.Role
	text string
	err  bool
}

// replyMsg carries the outcome of one turn.
type replyMsg struct {
	reply string
	err   error
}

type model struct {
	ctx       context.Context
	client    *client.Client
	sessionID string
	renderer  *termui.Renderer

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	entries []entry
	waiting bool
	ready   bool
}

func newModel(ctx context.Context, c *client.Client, sessionID string, renderer *termui.Renderer) model {
	input := textinput.New()
	input.Placeholder = "Say something, or /image <path> [question]"
	input.Prompt = "> "
	input.Focus()

	s := spinner.New()
	s.Spinner = spinner.Dot

	return model{
		ctx:       ctx,
		client:    c,
		sessionID: sessionID,
		renderer:  renderer,
		input:     input,
		viewport:  viewport.New(termui.DefaultWidth, 20),
		spinner:   s,
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-inputHeight, 1)
		m.input.Width = msg.Width - len(m.input.Prompt) - 1
		m.ready = true
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}

	case replyMsg:
		m.waiting = false
		if msg.err != nil {
			m.entries = append(m.entries, entry{role: llm.RoleAssistant, text: msg.err.Error(), err: true})
		} else {
			m.entries = append(m.entries, entry{role: llm.RoleAssistant, text: msg.reply})
		}
		m.refresh()
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// submit sends the input line as a turn. One turn is in flight at a time.
func (m model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	if line == "" || m.waiting {
		return m, nil
	}
	m.input.Reset()

	message, image, err := parseLine(line)
	if err != nil {
		m.entries = append(m.entries, entry{role: llm.RoleUser, text: err.Error(), err: true})
		m.refresh()
		return m, nil
	}

	shown := message
	if image != "" {
		shown = strings.TrimSpace(message + " " + llm.ImageMarker)
	}
	m.entries = append(m.entries, entry{role: llm.RoleUser, text: shown})
	m.waiting = true
	m.refresh()

	return m, tea.Batch(m.send(message, image), m.spinner.Tick)
}

func (m model) send(message, image string) tea.Cmd {
	return func() tea.Msg {
		reply, err := m.client.Chat(m.ctx, m.sessionID, message, image)
		return replyMsg{reply: reply, err: err}
	}
}

// parseLine splits "/image <path> [question]" into a question and a data
// URL. Any other line is a plain message.
func parseLine(line string) (string, string, error) {
	rest, ok := strings.CutPrefix(line, imageCommand+" ")
	if !ok {
		return line, "", nil
	}

	path, message, _ := strings.Cut(strings.TrimSpace(rest), " ")
	image, err := dataurl.ReadImage(path)
	if err != nil {
		return "", "", err
	}
	return strings.TrimSpace(message), image, nil
}

func (m *model) refresh() {
	var b strings.Builder
	for _, e := range m.entries {
		b.WriteString(termui.RoleLabel(e.role))
		b.WriteString("\n")
		switch {
		case e.err:
			b.WriteString(termui.ErrorStyle.Render(e.text))
		case e.role == llm.RoleAssistant:
			b.WriteString(m.renderer.Render(e.text))
		default:
			b.WriteString(e.text)
		}
		b.WriteString("\n\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m model) View() string {
	if !m.ready {
		return "starting..."
	}

	status := termui.MutedStyle.Render("session " + m.sessionID + "  esc to quit")
	if m.waiting {
		status = m.spinner.View() + " thinking..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		m.input.View(),
		status,
	)
}
