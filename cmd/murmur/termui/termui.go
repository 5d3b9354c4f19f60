// Package termui renders gateway output for the murmur terminal clients.
package termui

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/papercomputeco/murmur/pkg/llm"
)

// DefaultWidth is used when the output is not a terminal.
const DefaultWidth = 80

var (
	userStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	systemStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))

	// MutedStyle is for secondary detail such as hashes and session ids.
	MutedStyle = lipgloss.NewStyle().Faint(true)

	// ErrorStyle is for failures shown inline.
	ErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Width returns the column count of w, or DefaultWidth.
func Width(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok {
		return DefaultWidth
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return DefaultWidth
	}
	return width
}

// Renderer turns assistant replies into terminal output.
type Renderer struct {
	md *glamour.TermRenderer
}

// NewRenderer returns a markdown renderer for a terminal of the given width.
// With plain set the renderer passes text through untouched.
func NewRenderer(width int, plain bool) (*Renderer, error) {
	if plain {
		return &Renderer{}, nil
	}

	style := "light"
	if termenv.HasDarkBackground() {
		style = "dark"
	}

	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, err
	}
	return &Renderer{md: md}, nil
}

// Render formats a reply. Markdown that fails to render is returned as is.
func (r *Renderer) Render(text string) string {
	if r.md == nil {
		return text
	}
	out, err := r.md.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// RoleLabel is the styled name shown before a message.
func RoleLabel(role llm.Role) string {
	switch role {
	case llm.RoleUser:
		return userStyle.Render("you")
	case llm.RoleAssistant:
		return assistantStyle.Render("assistant")
	default:
		return systemStyle.Render(role.String())
	}
}

// Preview flattens s onto one line of at most width cells.
func Preview(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	return ansi.Truncate(s, width, "…")
}
