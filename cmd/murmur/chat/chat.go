package chatcmder

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/murmur/cmd/murmur/termui"
	"github.com/papercomputeco/murmur/pkg/client"
)

const chatLongDesc string = `Chat with a murmur gateway in the terminal.

Type a message and press enter. Start a line with "/image <path>" to
attach an image, optionally followed by a question about it. Press
ctrl+c or esc to leave; the session stays on the gateway until it
restarts.

Examples:
  murmur chat
  murmur chat --session my-session --server https://my-tunnel.example.com`

const chatShortDesc string = "Interactive chat"

type chatCommander struct {
	serverURL string
	sessionID string
	timeout   time.Duration
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.serverURL, "server", client.DefaultServerURL, "Gateway URL")
	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Session id (default: a new one)")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 0, "Give up on a reply after this long (0 waits for the model)")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command) error {
	if !termui.IsTerminal(cmd.OutOrStdout()) {
		return fmt.Errorf("chat needs a terminal, use \"murmur ask\" in scripts")
	}

	sessionID := c.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	renderer, err := termui.NewRenderer(termui.Width(cmd.OutOrStdout())-4, false)
	if err != nil {
		return fmt.Errorf("could not create renderer: %w", err)
	}

	m := newModel(ctx, client.New(c.serverURL, "", c.timeout), sessionID, renderer)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat failed: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), termui.MutedStyle.Render("session: "+sessionID))
	return nil
}
