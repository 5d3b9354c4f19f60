package askcmder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/murmur/cmd/murmur/termui"
	"github.com/papercomputeco/murmur/pkg/client"
	"github.com/papercomputeco/murmur/pkg/dataurl"
)

const askLongDesc string = `Send one message, optionally with an image, to a murmur gateway.

Without --session a new session id is generated and printed so the
conversation can be continued. The reply is rendered as markdown when
writing to a terminal.

Examples:
  murmur ask "what is a mutex?"
  murmur ask --session 5b0c... "and a semaphore?"
  murmur ask --image photo.jpg
  murmur ask --server https://my-tunnel.example.com --image chart.png "summarize this"`

const askShortDesc string = "Send one message to a gateway"

type askCommander struct {
	serverURL string
	sessionID string
	imagePath string
	raw       bool
	timeout   time.Duration
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask [message]",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			message := ""
			if len(args) == 1 {
				message = args[0]
			}
			return cmder.run(cmd.Context(), cmd, message)
		},
	}

	cmd.Flags().StringVar(&cmder.serverURL, "server", client.DefaultServerURL, "Gateway URL")
	cmd.Flags().StringVarP(&cmder.sessionID, "session", "s", "", "Session id (default: a new one)")
	cmd.Flags().StringVarP(&cmder.imagePath, "image", "i", "", "Image file to attach")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the reply without markdown rendering")
	cmd.Flags().DurationVar(&cmder.timeout, "timeout", 0, "Give up after this long (0 waits for the model)")

	return cmd
}

func (c *askCommander) run(ctx context.Context, cmd *cobra.Command, message string) error {
	if message == "" && c.imagePath == "" {
		return fmt.Errorf("nothing to send: give a message, an --image, or both")
	}

	image := ""
	if c.imagePath != "" {
		var err error
		image, err = dataurl.ReadImage(c.imagePath)
		if err != nil {
			return err
		}
	}

	sessionID := c.sessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
		fmt.Fprintln(cmd.ErrOrStderr(), termui.MutedStyle.Render("session: "+sessionID))
	}

	out := cmd.OutOrStdout()
	renderer, err := termui.NewRenderer(termui.Width(out), c.raw || !termui.IsTerminal(out))
	if err != nil {
		return fmt.Errorf("could not create renderer: %w", err)
	}

	gw := client.New(c.serverURL, "", c.timeout)
	reply, err := gw.Chat(ctx, sessionID, message, image)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	fmt.Fprintln(out, renderer.Render(reply))
	return nil
}
