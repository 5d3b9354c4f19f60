package historycmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/murmur/cmd/murmur/termui"
	"github.com/papercomputeco/murmur/pkg/client"
	"github.com/papercomputeco/murmur/pkg/config"
)

const historyLongDesc string = `Show the stored messages of a session.

The gateway keeps only the most recent messages of each session, and
its system prompt is never shown. The auth token is read from --token,
then MURMUR_AUTH_TOKEN.

Examples:
  murmur history 5b0c2e8e-6f7c-4c4e-9d1e-1f0b7f0c6a55
  murmur history --full --token s3cret my-session`

const historyShortDesc string = "Show a session's history"

type historyCommander struct {
	serverURL string
	token     string
	full      bool
}

func NewHistoryCmd() *cobra.Command {
	cmder := &historyCommander{}

	cmd := &cobra.Command{
		Use:   "history <session-id>",
		Short: historyShortDesc,
		Long:  historyLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&cmder.serverURL, "server", client.DefaultServerURL, "Gateway URL")
	cmd.Flags().StringVarP(&cmder.token, "token", "t", "", "Auth token (default: $MURMUR_AUTH_TOKEN)")
	cmd.Flags().BoolVar(&cmder.full, "full", false, "Print whole messages instead of one-line previews")

	return cmd
}

// ResolveToken picks the auth token from flag, then environment, then the
// gateway's built-in default.
func ResolveToken(flag string) string {
	if flag != "" {
		return flag
	}
	if v, ok := os.LookupEnv(config.EnvPrefix + "AUTH_TOKEN"); ok && v != "" {
		return v
	}
	return config.DefaultAuthToken
}

func (c *historyCommander) run(ctx context.Context, cmd *cobra.Command, sessionID string) error {
	gw := client.New(c.serverURL, ResolveToken(c.token), 0)

	history, err := gw.History(ctx, sessionID)
	if err != nil {
		if client.IsUnauthorized(err) {
			return fmt.Errorf("the gateway rejected the auth token")
		}
		return fmt.Errorf("could not fetch history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(history) == 0 {
		fmt.Fprintln(out, "No messages in this session.")
		return nil
	}

	width := termui.Width(out)
	for _, m := range history {
		label := termui.RoleLabel(m.Role)
		if c.full {
			fmt.Fprintf(out, "%s\n%s\n\n", label, m.Content)
			continue
		}
		// Leave room for the label and the separator.
		fmt.Fprintf(out, "%s  %s\n", label, termui.Preview(m.Content, width-12))
	}
	return nil
}
