package transcriptcmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/murmur/cmd/murmur/termui"
	"github.com/papercomputeco/murmur/pkg/config"
	"github.com/papercomputeco/murmur/pkg/llm"
	"github.com/papercomputeco/murmur/pkg/transcript"
)

const transcriptLongDesc string = `Inspect and combine transcript archives written by "murmur serve".

The archive path is read from --db, then MURMUR_TRANSCRIPT_DB.

Examples:
  murmur transcript ls --db ~/.murmur/transcripts.db
  murmur transcript show 3f9a... --db ~/.murmur/transcripts.db
  murmur transcript merge --db /tmp/all.db laptop.db desktop.db`

const transcriptShortDesc string = "Inspect transcript archives"

type transcriptCommander struct {
	dbPath string
}

func NewTranscriptCmd() *cobra.Command {
	cmder := &transcriptCommander{}

	cmd := &cobra.Command{
		Use:   "transcript",
		Short: transcriptShortDesc,
		Long:  transcriptLongDesc,
	}

	cmd.PersistentFlags().StringVar(&cmder.dbPath, "db", "", "Path to the transcript SQLite database")

	cmd.AddCommand(&cobra.Command{
		Use:   "ls",
		Short: "List the latest exchange of every archived conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.runList(cmd.Context(), cmd)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show <hash>",
		Short: "Print the conversation ending at a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.runShow(cmd.Context(), cmd, args[0])
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "merge <sources...>",
		Short: "Merge archives into the --db archive",
		Long: `Merge one or more source archives into a target.

Content addressing makes this a simple union: nodes that already
exist in the target are skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.runMerge(cmd.Context(), cmd, args)
		},
	})

	return cmd
}

func (c *transcriptCommander) open() (*transcript.SQLiteStorer, string, error) {
	path := c.dbPath
	if path == "" {
		path = os.Getenv(config.EnvPrefix + "TRANSCRIPT_DB")
	}
	if path == "" || path == config.TranscriptMemory {
		return nil, "", fmt.Errorf("no archive given: use --db or %sTRANSCRIPT_DB", config.EnvPrefix)
	}

	storer, err := transcript.NewSQLiteStorer(path)
	if err != nil {
		return nil, "", fmt.Errorf("could not open archive %s: %w", path, err)
	}
	return storer, path, nil
}

func (c *transcriptCommander) runList(ctx context.Context, cmd *cobra.Command) error {
	storer, _, err := c.open()
	if err != nil {
		return err
	}
	defer storer.Close()

	leaves, err := storer.Leaves(ctx)
	if err != nil {
		return fmt.Errorf("could not list archive: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(leaves) == 0 {
		fmt.Fprintln(out, "Archive is empty.")
		return nil
	}

	width := termui.Width(out)
	for _, leaf := range leaves {
		fmt.Fprintf(out, "%s  %s  %s\n",
			termui.MutedStyle.Render(leaf.Hash[:12]),
			leaf.Entry.SessionID,
			termui.Preview(leaf.Entry.Content, max(width-40, 20)),
		)
	}
	return nil
}

func (c *transcriptCommander) runShow(ctx context.Context, cmd *cobra.Command, hash string) error {
	storer, _, err := c.open()
	if err != nil {
		return err
	}
	defer storer.Close()

	chain, err := transcript.Ancestry(ctx, storer, hash)
	if err != nil {
		return fmt.Errorf("could not load conversation: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, termui.MutedStyle.Render("session "+chain[0].Entry.SessionID))
	for _, n := range chain {
		label := termui.RoleLabel(llm.Role(n.Entry.Role))
		if !n.Verify() {
			label += " " + termui.ErrorStyle.Render("(hash mismatch)")
		}
		fmt.Fprintf(out, "%s %s\n%s\n\n", label, termui.MutedStyle.Render(n.Entry.Model), n.Entry.Content)
	}
	return nil
}

func (c *transcriptCommander) runMerge(ctx context.Context, cmd *cobra.Command, sources []string) error {
	target, targetPath, err := c.open()
	if err != nil {
		return err
	}
	defer target.Close()

	var totalNew, totalDuped int

	for _, srcPath := range sources {
		srcNew, srcDuped, err := mergeFrom(ctx, target, srcPath)
		if err != nil {
			return err
		}
		totalNew += srcNew
		totalDuped += srcDuped

		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d new, %d already existed\n", srcPath, srcNew, srcDuped)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Merged %d new nodes from %d sources (%d already existed) into %s\n",
		totalNew, len(sources), totalDuped, targetPath)

	return nil
}

func mergeFrom(ctx context.Context, target transcript.Storer, srcPath string) (int, int, error) {
	source, err := transcript.NewSQLiteStorer(srcPath)
	if err != nil {
		return 0, 0, fmt.Errorf("could not open source archive %s: %w", srcPath, err)
	}
	defer source.Close()

	nodes, err := source.List(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("could not list nodes from %s: %w", srcPath, err)
	}

	var isNewCount, dupedCount int
	for _, n := range nodes {
		isNew, err := target.Put(ctx, n)
		if err != nil {
			return 0, 0, fmt.Errorf("could not put node %s: %w", n.Hash, err)
		}
		if isNew {
			isNewCount++
		} else {
			dupedCount++
		}
	}
	return isNewCount, dupedCount, nil
}
