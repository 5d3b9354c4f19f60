package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	askcmder "github.com/papercomputeco/murmur/cmd/murmur/ask"
	chatcmder "github.com/papercomputeco/murmur/cmd/murmur/chat"
	historycmder "github.com/papercomputeco/murmur/cmd/murmur/history"
	servecmder "github.com/papercomputeco/murmur/cmd/murmur/serve"
	transcriptcmder "github.com/papercomputeco/murmur/cmd/murmur/transcript"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "murmur",
		Short: "A small chat gateway in front of Ollama",
		Long: `murmur forwards chat turns, optionally with an image, to a local Ollama
server and keeps a short rolling history per session.

Run "murmur serve" to start the gateway, then talk to it from a browser,
from "murmur chat", or from "murmur ask".`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		servecmder.NewServeCmd(version),
		askcmder.NewAskCmd(),
		chatcmder.NewChatCmd(),
		historycmder.NewHistoryCmd(),
		transcriptcmder.NewTranscriptCmd(),
	)

	return cmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
