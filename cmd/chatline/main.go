package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cachecmder "github.com/papercomputeco/chatline/cmd/chatline/cache"
	chatcmder "github.com/papercomputeco/chatline/cmd/chatline/chat"
	rendercmder "github.com/papercomputeco/chatline/cmd/chatline/render"
	servecmder "github.com/papercomputeco/chatline/cmd/chatline/serve"
)

const rootLongDesc string = `chatline is a terminal chat client with text-to-speech.

It talks to an Ollama-compatible model, renders replies as markdown,
and plays answers aloud through a small proxy in front of Azure
Cognitive Services Speech.`

const rootShortDesc string = "Terminal chat with text-to-speech"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "chatline",
		Short:        rootShortDesc,
		Long:         rootLongDesc,
		SilenceUsage: true,
	}

	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(rendercmder.NewRenderCmd())
	cmd.AddCommand(cachecmder.NewCacheCmd())

	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
