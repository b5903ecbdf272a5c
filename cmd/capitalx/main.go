// Command capitalx ingests holdings files from the command line.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/capitalx/capitalx/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
