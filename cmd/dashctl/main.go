// Command dashctl reads and edits one user's dashboard data from the shell
// and serves it to MCP clients over stdio.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kuitang/agent-dashboard/internal/cli"
	"github.com/kuitang/agent-dashboard/internal/obs"
)

func main() {
	obs.Init()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
