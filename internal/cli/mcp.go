package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kuitang/agent-dashboard/internal/mcp"
	"github.com/kuitang/agent-dashboard/internal/obs"
	"github.com/kuitang/agent-dashboard/internal/workspace"
)

func newMCPCmd(a *App) *cobra.Command {
	var toolset string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the task and note tools over stdio for an MCP client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			ws, release, err := a.session(ctx)
			if err != nil {
				return writeErr(cmd, err)
			}
			defer release()

			obs.Pkg("cli").Info("mcp_stdio_start", "user_id", ws.UserID, "toolset", toolset)
			resolve := func(context.Context) (*workspace.Workspace, error) { return ws, nil }
			if err := mcp.ServeStdio(ctx, resolve, mcp.ParseToolset(toolset)); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&toolset, "toolset", string(mcp.ToolsetAll), "Tools to expose: all|tasks|notes")
	return cmd
}
