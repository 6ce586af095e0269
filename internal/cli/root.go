// Package cli is dashctl: scriptable access to one user's dashboard data
// straight from the configured store, plus an MCP server over stdio.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kuitang/agent-dashboard/internal/app"
	"github.com/kuitang/agent-dashboard/internal/config"
	"github.com/kuitang/agent-dashboard/internal/obs"
	"github.com/kuitang/agent-dashboard/internal/workspace"
)

// Opener builds the services a command runs against. The returned func
// releases them.
type Opener func(ctx context.Context, flags config.Flags) (*app.App, func() error, error)

// App carries the persistent flags shared by every command.
type App struct {
	Email  string
	Memory bool
	NoS3   bool
	Pretty bool

	open Opener
}

// NewRootCmd returns dashctl wired to the environment's configuration.
func NewRootCmd() *cobra.Command {
	return newRootCmd(OpenFromEnv)
}

func newRootCmd(open Opener) *cobra.Command {
	a := &App{open: open}

	cmd := &cobra.Command{
		Use:          "dashctl",
		Short:        "Manage dashboard tasks, notes, chat and settings from the shell",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # List open tasks
  dashctl --email ada@example.com tasks list --status active

  # Search notes by tag
  dashctl --email ada@example.com notes list -q work --scope tags

  # Expose the task and note tools to an MCP client over stdio
  dashctl --email ada@example.com mcp --toolset all
`),
	}

	cmd.PersistentFlags().StringVar(&a.Email, "email", envOr("DASHCTL_EMAIL", ""), "Email of the user whose data to act on")
	cmd.PersistentFlags().BoolVar(&a.Memory, "memory", false, "Use an empty in-memory store (for trying commands out)")
	cmd.PersistentFlags().BoolVar(&a.NoS3, "no-s3", false, "Use mock S3 storage when STORE_BACKEND=s3")
	cmd.PersistentFlags().BoolVar(&a.Pretty, "pretty", false, "Pretty-print JSON output")

	cmd.AddCommand(newTasksCmd(a))
	cmd.AddCommand(newNotesCmd(a))
	cmd.AddCommand(newChatCmd(a))
	cmd.AddCommand(newSettingsCmd(a))
	cmd.AddCommand(newMCPCmd(a))

	return cmd
}

// OpenFromEnv loads the server configuration from the environment and
// opens the same store the server uses.
func OpenFromEnv(ctx context.Context, flags config.Flags) (*app.App, func() error, error) {
	cfg, err := config.LoadConfig(flags)
	if err != nil {
		return nil, nil, err
	}
	obs.SetLevel(obs.ParseLevel(cfg.LogLevel))
	a, err := app.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return a, a.Close, nil
}

func (a *App) flags() config.Flags {
	return config.Flags{NoS3: a.NoS3, Memory: a.Memory}
}

// session opens the services and resolves the --email user's workspace.
func (a *App) session(ctx context.Context) (*workspace.Workspace, func() error, error) {
	if strings.TrimSpace(a.Email) == "" {
		return nil, nil, fmt.Errorf("--email is required (or set DASHCTL_EMAIL)")
	}
	services, release, err := a.open(ctx, a.flags())
	if err != nil {
		return nil, nil, err
	}
	userID, _, err := services.Auth.EnsureUser(ctx, a.Email)
	if err != nil {
		release()
		return nil, nil, err
	}
	ws, err := services.Workspaces.For(ctx, userID)
	if err != nil {
		release()
		return nil, nil, err
	}
	return ws, release, nil
}

// withWorkspace runs fn against the user's workspace and prints its result
// as {"data": ...}.
func (a *App) withWorkspace(cmd *cobra.Command, fn func(ctx context.Context, ws *workspace.Workspace) (any, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ws, release, err := a.session(ctx)
	if err != nil {
		return writeErr(cmd, err)
	}
	defer release()

	out, err := fn(ctx, ws)
	if err != nil {
		return writeErr(cmd, err)
	}
	return writeOut(cmd, a, map[string]any{"data": out})
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, a *App, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if a.Pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
