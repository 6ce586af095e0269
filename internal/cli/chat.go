package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kuitang/agent-dashboard/internal/workspace"
)

func newChatCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Assistant chat commands",
	}

	cmd.AddCommand(newChatHistoryCmd(a))
	cmd.AddCommand(newChatSendCmd(a))
	cmd.AddCommand(newChatClearCmd(a))
	cmd.AddCommand(newChatKeyCmd(a))

	return cmd
}

func newChatHistoryCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the transcript, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd, func(ctx context.Context, ws *workspace.Workspace) (any, error) {
				return ws.Chat.History(), nil
			})
		},
	}
}

func newChatSendCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "send <message...>",
		Short: "Send a message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd, func(ctx context.Context, ws *workspace.Workspace) (any, error) {
				return ws.Chat.Send(ctx, strings.Join(args, " "))
			})
		},
	}
}

func newChatClearCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Reset the transcript to the welcome message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd, func(ctx context.Context, ws *workspace.Workspace) (any, error) {
				if err := ws.Chat.Clear(ctx); err != nil {
					return nil, err
				}
				return ws.Chat.History(), nil
			})
		},
	}
}

func newChatKeyCmd(a *App) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "key [api-key]",
		Short: "Save, show (masked) or remove the OpenAI API key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd, func(ctx context.Context, ws *workspace.Workspace) (any, error) {
				creds := ws.Credentials()
				switch {
				case remove:
					if err := creds.Clear(ctx); err != nil {
						return nil, err
					}
				case len(args) == 1:
					if err := creds.Set(ctx, args[0]); err != nil {
						return nil, err
					}
				}
				has, err := creds.Has(ctx)
				if err != nil {
					return nil, err
				}
				masked, err := creds.Masked(ctx)
				if err != nil {
					return nil, err
				}
				return map[string]any{"hasApiKey": has, "maskedKey": masked}, nil
			})
		},
	}
	cmd.Flags().BoolVar(&remove, "remove", false, "Remove the saved key")
	return cmd
}
