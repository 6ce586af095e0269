package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kuitang/agent-dashboard/internal/errs"
	"github.com/kuitang/agent-dashboard/internal/notes"
	"github.com/kuitang/agent-dashboard/internal/workspace"
)

func newNotesCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notes",
		Short: "Note commands",
	}

	cmd.AddCommand(newNotesListCmd(a))
	cmd.AddCommand(newNotesShowCmd(a))
	cmd.AddCommand(newNotesAddCmd(a))
	cmd.AddCommand(newNotesRemoveCmd(a))

	return cmd
}

func newNotesListCmd(a *App) *cobra.Command {
	var query string
	var scope string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notes, optionally filtered by a search query",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd, func(ctx context.Context, ws *workspace.Workspace) (any, error) {
				sc, err := notes.ParseScope(scope)
				if err != nil {
					return nil, err
				}
				all := ws.Notes.List()
				return map[string]any{
					"notes": notes.Search(all, query, sc),
					"total": len(all),
				}, nil
			})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Case-insensitive search text")
	cmd.Flags().StringVar(&scope, "scope", "all", "Where to search: all|title|content|tags")
	return cmd
}

func newNotesShowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <note-id>",
		Short: "Show one note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd, func(ctx context.Context, ws *workspace.Workspace) (any, error) {
				id, err := parseID(args[0])
				if err != nil {
					return nil, err
				}
				note, ok := ws.Notes.Get(id)
				if !ok {
					return nil, errs.New(errs.NotFound, fmt.Sprintf("note %d not found", id))
				}
				return note, nil
			})
		},
	}
}

func newNotesAddCmd(a *App) *cobra.Command {
	var params notes.CreateNoteParams

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a note",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd, func(ctx context.Context, ws *workspace.Workspace) (any, error) {
				return ws.Notes.Add(ctx, params)
			})
		},
	}
	cmd.Flags().StringVar(&params.Title, "title", "", "Note title (required)")
	cmd.Flags().StringVar(&params.Content, "content", "", "Markdown body")
	cmd.Flags().StringSliceVar(&params.Tags, "tag", nil, "Tag to attach (repeatable or comma-separated)")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newNotesRemoveCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <note-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a note",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd, func(ctx context.Context, ws *workspace.Workspace) (any, error) {
				id, err := parseID(args[0])
				if err != nil {
					return nil, err
				}
				deleted, err := ws.Notes.Delete(ctx, id)
				if err != nil {
					return nil, err
				}
				return map[string]any{"id": id, "deleted": deleted}, nil
			})
		},
	}
}
