package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kuitang/agent-dashboard/internal/errs"
	"github.com/kuitang/agent-dashboard/internal/tasks"
	"github.com/kuitang/agent-dashboard/internal/workspace"
)

func newTasksCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "Task commands",
	}

	cmd.AddCommand(newTasksListCmd(a))
	cmd.AddCommand(newTasksAddCmd(a))
	cmd.AddCommand(newTasksToggleCmd(a))
	cmd.AddCommand(newTasksRemoveCmd(a))

	return cmd
}

func newTasksListCmd(a *App) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks with progress stats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd, func(ctx context.Context, ws *workspace.Workspace) (any, error) {
				st, err := tasks.ParseStatus(status)
				if err != nil {
					return nil, err
				}
				all := ws.Tasks.List()
				return map[string]any{
					"tasks": tasks.Filter(all, st),
					"stats": tasks.ComputeStats(all),
				}, nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "all", "Filter: all|active|completed")
	return cmd
}

func newTasksAddCmd(a *App) *cobra.Command {
	var params tasks.CreateTaskParams

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd, func(ctx context.Context, ws *workspace.Workspace) (any, error) {
				return ws.Tasks.Add(ctx, params)
			})
		},
	}
	cmd.Flags().StringVar(&params.Title, "title", "", "Task title (required)")
	cmd.Flags().StringVar(&params.Description, "description", "", "Task description")
	cmd.Flags().StringVar(&params.DueDate, "due", "", "Due date (2025-05-17T14:00 or RFC3339)")
	cmd.Flags().BoolVar(&params.Recurring, "recurring", false, "Mark the task as recurring")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newTasksToggleCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <task-id>",
		Short: "Flip a task between active and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd, func(ctx context.Context, ws *workspace.Workspace) (any, error) {
				id, err := parseID(args[0])
				if err != nil {
					return nil, err
				}
				task, found, err := ws.Tasks.Toggle(ctx, id)
				if err != nil {
					return nil, err
				}
				if !found {
					return nil, errs.New(errs.NotFound, fmt.Sprintf("task %d not found", id))
				}
				return task, nil
			})
		},
	}
}

func newTasksRemoveCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <task-id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd, func(ctx context.Context, ws *workspace.Workspace) (any, error) {
				id, err := parseID(args[0])
				if err != nil {
					return nil, err
				}
				deleted, err := ws.Tasks.Delete(ctx, id)
				if err != nil {
					return nil, err
				}
				return map[string]any{"id": id, "deleted": deleted}, nil
			})
		},
	}
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.Invalidf("invalid id %q", s)
	}
	return id, nil
}
