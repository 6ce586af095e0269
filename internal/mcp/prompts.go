package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const dashboardWorkflowPromptName = "dashboard_workflow"

func registerPrompts(mcpServer *mcp.Server, toolset Toolset) {
	for _, prompt := range PromptDefinitions(toolset) {
		mcpServer.AddPrompt(prompt, promptHandler(toolset))
	}
}

// PromptDefinitions returns MCP prompt definitions for the selected toolset.
func PromptDefinitions(toolset Toolset) []*mcp.Prompt {
	return []*mcp.Prompt{
		{
			Name:        dashboardWorkflowPromptName,
			Title:       "Tasks and notes workflow",
			Description: promptDescription(toolset),
		},
	}
}

func promptHandler(toolset Toolset) mcp.PromptHandler {
	description := promptDescription(toolset)
	text := promptText(toolset)

	return func(_ context.Context, _ *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return &mcp.GetPromptResult{
			Description: description,
			Messages: []*mcp.PromptMessage{
				{
					Role:    mcp.Role("user"),
					Content: &mcp.TextContent{Text: text},
				},
			},
		}, nil
	}
}

func promptDescription(toolset Toolset) string {
	switch toolset {
	case ToolsetTasks:
		return "Guidance for managing the user's task list."
	case ToolsetNotes:
		return "Guidance for searching and writing the user's notes."
	default:
		return "Brief routing guidance for tasks and notes."
	}
}

func promptText(toolset Toolset) string {
	switch toolset {
	case ToolsetTasks:
		return "The user keeps a task list on their productivity dashboard. Call task_list before toggling or deleting so you act on the right id. Use task_create for new to-dos and task_toggle to mark them done."
	case ToolsetNotes:
		return "The user keeps markdown notes on their productivity dashboard. Use note_search to find notes (scope narrows the fields searched), note_view to read one in full, and note_create for new notes with tags."
	default:
		return "The user's productivity dashboard has a task list and markdown notes. Use task_* tools for to-dos and deadlines, and note_* tools for reference material. Always look up ids with task_list or note_search before changing anything."
	}
}
