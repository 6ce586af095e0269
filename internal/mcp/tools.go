package mcp

import "github.com/modelcontextprotocol/go-sdk/mcp"

// Toolset controls which tool families are mounted for a route.
type Toolset string

const (
	ToolsetAll   Toolset = "all"
	ToolsetTasks Toolset = "tasks"
	ToolsetNotes Toolset = "notes"
)

// ParseToolset maps a flag or route value to a Toolset. Unknown values mean all.
func ParseToolset(s string) Toolset {
	switch Toolset(s) {
	case ToolsetTasks, ToolsetNotes:
		return Toolset(s)
	default:
		return ToolsetAll
	}
}

// ToolDefinitions returns tool definitions for the requested toolset.
func ToolDefinitions(toolset Toolset) []*mcp.Tool {
	taskTools := TaskToolDefinitions()
	noteTools := NoteToolDefinitions()

	switch toolset {
	case ToolsetTasks:
		return taskTools
	case ToolsetNotes:
		return noteTools
	default:
		all := make([]*mcp.Tool, 0, len(taskTools)+len(noteTools))
		all = append(all, taskTools...)
		all = append(all, noteTools...)
		return all
	}
}

func idSchema(what string) map[string]any {
	return map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"id": map[string]any{"type": "integer", "description": "The numeric id of the " + what}},
		"required":             []string{"id"},
		"additionalProperties": false,
	}
}

// TaskToolDefinitions returns the task list MCP tool definitions.
func TaskToolDefinitions() []*mcp.Tool {
	return []*mcp.Tool{
		{
			Name:        "task_list",
			Description: "Tasks tool. List the user's tasks with id, title, description, due date, completed and recurring flags, plus progress stats (total, active, completed, percent). Pass status to filter: all (default), active or completed.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"status": map[string]any{
						"type":        "string",
						"enum":        []string{"all", "active", "completed"},
						"description": "Filter by completion state (default: all)",
					},
				},
				"additionalProperties": false,
			},
		},
		{
			Name:        "task_create",
			Description: "Tasks tool. Add a task. The title is required and must not be blank. due_date accepts datetime-local (2025-05-17T14:00) or RFC3339. New tasks start incomplete. Returns the created task with its assigned id.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":       map[string]any{"type": "string", "description": "Task title (required)"},
					"description": map[string]any{"type": "string", "description": "Longer description (optional)"},
					"due_date":    map[string]any{"type": "string", "description": "Due date and time (optional)"},
					"recurring":   map[string]any{"type": "boolean", "description": "Whether the task repeats (default false)"},
				},
				"required":             []string{"title"},
				"additionalProperties": false,
			},
		},
		{
			Name:        "task_toggle",
			Description: "Tasks tool. Flip a task between completed and active. Returns the updated task, or a not_found error if no task has that id.",
			InputSchema: idSchema("task to toggle"),
		},
		{
			Name:        "task_delete",
			Description: "Tasks tool. Permanently remove a task by id. Deleting an id that does not exist succeeds with deleted=false.",
			InputSchema: idSchema("task to delete"),
		},
	}
}

// NoteToolDefinitions returns the notes MCP tool definitions.
func NoteToolDefinitions() []*mcp.Tool {
	return []*mcp.Tool{
		{
			Name:        "note_search",
			Description: "Notes tool. Case-insensitive substring search over the user's notes. scope limits where the query must appear: all (default), title, content or tags. An empty query lists every note. Each result has id, title, tags, created_at, a short preview and an excerpt around the first content match. Use note_view to read full content.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{"type": "string", "description": "Text to look for (optional)"},
					"scope": map[string]any{
						"type":        "string",
						"enum":        []string{"all", "title", "content", "tags"},
						"description": "Which fields to search (default: all)",
					},
				},
				"additionalProperties": false,
			},
		},
		{
			Name:        "note_view",
			Description: "Notes tool. Read one note's full markdown content, tags and creation time by id.",
			InputSchema: idSchema("note to read"),
		},
		{
			Name:        "note_create",
			Description: "Notes tool. Create a note with a title, optional markdown content and optional tags. Tags are trimmed, blank tags dropped and duplicates removed. Returns the created note with its assigned id.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title":   map[string]any{"type": "string", "description": "Note title (required)"},
					"content": map[string]any{"type": "string", "description": "Markdown body (optional)"},
					"tags": map[string]any{
						"type":        "array",
						"items":       map[string]any{"type": "string"},
						"description": "Tags to attach (optional)",
					},
				},
				"required":             []string{"title"},
				"additionalProperties": false,
			},
		},
		{
			Name:        "note_delete",
			Description: "Notes tool. Permanently remove a note by id. Deleting an id that does not exist succeeds with deleted=false.",
			InputSchema: idSchema("note to delete"),
		},
	}
}
