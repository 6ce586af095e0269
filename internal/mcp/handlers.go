package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kuitang/agent-dashboard/internal/errs"
	"github.com/kuitang/agent-dashboard/internal/notes"
	"github.com/kuitang/agent-dashboard/internal/obs"
	"github.com/kuitang/agent-dashboard/internal/tasks"
	"github.com/kuitang/agent-dashboard/internal/workspace"
)

// note_search output shape: runes of context around a match and preview lines.
const (
	excerptRadius = 60
	previewLines  = 2
)

// Resolver returns the workspace tool calls operate on.
type Resolver func(ctx context.Context) (*workspace.Workspace, error)

// Handler implements MCP tool call handling.
type Handler struct {
	resolve Resolver
}

// NewHandler creates a new MCP handler over the resolved workspace.
func NewHandler(resolve Resolver) *Handler {
	return &Handler{resolve: resolve}
}

// createToolHandler returns a tool handler function for the given tool name.
func (h *Handler) createToolHandler(name string) func(ctx context.Context, req *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
		result, err := h.HandleToolCall(ctx, name, args)
		return result, nil, err
	}
}

// HandleToolCall routes tool calls to appropriate handlers. Tool failures
// come back as IsError results carrying a toolErrorPayload; the returned
// error is reserved for transport problems.
func (h *Handler) HandleToolCall(ctx context.Context, name string, arguments map[string]any) (*mcp.CallToolResult, error) {
	var (
		value any
		err   error
	)
	switch name {
	case "task_list":
		value, err = h.handleTaskList(ctx, arguments)
	case "task_create":
		value, err = h.handleTaskCreate(ctx, arguments)
	case "task_toggle":
		value, err = h.handleTaskToggle(ctx, arguments)
	case "task_delete":
		value, err = h.handleTaskDelete(ctx, arguments)
	case "note_search":
		value, err = h.handleNoteSearch(ctx, arguments)
	case "note_view":
		value, err = h.handleNoteView(ctx, arguments)
	case "note_create":
		value, err = h.handleNoteCreate(ctx, arguments)
	case "note_delete":
		value, err = h.handleNoteDelete(ctx, arguments)
	default:
		err = errs.New(errs.NotFound, fmt.Sprintf("unknown tool: %s", name))
	}
	if err != nil {
		code := errs.CodeOf(err)
		if code == errs.Internal || code == errs.Unavailable {
			obs.From(ctx).Error("mcp_tool_failed", "pkg", "mcp", "tool", name, "code", code, "error", errs.Detail(err))
		}
		return newToolResultError(err), nil
	}
	return newToolResultText(marshalToolJSON(value)), nil
}

// toolErrorPayload is the JSON body of an IsError tool result.
type toolErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// newToolResultText creates a successful tool result with text content.
func newToolResultText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: text},
		},
	}
}

// newToolResultError creates a tool result indicating an error.
func newToolResultError(err error) *mcp.CallToolResult {
	payload := toolErrorPayload{Code: string(errs.CodeOf(err)), Message: errs.MessageOf(err)}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: marshalToolJSON(payload)},
		},
		IsError: true,
	}
}

func marshalToolJSON(value any) string {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to marshal response","detail":%q}`, err.Error())
	}
	return string(data)
}

// decodeToolArgs strictly decodes tool arguments into dst. A nil map is an
// empty object, and unknown fields are rejected.
func decodeToolArgs(args map[string]any, dst any) error {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return errs.Wrap(errs.InvalidArgument, "arguments are not valid JSON", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errs.Wrap(errs.InvalidArgument, "invalid arguments: "+strings.TrimPrefix(err.Error(), "json: "), err)
	}
	return nil
}

func (h *Handler) workspace(ctx context.Context) (*workspace.Workspace, error) {
	if h.resolve == nil {
		return nil, errs.New(errs.Unauthenticated, "no workspace is attached to this MCP session")
	}
	return h.resolve(ctx)
}

type idArgs struct {
	ID *int64 `json:"id"`
}

func (a idArgs) require() (int64, error) {
	if a.ID == nil {
		return 0, errs.Invalidf("id is required")
	}
	return *a.ID, nil
}

func decodeID(args map[string]any) (int64, error) {
	var in idArgs
	if err := decodeToolArgs(args, &in); err != nil {
		return 0, err
	}
	return in.require()
}

// TaskListResult is returned by task_list.
type TaskListResult struct {
	Tasks []tasks.Task `json:"tasks"`
	Stats tasks.Stats  `json:"stats"`
}

func (h *Handler) handleTaskList(ctx context.Context, args map[string]any) (any, error) {
	var in struct {
		Status string `json:"status"`
	}
	if err := decodeToolArgs(args, &in); err != nil {
		return nil, err
	}
	status, err := tasks.ParseStatus(in.Status)
	if err != nil {
		return nil, err
	}
	ws, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	all := ws.Tasks.List()
	return TaskListResult{Tasks: tasks.Filter(all, status), Stats: tasks.ComputeStats(all)}, nil
}

func (h *Handler) handleTaskCreate(ctx context.Context, args map[string]any) (any, error) {
	var in struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		DueDate     string `json:"due_date"`
		Recurring   bool   `json:"recurring"`
	}
	if err := decodeToolArgs(args, &in); err != nil {
		return nil, err
	}
	ws, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	return ws.Tasks.Add(ctx, tasks.CreateTaskParams{
		Title:       in.Title,
		Description: in.Description,
		DueDate:     in.DueDate,
		Recurring:   in.Recurring,
	})
}

func (h *Handler) handleTaskToggle(ctx context.Context, args map[string]any) (any, error) {
	id, err := decodeID(args)
	if err != nil {
		return nil, err
	}
	ws, err := h.workspace(ctx)
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
}

// DeleteResult is returned by the delete tools.
type DeleteResult struct {
	ID      int64 `json:"id"`
	Deleted bool  `json:"deleted"`
}

func (h *Handler) handleTaskDelete(ctx context.Context, args map[string]any) (any, error) {
	id, err := decodeID(args)
	if err != nil {
		return nil, err
	}
	ws, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	deleted, err := ws.Tasks.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	return DeleteResult{ID: id, Deleted: deleted}, nil
}

// NoteSearchHit is one note_search result.
type NoteSearchHit struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Tags      []string `json:"tags"`
	CreatedAt string   `json:"created_at"`
	Preview   string   `json:"preview"`
	Excerpt   string   `json:"excerpt,omitempty"`
	Lines     int      `json:"total_lines"`
}

// NoteSearchResult is returned by note_search.
type NoteSearchResult struct {
	Notes []NoteSearchHit `json:"notes"`
	Total int             `json:"total"`
}

func (h *Handler) handleNoteSearch(ctx context.Context, args map[string]any) (any, error) {
	var in struct {
		Query string `json:"query"`
		Scope string `json:"scope"`
	}
	if err := decodeToolArgs(args, &in); err != nil {
		return nil, err
	}
	scope, err := notes.ParseScope(in.Scope)
	if err != nil {
		return nil, err
	}
	ws, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	all := ws.Notes.List()
	matched := notes.Search(all, in.Query, scope)
	hits := make([]NoteSearchHit, len(matched))
	for i, n := range matched {
		hits[i] = NoteSearchHit{
			ID:        n.ID,
			Title:     n.Title,
			Tags:      n.Tags,
			CreatedAt: n.CreatedAt,
			Preview:   notes.ContentPreview(n.Content, previewLines),
			Lines:     notes.CountLines(n.Content),
		}
		if strings.TrimSpace(in.Query) != "" {
			hits[i].Excerpt = notes.Excerpt(n.Content, in.Query, excerptRadius)
		}
	}
	return NoteSearchResult{Notes: hits, Total: len(all)}, nil
}

func (h *Handler) handleNoteView(ctx context.Context, args map[string]any) (any, error) {
	id, err := decodeID(args)
	if err != nil {
		return nil, err
	}
	ws, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	note, ok := ws.Notes.Get(id)
	if !ok {
		return nil, errs.New(errs.NotFound, fmt.Sprintf("note %d not found", id))
	}
	return note, nil
}

func (h *Handler) handleNoteCreate(ctx context.Context, args map[string]any) (any, error) {
	var in struct {
		Title   string   `json:"title"`
		Content string   `json:"content"`
		Tags    []string `json:"tags"`
	}
	if err := decodeToolArgs(args, &in); err != nil {
		return nil, err
	}
	ws, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	return ws.Notes.Add(ctx, notes.CreateNoteParams{Title: in.Title, Content: in.Content, Tags: in.Tags})
}

func (h *Handler) handleNoteDelete(ctx context.Context, args map[string]any) (any, error) {
	id, err := decodeID(args)
	if err != nil {
		return nil, err
	}
	ws, err := h.workspace(ctx)
	if err != nil {
		return nil, err
	}
	deleted, err := ws.Notes.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	return DeleteResult{ID: id, Deleted: deleted}, nil
}
