// Package api exposes the dashboard over JSON for scripts and the CLI.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/kuitang/agent-dashboard/internal/auth"
	"github.com/kuitang/agent-dashboard/internal/errs"
	"github.com/kuitang/agent-dashboard/internal/news"
	"github.com/kuitang/agent-dashboard/internal/notes"
	"github.com/kuitang/agent-dashboard/internal/obs"
	"github.com/kuitang/agent-dashboard/internal/ratelimit"
	"github.com/kuitang/agent-dashboard/internal/settings"
	"github.com/kuitang/agent-dashboard/internal/tasks"
	"github.com/kuitang/agent-dashboard/internal/workspace"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// Handler serves the /api routes for the signed-in user.
type Handler struct {
	workspaces *workspace.Manager
	feed       *news.Feed
}

// NewHandler creates a new API handler.
func NewHandler(workspaces *workspace.Manager, feed *news.Feed) *Handler {
	return &Handler{workspaces: workspaces, feed: feed}
}

// RegisterRoutes registers all API routes. Every route requires a session
// and is metered by the API rate limit class when limiter is non-nil.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, limiter *ratelimit.RateLimiter) {
	wrap := func(fn http.HandlerFunc) http.Handler {
		var next http.Handler = fn
		if limiter != nil {
			next = ratelimit.RateLimitMiddleware(limiter, ratelimit.ClassAPI, func(r *http.Request) string {
				return auth.GetUserID(r.Context())
			})(next)
		}
		return authMiddleware.RequireAuth(next)
	}

	mux.Handle("GET /api/tasks", wrap(h.ListTasks))
	mux.Handle("POST /api/tasks", wrap(h.CreateTask))
	mux.Handle("POST /api/tasks/{id}/toggle", wrap(h.ToggleTask))
	mux.Handle("DELETE /api/tasks/{id}", wrap(h.DeleteTask))

	mux.Handle("GET /api/notes", wrap(h.ListNotes))
	mux.Handle("POST /api/notes", wrap(h.CreateNote))
	mux.Handle("DELETE /api/notes/{id}", wrap(h.DeleteNote))

	mux.Handle("GET /api/chat", wrap(h.GetChat))
	mux.Handle("POST /api/chat", wrap(h.SendChat))
	mux.Handle("DELETE /api/chat", wrap(h.ClearChat))
	mux.Handle("PUT /api/chat/credential", wrap(h.PutCredential))
	mux.Handle("DELETE /api/chat/credential", wrap(h.DeleteCredential))

	mux.Handle("GET /api/settings", wrap(h.GetSettings))
	mux.Handle("PUT /api/settings", wrap(h.PutSettings))

	mux.Handle("GET /api/news", wrap(h.ListNews))
}

// TaskListResponse is returned by GET /api/tasks.
type TaskListResponse struct {
	Tasks []tasks.Task `json:"tasks"`
	Stats tasks.Stats  `json:"stats"`
}

// ListTasks handles GET /api/tasks?status=.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	status, err := tasks.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	all := ws.Tasks.List()
	writeJSON(w, http.StatusOK, TaskListResponse{
		Tasks: tasks.Filter(all, status),
		Stats: tasks.ComputeStats(all),
	})
}

// CreateTask handles POST /api/tasks.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var params tasks.CreateTaskParams
	if !decode(w, r, &params) {
		return
	}
	task, err := ws.Tasks.Add(r.Context(), params)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

// ToggleTask handles POST /api/tasks/{id}/toggle. A missing id returns
// 404 without changing anything.
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	task, found, err := ws.Tasks.Toggle(r.Context(), id)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/{id}. Deleting a missing id is a no-op.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := ws.Tasks.Delete(r.Context(), id); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NoteListResponse is returned by GET /api/notes.
type NoteListResponse struct {
	Notes []notes.Note `json:"notes"`
	Total int          `json:"total"`
}

// ListNotes handles GET /api/notes?q=&scope=.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	scope, err := notes.ParseScope(q.Get("scope"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	all := ws.Notes.List()
	writeJSON(w, http.StatusOK, NoteListResponse{
		Notes: notes.Search(all, q.Get("q"), scope),
		Total: len(all),
	})
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var params notes.CreateNoteParams
	if !decode(w, r, &params) {
		return
	}
	note, err := ws.Notes.Add(r.Context(), params)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if _, err := ws.Notes.Delete(r.Context(), id); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListNews handles GET /api/news?category=.
func (h *Handler) ListNews(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	articles := h.feed.All()
	if category != "" && category != "all" {
		articles = h.feed.ByCategory(category)
	}
	writeJSON(w, http.StatusOK, map[string]any{"articles": articles})
}

// SettingsResponse is returned by GET and PUT /api/settings.
type SettingsResponse struct {
	Settings settings.Settings `json:"settings"`
	Profile  settings.Profile  `json:"profile"`
}

// GetSettings handles GET /api/settings.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	h.writeSettings(w, r, ws)
}

// PutSettings handles PUT /api/settings. The body replaces the whole
// settings document.
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var body settings.Settings
	if !decode(w, r, &body) {
		return
	}
	if err := ws.Settings.Save(r.Context(), body); err != nil {
		writeErr(w, r, err)
		return
	}
	h.writeSettings(w, r, ws)
}

func (h *Handler) writeSettings(w http.ResponseWriter, r *http.Request, ws *workspace.Workspace) {
	prefs, err := ws.Settings.Get(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	profile, _, err := ws.Settings.Profile(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SettingsResponse{Settings: prefs, Profile: profile})
}

func (h *Handler) workspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, err := h.workspaces.For(r.Context(), auth.GetUserID(r.Context()))
	if err != nil {
		writeErr(w, r, err)
		return nil, false
	}
	return ws, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return false
	}
	return true
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response with the given status code
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeErr maps a coded error to its status and user-facing message.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.CodeOf(err)
	status := errs.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		obs.From(r.Context()).Error("api_request_failed", "pkg", "api", "path", r.URL.Path, "code", code, "error", errs.Detail(err))
	}
	writeError(w, status, errs.MessageOf(err))
}
