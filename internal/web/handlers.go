package web

import (
	"net/http"
	"net/url"

	"github.com/kuitang/agent-dashboard/internal/auth"
	"github.com/kuitang/agent-dashboard/internal/errs"
	"github.com/kuitang/agent-dashboard/internal/news"
	"github.com/kuitang/agent-dashboard/internal/obs"
	"github.com/kuitang/agent-dashboard/internal/settings"
	"github.com/kuitang/agent-dashboard/internal/workspace"
)

// WebHandler provides HTTP handlers for web UI pages.
type WebHandler struct {
	renderer      *Renderer
	authService   *auth.Service
	workspaces    *workspace.Manager
	feed          *news.Feed
	secureCookies bool
}

// NewWebHandler creates a new web handler.
func NewWebHandler(
	renderer *Renderer,
	authService *auth.Service,
	workspaces *workspace.Manager,
	feed *news.Feed,
	secureCookies bool,
) *WebHandler {
	return &WebHandler{
		renderer:      renderer,
		authService:   authService,
		workspaces:    workspaces,
		feed:          feed,
		secureCookies: secureCookies,
	}
}

// RegisterRoutes registers all web UI routes on the given mux.
func (h *WebHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	page := func(fn http.HandlerFunc) http.Handler { return authMiddleware.RequirePage(fn) }

	// Sign-in stub
	mux.Handle("GET /{$}", authMiddleware.OptionalAuth(http.HandlerFunc(h.HandleLanding)))
	mux.HandleFunc("POST /login", h.HandleLogin)
	mux.HandleFunc("POST /register", h.HandleRegister)
	mux.HandleFunc("POST /forgot", h.HandleForgotPassword)
	mux.HandleFunc("POST /logout", h.HandleLogout)

	mux.Handle("GET /dashboard", page(h.HandleDashboard))

	mux.Handle("GET /dashboard/tasks", page(h.HandleTasks))
	mux.Handle("POST /dashboard/tasks", page(h.HandleCreateTask))
	mux.Handle("POST /dashboard/tasks/{id}/toggle", page(h.HandleToggleTask))
	mux.Handle("POST /dashboard/tasks/{id}/delete", page(h.HandleDeleteTask))

	mux.Handle("GET /dashboard/notes", page(h.HandleNotes))
	mux.Handle("POST /dashboard/notes", page(h.HandleCreateNote))
	mux.Handle("POST /dashboard/notes/{id}/delete", page(h.HandleDeleteNote))

	mux.Handle("GET /dashboard/chat", page(h.HandleChat))
	mux.Handle("POST /dashboard/chat", page(h.HandleSendChat))
	mux.Handle("POST /dashboard/chat/clear", page(h.HandleClearChat))
	mux.Handle("POST /dashboard/chat/credential", page(h.HandleSaveCredential))
	mux.Handle("POST /dashboard/chat/credential/delete", page(h.HandleDeleteCredential))

	mux.Handle("GET /dashboard/news", page(h.HandleNews))

	mux.Handle("GET /dashboard/settings", page(h.HandleSettings))
	mux.Handle("POST /dashboard/settings", page(h.HandleSaveSettings))
	mux.Handle("POST /dashboard/settings/password-reset", page(h.HandleSettingsPasswordReset))
	mux.Handle("POST /dashboard/settings/delete-account", page(h.HandleDeleteAccount))
}

// PageData contains common data passed to all templates.
type PageData struct {
	Title        string
	Active       string // nav item to highlight
	Email        string
	Name         string
	Theme        string // resolved "light" or "dark"
	FlashMessage string
	FlashType    string // "success", "error", "info"
	Error        string
}

// ErrorPageData is rendered by RenderError.
type ErrorPageData struct {
	PageData
	ErrorCode string
}

func newPageData(r *http.Request, title, active string) PageData {
	data := PageData{Title: title, Active: active, Theme: "light"}
	if sess, ok := auth.SessionFromContext(r.Context()); ok {
		data.Email = sess.Email
	}
	q := r.URL.Query()
	switch {
	case q.Get("error") != "":
		data.FlashMessage, data.FlashType = q.Get("error"), "error"
	case q.Get("success") != "":
		data.FlashMessage, data.FlashType = q.Get("success"), "success"
	case q.Get("info") != "":
		data.FlashMessage, data.FlashType = q.Get("info"), "info"
	}
	return data
}

// prefersDark reads the Sec-CH-Prefers-Color-Scheme client hint.
func prefersDark(r *http.Request) bool {
	return r.Header.Get("Sec-CH-Prefers-Color-Scheme") == "dark"
}

// page builds PageData for a signed-in view, applying the user's theme and name.
func (h *WebHandler) page(r *http.Request, ws *workspace.Workspace, title, active string) PageData {
	data := newPageData(r, title, active)
	if prefs, err := ws.Settings.Get(r.Context()); err == nil {
		data.Theme = settings.ResolveTheme(prefs.Theme, prefersDark(r))
	}
	if p, found, err := ws.Settings.Profile(r.Context()); err == nil && found {
		data.Name = p.Name
	}
	return data
}

// workspace resolves the signed-in user's workspace or renders an error.
func (h *WebHandler) workspace(w http.ResponseWriter, r *http.Request) (*workspace.Workspace, bool) {
	ws, err := h.workspaces.For(r.Context(), auth.GetUserID(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return ws, true
}

// fail logs err and renders its user-facing message with the mapped status.
func (h *WebHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := errs.CodeOf(err)
	status := errs.HTTPStatus(code)
	if status >= http.StatusInternalServerError {
		obs.From(r.Context()).Error("web_request_failed", "pkg", "web", "path", r.URL.Path, "code", code, "error", errs.Detail(err))
	}
	h.renderer.RenderError(w, status, errs.MessageOf(err))
}

// redirectFlash redirects to path with a one-shot flash message.
func redirectFlash(w http.ResponseWriter, r *http.Request, path, kind, message string) {
	target := path
	if message != "" {
		target += "?" + url.Values{kind: {message}}.Encode()
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *WebHandler) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	h.renderStatus(w, r, http.StatusOK, name, data)
}

func (h *WebHandler) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if err := h.renderer.RenderStatus(w, status, name, data); err != nil {
		obs.From(r.Context()).Error("template_render_failed", "pkg", "web", "template", name, "error", err)
		h.renderer.RenderError(w, http.StatusInternalServerError, "Failed to render page")
	}
}
