package web

import (
	"net/http"

	"github.com/kuitang/agent-dashboard/internal/auth"
	"github.com/kuitang/agent-dashboard/internal/errs"
)

// AuthPageData drives the combined login/register/forgot page.
type AuthPageData struct {
	PageData
	Mode  string // "login", "register" or "forgot"
	Email string
}

func authMode(raw string) string {
	switch raw {
	case "register", "forgot":
		return raw
	default:
		return "login"
	}
}

// HandleLanding handles GET / - the sign-in page, or the dashboard when signed in.
func (h *WebHandler) HandleLanding(w http.ResponseWriter, r *http.Request) {
	if auth.IsAuthenticated(r.Context()) {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	data := AuthPageData{
		PageData: newPageData(r, "Sign in", ""),
		Mode:     authMode(r.URL.Query().Get("mode")),
	}
	h.render(w, r, "auth/auth.html", data)
}

func (h *WebHandler) renderAuthError(w http.ResponseWriter, r *http.Request, mode, email string, err error) {
	if !errs.Is(err, errs.InvalidArgument) {
		h.fail(w, r, err)
		return
	}
	data := AuthPageData{
		PageData: newPageData(r, "Sign in", ""),
		Mode:     mode,
		Email:    email,
	}
	data.Error = errs.MessageOf(err)
	h.renderStatus(w, r, http.StatusBadRequest, "auth/auth.html", data)
}

func (h *WebHandler) startSession(w http.ResponseWriter, r *http.Request, sess auth.Session, message string) {
	auth.SetCookie(w, sess, h.secureCookies)
	redirectFlash(w, r, "/dashboard", "success", message)
}

// HandleLogin handles POST /login.
func (h *WebHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	email, password := r.PostFormValue("email"), r.PostFormValue("password")
	sess, err := h.authService.Login(r.Context(), email, password)
	if err != nil {
		h.renderAuthError(w, r, "login", email, err)
		return
	}
	h.startSession(w, r, sess, "Login successful! Welcome to Productivity Dashboard")
}

// HandleRegister handles POST /register.
func (h *WebHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	sess, err := h.authService.Register(r.Context(), email, r.PostFormValue("password"), r.PostFormValue("confirm_password"))
	if err != nil {
		h.renderAuthError(w, r, "register", email, err)
		return
	}
	h.startSession(w, r, sess, "Registration successful! Welcome to Productivity Dashboard")
}

// HandleForgotPassword handles POST /forgot.
func (h *WebHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	if err := h.authService.RequestReset(r.Context(), email); err != nil {
		h.renderAuthError(w, r, "forgot", email, err)
		return
	}
	redirectFlash(w, r, "/", "success", "Password reset email sent! Please check your email for password reset instructions.")
}

// HandleLogout handles POST /logout.
func (h *WebHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if sessionID, err := auth.GetFromRequest(r); err == nil {
		if err := h.authService.Logout(r.Context(), sessionID); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	auth.ClearCookie(w, h.secureCookies)
	redirectFlash(w, r, "/", "success", "You have been successfully logged out")
}
