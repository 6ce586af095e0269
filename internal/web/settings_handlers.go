package web

import (
	"net/http"

	"github.com/kuitang/agent-dashboard/internal/auth"
	"github.com/kuitang/agent-dashboard/internal/errs"
	"github.com/kuitang/agent-dashboard/internal/settings"
)

// SettingsPageData contains data for the settings page.
type SettingsPageData struct {
	PageData
	Settings settings.Settings
	Profile  settings.Profile
	Themes   []settings.Theme
	Voices   []settings.Voice
}

func (h *WebHandler) renderSettings(w http.ResponseWriter, r *http.Request, form *settings.Settings, formErr error) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	prefs, err := ws.Settings.Get(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if form != nil {
		prefs = *form
	}
	profile, _, err := ws.Settings.Profile(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data := SettingsPageData{
		PageData: h.page(r, ws, "Settings", "settings"),
		Settings: prefs,
		Profile:  profile,
		Themes:   settings.Themes,
		Voices:   settings.Voices,
	}
	status := http.StatusOK
	if formErr != nil {
		data.Error = errs.MessageOf(formErr)
		status = http.StatusBadRequest
	}
	h.renderStatus(w, r, status, "settings/settings.html", data)
}

// HandleSettings handles GET /dashboard/settings.
func (h *WebHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	h.renderSettings(w, r, nil, nil)
}

// HandleSaveSettings handles POST /dashboard/settings. It saves the
// preferences wholesale and the profile name alongside them.
func (h *WebHandler) HandleSaveSettings(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	form := settings.Settings{
		Theme:         settings.Theme(r.PostFormValue("theme")),
		Notifications: r.PostFormValue("notifications") != "",
		SoundEnabled:  r.PostFormValue("soundEnabled") != "",
		VoiceType:     settings.Voice(r.PostFormValue("voiceType")),
	}
	if err := ws.Settings.Save(r.Context(), form); err != nil {
		if errs.Is(err, errs.InvalidArgument) {
			h.renderSettings(w, r, &form, err)
			return
		}
		h.fail(w, r, err)
		return
	}
	if _, err := ws.Settings.SaveProfile(r.Context(), r.PostFormValue("name")); err != nil {
		h.fail(w, r, err)
		return
	}
	redirectFlash(w, r, "/dashboard/settings", "success", "Settings saved: Your preferences have been updated")
}

// HandleSettingsPasswordReset handles POST /dashboard/settings/password-reset.
func (h *WebHandler) HandleSettingsPasswordReset(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())
	if err := h.authService.RequestReset(r.Context(), sess.Email); err != nil {
		h.fail(w, r, err)
		return
	}
	redirectFlash(w, r, "/dashboard/settings", "success", "Password reset: A password reset link has been sent to your email address")
}

// HandleDeleteAccount handles POST /dashboard/settings/delete-account.
func (h *WebHandler) HandleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFromContext(r.Context())
	if r.PostFormValue("confirm") != "DELETE" {
		h.renderSettings(w, r, nil, errs.Invalidf("Type DELETE to confirm account deletion"))
		return
	}
	if err := h.authService.DeleteAccount(r.Context(), sess); err != nil {
		h.fail(w, r, err)
		return
	}
	auth.ClearCookie(w, h.secureCookies)
	redirectFlash(w, r, "/", "success", "Account deleted: Your account and all associated data have been deleted")
}
