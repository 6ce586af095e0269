package web

import (
	"errors"
	"net/http"

	"github.com/kuitang/agent-dashboard/internal/chat"
	"github.com/kuitang/agent-dashboard/internal/errs"
)

// ChatPageData contains data for the chat page.
type ChatPageData struct {
	PageData
	Messages  []chat.Message
	HasAPIKey bool
	MaskedKey string
	Draft     string
}

func (h *WebHandler) renderChat(w http.ResponseWriter, r *http.Request, draft string, sendErr error) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	data := ChatPageData{
		PageData: h.page(r, ws, "AI Chat Assistant", "chat"),
		Messages: ws.Chat.History(),
		Draft:    draft,
	}
	masked, err := ws.Credentials().Masked(r.Context())
	if err == nil && masked != "" {
		data.HasAPIKey, data.MaskedKey = true, masked
	}
	status := http.StatusOK
	if sendErr != nil {
		data.Error = errs.MessageOf(sendErr)
		status = errs.HTTPStatus(errs.CodeOf(sendErr))
	}
	h.renderStatus(w, r, status, "chat/chat.html", data)
}

// HandleChat handles GET /dashboard/chat.
func (h *WebHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	h.renderChat(w, r, "", nil)
}

// HandleSendChat handles POST /dashboard/chat.
func (h *WebHandler) HandleSendChat(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	text := r.PostFormValue("message")
	res, err := ws.Chat.Send(r.Context(), text)
	switch {
	case err == nil && res.Notice != "":
		redirectFlash(w, r, "/dashboard/chat", "error", res.Notice)
	case err == nil:
		http.Redirect(w, r, "/dashboard/chat", http.StatusFound)
	case errors.Is(err, chat.ErrCredentialRequired),
		errs.Is(err, errs.InvalidArgument),
		errs.Is(err, errs.ResourceExhausted),
		errs.Is(err, errs.FailedPrecondition):
		h.renderChat(w, r, text, err)
	default:
		h.fail(w, r, err)
	}
}

// HandleClearChat handles POST /dashboard/chat/clear.
func (h *WebHandler) HandleClearChat(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Chat.Clear(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	redirectFlash(w, r, "/dashboard/chat", "success", "Chat cleared: Chat history has been cleared")
}

// HandleSaveCredential handles POST /dashboard/chat/credential.
func (h *WebHandler) HandleSaveCredential(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Credentials().Set(r.Context(), r.PostFormValue("api_key")); err != nil {
		if errs.Is(err, errs.InvalidArgument) {
			h.renderChat(w, r, "", err)
			return
		}
		h.fail(w, r, err)
		return
	}
	redirectFlash(w, r, "/dashboard/chat", "success", "API key saved")
}

// HandleDeleteCredential handles POST /dashboard/chat/credential/delete.
func (h *WebHandler) HandleDeleteCredential(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Credentials().Clear(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	redirectFlash(w, r, "/dashboard/chat", "success", "API key removed")
}
