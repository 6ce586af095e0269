package api

import (
	"net/http"

	"github.com/kuitang/agent-dashboard/internal/chat"
)

// ChatResponse is the transcript plus credential status.
type ChatResponse struct {
	Messages  []chat.Message `json:"messages"`
	HasAPIKey bool           `json:"hasApiKey"`
	MaskedKey string         `json:"maskedKey,omitempty"`
}

// SendRequest is the body of POST /api/chat.
type SendRequest struct {
	Text string `json:"text"`
}

// CredentialRequest is the body of PUT /api/chat/credential.
type CredentialRequest struct {
	APIKey string `json:"apiKey"`
}

// GetChat handles GET /api/chat.
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	masked, err := ws.Credentials().Masked(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{
		Messages:  ws.Chat.History(),
		HasAPIKey: masked != "",
		MaskedKey: masked,
	})
}

// SendChat handles POST /api/chat. A failed completion still returns 200
// with the fallback reply and a notice.
func (h *Handler) SendChat(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req SendRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := ws.Chat.Send(r.Context(), req.Text)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ClearChat handles DELETE /api/chat.
func (h *Handler) ClearChat(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Chat.Clear(r.Context()); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ChatResponse{Messages: ws.Chat.History()})
}

// PutCredential handles PUT /api/chat/credential.
func (h *Handler) PutCredential(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	var req CredentialRequest
	if !decode(w, r, &req) {
		return
	}
	creds := ws.Credentials()
	if err := creds.Set(r.Context(), req.APIKey); err != nil {
		writeErr(w, r, err)
		return
	}
	masked, err := creds.Masked(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"maskedKey": masked})
}

// DeleteCredential handles DELETE /api/chat/credential.
func (h *Handler) DeleteCredential(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if err := ws.Credentials().Clear(r.Context()); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
