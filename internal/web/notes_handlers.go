package web

import (
	"net/http"
	"strings"

	"github.com/kuitang/agent-dashboard/internal/errs"
	"github.com/kuitang/agent-dashboard/internal/notes"
)

// NotesPageData contains data for the notes page.
type NotesPageData struct {
	PageData
	Notes  []notes.Note
	Total  int
	Query  string
	Scope  notes.Scope
	Scopes []notes.Scope
	Form   NoteForm
}

// NoteForm echoes a rejected submission back into the form.
type NoteForm struct {
	Title   string
	Content string
	Tags    string
	// Draft lists the normalized tags, each with its own remove button.
	Draft []string
}

// tagDraft reads the comma-separated tag field.
func tagDraft(raw string) *notes.TagDraft {
	return notes.NewTagDraft(strings.Split(raw, ",")...)
}

// splitTags reads the comma-separated tag field.
func splitTags(raw string) []string {
	return tagDraft(raw).Tags()
}

func (h *WebHandler) renderNotes(w http.ResponseWriter, r *http.Request, form NoteForm, formErr error) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	scope, err := notes.ParseScope(q.Get("scope"))
	if err != nil {
		scope = notes.ScopeAll
	}
	all := ws.Notes.List()
	data := NotesPageData{
		PageData: h.page(r, ws, "Notes", "notes"),
		Notes:    notes.Search(all, q.Get("q"), scope),
		Total:    len(all),
		Query:    q.Get("q"),
		Scope:    scope,
		Scopes:   []notes.Scope{notes.ScopeAll, notes.ScopeTitle, notes.ScopeContent, notes.ScopeTags},
		Form:     form,
	}
	status := http.StatusOK
	if formErr != nil {
		data.Error = errs.MessageOf(formErr)
		status = http.StatusBadRequest
	}
	h.renderStatus(w, r, status, "notes/list.html", data)
}

// HandleNotes handles GET /dashboard/notes?q=&scope=.
func (h *WebHandler) HandleNotes(w http.ResponseWriter, r *http.Request) {
	h.renderNotes(w, r, NoteForm{}, nil)
}

// HandleCreateNote handles POST /dashboard/notes. A remove_tag value drops
// that tag from the draft and re-renders the form without saving.
func (h *WebHandler) HandleCreateNote(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	form := NoteForm{
		Title:   r.PostFormValue("title"),
		Content: r.PostFormValue("content"),
		Tags:    r.PostFormValue("tags"),
	}
	if tag := r.PostFormValue("remove_tag"); tag != "" {
		draft := tagDraft(form.Tags)
		draft.Remove(tag)
		form.Draft = draft.Tags()
		form.Tags = strings.Join(form.Draft, ", ")
		h.renderNotes(w, r, form, nil)
		return
	}
	_, err := ws.Notes.Add(r.Context(), notes.CreateNoteParams{
		Title:   form.Title,
		Content: form.Content,
		Tags:    splitTags(form.Tags),
	})
	if err != nil {
		if errs.Is(err, errs.InvalidArgument) {
			form.Draft = splitTags(form.Tags)
			h.renderNotes(w, r, form, err)
			return
		}
		h.fail(w, r, err)
		return
	}
	redirectFlash(w, r, "/dashboard/notes", "success", "Note created: Your new note has been saved")
}

// HandleDeleteNote handles POST /dashboard/notes/{id}/delete.
func (h *WebHandler) HandleDeleteNote(w http.ResponseWriter, r *http.Request) {
	ws, ok := h.workspace(w, r)
	if !ok {
		return
	}
	if id, ok := pathID(r); ok {
		if _, err := ws.Notes.Delete(r.Context(), id); err != nil {
			h.fail(w, r, err)
			return
		}
	}
	redirectFlash(w, r, "/dashboard/notes", "success", "Note deleted: The note has been removed")
}
