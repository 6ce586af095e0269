package web

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/agent-dashboard/internal/auth"
	"github.com/kuitang/agent-dashboard/internal/chat"
	"github.com/kuitang/agent-dashboard/internal/collection"
	"github.com/kuitang/agent-dashboard/internal/completion"
	"github.com/kuitang/agent-dashboard/internal/crypto"
	"github.com/kuitang/agent-dashboard/internal/kv"
	"github.com/kuitang/agent-dashboard/internal/news"
	"github.com/kuitang/agent-dashboard/internal/workspace"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s *stubCompleter) Complete(context.Context, string, []completion.Turn, string) (string, error) {
	return s.reply, s.err
}

type harness struct {
	mux        *http.ServeMux
	store      kv.Store
	auth       *auth.Service
	workspaces *workspace.Manager
	completer  *stubCompleter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := kv.NewMemory()
	ring, err := crypto.NewKeyring(make([]byte, crypto.KeySize))
	require.NoError(t, err)

	completer := &stubCompleter{reply: "Sure thing."}
	manager := workspace.NewManager(workspace.Config{
		Store:     store,
		Keyring:   ring,
		Completer: completer,
		Policy:    collection.PolicyFail,
	})
	sessions := auth.NewSessionStore(store, nil, time.Hour)
	authService := auth.NewService(store, sessions, collection.PolicyFail)
	authService.OnAccountDeleted(manager.Evict)

	renderer, err := NewRenderer()
	require.NoError(t, err)

	mux := http.NewServeMux()
	NewWebHandler(renderer, authService, manager, news.NewFeed(), false).RegisterRoutes(mux, auth.NewMiddleware(authService))
	NewStaticHandler(renderer).RegisterRoutes(mux)
	return &harness{mux: mux, store: store, auth: authService, workspaces: manager, completer: completer}
}

// login signs in through the form and returns the session cookie.
func (h *harness) login(t *testing.T, email string) *http.Cookie {
	t.Helper()
	rec := h.post(t, "/login", nil, url.Values{"email": {email}, "password": {"pw"}})
	require.Equal(t, http.StatusFound, rec.Code)
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatal("login did not set a session cookie")
	return nil
}

func (h *harness) get(t *testing.T, path string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func (h *harness) post(t *testing.T, path string, cookie *http.Cookie, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.mux.ServeHTTP(rec, req)
	return rec
}

func (h *harness) workspace(t *testing.T, email string) *workspace.Workspace {
	t.Helper()
	ws, err := h.workspaces.For(context.Background(), auth.UserIDForEmail(email))
	require.NoError(t, err)
	return ws
}

func TestLanding_ShowsSignInAndRedirectsWhenSignedIn(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec := h.get(t, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `action="/login"`)

	rec = h.get(t, "/?mode=register", nil)
	require.Contains(t, rec.Body.String(), `name="confirm_password"`)

	cookie := h.login(t, "ada@example.com")
	rec = h.get(t, "/", cookie)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestLogin_InvalidEmailRerendersForm(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec := h.post(t, "/login", nil, url.Values{"email": {"not-an-email"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "form-error")
	require.Contains(t, rec.Body.String(), `value="not-an-email"`)
}

func TestRegister_PasswordMismatch(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec := h.post(t, "/register", nil, url.Values{
		"email": {"ada@example.com"}, "password": {"a"}, "confirm_password": {"b"},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "Passwords do not match")
}

func TestDashboard_RequiresSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	for _, path := range []string{"/dashboard", "/dashboard/tasks", "/dashboard/notes", "/dashboard/chat", "/dashboard/news", "/dashboard/settings"} {
		rec := h.get(t, path, nil)
		require.Equal(t, http.StatusSeeOther, rec.Code, path)
		require.Equal(t, "/", rec.Header().Get("Location"), path)
	}
}

func TestDashboard_RendersOverview(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	cookie := h.login(t, "ada@example.com")

	rec := h.get(t, "/dashboard", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "0 of 3 completed")
	require.Contains(t, body, "2 notes")
	require.Contains(t, body, "Add an OpenAI API key")
}

func TestTasks_CreateToggleDelete(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	cookie := h.login(t, "ada@example.com")

	rec := h.post(t, "/dashboard/tasks", cookie, url.Values{"title": {"Write report"}, "recurring": {"on"}})
	require.Equal(t, http.StatusFound, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "success=")

	ws := h.workspace(t, "ada@example.com")
	list := ws.Tasks.List()
	require.Len(t, list, 4)
	created := list[3]
	require.Equal(t, "Write report", created.Title)
	require.True(t, created.Recurring)

	rec = h.post(t, "/dashboard/tasks/4/toggle", cookie, url.Values{"status": {"completed"}})
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/dashboard/tasks?status=completed", rec.Header().Get("Location"))
	require.True(t, ws.Tasks.List()[3].Completed)

	rec = h.get(t, "/dashboard/tasks?status=completed", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Write report")
	require.NotContains(t, rec.Body.String(), "Team meeting")

	rec = h.post(t, "/dashboard/tasks/4/delete", cookie, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Len(t, ws.Tasks.List(), 3)

	// Unknown ids are a no-op.
	rec = h.post(t, "/dashboard/tasks/99/delete", cookie, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Len(t, ws.Tasks.List(), 3)
}

func TestTasks_BlankTitleRejected(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	cookie := h.login(t, "ada@example.com")

	rec := h.post(t, "/dashboard/tasks", cookie, url.Values{"title": {"   "}, "description": {"kept"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "form-error")
	require.Contains(t, rec.Body.String(), ">kept</textarea>")
	require.Len(t, h.workspace(t, "ada@example.com").Tasks.List(), 3)
}

func TestNotes_CreateSearchDelete(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	cookie := h.login(t, "ada@example.com")

	rec := h.post(t, "/dashboard/notes", cookie, url.Values{
		"title":   {"Groceries"},
		"content": {"**milk** and eggs"},
		"tags":    {" home, errands ,, home"},
	})
	require.Equal(t, http.StatusFound, rec.Code)

	ws := h.workspace(t, "ada@example.com")
	list := ws.Notes.List()
	require.Len(t, list, 3)
	require.Equal(t, []string{"home", "errands"}, list[2].Tags)

	rec = h.get(t, "/dashboard/notes?q=MILK&scope=content", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Groceries")
	require.Contains(t, body, "<strong>milk</strong>")
	require.Contains(t, body, "1 of 3 notes match")

	rec = h.get(t, "/dashboard/notes?q=milk&scope=title", cookie)
	require.Contains(t, rec.Body.String(), "No notes match")

	rec = h.post(t, "/dashboard/notes/3/delete", cookie, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Len(t, ws.Notes.List(), 2)
}

func TestNotes_RemoveTagRerendersDraftWithoutSaving(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	cookie := h.login(t, "ada@example.com")

	rec := h.post(t, "/dashboard/notes", cookie, url.Values{
		"title":      {"Groceries"},
		"content":    {"milk"},
		"tags":       {"home, errands, weekly"},
		"remove_tag": {"errands"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `value="home, weekly"`)
	require.Contains(t, body, `name="remove_tag" value="weekly"`)
	require.NotContains(t, body, `name="remove_tag" value="errands"`)
	require.Len(t, h.workspace(t, "ada@example.com").Notes.List(), 2)
}

func TestNotes_ScriptContentIsSanitized(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	cookie := h.login(t, "ada@example.com")

	h.post(t, "/dashboard/notes", cookie, url.Values{
		"title":   {"xss"},
		"content": {"<script>alert(1)</script>[x](javascript:alert(1))"},
	})
	rec := h.get(t, "/dashboard/notes", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), "<script>alert(1)")
	require.NotContains(t, rec.Body.String(), `href="javascript:`)
}

func TestChat_RequiresCredentialThenSends(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	cookie := h.login(t, "ada@example.com")

	rec := h.post(t, "/dashboard/chat", cookie, url.Values{"message": {"hello"}})
	require.Equal(t, http.StatusPreconditionRequired, rec.Code)
	require.Contains(t, rec.Body.String(), ">hello</textarea>")

	rec = h.post(t, "/dashboard/chat/credential", cookie, url.Values{"api_key": {"sk-test-1234567890abcd"}})
	require.Equal(t, http.StatusFound, rec.Code)

	rec = h.get(t, "/dashboard/chat", cookie)
	require.Contains(t, rec.Body.String(), "abcd")
	require.NotContains(t, rec.Body.String(), "sk-test-1234567890abcd")

	rec = h.post(t, "/dashboard/chat", cookie, url.Values{"message": {"hello"}})
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/dashboard/chat", rec.Header().Get("Location"))

	history := h.workspace(t, "ada@example.com").Chat.History()
	require.Len(t, history, 3)
	require.Equal(t, "Sure thing.", history[2].Text)
}

func TestChat_CompletionFailureShowsNotice(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.completer.err = errors.New("upstream down")
	cookie := h.login(t, "ada@example.com")
	h.post(t, "/dashboard/chat/credential", cookie, url.Values{"api_key": {"sk-test"}})

	rec := h.post(t, "/dashboard/chat", cookie, url.Values{"message": {"hello"}})
	require.Equal(t, http.StatusFound, rec.Code)
	require.Contains(t, rec.Header().Get("Location"), "error=")

	history := h.workspace(t, "ada@example.com").Chat.History()
	require.Equal(t, chat.FallbackReply, history[len(history)-1].Text)
}

func TestChat_ClearAndRemoveCredential(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	cookie := h.login(t, "ada@example.com")
	h.post(t, "/dashboard/chat/credential", cookie, url.Values{"api_key": {"sk-test"}})
	h.post(t, "/dashboard/chat", cookie, url.Values{"message": {"hello"}})

	rec := h.post(t, "/dashboard/chat/clear", cookie, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	ws := h.workspace(t, "ada@example.com")
	history := ws.Chat.History()
	require.Len(t, history, 1)
	require.Equal(t, chat.WelcomeID, history[0].ID)

	rec = h.post(t, "/dashboard/chat/credential/delete", cookie, nil)
	require.Equal(t, http.StatusFound, rec.Code)
	has, err := ws.Credentials().Has(context.Background())
	require.NoError(t, err)
	require.False(t, has)
}

func TestNews_FiltersByCategory(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	cookie := h.login(t, "ada@example.com")

	rec := h.get(t, "/dashboard/news?category=technology", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, a := range news.NewFeed().All() {
		if a.Category == "technology" {
			continue
		}
		require.NotContains(t, body, `href="`+a.URL+`"`, a.Title)
	}

	rec = h.get(t, "/dashboard/news?category=nonexistent", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "No articles in this category")
}

func TestSettings_SaveAndTheme(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	cookie := h.login(t, "ada@example.com")

	rec := h.post(t, "/dashboard/settings", cookie, url.Values{
		"theme": {"dark"}, "voiceType": {"friendly"}, "name": {"Ada"}, "soundEnabled": {"on"},
	})
	require.Equal(t, http.StatusFound, rec.Code)

	rec = h.get(t, "/dashboard/settings", cookie)
	body := rec.Body.String()
	require.Contains(t, body, `data-theme="dark"`)
	require.Contains(t, body, `value="Ada"`)

	prefs, err := h.workspace(t, "ada@example.com").Settings.Get(context.Background())
	require.NoError(t, err)
	require.False(t, prefs.Notifications)
	require.True(t, prefs.SoundEnabled)

	rec = h.post(t, "/dashboard/settings", cookie, url.Values{"theme": {"neon"}, "voiceType": {"calm"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "form-error")
}

func TestSettings_DeleteAccount(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	cookie := h.login(t, "ada@example.com")
	h.post(t, "/dashboard/tasks", cookie, url.Values{"title": {"gone soon"}})

	rec := h.post(t, "/dashboard/settings/delete-account", cookie, url.Values{"confirm": {"nope"}})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.post(t, "/dashboard/settings/delete-account", cookie, url.Values{"confirm": {"DELETE"}})
	require.Equal(t, http.StatusFound, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/?success="))

	keys, err := h.store.Keys(context.Background(), kv.UserPrefix(auth.UserIDForEmail("ada@example.com")))
	require.NoError(t, err)
	require.Empty(t, keys)

	rec = h.get(t, "/dashboard", cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code, "old session must be gone")
}

func TestLogout_EndsSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	cookie := h.login(t, "ada@example.com")

	rec := h.post(t, "/logout", cookie, nil)
	require.Equal(t, http.StatusFound, rec.Code)

	rec = h.get(t, "/dashboard", cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestStaticPages(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	rec := h.get(t, "/about", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "static-page")

	rec = h.get(t, "/static/app.css", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
