package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/kuitang/agent-dashboard/internal/auth"
	"github.com/kuitang/agent-dashboard/internal/chat"
	"github.com/kuitang/agent-dashboard/internal/collection"
	"github.com/kuitang/agent-dashboard/internal/completion"
	"github.com/kuitang/agent-dashboard/internal/crypto"
	"github.com/kuitang/agent-dashboard/internal/kv"
	"github.com/kuitang/agent-dashboard/internal/news"
	"github.com/kuitang/agent-dashboard/internal/notes"
	"github.com/kuitang/agent-dashboard/internal/ratelimit"
	"github.com/kuitang/agent-dashboard/internal/settings"
	"github.com/kuitang/agent-dashboard/internal/tasks"
	"github.com/kuitang/agent-dashboard/internal/testutil"
	"github.com/kuitang/agent-dashboard/internal/workspace"
)

type fakeCompleter struct {
	err error
}

func (f fakeCompleter) Complete(_ context.Context, _ string, history []completion.Turn, text string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "echo: " + text, nil
}

type apiServer struct {
	mux    *http.ServeMux
	cookie *http.Cookie
}

func newAPIServer(t tb, completer completion.Completer, limiter *ratelimit.RateLimiter) *apiServer {
	store := kv.NewMemory()
	ring, err := crypto.NewKeyring(make([]byte, crypto.KeySize))
	if err != nil {
		t.Fatal(err)
	}
	manager := workspace.NewManager(workspace.Config{
		Store:     store,
		Keyring:   ring,
		Completer: completer,
		Limiter:   limiter,
		Policy:    collection.PolicyFail,
	})
	authService := auth.NewService(store, auth.NewSessionStore(store, nil, time.Hour), collection.PolicyFail)
	sess, err := authService.Login(context.Background(), "ada@example.com", "")
	if err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	NewHandler(manager, news.NewFeed()).RegisterRoutes(mux, auth.NewMiddleware(authService), limiter)
	return &apiServer{
		mux:    mux,
		cookie: &http.Cookie{Name: auth.SessionCookieName, Value: sess.ID},
	}
}

func (s *apiServer) do(t tb, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(s.cookie)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t tb, rec *httptest.ResponseRecorder) T {
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestAPI_RequiresSession(t *testing.T) {
	t.Parallel()
	s := newAPIServer(t, fakeCompleter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTasksAPI_Lifecycle(t *testing.T) {
	t.Parallel()
	s := newAPIServer(t, fakeCompleter{}, nil)

	rec := s.do(t, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[TaskListResponse](t, rec)
	require.Len(t, list.Tasks, 3)
	require.Equal(t, tasks.Stats{Total: 3, Active: 3}, list.Stats)

	rec = s.do(t, http.MethodPost, "/api/tasks", tasks.CreateTaskParams{Title: "Ship it", DueDate: "2025-05-20T10:00"})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[tasks.Task](t, rec)
	require.Equal(t, int64(4), created.ID)
	require.False(t, created.Completed)

	rec = s.do(t, http.MethodPost, "/api/tasks/4/toggle", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, decodeBody[tasks.Task](t, rec).Completed)

	rec = s.do(t, http.MethodGet, "/api/tasks?status=completed", nil)
	list = decodeBody[TaskListResponse](t, rec)
	require.Len(t, list.Tasks, 1)
	require.Equal(t, 25, list.Stats.Percent)

	rec = s.do(t, http.MethodPost, "/api/tasks/404/toggle", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/tasks/4", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(t, http.MethodDelete, "/api/tasks/4", nil)
	require.Equal(t, http.StatusNoContent, rec.Code, "deleting twice is a no-op")

	rec = s.do(t, http.MethodGet, "/api/tasks?status=bogus", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func testCreateTask_BlankTitleRejected(t *rapid.T) {
	s := newAPIServer(t, fakeCompleter{}, nil)
	title := testutil.BlankString().Draw(t, "title")

	rec := s.do(t, http.MethodPost, "/api/tasks", tasks.CreateTaskParams{Title: title})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("blank title %q: status %d", title, rec.Code)
	}
	if got := decodeBody[TaskListResponse](t, s.do(t, http.MethodGet, "/api/tasks", nil)); len(got.Tasks) != 3 {
		t.Fatalf("rejected create changed the list: %d tasks", len(got.Tasks))
	}
}

func TestCreateTask_BlankTitleRejected(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testCreateTask_BlankTitleRejected)
}

func TestNotesAPI_SearchAndDelete(t *testing.T) {
	t.Parallel()
	s := newAPIServer(t, fakeCompleter{}, nil)

	rec := s.do(t, http.MethodPost, "/api/notes", notes.CreateNoteParams{Title: "Reading list", Content: "Dune", Tags: []string{"books", " books "}})
	require.Equal(t, http.StatusCreated, rec.Code)
	note := decodeBody[notes.Note](t, rec)
	require.Equal(t, []string{"books"}, note.Tags)

	rec = s.do(t, http.MethodGet, "/api/notes?q=BOOK&scope=tags", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeBody[NoteListResponse](t, rec)
	require.Len(t, res.Notes, 1)
	require.Equal(t, 3, res.Total)

	rec = s.do(t, http.MethodGet, "/api/notes?scope=nope", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/notes/"+itoa(note.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	res = decodeBody[NoteListResponse](t, s.do(t, http.MethodGet, "/api/notes", nil))
	require.Equal(t, 2, res.Total)

	rec = s.do(t, http.MethodDelete, "/api/notes/abc", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatAPI_CredentialGateAndSend(t *testing.T) {
	t.Parallel()
	s := newAPIServer(t, fakeCompleter{}, nil)

	rec := s.do(t, http.MethodPost, "/api/chat", SendRequest{Text: "hi"})
	require.Equal(t, http.StatusPreconditionRequired, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/chat/credential", CredentialRequest{APIKey: "sk-abcdefghijklmnop"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "sk-...mnop", decodeBody[map[string]string](t, rec)["maskedKey"])

	rec = s.do(t, http.MethodPost, "/api/chat", SendRequest{Text: "hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeBody[chat.SendResult](t, rec)
	require.Equal(t, "echo: hi", res.Reply.Text)
	require.Empty(t, res.Notice)

	rec = s.do(t, http.MethodGet, "/api/chat", nil)
	history := decodeBody[ChatResponse](t, rec)
	require.True(t, history.HasAPIKey)
	require.Len(t, history.Messages, 3)

	rec = s.do(t, http.MethodDelete, "/api/chat", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeBody[ChatResponse](t, rec).Messages, 1)

	rec = s.do(t, http.MethodDelete, "/api/chat/credential", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.False(t, decodeBody[ChatResponse](t, s.do(t, http.MethodGet, "/api/chat", nil)).HasAPIKey)
}

func TestChatAPI_FailedCompletionReturnsFallback(t *testing.T) {
	t.Parallel()
	s := newAPIServer(t, fakeCompleter{err: errors.New("boom")}, nil)
	s.do(t, http.MethodPut, "/api/chat/credential", CredentialRequest{APIKey: "sk-abcdefghijklmnop"})

	rec := s.do(t, http.MethodPost, "/api/chat", SendRequest{Text: "hi"})
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeBody[chat.SendResult](t, rec)
	require.Equal(t, chat.FallbackReply, res.Reply.Text)
	require.Equal(t, chat.FailureNotice, res.Notice)
}

func TestChatAPI_BlankMessageRejected(t *testing.T) {
	t.Parallel()
	s := newAPIServer(t, fakeCompleter{}, nil)
	s.do(t, http.MethodPut, "/api/chat/credential", CredentialRequest{APIKey: "sk-abcdefghijklmnop"})

	rec := s.do(t, http.MethodPost, "/api/chat", SendRequest{Text: "  \n"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, decodeBody[ChatResponse](t, s.do(t, http.MethodGet, "/api/chat", nil)).Messages, 1)
}

func TestSettingsAPI_RoundTripAndValidation(t *testing.T) {
	t.Parallel()
	s := newAPIServer(t, fakeCompleter{}, nil)

	rec := s.do(t, http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[SettingsResponse](t, rec)
	require.Equal(t, settings.Defaults(), got.Settings)
	require.Equal(t, "ada@example.com", got.Profile.Email)

	want := settings.Settings{Theme: settings.ThemeDark, VoiceType: settings.VoiceProfessional}
	rec = s.do(t, http.MethodPut, "/api/settings", want)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, want, decodeBody[SettingsResponse](t, rec).Settings)

	rec = s.do(t, http.MethodPut, "/api/settings", settings.Settings{Theme: "neon", VoiceType: settings.VoiceCalm})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotEmpty(t, decodeBody[ErrorResponse](t, rec).Error)
}

func TestNewsAPI_Category(t *testing.T) {
	t.Parallel()
	s := newAPIServer(t, fakeCompleter{}, nil)

	rec := s.do(t, http.MethodGet, "/api/news?category=sports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeBody[map[string][]news.Article](t, rec)
	require.NotEmpty(t, res["articles"])
	for _, a := range res["articles"] {
		require.Equal(t, "sports", a.Category)
	}

	res = decodeBody[map[string][]news.Article](t, s.do(t, http.MethodGet, "/api/news", nil))
	require.Len(t, res["articles"], len(news.NewFeed().All()))
}

func TestAPI_RateLimited(t *testing.T) {
	t.Parallel()
	limiter := ratelimit.NewRateLimiter(ratelimit.Config{APIRPS: 0.001, APIBurst: 2, ChatRPS: 1, ChatBurst: 1, CleanupInterval: time.Hour})
	defer limiter.Stop()
	s := newAPIServer(t, fakeCompleter{}, limiter)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/tasks", nil).Code)
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/api/tasks", nil).Code)
	rec := s.do(t, http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestAPI_InvalidJSON(t *testing.T) {
	t.Parallel()
	s := newAPIServer(t, fakeCompleter{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewBufferString("{"))
	req.AddCookie(s.cookie)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Invalid JSON body", decodeBody[ErrorResponse](t, rec).Error)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

// tb is the part of testing.TB that *rapid.T also provides.
type tb interface {
	Fatal(args ...any)
	Fatalf(format string, args ...any)
}
