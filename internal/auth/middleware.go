package auth

import (
	"context"
	"net/http"

	"github.com/kuitang/agent-dashboard/internal/obs"
)

// Context keys for auth data
type contextKey string

const sessionKey contextKey = "session"

// Middleware provides authentication middleware for HTTP handlers.
type Middleware struct {
	service *Service
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(service *Service) *Middleware {
	return &Middleware{service: service}
}

func (m *Middleware) sessionFor(r *http.Request) (Session, bool) {
	sessionID, err := GetFromRequest(r)
	if err != nil {
		return Session{}, false
	}
	sess, err := m.service.Validate(r.Context(), sessionID)
	if err != nil {
		return Session{}, false
	}
	return sess, true
}

// RequireAuth is middleware that requires a valid session.
// Returns 401 Unauthorized if no valid session is present.
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := m.sessionFor(r)
		if !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Please sign in"}` + "\n"))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// RequirePage is RequireAuth for HTML routes: it redirects to the sign-in page.
func (m *Middleware) RequirePage(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := m.sessionFor(r)
		if !ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
	})
}

// OptionalAuth is middleware that adds the session to context if present.
// Does not require authentication - continues with or without a session.
func (m *Middleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sess, ok := m.sessionFor(r); ok {
			r = r.WithContext(WithSession(r.Context(), sess))
		}
		next.ServeHTTP(w, r)
	})
}

// WithSession attaches sess (and its user id for logging) to ctx.
func WithSession(ctx context.Context, sess Session) context.Context {
	ctx = context.WithValue(ctx, sessionKey, sess)
	return obs.WithUserID(ctx, sess.UserID)
}

// SessionFromContext returns the authenticated session, if any.
func SessionFromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(sessionKey).(Session)
	return sess, ok
}

// GetUserID retrieves the user ID from the request context.
// Returns empty string if no user is authenticated.
func GetUserID(ctx context.Context) string {
	sess, _ := SessionFromContext(ctx)
	return sess.UserID
}

// IsAuthenticated checks if the context has an authenticated user.
func IsAuthenticated(ctx context.Context) bool {
	return GetUserID(ctx) != ""
}
