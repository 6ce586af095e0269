package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kuitang/agent-dashboard/internal/kv"
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Session configuration
const (
	DefaultSessionDuration = 30 * 24 * time.Hour // 30 days
	SessionIDLength        = 32                  // 256 bits
	SessionCookieName      = "session_id"

	sessionPrefix = "sessions/"
)

// Session represents an active user session.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionStore persists sessions in the shared kv store under sessions/<id>.
type SessionStore struct {
	store    kv.Store
	clock    Clock
	duration time.Duration
}

// NewSessionStore creates a session store. A zero duration means
// DefaultSessionDuration.
func NewSessionStore(store kv.Store, clock Clock, duration time.Duration) *SessionStore {
	if clock == nil {
		clock = realClock{}
	}
	if duration <= 0 {
		duration = DefaultSessionDuration
	}
	return &SessionStore{store: store, clock: clock, duration: duration}
}

// Duration is how long new sessions live.
func (s *SessionStore) Duration() time.Duration { return s.duration }

// Create starts a session for a user.
func (s *SessionStore) Create(ctx context.Context, userID, email string) (Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return Session{}, fmt.Errorf("generate session ID: %w", err)
	}
	now := s.clock.Now()
	sess := Session{
		ID:        sessionID,
		UserID:    userID,
		Email:     email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.duration),
	}
	if err := kv.WriteJSON(ctx, s.store, sessionPrefix+sessionID, sess); err != nil {
		return Session{}, fmt.Errorf("store session: %w", err)
	}
	return sess, nil
}

// Get returns a live session. Expired sessions are removed on sight.
func (s *SessionStore) Get(ctx context.Context, sessionID string) (Session, error) {
	if sessionID == "" || strings.Contains(sessionID, "/") {
		return Session{}, ErrSessionNotFound
	}
	var sess Session
	found, err := kv.ReadJSON(ctx, s.store, sessionPrefix+sessionID, &sess)
	if errors.Is(err, kv.ErrCorrupt) {
		_ = s.store.Remove(ctx, sessionPrefix+sessionID)
		return Session{}, ErrSessionNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	if !found {
		return Session{}, ErrSessionNotFound
	}
	if !s.clock.Now().Before(sess.ExpiresAt) {
		_ = s.store.Remove(ctx, sessionPrefix+sessionID)
		return Session{}, ErrSessionExpired
	}
	return sess, nil
}

// Delete removes a session (logout).
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.store.Remove(ctx, sessionPrefix+sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteByUserID removes all sessions for a user.
func (s *SessionStore) DeleteByUserID(ctx context.Context, userID string) (int, error) {
	return s.sweep(ctx, func(sess Session) bool { return sess.UserID == userID })
}

// Cleanup removes all expired sessions.
// This should be called periodically by a background goroutine.
func (s *SessionStore) Cleanup(ctx context.Context) (int, error) {
	now := s.clock.Now()
	return s.sweep(ctx, func(sess Session) bool { return !now.Before(sess.ExpiresAt) })
}

func (s *SessionStore) sweep(ctx context.Context, match func(Session) bool) (int, error) {
	keys, err := s.store.Keys(ctx, sessionPrefix)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}
	removed := 0
	for _, key := range keys {
		var sess Session
		found, err := kv.ReadJSON(ctx, s.store, key, &sess)
		if !found {
			continue
		}
		if err == nil && !match(sess) {
			continue
		}
		if err := s.store.Remove(ctx, key); err != nil {
			return removed, fmt.Errorf("delete session: %w", err)
		}
		removed++
	}
	return removed, nil
}

// Cookie helpers

// SetCookie sets the session cookie on the response.
func SetCookie(w http.ResponseWriter, sess Session, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sess.ExpiresAt.Sub(sess.CreatedAt).Seconds()),
	})
}

// ClearCookie removes the session cookie.
func ClearCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1, // Delete immediately
	})
}

// GetFromRequest retrieves the session ID from the request cookie.
func GetFromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrSessionNotFound
		}
		return "", err
	}
	return cookie.Value, nil
}

// Helper functions

func generateSessionID() (string, error) {
	bytes := make([]byte, SessionIDLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
