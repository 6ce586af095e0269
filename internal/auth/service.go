// Package auth is the dashboard's sign-in stub. It verifies no credentials:
// any email gets a session, and the same email always maps to the same user.
package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/kuitang/agent-dashboard/internal/collection"
	"github.com/kuitang/agent-dashboard/internal/errs"
	"github.com/kuitang/agent-dashboard/internal/kv"
	"github.com/kuitang/agent-dashboard/internal/obs"
	"github.com/kuitang/agent-dashboard/internal/settings"
)

// Service handles login, registration, logout and account deletion.
type Service struct {
	store     kv.Store
	sessions  *SessionStore
	policy    collection.CorruptPolicy
	onDeleted []func(userID string)
}

// NewService creates the auth service over the root (unscoped) store.
func NewService(store kv.Store, sessions *SessionStore, policy collection.CorruptPolicy) *Service {
	return &Service{store: store, sessions: sessions, policy: policy}
}

// OnAccountDeleted registers fn to run after a user's data is removed.
func (s *Service) OnAccountDeleted(fn func(userID string)) {
	s.onDeleted = append(s.onDeleted, fn)
}

// Sessions exposes the underlying session store.
func (s *Service) Sessions() *SessionStore { return s.sessions }

// UserIDForEmail derives the stable user id for an address.
func UserIDForEmail(email string) string {
	return "user-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte("mailto:"+strings.ToLower(email))).String()
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", errs.Invalidf("Email is required")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.ContainsAny(email, " /\t\n") {
		return "", errs.Invalidf("Please enter a valid email address")
	}
	return email, nil
}

// EnsureUser validates email and writes its profile on first use. It
// returns the user id without starting a session.
func (s *Service) EnsureUser(ctx context.Context, email string) (string, string, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return "", "", err
	}
	userID := UserIDForEmail(email)
	profiles := settings.NewService(kv.Scoped(s.store, userID), s.policy)
	if _, err := profiles.EnsureProfile(ctx, email); err != nil {
		return "", "", err
	}
	return userID, email, nil
}

// Login starts a session for email. The password is accepted unchecked.
func (s *Service) Login(ctx context.Context, email, _ string) (Session, error) {
	userID, email, err := s.EnsureUser(ctx, email)
	if err != nil {
		return Session{}, err
	}
	sess, err := s.sessions.Create(ctx, userID, email)
	if err != nil {
		return Session{}, errs.Wrap(errs.Unavailable, "could not start session", err)
	}
	obs.From(obs.WithUserID(ctx, userID)).Info("session_created", "pkg", "auth")
	return sess, nil
}

// Register behaves like Login once password and confirm match.
func (s *Service) Register(ctx context.Context, email, password, confirm string) (Session, error) {
	if password != confirm {
		return Session{}, errs.Invalidf("Passwords do not match")
	}
	return s.Login(ctx, email, password)
}

// RequestReset acknowledges a password reset. Nothing is sent.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	obs.From(ctx).Info("password_reset_requested", "pkg", "auth", "user_id", UserIDForEmail(email))
	return nil
}

// Validate resolves a session id to a live session.
func (s *Service) Validate(ctx context.Context, sessionID string) (Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	switch {
	case err == nil:
		return sess, nil
	case errors.Is(err, ErrSessionNotFound), errors.Is(err, ErrSessionExpired):
		return Session{}, errs.Wrap(errs.Unauthenticated, "Please sign in", err)
	default:
		return Session{}, errs.Wrap(errs.Unavailable, "storage unavailable", err)
	}
}

// Logout ends one session.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return errs.Wrap(errs.Unavailable, "storage unavailable", err)
	}
	return nil
}

// DeleteAccount removes every key the user owns and all their sessions.
func (s *Service) DeleteAccount(ctx context.Context, sess Session) error {
	removed, err := kv.RemovePrefix(ctx, s.store, kv.UserPrefix(sess.UserID))
	if err != nil {
		return errs.Wrap(errs.Unavailable, "could not delete account data", err)
	}
	ended, err := s.sessions.DeleteByUserID(ctx, sess.UserID)
	if err != nil {
		return errs.Wrap(errs.Unavailable, "could not end sessions", err)
	}
	for _, fn := range s.onDeleted {
		fn(sess.UserID)
	}
	obs.From(obs.WithUserID(ctx, sess.UserID)).Info("account_deleted", "pkg", "auth", "keys_removed", removed, "sessions_ended", ended)
	return nil
}
