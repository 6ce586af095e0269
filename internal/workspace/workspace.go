// Package workspace assembles one user's services over their slice of the
// store and caches them for the life of the process.
package workspace

import (
	"context"
	"sync"
	"time"

	"github.com/kuitang/agent-dashboard/internal/chat"
	"github.com/kuitang/agent-dashboard/internal/collection"
	"github.com/kuitang/agent-dashboard/internal/completion"
	"github.com/kuitang/agent-dashboard/internal/crypto"
	"github.com/kuitang/agent-dashboard/internal/errs"
	"github.com/kuitang/agent-dashboard/internal/kv"
	"github.com/kuitang/agent-dashboard/internal/notes"
	"github.com/kuitang/agent-dashboard/internal/obs"
	"github.com/kuitang/agent-dashboard/internal/ratelimit"
	"github.com/kuitang/agent-dashboard/internal/settings"
	"github.com/kuitang/agent-dashboard/internal/tasks"
)

// Workspace is everything one signed-in user can touch.
type Workspace struct {
	UserID   string
	Tasks    *tasks.Service
	Notes    *notes.Service
	Chat     *chat.Service
	Settings *settings.Service
}

// Credentials is the user's completion API key custody.
func (w *Workspace) Credentials() *chat.CredentialStore {
	return w.Chat.Credentials()
}

// Refresh re-reads the user's collections so writes made by another
// process over the same store (dashctl next to the server) are visible.
func (w *Workspace) Refresh(ctx context.Context) error {
	if err := w.Tasks.Load(ctx); err != nil {
		return err
	}
	if err := w.Notes.Load(ctx); err != nil {
		return err
	}
	return w.Chat.Load(ctx)
}

// Config wires a Manager.
type Config struct {
	Store     kv.Store
	Keyring   *crypto.Keyring
	Completer completion.Completer
	Limiter   *ratelimit.RateLimiter
	Policy    collection.CorruptPolicy
	Clock     func() time.Time
}

// Manager caches one Workspace per user.
type Manager struct {
	cfg Config

	mu     sync.Mutex
	active map[string]*entry
}

type entry struct {
	once sync.Once
	ws   *Workspace
	err  error
}

// NewManager creates a Manager.
func NewManager(cfg Config) *Manager {
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Manager{cfg: cfg, active: make(map[string]*entry)}
}

// For returns the user's workspace, loading its collections on first use
// and re-reading them on every later call. A failed first load is not
// cached, so the next call retries.
func (m *Manager) For(ctx context.Context, userID string) (*Workspace, error) {
	if userID == "" {
		return nil, errs.New(errs.Unauthenticated, "Please sign in")
	}
	m.mu.Lock()
	e, ok := m.active[userID]
	if !ok {
		e = &entry{}
		m.active[userID] = e
	}
	m.mu.Unlock()

	opened := false
	e.once.Do(func() {
		e.ws, e.err = m.open(ctx, userID)
		opened = true
	})
	if e.err != nil {
		m.mu.Lock()
		if m.active[userID] == e {
			delete(m.active, userID)
		}
		m.mu.Unlock()
		return nil, e.err
	}
	if !opened {
		if err := e.ws.Refresh(ctx); err != nil {
			return nil, err
		}
	}
	return e.ws, nil
}

func (m *Manager) open(ctx context.Context, userID string) (*Workspace, error) {
	store := kv.Scoped(m.cfg.Store, userID)
	ws := &Workspace{
		UserID:   userID,
		Tasks:    tasks.NewService(store, m.cfg.Policy, m.cfg.Clock),
		Notes:    notes.NewService(store, m.cfg.Policy, m.cfg.Clock),
		Settings: settings.NewService(store, m.cfg.Policy),
		Chat: chat.NewService(chat.Deps{
			Store:       store,
			Policy:      m.cfg.Policy,
			Credentials: chat.NewCredentialStore(store, m.cfg.Keyring.CredentialKey(userID)),
			Completer:   m.cfg.Completer,
			Gate:        ratelimit.UserGate{Limiter: m.cfg.Limiter, UserID: userID, Class: ratelimit.ClassChat},
			Clock:       m.cfg.Clock,
		}),
	}
	if err := ws.Refresh(ctx); err != nil {
		return nil, err
	}
	obs.From(obs.WithUserID(ctx, userID)).Debug("workspace_loaded", "pkg", "workspace")
	return ws, nil
}

// Evict drops a cached workspace, e.g. after account deletion.
func (m *Manager) Evict(userID string) {
	m.mu.Lock()
	delete(m.active, userID)
	m.mu.Unlock()
	if m.cfg.Limiter != nil {
		m.cfg.Limiter.Forget(userID)
	}
}

// Len reports how many workspaces are cached.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}
