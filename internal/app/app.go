// Package app assembles the dashboard's services from a Config. The HTTP
// server and the CLI both start here so they open the store the same way.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kuitang/agent-dashboard/internal/api"
	"github.com/kuitang/agent-dashboard/internal/auth"
	"github.com/kuitang/agent-dashboard/internal/collection"
	"github.com/kuitang/agent-dashboard/internal/completion"
	"github.com/kuitang/agent-dashboard/internal/config"
	"github.com/kuitang/agent-dashboard/internal/crypto"
	"github.com/kuitang/agent-dashboard/internal/db"
	"github.com/kuitang/agent-dashboard/internal/kv"
	"github.com/kuitang/agent-dashboard/internal/mcp"
	"github.com/kuitang/agent-dashboard/internal/news"
	"github.com/kuitang/agent-dashboard/internal/obs"
	"github.com/kuitang/agent-dashboard/internal/ratelimit"
	"github.com/kuitang/agent-dashboard/internal/s3client"
	"github.com/kuitang/agent-dashboard/internal/web"
	"github.com/kuitang/agent-dashboard/internal/workspace"
)

// s3Root is the object prefix every dashboard key lives under.
const s3Root = "dashboard"

// App holds the long-lived services.
type App struct {
	Config     *config.Config
	Store      kv.Store
	Keyring    *crypto.Keyring
	Limiter    *ratelimit.RateLimiter
	Completer  *completion.Client
	Workspaces *workspace.Manager
	Sessions   *auth.SessionStore
	Auth       *auth.Service
	Feed       *news.Feed

	closers []func() error
}

// New opens the configured store and wires every service over it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	keyring, err := crypto.NewKeyring(cfg.MasterKeyBytes())
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	policy, err := collection.ParseCorruptPolicy(cfg.CorruptPolicy)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Keyring: keyring, Feed: news.NewFeed()}
	store, closeStore, err := OpenStore(ctx, cfg, keyring)
	if err != nil {
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, closeStore)

	a.Limiter = ratelimit.NewRateLimiter(cfg.RateLimitConfig)
	a.closers = append(a.closers, func() error { a.Limiter.Stop(); return nil })

	a.Completer = completion.New(completion.Config{BaseURL: cfg.OpenAIBaseURL, Model: cfg.OpenAIModel})
	a.Workspaces = workspace.NewManager(workspace.Config{
		Store:     store,
		Keyring:   keyring,
		Completer: a.Completer,
		Limiter:   a.Limiter,
		Policy:    policy,
	})
	a.Sessions = auth.NewSessionStore(store, nil, cfg.SessionDuration)
	a.Auth = auth.NewService(store, a.Sessions, policy)
	a.Auth.OnAccountDeleted(a.Workspaces.Evict)
	return a, nil
}

// OpenStore opens the backend named by cfg.StoreBackend. The returned func
// releases it.
func OpenStore(ctx context.Context, cfg *config.Config, keyring *crypto.Keyring) (kv.Store, func() error, error) {
	logger := obs.Pkg("app")
	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn("store_opened", "backend", "memory")
		return kv.NewMemory(), func() error { return nil }, nil

	case config.BackendS3:
		if cfg.NoS3 {
			client, shutdown, err := s3client.NewInMemory(ctx, "dashboard-local")
			if err != nil {
				return nil, nil, fmt.Errorf("mock s3: %w", err)
			}
			logger.Warn("store_opened", "backend", "s3", "mock", true)
			return kv.NewS3(client, s3Root), func() error { shutdown(); return nil }, nil
		}
		client, err := s3client.New(ctx, s3client.Config{
			Endpoint:        cfg.AWSEndpointS3,
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			BucketName:      cfg.AWSBucketName,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("s3: %w", err)
		}
		logger.Info("store_opened", "backend", "s3", "bucket", cfg.AWSBucketName)
		return kv.NewS3(client, s3Root), func() error { return nil }, nil

	case config.BackendSQLite, "":
		storeDB, err := db.OpenStoreDB(cfg.DataDir, keyring.StoreKey())
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite: %w", err)
		}
		logger.Info("store_opened", "backend", "sqlite", "data_dir", cfg.DataDir)
		return kv.NewSQLite(storeDB), storeDB.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}

// Routes mounts the web UI, static pages, JSON API and MCP endpoint behind
// request correlation and access logging.
func (a *App) Routes() (http.Handler, error) {
	renderer, err := web.NewRenderer()
	if err != nil {
		return nil, err
	}
	authMiddleware := auth.NewMiddleware(a.Auth)
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})
	web.NewWebHandler(renderer, a.Auth, a.Workspaces, a.Feed, a.Config.RequireSecureCookies()).RegisterRoutes(mux, authMiddleware)
	web.NewStaticHandler(renderer).RegisterRoutes(mux)
	api.NewHandler(a.Workspaces, a.Feed).RegisterRoutes(mux, authMiddleware, a.Limiter)

	mcpHandler := ratelimit.RateLimitMiddleware(a.Limiter, ratelimit.ClassAPI, func(r *http.Request) string {
		return auth.GetUserID(r.Context())
	})(mcp.NewServer(a.Workspaces, mcp.ToolsetAll))
	MountMCPRoute(mux, "/mcp", authMiddleware.RequireAuth(mcpHandler))

	return obs.RequestContextMiddleware(obs.AccessLogMiddleware("http", mux)), nil
}

// MountMCPRoute registers every method the Streamable HTTP transport uses.
func MountMCPRoute(mux *http.ServeMux, path string, handler http.Handler) {
	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions} {
		mux.Handle(method+" "+path, handler)
	}
}

// Close releases the store and stops background work.
func (a *App) Close() error {
	var errList []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}
