// Command server runs the productivity dashboard: HTML pages, the JSON API
// and the MCP endpoint on one listener.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kuitang/agent-dashboard/internal/app"
	"github.com/kuitang/agent-dashboard/internal/auth"
	"github.com/kuitang/agent-dashboard/internal/config"
	"github.com/kuitang/agent-dashboard/internal/obs"
)

const (
	sessionCleanupInterval = time.Hour
	shutdownTimeout        = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		obs.Pkg("main").Error("server_exit", "error", err)
		os.Exit(1)
	}
}

func run() error {
	obs.Init()
	cfg, err := config.LoadConfig(config.ParseFlags())
	if err != nil {
		return err
	}
	obs.SetLevel(obs.ParseLevel(cfg.LogLevel))
	cfg.PrintStartupSummary()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("startup: %w", err)
	}
	defer a.Close()

	handler, err := a.Routes()
	if err != nil {
		return fmt.Errorf("routes: %w", err)
	}

	go runSessionCleanup(ctx, a.Sessions, sessionCleanupInterval)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Chat sends wait on the completion endpoint.
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		obs.Pkg("main").Info("server_listening", "addr", cfg.ListenAddr, "base_url", cfg.BaseURL)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	obs.Pkg("main").Info("server_shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// runSessionCleanup removes expired sessions every interval until ctx ends.
func runSessionCleanup(ctx context.Context, sessions *auth.SessionStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.Cleanup(ctx)
			if err != nil {
				obs.Pkg("main").Warn("session_cleanup_failed", "error", err)
				continue
			}
			if n > 0 {
				obs.Pkg("main").Info("session_cleanup", "removed", n)
			}
		}
	}
}
