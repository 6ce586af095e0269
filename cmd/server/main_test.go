package main

import (
	"context"
	"testing"
	"time"

	"github.com/kuitang/agent-dashboard/internal/auth"
	"github.com/kuitang/agent-dashboard/internal/kv"
)

func TestRunSessionCleanup_RemovesExpiredAndStops(t *testing.T) {
	t.Parallel()
	store := kv.NewMemory()
	sessions := auth.NewSessionStore(store, nil, time.Millisecond)
	if _, err := sessions.Create(context.Background(), "user-1", "a@example.com"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runSessionCleanup(ctx, sessions, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for {
		keys, err := store.Keys(context.Background(), "sessions/")
		if err != nil {
			t.Fatal(err)
		}
		if len(keys) == 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("expired session still stored: %v", keys)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup loop did not stop")
	}
}
