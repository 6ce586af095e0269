package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// =============================================================================
// Generators for property-based testing
// =============================================================================

func userIDGenerator() *rapid.Generator[string] {
	return rapid.StringMatching(`[a-z0-9]{8,32}`)
}

func classGenerator() *rapid.Generator[Class] {
	return rapid.SampledFrom([]Class{ClassAPI, ClassChat})
}

func burstFor(cfg Config, class Class) int {
	if class == ClassChat {
		return cfg.ChatBurst
	}
	return cfg.APIBurst
}

// =============================================================================
// Property: Requests within burst succeed, the next one is blocked
// =============================================================================

func testRateLimiter_BurstThenBlocked(t *rapid.T) {
	config := Config{
		APIRPS:          0.001,
		APIBurst:        rapid.IntRange(1, 50).Draw(t, "apiBurst"),
		ChatRPS:         0.001,
		ChatBurst:       rapid.IntRange(1, 10).Draw(t, "chatBurst"),
		CleanupInterval: time.Hour,
	}
	rl := NewRateLimiter(config)
	defer rl.Stop()

	userID := userIDGenerator().Draw(t, "userID")
	class := classGenerator().Draw(t, "class")
	burst := burstFor(config, class)

	for i := 0; i < burst; i++ {
		if !rl.Allow(userID, class) {
			t.Fatalf("request %d of burst %d should have been allowed", i+1, burst)
		}
	}
	if rl.Allow(userID, class) {
		t.Fatalf("request beyond burst %d should be blocked", burst)
	}
}

func TestRateLimiter_BurstThenBlocked(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testRateLimiter_BurstThenBlocked)
}

func FuzzRateLimiter_BurstThenBlocked(f *testing.F) {
	f.Add([]byte{0x00})
	f.Fuzz(rapid.MakeFuzz(testRateLimiter_BurstThenBlocked))
}

// =============================================================================
// Property: Users and classes have independent budgets
// =============================================================================

func testRateLimiter_Independence(t *rapid.T) {
	config := Config{APIRPS: 0.001, APIBurst: 2, ChatRPS: 0.001, ChatBurst: 1, CleanupInterval: time.Hour}
	rl := NewRateLimiter(config)
	defer rl.Stop()

	a := userIDGenerator().Draw(t, "a")
	b := userIDGenerator().Filter(func(s string) bool { return s != a }).Draw(t, "b")

	// Exhaust a's chat budget.
	rl.Allow(a, ClassChat)
	if rl.Allow(a, ClassChat) {
		t.Fatal("a's chat budget should be exhausted")
	}
	if !rl.Allow(a, ClassAPI) {
		t.Fatal("exhausting chat must not affect a's api budget")
	}
	if !rl.Allow(b, ClassChat) {
		t.Fatal("exhausting a must not affect b")
	}
}

func TestRateLimiter_Independence(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testRateLimiter_Independence)
}

// =============================================================================
// Property: Same user and class always get the same limiter
// =============================================================================

func testRateLimiter_GetLimiterConsistency(t *rapid.T) {
	rl := NewRateLimiter(DefaultConfig)
	defer rl.Stop()

	userID := userIDGenerator().Draw(t, "userID")
	class := classGenerator().Draw(t, "class")
	first := rl.GetLimiter(userID, class)
	n := rapid.IntRange(1, 20).Draw(t, "n")
	for i := 0; i < n; i++ {
		if rl.GetLimiter(userID, class) != first {
			t.Fatalf("GetLimiter returned a different limiter on call %d", i+2)
		}
	}
	if rl.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", rl.Len())
	}
}

func TestRateLimiter_GetLimiterConsistency(t *testing.T) {
	t.Parallel()
	rapid.Check(t, testRateLimiter_GetLimiterConsistency)
}

// =============================================================================
// Cleanup and Forget
// =============================================================================

func TestRateLimiter_IdleLimiterCleanup(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(Config{APIRPS: 1, APIBurst: 1, ChatRPS: 1, ChatBurst: 1, CleanupInterval: 10 * time.Millisecond})
	defer rl.Stop()

	rl.Allow("user-a", ClassAPI)
	rl.Allow("user-b", ClassChat)
	time.Sleep(20 * time.Millisecond)
	rl.Cleanup()
	if rl.Len() != 0 {
		t.Fatalf("Len() after cleanup = %d, want 0", rl.Len())
	}
}

func TestRateLimiter_Forget(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(DefaultConfig)
	defer rl.Stop()

	rl.Allow("gone", ClassAPI)
	rl.Allow("gone", ClassChat)
	rl.Allow("kept", ClassAPI)
	rl.Forget("gone")
	if rl.Len() != 1 {
		t.Fatalf("Len() after Forget = %d, want 1", rl.Len())
	}
}

func TestRateLimiter_ConcurrentAccess(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(Config{APIRPS: 0.001, APIBurst: 100, ChatRPS: 0.001, ChatBurst: 1, CleanupInterval: time.Hour})
	defer rl.Stop()

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("shared", ClassAPI) {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()
	if got := allowed.Load(); got != 100 {
		t.Fatalf("allowed %d concurrent requests, want exactly the burst of 100", got)
	}
}

func TestUserGate_NilLimiterAllows(t *testing.T) {
	t.Parallel()
	if !(UserGate{}).Allow() {
		t.Fatal("zero gate should allow")
	}
}

// =============================================================================
// Middleware
// =============================================================================

func TestRateLimitMiddleware_Returns429WithRetryAfter(t *testing.T) {
	t.Parallel()
	rl := NewRateLimiter(Config{APIRPS: 0.001, APIBurst: 1, ChatRPS: 0.001, ChatBurst: 1, CleanupInterval: time.Hour})
	defer rl.Stop()

	h := RateLimitMiddleware(rl, ClassAPI, func(r *http.Request) string { return r.Header.Get("X-User") })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	do := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.Header.Set("X-User", user)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	if rec := do("u1"); rec.Code != http.StatusNoContent {
		t.Fatalf("first request status = %d", rec.Code)
	}
	rec := do("u1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "1" {
		t.Fatalf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	if rec := do(""); rec.Code != http.StatusNoContent {
		t.Fatalf("anonymous request should pass through, got %d", rec.Code)
	}
}
