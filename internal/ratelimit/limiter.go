// Package ratelimit provides per-user rate limiting functionality.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Class selects which budget a request draws from. Chat sends reach a paid
// upstream and get a much smaller budget than plain collection traffic.
type Class int

const (
	ClassAPI Class = iota
	ClassChat
)

func (c Class) String() string {
	switch c {
	case ClassChat:
		return "chat"
	default:
		return "api"
	}
}

// Config defines the rate limiting configuration.
type Config struct {
	APIRPS          float64       // Requests per second for JSON/HTML/MCP traffic
	APIBurst        int           // Burst size for JSON/HTML/MCP traffic
	ChatRPS         float64       // Chat sends per second
	ChatBurst       int           // Burst size for chat sends
	CleanupInterval time.Duration // How often to clean up idle limiters
}

// DefaultConfig provides sensible defaults for rate limiting.
var DefaultConfig = Config{
	APIRPS:          10,
	APIBurst:        20,
	ChatRPS:         0.5, // one send every two seconds
	ChatBurst:       5,
	CleanupInterval: time.Hour,
}

type limiterKey struct {
	userID string
	class  Class
}

// rateLimiterEntry holds a rate limiter and tracks its last usage.
type rateLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// RateLimiter manages per-user, per-class rate limiting.
type RateLimiter struct {
	limiters map[limiterKey]*rateLimiterEntry
	mu       sync.RWMutex
	config   Config

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewRateLimiter creates a new rate limiter with the given configuration.
// It starts a background goroutine for cleanup.
func NewRateLimiter(config Config) *RateLimiter {
	rl := &RateLimiter{
		limiters: make(map[limiterKey]*rateLimiterEntry),
		config:   config,
		stopCh:   make(chan struct{}),
	}

	rl.wg.Add(1)
	go rl.cleanupLoop()

	return rl
}

// Allow checks if a request from the given user is allowed for the class.
func (rl *RateLimiter) Allow(userID string, class Class) bool {
	return rl.GetLimiter(userID, class).Allow()
}

// GetLimiter returns the rate limiter for the given user and class, creating
// one if necessary.
func (rl *RateLimiter) GetLimiter(userID string, class Class) *rate.Limiter {
	key := limiterKey{userID: userID, class: class}

	rl.mu.RLock()
	entry, exists := rl.limiters[key]
	rl.mu.RUnlock()
	if exists {
		rl.touch(entry)
		return entry.limiter
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring write lock
	if entry, exists = rl.limiters[key]; exists {
		entry.lastUsed = time.Now()
		return entry.limiter
	}

	rps, burst := rl.config.APIRPS, rl.config.APIBurst
	if class == ClassChat {
		rps, burst = rl.config.ChatRPS, rl.config.ChatBurst
	}

	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	rl.limiters[key] = &rateLimiterEntry{
		limiter:  limiter,
		lastUsed: time.Now(),
	}
	return limiter
}

func (rl *RateLimiter) touch(entry *rateLimiterEntry) {
	rl.mu.Lock()
	entry.lastUsed = time.Now()
	rl.mu.Unlock()
}

// Forget drops every limiter held for a user, e.g. after account deletion.
func (rl *RateLimiter) Forget(userID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key := range rl.limiters {
		if key.userID == userID {
			delete(rl.limiters, key)
		}
	}
}

// Cleanup removes rate limiters that have been idle for longer than the cleanup interval.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-rl.config.CleanupInterval)
	for key, entry := range rl.limiters {
		if entry.lastUsed.Before(cutoff) {
			delete(rl.limiters, key)
		}
	}
}

func (rl *RateLimiter) cleanupLoop() {
	defer rl.wg.Done()

	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.Cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// Stop stops the cleanup goroutine and waits for it to finish.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
	rl.wg.Wait()
}

// Len returns the number of active rate limiters.
func (rl *RateLimiter) Len() int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()
	return len(rl.limiters)
}

// UserGate binds a limiter to one user and class so domain services can ask
// "may I?" without knowing about users.
type UserGate struct {
	Limiter *RateLimiter
	UserID  string
	Class   Class
}

// Allow reports whether the bound user may proceed. A gate without a limiter
// always allows.
func (g UserGate) Allow() bool {
	if g.Limiter == nil {
		return true
	}
	return g.Limiter.Allow(g.UserID, g.Class)
}
