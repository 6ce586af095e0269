// Package collection keeps one ordered, persisted list of entities per store
// key. Every mutation rewrites the whole list under its key.
package collection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/kuitang/agent-dashboard/internal/errs"
	"github.com/kuitang/agent-dashboard/internal/kv"
	"github.com/kuitang/agent-dashboard/internal/obs"
)

// Entity is anything with a stable identifier.
type Entity[K comparable] interface {
	EntityID() K
}

// CorruptPolicy decides what Load does with a stored value that does not decode.
type CorruptPolicy int

const (
	// PolicyFail leaves the stored bytes untouched and fails the load.
	PolicyFail CorruptPolicy = iota
	// PolicyReset copies the bytes to <key>.corrupt and reseeds.
	PolicyReset
)

// ParseCorruptPolicy maps "fail" and "reset".
func ParseCorruptPolicy(s string) (CorruptPolicy, error) {
	switch s {
	case "", "fail":
		return PolicyFail, nil
	case "reset":
		return PolicyReset, nil
	default:
		return PolicyFail, fmt.Errorf("unknown corrupt policy %q", s)
	}
}

// CorruptSuffix is appended to a key when PolicyReset quarantines its value.
const CorruptSuffix = ".corrupt"

// Options configure a Collection.
type Options[T any] struct {
	// Key is the store key holding the JSON array.
	Key string
	// Seed returns the initial contents written when Key is absent.
	Seed func() []T
	// Policy applies when the stored value is corrupt.
	Policy CorruptPolicy
	// OnLoad sees every list taken from storage, e.g. to advance an id
	// generator past ids written by another process.
	OnLoad func(items []T)
}

// Collection is a mutex-guarded in-memory copy of one stored array. The copy
// is checked against storage on every Load and before every mutation, so
// writes made by another process over the same store are picked up rather
// than overwritten.
type Collection[T Entity[K], K comparable] struct {
	store kv.Store
	opts  Options[T]

	mu     sync.Mutex
	items  []T
	raw    []byte
	loaded bool
}

// New returns an unloaded collection. Call Load before anything else.
func New[T Entity[K], K comparable](store kv.Store, opts Options[T]) *Collection[T, K] {
	return &Collection[T, K]{store: store, opts: opts}
}

// Load reads the stored array. An absent key is seeded and persisted; a
// present one is used as-is, including an empty array. Calling Load again
// re-reads the key and replaces the in-memory copy if the stored bytes
// changed.
func (c *Collection[T, K]) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncLocked(ctx)
}

func (c *Collection[T, K]) syncLocked(ctx context.Context) error {
	raw, ok, err := c.store.Read(ctx, c.opts.Key)
	if err != nil {
		return errs.Wrap(errs.Unavailable, "storage unavailable", fmt.Errorf("read %q: %w", c.opts.Key, err))
	}
	if !ok {
		return c.seedLocked(ctx)
	}
	if c.loaded && bytes.Equal(raw, c.raw) {
		return nil
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		corrupt := fmt.Errorf("%w: key %q: %v", kv.ErrCorrupt, c.opts.Key, err)
		if c.opts.Policy != PolicyReset {
			return errs.Wrap(errs.Internal, "stored "+c.opts.Key+" is unreadable", corrupt)
		}
		obs.From(ctx).Warn("collection_corrupt_reset", "key", c.opts.Key, "bytes", len(raw), "error", err.Error())
		if err := c.store.Write(ctx, c.opts.Key+CorruptSuffix, raw); err != nil {
			return errs.Wrap(errs.Unavailable, "storage unavailable", err)
		}
		return c.seedLocked(ctx)
	}

	if c.loaded {
		obs.From(ctx).Debug("collection_reloaded", "key", c.opts.Key, "items", len(items))
	}
	c.setLocked(items, raw)
	return nil
}

func (c *Collection[T, K]) setLocked(items []T, raw []byte) {
	c.items = items
	c.raw = raw
	c.loaded = true
	if c.opts.OnLoad != nil {
		c.opts.OnLoad(items)
	}
}

func (c *Collection[T, K]) seedLocked(ctx context.Context) error {
	var seed []T
	if c.opts.Seed != nil {
		seed = c.opts.Seed()
	}
	raw, err := c.persistLocked(ctx, seed)
	if err != nil {
		return err
	}
	c.setLocked(seed, raw)
	return nil
}

// persistLocked writes items under the key and returns the stored bytes.
// A nil slice is stored as [].
func (c *Collection[T, K]) persistLocked(ctx context.Context, items []T) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "internal error", fmt.Errorf("encode %q: %w", c.opts.Key, err))
	}
	if err := c.store.Write(ctx, c.opts.Key, raw); err != nil {
		return nil, errs.Wrap(errs.Unavailable, "storage unavailable", err)
	}
	return raw, nil
}

// commitLocked persists next and only then makes it current, so a failed
// write leaves memory matching storage.
func (c *Collection[T, K]) commitLocked(ctx context.Context, next []T) error {
	raw, err := c.persistLocked(ctx, next)
	if err != nil {
		return err
	}
	c.items = next
	c.raw = raw
	return nil
}

var errNotLoaded = errors.New("collection used before Load")

// beginLocked refreshes the in-memory copy ahead of a read-modify-write.
func (c *Collection[T, K]) beginLocked(ctx context.Context) error {
	if !c.loaded {
		return errs.Wrap(errs.Internal, "internal error", fmt.Errorf("%s: %w", c.opts.Key, errNotLoaded))
	}
	return c.syncLocked(ctx)
}

// Add appends entity and persists.
func (c *Collection[T, K]) Add(ctx context.Context, entity T) error {
	_, err := c.Append(ctx, func() T { return entity })
	return err
}

// Append builds an entity against the freshly synced list and persists it.
// build runs under the collection lock after OnLoad has seen the stored
// items, so ids it draws are above every id already stored.
func (c *Collection[T, K]) Append(ctx context.Context, build func() T) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	if err := c.beginLocked(ctx); err != nil {
		return zero, err
	}
	entity := build()
	next := make([]T, len(c.items), len(c.items)+1)
	copy(next, c.items)
	if err := c.commitLocked(ctx, append(next, entity)); err != nil {
		return zero, err
	}
	return entity, nil
}

// Update applies fn to the entity with id. A missing id returns false and
// writes nothing.
func (c *Collection[T, K]) Update(ctx context.Context, id K, fn func(*T)) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.beginLocked(ctx); err != nil {
		return false, err
	}
	idx := c.indexLocked(id)
	if idx < 0 {
		return false, nil
	}
	next := make([]T, len(c.items))
	copy(next, c.items)
	fn(&next[idx])
	if err := c.commitLocked(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// Remove filters out every entity with id. A missing id returns false and
// writes nothing.
func (c *Collection[T, K]) Remove(ctx context.Context, id K) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.beginLocked(ctx); err != nil {
		return false, err
	}
	next := make([]T, 0, len(c.items))
	for _, it := range c.items {
		if it.EntityID() != id {
			next = append(next, it)
		}
	}
	if len(next) == len(c.items) {
		return false, nil
	}
	if err := c.commitLocked(ctx, next); err != nil {
		return false, err
	}
	return true, nil
}

// Reset replaces the whole sequence.
func (c *Collection[T, K]) Reset(ctx context.Context, items []T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return errs.Wrap(errs.Internal, "internal error", fmt.Errorf("%s: %w", c.opts.Key, errNotLoaded))
	}
	next := make([]T, len(items))
	copy(next, items)
	return c.commitLocked(ctx, next)
}

// Items returns a copy of the ordered sequence.
func (c *Collection[T, K]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Get returns the first entity with id.
func (c *Collection[T, K]) Get(id K) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx := c.indexLocked(id); idx >= 0 {
		return c.items[idx], true
	}
	var zero T
	return zero, false
}

// Len returns the number of entities.
func (c *Collection[T, K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Collection[T, K]) indexLocked(id K) int {
	for i, it := range c.items {
		if it.EntityID() == id {
			return i
		}
	}
	return -1
}
