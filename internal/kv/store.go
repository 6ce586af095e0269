// Package kv is the per-user key→JSON document store. Every collection lives
// under one key and is rewritten whole on each mutation.
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrCorrupt marks a stored value that is not valid JSON for its key.
var ErrCorrupt = errors.New("kv: stored value is corrupt")

// Store is a flat namespace of byte values. Write overwrites unconditionally.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Write(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
	// Keys lists every key starting with prefix, in ascending order.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// ReadJSON decodes the value under key into dst. It reports false when the
// key is absent and wraps ErrCorrupt when the value does not decode.
func ReadJSON(ctx context.Context, s Store, key string, dst any) (bool, error) {
	raw, ok, err := s.Read(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("%w: key %q: %v", ErrCorrupt, key, err)
	}
	return true, nil
}

// WriteJSON encodes v and stores it under key.
func WriteJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("kv: encode %q: %w", key, err)
	}
	return s.Write(ctx, key, raw)
}

// UserPrefix is the key prefix owned by one user.
func UserPrefix(namespace string) string {
	return "users/" + namespace + "/"
}

type scoped struct {
	inner  Store
	prefix string
}

// Scoped returns a view of s where every key lives under users/<namespace>/.
// Keys returned by the view have the prefix stripped.
func Scoped(s Store, namespace string) Store {
	return &scoped{inner: s, prefix: UserPrefix(namespace)}
}

func (s *scoped) Read(ctx context.Context, key string) ([]byte, bool, error) {
	return s.inner.Read(ctx, s.prefix+key)
}

func (s *scoped) Write(ctx context.Context, key string, value []byte) error {
	return s.inner.Write(ctx, s.prefix+key, value)
}

func (s *scoped) Remove(ctx context.Context, key string) error {
	return s.inner.Remove(ctx, s.prefix+key)
}

func (s *scoped) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.inner.Keys(ctx, s.prefix+prefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = strings.TrimPrefix(k, s.prefix)
	}
	return out, nil
}

// RemovePrefix deletes every key under prefix and returns how many it removed.
func RemovePrefix(ctx context.Context, s Store, prefix string) (int, error) {
	keys, err := s.Keys(ctx, prefix)
	if err != nil {
		return 0, err
	}
	for i, k := range keys {
		if err := s.Remove(ctx, k); err != nil {
			return i, err
		}
	}
	return len(keys), nil
}
