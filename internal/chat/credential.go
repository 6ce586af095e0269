package chat

import (
	"context"
	"strings"

	"github.com/kuitang/agent-dashboard/internal/crypto"
	"github.com/kuitang/agent-dashboard/internal/errs"
	"github.com/kuitang/agent-dashboard/internal/kv"
	"github.com/kuitang/agent-dashboard/internal/logutil"
)

// CredentialKey holds the user's sealed completion API key.
const CredentialKey = "openai_api_key"

type sealedCredential struct {
	Version int    `json:"v"`
	Sealed  []byte `json:"sealed"`
}

// CredentialStore keeps one user's API key encrypted at rest.
// The key is not checked against the provider; the first failing
// completion is the only validation.
type CredentialStore struct {
	store kv.Store
	key   []byte
}

// NewCredentialStore seals values with key (see crypto.Keyring.CredentialKey).
func NewCredentialStore(store kv.Store, key []byte) *CredentialStore {
	return &CredentialStore{store: store, key: key}
}

// Set replaces the stored key.
func (c *CredentialStore) Set(ctx context.Context, apiKey string) error {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return errs.Invalidf("API key cannot be empty")
	}
	sealed, err := crypto.Seal(c.key, []byte(apiKey))
	if err != nil {
		return errs.Wrap(errs.Internal, "could not save API key", err)
	}
	if err := kv.WriteJSON(ctx, c.store, CredentialKey, sealedCredential{Version: 1, Sealed: sealed}); err != nil {
		return errs.Wrap(errs.Unavailable, "storage unavailable", err)
	}
	return nil
}

// Get returns the stored key, or false when none is saved.
func (c *CredentialStore) Get(ctx context.Context) (string, bool, error) {
	var rec sealedCredential
	found, err := kv.ReadJSON(ctx, c.store, CredentialKey, &rec)
	if err != nil && !found {
		return "", false, errs.Wrap(errs.Unavailable, "storage unavailable", err)
	}
	if !found {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.Wrap(errs.FailedPrecondition, "Saved API key is unreadable. Please enter it again.", err)
	}
	plain, err := crypto.Open(c.key, rec.Sealed)
	if err != nil {
		return "", false, errs.Wrap(errs.FailedPrecondition, "Saved API key is unreadable. Please enter it again.", err)
	}
	return string(plain), true, nil
}

// Has reports whether a key is saved, without opening it.
func (c *CredentialStore) Has(ctx context.Context) (bool, error) {
	_, found, err := c.store.Read(ctx, CredentialKey)
	if err != nil {
		return false, errs.Wrap(errs.Unavailable, "storage unavailable", err)
	}
	return found, nil
}

// Masked returns the saved key in display form ("sk-...abcd"), or "" if none.
func (c *CredentialStore) Masked(ctx context.Context) (string, error) {
	key, found, err := c.Get(ctx)
	if err != nil || !found {
		return "", err
	}
	return logutil.MaskSecret(key), nil
}

// Clear forgets the saved key.
func (c *CredentialStore) Clear(ctx context.Context) error {
	if err := c.store.Remove(ctx, CredentialKey); err != nil {
		return errs.Wrap(errs.Unavailable, "storage unavailable", err)
	}
	return nil
}
