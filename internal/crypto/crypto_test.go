package crypto

import (
	"bytes"
	"errors"
	"testing"

	"pgregory.net/rapid"
)

// TestCrypto_SealOpen_Roundtrip tests that sealing then opening returns the
// original plaintext.
func TestCrypto_SealOpen_Roundtrip(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.SliceOfN(rapid.Byte(), KeySize, KeySize).Draw(t, "key")
		plaintext := rapid.SliceOfN(rapid.Byte(), 0, 512).Draw(t, "plaintext")

		sealed, err := Seal(key, plaintext)
		if err != nil {
			t.Fatalf("Seal failed: %v", err)
		}
		if len(sealed) != NonceSize+len(plaintext)+tagSize {
			t.Fatalf("sealed length = %d, want %d", len(sealed), NonceSize+len(plaintext)+tagSize)
		}

		opened, err := Open(key, sealed)
		if err != nil {
			t.Fatalf("Open failed: %v", err)
		}
		if !bytes.Equal(plaintext, opened) {
			t.Fatalf("roundtrip failed: got %x, want %x", opened, plaintext)
		}
	})
}

// TestCrypto_Open_RejectsTampering flips one byte anywhere in the sealed value.
func TestCrypto_Open_RejectsTampering(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.SliceOfN(rapid.Byte(), KeySize, KeySize).Draw(t, "key")
		plaintext := rapid.SliceOfN(rapid.Byte(), 1, 128).Draw(t, "plaintext")

		sealed, err := Seal(key, plaintext)
		if err != nil {
			t.Fatalf("Seal failed: %v", err)
		}
		i := rapid.IntRange(0, len(sealed)-1).Draw(t, "index")
		sealed[i] ^= byte(rapid.IntRange(1, 255).Draw(t, "flip"))

		if _, err := Open(key, sealed); !errors.Is(err, ErrOpen) {
			t.Fatalf("expected ErrOpen after tampering byte %d, got %v", i, err)
		}
	})
}

func TestCrypto_Open_RejectsShortInput(t *testing.T) {
	t.Parallel()
	key := make([]byte, KeySize)
	if _, err := Open(key, make([]byte, NonceSize+tagSize-1)); !errors.Is(err, ErrOpen) {
		t.Fatalf("expected ErrOpen for short input, got %v", err)
	}
}

func TestCrypto_Seal_RejectsBadKeySize(t *testing.T) {
	t.Parallel()
	if _, err := Seal(make([]byte, 16), []byte("x")); err == nil {
		t.Fatal("expected error for 16-byte key")
	}
}

// TestCrypto_DeriveKey_Deterministic tests that DeriveKey is a pure function.
func TestCrypto_DeriveKey_Deterministic(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		masterKey := rapid.SliceOfN(rapid.Byte(), 16, 64).Draw(t, "masterKey")
		info := rapid.String().Draw(t, "info")

		if !bytes.Equal(DeriveKey(masterKey, info), DeriveKey(masterKey, info)) {
			t.Fatal("key derivation not deterministic")
		}
	})
}

// TestCrypto_Keyring_PurposeSeparation checks that store and per-user
// credential keys never coincide and that a credential sealed for one user
// cannot be opened as another.
func TestCrypto_Keyring_PurposeSeparation(t *testing.T) {
	t.Parallel()
	rapid.Check(t, func(t *rapid.T) {
		master := rapid.SliceOfN(rapid.Byte(), KeySize, KeySize).Draw(t, "master")
		kr, err := NewKeyring(master)
		if err != nil {
			t.Fatalf("NewKeyring failed: %v", err)
		}
		u1 := rapid.StringMatching(`[a-f0-9-]{8,36}`).Draw(t, "u1")
		u2 := rapid.StringMatching(`[a-f0-9-]{8,36}`).Filter(func(s string) bool { return s != u1 }).Draw(t, "u2")

		if bytes.Equal(kr.StoreKey(), kr.CredentialKey(u1)) {
			t.Fatal("store key equals credential key")
		}
		sealed, err := Seal(kr.CredentialKey(u1), []byte("sk-test"))
		if err != nil {
			t.Fatalf("Seal failed: %v", err)
		}
		if _, err := Open(kr.CredentialKey(u2), sealed); !errors.Is(err, ErrOpen) {
			t.Fatalf("credential sealed for %q opened as %q", u1, u2)
		}
	})
}

func TestCrypto_NewKeyring_RejectsShortMaster(t *testing.T) {
	t.Parallel()
	if _, err := NewKeyring(make([]byte, 31)); err == nil {
		t.Fatal("expected error for 31-byte master key")
	}
}
