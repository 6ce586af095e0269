package db

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"pgregory.net/rapid"
)

func testKey(b byte) []byte {
	return bytes.Repeat([]byte{b}, KeySize)
}

func TestStoreDB_FileRoundTripAndWrongKey(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := OpenStoreDB(dir, testKey(1))
	if err != nil {
		t.Fatalf("OpenStoreDB failed: %v", err)
	}
	if err := s.Put(ctx, "users/u1/tasks", []byte(`[]`)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = OpenStoreDB(dir, testKey(1))
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, ok, err := s.Get(ctx, "users/u1/tasks")
	if err != nil || !ok || string(got) != "[]" {
		t.Fatalf("Get after reopen = %q, %v, %v", got, ok, err)
	}
	s.Close()

	if _, err := OpenStoreDB(dir, testKey(2)); err == nil {
		t.Fatalf("opening %s with the wrong key should fail", filepath.Join(dir, StoreDBName))
	}
}

func TestStoreDB_RejectsShortKey(t *testing.T) {
	t.Parallel()
	if _, err := OpenStoreDB(t.TempDir(), []byte("short")); err == nil {
		t.Fatal("expected error for short key")
	}
}

func testStoreDB_KeysByPrefix(t *rapid.T, s *StoreDB) {
	ctx := context.Background()
	// Prefixes with LIKE wildcards must match literally.
	user := rapid.SampledFrom([]string{"a_b", "a%b", "axb", "a"}).Draw(t, "user")
	prefix := "users/" + user + "/"
	n := rapid.IntRange(0, 5).Draw(t, "n")
	for i := 0; i < n; i++ {
		if err := s.Put(ctx, prefix+rapid.StringMatching(`[a-z]{1,6}`).Draw(t, "k"), []byte(`{}`)); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	keys, err := s.Keys(ctx, prefix)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	for _, k := range keys {
		if len(k) < len(prefix) || k[:len(prefix)] != prefix {
			t.Fatalf("Keys(%q) returned foreign key %q", prefix, k)
		}
	}
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}
	}
}

func TestStoreDB_KeysByPrefix(t *testing.T) {
	s, err := OpenStoreDBInMemory("keys-by-prefix", testKey(3))
	if err != nil {
		t.Fatalf("OpenStoreDBInMemory failed: %v", err)
	}
	defer s.Close()
	rapid.Check(t, func(t *rapid.T) { testStoreDB_KeysByPrefix(t, s) })
}

func TestStoreDB_PutOverwrites(t *testing.T) {
	s, err := OpenStoreDBInMemory("overwrite", testKey(4))
	if err != nil {
		t.Fatalf("OpenStoreDBInMemory failed: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	if err := s.Put(ctx, "k", []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := s.Put(ctx, "k", []byte("two")); err != nil {
		t.Fatal(err)
	}
	got, _, _ := s.Get(ctx, "k")
	if string(got) != "two" {
		t.Fatalf("Get = %q, want two", got)
	}
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Fatalf("Delete of missing key should succeed: %v", err)
	}
}
