package kv

import (
	"context"

	"github.com/kuitang/agent-dashboard/internal/db"
)

// SQLite stores values in the encrypted kv table of a db.StoreDB.
type SQLite struct {
	db *db.StoreDB
}

// NewSQLite wraps an open StoreDB. The caller keeps ownership of closing it.
func NewSQLite(storeDB *db.StoreDB) *SQLite {
	return &SQLite{db: storeDB}
}

func (s *SQLite) Read(ctx context.Context, key string) ([]byte, bool, error) {
	return s.db.Get(ctx, key)
}

func (s *SQLite) Write(ctx context.Context, key string, value []byte) error {
	return s.db.Put(ctx, key, value)
}

func (s *SQLite) Remove(ctx context.Context, key string) error {
	return s.db.Delete(ctx, key)
}

func (s *SQLite) Keys(ctx context.Context, prefix string) ([]string, error) {
	return s.db.Keys(ctx, prefix)
}
