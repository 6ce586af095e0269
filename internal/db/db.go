// Package db opens the encrypted SQLCipher database that backs the sqlite
// store and runs the handful of queries the store needs.
package db

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// StoreDBName is the filename of the store database inside the data directory.
	StoreDBName = "dashboard.db"

	// MaxOpenConns is the maximum number of open connections.
	// SQLite is single-writer, so high connection counts are counterproductive.
	MaxOpenConns = 10

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns = 2

	// KeySize is the SQLCipher raw key length.
	KeySize = 32
)

// StoreDB wraps the sql.DB connection of the key/value database.
type StoreDB struct {
	db  *sql.DB
	now func() time.Time
}

// NewStoreDBFromSQL wraps an existing sql.DB whose schema is already applied.
func NewStoreDBFromSQL(sqlDB *sql.DB) *StoreDB {
	return &StoreDB{db: sqlDB, now: time.Now}
}

// DB returns the underlying sql.DB for direct access when needed
func (s *StoreDB) DB() *sql.DB {
	return s.db
}

// OpenStoreDB opens (creating if needed) dataDir/dashboard.db encrypted
// with key. A wrong key fails here, not on first use.
func OpenStoreDB(dataDir string, key []byte) (*StoreDB, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("store key must be exactly %d bytes, got %d", KeySize, len(key))
	}
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, StoreDBName)
	// Format: file.db?_pragma_key=x'HEX_KEY'&_pragma_cipher_page_size=4096
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, hex.EncodeToString(key))
	dsn = appendSQLiteParams(dsn, sqliteCommonParams())

	return open(dsn, MaxOpenConns, MaxIdleConns)
}

// OpenStoreDBInMemory opens a private in-memory encrypted database. name
// isolates databases opened by the same process.
func OpenStoreDBInMemory(name string, key []byte) (*StoreDB, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("store key must be exactly %d bytes, got %d", KeySize, len(key))
	}
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma_key=x'%s'&_pragma_cipher_page_size=4096", name, hex.EncodeToString(key))
	// One connection keeps the shared-cache database alive and serializes writers.
	return open(dsn, 1, 1)
}

func open(dsn string, maxOpen, maxIdle int) (*StoreDB, error) {
	sqlDB, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store database: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)

	// If the encryption key is wrong, this is the first statement that fails.
	var sqliteVersion string
	if err := sqlDB.QueryRow("SELECT sqlite_version()").Scan(&sqliteVersion); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to verify store database connection: %w", err)
	}

	if _, err := sqlDB.Exec(StoreSchema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize store schema: %w", err)
	}

	return NewStoreDBFromSQL(sqlDB), nil
}

// Get returns the value stored under key.
func (s *StoreDB) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

// Put overwrites the value stored under key.
func (s *StoreDB) Put(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("put %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *StoreDB) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Keys lists every key starting with prefix in ascending order.
func (s *StoreDB) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv WHERE has_prefix(key, ?) = 1 ORDER BY key`, prefix)
	if err != nil {
		return nil, fmt.Errorf("list keys %q: %w", prefix, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func sqliteCommonParams() string {
	// Production-safe defaults: WAL + NORMAL provides good throughput while preserving safety.
	return "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
}

func appendSQLiteParams(dsn, params string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}

// Close closes the StoreDB connection.
func (s *StoreDB) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
