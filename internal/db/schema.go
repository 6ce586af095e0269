package db

// StoreSchema is the single key/value table behind the sqlite store backend.
// Values are opaque JSON documents; updated_at is unix milliseconds.
const StoreSchema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    updated_at INTEGER NOT NULL
);
`
