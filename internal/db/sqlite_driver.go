package db

import (
	"database/sql"
	"fmt"
	"strings"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
)

const (
	// SQLiteDriverName is the project-specific SQLCipher driver with custom SQL functions.
	SQLiteDriverName = "sqlite3_dashboard"
)

func init() {
	sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if err := conn.RegisterFunc("has_prefix", sqliteHasPrefix, true); err != nil {
				return fmt.Errorf("register has_prefix SQL function: %w", err)
			}
			return nil
		},
	})
}

// sqliteHasPrefix backs key listing. LIKE would need escaping for the '_'
// and '%' that appear in store keys.
func sqliteHasPrefix(s, prefix string) int64 {
	if strings.HasPrefix(s, prefix) {
		return 1
	}
	return 0
}
