package state

import "strings"

// Open selects a Store implementation by DSN scheme: a bare path or a
// sqlite:// DSN opens the default SQLiteStore; a postgres:// or
// postgresql:// DSN opens the shared PostgresStore.
func Open(dsn string) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return OpenPostgres(dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return OpenSQLite(strings.TrimPrefix(dsn, "sqlite://"))
	default:
		return OpenSQLite(dsn)
	}
}
