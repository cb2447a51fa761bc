package state

import (
	"context"
	"database/sql"
	"encoding/hex"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/blake2b"
)

// SQLiteStore is the default state backend: one file per session,
// bootstrapped on first open and committed transactionally per
// mutation, the way the teacher's transaction.Manager wraps every
// write in its own begin/commit.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) a session-specific SQLite file
// and bootstraps its schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("state: open sqlite: %w", err)
	}
	s := &SQLiteStore{db: db}
	if err := s.bootstrap(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) bootstrap() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT)`,
		`CREATE TABLE IF NOT EXISTS variables (name TEXT PRIMARY KEY, value BLOB)`,
		`CREATE TABLE IF NOT EXISTS tools (name TEXT PRIMARY KEY, definition BLOB)`,
		`CREATE TABLE IF NOT EXISTS mounts (prefix TEXT PRIMARY KEY, backend TEXT, root TEXT, read_only INTEGER)`,
		`CREATE TABLE IF NOT EXISTS servers (name TEXT PRIMARY KEY, command TEXT, args TEXT)`,
		`CREATE TABLE IF NOT EXISTS last_result (id INTEGER PRIMARY KEY CHECK (id = 1), code INTEGER, ok INTEGER)`,
		`CREATE TABLE IF NOT EXISTS cwd (id INTEGER PRIMARY KEY CHECK (id = 1), path TEXT)`,
		`CREATE TABLE IF NOT EXISTS blobs (hash TEXT PRIMARY KEY, data BLOB)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("state: bootstrap schema: %w", err)
		}
	}
	return nil
}

// withTx runs fn inside a single transaction, committing on success and
// rolling back on error or panic.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("state: begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) SetVar(ctx context.Context, name string, jsonValue []byte) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO variables (name, value) VALUES (?, ?)
			 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
			name, jsonValue)
		return err
	})
}

func (s *SQLiteStore) GetVar(ctx context.Context, name string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM variables WHERE name = ?`, name).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *SQLiteStore) AllVars(ctx context.Context) (map[string][]byte, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM variables`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]byte)
	for rows.Next() {
		var name string
		var value []byte
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value)
		return err
	})
}

func (s *SQLiteStore) GetMeta(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// PutBlob stores data keyed by its blake2b-256 content hash, so
// identical payloads (e.g. repeated scatter/gather output) share one
// row instead of duplicating storage.
func (s *SQLiteStore) PutBlob(ctx context.Context, data []byte) (string, error) {
	sum := blake2b.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO blobs (hash, data) VALUES (?, ?)
			 ON CONFLICT(hash) DO NOTHING`,
			hash, data)
		return err
	})
	if err != nil {
		return "", err
	}
	return hash, nil
}

func (s *SQLiteStore) GetBlob(ctx context.Context, hash string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE hash = ?`, hash).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (s *SQLiteStore) DeleteBlob(ctx context.Context, hash string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM blobs WHERE hash = ?`, hash)
		return err
	})
}

func (s *SQLiteStore) Snapshot(ctx context.Context) (map[string][]byte, error) {
	return s.AllVars(ctx)
}

func (s *SQLiteStore) Restore(ctx context.Context, vars map[string][]byte) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for name, value := range vars {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO variables (name, value) VALUES (?, ?)
				 ON CONFLICT(name) DO UPDATE SET value = excluded.value`,
				name, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
