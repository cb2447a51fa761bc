// Package state persists a session's variables, meta key/value pairs,
// and content-addressed blobs across kernel restarts. The schema also
// creates tools, mounts, servers, last_result and cwd tables, but no
// Store method reads or writes them.
package state

import "context"

// Store is the state glue's storage contract; Sqlite (default) and
// Postgres (DSN-selected) both implement it.
type Store interface {
	// SetVar commits a variable's JSON-encoded value transactionally.
	SetVar(ctx context.Context, name string, jsonValue []byte) error
	// GetVar returns a variable's JSON-encoded value.
	GetVar(ctx context.Context, name string) ([]byte, bool, error)
	// AllVars returns every persisted variable, for session restore.
	AllVars(ctx context.Context) (map[string][]byte, error)

	// SetMeta commits a single key/value pair in the meta table, for
	// small session facts.
	SetMeta(ctx context.Context, key, value string) error
	GetMeta(ctx context.Context, key string) (string, bool, error)

	// PutBlob stores data under its content hash and returns the hash
	// key; GetBlob retrieves it back; DeleteBlob evicts it.
	PutBlob(ctx context.Context, data []byte) (string, error)
	GetBlob(ctx context.Context, hash string) ([]byte, bool, error)
	DeleteBlob(ctx context.Context, hash string) error

	// Snapshot and Restore capture and reapply the full variable set,
	// for `snapshot`/`restore` RPC calls.
	Snapshot(ctx context.Context) (map[string][]byte, error)
	Restore(ctx context.Context, vars map[string][]byte) error

	Close() error
}
