package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type dialect struct {
	name   string
	schema string
	get    string
	upsert string
	del    string
}

var postgresDialect = dialect{
	name: "postgres",
	schema: `CREATE TABLE IF NOT EXISTS kv_entries (
		key        TEXT PRIMARY KEY,
		value      BYTEA NOT NULL,
		expires_at BIGINT NOT NULL DEFAULT 0
	)`,
	get: `SELECT value, expires_at FROM kv_entries WHERE key = $1`,
	upsert: `INSERT INTO kv_entries (key, value, expires_at) VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
	del: `DELETE FROM kv_entries WHERE key = $1`,
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: `CREATE TABLE IF NOT EXISTS kv_entries (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		expires_at INTEGER NOT NULL DEFAULT 0
	)`,
	get: `SELECT value, expires_at FROM kv_entries WHERE key = ?`,
	upsert: `INSERT INTO kv_entries (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
	del: `DELETE FROM kv_entries WHERE key = ?`,
}

// SQL keeps entries in a single kv_entries table. expires_at holds unix
// milliseconds, 0 meaning no expiry; expired rows are removed lazily on read.
type SQL struct {
	db  *sql.DB
	d   dialect
	now func() time.Time
}

// NewPostgres wraps an open lib/pq connection. Call Migrate before first use
// unless `system init` has already created the table.
func NewPostgres(db *sql.DB) *SQL {
	return &SQL{db: db, d: postgresDialect, now: time.Now}
}

func NewSQLite(db *sql.DB) *SQL {
	return &SQL{db: db, d: sqliteDialect, now: time.Now}
}

func (s *SQL) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.d.schema); err != nil {
		return fmt.Errorf("kv: %s migrate: %w", s.d.name, err)
	}
	return nil
}

func (s *SQL) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		value     []byte
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, s.d.get, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kv: get %q: %w", key, err)
	}

	if expiresAt != 0 && expiresAt <= s.now().UnixMilli() {
		_ = s.Delete(ctx, key)
		return nil, ErrNotFound
	}
	return value, nil
}

func (s *SQL) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt int64
	if ttl > 0 {
		expiresAt = s.now().Add(ttl).UnixMilli()
	}
	if _, err := s.db.ExecContext(ctx, s.d.upsert, key, value, expiresAt); err != nil {
		return fmt.Errorf("kv: set %q: %w", key, err)
	}
	return nil
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.d.del, key); err != nil {
		return fmt.Errorf("kv: delete %q: %w", key, err)
	}
	return nil
}

func (s *SQL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying connection. Only call it when the store owns
// the *sql.DB, as OpenSQLite does.
func (s *SQL) Close() error {
	return s.db.Close()
}
