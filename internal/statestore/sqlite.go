package statestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/emnt/spacesync/internal/db"
	"github.com/jmoiron/sqlx"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS options (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transients (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		expires_at INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transients_expires_at ON transients (expires_at)`,
}

// SqliteStore keeps options and transients in two tables on a shared database.
// Expired transients are purged lazily on read and write.
type SqliteStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSqliteStore(ctx context.Context, database *sqlx.DB) (*SqliteStore, error) {
	if err := db.Migrate(ctx, database, sqliteSchema...); err != nil {
		return nil, fmt.Errorf("statestore: %w", err)
	}
	return &SqliteStore{db: database, now: time.Now}, nil
}

func (s *SqliteStore) GetOption(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.GetContext(ctx, &value, `SELECT value FROM options WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("get option %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SqliteStore) SetOption(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO options (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set option %s: %w", key, err)
	}
	return nil
}

func (s *SqliteStore) DeleteOption(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM options WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete option %s: %w", key, err)
	}
	return nil
}

func (s *SqliteStore) GetTransient(ctx context.Context, key string) ([]byte, bool, error) {
	var row struct {
		Value     []byte `db:"value"`
		ExpiresAt int64  `db:"expires_at"`
	}
	err := s.db.GetContext(ctx, &row, `SELECT value, expires_at FROM transients WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	} else if err != nil {
		return nil, false, fmt.Errorf("get transient %s: %w", key, err)
	}

	if row.ExpiresAt <= s.now().UnixMilli() {
		if err := s.purgeExpired(ctx); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	return row.Value, true, nil
}

func (s *SqliteStore) SetTransient(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.purgeExpired(ctx); err != nil {
		return err
	}
	expiresAt := s.now().Add(ttl).UnixMilli()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transients (key, value, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("set transient %s: %w", key, err)
	}
	return nil
}

func (s *SqliteStore) DeleteTransient(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM transients WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete transient %s: %w", key, err)
	}
	return nil
}

// Close is a no-op, the database is owned by the caller.
func (s *SqliteStore) Close() error {
	return nil
}

func (s *SqliteStore) purgeExpired(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transients WHERE expires_at <= ?`, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("purge transients: %w", err)
	}
	return nil
}

var _ Store = (*SqliteStore)(nil)
