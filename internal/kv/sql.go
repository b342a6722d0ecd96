// ABOUTME: Key/value store backed by a kv_entries table on a shared database handle
// ABOUTME: Works with the SQLite and PostgreSQL drivers used by the tabular store

package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SQLStore implements Store on database/sql. It does not own the handle.
type SQLStore struct {
	db       *sql.DB
	postgres bool
	logger   *slog.Logger
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore creates the kv_entries table if needed. driver is the
// database/sql driver name the handle was opened with.
func NewSQLStore(ctx context.Context, db *sql.DB, driver string) (*SQLStore, error) {
	s := &SQLStore{
		db:       db,
		postgres: driver == "pgx",
		logger:   slog.Default().With("component", "kv"),
	}

	schema := `
		CREATE TABLE IF NOT EXISTS kv_entries (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating kv_entries table: %w", err)
	}
	return s, nil
}

// bind rewrites ? placeholders for PostgreSQL.
func (s *SQLStore) bind(query string) string {
	if !s.postgres {
		return query
	}
	out := make([]byte, 0, len(query)+8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			out = append(out, fmt.Sprintf("$%d", n)...)
			continue
		}
		out = append(out, query[i])
	}
	return string(out)
}

func (s *SQLStore) Set(ctx context.Context, key, value string) error {
	query := s.bind(`
		INSERT INTO kv_entries (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`)
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := s.db.ExecContext(ctx, query, key, value, now); err != nil {
		return fmt.Errorf("setting key: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.bind(`SELECT value FROM kv_entries WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("getting key: %w", err)
	}
	return value, nil
}

// Take deletes the row and reads its value back with RETURNING, which both
// PostgreSQL and SQLite 3.35+ support.
func (s *SQLStore) Take(ctx context.Context, key string) (string, error) {
	var value string
	query := s.bind(`DELETE FROM kv_entries WHERE key = ? RETURNING value`)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("taking key: %w", err)
	}
	s.logger.Debug("took key", "key", key)
	return value, nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.bind(`DELETE FROM kv_entries WHERE key = ?`), key); err != nil {
		return fmt.Errorf("deleting key: %w", err)
	}
	s.logger.Debug("deleted key", "key", key)
	return nil
}

// Close is a no-op; the handle belongs to the tabular store.
func (s *SQLStore) Close() error { return nil }
