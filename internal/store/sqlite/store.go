// Package sqlite implements store.Store on a local SQLite file using the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"convobot-backend/internal/store"
)

// Compile-time check to ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)

const createKVTable = `
CREATE TABLE IF NOT EXISTS kv_store (
    key        TEXT PRIMARY KEY,
    value      BLOB NOT NULL,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`

const getValue = `SELECT value FROM kv_store WHERE key = ?;`

const upsertValue = `
INSERT INTO kv_store (key, value, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at;`

const deleteValue = `DELETE FROM kv_store WHERE key = ?;`

type SQLiteStore struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the schema exists.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}
	// Single writer keeps SQLite from returning SQLITE_BUSY under concurrent sessions.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createKVTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create kv_store table: %w", err)
	}
	log.Debug().Str("component", "store").Str("path", path).Msg("sqlite store ready")
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, getValue, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("database error reading key %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.ExecContext(ctx, upsertValue, key, value); err != nil {
		return fmt.Errorf("database error writing key %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, deleteValue, key); err != nil {
		return fmt.Errorf("database error deleting key %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
