package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"convobot-backend/internal/store"
)

// Compile-time check to ensure PostgresStore implements store.Store
var _ store.Store = (*PostgresStore)(nil)

type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const createKVTable = `
CREATE TABLE IF NOT EXISTS kv_store (
    key        TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// EnsureSchema creates the kv_store table if it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createKVTable); err != nil {
		return fmt.Errorf("database error creating kv_store table: %w", err)
	}
	return nil
}

const getValue = `-- name: GetValue :one
SELECT value FROM kv_store WHERE key = $1;
`

// Get returns the stored value for key, or store.ErrNotFound.
func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(ctx, getValue, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		log.Error().Str("component", "store").Str("key", key).Err(err).Msg("failed to query value")
		return nil, fmt.Errorf("database error reading key %s: %w", key, err)
	}
	return value, nil
}

const upsertValue = `-- name: UpsertValue :exec
INSERT INTO kv_store (key, value, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW();
`

// Set replaces the whole value stored under key.
func (s *PostgresStore) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.Exec(ctx, upsertValue, key, value); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			log.Error().Str("component", "store").Str("key", key).
				Str("code", pgErr.Code).Str("detail", pgErr.Detail).Msg("postgres error writing value")
		}
		return fmt.Errorf("database error writing key %s: %w", key, err)
	}
	return nil
}

const deleteValue = `-- name: DeleteValue :exec
DELETE FROM kv_store WHERE key = $1;
`

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, deleteValue, key); err != nil {
		return fmt.Errorf("database error deleting key %s: %w", key, err)
	}
	return nil
}
