package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Unknumb/SneakerStoreMobile/internal/storage/kv"
)

var _ kv.Store = (*KVStore)(nil)

// KVStore implements kv.Store on the kv_entries table.
type KVStore struct {
	pool *pgxpool.Pool
}

// NewKVStore returns a KVStore that uses the given pool.
func NewKVStore(pool *pgxpool.Pool) *KVStore {
	return &KVStore{pool: pool}
}

// Get returns the JSON value stored under key.
func (s *KVStore) Get(ctx context.Context, key kv.Key) ([]byte, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM kv_entries WHERE namespace = $1 AND username = $2`,
		string(key.Namespace), key.Username,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s: %w", key, err)
	}
	return value, nil
}

// Set upserts the value under key. value must be valid JSON.
func (s *KVStore) Set(ctx context.Context, key kv.Key, value []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO kv_entries (namespace, username, value)
		VALUES ($1, $2, $3::jsonb)
		ON CONFLICT (namespace, username)
		DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		string(key.Namespace), key.Username, value,
	)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *KVStore) Delete(ctx context.Context, key kv.Key) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM kv_entries WHERE namespace = $1 AND username = $2`,
		string(key.Namespace), key.Username,
	)
	if err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Append adds item to the array under key in a single statement.
func (s *KVStore) Append(ctx context.Context, key kv.Key, item []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO kv_entries (namespace, username, value)
		VALUES ($1, $2, jsonb_build_array($3::jsonb))
		ON CONFLICT (namespace, username)
		DO UPDATE SET
			value = CASE
				WHEN jsonb_typeof(kv_entries.value) = 'array'
				THEN kv_entries.value || jsonb_build_array($3::jsonb)
				ELSE jsonb_build_array($3::jsonb)
			END,
			updated_at = now()`,
		string(key.Namespace), key.Username, item,
	)
	if err != nil {
		return fmt.Errorf("appending to %s: %w", key, err)
	}
	return nil
}
