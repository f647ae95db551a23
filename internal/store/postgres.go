package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

const pgSchema = `CREATE TABLE IF NOT EXISTS orquestra_kv (
	key        TEXT PRIMARY KEY,
	value      JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresBackend persists keys in a single PostgreSQL table.
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend connects to connURL and creates the kv table.
func NewPostgresBackend(ctx context.Context, connURL string) (*PostgresBackend, error) {
	if connURL == "" {
		return nil, errors.New("postgres store requires a connection URL")
	}
	pool, err := pgxpool.New(ctx, connURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	initCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if _, err := pool.Exec(initCtx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	log.Info().Msg("PostgreSQL store configured")
	return &PostgresBackend{pool: pool}, nil
}

// NewPostgresStore returns a Store backed by PostgreSQL.
func NewPostgresStore(ctx context.Context, connURL string) (*KVStore, error) {
	b, err := NewPostgresBackend(ctx, connURL)
	if err != nil {
		return nil, err
	}
	return NewKVStore(b), nil
}

func (b *PostgresBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := b.pool.QueryRow(ctx, `SELECT value::text FROM orquestra_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (b *PostgresBackend) Put(ctx context.Context, key string, value []byte) error {
	_, err := b.pool.Exec(ctx,
		`INSERT INTO orquestra_kv (key, value, updated_at) VALUES ($1, $2::jsonb, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, string(value))
	return err
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.pool.Ping(ctx)
}

func (b *PostgresBackend) Close() error {
	b.pool.Close()
	return nil
}
