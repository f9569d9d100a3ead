// Package postgres implements the wallet sync stores on PostgreSQL via pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"wallet-sync/internal/storage"
)

// applicationName tags server-side sessions (pg_stat_activity) unless the DSN sets one.
const applicationName = "walletsync"

// uniqueViolation is the SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// Pool is the shared pgx pool handed to every store.
type Pool struct {
	*pgxpool.Pool
}

// PoolOption adjusts the parsed pool config before connecting.
type PoolOption func(*pgxpool.Config)

// WithMaxConns caps the number of pooled connections. Zero keeps the pgx default.
func WithMaxConns(n int32) PoolOption {
	return func(c *pgxpool.Config) {
		if n > 0 {
			c.MaxConns = n
		}
	}
}

// NewPool parses dsn, applies opts, connects and pings.
func NewPool(ctx context.Context, dsn string, opts ...PoolOption) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if _, ok := cfg.ConnConfig.RuntimeParams["application_name"]; !ok {
		cfg.ConnConfig.RuntimeParams["application_name"] = applicationName
	}
	for _, opt := range opts {
		opt(cfg)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close releases all pooled connections.
func (p *Pool) Close() {
	p.Pool.Close()
}

// mapError prefixes err with op and translates pgx conditions into storage
// sentinels. The driver error stays in the chain.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w: %w", op, storage.ErrDuplicateKey, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
