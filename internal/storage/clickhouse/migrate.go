package clickhouse

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wallet-sync/internal/storage/migrations"
)

// Migrate creates the database named in dsn if it does not exist, applies
// every migration statement by statement, and returns a connection to that
// database. ClickHouse scripts must be idempotent; no version table is kept.
func Migrate(ctx context.Context, dsn string, ms []migrations.Migration) (*Conn, error) {
	opts, err := parseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	database := opts.Auth.Database
	if database == "" {
		return nil, errors.New("clickhouse dsn missing database")
	}

	admin, err := NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse admin: %w", err)
	}
	err = admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+quoteIdentifier(database))
	if closeErr := admin.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		return nil, fmt.Errorf("create database %s: %w", database, err)
	}

	conn, err := NewConnWithDatabase(ctx, dsn, database)
	if err != nil {
		return nil, err
	}

	for _, m := range ms {
		for _, stmt := range migrations.Statements(m.SQL) {
			if err := conn.Exec(ctx, stmt); err != nil {
				conn.Close()
				return nil, fmt.Errorf("apply migration %s: %w", m.Version, err)
			}
		}
	}
	return conn, nil
}

// quoteIdentifier backtick-quotes a ClickHouse identifier.
func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}
