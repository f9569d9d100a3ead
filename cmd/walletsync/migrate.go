package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	chstore "wallet-sync/internal/storage/clickhouse"
	"wallet-sync/internal/storage/migrations"
	pgstore "wallet-sync/internal/storage/postgres"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply embedded Postgres and ClickHouse schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.ValidateStorage(); err != nil {
				return err
			}
			ctx := cmd.Context()

			pgMigrations, err := migrations.Postgres()
			if err != nil {
				return err
			}
			if err := a.openPostgres(ctx); err != nil {
				return err
			}
			applied, err := pgstore.Migrate(ctx, a.pool, pgMigrations)
			if err != nil {
				return fmt.Errorf("postgres migrations: %w", err)
			}
			a.logger.Info("postgres migrations applied",
				zap.Strings("applied", applied),
				zap.Int("total", len(pgMigrations)),
			)

			dsn := a.cfg.ClickHouse.DSN
			if dsn == "" {
				return nil
			}
			chMigrations, err := migrations.ClickHouse()
			if err != nil {
				return err
			}
			conn, err := chstore.Migrate(ctx, dsn, chMigrations)
			if err != nil {
				return fmt.Errorf("clickhouse migrations: %w", err)
			}
			a.chConn = conn
			a.logger.Info("clickhouse migrations applied",
				zap.String("dsn", redactDSN(dsn)),
				zap.Int("scripts", len(chMigrations)),
			)
			return nil
		},
	}
}
