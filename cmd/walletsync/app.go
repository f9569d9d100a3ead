package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wallet-sync/internal/config"
	"wallet-sync/internal/ingestion"
	"wallet-sync/internal/logging"
	"wallet-sync/internal/orchestrator"
	"wallet-sync/internal/pricing"
	"wallet-sync/internal/provider"
	"wallet-sync/internal/retention"
	"wallet-sync/internal/storage"
	chstore "wallet-sync/internal/storage/clickhouse"
	pgstore "wallet-sync/internal/storage/postgres"
)

// app holds configuration and the resources shared by all commands.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	pool   *pgstore.Pool
	chConn *chstore.Conn
}

// stores holds all storage implementations.
type stores struct {
	wallets     storage.WalletStore
	snapshots   storage.SnapshotStore
	events      storage.EventStore
	evaluations storage.RuleEvaluationStore
	history     storage.BalanceHistoryStore // nil when ClickHouse is not configured
}

func (a *app) load(cmd *cobra.Command, configPath string) error {
	v := config.NewViper()
	flags := cmd.Root().PersistentFlags()
	if err := v.BindPFlag("logging.level", flags.Lookup("log-level")); err != nil {
		return err
	}
	if err := v.BindPFlag("logging.format", flags.Lookup("log-format")); err != nil {
		return err
	}

	cfg, err := config.LoadWithViper(v, configPath)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) close() {
	if a.chConn != nil {
		if err := a.chConn.Close(); err != nil {
			a.logger.Warn("close clickhouse", zap.Error(err))
		}
		a.chConn = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) openPostgres(ctx context.Context) error {
	pool, err := pgstore.NewPool(ctx, a.cfg.Postgres.DSN, pgstore.WithMaxConns(a.cfg.Postgres.MaxConns))
	if err != nil {
		return err
	}
	a.pool = pool
	return nil
}

// openStores connects to Postgres and, when configured, the ClickHouse history sink.
// A ClickHouse connection failure disables the sink rather than failing startup.
func (a *app) openStores(ctx context.Context) (*stores, error) {
	if err := a.openPostgres(ctx); err != nil {
		return nil, err
	}

	s := &stores{
		wallets:     pgstore.NewWalletStore(a.pool),
		snapshots:   pgstore.NewSnapshotStore(a.pool),
		events:      pgstore.NewEventStore(a.pool),
		evaluations: pgstore.NewRuleEvaluationStore(a.pool),
	}

	if dsn := a.cfg.ClickHouse.DSN; dsn != "" {
		conn, err := chstore.NewConn(ctx, dsn)
		if err != nil {
			a.logger.Warn("balance history sink disabled", zap.Error(err))
		} else {
			a.chConn = conn
			s.history = chstore.NewBalanceHistoryStore(conn)
		}
	}

	return s, nil
}

func (a *app) newProviderClient() *provider.HTTPClient {
	p := a.cfg.Provider
	return provider.NewHTTPClient(p.BaseURL,
		provider.WithAPIKey(p.APIKey),
		provider.WithTimeout(p.Timeout),
		provider.WithMaxRetries(p.MaxRetries),
		provider.WithRetryDelay(p.RetryDelay),
		provider.WithMaxDelay(p.MaxDelay),
		provider.WithRateLimit(p.RateLimit, p.RateBurst),
		provider.WithLogger(a.logger.Named("provider")),
	)
}

func (a *app) newOrchestrator(s *stores) *orchestrator.Orchestrator {
	client := a.newProviderClient()
	prices := pricing.New(pricing.Options{
		Client:   client,
		CacheTTL: a.cfg.Pricing.CacheTTL,
		Logger:   a.logger.Named("pricing"),
	})

	return orchestrator.New(orchestrator.Options{
		Wallets: s.wallets,
		Balances: ingestion.NewBalanceSynchronizer(ingestion.BalanceOptions{
			Client:    client,
			Prices:    prices,
			Snapshots: s.snapshots,
			History:   s.history,
			Logger:    a.logger.Named("balances"),
		}),
		Transactions: ingestion.NewTransactionSynchronizer(ingestion.TransactionOptions{
			Client: client,
			Prices: prices,
			Events: s.events,
			Limit:  a.cfg.Sync.TransactionLimit,
			Logger: a.logger.Named("transactions"),
		}),
		Concurrency: a.cfg.Sync.WalletConcurrency,
		Logger:      a.logger.Named("orchestrator"),
	})
}

func (a *app) newPruner(s *stores) *retention.Pruner {
	r := a.cfg.Retention
	return retention.New(retention.Options{
		Snapshots:        s.snapshots,
		Events:           s.events,
		Evaluations:      s.evaluations,
		History:          s.history,
		SnapshotMaxAge:   r.SnapshotMaxAge,
		EventMaxAge:      r.EventMaxAge,
		EvaluationMaxAge: r.EvaluationMaxAge,
		Logger:           a.logger.Named("retention"),
	})
}

func cycleError(result *orchestrator.CycleResult) error {
	if result.WalletsFailed > 0 {
		return fmt.Errorf("%d of %d wallets failed", result.WalletsFailed, result.WalletsTotal)
	}
	return nil
}
