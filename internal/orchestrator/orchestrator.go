// Package orchestrator runs one sync cycle across all active wallets.
// Per wallet: balance snapshot, then transaction ingestion.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"wallet-sync/internal/domain"
	"wallet-sync/internal/ingestion"
	"wallet-sync/internal/observability"
	"wallet-sync/internal/storage"
)

// BalanceSyncer captures a balance snapshot for one wallet.
type BalanceSyncer interface {
	SyncBalances(ctx context.Context, w *domain.Wallet) (*domain.BalanceSnapshot, error)
}

// TransactionSyncer ingests recent transactions for one wallet.
type TransactionSyncer interface {
	SyncTransactions(ctx context.Context, w *domain.Wallet) (*ingestion.TransactionResult, error)
}

// Orchestrator coordinates wallet sync cycles.
// At most one cycle runs at a time; overlapping calls are skipped.
type Orchestrator struct {
	wallets      storage.WalletStore
	balances     BalanceSyncer
	transactions TransactionSyncer
	concurrency  int
	logger       *zap.Logger

	running sync.Mutex
}

// Options for creating Orchestrator.
type Options struct {
	Wallets      storage.WalletStore
	Balances     BalanceSyncer
	Transactions TransactionSyncer

	// Concurrency is the number of wallets synced in parallel. Default 1.
	Concurrency int

	Logger *zap.Logger
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		wallets:      opts.Wallets,
		balances:     opts.Balances,
		transactions: opts.Transactions,
		concurrency:  concurrency,
		logger:       logger,
	}
}

// CycleResult summarizes one sync cycle.
type CycleResult struct {
	WalletsTotal     int
	WalletsSynced    int // both phases succeeded
	WalletsFailed    int // at least one phase failed
	SnapshotsWritten int
	EventsInserted   int
	Skipped          bool // another cycle was already running
	Duration         time.Duration
}

// SyncAllWallets syncs every active wallet once. A failure for one wallet
// never prevents the others from being attempted. The returned error is
// non-nil only when the wallet list cannot be read.
func (o *Orchestrator) SyncAllWallets(ctx context.Context) (*CycleResult, error) {
	if !o.running.TryLock() {
		o.logger.Warn("sync cycle already in progress, skipping")
		observability.RecordSyncCycle("skipped", 0)
		return &CycleResult{Skipped: true}, nil
	}
	defer o.running.Unlock()

	start := time.Now()
	result := &CycleResult{}

	wallets, err := o.wallets.ListActive(ctx)
	if err != nil {
		observability.RecordSyncCycle("failed", time.Since(start).Seconds())
		o.logger.Error("list active wallets failed", zap.Error(err))
		return result, fmt.Errorf("%w: list active wallets: %w", storage.ErrReadFailed, err)
	}
	result.WalletsTotal = len(wallets)

	var mu sync.Mutex
	record := func(out walletOutcome) {
		mu.Lock()
		defer mu.Unlock()
		if out.ok {
			result.WalletsSynced++
		} else {
			result.WalletsFailed++
		}
		if out.snapshot {
			result.SnapshotsWritten++
		}
		result.EventsInserted += out.eventsInserted
	}

	g := new(errgroup.Group)
	g.SetLimit(o.concurrency)

	for _, w := range wallets {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			record(o.syncWallet(ctx, w))
			return nil
		})
	}
	_ = g.Wait()

	result.Duration = time.Since(start)
	observability.RecordSyncCycle("completed", result.Duration.Seconds())

	o.logger.Info("sync cycle completed",
		zap.Int("wallets", result.WalletsTotal),
		zap.Int("synced", result.WalletsSynced),
		zap.Int("failed", result.WalletsFailed),
		zap.Int("snapshots", result.SnapshotsWritten),
		zap.Int("events_inserted", result.EventsInserted),
		zap.Duration("duration", result.Duration),
	)

	return result, nil
}

// walletOutcome is the result of syncing one wallet.
type walletOutcome struct {
	ok             bool
	snapshot       bool
	eventsInserted int
}

// syncWallet runs balance sync then transaction sync for w. Transaction
// sync runs even if balance sync failed. Panics are contained to the wallet.
func (o *Orchestrator) syncWallet(ctx context.Context, w *domain.Wallet) (out walletOutcome) {
	logger := o.logger.With(zap.String("chain", w.Chain), zap.String("wallet", w.Address))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("wallet sync panicked", zap.Any("panic", r), zap.Stack("stack"))
			out.ok = false
		}
	}()

	if err := domain.ValidateAddress(w.Chain, w.Address); err != nil {
		logger.Error("skipping wallet with invalid address", zap.Error(err))
		return walletOutcome{}
	}

	out.ok = true

	snap, err := o.balances.SyncBalances(ctx, w)
	observability.RecordWalletSync("balances", err)
	if err != nil {
		out.ok = false
		logger.Error("balance sync failed", zap.Error(err))
	} else {
		out.snapshot = true
	}

	txResult, err := o.transactions.SyncTransactions(ctx, w)
	observability.RecordWalletSync("transactions", err)
	if txResult != nil {
		out.eventsInserted = txResult.Inserted
	}
	if err != nil {
		out.ok = false
		logger.Error("transaction sync failed", zap.Error(err))
	}

	if out.ok {
		fields := []zap.Field{zap.Int("events_inserted", out.eventsInserted)}
		if snap != nil {
			fields = append(fields, zap.String("total_usd", snap.TotalUSDValue.String()))
		}
		logger.Info("wallet synced", fields...)
	}

	return out
}
