package ingestion

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"wallet-sync/internal/domain"
	"wallet-sync/internal/observability"
	"wallet-sync/internal/provider"
	"wallet-sync/internal/storage"
)

// BalanceSynchronizer captures one valued balance snapshot per wallet per call.
type BalanceSynchronizer struct {
	client    provider.Client
	prices    PriceResolver
	snapshots storage.SnapshotStore
	history   storage.BalanceHistoryStore
	logger    *zap.Logger
	now       func() time.Time
}

// BalanceOptions contains configuration for creating a BalanceSynchronizer.
type BalanceOptions struct {
	Client    provider.Client
	Prices    PriceResolver
	Snapshots storage.SnapshotStore

	// History is an optional analytics sink. Write failures are logged only.
	History storage.BalanceHistoryStore

	Logger *zap.Logger
	Now    func() time.Time // defaults to time.Now
}

// NewBalanceSynchronizer creates a new BalanceSynchronizer.
func NewBalanceSynchronizer(opts BalanceOptions) *BalanceSynchronizer {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &BalanceSynchronizer{
		client:    opts.Client,
		prices:    opts.Prices,
		snapshots: opts.Snapshots,
		history:   opts.History,
		logger:    logger,
		now:       now,
	}
}

// SyncBalances fetches current holdings for w, values each entry in USD and
// appends exactly one snapshot. Unpriced entries are kept with zero value.
// An empty holding list still produces a zero-valued snapshot.
func (s *BalanceSynchronizer) SyncBalances(ctx context.Context, w *domain.Wallet) (*domain.BalanceSnapshot, error) {
	logger := s.logger.With(zap.String("chain", w.Chain), zap.String("wallet", w.Address))

	balances, err := s.client.GetWalletBalances(ctx, w.Chain, w.Address)
	if err != nil {
		return nil, fmt.Errorf("fetch balances: %w", err)
	}

	entries := make([]domain.TokenBalance, 0, len(balances))
	for _, b := range balances {
		entries = append(entries, s.value(ctx, logger, b))
	}

	snap := domain.NewBalanceSnapshot(w, s.now().UTC(), entries)
	if err := s.snapshots.Insert(ctx, snap); err != nil {
		return nil, fmt.Errorf("%w: insert snapshot: %w", storage.ErrWriteFailed, err)
	}
	observability.RecordSnapshotWritten()

	logger.Debug("balance snapshot stored",
		zap.Int64("snapshot_id", snap.ID),
		zap.Int("entries", len(entries)),
		zap.String("total_usd", snap.TotalUSDValue.String()),
	)

	s.writeHistory(ctx, logger, snap)

	return snap, nil
}

// value converts a provider balance into a snapshot entry.
// A supplied USD value wins; otherwise the unit price is resolved.
func (s *BalanceSynchronizer) value(ctx context.Context, logger *zap.Logger, b provider.Balance) domain.TokenBalance {
	entry := domain.TokenBalance{
		Symbol:          b.Currency.Code,
		Name:            b.Currency.Name,
		ContractAddress: b.Currency.Address,
		Balance:         b.Amount,
		USDValue:        decimal.Zero,
		PricePerToken:   decimal.Zero,
	}

	if supplied, ok := b.SuppliedUSD(); ok {
		entry.USDValue = supplied
		if b.Amount.IsPositive() {
			entry.PricePerToken = supplied.Div(b.Amount)
		}
		return entry
	}

	price, err := s.prices.Resolve(ctx, b.Currency.Code)
	if err != nil {
		logger.Debug("balance left unpriced", zap.String("currency", b.Currency.Code), zap.Error(err))
		return entry
	}

	entry.PricePerToken = price
	entry.USDValue = b.Amount.Mul(price)
	return entry
}

func (s *BalanceSynchronizer) writeHistory(ctx context.Context, logger *zap.Logger, snap *domain.BalanceSnapshot) {
	if s.history == nil || len(snap.Balances) == 0 {
		return
	}

	err := s.history.InsertBulk(ctx, snap.HistoryPoints())
	observability.RecordHistoryWrite(err)
	if err != nil {
		logger.Warn("balance history write failed", zap.Int64("snapshot_id", snap.ID), zap.Error(err))
	}
}
