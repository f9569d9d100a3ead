package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"wallet-sync/internal/domain"
	"wallet-sync/internal/observability"
	"wallet-sync/internal/provider"
	"wallet-sync/internal/storage"
)

// TransactionSynchronizer records new recent transactions as wallet events.
type TransactionSynchronizer struct {
	client provider.Client
	prices PriceResolver
	events storage.EventStore
	limit  int
	logger *zap.Logger
	now    func() time.Time
}

// TransactionOptions contains configuration for creating a TransactionSynchronizer.
type TransactionOptions struct {
	Client provider.Client
	Prices PriceResolver
	Events storage.EventStore
	Limit  int // default DefaultTransactionLimit
	Logger *zap.Logger
	Now    func() time.Time // used when the provider omits a block timestamp
}

// NewTransactionSynchronizer creates a new TransactionSynchronizer.
func NewTransactionSynchronizer(opts TransactionOptions) *TransactionSynchronizer {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultTransactionLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &TransactionSynchronizer{
		client: opts.Client,
		prices: opts.Prices,
		events: opts.Events,
		limit:  limit,
		logger: logger,
		now:    now,
	}
}

// TransactionResult summarizes one wallet's transaction sync.
type TransactionResult struct {
	Fetched  int // transactions returned by the provider
	Inserted int // new events written
	Skipped  int // already stored, including lost insert races
	Failed   int // existence check or insert failed
}

// SyncTransactions examines the most recent transactions for w in provider
// order and inserts an event for each one not already stored.
// Per-transaction failures do not stop the loop; they are joined into the
// returned error together with the partial result.
func (s *TransactionSynchronizer) SyncTransactions(ctx context.Context, w *domain.Wallet) (*TransactionResult, error) {
	logger := s.logger.With(zap.String("chain", w.Chain), zap.String("wallet", w.Address))

	txs, err := s.client.GetWalletTransactions(ctx, w.Chain, w.Address, s.limit)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	if len(txs) > s.limit {
		txs = txs[:s.limit]
	}

	result := &TransactionResult{Fetched: len(txs)}
	var errs []error

	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		inserted, err := s.process(ctx, w, tx)
		switch {
		case err != nil:
			result.Failed++
			errs = append(errs, err)
			logger.Warn("transaction not recorded", zap.String("tx_hash", tx.Hash), zap.Error(err))
		case inserted:
			result.Inserted++
		default:
			result.Skipped++
		}
	}

	observability.RecordEvents(result.Inserted, result.Skipped, result.Failed)
	logger.Debug("transactions synced",
		zap.Int("fetched", result.Fetched),
		zap.Int("inserted", result.Inserted),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)

	return result, errors.Join(errs...)
}

// process records one transaction. It returns false with a nil error when the
// transaction is already stored.
func (s *TransactionSynchronizer) process(ctx context.Context, w *domain.Wallet, tx provider.Transaction) (bool, error) {
	if tx.Hash == "" {
		return false, fmt.Errorf("%w: transaction without hash", storage.ErrInvalidInput)
	}

	exists, err := s.events.Exists(ctx, w.Chain, tx.Hash)
	if err != nil {
		return false, fmt.Errorf("%w: check %s: %w", storage.ErrReadFailed, tx.Hash, err)
	}
	if exists {
		return false, nil
	}

	event := s.buildEvent(ctx, w, tx)
	if err := s.events.Insert(ctx, event); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			// Inserted concurrently since the existence check.
			return false, nil
		}
		return false, fmt.Errorf("%w: insert %s: %w", storage.ErrWriteFailed, tx.Hash, err)
	}

	return true, nil
}

func (s *TransactionSynchronizer) buildEvent(ctx context.Context, w *domain.Wallet, tx provider.Transaction) *domain.WalletEvent {
	occurredAt := tx.BlockTimestamp
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}

	detail := domain.EventDetail{
		BlockHeight:  tx.BlockHeight,
		FromAddress:  tx.FromAddress,
		ToAddress:    tx.ToAddress,
		Amount:       decimal.Zero,
		USDValue:     s.usdValue(ctx, tx.Value),
		ProviderType: tx.Type,
	}
	if tx.Value != nil {
		detail.Amount = tx.Value.Amount
		detail.Currency = tx.Value.Currency
	}

	return &domain.WalletEvent{
		WalletAddress: w.Address,
		Chain:         w.Chain,
		OccurredAt:    occurredAt.UTC(),
		Kind:          domain.ClassifyEvent(w.Address, tx.FromAddress, tx.ToAddress, tx.Type),
		TxHash:        tx.Hash,
		Detail:        detail,
	}
}

// usdValue values a transaction amount: USD as-is, absent as zero,
// anything else at the resolved unit price or zero when unpriced.
func (s *TransactionSynchronizer) usdValue(ctx context.Context, value *provider.Money) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	if value.IsUSD() {
		return value.Amount
	}

	price, err := s.prices.Resolve(ctx, value.Currency)
	if err != nil {
		return decimal.Zero
	}
	return value.Amount.Mul(price)
}
