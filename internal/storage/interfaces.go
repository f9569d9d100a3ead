// Package storage defines persistence interfaces for wallet sync data.
package storage

import (
	"context"
	"time"

	"wallet-sync/internal/domain"
)

// WalletStore provides access to tracked wallets.
type WalletStore interface {
	// ListActive returns all wallets with status active, ordered by id.
	ListActive(ctx context.Context) ([]*domain.Wallet, error)

	// Upsert registers a wallet or updates its status. Identity is (chain, address).
	Upsert(ctx context.Context, w *domain.Wallet) error
}

// SnapshotStore provides append-only storage for balance snapshots.
type SnapshotStore interface {
	// Insert adds a new snapshot and assigns its ID.
	Insert(ctx context.Context, s *domain.BalanceSnapshot) error

	// GetLatest returns the most recent snapshot for a wallet.
	// Returns ErrNotFound if the wallet has no snapshots.
	GetLatest(ctx context.Context, chain, address string) (*domain.BalanceSnapshot, error)

	// DeleteOlderThan removes snapshots captured strictly before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// EventStore provides append-only storage for wallet events.
// Unique key: (chain, tx_hash).
type EventStore interface {
	// Exists reports whether an event with (chain, txHash) is stored.
	Exists(ctx context.Context, chain, txHash string) (bool, error)

	// Insert adds a new event. Returns ErrDuplicateKey if (chain, tx_hash) exists.
	Insert(ctx context.Context, e *domain.WalletEvent) error

	// GetByWallet returns up to limit events for a wallet, newest first.
	GetByWallet(ctx context.Context, chain, address string, limit int) ([]*domain.WalletEvent, error)

	// DeleteOlderThan removes events that occurred strictly before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RuleEvaluationStore provides storage for alert rule evaluations.
type RuleEvaluationStore interface {
	Insert(ctx context.Context, e *domain.RuleEvaluation) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// BalanceHistoryStore is an analytics sink for per-token balance history.
type BalanceHistoryStore interface {
	// InsertBulk appends points. Empty input is a no-op.
	InsertBulk(ctx context.Context, points []*domain.BalanceHistoryPoint) error

	// GetByWallet returns points for a wallet in [start, end), ordered by captured_at.
	GetByWallet(ctx context.Context, chain, address string, start, end time.Time) ([]*domain.BalanceHistoryPoint, error)

	// DeleteOlderThan removes points captured strictly before cutoff and
	// reports how many matched.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
