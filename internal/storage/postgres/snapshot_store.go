package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"wallet-sync/internal/domain"
	"wallet-sync/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using PostgreSQL.
// Balances are stored as a JSONB array; amounts are decimal strings.
type SnapshotStore struct {
	pool *Pool
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(pool *Pool) *SnapshotStore {
	return &SnapshotStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert adds a new snapshot and assigns its ID.
func (s *SnapshotStore) Insert(ctx context.Context, snap *domain.BalanceSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	balances := snap.Balances
	if balances == nil {
		balances = []domain.TokenBalance{}
	}
	payload, err := json.Marshal(balances)
	if err != nil {
		return fmt.Errorf("marshal balances: %w", err)
	}

	query := `
		INSERT INTO balance_snapshots (
			wallet_address, chain, captured_at, total_usd_value, balances
		) VALUES ($1, $2, $3, $4::numeric, $5)
		RETURNING id
	`

	err = s.pool.QueryRow(ctx, query,
		snap.WalletAddress,
		snap.Chain,
		snap.CapturedAt,
		snap.TotalUSDValue.String(),
		payload,
	).Scan(&snap.ID)
	if err != nil {
		return mapError("insert balance snapshot", err)
	}
	return nil
}

// GetLatest returns the most recent snapshot for a wallet.
func (s *SnapshotStore) GetLatest(ctx context.Context, chain, address string) (*domain.BalanceSnapshot, error) {
	query := `
		SELECT id, wallet_address, chain, captured_at, total_usd_value::text, balances
		FROM balance_snapshots
		WHERE chain = $1 AND wallet_address = $2
		ORDER BY captured_at DESC, id DESC
		LIMIT 1
	`

	var (
		snap    domain.BalanceSnapshot
		total   string
		payload []byte
	)
	err := s.pool.QueryRow(ctx, query, chain, address).Scan(
		&snap.ID,
		&snap.WalletAddress,
		&snap.Chain,
		&snap.CapturedAt,
		&total,
		&payload,
	)
	if err != nil {
		return nil, mapError("get latest snapshot", err)
	}

	snap.TotalUSDValue, err = decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total_usd_value: %w", err)
	}
	if err := json.Unmarshal(payload, &snap.Balances); err != nil {
		return nil, fmt.Errorf("unmarshal balances: %w", err)
	}

	return &snap, nil
}

// DeleteOlderThan removes snapshots captured before cutoff.
func (s *SnapshotStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM balance_snapshots WHERE captured_at < $1`, cutoff)
	if err != nil {
		return 0, mapError("delete old snapshots", err)
	}
	return tag.RowsAffected(), nil
}
