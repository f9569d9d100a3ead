package postgres

import (
	"context"
	"fmt"

	"wallet-sync/internal/domain"
	"wallet-sync/internal/storage"
)

// WalletStore implements storage.WalletStore using PostgreSQL.
type WalletStore struct {
	pool *Pool
}

// NewWalletStore creates a new WalletStore.
func NewWalletStore(pool *Pool) *WalletStore {
	return &WalletStore{pool: pool}
}

// Compile-time interface check.
var _ storage.WalletStore = (*WalletStore)(nil)

// ListActive returns active wallets ordered by id.
func (s *WalletStore) ListActive(ctx context.Context) ([]*domain.Wallet, error) {
	query := `
		SELECT id, address, chain, status, created_at
		FROM wallets
		WHERE status = $1
		ORDER BY id ASC
	`

	rows, err := s.pool.Query(ctx, query, string(domain.WalletStatusActive))
	if err != nil {
		return nil, mapError("list active wallets", err)
	}
	defer rows.Close()

	var wallets []*domain.Wallet
	for rows.Next() {
		var w domain.Wallet
		var status string
		if err := rows.Scan(&w.ID, &w.Address, &w.Chain, &status, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan wallet: %w", err)
		}
		w.Status = domain.WalletStatus(status)
		wallets = append(wallets, &w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallets: %w", err)
	}

	return wallets, nil
}

// Upsert inserts a wallet or updates the status of an existing (chain, address).
func (s *WalletStore) Upsert(ctx context.Context, w *domain.Wallet) error {
	if w == nil || w.Address == "" || w.Chain == "" {
		return storage.ErrInvalidInput
	}

	status := w.Status
	if status == "" {
		status = domain.WalletStatusActive
	}

	query := `
		INSERT INTO wallets (address, chain, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (chain, address) DO UPDATE SET status = EXCLUDED.status
		RETURNING id, created_at
	`

	err := s.pool.QueryRow(ctx, query, w.Address, w.Chain, string(status)).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return mapError("upsert wallet", err)
	}
	w.Status = status

	return nil
}
