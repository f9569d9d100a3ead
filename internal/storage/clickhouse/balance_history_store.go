package clickhouse

import (
	"context"
	"fmt"
	"time"

	"wallet-sync/internal/domain"
	"wallet-sync/internal/storage"
)

// BalanceHistoryStore implements storage.BalanceHistoryStore using ClickHouse.
// Rows are append-only; there is no uniqueness, a snapshot is written once.
type BalanceHistoryStore struct {
	conn *Conn
}

// NewBalanceHistoryStore creates a new BalanceHistoryStore.
func NewBalanceHistoryStore(conn *Conn) *BalanceHistoryStore {
	return &BalanceHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BalanceHistoryStore = (*BalanceHistoryStore)(nil)

// InsertBulk appends points in a single batch.
func (s *BalanceHistoryStore) InsertBulk(ctx context.Context, points []*domain.BalanceHistoryPoint) error {
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO balance_history (
			wallet_address, chain, symbol, captured_at, balance, usd_value, price_per_token
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if p == nil {
			_ = batch.Abort()
			return storage.ErrInvalidInput
		}
		err = batch.Append(
			p.WalletAddress, p.Chain, p.Symbol, p.CapturedAt.UTC(),
			p.Balance, p.USDValue, p.PricePerToken,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByWallet returns points in [start, end) ordered by captured_at, then symbol.
func (s *BalanceHistoryStore) GetByWallet(ctx context.Context, chain, address string, start, end time.Time) ([]*domain.BalanceHistoryPoint, error) {
	query := `
		SELECT wallet_address, chain, symbol, captured_at, balance, usd_value, price_per_token
		FROM balance_history
		WHERE chain = ? AND wallet_address = ? AND captured_at >= ? AND captured_at < ?
		ORDER BY captured_at ASC, symbol ASC
	`

	rows, err := s.conn.Query(ctx, query, chain, address, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query balance history: %w", err)
	}
	defer rows.Close()

	return scanBalanceHistory(rows)
}

// DeleteOlderThan removes points captured before cutoff using a lightweight
// delete. ClickHouse does not report affected rows, so they are counted first.
func (s *BalanceHistoryStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoff = cutoff.UTC()

	var n uint64
	if err := s.conn.QueryRow(ctx, `SELECT count() FROM balance_history WHERE captured_at < ?`, cutoff).Scan(&n); err != nil {
		return 0, fmt.Errorf("count old balance history: %w", err)
	}
	if n == 0 {
		return 0, nil
	}

	if err := s.conn.Exec(ctx, `DELETE FROM balance_history WHERE captured_at < ?`, cutoff); err != nil {
		return 0, fmt.Errorf("delete old balance history: %w", err)
	}
	return int64(n), nil
}

func scanBalanceHistory(rows rowScanner) ([]*domain.BalanceHistoryPoint, error) {
	var points []*domain.BalanceHistoryPoint

	for rows.Next() {
		var p domain.BalanceHistoryPoint
		err := rows.Scan(
			&p.WalletAddress, &p.Chain, &p.Symbol, &p.CapturedAt,
			&p.Balance, &p.USDValue, &p.PricePerToken,
		)
		if err != nil {
			return nil, fmt.Errorf("scan balance history: %w", err)
		}
		points = append(points, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance history: %w", err)
	}

	return points, nil
}
