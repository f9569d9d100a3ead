package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"wallet-sync/internal/domain"
	"wallet-sync/internal/storage"
)

// EventStore implements storage.EventStore using PostgreSQL.
type EventStore struct {
	pool *Pool
}

// NewEventStore creates a new EventStore.
func NewEventStore(pool *Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EventStore = (*EventStore)(nil)

// Exists reports whether an event with (chain, tx_hash) is stored.
func (s *EventStore) Exists(ctx context.Context, chain, txHash string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM wallet_events WHERE chain = $1 AND tx_hash = $2)`

	var exists bool
	if err := s.pool.QueryRow(ctx, query, chain, txHash).Scan(&exists); err != nil {
		return false, mapError("check event exists", err)
	}
	return exists, nil
}

// Insert adds a new event. Returns ErrDuplicateKey if (chain, tx_hash) exists.
func (s *EventStore) Insert(ctx context.Context, e *domain.WalletEvent) error {
	if e == nil || e.TxHash == "" {
		return storage.ErrInvalidInput
	}

	detail, err := json.Marshal(e.Detail)
	if err != nil {
		return fmt.Errorf("marshal event detail: %w", err)
	}

	query := `
		INSERT INTO wallet_events (
			wallet_address, chain, occurred_at, kind, tx_hash, detail
		) VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err = s.pool.QueryRow(ctx, query,
		e.WalletAddress,
		e.Chain,
		e.OccurredAt,
		string(e.Kind),
		e.TxHash,
		detail,
	).Scan(&e.ID)
	if err != nil {
		return mapError("insert wallet event", err)
	}
	return nil
}

// GetByWallet returns up to limit events for a wallet, newest first.
func (s *EventStore) GetByWallet(ctx context.Context, chain, address string, limit int) ([]*domain.WalletEvent, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, wallet_address, chain, occurred_at, kind, tx_hash, detail
		FROM wallet_events
		WHERE chain = $1 AND wallet_address = $2
		ORDER BY occurred_at DESC, id DESC
		LIMIT $3
	`

	rows, err := s.pool.Query(ctx, query, chain, address, limit)
	if err != nil {
		return nil, mapError("get events by wallet", err)
	}
	defer rows.Close()

	return scanWalletEvents(rows)
}

// DeleteOlderThan removes events that occurred before cutoff.
func (s *EventStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM wallet_events WHERE occurred_at < $1`, cutoff)
	if err != nil {
		return 0, mapError("delete old events", err)
	}
	return tag.RowsAffected(), nil
}

func scanWalletEvents(rows pgx.Rows) ([]*domain.WalletEvent, error) {
	var events []*domain.WalletEvent
	for rows.Next() {
		var (
			e      domain.WalletEvent
			kind   string
			detail []byte
		)
		if err := rows.Scan(&e.ID, &e.WalletAddress, &e.Chain, &e.OccurredAt, &kind, &e.TxHash, &detail); err != nil {
			return nil, fmt.Errorf("scan wallet event: %w", err)
		}
		e.Kind = domain.EventKind(kind)
		if err := json.Unmarshal(detail, &e.Detail); err != nil {
			return nil, fmt.Errorf("unmarshal event detail: %w", err)
		}
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate wallet events: %w", err)
	}
	return events, nil
}
