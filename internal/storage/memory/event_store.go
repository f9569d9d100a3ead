package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"wallet-sync/internal/domain"
	"wallet-sync/internal/storage"
)

// eventKey is the composite key for wallet event deduplication.
type eventKey struct {
	Chain  string
	TxHash string
}

// EventStore is an in-memory implementation of storage.EventStore.
type EventStore struct {
	mu     sync.RWMutex
	data   []*domain.WalletEvent
	keys   map[eventKey]bool
	nextID int64
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{
		data: make([]*domain.WalletEvent, 0),
		keys: make(map[eventKey]bool),
	}
}

var _ storage.EventStore = (*EventStore)(nil)

// Exists reports whether (chain, txHash) is already stored.
func (s *EventStore) Exists(_ context.Context, chain, txHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.keys[eventKey{Chain: chain, TxHash: txHash}], nil
}

// Insert adds a new event. Returns ErrDuplicateKey if (chain, tx_hash) exists.
func (s *EventStore) Insert(_ context.Context, e *domain.WalletEvent) error {
	if e == nil || e.TxHash == "" {
		return storage.ErrInvalidInput
	}

	key := eventKey{Chain: e.Chain, TxHash: e.TxHash}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.keys[key] {
		return storage.ErrDuplicateKey
	}

	s.nextID++
	e.ID = s.nextID
	copy := *e
	s.data = append(s.data, &copy)
	s.keys[key] = true

	return nil
}

// GetByWallet returns up to limit events for a wallet, newest first.
func (s *EventStore) GetByWallet(_ context.Context, chain, address string, limit int) ([]*domain.WalletEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.WalletEvent
	for _, e := range s.data {
		if e.Chain == chain && e.WalletAddress == address {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].OccurredAt.After(result[j].OccurredAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// DeleteOlderThan removes events that occurred before cutoff.
func (s *EventStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.data[:0]
	var deleted int64
	for _, e := range s.data {
		if e.OccurredAt.Before(cutoff) {
			delete(s.keys, eventKey{Chain: e.Chain, TxHash: e.TxHash})
			deleted++
			continue
		}
		kept = append(kept, e)
	}
	s.data = kept

	return deleted, nil
}

// Count returns the number of stored events.
func (s *EventStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
