package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"wallet-sync/internal/domain"
	"wallet-sync/internal/storage"
)

// BalanceHistoryStore is an in-memory implementation of storage.BalanceHistoryStore.
type BalanceHistoryStore struct {
	mu   sync.RWMutex
	data []*domain.BalanceHistoryPoint
}

// NewBalanceHistoryStore creates a new in-memory balance history store.
func NewBalanceHistoryStore() *BalanceHistoryStore {
	return &BalanceHistoryStore{}
}

var _ storage.BalanceHistoryStore = (*BalanceHistoryStore)(nil)

// InsertBulk appends points.
func (s *BalanceHistoryStore) InsertBulk(_ context.Context, points []*domain.BalanceHistoryPoint) error {
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if p == nil {
			return storage.ErrInvalidInput
		}
		copy := *p
		s.data = append(s.data, &copy)
	}
	return nil
}

// GetByWallet returns points in [start, end) ordered by captured_at, then symbol.
func (s *BalanceHistoryStore) GetByWallet(_ context.Context, chain, address string, start, end time.Time) ([]*domain.BalanceHistoryPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BalanceHistoryPoint
	for _, p := range s.data {
		if p.Chain != chain || p.WalletAddress != address {
			continue
		}
		if p.CapturedAt.Before(start) || !p.CapturedAt.Before(end) {
			continue
		}
		copy := *p
		result = append(result, &copy)
	}

	sort.SliceStable(result, func(i, j int) bool {
		if !result[i].CapturedAt.Equal(result[j].CapturedAt) {
			return result[i].CapturedAt.Before(result[j].CapturedAt)
		}
		return result[i].Symbol < result[j].Symbol
	})
	return result, nil
}

// DeleteOlderThan removes points captured before cutoff.
func (s *BalanceHistoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.data[:0]
	for _, p := range s.data {
		if !p.CapturedAt.Before(cutoff) {
			kept = append(kept, p)
		}
	}
	deleted := int64(len(s.data) - len(kept))
	clear(s.data[len(kept):])
	s.data = kept
	return deleted, nil
}

// Count returns the number of stored points.
func (s *BalanceHistoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
