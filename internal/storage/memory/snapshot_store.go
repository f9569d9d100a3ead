package memory

import (
	"context"
	"sync"
	"time"

	"wallet-sync/internal/domain"
	"wallet-sync/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu     sync.RWMutex
	data   []*domain.BalanceSnapshot
	nextID int64
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data: make([]*domain.BalanceSnapshot, 0),
	}
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// Insert appends a snapshot and assigns its ID.
func (s *SnapshotStore) Insert(_ context.Context, snap *domain.BalanceSnapshot) error {
	if snap == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	snap.ID = s.nextID
	s.data = append(s.data, cloneSnapshot(snap))

	return nil
}

// GetLatest returns the most recently captured snapshot for a wallet.
func (s *SnapshotStore) GetLatest(_ context.Context, chain, address string) (*domain.BalanceSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.BalanceSnapshot
	for _, snap := range s.data {
		if snap.Chain != chain || snap.WalletAddress != address {
			continue
		}
		if latest == nil || !snap.CapturedAt.Before(latest.CapturedAt) {
			latest = snap
		}
	}

	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return cloneSnapshot(latest), nil
}

// DeleteOlderThan removes snapshots captured before cutoff.
func (s *SnapshotStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.data[:0]
	var deleted int64
	for _, snap := range s.data {
		if snap.CapturedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, snap)
	}
	s.data = kept

	return deleted, nil
}

// All returns copies of all stored snapshots in insertion order.
func (s *SnapshotStore) All() []*domain.BalanceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.BalanceSnapshot, len(s.data))
	for i, snap := range s.data {
		result[i] = cloneSnapshot(snap)
	}
	return result
}

func cloneSnapshot(snap *domain.BalanceSnapshot) *domain.BalanceSnapshot {
	copy := *snap
	copy.Balances = append([]domain.TokenBalance(nil), snap.Balances...)
	if copy.Balances == nil {
		copy.Balances = []domain.TokenBalance{}
	}
	return &copy
}
