package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"wallet-sync/internal/domain"
	"wallet-sync/internal/storage"
)

// walletKey is the identity of a tracked wallet.
type walletKey struct {
	Chain   string
	Address string
}

// WalletStore is an in-memory implementation of storage.WalletStore.
type WalletStore struct {
	mu     sync.RWMutex
	data   map[walletKey]*domain.Wallet
	nextID int64
}

// NewWalletStore creates a new in-memory wallet store.
func NewWalletStore() *WalletStore {
	return &WalletStore{
		data: make(map[walletKey]*domain.Wallet),
	}
}

var _ storage.WalletStore = (*WalletStore)(nil)

// ListActive returns active wallets ordered by ID.
func (s *WalletStore) ListActive(_ context.Context) ([]*domain.Wallet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Wallet, 0, len(s.data))
	for _, w := range s.data {
		if w.IsActive() {
			copy := *w
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	return result, nil
}

// Upsert registers a wallet, or updates the status of an existing one.
func (s *WalletStore) Upsert(_ context.Context, w *domain.Wallet) error {
	if w == nil || w.Address == "" || w.Chain == "" {
		return storage.ErrInvalidInput
	}

	key := walletKey{Chain: w.Chain, Address: w.Address}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.data[key]; ok {
		existing.Status = w.Status
		w.ID = existing.ID
		w.CreatedAt = existing.CreatedAt
		return nil
	}

	s.nextID++
	w.ID = s.nextID
	if w.CreatedAt.IsZero() {
		w.CreatedAt = time.Now().UTC()
	}
	copy := *w
	s.data[key] = &copy

	return nil
}
