package ingestion

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"wallet-sync/internal/domain"
	"wallet-sync/internal/pricing"
	"wallet-sync/internal/provider"
	"wallet-sync/internal/provider/stub"
	"wallet-sync/internal/storage"
)

var errStoreDown = errors.New("connection refused")

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func testWallet() *domain.Wallet {
	return &domain.Wallet{
		ID:      1,
		Address: "0xA1b2C3d4E5f60718293a4B5c6D7e8F9012345678",
		Chain:   domain.ChainBase,
		Status:  domain.WalletStatusActive,
	}
}

func newResolver(client *stub.Client) *pricing.Resolver {
	return pricing.New(pricing.Options{Client: client})
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func usd(amount string) *provider.Money {
	return &provider.Money{Amount: dec(amount), Currency: "USD"}
}

func money(amount, currency string) *provider.Money {
	return &provider.Money{Amount: dec(amount), Currency: currency}
}

// failingSnapshotStore rejects every insert.
type failingSnapshotStore struct {
	storage.SnapshotStore
}

func (s *failingSnapshotStore) Insert(context.Context, *domain.BalanceSnapshot) error {
	return errStoreDown
}

// failingHistoryStore rejects every batch.
type failingHistoryStore struct {
	storage.BalanceHistoryStore
}

func (s *failingHistoryStore) InsertBulk(context.Context, []*domain.BalanceHistoryPoint) error {
	return errStoreDown
}

// flakyEventStore fails Exists or Insert for selected hashes.
type flakyEventStore struct {
	storage.EventStore
	existsErr map[string]bool
	insertErr map[string]error
}

func (s *flakyEventStore) Exists(ctx context.Context, chain, hash string) (bool, error) {
	if s.existsErr[hash] {
		return false, errStoreDown
	}
	return s.EventStore.Exists(ctx, chain, hash)
}

func (s *flakyEventStore) Insert(ctx context.Context, e *domain.WalletEvent) error {
	if err, ok := s.insertErr[e.TxHash]; ok {
		return err
	}
	return s.EventStore.Insert(ctx, e)
}

// racingEventStore reports every hash as absent, so duplicates reach Insert.
type racingEventStore struct {
	storage.EventStore
}

func (s *racingEventStore) Exists(context.Context, string, string) (bool, error) {
	return false, nil
}
