package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"wallet-sync/internal/domain"
	"wallet-sync/internal/storage"
)

func newEvent(chain, hash string, occurredAt time.Time) *domain.WalletEvent {
	return &domain.WalletEvent{
		WalletAddress: "0xWallet",
		Chain:         chain,
		OccurredAt:    occurredAt,
		Kind:          domain.EventKindTransferIn,
		TxHash:        hash,
	}
}

func TestEventStore_InsertAndExists(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	exists, err := store.Exists(ctx, "base", "0xhash1")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Fatal("expected event to not exist before insert")
	}

	e := newEvent("base", "0xhash1", time.Now())
	if err := store.Insert(ctx, e); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if e.ID == 0 {
		t.Error("expected ID to be assigned")
	}

	exists, err = store.Exists(ctx, "base", "0xhash1")
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected event to exist after insert")
	}

	// Same hash on a different chain is a different event
	exists, _ = store.Exists(ctx, "ethereum", "0xhash1")
	if exists {
		t.Error("expected chain to be part of the key")
	}
}

func TestEventStore_DuplicateKey(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	if err := store.Insert(ctx, newEvent("base", "0xdup", time.Now())); err != nil {
		t.Fatalf("first Insert failed: %v", err)
	}

	err := store.Insert(ctx, newEvent("base", "0xdup", time.Now()))
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("expected 1 event, got %d", store.Count())
	}
}

func TestEventStore_ConcurrentInsertSameHash(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	inserted := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Insert(ctx, newEvent("base", "0xrace", time.Now())); err == nil {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if inserted != 1 {
		t.Errorf("expected exactly 1 successful insert, got %d", inserted)
	}
}

func TestEventStore_GetByWallet_NewestFirst(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()
	base := time.Unix(1700000000, 0)

	for i, hash := range []string{"0xa", "0xb", "0xc"} {
		if err := store.Insert(ctx, newEvent("base", hash, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	events, err := store.GetByWallet(ctx, "base", "0xWallet", 2)
	if err != nil {
		t.Fatalf("GetByWallet failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].TxHash != "0xc" || events[1].TxHash != "0xb" {
		t.Errorf("unexpected order: %s, %s", events[0].TxHash, events[1].TxHash)
	}
}

func TestEventStore_DeleteOlderThan(t *testing.T) {
	store := NewEventStore()
	ctx := context.Background()
	now := time.Now()

	_ = store.Insert(ctx, newEvent("base", "0xold", now.Add(-91*24*time.Hour)))
	_ = store.Insert(ctx, newEvent("base", "0xnew", now.Add(-89*24*time.Hour)))

	deleted, err := store.DeleteOlderThan(ctx, now.Add(-90*24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted, got %d", deleted)
	}

	// Pruned hash can be ingested again
	exists, _ := store.Exists(ctx, "base", "0xold")
	if exists {
		t.Error("expected pruned event key to be released")
	}

	// Second run is a no-op
	deleted, _ = store.DeleteOlderThan(ctx, now.Add(-90*24*time.Hour))
	if deleted != 0 {
		t.Errorf("expected idempotent prune, got %d deleted", deleted)
	}
}
