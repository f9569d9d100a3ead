package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wallet-sync/internal/domain"
	"wallet-sync/internal/storage"
)

func testEvent(hash string, occurredAt time.Time) *domain.WalletEvent {
	return &domain.WalletEvent{
		WalletAddress: "0xWallet",
		Chain:         "base",
		OccurredAt:    occurredAt,
		Kind:          domain.EventKindTransferOut,
		TxHash:        hash,
		Detail: domain.EventDetail{
			BlockHeight:  123,
			FromAddress:  "0xWallet",
			ToAddress:    "0xOther",
			Amount:       decimal.RequireFromString("100"),
			Currency:     "USDC",
			USDValue:     decimal.RequireFromString("100"),
			ProviderType: "send",
		},
	}
}

func TestEventStore(t *testing.T) {
	pool := startPostgres(t)

	ctx := context.Background()
	store := NewEventStore(pool)
	now := time.Now().UTC().Truncate(time.Microsecond)

	t.Run("InsertAndGetByWallet", func(t *testing.T) {
		truncateTables(t, pool)

		event := testEvent("0xhash1", now)
		require.NoError(t, store.Insert(ctx, event))
		assert.NotZero(t, event.ID)

		exists, err := store.Exists(ctx, "base", "0xhash1")
		require.NoError(t, err)
		assert.True(t, exists)

		events, err := store.GetByWallet(ctx, "base", "0xWallet", 10)
		require.NoError(t, err)
		require.Len(t, events, 1)

		got := events[0]
		assert.Equal(t, domain.EventKindTransferOut, got.Kind)
		assert.Equal(t, "0xhash1", got.TxHash)
		assert.True(t, got.OccurredAt.Equal(now))
		assert.Equal(t, int64(123), got.Detail.BlockHeight)
		assert.True(t, got.Detail.USDValue.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, "USDC", got.Detail.Currency)
	})

	t.Run("InsertDuplicate", func(t *testing.T) {
		truncateTables(t, pool)

		require.NoError(t, store.Insert(ctx, testEvent("0xdup", now)))

		err := store.Insert(ctx, testEvent("0xdup", now))
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	})

	t.Run("ConcurrentInsertSameHash", func(t *testing.T) {
		truncateTables(t, pool)

		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- store.Insert(ctx, testEvent("0xrace", now))
			}()
		}
		wg.Wait()
		close(errs)

		succeeded := 0
		for err := range errs {
			if err == nil {
				succeeded++
				continue
			}
			assert.ErrorIs(t, err, storage.ErrDuplicateKey)
		}
		assert.Equal(t, 1, succeeded)
	})

	t.Run("SameHashDifferentChain", func(t *testing.T) {
		truncateTables(t, pool)

		e := testEvent("0xshared", now)
		require.NoError(t, store.Insert(ctx, e))

		other := testEvent("0xshared", now)
		other.Chain = "ethereum"
		assert.NoError(t, store.Insert(ctx, other))
	})

	t.Run("DeleteOlderThan", func(t *testing.T) {
		truncateTables(t, pool)

		require.NoError(t, store.Insert(ctx, testEvent("0xold", now.Add(-91*24*time.Hour))))
		require.NoError(t, store.Insert(ctx, testEvent("0xnew", now.Add(-89*24*time.Hour))))

		deleted, err := store.DeleteOlderThan(ctx, now.Add(-90*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)

		exists, err := store.Exists(ctx, "base", "0xold")
		require.NoError(t, err)
		assert.False(t, exists)

		deleted, err = store.DeleteOlderThan(ctx, now.Add(-90*24*time.Hour))
		require.NoError(t, err)
		assert.Zero(t, deleted)
	})
}
