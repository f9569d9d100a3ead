package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wallet-sync/internal/pricing"
	"wallet-sync/internal/provider"
	"wallet-sync/internal/storage/memory"
)

// newProviderServer serves canned provider responses keyed by path suffix.
func newProviderServer(t *testing.T, routes map[string]string) *provider.HTTPClient {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for suffix, body := range routes {
			if strings.HasSuffix(r.URL.Path, suffix) {
				w.Write([]byte(body))
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	return provider.NewHTTPClient(server.URL,
		provider.WithRetryDelay(time.Millisecond),
		provider.WithMaxDelay(time.Millisecond),
	)
}

func TestSyncBalances_OverHTTP_SuppliedValueWithoutCurrency(t *testing.T) {
	w := testWallet()
	client := newProviderServer(t, map[string]string{
		"/balances":   `{"data":[{"currency":{"code":"ETH"},"amount":"2.0","usd_value":{"amount":"6000"}}]}`,
		"/prices/ETH": `{"data":{"amount":"3100","currency":"USD"}}`,
	})

	syncer := NewBalanceSynchronizer(BalanceOptions{
		Client:    client,
		Prices:    pricing.New(pricing.Options{Client: client}),
		Snapshots: memory.NewSnapshotStore(),
		Now:       fixedClock,
	})

	snap, err := syncer.SyncBalances(context.Background(), w)
	if err != nil {
		t.Fatalf("SyncBalances: %v", err)
	}
	if !snap.TotalUSDValue.Equal(dec("6000")) {
		t.Errorf("expected total 6000, got %s", snap.TotalUSDValue)
	}
	entry := snap.Balances[0]
	if entry.Symbol != "ETH" || !entry.Balance.Equal(dec("2")) {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if !entry.USDValue.Equal(dec("6000")) || !entry.PricePerToken.Equal(dec("3000")) {
		t.Errorf("expected usd 6000 at 3000, got %s at %s", entry.USDValue, entry.PricePerToken)
	}
}

func TestSyncTransactions_OverHTTP_ValuelessTransactionKept(t *testing.T) {
	w := testWallet()
	client := newProviderServer(t, map[string]string{
		"/transactions": `{"data":[
			{"hash":"0xT1","block_timestamp":"2024-05-31T10:00:00Z","from_address":"` + w.Address + `",
			 "to_address":"0xC0ffee","type":"transfer","value":{"amount":"100","currency":"USD"}},
			{"hash":"0xT2","block_timestamp":"2024-05-31T11:00:00Z","from_address":"0xC0ffee",
			 "to_address":"` + w.Address + `","type":"transfer","value":{"amount":"","currency":"ETH"}}
		]}`,
		"/prices/ETH": `{"data":{"amount":"3000","currency":"USD"}}`,
	})
	events := memory.NewEventStore()

	syncer := NewTransactionSynchronizer(TransactionOptions{
		Client: client,
		Prices: pricing.New(pricing.Options{Client: client}),
		Events: events,
		Now:    fixedClock,
	})

	result, err := syncer.SyncTransactions(context.Background(), w)
	if err != nil {
		t.Fatalf("SyncTransactions: %v", err)
	}
	if result.Fetched != 2 || result.Inserted != 2 {
		t.Fatalf("expected both transactions inserted, got %+v", result)
	}

	valueless, err := events.Exists(context.Background(), w.Chain, "0xT2")
	if err != nil || !valueless {
		t.Fatalf("expected 0xT2 stored, exists=%v err=%v", valueless, err)
	}
	stored, _ := events.GetByWallet(context.Background(), w.Chain, w.Address, 10)
	for _, e := range stored {
		if e.TxHash == "0xT2" && (!e.Detail.Amount.IsZero() || !e.Detail.USDValue.IsZero()) {
			t.Errorf("expected zero-amount event, got %+v", e.Detail)
		}
		if e.TxHash == "0xT1" && !e.Detail.USDValue.Equal(dec("100")) {
			t.Errorf("expected usd 100 for 0xT1, got %s", e.Detail.USDValue)
		}
	}
}
