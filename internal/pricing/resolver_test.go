package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wallet-sync/internal/provider"
	"wallet-sync/internal/provider/stub"
)

func TestResolver_Resolve(t *testing.T) {
	client := stub.NewClient()
	client.SetPrice("ETH", "3000")

	r := New(Options{Client: client})

	price, err := r.Resolve(context.Background(), "eth")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("expected 3000, got %s", price)
	}
}

func TestResolver_ProviderFailure(t *testing.T) {
	client := stub.NewClient()
	client.FailPrice("ETH", provider.ErrUnavailable)

	r := New(Options{Client: client})

	price, err := r.Resolve(context.Background(), "ETH")
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Fatalf("expected ErrPriceUnavailable, got %v", err)
	}
	if !price.IsZero() {
		t.Errorf("expected zero price on failure, got %s", price)
	}
}

func TestResolver_UnknownCode(t *testing.T) {
	r := New(Options{Client: stub.NewClient()})

	_, err := r.Resolve(context.Background(), "NOPE")
	if !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("expected ErrPriceUnavailable, got %v", err)
	}
}

func TestResolver_NonPositivePrice(t *testing.T) {
	client := stub.NewClient()
	client.SetPrice("DEAD", "0")
	client.SetPrice("NEG", "-1")

	r := New(Options{Client: client})

	for _, code := range []string{"DEAD", "NEG"} {
		if _, err := r.Resolve(context.Background(), code); !errors.Is(err, ErrPriceUnavailable) {
			t.Errorf("%s: expected ErrPriceUnavailable, got %v", code, err)
		}
	}
}

func TestResolver_EmptyCode(t *testing.T) {
	client := stub.NewClient()
	r := New(Options{Client: client})

	if _, err := r.Resolve(context.Background(), "  "); !errors.Is(err, ErrPriceUnavailable) {
		t.Errorf("expected ErrPriceUnavailable, got %v", err)
	}
}

func TestResolver_USDShortcut(t *testing.T) {
	client := stub.NewClient()
	r := New(Options{Client: client})

	price, err := r.Resolve(context.Background(), "usd")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !price.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1, got %s", price)
	}
	if client.PriceCallCount("USD") != 0 {
		t.Error("expected no provider call for USD")
	}
}

func TestResolver_NoCacheByDefault(t *testing.T) {
	client := stub.NewClient()
	client.SetPrice("ETH", "3000")
	r := New(Options{Client: client})

	for i := 0; i < 3; i++ {
		_, _ = r.Resolve(context.Background(), "ETH")
	}
	if got := client.PriceCallCount("ETH"); got != 3 {
		t.Errorf("expected 3 provider calls without cache, got %d", got)
	}
}

func TestResolver_Cache(t *testing.T) {
	client := stub.NewClient()
	client.SetPrice("ETH", "3000")
	r := New(Options{Client: client, CacheTTL: time.Minute})

	for i := 0; i < 3; i++ {
		price, err := r.Resolve(context.Background(), "ETH")
		if err != nil {
			t.Fatalf("Resolve: %v", err)
		}
		if !price.Equal(decimal.NewFromInt(3000)) {
			t.Errorf("expected 3000, got %s", price)
		}
	}
	if got := client.PriceCallCount("ETH"); got != 1 {
		t.Errorf("expected 1 provider call with cache, got %d", got)
	}
}

func TestResolver_FailuresAreNotCached(t *testing.T) {
	client := stub.NewClient()
	client.FailPrice("ETH", provider.ErrUnavailable)
	r := New(Options{Client: client, CacheTTL: time.Minute})

	_, _ = r.Resolve(context.Background(), "ETH")
	client.FailPrice("ETH", nil)
	client.SetPrice("ETH", "3000")

	price, err := r.Resolve(context.Background(), "ETH")
	if err != nil {
		t.Fatalf("expected recovery after provider failure, got %v", err)
	}
	if !price.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("expected 3000, got %s", price)
	}
}
