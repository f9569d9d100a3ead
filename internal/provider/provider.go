// Package provider is the client for the external wallet-data API.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrUnavailable is returned when the provider cannot serve a request:
	// transport failure, non-2xx status or exhausted retries.
	ErrUnavailable = errors.New("provider unavailable")

	// ErrNotFound is returned when the provider has no data for the request.
	ErrNotFound = errors.New("provider: not found")
)

// Client defines the provider operations used by the sync workers.
type Client interface {
	// GetWalletBalances returns current holdings for address on chain.
	GetWalletBalances(ctx context.Context, chain, address string) ([]Balance, error)

	// GetWalletTransactions returns at most limit recent transactions, newest first.
	GetWalletTransactions(ctx context.Context, chain, address string, limit int) ([]Transaction, error)

	// GetTokenPrice returns the USD unit price of a currency code.
	GetTokenPrice(ctx context.Context, code string) (*Money, error)
}

// Currency identifies an asset.
type Currency struct {
	Code    string `json:"code"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"` // token contract, empty for native assets
}

// Money is an amount in a currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// UnmarshalJSON decodes a money object. An empty, null or non-numeric amount
// decodes as zero.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw struct {
		Amount   json.RawMessage `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.Amount = lenientAmount(raw.Amount)
	m.Currency = raw.Currency
	return nil
}

// lenientAmount parses a JSON string or number as a decimal, falling back to zero.
func lenientAmount(raw json.RawMessage) decimal.Decimal {
	var d decimal.NullDecimal
	if len(raw) == 0 || json.Unmarshal(raw, &d) != nil || !d.Valid {
		return decimal.Zero
	}
	return d.Decimal
}

// IsUSD reports whether m is denominated in US dollars.
func (m *Money) IsUSD() bool {
	return m != nil && strings.EqualFold(m.Currency, "USD")
}

// Balance is one holding as reported by the provider.
type Balance struct {
	Currency Currency        `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
	USDValue *Money          `json:"usd_value,omitempty"` // nil when the provider did not price it
}

// UnmarshalJSON decodes a balance, treating an unparseable amount as zero.
func (b *Balance) UnmarshalJSON(data []byte) error {
	type plain Balance
	var raw struct {
		plain
		Amount json.RawMessage `json:"amount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Balance(raw.plain)
	b.Amount = lenientAmount(raw.Amount)
	return nil
}

// SuppliedUSD returns the provider's own valuation of the holding. usd_value
// is USD-denominated unless it explicitly names another currency.
func (b Balance) SuppliedUSD() (decimal.Decimal, bool) {
	if b.USDValue == nil {
		return decimal.Zero, false
	}
	if b.USDValue.Currency != "" && !b.USDValue.IsUSD() {
		return decimal.Zero, false
	}
	return b.USDValue.Amount, true
}

// Transaction is one on-chain transaction as reported by the provider.
type Transaction struct {
	Hash           string    `json:"hash"`
	BlockHeight    int64     `json:"block_height"`
	BlockTimestamp time.Time `json:"block_timestamp"`
	FromAddress    string    `json:"from_address"`
	ToAddress      string    `json:"to_address"`
	Type           string    `json:"type"`
	Value          *Money    `json:"value,omitempty"`
}
