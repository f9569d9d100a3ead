// Package stub provides an in-memory provider.Client for tests and dry runs.
package stub

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"wallet-sync/internal/provider"
)

// Client implements provider.Client from in-memory fixtures.
// Errors can be injected per wallet address or per price code.
type Client struct {
	mu sync.Mutex

	Balances     map[string][]provider.Balance
	Transactions map[string][]provider.Transaction
	Prices       map[string]decimal.Decimal

	BalanceErrors     map[string]error
	TransactionErrors map[string]error
	PriceErrors       map[string]error

	BalanceCalls     int
	TransactionCalls int
	PriceCalls       map[string]int

	// OnBalances, when set, runs before balances are returned.
	OnBalances func(address string)
}

var _ provider.Client = (*Client)(nil)

// NewClient creates an empty stub client.
func NewClient() *Client {
	return &Client{
		Balances:          make(map[string][]provider.Balance),
		Transactions:      make(map[string][]provider.Transaction),
		Prices:            make(map[string]decimal.Decimal),
		BalanceErrors:     make(map[string]error),
		TransactionErrors: make(map[string]error),
		PriceErrors:       make(map[string]error),
		PriceCalls:        make(map[string]int),
	}
}

// GetWalletBalances returns the fixture balances for address.
func (c *Client) GetWalletBalances(_ context.Context, _, address string) ([]provider.Balance, error) {
	c.mu.Lock()
	c.BalanceCalls++
	hook := c.OnBalances
	err := c.BalanceErrors[address]
	balances := append([]provider.Balance(nil), c.Balances[address]...)
	c.mu.Unlock()

	if hook != nil {
		hook(address)
	}
	if err != nil {
		return nil, err
	}
	return balances, nil
}

// GetWalletTransactions returns up to limit fixture transactions for address.
func (c *Client) GetWalletTransactions(_ context.Context, _, address string, limit int) ([]provider.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.TransactionCalls++
	if err := c.TransactionErrors[address]; err != nil {
		return nil, err
	}

	txs := c.Transactions[address]
	if limit > 0 && limit < len(txs) {
		txs = txs[:limit]
	}
	return append([]provider.Transaction(nil), txs...), nil
}

// GetTokenPrice returns the fixture price for code.
func (c *Client) GetTokenPrice(_ context.Context, code string) (*provider.Money, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := strings.ToUpper(code)
	c.PriceCalls[key]++
	if err := c.PriceErrors[key]; err != nil {
		return nil, err
	}

	price, ok := c.Prices[key]
	if !ok {
		return nil, fmt.Errorf("price %s: %w", code, provider.ErrNotFound)
	}
	return &provider.Money{Amount: price, Currency: "USD"}, nil
}

// SetBalances sets the balances returned for address.
func (c *Client) SetBalances(address string, balances ...provider.Balance) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Balances[address] = balances
}

// SetTransactions sets the transactions returned for address.
func (c *Client) SetTransactions(address string, txs ...provider.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transactions[address] = txs
}

// SetPrice sets the USD price for code.
func (c *Client) SetPrice(code string, price string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Prices[strings.ToUpper(code)] = decimal.RequireFromString(price)
}

// FailBalances makes balance lookups for address return err.
func (c *Client) FailBalances(address string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.BalanceErrors[address] = err
}

// FailTransactions makes transaction lookups for address return err.
func (c *Client) FailTransactions(address string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.TransactionErrors[address] = err
}

// FailPrice makes price lookups for code return err.
func (c *Client) FailPrice(code string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.PriceErrors[strings.ToUpper(code)] = err
}

// PriceCallCount returns how many times code was priced.
func (c *Client) PriceCallCount(code string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.PriceCalls[strings.ToUpper(code)]
}
