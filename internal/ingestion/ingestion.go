// Package ingestion pulls wallet balances and transactions from the provider
// and persists them as snapshots and events.
package ingestion

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceResolver resolves USD unit prices. Failures are soft: callers value at zero.
type PriceResolver interface {
	Resolve(ctx context.Context, code string) (decimal.Decimal, error)
}

// DefaultTransactionLimit is how many recent transactions are examined per wallet.
const DefaultTransactionLimit = 20
