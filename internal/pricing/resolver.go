// Package pricing resolves USD unit prices for currency codes.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"wallet-sync/internal/observability"
	"wallet-sync/internal/provider"
)

// ErrPriceUnavailable is returned when no positive USD price can be obtained.
// Callers treat it as a soft failure and value the holding at zero.
var ErrPriceUnavailable = errors.New("price unavailable")

// usdCode is priced at 1 without a provider call.
const usdCode = "USD"

// Resolver looks up USD prices through the provider.
type Resolver struct {
	client provider.Client
	cache  *cache.Cache
	logger *zap.Logger
}

// Options for creating a Resolver.
type Options struct {
	Client provider.Client

	// CacheTTL enables an in-process price cache when positive.
	// Zero means every lookup hits the provider.
	CacheTTL time.Duration

	Logger *zap.Logger
}

// New creates a new Resolver.
func New(opts Options) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Resolver{
		client: opts.Client,
		logger: logger,
	}
	if opts.CacheTTL > 0 {
		r.cache = cache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}
	return r
}

// Resolve returns the positive USD unit price for code.
// Any failure is reported as ErrPriceUnavailable.
func (r *Resolver) Resolve(ctx context.Context, code string) (decimal.Decimal, error) {
	key := strings.ToUpper(strings.TrimSpace(code))
	if key == "" {
		observability.RecordPriceLookup("unavailable")
		return decimal.Zero, fmt.Errorf("%w: empty currency code", ErrPriceUnavailable)
	}
	if key == usdCode {
		return decimal.NewFromInt(1), nil
	}

	if r.cache != nil {
		if cached, ok := r.cache.Get(key); ok {
			observability.RecordPriceLookup("cached")
			return cached.(decimal.Decimal), nil
		}
	}

	money, err := r.client.GetTokenPrice(ctx, key)
	if err != nil {
		observability.RecordPriceLookup("unavailable")
		r.logger.Debug("price lookup failed", zap.String("currency", key), zap.Error(err))
		return decimal.Zero, fmt.Errorf("%w: %s: %v", ErrPriceUnavailable, key, err)
	}
	if money == nil || !money.Amount.IsPositive() {
		observability.RecordPriceLookup("unavailable")
		return decimal.Zero, fmt.Errorf("%w: %s: non-positive price", ErrPriceUnavailable, key)
	}

	if r.cache != nil {
		r.cache.Set(key, money.Amount, cache.DefaultExpiration)
	}
	observability.RecordPriceLookup("resolved")

	return money.Amount, nil
}
