package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenBalance is one valued holding inside a snapshot.
type TokenBalance struct {
	Symbol          string          `json:"symbol"`
	Name            string          `json:"name,omitempty"`
	ContractAddress string          `json:"contract_address,omitempty"`
	Balance         decimal.Decimal `json:"balance"`
	USDValue        decimal.Decimal `json:"usd_value"`
	PricePerToken   decimal.Decimal `json:"price_per_token"`
}

// BalanceSnapshot is an immutable point-in-time capture of a wallet's holdings.
// TotalUSDValue always equals the sum of Balances[i].USDValue.
type BalanceSnapshot struct {
	ID            int64
	WalletAddress string
	Chain         string
	CapturedAt    time.Time
	TotalUSDValue decimal.Decimal
	Balances      []TokenBalance
}

// NewBalanceSnapshot builds a snapshot and computes its total from balances.
func NewBalanceSnapshot(w *Wallet, capturedAt time.Time, balances []TokenBalance) *BalanceSnapshot {
	if balances == nil {
		balances = []TokenBalance{}
	}
	total := decimal.Zero
	for _, b := range balances {
		total = total.Add(b.USDValue)
	}
	return &BalanceSnapshot{
		WalletAddress: w.Address,
		Chain:         w.Chain,
		CapturedAt:    capturedAt,
		TotalUSDValue: total,
		Balances:      balances,
	}
}

// BalanceHistoryPoint is one token row of a snapshot in the analytics store.
type BalanceHistoryPoint struct {
	WalletAddress string
	Chain         string
	Symbol        string
	CapturedAt    time.Time
	Balance       decimal.Decimal
	USDValue      decimal.Decimal
	PricePerToken decimal.Decimal
}

// HistoryPoints flattens the snapshot into per-token history points.
func (s *BalanceSnapshot) HistoryPoints() []*BalanceHistoryPoint {
	points := make([]*BalanceHistoryPoint, 0, len(s.Balances))
	for _, b := range s.Balances {
		points = append(points, &BalanceHistoryPoint{
			WalletAddress: s.WalletAddress,
			Chain:         s.Chain,
			Symbol:        b.Symbol,
			CapturedAt:    s.CapturedAt,
			Balance:       b.Balance,
			USDValue:      b.USDValue,
			PricePerToken: b.PricePerToken,
		})
	}
	return points
}
