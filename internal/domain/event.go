package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EventKind classifies a wallet transaction.
type EventKind string

const (
	EventKindTransferIn  EventKind = "transfer_in"
	EventKindTransferOut EventKind = "transfer_out"
	EventKindSwap        EventKind = "swap"
	EventKindOther       EventKind = "other"
)

// WalletEvent is an immutable record of one on-chain transaction for a wallet.
// At most one event exists per (Chain, TxHash).
type WalletEvent struct {
	ID            int64
	WalletAddress string
	Chain         string
	OccurredAt    time.Time
	Kind          EventKind
	TxHash        string
	Detail        EventDetail
}

// EventDetail is the structured payload stored alongside an event.
type EventDetail struct {
	BlockHeight  int64           `json:"block_height"`
	FromAddress  string          `json:"from_address,omitempty"`
	ToAddress    string          `json:"to_address,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency,omitempty"`
	USDValue     decimal.Decimal `json:"usd_value"`
	ProviderType string          `json:"provider_type,omitempty"`
}

// ClassifyEvent derives the event kind for wallet from a transaction's
// endpoints and provider-supplied type. A provider type containing "swap"
// overrides the direction; outgoing wins when both endpoints are the wallet.
func ClassifyEvent(wallet, from, to, providerType string) EventKind {
	kind := EventKindOther
	switch {
	case SameAddress(from, wallet):
		kind = EventKindTransferOut
	case SameAddress(to, wallet):
		kind = EventKindTransferIn
	}

	if strings.Contains(strings.ToLower(providerType), "swap") {
		kind = EventKindSwap
	}

	return kind
}
