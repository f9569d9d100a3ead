package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
)

// WalletStatus represents whether a wallet participates in sync cycles.
type WalletStatus string

const (
	WalletStatusActive   WalletStatus = "active"
	WalletStatusInactive WalletStatus = "inactive"
)

// Chain identifiers known to the address validator.
const (
	ChainSolana   = "solana"
	ChainEthereum = "ethereum"
	ChainBase     = "base"
	ChainPolygon  = "polygon"
	ChainArbitrum = "arbitrum"
	ChainOptimism = "optimism"
)

// evmChains lists chains whose addresses are 20-byte hex strings.
var evmChains = map[string]bool{
	ChainEthereum: true,
	ChainBase:     true,
	ChainPolygon:  true,
	ChainArbitrum: true,
	ChainOptimism: true,
}

// solanaPubkeyLen is the decoded length of a Solana public key.
const solanaPubkeyLen = 32

// ErrInvalidAddress is returned when a wallet address is malformed for its chain.
var ErrInvalidAddress = errors.New("invalid wallet address")

// Wallet is a tracked address on a specific chain.
type Wallet struct {
	ID        int64        // surrogate key assigned by the store
	Address   string       // on-chain address as registered
	Chain     string       // provider network id (e.g. "base", "solana")
	Status    WalletStatus // only active wallets are synced
	CreatedAt time.Time    // registration time
}

// IsActive reports whether the wallet should be synced.
func (w *Wallet) IsActive() bool {
	return w.Status == WalletStatusActive
}

// Key returns the (chain, address) identity used for logging and lookups.
func (w *Wallet) Key() string {
	return w.Chain + ":" + w.Address
}

// ValidateAddress checks that address is well-formed for chain.
// Unknown chains accept any non-empty address.
func ValidateAddress(chain, address string) error {
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidAddress)
	}

	switch {
	case chain == ChainSolana:
		decoded, err := base58.Decode(address)
		if err != nil {
			return fmt.Errorf("%w: base58 decode: %v", ErrInvalidAddress, err)
		}
		if len(decoded) != solanaPubkeyLen {
			return fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAddress, solanaPubkeyLen, len(decoded))
		}
	case evmChains[chain]:
		if !common.IsHexAddress(address) {
			return fmt.Errorf("%w: not a hex address", ErrInvalidAddress)
		}
	}

	return nil
}

// SameAddress compares two addresses case-insensitively.
func SameAddress(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}
