package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"wallet-sync/internal/domain"
	pgstore "wallet-sync/internal/storage/postgres"
)

func newTrackCmd(a *app) *cobra.Command {
	var (
		chain    string
		address  string
		inactive bool
	)

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Register a wallet or change its status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.ValidateStorage(); err != nil {
				return err
			}

			w, err := newTrackedWallet(chain, address, inactive)
			if err != nil {
				return err
			}

			if err := a.openPostgres(cmd.Context()); err != nil {
				return err
			}
			if err := pgstore.NewWalletStore(a.pool).Upsert(cmd.Context(), w); err != nil {
				return err
			}

			a.logger.Info("wallet tracked",
				zap.Int64("id", w.ID),
				zap.String("chain", w.Chain),
				zap.String("address", w.Address),
				zap.String("status", string(w.Status)),
			)
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", w.ID, w.Chain, w.Address, w.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&chain, "chain", "", "provider network id, e.g. base or solana")
	cmd.Flags().StringVar(&address, "address", "", "wallet address")
	cmd.Flags().BoolVar(&inactive, "inactive", false, "register the wallet as inactive (excluded from sync)")
	_ = cmd.MarkFlagRequired("chain")
	_ = cmd.MarkFlagRequired("address")

	return cmd
}

// newTrackedWallet normalizes and validates the track command input.
func newTrackedWallet(chain, address string, inactive bool) (*domain.Wallet, error) {
	chain = strings.ToLower(strings.TrimSpace(chain))
	address = strings.TrimSpace(address)

	if chain == "" {
		return nil, fmt.Errorf("chain is required")
	}
	if err := domain.ValidateAddress(chain, address); err != nil {
		return nil, err
	}

	status := domain.WalletStatusActive
	if inactive {
		status = domain.WalletStatusInactive
	}
	return &domain.Wallet{Chain: chain, Address: address, Status: status}, nil
}

// redactDSN strips credentials from a connection string for logging.
func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "<unparseable dsn>"
	}
	if u.User != nil {
		u.User = url.User(u.User.Username())
	}
	return u.String()
}
