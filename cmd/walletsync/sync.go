package main

import (
	"github.com/spf13/cobra"
)

func newSyncCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle over all active wallets and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			s, err := a.openStores(cmd.Context())
			if err != nil {
				return err
			}

			result, err := a.newOrchestrator(s).SyncAllWallets(cmd.Context())
			if err != nil {
				return err
			}
			return cycleError(result)
		},
	}
}

func newPruneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete snapshots, events and evaluations past their retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.ValidateStorage(); err != nil {
				return err
			}

			s, err := a.openStores(cmd.Context())
			if err != nil {
				return err
			}
			return a.newPruner(s).PruneOldData(cmd.Context()).Err()
		},
	}
}
