package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "walletsync",
		Short: "Periodically sync wallet balances and transactions",
		Long: "walletsync polls a blockchain data provider for every active wallet, stores balance " +
			"snapshots and deduplicated wallet events, and prunes records past their retention window.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd, configPath)
		},
	}

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the configuration file (default ./walletsync.yaml)")
	cmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().String("log-format", "", "log format: json or console")

	cmd.AddCommand(
		newRunCmd(a),
		newSyncCmd(a),
		newPruneCmd(a),
		newMigrateCmd(a),
		newTrackCmd(a),
	)
	return cmd
}
