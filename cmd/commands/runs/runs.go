package runs

import "github.com/spf13/cobra"

// NewCommand returns the "runs" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "View and manage the run ledger",
		Long: "View the local ledger of collect and load runs and prune old entries.\n\n" +
			"The ledger is stored locally in ~/.config/fleetmetrics/fleetmetrics.db and\n" +
			"drives `collect --since-last-run`.",
		SilenceUsage: true,
	}

	cmd.AddCommand(ListCommand())
	cmd.AddCommand(PruneCommand())

	return cmd
}
