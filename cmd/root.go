package cmd

import (
	"os"

	"nathanbeddoewebdev/fleetmetrics/cmd/commands/auth"
	"nathanbeddoewebdev/fleetmetrics/cmd/commands/collect"
	cfgcmd "nathanbeddoewebdev/fleetmetrics/cmd/commands/config"
	"nathanbeddoewebdev/fleetmetrics/cmd/commands/load"
	"nathanbeddoewebdev/fleetmetrics/cmd/commands/resources"
	"nathanbeddoewebdev/fleetmetrics/cmd/commands/runs"
	"nathanbeddoewebdev/fleetmetrics/cmd/commands/schema"
	"nathanbeddoewebdev/fleetmetrics/cmd/commands/serve"
	"nathanbeddoewebdev/fleetmetrics/cmd/commands/summary"
	"nathanbeddoewebdev/fleetmetrics/internal/providers"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands.
func rootCmd() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "fleetmetrics",
		Short: "Collect cloud resource utilization into a warehouse",
		Long: `fleetmetrics collects utilization telemetry for every compute resource
of a cloud account, stores it as date-partitioned Parquet files in object
storage, and loads daily aggregates into a SQL warehouse with rolling
10, 30, 60 and 90 day summary views.

Supported providers: AWS (EC2 + CloudWatch), Hetzner.

Quick start:
  fleetmetrics auth login aws                     # Store access keys
  fleetmetrics config set storage.bucket metrics  # Choose a bucket
  fleetmetrics config set warehouse.dsn postgres://...
  fleetmetrics collect                            # Extract the last hour
  fleetmetrics load                               # Aggregate and upsert
  fleetmetrics summary --window 30                # Inspect the pivoted view`,
	}

	cmd.PersistentFlags().String("config", "", "Config file (default is $XDG_CONFIG_HOME/fleetmetrics/config.json)")
	cmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides log.level)")

	cmd.AddCommand(auth.NewCommand())
	cmd.AddCommand(cfgcmd.NewCommand())
	cmd.AddCommand(collect.NewCommand())
	cmd.AddCommand(load.NewCommand())
	cmd.AddCommand(schema.NewCommand())
	cmd.AddCommand(summary.NewCommand())
	cmd.AddCommand(resources.NewCommand())
	cmd.AddCommand(runs.NewCommand())
	cmd.AddCommand(serve.NewCommand())

	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	providers.RegisterAWS()
	providers.RegisterHetzner()

	var root = rootCmd()
	err := root.Execute()
	if err != nil {
		os.Exit(1)
	}
}
