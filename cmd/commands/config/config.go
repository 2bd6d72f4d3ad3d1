package config

import (
	"nathanbeddoewebdev/fleetmetrics/internal/config"

	"github.com/spf13/cobra"
)

// NewCommand returns the "config" parent command.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage fleetmetrics configuration",
		Long: "View and modify persistent fleetmetrics settings.\n\n" +
			"Configuration is stored at ~/.config/fleetmetrics/config.json\n" +
			"(see `fleetmetrics config path`).\n" +
			"FLEETMETRICS_* environment variables override the file\n" +
			"(e.g. FLEETMETRICS_STORAGE_BUCKET for storage.bucket).\n\n" +
			config.KeysHelp(),
	}

	cmd.AddCommand(SetCommand())
	cmd.AddCommand(GetCommand())
	cmd.AddCommand(PathCommand())

	return cmd
}
