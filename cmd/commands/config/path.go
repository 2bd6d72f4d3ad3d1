package config

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/fleetmetrics/internal/config"

	"github.com/spf13/cobra"
)

// PathCommand returns the "config path" command.
func PathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if p := configPath(cmd); p != "" {
				fmt.Fprintln(cmd.OutOrStdout(), p)
				return nil
			}
			p, err := config.Path()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
		SilenceUsage: true,
	}
}

// configPath returns the root --config flag value, or "" for the default
// location.
func configPath(cmd *cobra.Command) string {
	if f := cmd.Flag("config"); f != nil {
		return strings.TrimSpace(f.Value.String())
	}
	return ""
}
