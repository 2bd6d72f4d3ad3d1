package config

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"nathanbeddoewebdev/fleetmetrics/internal/config"

	"github.com/spf13/cobra"
)

// GetCommand returns the "config get" command.
func GetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get [key]",
		Short: "Get a configuration value",
		Long: "Print the effective value of a configuration key, after defaults,\n" +
			"the config file and environment overrides are applied.\n\n" +
			"Without a key, every key is listed.\n\n" +
			config.KeysHelp() +
			"\nExamples:\n" +
			"  fleetmetrics config get                  # list all values\n" +
			"  fleetmetrics config get storage.bucket   # print a single value",
		Args:         cobra.MaximumNArgs(1),
		RunE:         runGet,
		SilenceUsage: true,
	}

	return cmd
}

func runGet(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		for _, name := range config.KeyNames() {
			value, err := config.GetFrom(configPath(cmd), name)
			if err != nil {
				return err
			}
			if value == "" {
				value = "(not set)"
			}
			fmt.Fprintf(w, "%s\t%s\n", name, value)
		}
		return w.Flush()
	}

	key := strings.TrimSpace(args[0])
	if config.Lookup(key) == nil {
		return fmt.Errorf("unknown configuration key %q (valid: %s)", key, strings.Join(config.KeyNames(), ", "))
	}

	value, err := config.GetFrom(configPath(cmd), key)
	if err != nil {
		return err
	}
	if value == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "not set")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), value)
	}
	return nil
}
