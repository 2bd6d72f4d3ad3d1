package config

import (
	"fmt"
	"strings"

	"nathanbeddoewebdev/fleetmetrics/internal/config"
	"nathanbeddoewebdev/fleetmetrics/internal/domain"
	"nathanbeddoewebdev/fleetmetrics/internal/providers"
	"nathanbeddoewebdev/fleetmetrics/internal/util"
	"nathanbeddoewebdev/fleetmetrics/internal/warehouse"

	"github.com/spf13/cobra"
)

// SetCommand returns the "config set" command.
func SetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: "Set a persistent configuration value.\n\n" +
			config.KeysHelp() +
			"\nExamples:\n" +
			"  fleetmetrics config set provider hetzner\n" +
			"  fleetmetrics config set storage.bucket fleet-telemetry\n" +
			"  fleetmetrics config set collect.states running,stopped",
		Args:         cobra.ExactArgs(2),
		RunE:         runSet,
		SilenceUsage: true,
	}

	return cmd
}

// validators maps key names to optional pre-save validation functions.
// Keys not present in this map only get the type check done by config.Set.
var validators = map[string]func(value string) error{
	"provider":         validateProvider,
	"warehouse.driver": validateDriver,
	"collect.states":   validateStates,
	"storage.bucket":   util.ValidateBucketName,
}

func runSet(cmd *cobra.Command, args []string) error {
	key := strings.TrimSpace(args[0])
	value := strings.TrimSpace(args[1])

	spec := config.Lookup(key)
	if spec == nil {
		return fmt.Errorf("unknown configuration key %q (valid: %s)", args[0], strings.Join(config.KeyNames(), ", "))
	}

	if validate, ok := validators[spec.Name]; ok {
		if err := validate(value); err != nil {
			return err
		}
		value = util.NormalizeKey(value)
	}

	if err := config.SetIn(configPath(cmd), spec.Name, value); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s set to %q\n", spec.Name, value)
	return nil
}

// validateProvider checks that the given name is a registered provider.
func validateProvider(name string) error {
	if providers.Registered(name) {
		return nil
	}
	return fmt.Errorf("unknown provider %q (registered: %s)", name, strings.Join(providers.List(), ", "))
}

func validateDriver(name string) error {
	_, err := warehouse.ParseDialect(name)
	return err
}

func validateStates(value string) error {
	_, unknown := domain.ParseStates(util.SplitList(value))
	if len(unknown) > 0 {
		return fmt.Errorf("unknown lifecycle state(s): %s", strings.Join(unknown, ", "))
	}
	return nil
}
