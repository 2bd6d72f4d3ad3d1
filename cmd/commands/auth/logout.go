package auth

import (
	"errors"
	"fmt"

	"nathanbeddoewebdev/fleetmetrics/internal/app"
	"nathanbeddoewebdev/fleetmetrics/internal/services/auth"

	"github.com/spf13/cobra"
)

func LogoutCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout <provider>",
		Short: "Remove stored credentials for a provider",
		Long: `Remove every stored credential of a provider from the keychain.

Example:
  fleetmetrics auth logout storage`,
		Args:         cobra.ExactArgs(1),
		RunE:         runLogout,
		SilenceUsage: true,
	}

	return cmd
}

func runLogout(cmd *cobra.Command, args []string) error {
	spec, err := lookupSpec(args[0])
	if err != nil {
		return err
	}

	store := app.AuthStore()
	removed := 0
	for _, k := range spec.Keys {
		err := store.DeleteToken(spec.KeychainKey(k))
		switch {
		case err == nil:
			removed++
		case errors.Is(err, auth.ErrTokenNotFound):
		default:
			return fmt.Errorf("failed to remove %s: %w", k.Prompt, err)
		}
	}

	if removed == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No stored credentials for provider %s\n", spec.Provider)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed credentials for provider %s\n", spec.Provider)
	return nil
}
