package auth

import (
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage credentials for providers and object storage",
		Long: `Manage credentials for providers and object storage.

Credentials are stored in the OS keychain. Environment variables
(HCLOUD_TOKEN, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY,
FLEETMETRICS_STORAGE_ACCESS_KEY, FLEETMETRICS_STORAGE_SECRET_KEY)
take precedence over stored values.`,
	}

	cmd.AddCommand(LoginCommand())
	cmd.AddCommand(LogoutCommand())
	cmd.AddCommand(StatusCommand())

	return cmd
}
