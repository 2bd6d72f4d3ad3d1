package auth

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"

	"nathanbeddoewebdev/fleetmetrics/internal/app"
	platformproviders "nathanbeddoewebdev/fleetmetrics/internal/platform/providers"
	"nathanbeddoewebdev/fleetmetrics/internal/services/auth"

	"github.com/spf13/cobra"
)

func StatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show credential status for providers",
		Long: `Show which providers have credentials and where they come from.

Example:
  fleetmetrics auth status`,
		RunE:         runStatus,
		SilenceUsage: true,
	}

	return cmd
}

func runStatus(cmd *cobra.Command, args []string) error {
	store := app.AuthStore()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tSTATUS\tSOURCE")
	fmt.Fprintln(w, "--------\t------\t------")
	for _, spec := range platformproviders.All() {
		status, source := credentialStatus(spec, store)
		fmt.Fprintf(w, "%s\t%s\t%s\n", spec.Provider, status, source)
	}
	return w.Flush()
}

// credentialStatus reports whether every key of spec resolves, and from
// which sources.
func credentialStatus(spec platformproviders.CredentialSpec, store auth.Store) (string, string) {
	var sources []string
	missing := 0
	unavailable := false
	for _, k := range spec.Keys {
		if k.Env != "" && strings.TrimSpace(os.Getenv(k.Env)) != "" {
			sources = appendUnique(sources, "env")
			continue
		}
		_, err := store.GetToken(spec.KeychainKey(k))
		switch {
		case err == nil:
			sources = appendUnique(sources, "keychain")
		case errors.Is(err, auth.ErrTokenNotFound):
			missing++
		case errors.Is(err, auth.ErrKeychainUnavailable):
			missing++
			unavailable = true
		default:
			return fmt.Sprintf("error (%v)", err), "-"
		}
	}

	source := "-"
	if len(sources) > 0 {
		source = strings.Join(sources, "+")
	}
	switch {
	case missing == 0:
		return "logged in", source
	case unavailable:
		return "keychain unavailable", source
	case missing == len(spec.Keys):
		return "not logged in", source
	default:
		return "incomplete", source
	}
}

func appendUnique(list []string, v string) []string {
	if slices.Contains(list, v) {
		return list
	}
	return append(list, v)
}
