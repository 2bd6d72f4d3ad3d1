package auth

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"nathanbeddoewebdev/fleetmetrics/internal/app"
	platformproviders "nathanbeddoewebdev/fleetmetrics/internal/platform/providers"
	"nathanbeddoewebdev/fleetmetrics/internal/tui"

	"golang.org/x/term"

	"github.com/spf13/cobra"
)

func LoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login <provider>",
		Short: "Store credentials for a provider",
		Long: `Store credentials for a provider using the local keychain.

Known providers: hetzner (API token), aws (access key pair),
storage (S3-compatible access key pair).

Examples:
  fleetmetrics auth login hetzner
  fleetmetrics auth login hetzner --token "$TOKEN"
  fleetmetrics auth login aws`,
		Args:         cobra.ExactArgs(1),
		RunE:         runLogin,
		SilenceUsage: true,
	}

	cmd.Flags().String("token", "", "API token for single-token providers (optional, overrides prompt)")

	return cmd
}

func runLogin(cmd *cobra.Command, args []string) error {
	spec, err := lookupSpec(args[0])
	if err != nil {
		return err
	}

	token, _ := cmd.Flags().GetString("token")
	token = strings.TrimSpace(token)

	var values map[string]string
	switch {
	case token != "":
		if len(spec.Keys) != 1 {
			return fmt.Errorf("--token only applies to single-token providers; %s needs %d values", spec.Provider, len(spec.Keys))
		}
		values = map[string]string{spec.Keys[0].Key: token}
	case term.IsTerminal(int(os.Stdin.Fd())):
		values, err = tui.PromptCredentials(*spec)
		if err != nil {
			return err
		}
	default:
		values, err = readCredentials(cmd.InOrStdin(), cmd.OutOrStdout(), *spec)
		if err != nil {
			return err
		}
	}

	store := app.AuthStore()
	for _, k := range spec.Keys {
		v := values[k.Key]
		if v == "" {
			return fmt.Errorf("%s cannot be empty", strings.ToLower(k.Prompt))
		}
		if err := store.SetToken(spec.KeychainKey(k), v); err != nil {
			return fmt.Errorf("failed to store %s: %w", strings.ToLower(k.Prompt), err)
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved credentials for provider %s\n", spec.Provider)
	return nil
}

// readCredentials reads one line per credential from r, printing a prompt
// for each on w.
func readCredentials(r io.Reader, w io.Writer, spec platformproviders.CredentialSpec) (map[string]string, error) {
	scanner := bufio.NewScanner(r)
	values := make(map[string]string, len(spec.Keys))
	for _, k := range spec.Keys {
		fmt.Fprintf(w, "Enter %s: ", k.Prompt)
		if !scanner.Scan() {
			fmt.Fprintln(w)
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%s cannot be empty", strings.ToLower(k.Prompt))
		}
		values[k.Key] = strings.TrimSpace(scanner.Text())
	}
	fmt.Fprintln(w)
	return values, nil
}

func lookupSpec(name string) (*platformproviders.CredentialSpec, error) {
	spec := platformproviders.Lookup(name)
	if spec == nil {
		known := make([]string, 0)
		for _, s := range platformproviders.All() {
			known = append(known, s.Provider)
		}
		return nil, fmt.Errorf("unknown provider %q (known: %s)", name, strings.Join(known, ", "))
	}
	return spec, nil
}
