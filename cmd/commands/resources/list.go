package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"nathanbeddoewebdev/fleetmetrics/internal/app"
	"nathanbeddoewebdev/fleetmetrics/internal/discoverycache"
	"nathanbeddoewebdev/fleetmetrics/internal/domain"
	"nathanbeddoewebdev/fleetmetrics/internal/tui"
	"nathanbeddoewebdev/fleetmetrics/internal/tui/styles"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List resources discovered from a provider",
		Long: `Query the provider directory for resources in the given lifecycle
states. This is the same discovery step collect runs first.

Listings are cached for resources.cache-ttl. Use --refresh to bypass the
cache. When the provider cannot be reached a cached listing up to a day
old is shown with a warning.

Examples:
  fleetmetrics resources list
  fleetmetrics resources list --provider hetzner --states running
  fleetmetrics resources list -o json`,
		Args:         cobra.NoArgs,
		RunE:         runList,
		SilenceUsage: true,
	}

	cmd.Flags().String("provider", "", "Provider to query (default from config)")
	cmd.Flags().StringSlice("states", nil, "Lifecycle states to include (default from config)")
	cmd.Flags().Bool("refresh", false, "Ignore the cached listing")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	if output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	a, err := app.FromCommand(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	names := a.Config.Collect.States
	if cmd.Flags().Changed("states") {
		names, _ = cmd.Flags().GetStringSlice("states")
	}
	states, unknown := domain.ParseStates(names)
	if len(unknown) > 0 {
		return fmt.Errorf("unknown lifecycle state(s): %s", strings.Join(unknown, ", "))
	}
	if len(states) == 0 {
		states = domain.DefaultStates
	}

	providerName, _ := cmd.Flags().GetString("provider")
	providerName = a.ProviderName(providerName)
	provider, err := a.Provider(providerName)
	if err != nil {
		return err
	}

	cache := a.DiscoveryCache()
	key := discoverycache.Key(providerName, states)
	if refresh, _ := cmd.Flags().GetBool("refresh"); refresh {
		if err := cache.Invalidate(key); err != nil {
			a.Log.Warn("discovery cache invalidate failed", zap.Error(err))
		}
	}

	var listing discoverycache.Listing
	discover := func(ctx context.Context) error {
		var err error
		listing, err = cache.Resources(ctx, key, func(ctx context.Context) ([]domain.Resource, error) {
			return provider.ListResources(ctx, states)
		})
		return err
	}
	if output == "table" && term.IsTerminal(int(os.Stdout.Fd())) {
		err = tui.WithSpinner("Discovering resources...", discover)
	} else {
		err = discover(cmd.Context())
	}
	if err != nil {
		return err
	}
	found := listing.Resources
	if listing.Stale {
		fmt.Fprintln(cmd.ErrOrStderr(), styles.WarningText.Render(
			fmt.Sprintf("Provider unreachable, showing the listing from %s.", listing.FetchedAt.Local().Format("2006-01-02 15:04"))))
	}

	if output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(found)
	}

	if len(found) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No resources found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTYPE\tZONE\tSTATE\tLAUNCHED")
	fmt.Fprintln(w, "--\t----\t----\t----\t-----\t--------")
	for _, r := range found {
		launched := "-"
		if !r.LaunchTime.IsZero() {
			launched = r.LaunchTime.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			r.Name,
			r.Type,
			r.AvailabilityZone,
			styles.OutcomeStyle(string(r.State)).Render(string(r.State)),
			launched,
		)
	}
	return w.Flush()
}
