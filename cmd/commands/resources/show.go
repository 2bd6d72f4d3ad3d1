package resources

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"nathanbeddoewebdev/fleetmetrics/internal/app"
	"nathanbeddoewebdev/fleetmetrics/internal/domain"
	"nathanbeddoewebdev/fleetmetrics/internal/tui"
	"nathanbeddoewebdev/fleetmetrics/internal/tui/components"
	"nathanbeddoewebdev/fleetmetrics/internal/tui/styles"
	"nathanbeddoewebdev/fleetmetrics/internal/warehouse"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const chartWidth = 60

func ShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [ID]",
		Short: "Show the stored daily history of a resource",
		Long: `Print the latest metadata of a resource and a chart of one daily
metric from the warehouse. Without an ID a picker lists every resource
with stored data (terminal only).

The metric defaults to CPUUtilization for aws resources and cpu for
hetzner resources.

Examples:
  fleetmetrics resources show i-0abc
  fleetmetrics resources show i-0abc --metric mem_used_percent --days 90
  fleetmetrics resources show 4711 -o json`,
		Args:         cobra.MaximumNArgs(1),
		RunE:         runShow,
		SilenceUsage: true,
	}

	cmd.Flags().String("metric", "", "Metric to chart (default depends on the provider)")
	cmd.Flags().Int("days", 30, "Days of history to show")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

type showResult struct {
	Resource domain.ResourceInfo    `json:"resource"`
	Metric   string                 `json:"metric"`
	Days     int                    `json:"days"`
	Series   []warehouse.DailyPoint `json:"series"`
}

func runShow(cmd *cobra.Command, args []string) error {
	metric, _ := cmd.Flags().GetString("metric")
	days, _ := cmd.Flags().GetInt("days")
	output, _ := cmd.Flags().GetString("output")

	if days <= 0 {
		return fmt.Errorf("--days must be positive")
	}
	if output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	a, err := app.FromCommand(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	wh, err := a.Warehouse()
	if err != nil {
		return err
	}
	defer wh.Close()

	ctx := cmd.Context()
	var id string
	switch {
	case len(args) == 1:
		id = args[0]
	case term.IsTerminal(int(os.Stdin.Fd())):
		known, err := wh.KnownResources(ctx)
		if err != nil {
			return err
		}
		if id, err = tui.PickResource(known); err != nil {
			return err
		}
	default:
		return fmt.Errorf("a resource ID is required when not running in a terminal")
	}

	info, err := wh.Resource(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no stored data for resource %q", id)
		}
		return err
	}
	if metric == "" {
		metric = defaultMetric(info.Provider)
	}

	series, err := wh.DailySeries(ctx, info.ID, metric, days, time.Now())
	if err != nil {
		return err
	}

	if output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(showResult{Resource: info, Metric: metric, Days: days, Series: series})
	}

	printInfo(cmd, info)
	fmt.Fprintln(cmd.OutOrStdout())
	if len(series) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No %s data in the last %d days.\n", metric, days)
		return nil
	}

	var avg, peak []float64
	for _, p := range series {
		if v := p.Stats.Average; v != nil {
			avg = append(avg, *v)
		}
		if v := p.Stats.Maximum; v != nil {
			peak = append(peak, *v)
		}
	}
	label := fmt.Sprintf("%s, %d of the last %d days", metric, len(series), days)
	fmt.Fprintln(cmd.OutOrStdout(), components.TrendDualChart(label, avg, peak, "average", "maximum", chartWidth, unitSuffix(metric)))
	return nil
}

func printInfo(cmd *cobra.Command, r domain.ResourceInfo) {
	fmt.Fprintln(cmd.OutOrStdout(), styles.Title.Render(r.ID))
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Name:\t%s\n", r.Name)
	fmt.Fprintf(w, "  Provider:\t%s\n", r.Provider)
	fmt.Fprintf(w, "  Type:\t%s\n", r.Type)
	fmt.Fprintf(w, "  Zone:\t%s\n", r.AvailabilityZone)
	fmt.Fprintf(w, "  Platform:\t%s\n", r.Platform)
	fmt.Fprintf(w, "  Last day:\t%s\n", r.LastDay.Format("2006-01-02"))
	w.Flush()
}

func defaultMetric(provider string) string {
	if provider == "hetzner" {
		return "cpu"
	}
	return "CPUUtilization"
}

func unitSuffix(metric string) string {
	switch metric {
	case "CPUUtilization", "cpu", "mem_used_percent", "disk_used_percent", "EBSIOBalance%":
		return "%"
	}
	return ""
}
