package summary

import (
	"encoding/json"
	"fmt"
	"strings"

	"nathanbeddoewebdev/fleetmetrics/internal/app"
	"nathanbeddoewebdev/fleetmetrics/internal/tui/components"
	"nathanbeddoewebdev/fleetmetrics/internal/tui/styles"
	"nathanbeddoewebdev/fleetmetrics/internal/warehouse"

	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show the pivoted utilization summary for a rolling window",
		Long: `Print one row per resource from the summary view: CPU and memory
averages, peaks and percentiles, network, disk and EBS totals, and status
check failures over the last 10, 30, 60 or 90 days.

Examples:
  fleetmetrics summary
  fleetmetrics summary --window 90
  fleetmetrics summary --resource i-0abc --resource i-0def -o json`,
		Args:         cobra.NoArgs,
		RunE:         runSummary,
		SilenceUsage: true,
	}

	cmd.Flags().Int("window", 30, "Window in days: 10, 30, 60 or 90")
	cmd.Flags().StringArray("resource", nil, "Limit to a resource id (repeatable)")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runSummary(cmd *cobra.Command, args []string) error {
	window, _ := cmd.Flags().GetInt("window")
	ids, _ := cmd.Flags().GetStringArray("resource")
	output, _ := cmd.Flags().GetString("output")

	if err := warehouse.ValidateWindow(window); err != nil {
		return err
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

	rows, err := wh.Summaries(cmd.Context(), window, ids)
	if err != nil {
		return err
	}

	if output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		msg := fmt.Sprintf("No resources with data in the last %d days.", window)
		if len(ids) > 0 {
			msg = fmt.Sprintf("No data in the last %d days for %s.", window, strings.Join(ids, ", "))
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	}

	fmt.Fprintln(cmd.OutOrStdout(), styles.Title.Render(fmt.Sprintf("Utilization over the last %d days", window)))
	return components.WriteSummaryTable(cmd.OutOrStdout(), rows)
}
