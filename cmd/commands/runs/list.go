package runs

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"nathanbeddoewebdev/fleetmetrics/internal/runlog"
	"nathanbeddoewebdev/fleetmetrics/internal/tui/styles"

	"github.com/spf13/cobra"
)

func ListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Long: `List recent collect and load runs stored locally.

Examples:
  fleetmetrics runs list
  fleetmetrics runs list --limit 50
  fleetmetrics runs list --kind collect
  fleetmetrics runs list -o json`,
		RunE:         runList,
		SilenceUsage: true,
	}

	cmd.Flags().Int("limit", 25, "Number of runs to display")
	cmd.Flags().String("kind", "", "Filter by run kind: collect or load")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}

	kind, _ := cmd.Flags().GetString("kind")
	switch kind {
	case "", runlog.KindCollect, runlog.KindLoad:
	default:
		return fmt.Errorf("unknown run kind %q (want collect or load)", kind)
	}
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = "table"
	}

	repo, err := runlog.Open()
	if err != nil {
		return err
	}
	defer repo.Close()

	var entries []runlog.Run
	if kind != "" {
		entries, err = repo.ListByKind(kind, limit)
	} else {
		entries, err = repo.List(limit)
	}
	if err != nil {
		return err
	}

	if output == "json" {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(entries)
	}
	if output != "table" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tKIND\tPROVIDER\tOUTCOME\tDURATION\tWINDOW\tCOUNTS\tDETAIL")
	fmt.Fprintln(w, "----\t----\t--------\t-------\t--------\t------\t------\t------")
	for _, run := range entries {
		detail := run.Detail
		if detail == "" {
			detail = "-"
		}
		provider := run.Provider
		if provider == "" {
			provider = "-"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Kind,
			provider,
			styles.StatusIndicator(run.Outcome),
			formatDuration(run.DurationMs),
			formatWindow(run),
			formatCounts(run),
			detail,
		)
	}
	w.Flush()
	return nil
}

func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	d := time.Duration(ms) * time.Millisecond
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	return fmt.Sprintf("%dh", int(d.Hours()))
}

func formatWindow(run runlog.Run) string {
	if run.WindowStart.IsZero() || run.WindowEnd.IsZero() {
		return "-"
	}
	const layout = "01-02 15:04"
	return run.WindowStart.UTC().Format(layout) + ".." + run.WindowEnd.UTC().Format(layout)
}

func formatCounts(run runlog.Run) string {
	if run.Kind == runlog.KindLoad {
		return fmt.Sprintf("files=%d skipped=%d rows=%d", run.Files, run.Skipped, run.Rows)
	}
	return fmt.Sprintf("resources=%d rows=%d failures=%d", run.Resources, run.Rows, run.Failures)
}
