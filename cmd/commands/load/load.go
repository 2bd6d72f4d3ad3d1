package load

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"nathanbeddoewebdev/fleetmetrics/internal/app"
	"nathanbeddoewebdev/fleetmetrics/internal/domain"
	"nathanbeddoewebdev/fleetmetrics/internal/extract"
	"nathanbeddoewebdev/fleetmetrics/internal/jobmetrics"
	"nathanbeddoewebdev/fleetmetrics/internal/pipeline"
	"nathanbeddoewebdev/fleetmetrics/internal/runlog"
	"nathanbeddoewebdev/fleetmetrics/internal/tui/components"
	"nathanbeddoewebdev/fleetmetrics/internal/tui/styles"
	"nathanbeddoewebdev/fleetmetrics/internal/warehouse"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// previewWindow is the summary window used by --preview.
const previewWindow = 30

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Aggregate recent partition files into the warehouse",
		Long: `Select the partition files of the last N days, aggregate their rows per
resource, metric and UTC day, and upsert the result into the warehouse.

Re-loading the same files is safe: rows are keyed by (resource, metric,
day) and overwritten. Unreadable files are skipped and counted; a failed
batch is rolled back without affecting the others.

Examples:
  fleetmetrics load
  fleetmetrics load --lookback-days 7 --batch-size 500
  fleetmetrics load --preview 10`,
		Args:         cobra.NoArgs,
		RunE:         runLoad,
		SilenceUsage: true,
	}

	cmd.Flags().Int("lookback-days", 0, "Days of partitions to select (default from config: load.lookback-days)")
	cmd.Flags().Int("batch-size", 0, "Rows per warehouse transaction (default from config: load.batch-size)")
	cmd.Flags().Int("preview", 0, "Print the top N resources by 30-day average CPU after loading")
	cmd.Flags().Bool("apply-schema", true, "Apply pending schema migrations before loading")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

type result struct {
	Report  pipeline.LoadReport    `json:"report"`
	Preview []domain.WindowSummary `json:"preview,omitempty"`
}

func runLoad(cmd *cobra.Command, args []string) error {
	a, err := app.FromCommand(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	flags := cmd.Flags()
	lookbackDays := a.Config.Load.LookbackDays
	if flags.Changed("lookback-days") {
		lookbackDays, _ = flags.GetInt("lookback-days")
	}
	batchSize := a.Config.Load.BatchSize
	if flags.Changed("batch-size") {
		batchSize, _ = flags.GetInt("batch-size")
	}
	preview, _ := flags.GetInt("preview")
	applySchema, _ := flags.GetBool("apply-schema")
	output, _ := flags.GetString("output")

	if lookbackDays <= 0 {
		return fmt.Errorf("lookback-days must be greater than 0")
	}
	if batchSize <= 0 {
		return fmt.Errorf("batch-size must be greater than 0")
	}
	if preview < 0 {
		return fmt.Errorf("preview must not be negative")
	}
	if output != "table" && output != "json" {
		return fmt.Errorf("unsupported output format %q", output)
	}

	ctx := cmd.Context()

	bucket, err := a.Bucket()
	if err != nil {
		return err
	}
	store, err := a.ObjectStore()
	if err != nil {
		return err
	}
	wh, err := a.Warehouse()
	if err != nil {
		return err
	}
	defer wh.Close()

	locker, err := a.Locker(ctx)
	if err != nil {
		return err
	}
	defer locker.Close()
	held, err := locker.Acquire(ctx, "load/"+bucket)
	if err != nil {
		return err
	}
	defer func() {
		if err := held.Release(context.WithoutCancel(ctx)); err != nil {
			a.Log.Warn("lease release failed", zap.Error(err))
		}
	}()

	if applySchema {
		if err := wh.ApplySchema(ctx); err != nil {
			return err
		}
	}

	repo, err := a.Runs()
	if err != nil {
		return err
	}
	defer repo.Close()

	upserter := warehouse.NewLoader(wh)
	upserter.BatchSize = batchSize

	metrics := jobmetrics.New()
	loader := &pipeline.Loader{
		Store:        store,
		Bucket:       bucket,
		Prefix:       a.Config.Storage.Prefix,
		LookbackDays: lookbackDays,
		Warehouse:    wh,
		Upserter:     upserter,
		Metrics:      metrics,
		Logger:       a.Log,
	}

	rc := pipeline.NewRunContext(time.Now(), extract.Window{}, 0)
	report, runErr := loader.Run(ctx, rc)
	finished := time.Now()

	record := runlog.Run{
		ID:         rc.ID,
		Kind:       runlog.KindLoad,
		StartedAt:  rc.StartedAt,
		Outcome:    report.Outcome,
		Args:       strings.Join(runlog.SanitizeArgs(os.Args[1:]), " "),
		Rows:       report.Load.Rows,
		Failures:   report.Load.FailedBatches,
		Files:      report.Selected,
		Skipped:    report.Skipped,
		DurationMs: finished.Sub(rc.StartedAt).Milliseconds(),
	}
	if runErr != nil {
		record.Outcome = runlog.OutcomeError
		record.Detail = runErr.Error()
	} else if len(report.SkippedKeys) > 0 {
		record.Detail = "skipped: " + strings.Join(report.SkippedKeys, ", ")
	}
	if err := repo.Save(&record); err != nil {
		a.Log.Warn("failed to record run", zap.Error(err))
	}
	metrics.ObserveRun(runlog.KindLoad, record.Outcome, record.Succeeded(), rc.StartedAt, finished)
	a.PushMetrics(ctx, metrics, "fleetmetrics_load", map[string]string{"bucket": bucket})

	if runErr != nil {
		return runErr
	}

	res := result{Report: report}
	if preview > 0 {
		res.Preview, err = wh.TopByCPU(ctx, previewWindow, preview)
		if err != nil {
			return err
		}
	}

	if output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return printResult(cmd, res, preview > 0)
}

func printResult(cmd *cobra.Command, res result, preview bool) error {
	out := cmd.OutOrStdout()
	r := res.Report

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  Run:\t%s\n", r.RunID)
	fmt.Fprintf(w, "  Files:\t%d selected, %d skipped\n", r.Selected, r.Skipped)
	fmt.Fprintf(w, "  Rows read:\t%d (%d dropped, %d duplicates)\n", r.Rows, r.Dropped, r.Duplicates)
	fmt.Fprintf(w, "  Daily rows:\t%d\n", r.Aggregates)
	fmt.Fprintf(w, "  Upserted:\t%d in %d batch(es), %d failed\n", r.Load.Rows, r.Load.Batches, r.Load.FailedBatches)
	fmt.Fprintf(w, "  Outcome:\t%s\n", styles.OutcomeStyle(r.Outcome).Render(r.Outcome))
	if err := w.Flush(); err != nil {
		return err
	}
	for _, key := range r.SkippedKeys {
		fmt.Fprintln(out, styles.WarningText.Render("  skipped "+key))
	}
	for _, e := range r.Load.Errors {
		fmt.Fprintln(out, styles.ErrorText.Render("  "+e.Error()))
	}

	if len(r.Counts) > 0 {
		fmt.Fprintln(out)
		w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TABLE\tROWS")
		fmt.Fprintln(w, "-----\t----")
		for _, c := range r.Counts {
			fmt.Fprintf(w, "%s\t%d\n", c.Name, c.Rows)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if preview {
		fmt.Fprintln(out)
		fmt.Fprintln(out, styles.Title.Render(fmt.Sprintf("Top resources by %d-day average CPU", previewWindow)))
		if len(res.Preview) == 0 {
			fmt.Fprintln(out, "No CPU data in the window.")
			return nil
		}
		return components.WriteSummaryTable(out, res.Preview)
	}
	return nil
}
