package collect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"nathanbeddoewebdev/fleetmetrics/internal/app"
	"nathanbeddoewebdev/fleetmetrics/internal/catalog"
	"nathanbeddoewebdev/fleetmetrics/internal/domain"
	"nathanbeddoewebdev/fleetmetrics/internal/extract"
	"nathanbeddoewebdev/fleetmetrics/internal/jobmetrics"
	"nathanbeddoewebdev/fleetmetrics/internal/objectstore"
	"nathanbeddoewebdev/fleetmetrics/internal/partition"
	"nathanbeddoewebdev/fleetmetrics/internal/pipeline"
	"nathanbeddoewebdev/fleetmetrics/internal/retry"
	"nathanbeddoewebdev/fleetmetrics/internal/runlog"
	"nathanbeddoewebdev/fleetmetrics/internal/tui/styles"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Extract utilization metrics into a partitioned Parquet file",
		Long: `Discover every resource of a provider, fetch its utilization statistics
for the extraction window in parallel, and write one Parquet file to
object storage under <prefix>/year=YYYY/month=MM/day=DD/.

Failed (resource, metric) fetches are logged and skipped; the run is
then recorded as partial. Discovery and upload failures abort the run.

Examples:
  fleetmetrics collect
  fleetmetrics collect --provider hetzner --lookback 2h
  fleetmetrics collect --since-last-run --overlap 15m
  fleetmetrics collect --dry-run -o json`,
		Args:         cobra.NoArgs,
		RunE:         runCollect,
		SilenceUsage: true,
	}

	cmd.Flags().String("provider", "", "Provider to collect (default from config: provider)")
	cmd.Flags().Duration("lookback", 0, "Extraction window ending now (default from config: collect.lookback)")
	cmd.Flags().Duration("period", 0, "Statistic aggregation period (default from config: collect.period)")
	cmd.Flags().Int("max-workers", 0, "Concurrent fetches (default from config: collect.max-workers)")
	cmd.Flags().StringSlice("states", nil, "Lifecycle states to discover (default from config: collect.states)")
	cmd.Flags().Bool("since-last-run", false, "Start the window at the previous successful run's end minus --overlap")
	cmd.Flags().Duration("overlap", 0, "Overlap with the previous window (default from config: collect.overlap)")
	cmd.Flags().Bool("dry-run", false, "Extract and encode, but do not upload")
	cmd.Flags().String("local-copy", "", "Directory that also receives the written file")
	cmd.Flags().StringP("output", "o", "table", "Output format: table or json")

	return cmd
}

type options struct {
	provider     string
	lookback     time.Duration
	period       time.Duration
	overlap      time.Duration
	maxWorkers   int
	states       []domain.LifecycleState
	sinceLastRun bool
	dryRun       bool
	localCopy    string
	output       string
}

// resolveOptions merges flags over the effective configuration.
func resolveOptions(cmd *cobra.Command, a *app.App) (options, error) {
	cfg := a.Config
	flags := cmd.Flags()
	o := options{
		lookback:   cfg.Collect.Lookback,
		period:     cfg.Collect.Period,
		overlap:    cfg.Collect.Overlap,
		maxWorkers: cfg.Collect.MaxWorkers,
		localCopy:  cfg.Storage.LocalCopy,
	}

	name, _ := flags.GetString("provider")
	o.provider = a.ProviderName(name)
	if flags.Changed("lookback") {
		o.lookback, _ = flags.GetDuration("lookback")
	}
	if flags.Changed("period") {
		o.period, _ = flags.GetDuration("period")
	}
	if flags.Changed("overlap") {
		o.overlap, _ = flags.GetDuration("overlap")
	}
	if flags.Changed("max-workers") {
		o.maxWorkers, _ = flags.GetInt("max-workers")
	}
	if flags.Changed("local-copy") {
		o.localCopy, _ = flags.GetString("local-copy")
	}
	o.sinceLastRun, _ = flags.GetBool("since-last-run")
	o.dryRun, _ = flags.GetBool("dry-run")
	o.output, _ = flags.GetString("output")

	if o.lookback <= 0 {
		return o, fmt.Errorf("lookback must be positive")
	}
	if o.period <= 0 || o.period > o.lookback {
		return o, fmt.Errorf("period must be positive and no longer than the lookback (%s)", o.lookback)
	}
	if o.overlap < 0 {
		return o, fmt.Errorf("overlap must not be negative")
	}
	if o.output != "table" && o.output != "json" {
		return o, fmt.Errorf("unsupported output format %q", o.output)
	}

	names := cfg.Collect.States
	if flags.Changed("states") {
		names, _ = flags.GetStringSlice("states")
	}
	states, unknown := domain.ParseStates(names)
	if len(unknown) > 0 {
		return o, fmt.Errorf("unknown lifecycle state(s): %s", strings.Join(unknown, ", "))
	}
	if len(states) == 0 {
		states = domain.DefaultStates
	}
	o.states = states
	return o, nil
}

func runCollect(cmd *cobra.Command, args []string) error {
	a, err := app.FromCommand(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	opts, err := resolveOptions(cmd, a)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	provider, err := a.Provider(opts.provider)
	if err != nil {
		return err
	}
	cat, err := catalog.ForProvider(opts.provider, catalog.Options{MemoryNamespace: a.Config.AWS.MemoryNamespace})
	if err != nil {
		return err
	}

	var (
		store  objectstore.Store
		bucket string
	)
	if !opts.dryRun {
		if bucket, err = a.Bucket(); err != nil {
			return err
		}
		if store, err = a.ObjectStore(); err != nil {
			return err
		}
	}

	locker, err := a.Locker(ctx)
	if err != nil {
		return err
	}
	defer locker.Close()
	held, err := locker.Acquire(ctx, "collect/"+opts.provider+"/"+bucket)
	if err != nil {
		return err
	}
	defer func() {
		if err := held.Release(context.WithoutCancel(ctx)); err != nil {
			a.Log.Warn("lease release failed", zap.Error(err))
		}
	}()

	repo, err := a.Runs()
	if err != nil {
		return err
	}
	defer repo.Close()

	var last *runlog.Run
	if opts.sinceLastRun {
		last, err = repo.LastSuccess(runlog.KindCollect, opts.provider)
		if errors.Is(err, domain.ErrNotFound) {
			a.Log.Info("no previous successful run, using full lookback", zap.Duration("lookback", opts.lookback))
			last, err = nil, nil
		}
		if err != nil {
			return err
		}
	}

	now := time.Now()
	rc := pipeline.NewRunContext(now, pipeline.PlanWindow(now, opts.lookback, opts.overlap, last), opts.period)

	metrics := jobmetrics.New()
	collector := &pipeline.Collector{
		Provider:  opts.provider,
		Directory: provider,
		Extractor: extract.New(provider, extract.Options{
			MaxWorkers: opts.maxWorkers,
			Retry:      retry.Config{MaxAttempts: 4, BaseDelay: time.Second, MaxDelay: 15 * time.Second},
			Logger:     a.Log,
		}),
		Catalog:   cat,
		Uploader: &partition.Uploader{
			Store:        store,
			Bucket:       bucket,
			Prefix:       a.Config.Storage.Prefix,
			LocalCopyDir: opts.localCopy,
			Retry:        retry.DefaultConfig(),
			Logger:       a.Log,
		},
		States:  opts.states,
		DryRun:  opts.dryRun,
		Metrics: metrics,
		Logger:  a.Log,
	}

	report, runErr := collector.Run(ctx, rc)
	finished := time.Now()

	record := runlog.Run{
		ID:          rc.ID,
		Kind:        runlog.KindCollect,
		Provider:    opts.provider,
		StartedAt:   rc.StartedAt,
		WindowStart: rc.Window.Start,
		WindowEnd:   rc.Window.End,
		Outcome:     report.Outcome,
		Args:        strings.Join(runlog.SanitizeArgs(os.Args[1:]), " "),
		ObjectURI:   report.URI,
		Resources:   report.Resources,
		Rows:        report.Rows,
		Failures:    report.FailedTasks,
		Files:       boolToInt(report.URI != ""),
		DurationMs:  finished.Sub(rc.StartedAt).Milliseconds(),
	}
	if runErr != nil {
		record.Outcome = runlog.OutcomeError
		record.Detail = runErr.Error()
	}
	// Dry runs are not recorded.
	if !opts.dryRun {
		if err := repo.Save(&record); err != nil {
			a.Log.Warn("failed to record run", zap.Error(err))
		}
	}
	metrics.ObserveRun(runlog.KindCollect, record.Outcome, record.Succeeded(), rc.StartedAt, finished)
	a.PushMetrics(ctx, metrics, "fleetmetrics_collect", map[string]string{"provider": opts.provider})

	if runErr != nil {
		return runErr
	}

	if opts.output == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	printReport(cmd, report, opts)
	return nil
}

func printReport(cmd *cobra.Command, r pipeline.CollectReport, opts options) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)

	fmt.Fprintf(w, "  Run:\t%s\n", r.RunID)
	fmt.Fprintf(w, "  Provider:\t%s\n", opts.provider)
	fmt.Fprintf(w, "  Window:\t%s .. %s\n",
		r.Window.Start.UTC().Format(time.RFC3339), r.Window.End.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "  Resources:\t%d\n", r.Resources)
	fmt.Fprintf(w, "  Fetches:\t%d (%d failed)\n", r.Tasks, r.FailedTasks)
	fmt.Fprintf(w, "  Rows:\t%d\n", r.Rows)
	switch {
	case r.URI != "":
		fmt.Fprintf(w, "  Object:\t%s (%d bytes)\n", r.URI, r.Bytes)
	case opts.dryRun && r.Bytes > 0:
		fmt.Fprintf(w, "  Object:\tnot uploaded (dry run, %d bytes)\n", r.Bytes)
	}
	fmt.Fprintf(w, "  Outcome:\t%s\n", styles.OutcomeStyle(r.Outcome).Render(r.Outcome))

	w.Flush()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
