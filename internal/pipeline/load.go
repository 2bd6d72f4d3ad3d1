package pipeline

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"nathanbeddoewebdev/fleetmetrics/internal/aggregate"
	"nathanbeddoewebdev/fleetmetrics/internal/domain"
	"nathanbeddoewebdev/fleetmetrics/internal/jobmetrics"
	"nathanbeddoewebdev/fleetmetrics/internal/objectstore"
	"nathanbeddoewebdev/fleetmetrics/internal/partition"
	"nathanbeddoewebdev/fleetmetrics/internal/runlog"
	"nathanbeddoewebdev/fleetmetrics/internal/selector"
	"nathanbeddoewebdev/fleetmetrics/internal/warehouse"
)

// Loader selects recent partition files, aggregates them per day and
// upserts the result into the warehouse.
type Loader struct {
	Store        objectstore.Store
	Bucket       string
	Prefix       string
	LookbackDays int
	Warehouse    *warehouse.Warehouse
	Upserter     *warehouse.Loader
	Metrics      *jobmetrics.Metrics
	Logger       *zap.Logger
}

// LoadReport summarizes one load run.
type LoadReport struct {
	RunID       string                `json:"run_id"`
	Selected    int                   `json:"selected"`
	Unparsed    int                   `json:"unparsed"`
	Skipped     int                   `json:"skipped"`
	SkippedKeys []string              `json:"skipped_keys,omitempty"`
	Rows        int                   `json:"rows"`
	Dropped     int                   `json:"dropped"`
	Duplicates  int                   `json:"duplicates"`
	Aggregates  int                   `json:"aggregates"`
	Load        warehouse.LoadReport  `json:"load"`
	Counts      []warehouse.ViewCount `json:"counts,omitempty"`
	Outcome     string                `json:"outcome"`
}

// Run executes one load. A listing failure aborts the run; unreadable files
// are skipped and counted; failed batches mark the run partial.
func (l *Loader) Run(ctx context.Context, rc RunContext) (LoadReport, error) {
	log := l.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("run_id", rc.ID))
	report := LoadReport{RunID: rc.ID, Outcome: runlog.OutcomeError}

	files, err := selector.SelectFiles(ctx, l.Store, l.Bucket, l.Prefix, l.LookbackDays, rc.StartedAt, log)
	if err != nil {
		log.Error("listing failed", zap.Error(err))
		return report, err
	}
	report.Selected = len(files)

	var rows []domain.NormalizedRow
	for _, f := range files {
		if f.Unparsed {
			report.Unparsed++
		}
		fileRows, err := l.readFile(ctx, f.Key)
		if err != nil {
			if ctx.Err() != nil {
				return report, fmt.Errorf("load: %w", ctx.Err())
			}
			log.Warn("skipping unreadable file", zap.String("key", f.Key), zap.Error(err))
			report.Skipped++
			report.SkippedKeys = append(report.SkippedKeys, f.Key)
			continue
		}
		rows = append(rows, fileRows...)
	}
	report.Rows = len(rows)
	if l.Metrics != nil {
		l.Metrics.FilesSkipped.Add(float64(report.Skipped))
		l.Metrics.Rows.WithLabelValues("read").Add(float64(len(rows)))
	}
	if len(rows) == 0 {
		log.Info("no rows to load", zap.Int("files", len(files)), zap.Int("skipped", report.Skipped))
		report.Outcome = outcome(report.Skipped, runlog.OutcomeNoop)
		return report, nil
	}

	agg := aggregate.Aggregate(rows, log)
	report.Dropped = len(agg.Dropped)
	report.Duplicates = agg.Duplicates
	report.Aggregates = len(agg.Aggregates)
	if l.Metrics != nil {
		l.Metrics.RowsDropped.Add(float64(report.Dropped))
	}

	loadReport, err := l.Upserter.Load(ctx, agg.Aggregates)
	report.Load = loadReport
	if l.Metrics != nil {
		l.Metrics.Rows.WithLabelValues("loaded").Add(float64(loadReport.Rows))
		l.Metrics.BatchFailures.Add(float64(loadReport.FailedBatches))
	}
	if err != nil {
		return report, fmt.Errorf("load: %w", err)
	}
	if loadReport.Rows == 0 && loadReport.FailedBatches > 0 {
		return report, fmt.Errorf("load: every batch rolled back: %w", loadReport.Errors[0])
	}

	counts, err := l.Warehouse.ViewCounts(ctx)
	if err != nil {
		log.Warn("verify counts failed", zap.Error(err))
	}
	report.Counts = counts

	report.Outcome = outcome(report.Skipped+loadReport.FailedBatches, runlog.OutcomeSuccess)
	log.Info("load finished",
		zap.Int("files", len(files)),
		zap.Int("rows", report.Rows),
		zap.Int("aggregates", report.Aggregates),
		zap.Int("loaded", loadReport.Rows),
		zap.Int("failed_batches", loadReport.FailedBatches),
	)
	return report, nil
}

func (l *Loader) readFile(ctx context.Context, key string) ([]domain.NormalizedRow, error) {
	rc, err := l.Store.Open(ctx, l.Bucket, key)
	if err != nil {
		return nil, &domain.StorageReadError{Bucket: l.Bucket, Key: key, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &domain.StorageReadError{Bucket: l.Bucket, Key: key, Err: err}
	}
	rows, err := partition.Decode(data)
	if err != nil {
		return nil, &domain.StorageReadError{Bucket: l.Bucket, Key: key, Err: err}
	}
	return rows, nil
}
