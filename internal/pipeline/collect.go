package pipeline

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"nathanbeddoewebdev/fleetmetrics/internal/catalog"
	"nathanbeddoewebdev/fleetmetrics/internal/domain"
	"nathanbeddoewebdev/fleetmetrics/internal/extract"
	"nathanbeddoewebdev/fleetmetrics/internal/jobmetrics"
	"nathanbeddoewebdev/fleetmetrics/internal/normalize"
	"nathanbeddoewebdev/fleetmetrics/internal/partition"
	"nathanbeddoewebdev/fleetmetrics/internal/runlog"
)

// Collector runs discovery, extraction, normalization and upload.
type Collector struct {
	Provider  string
	Directory domain.Directory
	Extractor *extract.Extractor
	Catalog   catalog.Catalog
	Uploader  *partition.Uploader
	States    []domain.LifecycleState
	// DryRun encodes the file but skips the upload.
	DryRun  bool
	Metrics *jobmetrics.Metrics
	Logger  *zap.Logger
}

// CollectReport summarizes one collect run.
type CollectReport struct {
	RunID       string         `json:"run_id"`
	Window      extract.Window `json:"window"`
	Resources   int            `json:"resources"`
	Tasks       int            `json:"tasks"`
	FailedTasks int            `json:"failed_tasks"`
	Rows        int            `json:"rows"`
	Bytes       int            `json:"bytes"`
	URI         string         `json:"uri,omitempty"`
	Outcome     string         `json:"outcome"`
}

// Run executes one collection. Discovery and upload failures abort the run
// and are returned; per-metric failures only mark it partial.
func (c *Collector) Run(ctx context.Context, rc RunContext) (CollectReport, error) {
	log := c.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("run_id", rc.ID), zap.String("provider", c.Provider))
	report := CollectReport{RunID: rc.ID, Window: rc.Window, Outcome: runlog.OutcomeError}

	resources, err := c.Directory.ListResources(ctx, c.States)
	if err != nil {
		var de *domain.DiscoveryError
		if !errors.As(err, &de) {
			err = &domain.DiscoveryError{Provider: c.Provider, Err: err}
		}
		log.Error("discovery failed", zap.Error(err))
		return report, err
	}
	report.Resources = len(resources)
	if c.Metrics != nil {
		c.Metrics.ResourcesDiscovered.Set(float64(len(resources)))
	}
	log.Info("discovered resources", zap.Int("count", len(resources)))

	if len(resources) == 0 {
		report.Outcome = runlog.OutcomeNoop
		return report, nil
	}

	result := c.Extractor.Extract(ctx, resources, c.Catalog, rc.Window, rc.Period)
	failures := result.Failures()
	report.Tasks = len(result.Tasks)
	report.FailedTasks = len(failures)
	if c.Metrics != nil {
		for _, f := range failures {
			c.Metrics.FetchFailures.WithLabelValues(f.Namespace).Inc()
		}
	}
	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("collect: %w", err)
	}

	rows := normalize.Normalize(rc.StartedAt, result.Datapoints())
	report.Rows = len(rows)
	if c.Metrics != nil {
		c.Metrics.Rows.WithLabelValues("normalized").Add(float64(len(rows)))
	}
	if len(rows) == 0 {
		log.Warn("no datapoints in window, nothing to write",
			zap.Time("start", rc.Window.Start), zap.Time("end", rc.Window.End))
		report.Outcome = outcome(report.FailedTasks, runlog.OutcomeNoop)
		return report, nil
	}

	data, err := partition.Encode(rows)
	if err != nil {
		return report, fmt.Errorf("collect: %w", err)
	}
	report.Bytes = len(data)

	if c.DryRun {
		log.Info("dry run, skipping upload", zap.Int("rows", len(rows)), zap.Int("bytes", len(data)))
		report.Outcome = outcome(report.FailedTasks, runlog.OutcomeSuccess)
		return report, nil
	}

	uri, err := c.Uploader.Upload(ctx, data, partition.Run{ID: rc.ID, StartedAt: rc.StartedAt, Rows: len(rows)})
	if err != nil {
		log.Error("upload failed", zap.Error(err))
		return report, err
	}
	report.URI = uri
	report.Outcome = outcome(report.FailedTasks, runlog.OutcomeSuccess)
	return report, nil
}

func outcome(failures int, ok string) string {
	if failures > 0 {
		return runlog.OutcomePartial
	}
	return ok
}
