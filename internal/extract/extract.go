// Package extract fetches every cataloged metric for every resource with a
// bounded pool of independent tasks.
package extract

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nathanbeddoewebdev/fleetmetrics/internal/catalog"
	"nathanbeddoewebdev/fleetmetrics/internal/domain"
	"nathanbeddoewebdev/fleetmetrics/internal/retry"
)

const (
	// DefaultMaxWorkers caps concurrent fetches to respect upstream rate limits.
	DefaultMaxWorkers = 10
	// DefaultTaskTimeout bounds a single (resource, metric) fetch.
	DefaultTaskTimeout = 2 * time.Minute
)

// Window is the half-open extraction range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// Options configure an Extractor.
type Options struct {
	MaxWorkers  int
	TaskTimeout time.Duration
	// Retry applies to throttled requests only. The zero value makes one
	// attempt.
	Retry  retry.Config
	Logger *zap.Logger
}

// Extractor runs one fetch task per (resource, metric) pair.
type Extractor struct {
	source      domain.TelemetrySource
	maxWorkers  int
	taskTimeout time.Duration
	retry       retry.Config
	log         *zap.Logger
}

// New returns an Extractor reading from source.
func New(source domain.TelemetrySource, opts Options) *Extractor {
	e := &Extractor{
		source:      source,
		maxWorkers:  opts.MaxWorkers,
		taskTimeout: opts.TaskTimeout,
		retry:       opts.Retry,
		log:         opts.Logger,
	}
	if e.maxWorkers <= 0 {
		e.maxWorkers = DefaultMaxWorkers
	}
	if e.taskTimeout <= 0 {
		e.taskTimeout = DefaultTaskTimeout
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e
}

// TaskResult is the outcome of one (resource, metric) task. Err is a
// *domain.MetricFetchError; Datapoints may be non-empty even when Err is set
// if one of the two request shapes succeeded.
type TaskResult struct {
	Resource   domain.Resource
	Namespace  string
	Metric     domain.MetricSpec
	Datapoints []domain.Datapoint
	Err        error
}

// Result collects every task outcome of a run.
type Result struct {
	Tasks []TaskResult
}

// Datapoints returns all datapoints fetched, in no particular order.
func (r Result) Datapoints() []domain.Datapoint {
	n := 0
	for _, t := range r.Tasks {
		n += len(t.Datapoints)
	}
	out := make([]domain.Datapoint, 0, n)
	for _, t := range r.Tasks {
		out = append(out, t.Datapoints...)
	}
	return out
}

// Failures returns the tasks that reported an error.
func (r Result) Failures() []TaskResult {
	var out []TaskResult
	for _, t := range r.Tasks {
		if t.Err != nil {
			out = append(out, t)
		}
	}
	return out
}

type task struct {
	resource  domain.Resource
	namespace catalog.Namespace
	metric    domain.MetricSpec
}

// Extract fetches every metric in cat for every resource over window. Task
// failures are recorded in the Result and never stop other tasks; Extract
// itself only returns once every task has finished or given up.
func (e *Extractor) Extract(ctx context.Context, resources []domain.Resource, cat catalog.Catalog, window Window, period time.Duration) Result {
	var tasks []task
	for _, r := range resources {
		for _, ns := range cat.Namespaces {
			for _, m := range ns.Metrics {
				tasks = append(tasks, task{resource: r, namespace: ns, metric: m})
			}
		}
	}
	if len(tasks) == 0 {
		return Result{}
	}

	results := make([]TaskResult, len(tasks))

	var g errgroup.Group
	g.SetLimit(min(len(resources), e.maxWorkers))
	for i, t := range tasks {
		g.Go(func() error {
			results[i] = e.run(ctx, t, window, period)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Tasks: results}
	e.log.Info("extraction finished",
		zap.Int("resources", len(resources)),
		zap.Int("tasks", len(tasks)),
		zap.Int("failed_tasks", len(res.Failures())),
		zap.Int("datapoints", len(res.Datapoints())),
	)
	return res
}

func (e *Extractor) run(ctx context.Context, t task, window Window, period time.Duration) TaskResult {
	res := TaskResult{Resource: t.resource, Namespace: t.namespace.Name, Metric: t.metric}

	ctx, cancel := context.WithTimeout(ctx, e.taskTimeout)
	defer cancel()

	base := domain.MetricQuery{
		Namespace:  t.namespace.Name,
		Metric:     t.metric.Name,
		Dimensions: []domain.Dimension{{Name: t.namespace.DimensionKey, Value: t.resource.ID}},
		Start:      window.Start,
		End:        window.End,
		Period:     period,
	}

	merged := make(map[int64]*domain.Observation)
	var errs []error
	plain, pct := domain.SplitStatistics(t.metric.Statistics)
	for _, stats := range [][]domain.Statistic{plain, pct} {
		if len(stats) == 0 {
			continue
		}
		q := base
		q.Statistics = stats
		obs, err := e.fetch(ctx, q)
		if err != nil {
			errs = append(errs, err)
		}
		for _, o := range obs {
			key := o.Timestamp.UnixNano()
			if cur, ok := merged[key]; ok {
				cur.Values.Merge(o.Values)
				if cur.Unit == "" {
					cur.Unit = o.Unit
				}
				continue
			}
			merged[key] = &o
		}
	}

	res.Datapoints = toDatapoints(t, merged, period)
	if len(errs) > 0 {
		res.Err = &domain.MetricFetchError{
			ResourceID: t.resource.ID,
			Namespace:  t.namespace.Name,
			Metric:     t.metric.Name,
			Err:        errors.Join(errs...),
		}
		e.logFailure(res)
	}
	return res
}

func (e *Extractor) fetch(ctx context.Context, q domain.MetricQuery) ([]domain.Observation, error) {
	cfg := e.retry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		e.log.Debug("throttled, retrying",
			zap.String("namespace", q.Namespace),
			zap.String("metric", q.Metric),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
	}
	return retry.DoValue(ctx, cfg, retry.IsThrottled, func() ([]domain.Observation, error) {
		return e.source.GetMetricStatistics(ctx, q)
	})
}

func toDatapoints(t task, merged map[int64]*domain.Observation, period time.Duration) []domain.Datapoint {
	out := make([]domain.Datapoint, 0, len(merged))
	for _, o := range merged {
		if o.Values.Empty() {
			continue
		}
		unit := o.Unit
		if unit == "" {
			unit = t.metric.Unit
		}
		out = append(out, domain.Datapoint{
			Resource:      t.resource,
			Namespace:     t.namespace.Name,
			Metric:        t.metric.Name,
			Category:      t.metric.Category,
			Timestamp:     o.Timestamp,
			Unit:          unit,
			PeriodSeconds: int32(period / time.Second),
			Values:        o.Values,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out
}

func (e *Extractor) logFailure(res TaskResult) {
	fields := []zap.Field{
		zap.String("resource_id", res.Resource.ID),
		zap.String("namespace", res.Namespace),
		zap.String("metric", res.Metric.Name),
		zap.Int("kept_datapoints", len(res.Datapoints)),
		zap.Error(res.Err),
	}
	switch {
	case errors.Is(res.Err, domain.ErrUnauthorized):
		e.log.Warn("metric not permitted, skipping", fields...)
	case errors.Is(res.Err, domain.ErrRateLimited):
		e.log.Warn("metric fetch throttled, skipping", fields...)
	default:
		e.log.Error("metric fetch failed, skipping", fields...)
	}
}
