// Package jobmetrics holds the Prometheus metrics of collect and load runs.
// Batch runs push them to a Pushgateway; `serve` exposes them on /metrics.
package jobmetrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "fleetmetrics"

var durationBuckets = []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800}

// Metrics is a private registry with the run metrics registered on it.
type Metrics struct {
	registry *prometheus.Registry

	Runs                *prometheus.CounterVec
	RunDuration         *prometheus.HistogramVec
	LastSuccess         *prometheus.GaugeVec
	ResourcesDiscovered prometheus.Gauge
	FetchFailures       *prometheus.CounterVec
	Rows                *prometheus.CounterVec
	FilesSkipped        prometheus.Counter
	RowsDropped         prometheus.Counter
	BatchFailures       prometheus.Counter
}

// New builds the metrics on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed runs by kind and outcome",
		}, []string{"kind", "outcome"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a run",
			Buckets:   durationBuckets,
		}, []string{"kind"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last run that produced output",
		}, []string{"kind"}),
		ResourcesDiscovered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "collect",
			Name:      "resources_discovered",
			Help:      "Resources found by the last discovery",
		}),
		FetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "collect",
			Name:      "fetch_failures_total",
			Help:      "Failed (resource, metric) fetches",
		}, []string{"namespace"}),
		Rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Rows handled per pipeline stage",
		}, []string{"stage"}),
		FilesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "load",
			Name:      "files_skipped_total",
			Help:      "Selected files that could not be read or decoded",
		}),
		RowsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "load",
			Name:      "rows_dropped_total",
			Help:      "Rows dropped for an invalid timestamp",
		}),
		BatchFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "load",
			Name:      "batch_failures_total",
			Help:      "Warehouse batches rolled back",
		}),
	}
	m.registry.MustRegister(
		m.Runs, m.RunDuration, m.LastSuccess, m.ResourcesDiscovered, m.FetchFailures,
		m.Rows, m.FilesSkipped, m.RowsDropped, m.BatchFailures,
	)
	return m
}

// WithProcessCollectors adds Go runtime and process metrics. Used by the
// long-running server only.
func (m *Metrics) WithProcessCollectors() *Metrics {
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry for HTTP exposition.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveRun records one finished run.
func (m *Metrics) ObserveRun(kind, outcome string, succeeded bool, started, finished time.Time) {
	m.Runs.WithLabelValues(kind, outcome).Inc()
	m.RunDuration.WithLabelValues(kind).Observe(finished.Sub(started).Seconds())
	if succeeded {
		m.LastSuccess.WithLabelValues(kind).Set(float64(finished.Unix()))
	}
}

// Push sends every metric to the Pushgateway at url under job, replacing
// the previous push of the same grouping.
func (m *Metrics) Push(ctx context.Context, url, job string, grouping map[string]string) error {
	p := push.New(url, job).Gatherer(m.registry)
	for k, v := range grouping {
		p = p.Grouping(k, v)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("jobmetrics: push to %s: %w", url, err)
	}
	return nil
}
