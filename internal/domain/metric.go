package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Statistic is an aggregate computed by the telemetry source over one period.
type Statistic string

const (
	StatAverage Statistic = "Average"
	StatMaximum Statistic = "Maximum"
	StatMinimum Statistic = "Minimum"
	StatSum     Statistic = "Sum"
	StatP50     Statistic = "p50"
	StatP90     Statistic = "p90"
	StatP95     Statistic = "p95"
	StatP99     Statistic = "p99"
)

// Statistics lists every supported statistic in column order.
var Statistics = []Statistic{
	StatAverage, StatMaximum, StatMinimum, StatSum,
	StatP50, StatP90, StatP95, StatP99,
}

// IsPercentile reports whether s is requested through the percentile shape.
func (s Statistic) IsPercentile() bool {
	return strings.HasPrefix(string(s), "p")
}

// Valid reports whether s is spelled exactly like one of Statistics.
func (s Statistic) Valid() bool {
	return slices.Contains(Statistics, s)
}

// ParseStatistic returns the Statistic for name, matched case-insensitively.
func ParseStatistic(name string) (Statistic, error) {
	n := strings.TrimSpace(name)
	for _, s := range Statistics {
		if strings.EqualFold(string(s), n) {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedStatistic, name)
}

// SplitStatistics separates plain aggregates from percentiles.
func SplitStatistics(stats []Statistic) (plain, percentiles []Statistic) {
	for _, s := range stats {
		if s.IsPercentile() {
			percentiles = append(percentiles, s)
		} else {
			plain = append(plain, s)
		}
	}
	return plain, percentiles
}

// Category is the semantic family of a metric.
type Category string

const (
	CategoryCompute      Category = "compute"
	CategoryMemory       Category = "memory"
	CategoryNetwork      Category = "network"
	CategoryDisk         Category = "disk"
	CategoryBlockStorage Category = "block-storage"
	CategoryReliability  Category = "reliability"
)

// MetricSpec declares one metric to pull from a namespace.
type MetricSpec struct {
	Name       string
	Namespace  string
	Statistics []Statistic
	Category   Category
	// Unit is used when the source does not report one.
	Unit string
}

// Dimension narrows a metric query to one resource.
type Dimension struct {
	Name  string
	Value string
}

// MetricQuery is a request for statistics over [Start, End).
type MetricQuery struct {
	Namespace  string
	Metric     string
	Dimensions []Dimension
	Start      time.Time
	End        time.Time
	Period     time.Duration
	Statistics []Statistic
}

// Dimension returns the value of the named dimension, or "".
func (q MetricQuery) Dimension(name string) string {
	for _, d := range q.Dimensions {
		if d.Name == name {
			return d.Value
		}
	}
	return ""
}

// StatValues holds one optional value per Statistic.
type StatValues struct {
	Average *float64 `json:"average,omitempty"`
	Maximum *float64 `json:"maximum,omitempty"`
	Minimum *float64 `json:"minimum,omitempty"`
	Sum     *float64 `json:"sum,omitempty"`
	P50     *float64 `json:"p50,omitempty"`
	P90     *float64 `json:"p90,omitempty"`
	P95     *float64 `json:"p95,omitempty"`
	P99     *float64 `json:"p99,omitempty"`
}

func (v *StatValues) field(s Statistic) **float64 {
	switch s {
	case StatAverage:
		return &v.Average
	case StatMaximum:
		return &v.Maximum
	case StatMinimum:
		return &v.Minimum
	case StatSum:
		return &v.Sum
	case StatP50:
		return &v.P50
	case StatP90:
		return &v.P90
	case StatP95:
		return &v.P95
	case StatP99:
		return &v.P99
	}
	return nil
}

// Get returns the value for s, or nil when absent.
func (v StatValues) Get(s Statistic) *float64 {
	if f := v.field(s); f != nil {
		return *f
	}
	return nil
}

// Set stores val for s. Unknown statistics are ignored.
func (v *StatValues) Set(s Statistic, val float64) {
	if f := v.field(s); f != nil {
		*f = &val
	}
}

// Merge copies every value present in other into v.
func (v *StatValues) Merge(other StatValues) {
	for _, s := range Statistics {
		if val := other.Get(s); val != nil {
			v.Set(s, *val)
		}
	}
}

// Empty reports whether no statistic is set.
func (v StatValues) Empty() bool {
	for _, s := range Statistics {
		if v.Get(s) != nil {
			return false
		}
	}
	return true
}

// Observation is one timestamped answer from a TelemetrySource.
type Observation struct {
	Timestamp time.Time
	Unit      string
	Values    StatValues
}

// Datapoint is one (resource, namespace, metric, timestamp) observation with
// the resource metadata attached.
type Datapoint struct {
	Resource      Resource
	Namespace     string
	Metric        string
	Category      Category
	Timestamp     time.Time
	Unit          string
	PeriodSeconds int32
	Values        StatValues
}
