// Package aggregate collapses sub-day rows into one row per resource,
// metric and UTC day.
package aggregate

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
)

type observationKey struct {
	resourceID string
	metric     string
	ts         int64
}

type dayKey struct {
	resourceID string
	metric     string
	day        time.Time
}

// statAcc reduces one statistic column over a day.
type statAcc struct {
	n   int
	sum float64
	max float64
	min float64
}

func (a *statAcc) add(v float64) {
	if a.n == 0 || v > a.max {
		a.max = v
	}
	if a.n == 0 || v < a.min {
		a.min = v
	}
	a.n++
	a.sum += v
}

type dayBucket struct {
	latest domain.NormalizedRow
	stats  map[domain.Statistic]*statAcc
	count  int
}

func (b *dayBucket) add(row domain.NormalizedRow) {
	if b.count == 0 || newer(row, b.latest) {
		b.latest = row
	}
	b.count++
	values := row.Stats()
	for _, s := range domain.Statistics {
		v := values.Get(s)
		if v == nil {
			continue
		}
		acc := b.stats[s]
		if acc == nil {
			acc = &statAcc{}
			b.stats[s] = acc
		}
		acc.add(*v)
	}
}

// reduce applies the fixed reducer per statistic: mean for Average, max for
// Maximum and percentiles, min for Minimum, sum for Sum.
func (b *dayBucket) reduce() domain.StatValues {
	var out domain.StatValues
	for s, acc := range b.stats {
		if acc.n == 0 {
			continue
		}
		switch {
		case s == domain.StatAverage:
			out.Set(s, acc.sum/float64(acc.n))
		case s == domain.StatMaximum, s.IsPercentile():
			out.Set(s, acc.max)
		case s == domain.StatMinimum:
			out.Set(s, acc.min)
		case s == domain.StatSum:
			out.Set(s, acc.sum)
		}
	}
	return out
}

func newer(a, b domain.NormalizedRow) bool {
	if !a.ExtractedAt.Equal(b.ExtractedAt) {
		return a.ExtractedAt.After(b.ExtractedAt)
	}
	return a.Timestamp.After(b.Timestamp)
}

// Result is the outcome of one aggregation.
type Result struct {
	Aggregates []domain.DailyAggregate
	// Dropped counts rows rejected for an invalid timestamp.
	Dropped []*domain.TimestampParseError
	// Duplicates counts observations replaced by a later extraction.
	Duplicates int
}

// Aggregate groups rows by (resource, metric, UTC day). Observations that
// appear in several files are collapsed first, keeping the most recently
// extracted copy.
func Aggregate(rows []domain.NormalizedRow, log *zap.Logger) Result {
	if log == nil {
		log = zap.NewNop()
	}
	var res Result

	unique := make(map[observationKey]domain.NormalizedRow, len(rows))
	for _, row := range rows {
		if row.Timestamp.IsZero() || row.Timestamp.Year() < 1970 {
			res.Dropped = append(res.Dropped, &domain.TimestampParseError{
				ResourceID: row.ResourceID, Metric: row.Metric, Value: row.Timestamp,
			})
			continue
		}
		key := observationKey{row.ResourceID, row.Metric, row.Timestamp.UnixNano()}
		if cur, ok := unique[key]; ok {
			res.Duplicates++
			if !row.ExtractedAt.After(cur.ExtractedAt) {
				continue
			}
		}
		unique[key] = row
	}
	if len(res.Dropped) > 0 {
		log.Warn("dropped rows with invalid timestamps",
			zap.Int("rows", len(res.Dropped)), zap.Error(res.Dropped[0]))
	}

	buckets := make(map[dayKey]*dayBucket)
	for _, row := range unique {
		key := dayKey{row.ResourceID, row.Metric, row.Timestamp.UTC().Truncate(24 * time.Hour)}
		b := buckets[key]
		if b == nil {
			b = &dayBucket{stats: make(map[domain.Statistic]*statAcc)}
			buckets[key] = b
		}
		b.add(row)
	}

	res.Aggregates = make([]domain.DailyAggregate, 0, len(buckets))
	for key, b := range buckets {
		l := b.latest
		res.Aggregates = append(res.Aggregates, domain.DailyAggregate{
			ResourceID:       key.resourceID,
			Metric:           key.metric,
			Day:              key.day,
			Provider:         l.Provider,
			ResourceName:     l.ResourceName,
			ResourceType:     l.ResourceType,
			AvailabilityZone: l.AvailabilityZone,
			Platform:         l.Platform,
			Namespace:        l.Namespace,
			Category:         l.Category,
			Unit:             l.Unit,
			Stats:            b.reduce(),
			SampleCount:      b.count,
		})
	}
	sort.Slice(res.Aggregates, func(i, j int) bool {
		a, b := res.Aggregates[i], res.Aggregates[j]
		if a.ResourceID != b.ResourceID {
			return a.ResourceID < b.ResourceID
		}
		if a.Metric != b.Metric {
			return a.Metric < b.Metric
		}
		return a.Day.Before(b.Day)
	})

	log.Info("aggregated daily rows",
		zap.Int("input_rows", len(rows)),
		zap.Int("duplicates", res.Duplicates),
		zap.Int("dropped", len(res.Dropped)),
		zap.Int("aggregates", len(res.Aggregates)),
	)
	return res
}
