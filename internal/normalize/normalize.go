// Package normalize flattens extracted datapoints into the fixed row shape
// written to partitioned files.
package normalize

import (
	"sort"
	"time"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
)

// Normalize converts datapoints into rows stamped with extractedAt. Every
// statistic column is set from the datapoint or left nil. Rows are sorted by
// resource, category, metric and timestamp.
func Normalize(extractedAt time.Time, dps []domain.Datapoint) []domain.NormalizedRow {
	rows := make([]domain.NormalizedRow, 0, len(dps))
	for _, dp := range dps {
		rows = append(rows, Row(extractedAt, dp))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ResourceID != b.ResourceID {
			return a.ResourceID < b.ResourceID
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.Metric != b.Metric {
			return a.Metric < b.Metric
		}
		return a.Timestamp.Before(b.Timestamp)
	})
	return rows
}

// Row converts a single datapoint.
func Row(extractedAt time.Time, dp domain.Datapoint) domain.NormalizedRow {
	r := dp.Resource
	row := domain.NormalizedRow{
		ExtractedAt:      extractedAt.UTC(),
		Timestamp:        dp.Timestamp.UTC(),
		Provider:         r.Provider,
		ResourceID:       r.ID,
		ResourceName:     orDefault(r.Name, domain.DefaultResourceName),
		ResourceType:     r.Type,
		State:            string(r.State),
		AvailabilityZone: r.AvailabilityZone,
		PrivateIP:        r.PrivateIP,
		PublicIP:         r.PublicIP,
		Platform:         orDefault(r.Platform, domain.DefaultPlatform),
		LaunchTime:       r.LaunchTime.UTC(),
		Namespace:        dp.Namespace,
		Category:         string(dp.Category),
		Metric:           dp.Metric,
		Unit:             dp.Unit,
		PeriodSeconds:    dp.PeriodSeconds,
	}
	row.SetStats(copyStats(dp.Values))
	return row
}

// copyStats detaches the row from the datapoint's pointers.
func copyStats(v domain.StatValues) domain.StatValues {
	var out domain.StatValues
	for _, s := range domain.Statistics {
		if p := v.Get(s); p != nil {
			out.Set(s, *p)
		}
	}
	return out
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
