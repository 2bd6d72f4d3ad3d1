package warehouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
)

// ErrInvalidWindow is returned for a window the summary view does not carry.
var ErrInvalidWindow = errors.New("invalid window")

// ValidateWindow reports whether days is one of Windows.
func ValidateWindow(days int) error {
	if !slices.Contains(Windows, days) {
		return fmt.Errorf("%w: %d (want one of %v)", ErrInvalidWindow, days, Windows)
	}
	return nil
}

// ViewCount is the row count of one table or view.
type ViewCount struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

// ViewCounts counts the rows of the base table and every view.
func (w *Warehouse) ViewCounts(ctx context.Context) ([]ViewCount, error) {
	counts := make([]ViewCount, 0, len(Tables))
	for _, name := range Tables {
		var n int64
		// Names come from the fixed Tables list.
		if err := w.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+name).Scan(&n); err != nil {
			return nil, fmt.Errorf("warehouse: count %s: %w", name, err)
		}
		counts = append(counts, ViewCount{Name: name, Rows: n})
	}
	return counts, nil
}

const summaryColumns = `provider, resource_id, resource_name, resource_type, availability_zone, platform,
	window_days, sample_days,
	cpu_avg_pct, cpu_peak_pct, cpu_p95_pct, cpu_p99_pct,
	mem_avg_pct, mem_peak_pct, mem_p95_pct,
	net_in_bytes_total, net_out_bytes_total, net_in_avg_bytes, net_out_avg_bytes,
	disk_read_bytes_total, disk_write_bytes_total,
	ebs_read_bytes_total, ebs_write_bytes_total, ebs_io_balance_avg_pct,
	status_check_failures`

// SummaryQuery selects rows of the pivoted summary view.
type SummaryQuery struct {
	Window      int
	ResourceIDs []string
	// TopByCPU orders by average CPU, highest first, and skips resources
	// without CPU data.
	TopByCPU bool
	Limit    int
}

// Summaries returns the pivoted rows for one window, optionally filtered to
// the given resource ids.
func (w *Warehouse) Summaries(ctx context.Context, window int, resourceIDs []string) ([]domain.WindowSummary, error) {
	return w.QuerySummaries(ctx, SummaryQuery{Window: window, ResourceIDs: resourceIDs})
}

// TopByCPU returns up to limit resources with the highest average CPU over
// the window.
func (w *Warehouse) TopByCPU(ctx context.Context, window, limit int) ([]domain.WindowSummary, error) {
	return w.QuerySummaries(ctx, SummaryQuery{Window: window, TopByCPU: true, Limit: limit})
}

// QuerySummaries runs q against v_resource_summary.
func (w *Warehouse) QuerySummaries(ctx context.Context, q SummaryQuery) ([]domain.WindowSummary, error) {
	if err := ValidateWindow(q.Window); err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT " + summaryColumns + " FROM v_resource_summary WHERE window_days = ?")
	args := []any{q.Window}
	if len(q.ResourceIDs) > 0 {
		b.WriteString(" AND resource_id IN (" + placeholders(len(q.ResourceIDs)) + ")")
		for _, id := range q.ResourceIDs {
			args = append(args, id)
		}
	}
	if q.TopByCPU {
		b.WriteString(" AND cpu_avg_pct IS NOT NULL ORDER BY cpu_avg_pct DESC, resource_id")
	} else {
		b.WriteString(" ORDER BY resource_id")
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	rows, err := w.db.QueryContext(ctx, w.bind(b.String()), args...)
	if err != nil {
		return nil, fmt.Errorf("warehouse: query summary: %w", err)
	}
	defer rows.Close()

	var out []domain.WindowSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("warehouse: read summary: %w", err)
	}
	return out, nil
}

func scanSummary(rows *sql.Rows) (domain.WindowSummary, error) {
	var (
		s    domain.WindowSummary
		vals [17]sql.NullFloat64
	)
	dest := []any{
		&s.Provider, &s.ResourceID, &s.ResourceName, &s.ResourceType, &s.AvailabilityZone, &s.Platform,
		&s.WindowDays, &s.SampleDays,
	}
	for i := range vals {
		dest = append(dest, &vals[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return s, fmt.Errorf("warehouse: scan summary: %w", err)
	}

	targets := []**float64{
		&s.CPUAvgPct, &s.CPUPeakPct, &s.CPUP95Pct, &s.CPUP99Pct,
		&s.MemAvgPct, &s.MemPeakPct, &s.MemP95Pct,
		&s.NetInBytesTotal, &s.NetOutBytesTotal, &s.NetInAvgBytes, &s.NetOutAvgBytes,
		&s.DiskReadBytesTotal, &s.DiskWriteBytesTotal,
		&s.EBSReadBytesTotal, &s.EBSWriteBytesTotal, &s.EBSIOBalanceAvgPct,
		&s.StatusCheckFailures,
	}
	for i, t := range targets {
		*t = floatPtr(vals[i])
	}
	return s, nil
}

// KnownResources returns the metadata of the most recent row stored for
// every resource.
func (w *Warehouse) KnownResources(ctx context.Context) ([]domain.ResourceInfo, error) {
	const query = `
SELECT provider, resource_id, resource_name, resource_type, availability_zone, platform, CAST(day AS TEXT)
FROM (
	SELECT d.*,
		ROW_NUMBER() OVER (PARTITION BY d.resource_id ORDER BY d.day DESC, d.loaded_at DESC, d.metric_name) AS rn
	FROM resource_metrics_daily d
) ranked
WHERE rn = 1
ORDER BY resource_id`

	rows, err := w.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("warehouse: query resources: %w", err)
	}
	defer rows.Close()

	var out []domain.ResourceInfo
	for rows.Next() {
		var (
			r   domain.ResourceInfo
			day string
		)
		if err := rows.Scan(&r.Provider, &r.ID, &r.Name, &r.Type, &r.AvailabilityZone, &r.Platform, &day); err != nil {
			return nil, fmt.Errorf("warehouse: scan resource: %w", err)
		}
		if r.LastDay, err = parseDay(day); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("warehouse: read resources: %w", err)
	}
	return out, nil
}

// Resource returns the latest metadata for one resource.
func (w *Warehouse) Resource(ctx context.Context, id string) (domain.ResourceInfo, error) {
	all, err := w.KnownResources(ctx)
	if err != nil {
		return domain.ResourceInfo{}, err
	}
	for _, r := range all {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.ResourceInfo{}, fmt.Errorf("resource %q: %w", id, domain.ErrNotFound)
}

// DailyPoint is one stored day of a resource metric.
type DailyPoint struct {
	Day         time.Time         `json:"day"`
	Stats       domain.StatValues `json:"stats"`
	SampleCount int               `json:"sample_count"`
}

// DailySeries returns the stored days of one metric since now-days, oldest
// first.
func (w *Warehouse) DailySeries(ctx context.Context, resourceID, metric string, days int, now time.Time) ([]DailyPoint, error) {
	const query = `
SELECT CAST(day AS TEXT), stat_average, stat_maximum, stat_minimum, stat_sum,
	stat_p50, stat_p90, stat_p95, stat_p99, sample_count
FROM resource_metrics_daily
WHERE resource_id = ? AND metric_name = ? AND day > ?
ORDER BY day`

	cutoff := now.UTC().AddDate(0, 0, -days)
	rows, err := w.db.QueryContext(ctx, w.bind(query), resourceID, metric, w.dayArg(cutoff))
	if err != nil {
		return nil, fmt.Errorf("warehouse: query series: %w", err)
	}
	defer rows.Close()

	var out []DailyPoint
	for rows.Next() {
		var (
			p    DailyPoint
			day  string
			vals [8]sql.NullFloat64
		)
		if err := rows.Scan(&day, &vals[0], &vals[1], &vals[2], &vals[3],
			&vals[4], &vals[5], &vals[6], &vals[7], &p.SampleCount); err != nil {
			return nil, fmt.Errorf("warehouse: scan series: %w", err)
		}
		if p.Day, err = parseDay(day); err != nil {
			return nil, err
		}
		p.Stats = domain.StatValues{
			Average: floatPtr(vals[0]), Maximum: floatPtr(vals[1]), Minimum: floatPtr(vals[2]), Sum: floatPtr(vals[3]),
			P50: floatPtr(vals[4]), P90: floatPtr(vals[5]), P95: floatPtr(vals[6]), P99: floatPtr(vals[7]),
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("warehouse: read series: %w", err)
	}
	return out, nil
}
