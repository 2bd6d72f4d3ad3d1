package domain

import "time"

// NormalizedRow is the on-disk record written to partitioned files. Every
// statistic column is present in every file; absent values are null.
type NormalizedRow struct {
	ExtractedAt      time.Time `parquet:"extracted_at,timestamp(millisecond)" json:"extracted_at"`
	Timestamp        time.Time `parquet:"timestamp,timestamp(millisecond)" json:"timestamp"`
	Provider         string    `parquet:"provider,dict" json:"provider"`
	ResourceID       string    `parquet:"resource_id,dict" json:"resource_id"`
	ResourceName     string    `parquet:"resource_name,dict" json:"resource_name"`
	ResourceType     string    `parquet:"resource_type,dict" json:"resource_type"`
	State            string    `parquet:"state,dict" json:"state"`
	AvailabilityZone string    `parquet:"availability_zone,dict" json:"availability_zone"`
	PrivateIP        string    `parquet:"private_ip,dict" json:"private_ip"`
	PublicIP         string    `parquet:"public_ip,dict" json:"public_ip"`
	Platform         string    `parquet:"platform,dict" json:"platform"`
	LaunchTime       time.Time `parquet:"launch_time,timestamp(millisecond)" json:"launch_time"`
	Namespace        string    `parquet:"namespace,dict" json:"namespace"`
	Category         string    `parquet:"category,dict" json:"category"`
	Metric           string    `parquet:"metric_name,dict" json:"metric_name"`
	Unit             string    `parquet:"unit,dict" json:"unit"`
	PeriodSeconds    int32     `parquet:"period_sec" json:"period_sec"`
	Average          *float64  `parquet:"stat_average,optional" json:"stat_average"`
	Maximum          *float64  `parquet:"stat_maximum,optional" json:"stat_maximum"`
	Minimum          *float64  `parquet:"stat_minimum,optional" json:"stat_minimum"`
	Sum              *float64  `parquet:"stat_sum,optional" json:"stat_sum"`
	P50              *float64  `parquet:"stat_p50,optional" json:"stat_p50"`
	P90              *float64  `parquet:"stat_p90,optional" json:"stat_p90"`
	P95              *float64  `parquet:"stat_p95,optional" json:"stat_p95"`
	P99              *float64  `parquet:"stat_p99,optional" json:"stat_p99"`
}

// Stats returns the row's statistic columns as StatValues.
func (r NormalizedRow) Stats() StatValues {
	return StatValues{
		Average: r.Average, Maximum: r.Maximum, Minimum: r.Minimum, Sum: r.Sum,
		P50: r.P50, P90: r.P90, P95: r.P95, P99: r.P99,
	}
}

// SetStats overwrites every statistic column from v.
func (r *NormalizedRow) SetStats(v StatValues) {
	r.Average, r.Maximum, r.Minimum, r.Sum = v.Average, v.Maximum, v.Minimum, v.Sum
	r.P50, r.P90, r.P95, r.P99 = v.P50, v.P90, v.P95, v.P99
}

// DailyAggregate is one warehouse row per (resource, metric, UTC day).
type DailyAggregate struct {
	ResourceID       string     `json:"resource_id"`
	Metric           string     `json:"metric_name"`
	Day              time.Time  `json:"day"`
	Provider         string     `json:"provider"`
	ResourceName     string     `json:"resource_name"`
	ResourceType     string     `json:"resource_type"`
	AvailabilityZone string     `json:"availability_zone"`
	Platform         string     `json:"platform"`
	Namespace        string     `json:"namespace"`
	Category         string     `json:"category"`
	Unit             string     `json:"unit"`
	Stats            StatValues `json:"stats"`
	SampleCount      int        `json:"sample_count"`
}

// WindowSummary is one pivoted row of the summary view.
type WindowSummary struct {
	Provider            string   `json:"provider"`
	ResourceID          string   `json:"resource_id"`
	ResourceName        string   `json:"resource_name"`
	ResourceType        string   `json:"resource_type"`
	AvailabilityZone    string   `json:"availability_zone"`
	Platform            string   `json:"platform"`
	WindowDays          int      `json:"window_days"`
	SampleDays          int      `json:"sample_days"`
	CPUAvgPct           *float64 `json:"cpu_avg_pct"`
	CPUPeakPct          *float64 `json:"cpu_peak_pct"`
	CPUP95Pct           *float64 `json:"cpu_p95_pct"`
	CPUP99Pct           *float64 `json:"cpu_p99_pct"`
	MemAvgPct           *float64 `json:"mem_avg_pct"`
	MemPeakPct          *float64 `json:"mem_peak_pct"`
	MemP95Pct           *float64 `json:"mem_p95_pct"`
	NetInBytesTotal     *float64 `json:"net_in_bytes_total"`
	NetOutBytesTotal    *float64 `json:"net_out_bytes_total"`
	NetInAvgBytes       *float64 `json:"net_in_avg_bytes"`
	NetOutAvgBytes      *float64 `json:"net_out_avg_bytes"`
	DiskReadBytesTotal  *float64 `json:"disk_read_bytes_total"`
	DiskWriteBytesTotal *float64 `json:"disk_write_bytes_total"`
	EBSReadBytesTotal   *float64 `json:"ebs_read_bytes_total"`
	EBSWriteBytesTotal  *float64 `json:"ebs_write_bytes_total"`
	EBSIOBalanceAvgPct  *float64 `json:"ebs_io_balance_avg_pct"`
	StatusCheckFailures *float64 `json:"status_check_failures"`
}
