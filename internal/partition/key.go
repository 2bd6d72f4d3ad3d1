package partition

import (
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
)

// Extension is the suffix of every data object.
const Extension = ".parquet"

// ObjectKey returns prefix/year=YYYY/month=MM/day=DD/metrics_HHMMSS_<run>.parquet
// for a run started at runTime. run is shortened to its first 8 characters.
func ObjectKey(prefix string, runTime time.Time, runID string) string {
	t := runTime.UTC()
	short := strings.ReplaceAll(runID, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	name := fmt.Sprintf("metrics_%s", t.Format("150405"))
	if short != "" {
		name += "_" + short
	}
	return path.Join(
		strings.Trim(prefix, "/"),
		fmt.Sprintf("year=%04d", t.Year()),
		fmt.Sprintf("month=%02d", int(t.Month())),
		fmt.Sprintf("day=%02d", t.Day()),
		name+Extension,
	)
}

// ParseDate extracts the partition date from a key. Keys with a missing or
// out-of-range segment return a *domain.PartitionPathError.
func ParseDate(key string) (time.Time, error) {
	parts := map[string]int{}
	for _, seg := range strings.Split(key, "/") {
		name, val, ok := strings.Cut(seg, "=")
		if !ok {
			continue
		}
		switch name {
		case "year", "month", "day":
			n, err := strconv.Atoi(val)
			if err != nil {
				return time.Time{}, &domain.PartitionPathError{Key: key, Reason: fmt.Sprintf("%s=%q is not a number", name, val)}
			}
			parts[name] = n
		}
	}
	for _, name := range []string{"year", "month", "day"} {
		if _, ok := parts[name]; !ok {
			return time.Time{}, &domain.PartitionPathError{Key: key, Reason: "missing " + name + " segment"}
		}
	}

	y, m, d := parts["year"], parts["month"], parts["day"]
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes overflow (month=13 becomes January), so compare back.
	if t.Year() != y || int(t.Month()) != m || t.Day() != d {
		return time.Time{}, &domain.PartitionPathError{Key: key, Reason: fmt.Sprintf("invalid date %04d-%02d-%02d", y, m, d)}
	}
	return t, nil
}
