package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"nathanbeddoewebdev/fleetmetrics/internal/config"
	"nathanbeddoewebdev/fleetmetrics/internal/domain"
	"nathanbeddoewebdev/fleetmetrics/internal/warehouse"
)

func seedWarehouse(t *testing.T, aggs ...domain.DailyAggregate) {
	t.Helper()
	dir := t.TempDir()
	config.SetPath(filepath.Join(dir, "config.json"))
	t.Cleanup(config.ResetPath)
	dsn := filepath.Join(dir, "warehouse.db")
	t.Setenv("FLEETMETRICS_WAREHOUSE_DRIVER", "sqlite")
	t.Setenv("FLEETMETRICS_WAREHOUSE_DSN", dsn)

	wh, err := warehouse.Open("sqlite", dsn, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer wh.Close()
	ctx := context.Background()
	if err := wh.ApplySchema(ctx); err != nil {
		t.Fatalf("ApplySchema: %v", err)
	}
	if _, err := warehouse.NewLoader(wh).Load(ctx, aggs); err != nil {
		t.Fatalf("Load: %v", err)
	}
}

func cpu(id string, daysAgo int, avg float64) domain.DailyAggregate {
	var stats domain.StatValues
	stats.Set(domain.StatAverage, avg)
	stats.Set(domain.StatMaximum, avg*2)
	return domain.DailyAggregate{
		ResourceID:   id,
		Metric:       "CPUUtilization",
		Day:          time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, -daysAgo),
		Provider:     "aws",
		ResourceName: "web-" + id,
		ResourceType: "t3.micro",
		Platform:     "linux",
		Namespace:    "AWS/EC2",
		Category:     string(domain.CategoryCompute),
		Unit:         "Percent",
		Stats:        stats,
		SampleCount:  288,
	}
}

func execSummary(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return outBuf.String(), err
}

func TestSummary_Table(t *testing.T) {
	seedWarehouse(t, cpu("i-1", 1, 10), cpu("i-1", 2, 30), cpu("i-2", 3, 50))

	out, err := execSummary(t, "--window", "10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Utilization over the last 10 days", "i-1", "i-2", "2/10", "20.0%", "60.0%"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestSummary_ResourceFilterJSON(t *testing.T) {
	seedWarehouse(t, cpu("i-1", 1, 10), cpu("i-2", 1, 50))

	out, err := execSummary(t, "--resource", "i-2", "-o", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var rows []domain.WindowSummary
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if len(rows) != 1 || rows[0].ResourceID != "i-2" || rows[0].WindowDays != 30 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[0].CPUAvgPct == nil || *rows[0].CPUAvgPct != 50 {
		t.Errorf("cpu avg = %v, want 50", rows[0].CPUAvgPct)
	}
}

func TestSummary_StaleResourceExcluded(t *testing.T) {
	seedWarehouse(t, cpu("i-old", 40, 10))

	out, err := execSummary(t, "--window", "30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No resources with data in the last 30 days.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestSummary_InvalidWindow(t *testing.T) {
	seedWarehouse(t)

	_, err := execSummary(t, "--window", "7")
	if err == nil {
		t.Error("expected error for unsupported window")
	}
}
