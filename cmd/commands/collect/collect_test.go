package collect

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nathanbeddoewebdev/fleetmetrics/internal/app"
	"nathanbeddoewebdev/fleetmetrics/internal/config"
	"nathanbeddoewebdev/fleetmetrics/internal/database"
	"nathanbeddoewebdev/fleetmetrics/internal/domain"
	"nathanbeddoewebdev/fleetmetrics/internal/pipeline"
	"nathanbeddoewebdev/fleetmetrics/internal/providers"
	"nathanbeddoewebdev/fleetmetrics/internal/runlog"
	"nathanbeddoewebdev/fleetmetrics/internal/services/auth"
)

type fakeProvider struct {
	resources []domain.Resource
}

func (fakeProvider) GetDisplayName() string { return "Fake" }

func (p fakeProvider) ListResources(context.Context, []domain.LifecycleState) ([]domain.Resource, error) {
	return p.resources, nil
}

func (fakeProvider) GetMetricStatistics(_ context.Context, q domain.MetricQuery) ([]domain.Observation, error) {
	var out []domain.Observation
	for ts := q.Start.Truncate(q.Period); ts.Before(q.End); ts = ts.Add(q.Period) {
		if ts.Before(q.Start) {
			continue
		}
		var v domain.StatValues
		v.Set(domain.StatAverage, 42)
		out = append(out, domain.Observation{Timestamp: ts, Values: v})
	}
	return out, nil
}

type env struct {
	storeRoot string
	ledger    string
}

func setupEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()

	config.SetPath(filepath.Join(dir, "config.json"))
	t.Cleanup(config.ResetPath)
	ledger := filepath.Join(dir, "fleetmetrics.db")
	database.SetPath(ledger)
	t.Cleanup(database.ResetPath)
	app.SetAuthStore(auth.NewMockStore())
	t.Cleanup(app.ResetAuthStore)

	storeRoot := filepath.Join(dir, "objects")
	t.Setenv("FLEETMETRICS_STORAGE_ENDPOINT", "file://"+storeRoot)
	t.Setenv("FLEETMETRICS_STORAGE_BUCKET", "fleet")
	t.Setenv("FLEETMETRICS_PROVIDER", "hetzner")
	t.Setenv("FLEETMETRICS_REDIS_ADDR", "")
	t.Setenv("FLEETMETRICS_PUSHGATEWAY_URL", "")

	providers.Reset()
	t.Cleanup(providers.Reset)
	providers.Register("hetzner", func(auth.Store, providers.Settings) (domain.Provider, error) {
		return fakeProvider{resources: []domain.Resource{
			{Provider: "hetzner", ID: "101", Name: "web-1", Type: "cx22", AvailabilityZone: "fsn1-dc14", State: domain.StateRunning, Platform: "linux"},
		}}, nil
	})

	return env{storeRoot: storeRoot, ledger: ledger}
}

func execCollect(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return outBuf.String(), err
}

func ledgerRuns(t *testing.T, path string) []runlog.Run {
	t.Helper()
	repo, err := runlog.OpenAt(path)
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	defer repo.Close()
	runs, err := repo.List(10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	return runs
}

func parquetFiles(t *testing.T, root string) []string {
	t.Helper()
	var files []string
	_ = filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() && strings.HasSuffix(p, ".parquet") {
			files = append(files, p)
		}
		return nil
	})
	return files
}

func TestCollect_WritesFileAndRecordsRun(t *testing.T) {
	e := setupEnv(t)

	out, err := execCollect(t, "--lookback", "30m", "--period", "5m")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Provider:", "hetzner", "Resources:", "s3://fleet/metrics/year=", "success"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}

	if files := parquetFiles(t, e.storeRoot); len(files) != 1 {
		t.Fatalf("expected 1 parquet file, got %v", files)
	}

	runs := ledgerRuns(t, e.ledger)
	if len(runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(runs))
	}
	got := runs[0]
	if got.Kind != runlog.KindCollect || got.Provider != "hetzner" || got.Outcome != runlog.OutcomeSuccess {
		t.Errorf("unexpected run record: %+v", got)
	}
	if got.Resources != 1 || got.Rows == 0 || got.Files != 1 {
		t.Errorf("unexpected counts: %+v", got)
	}
	if got.WindowEnd.Sub(got.WindowStart) != 30*time.Minute {
		t.Errorf("window = %s..%s, want 30m", got.WindowStart, got.WindowEnd)
	}
}

func TestCollect_SinceLastRunResumesWithOverlap(t *testing.T) {
	setupEnv(t)

	first, err := execCollect(t, "--lookback", "30m", "--period", "5m", "-o", "json")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	var r1 pipeline.CollectReport
	if err := json.Unmarshal([]byte(first), &r1); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, first)
	}

	second, err := execCollect(t, "--lookback", "2h", "--period", "5m", "--since-last-run", "--overlap", "10m", "-o", "json")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	var r2 pipeline.CollectReport
	if err := json.Unmarshal([]byte(second), &r2); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, second)
	}

	want := r1.Window.End.Add(-10 * time.Minute)
	if !r2.Window.Start.Equal(want) {
		t.Errorf("second window start = %s, want %s", r2.Window.Start, want)
	}
}

func TestCollect_SinceLastRunRepeatsPartialWindow(t *testing.T) {
	e := setupEnv(t)

	windowStart := time.Now().UTC().Truncate(time.Minute).Add(-50 * time.Minute)
	repo, err := runlog.OpenAt(e.ledger)
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	err = repo.Save(&runlog.Run{
		Kind:        runlog.KindCollect,
		Provider:    "hetzner",
		Outcome:     runlog.OutcomePartial,
		StartedAt:   windowStart.Add(30 * time.Minute),
		WindowStart: windowStart,
		WindowEnd:   windowStart.Add(30 * time.Minute),
		Failures:    40,
	})
	repo.Close()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := execCollect(t, "--lookback", "2h", "--period", "5m", "--since-last-run", "--overlap", "10m", "-o", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var r pipeline.CollectReport
	if err := json.Unmarshal([]byte(out), &r); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}

	want := windowStart.Add(-10 * time.Minute)
	if !r.Window.Start.Equal(want) {
		t.Errorf("window start = %s, want %s", r.Window.Start, want)
	}
}

func TestCollect_DryRunSkipsUploadAndLedger(t *testing.T) {
	e := setupEnv(t)

	out, err := execCollect(t, "--lookback", "30m", "--dry-run")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "dry run") {
		t.Errorf("expected dry run note, got:\n%s", out)
	}
	if files := parquetFiles(t, e.storeRoot); len(files) != 0 {
		t.Errorf("expected no files, got %v", files)
	}
	if runs := ledgerRuns(t, e.ledger); len(runs) != 0 {
		t.Errorf("expected no recorded runs, got %d", len(runs))
	}
}

func TestCollect_LocalCopy(t *testing.T) {
	setupEnv(t)
	copyDir := t.TempDir()

	if _, err := execCollect(t, "--lookback", "30m", "--local-copy", copyDir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if files := parquetFiles(t, copyDir); len(files) != 1 {
		t.Errorf("expected 1 local copy, got %v", files)
	}
}

func TestCollect_InvalidFlags(t *testing.T) {
	setupEnv(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"unknown state", []string{"--states", "running,sleeping"}, "sleeping"},
		{"period longer than lookback", []string{"--lookback", "5m", "--period", "10m"}, "period"},
		{"bad output", []string{"-o", "yaml"}, "unsupported output"},
		{"unknown provider", []string{"--provider", "gcp"}, "unknown provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execCollect(t, tt.args...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestCollect_RequiresBucket(t *testing.T) {
	setupEnv(t)
	t.Setenv("FLEETMETRICS_STORAGE_BUCKET", "")

	_, err := execCollect(t, "--lookback", "30m")
	if err == nil || !strings.Contains(err.Error(), "storage.bucket") {
		t.Errorf("expected bucket error, got %v", err)
	}
}
