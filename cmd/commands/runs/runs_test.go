package runs

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"nathanbeddoewebdev/fleetmetrics/internal/database"
	"nathanbeddoewebdev/fleetmetrics/internal/runlog"
)

func setupLedger(t *testing.T, runs ...runlog.Run) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fleetmetrics.db")
	database.SetPath(path)
	t.Cleanup(database.ResetPath)

	repo, err := runlog.OpenAt(path)
	if err != nil {
		t.Fatalf("OpenAt: %v", err)
	}
	defer repo.Close()
	for i := range runs {
		if err := repo.Save(&runs[i]); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
}

func execRuns(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return outBuf.String(), err
}

func TestList_Empty(t *testing.T) {
	setupLedger(t)

	out, err := execRuns(t, "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No runs recorded.") {
		t.Errorf("expected empty message, got: %s", out)
	}
}

func TestList_Table(t *testing.T) {
	now := time.Now().UTC()
	setupLedger(t,
		runlog.Run{Kind: runlog.KindCollect, Provider: "aws", StartedAt: now.Add(-time.Hour), Outcome: runlog.OutcomePartial,
			WindowStart: now.Add(-2 * time.Hour), WindowEnd: now.Add(-time.Hour), Resources: 3, Rows: 120, Failures: 1, DurationMs: 1500},
		runlog.Run{Kind: runlog.KindLoad, StartedAt: now, Outcome: runlog.OutcomeSuccess, Files: 4, Rows: 480, DurationMs: 90},
	)

	out, err := execRuns(t, "list")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"TIME", "KIND", "collect", "load", "partial", "resources=3 rows=120 failures=1", "files=4", "1.5s", "90ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Index(out, "load") > strings.Index(out, "collect") {
		t.Errorf("expected newest run first:\n%s", out)
	}
}

func TestList_KindFilterJSON(t *testing.T) {
	now := time.Now().UTC()
	setupLedger(t,
		runlog.Run{Kind: runlog.KindCollect, Provider: "hetzner", StartedAt: now, Outcome: runlog.OutcomeSuccess},
		runlog.Run{Kind: runlog.KindLoad, StartedAt: now, Outcome: runlog.OutcomeSuccess},
	)

	out, err := execRuns(t, "list", "--kind", "collect", "-o", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got []runlog.Run
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if len(got) != 1 || got[0].Provider != "hetzner" {
		t.Errorf("expected only the collect run, got %+v", got)
	}
}

func TestList_InvalidKind(t *testing.T) {
	setupLedger(t)

	_, err := execRuns(t, "list", "--kind", "extract")
	if err == nil || !strings.Contains(err.Error(), "unknown run kind") {
		t.Errorf("expected unknown kind error, got %v", err)
	}
}

func TestPrune(t *testing.T) {
	now := time.Now().UTC()
	setupLedger(t,
		runlog.Run{Kind: runlog.KindCollect, StartedAt: now.AddDate(0, 0, -40), Outcome: runlog.OutcomeSuccess},
		runlog.Run{Kind: runlog.KindCollect, StartedAt: now, Outcome: runlog.OutcomeSuccess},
	)

	out, err := execRuns(t, "prune", "--older-than", "30d")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Removed 1 run(s).") {
		t.Errorf("unexpected output: %s", out)
	}
}

func TestPrune_RequiresDuration(t *testing.T) {
	setupLedger(t)

	_, err := execRuns(t, "prune")
	if err == nil || !strings.Contains(err.Error(), "--older-than is required") {
		t.Errorf("expected required flag error, got %v", err)
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"30d", 30 * 24 * time.Hour, false},
		{"72h", 72 * time.Hour, false},
		{"0d", 0, false},
		{"xd", 0, true},
		{"-1d", 0, true},
		{"soon", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseDuration(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDuration(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
