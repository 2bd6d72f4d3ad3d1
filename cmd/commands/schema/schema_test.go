package schema

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"nathanbeddoewebdev/fleetmetrics/internal/config"
	"nathanbeddoewebdev/fleetmetrics/internal/warehouse"
)

func setupWarehouse(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	config.SetPath(filepath.Join(dir, "config.json"))
	t.Cleanup(config.ResetPath)
	t.Setenv("FLEETMETRICS_WAREHOUSE_DRIVER", "sqlite")
	t.Setenv("FLEETMETRICS_WAREHOUSE_DSN", filepath.Join(dir, "warehouse.db"))
}

func execSchema(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return outBuf.String(), err
}

func status(t *testing.T) warehouse.SchemaStatus {
	t.Helper()
	out, err := execSchema(t, "status", "-o", "json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var st warehouse.SchemaStatus
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	return st
}

func TestApplyStatusRollback(t *testing.T) {
	setupWarehouse(t)

	before := status(t)
	if before.Current != 0 || before.Pending != 3 {
		t.Fatalf("fresh status = %+v, want current 0 and 3 pending", before)
	}

	out, err := execSchema(t, "apply")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if !strings.Contains(out, "version 3") {
		t.Errorf("unexpected apply output: %s", out)
	}
	if _, err := execSchema(t, "apply"); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	if st := status(t); st.Current != 3 || st.Pending != 0 {
		t.Errorf("status after apply = %+v", st)
	}

	out, err = execSchema(t, "rollback", "--yes")
	if err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if !strings.Contains(out, "version 2") {
		t.Errorf("unexpected rollback output: %s", out)
	}
}

func TestRollback_RequiresConfirmation(t *testing.T) {
	setupWarehouse(t)

	_, err := execSchema(t, "rollback")
	if err == nil || !strings.Contains(err.Error(), "--yes") {
		t.Errorf("expected confirmation error, got %v", err)
	}
}
