package config

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"nathanbeddoewebdev/fleetmetrics/internal/config"
	"nathanbeddoewebdev/fleetmetrics/internal/domain"
	"nathanbeddoewebdev/fleetmetrics/internal/providers"
	"nathanbeddoewebdev/fleetmetrics/internal/services/auth"

	"github.com/google/go-cmp/cmp"
)

// setupTestConfig points the config package at a temp file.
func setupTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	config.SetPath(path)
	t.Cleanup(config.ResetPath)
	return path
}

// registerTestProvider registers a mock provider in the global registry.
func registerTestProvider(t *testing.T, name string) {
	t.Helper()
	providers.Reset()
	t.Cleanup(func() { providers.Reset() })
	providers.Register(name, func(auth.Store, providers.Settings) (domain.Provider, error) {
		return nil, nil
	})
}

// execConfig creates the config command, wires up output buffers, runs with the
// given args, and returns what was written to stdout and stderr.
func execConfig(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var outBuf, errBuf bytes.Buffer
	cmd := NewCommand()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

func TestSet_Provider(t *testing.T) {
	setupTestConfig(t)
	registerTestProvider(t, "hetzner")

	stdout, _, err := execConfig(t, "set", "provider", "hetzner")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, `"hetzner"`) {
		t.Errorf("expected confirmation with provider name, got: %s", stdout)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Provider != "hetzner" {
		t.Errorf("expected Provider %q, got %q", "hetzner", cfg.Provider)
	}
}

func TestSet_Provider_CaseInsensitive(t *testing.T) {
	setupTestConfig(t)
	registerTestProvider(t, "hetzner")

	stdout, _, err := execConfig(t, "set", "provider", "HETZNER")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, `"hetzner"`) {
		t.Errorf("expected normalized provider name, got: %s", stdout)
	}
}

func TestSet_Provider_Unknown(t *testing.T) {
	setupTestConfig(t)
	registerTestProvider(t, "hetzner")

	_, _, err := execConfig(t, "set", "provider", "nonexistent")
	if err == nil || !strings.Contains(err.Error(), "unknown provider") {
		t.Errorf("expected 'unknown provider' error, got: %v", err)
	}
}

func TestSet_States(t *testing.T) {
	setupTestConfig(t)

	if _, _, err := execConfig(t, "set", "collect.states", "running,stopped"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if diff := cmp.Diff([]string{"running", "stopped"}, cfg.Collect.States); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
}

func TestSet_States_Unknown(t *testing.T) {
	setupTestConfig(t)

	_, _, err := execConfig(t, "set", "collect.states", "running,sleeping")
	if err == nil || !strings.Contains(err.Error(), "sleeping") {
		t.Errorf("expected unknown state error, got: %v", err)
	}
}

func TestSet_Driver_Invalid(t *testing.T) {
	setupTestConfig(t)

	_, _, err := execConfig(t, "set", "warehouse.driver", "oracle")
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestSet_InvalidInteger(t *testing.T) {
	setupTestConfig(t)

	_, _, err := execConfig(t, "set", "load.batch-size", "many")
	if err == nil || !strings.Contains(err.Error(), "invalid value") {
		t.Errorf("expected invalid value error, got: %v", err)
	}
}

func TestSet_UnknownKey(t *testing.T) {
	setupTestConfig(t)

	_, _, err := execConfig(t, "set", "bogus-key", "value")
	if err == nil || !strings.Contains(err.Error(), "unknown configuration key") {
		t.Errorf("expected 'unknown configuration key' error, got: %v", err)
	}
}

func TestSet_Bucket_Invalid(t *testing.T) {
	setupTestConfig(t)

	_, _, err := execConfig(t, "set", "storage.bucket", "My_Bucket")
	if err == nil || !strings.Contains(err.Error(), "invalid characters") {
		t.Errorf("expected bucket name error, got: %v", err)
	}
}

func TestSet_Bucket(t *testing.T) {
	setupTestConfig(t)

	if _, _, err := execConfig(t, "set", "storage.bucket", "fleet-telemetry"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Storage.Bucket != "fleet-telemetry" {
		t.Errorf("bucket = %q, want fleet-telemetry", cfg.Storage.Bucket)
	}
}
