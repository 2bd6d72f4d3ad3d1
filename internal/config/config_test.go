package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent", "config.json")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := CollectConfig{
		Lookback:   time.Hour,
		Period:     5 * time.Minute,
		MaxWorkers: 10,
		States:     []string{"running", "stopped", "pending"},
		Overlap:    10 * time.Minute,
	}
	if diff := cmp.Diff(want, cfg.Collect); diff != "" {
		t.Errorf("collect defaults mismatch (-want +got):\n%s", diff)
	}
	if cfg.Provider != "aws" || cfg.Load.LookbackDays != 3 || cfg.Load.BatchSize != 1000 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if !cfg.Storage.UseSSL {
		t.Error("expected storage.use-ssl to default to true")
	}
}

func TestSetAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleetmetrics", "config.json")

	for key, value := range map[string]string{
		"provider":            "hetzner",
		"collect.lookback":    "2h",
		"collect.max-workers": "4",
		"collect.states":      "running, stopped",
		"storage.use-ssl":     "false",
		"storage.bucket":      "metrics-bucket",
	} {
		if err := SetIn(path, key, value); err != nil {
			t.Fatalf("SetIn(%q) failed: %v", key, err)
		}
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider != "hetzner" {
		t.Errorf("Provider = %q, want hetzner", cfg.Provider)
	}
	if cfg.Collect.Lookback != 2*time.Hour {
		t.Errorf("Lookback = %v, want 2h", cfg.Collect.Lookback)
	}
	if cfg.Collect.MaxWorkers != 4 {
		t.Errorf("MaxWorkers = %d, want 4", cfg.Collect.MaxWorkers)
	}
	if diff := cmp.Diff([]string{"running", "stopped"}, cfg.Collect.States); diff != "" {
		t.Errorf("states mismatch (-want +got):\n%s", diff)
	}
	if cfg.Storage.UseSSL {
		t.Error("expected use-ssl false")
	}
	if cfg.Storage.Bucket != "metrics-bucket" {
		t.Errorf("Bucket = %q", cfg.Storage.Bucket)
	}
	// Untouched keys keep their defaults.
	if cfg.Collect.Period != 5*time.Minute {
		t.Errorf("Period = %v, want default 5m", cfg.Collect.Period)
	}
}

func TestSet_DoesNotPersistDefaultsOrEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("FLEETMETRICS_WAREHOUSE_DSN", "postgres://secret@db/metrics")

	if err := SetIn(path, "provider", "hetzner"); err != nil {
		t.Fatalf("SetIn failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if strings.Contains(string(data), "secret") || strings.Contains(string(data), "lookback") {
		t.Errorf("file should only hold explicitly set keys, got:\n%s", data)
	}
}

func TestSet_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "config.json")

	if err := SetIn(path, "provider", "hetzner"); err != nil {
		t.Fatalf("SetIn failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
}

func TestSet_RejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	tests := []struct{ key, value string }{
		{"collect.lookback", "soon"},
		{"collect.lookback", "-1h"},
		{"collect.max-workers", "many"},
		{"storage.use-ssl", "maybe"},
		{"no.such.key", "x"},
	}
	for _, tt := range tests {
		if err := SetIn(path, tt.key, tt.value); err == nil {
			t.Errorf("SetIn(%q, %q) expected error", tt.key, tt.value)
		}
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := SetIn(path, "collect.max-workers", "4"); err != nil {
		t.Fatalf("SetIn failed: %v", err)
	}
	t.Setenv("FLEETMETRICS_COLLECT_MAX_WORKERS", "7")
	t.Setenv("FLEETMETRICS_WAREHOUSE_DRIVER", "sqlite")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Collect.MaxWorkers != 7 {
		t.Errorf("MaxWorkers = %d, want env value 7", cfg.Collect.MaxWorkers)
	}
	if cfg.Warehouse.Driver != "sqlite" {
		t.Errorf("Driver = %q, want sqlite", cfg.Warehouse.Driver)
	}
}

func TestGetFrom(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := SetIn(path, "collect.overlap", "15m"); err != nil {
		t.Fatalf("SetIn failed: %v", err)
	}

	tests := map[string]string{
		"collect.overlap": "15m0s",
		"collect.period":  "5m0s",
		"collect.states":  "running,stopped,pending",
		"load.batch-size": "1000",
		"storage.use-ssl": "true",
	}
	for key, want := range tests {
		got, err := GetFrom(path, key)
		if err != nil {
			t.Fatalf("GetFrom(%q) error: %v", key, err)
		}
		if got != want {
			t.Errorf("GetFrom(%q) = %q, want %q", key, got, want)
		}
	}

	if _, err := GetFrom(path, "nope"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestPathOverride(t *testing.T) {
	t.Cleanup(ResetPath)

	want := filepath.Join(t.TempDir(), "custom.json")
	SetPath(want)

	got, err := Path()
	if err != nil {
		t.Fatalf("Path error: %v", err)
	}
	if got != want {
		t.Errorf("Path = %q, want %q", got, want)
	}
}
