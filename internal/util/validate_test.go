package util

import (
	"strings"
	"testing"
)

func TestValidateBucketName_Valid(t *testing.T) {
	valid := []string{
		"fleet",
		"fleet-telemetry",
		"metrics.example.com",
		"abc",
		"123bucket",
		strings.Repeat("a", 63),
	}
	for _, name := range valid {
		t.Run(name, func(t *testing.T) {
			if err := ValidateBucketName(name); err != nil {
				t.Errorf("expected %q to be valid, got error: %v", name, err)
			}
		})
	}
}

func TestValidateBucketName_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		wantMsg string
	}{
		{"", "3 to 63 characters"},
		{"ab", "3 to 63 characters"},
		{strings.Repeat("a", 64), "3 to 63 characters"},
		{"Fleet", "invalid characters"},
		{"my bucket", "invalid characters"},
		{"fleet_data", "invalid characters"},
		{"-fleet", "start and end"},
		{"fleet.", "start and end"},
		{"fleet..data", "adjacent periods"},
		{"192.168.1.10", "IP address"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBucketName(tt.name)
			if err == nil {
				t.Fatalf("expected error for %q", tt.name)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error for %q = %q, want it to contain %q", tt.name, err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestNormalizeKey(t *testing.T) {
	if got := NormalizeKey("  Hetzner "); got != "hetzner" {
		t.Errorf("NormalizeKey = %q, want %q", got, "hetzner")
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" running, stopped,,running , pending ")
	want := []string{"running", "stopped", "pending"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("SplitList = %q, want %q", got, want)
	}
	if got := SplitList("  "); got != nil {
		t.Errorf("SplitList(blank) = %q, want nil", got)
	}
}
