package catalog

import (
	"errors"
	"testing"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
)

func TestForProvider_Valid(t *testing.T) {
	for _, name := range []string{"aws", "hetzner"} {
		c, err := ForProvider(name, Options{MemoryNamespace: DefaultMemoryNamespace})
		if err != nil {
			t.Fatalf("ForProvider(%q): unexpected error: %v", name, err)
		}
		if c.Len() == 0 {
			t.Errorf("ForProvider(%q): empty catalog", name)
		}
	}
}

func TestForProvider_Unknown(t *testing.T) {
	if _, err := ForProvider("digitalocean", Options{}); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestEC2_MemoryNamespaceOptional(t *testing.T) {
	without := EC2("")
	with := EC2("Custom/Agent")

	if len(without.Namespaces) != 1 {
		t.Fatalf("expected 1 namespace without memory, got %d", len(without.Namespaces))
	}
	if len(with.Namespaces) != 2 {
		t.Fatalf("expected 2 namespaces with memory, got %d", len(with.Namespaces))
	}
	mem := with.Namespaces[1]
	if mem.Name != "Custom/Agent" {
		t.Errorf("memory namespace = %q, want %q", mem.Name, "Custom/Agent")
	}
	for _, m := range mem.Metrics {
		if m.Category != domain.CategoryMemory {
			t.Errorf("metric %s category = %q, want memory", m.Name, m.Category)
		}
	}
}

func TestEC2_CPURequestsBothShapes(t *testing.T) {
	var cpu *domain.MetricSpec
	metrics := EC2("").Namespaces[0].Metrics
	for i := range metrics {
		if metrics[i].Name == "CPUUtilization" {
			cpu = &metrics[i]
		}
	}
	if cpu == nil {
		t.Fatal("CPUUtilization missing from EC2 catalog")
	}
	plain, pct := domain.SplitStatistics(cpu.Statistics)
	if len(plain) == 0 || len(pct) == 0 {
		t.Errorf("CPUUtilization should request plain and percentile statistics, got %v / %v", plain, pct)
	}
}

func TestValidate_RejectsUnknownStatistic(t *testing.T) {
	c := Catalog{Namespaces: []Namespace{{
		Name:         "AWS/EC2",
		DimensionKey: "InstanceId",
		Metrics: []domain.MetricSpec{
			{Name: "CPUUtilization", Namespace: "AWS/EC2", Statistics: []domain.Statistic{"tm99"}},
		},
	}}}

	err := c.Validate()
	if !errors.Is(err, domain.ErrUnsupportedStatistic) {
		t.Fatalf("Validate error = %v, want ErrUnsupportedStatistic", err)
	}
}

func TestValidate_RejectsMiscasedStatistic(t *testing.T) {
	for _, stat := range []domain.Statistic{"average", "P95", "MAXIMUM"} {
		c := Catalog{Namespaces: []Namespace{{
			Name:         "AWS/EC2",
			DimensionKey: "InstanceId",
			Metrics: []domain.MetricSpec{
				{Name: "CPUUtilization", Namespace: "AWS/EC2", Statistics: []domain.Statistic{stat}},
			},
		}}}

		err := c.Validate()
		if !errors.Is(err, domain.ErrUnsupportedStatistic) {
			t.Errorf("Validate with %q error = %v, want ErrUnsupportedStatistic", stat, err)
		}
	}
}

func TestValidate_RejectsDuplicatesAndMismatchedNamespace(t *testing.T) {
	spec := domain.MetricSpec{Name: "cpu", Namespace: "other", Statistics: []domain.Statistic{domain.StatAverage}}
	c := Catalog{Namespaces: []Namespace{{
		Name:         "Hetzner/Server",
		DimensionKey: "server_id",
		Metrics:      []domain.MetricSpec{spec, spec},
	}}}

	if err := c.Validate(); err == nil {
		t.Fatal("expected validation error")
	}
}
