// Package catalog declares which metrics, statistics and units are pulled
// from each telemetry namespace.
package catalog

import (
	"errors"
	"fmt"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
)

// Namespace groups the metrics of one telemetry namespace together with
// the dimension that identifies a resource inside it.
type Namespace struct {
	Name         string
	DimensionKey string
	Metrics      []domain.MetricSpec
}

// Catalog is the immutable set of namespaces pulled in one run.
type Catalog struct {
	Namespaces []Namespace
}

// Len returns the number of metrics across all namespaces.
func (c Catalog) Len() int {
	n := 0
	for _, ns := range c.Namespaces {
		n += len(ns.Metrics)
	}
	return n
}

// Validate rejects empty namespaces, duplicate metrics and statistics
// outside the fixed set.
func (c Catalog) Validate() error {
	var errs []error
	seen := make(map[string]bool)
	for _, ns := range c.Namespaces {
		if ns.Name == "" {
			errs = append(errs, errors.New("catalog: namespace with empty name"))
			continue
		}
		if ns.DimensionKey == "" {
			errs = append(errs, fmt.Errorf("catalog: namespace %s has no dimension key", ns.Name))
		}
		for _, m := range ns.Metrics {
			key := ns.Name + "/" + m.Name
			if seen[key] {
				errs = append(errs, fmt.Errorf("catalog: duplicate metric %s", key))
			}
			seen[key] = true
			if m.Namespace != ns.Name {
				errs = append(errs, fmt.Errorf("catalog: metric %s declares namespace %q", key, m.Namespace))
			}
			if len(m.Statistics) == 0 {
				errs = append(errs, fmt.Errorf("catalog: metric %s requests no statistics", key))
			}
			for _, s := range m.Statistics {
				parsed, err := domain.ParseStatistic(string(s))
				switch {
				case err != nil:
					errs = append(errs, fmt.Errorf("catalog: metric %s: %w", key, err))
				case !s.Valid():
					errs = append(errs, fmt.Errorf("catalog: metric %s: %w: %q must be written %q",
						key, domain.ErrUnsupportedStatistic, s, parsed))
				}
			}
		}
	}
	return errors.Join(errs...)
}

func metric(ns, name string, cat domain.Category, unit string, stats ...domain.Statistic) domain.MetricSpec {
	return domain.MetricSpec{Name: name, Namespace: ns, Statistics: stats, Category: cat, Unit: unit}
}

// Options tune the catalog built for a provider.
type Options struct {
	// MemoryNamespace is the agent namespace that reports memory on AWS.
	// Empty disables memory metrics.
	MemoryNamespace string
}

// ForProvider returns the catalog for a registered provider name.
func ForProvider(name string, opts Options) (Catalog, error) {
	var c Catalog
	switch name {
	case "aws":
		c = EC2(opts.MemoryNamespace)
	case "hetzner":
		c = Hetzner()
	default:
		return Catalog{}, fmt.Errorf("catalog: no catalog for provider %q", name)
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}
