package catalog

import "nathanbeddoewebdev/fleetmetrics/internal/domain"

const (
	HetznerNamespace = "Hetzner/Server"
	// HetznerDimensionServerID carries the numeric server ID.
	HetznerDimensionServerID = "server_id"
)

// Hetzner returns the catalog of hcloud server metric series. The hcloud
// API only serves one value per step, reported here as Average.
func Hetzner() Catalog {
	ns := HetznerNamespace
	return Catalog{Namespaces: []Namespace{{
		Name:         ns,
		DimensionKey: HetznerDimensionServerID,
		Metrics: []domain.MetricSpec{
			metric(ns, "cpu", domain.CategoryCompute, unitPercent, avg),
			metric(ns, "disk.0.iops.read", domain.CategoryDisk, unitCountPerSecond, avg),
			metric(ns, "disk.0.iops.write", domain.CategoryDisk, unitCountPerSecond, avg),
			metric(ns, "disk.0.bandwidth.read", domain.CategoryDisk, unitBytesPerSecond, avg),
			metric(ns, "disk.0.bandwidth.write", domain.CategoryDisk, unitBytesPerSecond, avg),
			metric(ns, "network.0.bandwidth.in", domain.CategoryNetwork, unitBytesPerSecond, avg),
			metric(ns, "network.0.bandwidth.out", domain.CategoryNetwork, unitBytesPerSecond, avg),
			metric(ns, "network.0.pps.in", domain.CategoryNetwork, unitCountPerSecond, avg),
			metric(ns, "network.0.pps.out", domain.CategoryNetwork, unitCountPerSecond, avg),
		},
	}}}
}
