package catalog

import "nathanbeddoewebdev/fleetmetrics/internal/domain"

const (
	EC2Namespace           = "AWS/EC2"
	DefaultMemoryNamespace = "CWAgent"
	ec2DimensionInstanceID = "InstanceId"
	unitPercent            = "Percent"
	unitBytes              = "Bytes"
	unitCount              = "Count"
	unitBytesPerSecond     = "Bytes/Second"
	unitCountPerSecond     = "Count/Second"
)

var (
	avg  = domain.StatAverage
	peak = domain.StatMaximum
	low  = domain.StatMinimum
	sum  = domain.StatSum
	p95  = domain.StatP95
	p99  = domain.StatP99
)

// EC2 returns the standard EC2 catalog plus agent-reported memory metrics
// from memoryNamespace when it is non-empty.
func EC2(memoryNamespace string) Catalog {
	ns := EC2Namespace
	std := Namespace{
		Name:         ns,
		DimensionKey: ec2DimensionInstanceID,
		Metrics: []domain.MetricSpec{
			metric(ns, "CPUUtilization", domain.CategoryCompute, unitPercent, avg, peak, low, p95, p99),
			metric(ns, "CPUCreditUsage", domain.CategoryCompute, unitCount, sum, peak, low),
			metric(ns, "CPUCreditBalance", domain.CategoryCompute, unitCount, avg),
			metric(ns, "CPUSurplusCreditBalance", domain.CategoryCompute, unitCount, avg),
			metric(ns, "CPUSurplusCreditsCharged", domain.CategoryCompute, unitCount, sum),

			metric(ns, "DiskReadBytes", domain.CategoryDisk, unitBytes, sum, avg),
			metric(ns, "DiskWriteBytes", domain.CategoryDisk, unitBytes, sum, avg),
			metric(ns, "DiskReadOps", domain.CategoryDisk, unitCount, sum, avg),
			metric(ns, "DiskWriteOps", domain.CategoryDisk, unitCount, sum, avg),

			metric(ns, "NetworkIn", domain.CategoryNetwork, unitBytes, sum, avg),
			metric(ns, "NetworkOut", domain.CategoryNetwork, unitBytes, sum, avg),
			metric(ns, "NetworkPacketsIn", domain.CategoryNetwork, unitCount, sum, avg),
			metric(ns, "NetworkPacketsOut", domain.CategoryNetwork, unitCount, sum, avg),

			metric(ns, "StatusCheckFailed", domain.CategoryReliability, unitCount, sum),
			metric(ns, "StatusCheckFailed_Instance", domain.CategoryReliability, unitCount, sum),
			metric(ns, "StatusCheckFailed_System", domain.CategoryReliability, unitCount, sum),

			metric(ns, "EBSReadBytes", domain.CategoryBlockStorage, unitBytes, sum, avg),
			metric(ns, "EBSWriteBytes", domain.CategoryBlockStorage, unitBytes, sum, avg),
			metric(ns, "EBSReadOps", domain.CategoryBlockStorage, unitCount, sum, avg),
			metric(ns, "EBSWriteOps", domain.CategoryBlockStorage, unitCount, sum, avg),
			metric(ns, "EBSIOBalance%", domain.CategoryBlockStorage, unitPercent, avg),
			metric(ns, "EBSByteBalance%", domain.CategoryBlockStorage, unitPercent, avg),
		},
	}

	c := Catalog{Namespaces: []Namespace{std}}
	if memoryNamespace == "" {
		return c
	}

	mns := memoryNamespace
	c.Namespaces = append(c.Namespaces, Namespace{
		Name:         mns,
		DimensionKey: ec2DimensionInstanceID,
		Metrics: []domain.MetricSpec{
			metric(mns, "mem_used_percent", domain.CategoryMemory, unitPercent, avg, peak, p95),
			metric(mns, "mem_used", domain.CategoryMemory, unitBytes, avg, peak),
			metric(mns, "mem_available", domain.CategoryMemory, unitBytes, avg, low),
			metric(mns, "mem_total", domain.CategoryMemory, unitBytes, avg),
			metric(mns, "mem_cached", domain.CategoryMemory, unitBytes, avg),
			metric(mns, "mem_buffered", domain.CategoryMemory, unitBytes, avg),
		},
	})
	return c
}
