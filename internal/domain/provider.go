package domain

import "context"

// Directory enumerates monitorable resources.
type Directory interface {
	// ListResources returns every resource whose lifecycle state is in
	// states, following pagination internally. Failures are returned as
	// *DiscoveryError.
	ListResources(ctx context.Context, states []LifecycleState) ([]Resource, error)
}

// TelemetrySource answers read-only metric statistic queries.
type TelemetrySource interface {
	GetMetricStatistics(ctx context.Context, q MetricQuery) ([]Observation, error)
}

// Provider is a cloud that can both discover resources and serve their
// telemetry.
type Provider interface {
	GetDisplayName() string
	Directory
	TelemetrySource
}
