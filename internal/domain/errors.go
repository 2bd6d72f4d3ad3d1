package domain

import "errors"

// Sentinel errors for cross-provider error classification.
// Providers should wrap these so the pipeline can handle error categories
// uniformly without importing provider-specific SDKs.
//
//	return fmt.Errorf("failed to list instances: %w", domain.ErrUnauthorized)
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrUnauthorized indicates the request was rejected due to
	// invalid, expired, or missing credentials, or missing permissions.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrConflict indicates a state or uniqueness conflict.
	ErrConflict = errors.New("conflict")

	// ErrUnsupportedStatistic indicates a statistic name outside the
	// fixed set, or one the telemetry source cannot compute.
	ErrUnsupportedStatistic = errors.New("unsupported statistic")

	// ErrLeaseHeld indicates another run currently holds the run lease.
	ErrLeaseHeld = errors.New("run lease held by another process")
)
