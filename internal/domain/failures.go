package domain

import (
	"fmt"
	"time"
)

// DiscoveryError is returned by a Directory when resources cannot be
// enumerated. It aborts a collection run.
type DiscoveryError struct {
	Provider string
	Err      error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery failed for %s: %v", e.Provider, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// MetricFetchError records a failed (resource, metric) fetch. It is never
// escalated past the extractor.
type MetricFetchError struct {
	ResourceID string
	Namespace  string
	Metric     string
	Err        error
}

func (e *MetricFetchError) Error() string {
	return fmt.Sprintf("fetch %s/%s for %s: %v", e.Namespace, e.Metric, e.ResourceID, e.Err)
}

func (e *MetricFetchError) Unwrap() error { return e.Err }

// StorageWriteError means a run produced no durable object.
type StorageWriteError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("write %s/%s: %v", e.Bucket, e.Key, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// StorageReadError is returned when listing or reading an object fails.
type StorageReadError struct {
	Bucket string
	Key    string
	Err    error
}

func (e *StorageReadError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("list %s: %v", e.Bucket, e.Err)
	}
	return fmt.Sprintf("read %s/%s: %v", e.Bucket, e.Key, e.Err)
}

func (e *StorageReadError) Unwrap() error { return e.Err }

// PartitionPathError is returned when an object key does not carry a
// valid year=/month=/day= partition.
type PartitionPathError struct {
	Key    string
	Reason string
}

func (e *PartitionPathError) Error() string {
	return fmt.Sprintf("unparsable partition path %q: %s", e.Key, e.Reason)
}

// TimestampParseError marks a row dropped because its observation time is
// missing or invalid.
type TimestampParseError struct {
	ResourceID string
	Metric     string
	Value      time.Time
}

func (e *TimestampParseError) Error() string {
	return fmt.Sprintf("invalid timestamp %q for %s/%s", e.Value.Format(time.RFC3339), e.ResourceID, e.Metric)
}

// LoadBatchError records a warehouse batch that was rolled back.
type LoadBatchError struct {
	Batch int
	Rows  int
	// Code is the database error code (SQLSTATE for Postgres), when known.
	Code string
	Err  error
}

func (e *LoadBatchError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("batch %d (%d rows) rolled back [%s]: %v", e.Batch, e.Rows, e.Code, e.Err)
	}
	return fmt.Sprintf("batch %d (%d rows) rolled back: %v", e.Batch, e.Rows, e.Err)
}

func (e *LoadBatchError) Unwrap() error { return e.Err }
