// Package objectstore is the durable buffer between collection and load.
package objectstore

import (
	"context"
	"io"
	"time"
)

// Object describes one listed object.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is the object storage contract used by the pipeline. Objects are
// written once and never overwritten.
type Store interface {
	Put(ctx context.Context, bucket, key string, body []byte, contentType string, metadata map[string]string) error
	List(ctx context.Context, bucket, prefix string) ([]Object, error)
	Open(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}
