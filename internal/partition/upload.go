package partition

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
	"nathanbeddoewebdev/fleetmetrics/internal/objectstore"
	"nathanbeddoewebdev/fleetmetrics/internal/retry"
)

const (
	contentType = "application/octet-stream"
	sourceName  = "fleetmetrics-collector"
)

// Run identifies the collection run that produced a file.
type Run struct {
	ID        string
	StartedAt time.Time
	Rows      int
}

// Uploader writes encoded files to object storage.
type Uploader struct {
	Store  objectstore.Store
	Bucket string
	Prefix string
	// LocalCopyDir, when set, also receives a copy under the same key.
	LocalCopyDir string
	Retry        retry.Config
	Logger       *zap.Logger
}

// Upload stores data under a key derived from the run and returns its URI.
// Objects are never overwritten: a key collision fails the upload.
func (u *Uploader) Upload(ctx context.Context, data []byte, run Run) (string, error) {
	log := u.Logger
	if log == nil {
		log = zap.NewNop()
	}
	key := ObjectKey(u.Prefix, run.StartedAt, run.ID)
	metadata := map[string]string{
		"source":       sourceName,
		"extracted-at": run.StartedAt.UTC().Format(time.RFC3339),
		"run-id":       run.ID,
		"row-count":    strconv.Itoa(run.Rows),
	}

	cfg := u.Retry
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		log.Warn("upload failed, retrying",
			zap.String("key", key), zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(err))
	}
	err := retry.Do(ctx, cfg, retry.IsRetryable, func() error {
		return u.Store.Put(ctx, u.Bucket, key, data, contentType, metadata)
	})
	if err != nil {
		return "", &domain.StorageWriteError{Bucket: u.Bucket, Key: key, Err: err}
	}

	uri := fmt.Sprintf("s3://%s/%s", u.Bucket, key)
	log.Info("uploaded partition file", zap.String("uri", uri), zap.Int("bytes", len(data)), zap.Int("rows", run.Rows))

	if u.LocalCopyDir != "" {
		if err := writeLocalCopy(u.LocalCopyDir, key, data); err != nil {
			log.Warn("local copy failed", zap.String("key", key), zap.Error(err))
		}
	}
	return uri, nil
}

func writeLocalCopy(dir, key string, data []byte) error {
	p := filepath.Join(dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}
