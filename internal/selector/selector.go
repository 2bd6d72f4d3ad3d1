// Package selector picks the partition files a load run should read.
package selector

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
	"nathanbeddoewebdev/fleetmetrics/internal/objectstore"
	"nathanbeddoewebdev/fleetmetrics/internal/partition"
)

// Selection is one file chosen for loading.
type Selection struct {
	Key string
	// Date is the partition date, zero when Unparsed is set.
	Date time.Time
	// Unparsed marks a file included only because its path could not be read.
	Unparsed bool
}

// URI returns the s3-style URI of the selection within bucket.
func (s Selection) URI(bucket string) string {
	return "s3://" + bucket + "/" + s.Key
}

// SelectFiles lists data files under prefix and keeps those whose partition
// date is on or after the UTC day lookbackDays before now. Files whose path
// cannot be parsed are kept. lookbackDays <= 0 keeps every file.
func SelectFiles(ctx context.Context, store objectstore.Store, bucket, prefix string, lookbackDays int, now time.Time, log *zap.Logger) ([]Selection, error) {
	if log == nil {
		log = zap.NewNop()
	}
	objs, err := store.List(ctx, bucket, prefix)
	if err != nil {
		return nil, &domain.StorageReadError{Bucket: bucket, Err: err}
	}

	var cutoff time.Time
	if lookbackDays > 0 {
		today := now.UTC().Truncate(24 * time.Hour)
		cutoff = today.AddDate(0, 0, -lookbackDays)
	}

	var out []Selection
	skipped := 0
	for _, obj := range objs {
		if !strings.HasSuffix(obj.Key, partition.Extension) {
			continue
		}
		date, err := partition.ParseDate(obj.Key)
		if err != nil {
			var pathErr *domain.PartitionPathError
			if errors.As(err, &pathErr) {
				log.Warn("unparsable partition path, including", zap.String("key", obj.Key), zap.String("reason", pathErr.Reason))
			}
			out = append(out, Selection{Key: obj.Key, Unparsed: true})
			continue
		}
		if !cutoff.IsZero() && date.Before(cutoff) {
			skipped++
			continue
		}
		out = append(out, Selection{Key: obj.Key, Date: date})
	}

	log.Info("selected partition files",
		zap.Int("listed", len(objs)),
		zap.Int("selected", len(out)),
		zap.Int("outside_lookback", skipped),
		zap.Int("lookback_days", lookbackDays),
	)
	return out, nil
}
