package warehouse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
)

// DefaultBatchSize is the number of rows committed per transaction.
const DefaultBatchSize = 1000

const upsertSQL = `
INSERT INTO resource_metrics_daily (
	resource_id, metric_name, day,
	provider, resource_name, resource_type, availability_zone, platform,
	namespace, category, unit,
	stat_average, stat_maximum, stat_minimum, stat_sum,
	stat_p50, stat_p90, stat_p95, stat_p99,
	sample_count, loaded_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (resource_id, metric_name, day) DO UPDATE SET
	provider          = EXCLUDED.provider,
	resource_name     = EXCLUDED.resource_name,
	resource_type     = EXCLUDED.resource_type,
	availability_zone = EXCLUDED.availability_zone,
	platform          = EXCLUDED.platform,
	namespace         = EXCLUDED.namespace,
	category          = EXCLUDED.category,
	unit              = EXCLUDED.unit,
	stat_average      = EXCLUDED.stat_average,
	stat_maximum      = EXCLUDED.stat_maximum,
	stat_minimum      = EXCLUDED.stat_minimum,
	stat_sum          = EXCLUDED.stat_sum,
	stat_p50          = EXCLUDED.stat_p50,
	stat_p90          = EXCLUDED.stat_p90,
	stat_p95          = EXCLUDED.stat_p95,
	stat_p99          = EXCLUDED.stat_p99,
	sample_count      = EXCLUDED.sample_count,
	loaded_at         = EXCLUDED.loaded_at`

// LoadReport summarizes one Load call.
type LoadReport struct {
	Rows          int                      `json:"rows"`
	Batches       int                      `json:"batches"`
	FailedBatches int                      `json:"failed_batches"`
	Errors        []*domain.LoadBatchError `json:"-"`
}

// Loader upserts daily aggregates in independent batches.
type Loader struct {
	Warehouse *Warehouse
	BatchSize int
	Now       func() time.Time
}

// NewLoader returns a Loader with the default batch size.
func NewLoader(w *Warehouse) *Loader {
	return &Loader{Warehouse: w, BatchSize: DefaultBatchSize, Now: time.Now}
}

// Load upserts aggregates. A failing batch is rolled back and recorded in
// the report; later batches still run. The error is non-nil only when the
// context ends.
func (l *Loader) Load(ctx context.Context, aggregates []domain.DailyAggregate) (LoadReport, error) {
	var report LoadReport
	size := l.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	log := l.Warehouse.log

	for start := 0; start < len(aggregates); start += size {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		end := min(start+size, len(aggregates))
		batch := aggregates[start:end]
		report.Batches++

		if err := l.loadBatch(ctx, batch, now().UTC()); err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			be := &domain.LoadBatchError{Batch: report.Batches, Rows: len(batch), Code: errorCode(err), Err: err}
			report.FailedBatches++
			report.Errors = append(report.Errors, be)
			log.Error("warehouse batch rolled back",
				zap.Int("batch", be.Batch),
				zap.Int("rows", be.Rows),
				zap.String("code", be.Code),
				zap.Error(err),
			)
			continue
		}
		report.Rows += len(batch)
		log.Debug("warehouse batch committed", zap.Int("batch", report.Batches), zap.Int("rows", len(batch)))
	}
	return report, nil
}

func (l *Loader) loadBatch(ctx context.Context, batch []domain.DailyAggregate, loadedAt time.Time) (err error) {
	w := l.Warehouse
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, w.bind(upsertSQL))
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, a := range batch {
		s := a.Stats
		_, err = stmt.ExecContext(ctx,
			a.ResourceID, a.Metric, w.dayArg(a.Day),
			a.Provider, a.ResourceName, a.ResourceType, a.AvailabilityZone, a.Platform,
			a.Namespace, a.Category, a.Unit,
			nullFloat(s.Average), nullFloat(s.Maximum), nullFloat(s.Minimum), nullFloat(s.Sum),
			nullFloat(s.P50), nullFloat(s.P90), nullFloat(s.P95), nullFloat(s.P99),
			a.SampleCount, w.timeArg(loadedAt),
		)
		if err != nil {
			return fmt.Errorf("upsert %s/%s: %w", a.ResourceID, a.Metric, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func errorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}
