package runlog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"nathanbeddoewebdev/fleetmetrics/internal/database"
	"nathanbeddoewebdev/fleetmetrics/internal/domain"
)

// Repository defines the persistence interface for run records.
type Repository interface {
	Save(run *Run) error
	List(limit int) ([]Run, error)
	ListByKind(kind string, limit int) ([]Run, error)
	LastSuccess(kind, provider string) (*Run, error)
	Prune(olderThan time.Duration) (int64, error)
	Close() error
}

// SQLiteRepository implements Repository backed by a local SQLite database.
type SQLiteRepository struct {
	db *sql.DB
}

// Open creates or opens the run ledger at the default path.
func Open() (*SQLiteRepository, error) {
	path, err := database.DefaultPath()
	if err != nil {
		return nil, fmt.Errorf("runlog: %w", err)
	}
	return OpenAt(path)
}

// OpenAt creates or opens a SQLite database at the given path.
func OpenAt(path string) (*SQLiteRepository, error) {
	db, err := database.Open(path)
	if err != nil {
		return nil, fmt.Errorf("runlog: %w", err)
	}

	r := &SQLiteRepository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) migrate() error {
	const ddl = `
        CREATE TABLE IF NOT EXISTS runs (
            id           TEXT    PRIMARY KEY,
            kind         TEXT    NOT NULL,
            provider     TEXT    NOT NULL DEFAULT '',
            started_at   TEXT    NOT NULL,
            window_start TEXT    NOT NULL DEFAULT '',
            window_end   TEXT    NOT NULL DEFAULT '',
            outcome      TEXT    NOT NULL DEFAULT '',
            args         TEXT    NOT NULL DEFAULT '',
            object_uri   TEXT    NOT NULL DEFAULT '',
            resources    INTEGER NOT NULL DEFAULT 0,
            rows_written INTEGER NOT NULL DEFAULT 0,
            failures     INTEGER NOT NULL DEFAULT 0,
            files        INTEGER NOT NULL DEFAULT 0,
            skipped      INTEGER NOT NULL DEFAULT 0,
            detail       TEXT    NOT NULL DEFAULT '',
            duration_ms  INTEGER NOT NULL DEFAULT 0
        );
        CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
        CREATE INDEX IF NOT EXISTS idx_runs_kind ON runs(kind, provider, outcome);
    `
	if _, err := r.db.Exec(ddl); err != nil {
		return fmt.Errorf("runlog: migration failed: %w", err)
	}
	return nil
}

const selectColumns = `id, started_at, kind, provider, window_start, window_end, outcome, args,
               object_uri, resources, rows_written, failures, files, skipped, detail, duration_ms`

// Save inserts a run, or replaces it when the id already exists.
func (r *SQLiteRepository) Save(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	_, err := r.db.Exec(`
        INSERT OR REPLACE INTO runs (id, started_at, kind, provider, window_start, window_end, outcome, args,
            object_uri, resources, rows_written, failures, files, skipped, detail, duration_ms)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, formatTime(run.StartedAt), run.Kind, run.Provider,
		formatTime(run.WindowStart), formatTime(run.WindowEnd), run.Outcome, run.Args,
		run.ObjectURI, run.Resources, run.Rows, run.Failures, run.Files, run.Skipped, run.Detail, run.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("runlog: insert failed: %w", err)
	}
	return nil
}

// List returns the most recent n runs.
func (r *SQLiteRepository) List(limit int) ([]Run, error) {
	rows, err := r.db.Query(`SELECT `+selectColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("runlog: query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// ListByKind returns the most recent n runs of one kind.
func (r *SQLiteRepository) ListByKind(kind string, limit int) ([]Run, error) {
	rows, err := r.db.Query(`SELECT `+selectColumns+` FROM runs WHERE kind = ? ORDER BY started_at DESC LIMIT ?`, kind, limit)
	if err != nil {
		return nil, fmt.Errorf("runlog: query failed: %w", err)
	}
	defer rows.Close()
	return scanRows(rows)
}

// LastSuccess returns the most recent run of kind for provider that
// produced output. It returns domain.ErrNotFound when there is none.
func (r *SQLiteRepository) LastSuccess(kind, provider string) (*Run, error) {
	rows, err := r.db.Query(`SELECT `+selectColumns+` FROM runs
        WHERE kind = ? AND provider = ? AND outcome IN (?, ?, ?)
        ORDER BY started_at DESC LIMIT 1`,
		kind, provider, OutcomeSuccess, OutcomePartial, OutcomeNoop)
	if err != nil {
		return nil, fmt.Errorf("runlog: query failed: %w", err)
	}
	defer rows.Close()

	runs, err := scanRows(rows)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, fmt.Errorf("runlog: no successful %s run for %q: %w", kind, provider, domain.ErrNotFound)
	}
	return &runs[0], nil
}

// Prune deletes runs older than the given duration.
func (r *SQLiteRepository) Prune(olderThan time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().UTC().Add(-olderThan))
	result, err := r.db.Exec(`DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("runlog: delete failed: %w", err)
	}
	return result.RowsAffected()
}

// Close releases database resources.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Timestamps are stored with a fixed-width layout so text ordering matches
// time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, s)
}

func scanRows(rows *sql.Rows) ([]Run, error) {
	var runs []Run
	for rows.Next() {
		var (
			run                       Run
			started, winStart, winEnd string
		)
		err := rows.Scan(
			&run.ID, &started, &run.Kind, &run.Provider, &winStart, &winEnd, &run.Outcome, &run.Args,
			&run.ObjectURI, &run.Resources, &run.Rows, &run.Failures, &run.Files, &run.Skipped,
			&run.Detail, &run.DurationMs,
		)
		if err != nil {
			return nil, fmt.Errorf("runlog: scan failed: %w", err)
		}
		var perr error
		if run.StartedAt, err = parseTime(started); err != nil {
			perr = errors.Join(perr, err)
		}
		if run.WindowStart, err = parseTime(winStart); err != nil {
			perr = errors.Join(perr, err)
		}
		if run.WindowEnd, err = parseTime(winEnd); err != nil {
			perr = errors.Join(perr, err)
		}
		if perr != nil {
			return nil, fmt.Errorf("runlog: run %s: %w", run.ID, perr)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
