package warehouse

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrations embed.FS

// goose keeps its dialect, filesystem and logger in package state.
var gooseMu sync.Mutex

// SchemaStatus describes the applied and available migration versions.
type SchemaStatus struct {
	Dialect Dialect `json:"dialect"`
	Current int64   `json:"current"`
	Latest  int64   `json:"latest"`
	Pending int     `json:"pending"`
}

func (w *Warehouse) migrationsDir() string {
	if w.dialect == Postgres {
		return "migrations/postgres"
	}
	return "migrations/sqlite"
}

func (w *Warehouse) gooseDialect() string {
	if w.dialect == Postgres {
		return "postgres"
	}
	return "sqlite3"
}

func (w *Warehouse) withGoose(fn func() error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)
	goose.SetLogger(gooseLogger{log: w.log.Sugar()})
	if err := goose.SetDialect(w.gooseDialect()); err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}
	return fn()
}

// ApplySchema creates or upgrades the base table and views. It is safe to
// call on every run.
func (w *Warehouse) ApplySchema(ctx context.Context) error {
	return w.withGoose(func() error {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()

		w.log.Info("applying warehouse schema", zap.String("dialect", string(w.dialect)))
		if err := goose.UpContext(runCtx, w.db, w.migrationsDir()); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		return nil
	})
}

// RollbackSchema reverts the most recent migration.
func (w *Warehouse) RollbackSchema(ctx context.Context) error {
	return w.withGoose(func() error {
		if err := goose.DownContext(ctx, w.db, w.migrationsDir()); err != nil {
			return fmt.Errorf("rollback migration: %w", err)
		}
		return nil
	})
}

// Status reports the applied schema version against the embedded migrations.
func (w *Warehouse) Status(ctx context.Context) (SchemaStatus, error) {
	st := SchemaStatus{Dialect: w.dialect}
	err := w.withGoose(func() error {
		all, err := goose.CollectMigrations(w.migrationsDir(), 0, goose.MaxVersion)
		if err != nil {
			return fmt.Errorf("collect migrations: %w", err)
		}
		if last, err := all.Last(); err == nil {
			st.Latest = last.Version
		} else if !errors.Is(err, goose.ErrNoNextVersion) {
			return fmt.Errorf("latest migration: %w", err)
		}

		current, err := goose.GetDBVersionContext(ctx, w.db)
		if err != nil {
			return fmt.Errorf("schema version: %w", err)
		}
		st.Current = current
		for _, m := range all {
			if m.Version > current {
				st.Pending++
			}
		}
		return nil
	})
	return st, err
}

type gooseLogger struct {
	log *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...any) { l.log.Debugf(format, v...) }
func (l gooseLogger) Fatalf(format string, v ...any) { l.log.Errorf(format, v...) }
