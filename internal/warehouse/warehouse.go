package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"nathanbeddoewebdev/fleetmetrics/internal/database"
)

// Dialect identifies the SQL flavor of a warehouse connection.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

const dayLayout = "2006-01-02"

// SQLite compares loaded_at as text, so the layout is fixed width.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Windows are the rolling windows exposed by the views, in days.
var Windows = []int{10, 30, 60, 90}

// Tables lists the base table and every view, in the order counts are
// reported.
var Tables = []string{
	"resource_metrics_daily",
	"v_resource_metrics_10d",
	"v_resource_metrics_30d",
	"v_resource_metrics_60d",
	"v_resource_metrics_90d",
	"v_resource_summary",
}

// ParseDialect maps a configured driver name to a Dialect.
func ParseDialect(driver string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	default:
		return "", fmt.Errorf("warehouse: unknown driver %q (want postgres or sqlite)", driver)
	}
}

// Warehouse is a connection to the daily-aggregate store.
type Warehouse struct {
	db      *sql.DB
	dialect Dialect
	log     *zap.Logger
}

// Open connects to the warehouse. For SQLite the dsn is a file path.
func Open(driver, dsn string, log *zap.Logger) (*Warehouse, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("warehouse: empty dsn")
	}
	if log == nil {
		log = zap.NewNop()
	}

	var db *sql.DB
	switch dialect {
	case Postgres:
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("warehouse: open postgres: %w", err)
		}
	case SQLite:
		db, err = database.Open(dsn)
		if err != nil {
			return nil, fmt.Errorf("warehouse: %w", err)
		}
	}
	return &Warehouse{db: db, dialect: dialect, log: log}, nil
}

// New wraps an existing connection.
func New(db *sql.DB, dialect Dialect, log *zap.Logger) *Warehouse {
	if log == nil {
		log = zap.NewNop()
	}
	return &Warehouse{db: db, dialect: dialect, log: log}
}

// Dialect reports the SQL flavor of the connection.
func (w *Warehouse) Dialect() Dialect { return w.dialect }

// DB exposes the underlying handle.
func (w *Warehouse) DB() *sql.DB { return w.db }

// Ping checks that the warehouse is reachable.
func (w *Warehouse) Ping(ctx context.Context) error {
	if err := w.db.PingContext(ctx); err != nil {
		return fmt.Errorf("warehouse: ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (w *Warehouse) Close() error { return w.db.Close() }

// bind rewrites ? placeholders into the dialect's positional form.
func (w *Warehouse) bind(query string) string {
	if w.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (w *Warehouse) dayArg(t time.Time) any {
	day := t.UTC().Truncate(24 * time.Hour)
	if w.dialect == SQLite {
		return day.Format(dayLayout)
	}
	return day
}

func (w *Warehouse) timeArg(t time.Time) any {
	if w.dialect == SQLite {
		return t.UTC().Format(timeLayout)
	}
	return t.UTC()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func parseDay(s string) (time.Time, error) {
	// Postgres renders DATE as text in ISO form; SQLite stores it that way.
	if len(s) > len(dayLayout) {
		s = s[:len(dayLayout)]
	}
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("warehouse: parse day %q: %w", s, err)
	}
	return t, nil
}
