// Package api serves the warehouse read side over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"nathanbeddoewebdev/fleetmetrics/internal/domain"
	"nathanbeddoewebdev/fleetmetrics/internal/warehouse"
)

const (
	defaultWindow     = 30
	defaultSeriesDays = 30
	defaultMetric     = "CPUUtilization"
)

// Reader is the warehouse read contract used by the handlers.
type Reader interface {
	Ping(ctx context.Context) error
	Summaries(ctx context.Context, window int, resourceIDs []string) ([]domain.WindowSummary, error)
	KnownResources(ctx context.Context) ([]domain.ResourceInfo, error)
	Resource(ctx context.Context, id string) (domain.ResourceInfo, error)
	DailySeries(ctx context.Context, resourceID, metric string, days int, now time.Time) ([]warehouse.DailyPoint, error)
}

var _ Reader = (*warehouse.Warehouse)(nil)

type handler struct {
	reader Reader
	log    *zap.Logger
	now    func() time.Time
}

// NewRouter returns the read-only API. gatherer backs /metrics.
func NewRouter(reader Reader, gatherer prometheus.Gatherer, log *zap.Logger) *mux.Router {
	if log == nil {
		log = zap.NewNop()
	}
	h := &handler{reader: reader, log: log, now: time.Now}

	r := mux.NewRouter()
	r.Use(h.logRequests)

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.HandleFunc("/resources", h.listResources).Methods(http.MethodGet)
	r.HandleFunc("/resources/{id}", h.getResource).Methods(http.MethodGet)
	r.HandleFunc("/resources/{id}/series", h.getSeries).Methods(http.MethodGet)
	r.HandleFunc("/summary", h.summary).Methods(http.MethodGet)
	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.reader.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listResources(w http.ResponseWriter, r *http.Request) {
	resources, err := h.reader.KnownResources(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if resources == nil {
		resources = []domain.ResourceInfo{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": resources})
}

func (h *handler) getResource(w http.ResponseWriter, r *http.Request) {
	res, err := h.reader.Resource(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) getSeries(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	q := r.URL.Query()

	metric := q.Get("metric")
	if metric == "" {
		metric = defaultMetric
	}
	days, err := intParam(q.Get("days"), defaultSeriesDays)
	if err != nil || days <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "days must be a positive integer"})
		return
	}

	series, err := h.reader.DailySeries(r.Context(), id, metric, days, h.now())
	if err != nil {
		h.writeError(w, err)
		return
	}
	if series == nil {
		series = []warehouse.DailyPoint{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"resource_id": id, "metric": metric, "days": series})
}

func (h *handler) summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window, err := intParam(q.Get("window"), defaultWindow)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "window must be an integer"})
		return
	}

	rows, err := h.reader.Summaries(r.Context(), window, q["resource"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	if rows == nil {
		rows = []domain.WindowSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"window_days": window, "resources": rows})
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, warehouse.ErrInvalidWindow):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	default:
		h.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
