package jobmetrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRun(t *testing.T) {
	m := New()
	start := time.Unix(1_700_000_000, 0)

	m.ObserveRun("collect", "success", true, start, start.Add(30*time.Second))
	m.ObserveRun("collect", "error", false, start, start.Add(time.Second))

	if got := testutil.ToFloat64(m.Runs.WithLabelValues("collect", "success")); got != 1 {
		t.Errorf("success runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.Runs.WithLabelValues("collect", "error")); got != 1 {
		t.Errorf("error runs = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.LastSuccess.WithLabelValues("collect")); got != float64(start.Add(30*time.Second).Unix()) {
		t.Errorf("last success = %v", got)
	}
}

func TestPush(t *testing.T) {
	var (
		method, path string
		body         []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.Rows.WithLabelValues("normalized").Add(42)

	if err := m.Push(context.Background(), srv.URL, "fleetmetrics_collect", map[string]string{"provider": "aws"}); err != nil {
		t.Fatalf("Push error: %v", err)
	}
	if method != http.MethodPut {
		t.Errorf("method = %s, want PUT", method)
	}
	if path != "/metrics/job/fleetmetrics_collect/provider/aws" {
		t.Errorf("path = %s", path)
	}
	if len(body) == 0 {
		t.Error("expected a non-empty payload")
	}
}

func TestPush_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	err := New().Push(context.Background(), srv.URL, "fleetmetrics_load", nil)
	if err == nil || !strings.Contains(err.Error(), "jobmetrics: push") {
		t.Fatalf("expected wrapped push error, got %v", err)
	}
}
