package runlog

import "time"

const (
	KindCollect = "collect"
	KindLoad    = "load"
)

const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeError   = "error"
	OutcomeNoop    = "noop"
)

// Run is one persisted collect or load run.
type Run struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Provider    string    `json:"provider,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	WindowStart time.Time `json:"window_start,omitzero"`
	WindowEnd   time.Time `json:"window_end,omitzero"`
	Outcome     string    `json:"outcome"`
	Args        string    `json:"args,omitempty"`
	ObjectURI   string    `json:"object_uri,omitempty"`
	Resources   int       `json:"resources"`
	Rows        int       `json:"rows"`
	Failures    int       `json:"failures"`
	Files       int       `json:"files"`
	Skipped     int       `json:"skipped"`
	Detail      string    `json:"detail,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
}

// Succeeded reports whether the run produced its output, even if some
// resource metrics were missing.
func (r Run) Succeeded() bool {
	return r.Outcome == OutcomeSuccess || r.Outcome == OutcomePartial || r.Outcome == OutcomeNoop
}
