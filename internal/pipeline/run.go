// Package pipeline wires discovery, extraction, storage and loading into
// the two scheduled runs: collect and load.
package pipeline

import (
	"time"

	"github.com/google/uuid"

	"nathanbeddoewebdev/fleetmetrics/internal/extract"
	"nathanbeddoewebdev/fleetmetrics/internal/runlog"
)

// RunContext identifies one run and the window it covers. It is passed
// explicitly to every stage.
type RunContext struct {
	ID        string
	StartedAt time.Time
	Window    extract.Window
	Period    time.Duration
}

// NewRunContext returns a run with a fresh id started at now.
func NewRunContext(now time.Time, window extract.Window, period time.Duration) RunContext {
	return RunContext{
		ID:        uuid.NewString(),
		StartedAt: now.UTC(),
		Window:    window,
		Period:    period,
	}
}

// PlanWindow returns the extraction window ending at now. The window covers
// lookback, unless last is a previous successful run: then it starts at
// that run's window end minus overlap, never earlier than now-lookback.
// A partial run had pairs that fetched nothing, so its whole window is
// extracted again.
func PlanWindow(now time.Time, lookback, overlap time.Duration, last *runlog.Run) extract.Window {
	end := now.UTC().Truncate(time.Minute)
	start := end.Add(-lookback)

	if from := resumePoint(last); !from.IsZero() {
		resume := from.UTC().Add(-overlap)
		if resume.After(start) {
			start = resume
		}
		if !start.Before(end) {
			start = end.Add(-max(overlap, time.Minute))
		}
	}
	return extract.Window{Start: start, End: end}
}

func resumePoint(last *runlog.Run) time.Time {
	if last == nil {
		return time.Time{}
	}
	if last.Outcome == runlog.OutcomePartial && !last.WindowStart.IsZero() {
		return last.WindowStart
	}
	return last.WindowEnd
}
