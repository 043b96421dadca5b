// Package eventstore journals build runs to SQLite and projects them into
// run summaries.
package eventstore

import (
	"context"
	"slices"
	"time"
)

// StatusRunning marks a run with no RunCompleted event, either still in
// progress or interrupted.
const StatusRunning = "running"

// RunSummary is a read model summarizing one run.
type RunSummary struct {
	RunID       string        `json:"run_id"`
	Status      string        `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
	Plugins     []string      `json:"plugins,omitempty"`
	Files       int           `json:"files"`
	Built       int           `json:"built"`
	Skipped     int           `json:"skipped"`
	Warnings    int           `json:"warnings"`
	Error       string        `json:"error,omitempty"`
}

// Summarize folds events into one summary per run, newest first.
func Summarize(events []Event) []RunSummary {
	runs := make(map[string]*RunSummary)
	var order []string

	for _, event := range events {
		runID := event.RunID()
		if runID == "" {
			continue
		}
		summary, exists := runs[runID]
		if !exists {
			summary = &RunSummary{
				RunID:     runID,
				Status:    StatusRunning,
				StartedAt: event.Timestamp(),
			}
			runs[runID] = summary
			order = append(order, runID)
		}
		applyEvent(summary, event)
	}

	out := make([]RunSummary, 0, len(order))
	for _, id := range order {
		out = append(out, *runs[id])
	}
	slices.SortStableFunc(out, func(a, b RunSummary) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	return out
}

func applyEvent(summary *RunSummary, event Event) {
	switch event.Type() {
	case TypeRunStarted:
		summary.StartedAt = event.Timestamp()
		if meta, err := Decode[RunStartedMeta](event); err == nil {
			summary.Plugins = meta.Plugins
		}

	case TypeFileBuilt:
		summary.Built++

	case TypeFileSkipped:
		summary.Skipped++

	case TypePluginWarning:
		summary.Warnings++

	case TypeRunCompleted:
		now := event.Timestamp()
		summary.CompletedAt = &now
		summary.Duration = now.Sub(summary.StartedAt)
		if data, err := Decode[RunCompletedData](event); err == nil {
			if data.Status != "" {
				summary.Status = data.Status
			}
			summary.Files = data.Files
			summary.Error = data.Error
			if data.Duration > 0 {
				summary.Duration = data.Duration
			}
		}
	}
}

// LoadHistory reads the events in [start, end] and summarizes them.
func LoadHistory(ctx context.Context, store Store, start, end time.Time) ([]RunSummary, error) {
	events, err := store.GetRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return Summarize(events), nil
}
