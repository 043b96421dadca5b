package build

import (
	"context"
	stderrors "errors"
	"slices"
	"sync"
	"time"

	"github.com/katattakd/katsite/internal/hooks"
	"github.com/katattakd/katsite/internal/metrics"
)

// BuildStatus represents the outcome of a run.
type BuildStatus string

const (
	// BuildStatusSuccess indicates every file was built without plugin warnings.
	BuildStatusSuccess BuildStatus = "success"

	// BuildStatusWarning indicates the run completed with plugin warnings or skipped files.
	BuildStatusWarning BuildStatus = "warning"

	// BuildStatusFailed indicates the run was aborted by a fatal error.
	BuildStatusFailed BuildStatus = "failed"

	// BuildStatusCancelled indicates the run was interrupted.
	BuildStatusCancelled BuildStatus = "cancelled"
)

// IsSuccess returns true if every discovered file was processed.
func (s BuildStatus) IsSuccess() bool {
	return s == BuildStatusSuccess || s == BuildStatusWarning
}

func (s BuildStatus) metricsLabel() metrics.BuildOutcomeLabel {
	switch s {
	case BuildStatusSuccess:
		return metrics.BuildOutcomeSuccess
	case BuildStatusWarning:
		return metrics.BuildOutcomeWarning
	default:
		return metrics.BuildOutcomeFailed
	}
}

// Result contains the outcome of a run.
type Result struct {
	RunID  string
	Status BuildStatus

	// Files is the number of discovered input files.
	Files   int
	Built   int
	Skipped int

	// Warnings holds every recoverable plugin failure, in the order reported.
	Warnings []hooks.Warning

	Duration  time.Duration
	StartTime time.Time
	EndTime   time.Time
}

// report collects outcomes from every worker and plugin warnings from the
// dispatcher, and forwards both to the journal.
type report struct {
	mu      sync.Mutex
	result  Result
	journal *journal
}

var _ hooks.Observer = (*report)(nil)

func newReport(runID string, start time.Time, j *journal) *report {
	return &report{
		result:  Result{RunID: runID, StartTime: start},
		journal: j,
	}
}

func (r *report) PluginWarning(w hooks.Warning) {
	r.mu.Lock()
	r.result.Warnings = append(r.result.Warnings, w)
	r.mu.Unlock()
	r.journal.pluginWarning(w)
}

func (r *report) setFiles(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.Files = n
}

func (r *report) record(o JobOutcome) {
	r.mu.Lock()
	switch o.Status {
	case JobBuilt:
		r.result.Built++
	case JobSkipped:
		r.result.Skipped++
	}
	r.mu.Unlock()
	r.journal.jobOutcome(o)
}

// finish freezes the report. err is the run's fatal error, if any.
func (r *report) finish(end time.Time, err error) *Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := r.result
	res.Warnings = slices.Clone(r.result.Warnings)
	res.EndTime = end
	res.Duration = end.Sub(res.StartTime)
	switch {
	case err != nil && (stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)):
		res.Status = BuildStatusCancelled
	case err != nil:
		res.Status = BuildStatusFailed
	case len(res.Warnings) > 0 || res.Skipped > 0:
		res.Status = BuildStatusWarning
	default:
		res.Status = BuildStatusSuccess
	}
	return &res
}
