package metrics

import "time"

// ResultLabel enumerates hook and file result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultWarning ResultLabel = "warning"
	ResultSkipped ResultLabel = "skipped"
	ResultFatal   ResultLabel = "fatal"
)

// BuildOutcomeLabel is the final status of a whole run.
type BuildOutcomeLabel string

const (
	BuildOutcomeSuccess BuildOutcomeLabel = "success"
	BuildOutcomeWarning BuildOutcomeLabel = "warning"
	BuildOutcomeFailed  BuildOutcomeLabel = "failed"
)

// Recorder defines observability hooks for run, job and plugin metrics.
// Implementations must be safe for concurrent use; jobs report from every worker.
type Recorder interface {
	ObserveHookDuration(hook, plugin string, d time.Duration)
	IncHookResult(hook, plugin string, result ResultLabel)
	ObserveBuildDuration(d time.Duration)
	IncBuildOutcome(outcome BuildOutcomeLabel)
	IncFileResult(result ResultLabel)
	AddJobsInFlight(delta int)
	SetWorkers(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveHookDuration(string, string, time.Duration) {}
func (NoopRecorder) IncHookResult(string, string, ResultLabel)         {}
func (NoopRecorder) ObserveBuildDuration(time.Duration)                {}
func (NoopRecorder) IncBuildOutcome(BuildOutcomeLabel)                 {}
func (NoopRecorder) IncFileResult(ResultLabel)                         {}
func (NoopRecorder) AddJobsInFlight(int)                               {}
func (NoopRecorder) SetWorkers(int)                                    {}
