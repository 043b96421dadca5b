package build

import (
	"context"
	"log/slog"
	"time"

	"github.com/katattakd/katsite/internal/config"
	"github.com/katattakd/katsite/internal/eventstore"
	"github.com/katattakd/katsite/internal/hooks"
	"github.com/katattakd/katsite/internal/logfields"
	"github.com/katattakd/katsite/internal/retry"
	"github.com/katattakd/katsite/internal/version"
)

// journalRetry absorbs lock contention when several runs share one journal.
var journalRetry = retry.NewPolicy(retry.BackoffExponential, 20*time.Millisecond, 500*time.Millisecond, 4)

// journal appends run events to an optional store. Journal failures are
// logged and never fail the run.
type journal struct {
	ctx    context.Context
	store  eventstore.Store
	runID  string
	logger *slog.Logger
}

func newJournal(ctx context.Context, store eventstore.Store, runID string, logger *slog.Logger) *journal {
	return &journal{
		ctx:    context.WithoutCancel(ctx),
		store:  store,
		runID:  runID,
		logger: logger,
	}
}

func (j *journal) append(event *eventstore.BaseEvent, err error) {
	if j.store == nil {
		return
	}
	if err == nil {
		err = retry.Do(j.ctx, journalRetry, eventstore.IsBusy, func() error {
			return eventstore.AppendEvent(j.ctx, j.store, event)
		})
	}
	if err != nil {
		j.logger.Warn("Failed to journal build event", logfields.Error(err))
	}
}

func (j *journal) runStarted(cfg *config.Config, workers int) {
	if j.store == nil {
		return
	}
	j.append(eventstore.NewRunStarted(j.runID, eventstore.RunStartedMeta{
		Plugins:   cfg.Plugins,
		Workers:   workers,
		InputGlob: cfg.Files.InputGlob,
		OutputDir: cfg.Files.OutputDir,
		Version:   version.Version,
	}))
}

func (j *journal) jobOutcome(o JobOutcome) {
	if j.store == nil {
		return
	}
	switch o.Status {
	case JobBuilt:
		j.append(eventstore.NewFileBuilt(j.runID, o.Job.Input, o.Job.Output, o.Duration))
	case JobSkipped:
		j.append(eventstore.NewFileSkipped(j.runID, o.Job.Input, o.Reason))
	}
}

func (j *journal) pluginWarning(w hooks.Warning) {
	if j.store == nil {
		return
	}
	j.append(eventstore.NewPluginWarning(j.runID, eventstore.PluginWarningData{
		Hook:     w.Hook,
		Plugin:   w.Plugin,
		File:     w.File,
		ExitCode: w.ExitCode,
		TimedOut: w.TimedOut,
	}))
}

func (j *journal) runCompleted(res *Result, runErr error) {
	if j.store == nil {
		return
	}
	data := eventstore.RunCompletedData{
		Status:   string(res.Status),
		Files:    res.Files,
		Built:    res.Built,
		Skipped:  res.Skipped,
		Warnings: len(res.Warnings),
		Duration: res.Duration,
	}
	if runErr != nil {
		data.Error = runErr.Error()
	}
	j.append(eventstore.NewRunCompleted(j.runID, data))
}
