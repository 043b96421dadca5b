package build

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/katattakd/katsite/internal/config"
	"github.com/katattakd/katsite/internal/discovery"
	kserrors "github.com/katattakd/katsite/internal/errors"
	"github.com/katattakd/katsite/internal/eventstore"
	"github.com/katattakd/katsite/internal/hooks"
	"github.com/katattakd/katsite/internal/logfields"
	"github.com/katattakd/katsite/internal/markdown"
	"github.com/katattakd/katsite/internal/metrics"
	"github.com/katattakd/katsite/internal/process"
)

// BuildService is the interface the CLI drives.
type BuildService interface {
	// Run executes one complete build: init → discover → build → postinit.
	// The Result is always non-nil; the error is the run's fatal error.
	Run(ctx context.Context, cfg *config.Config) (*Result, error)
}

// Service is the standard BuildService.
type Service struct {
	recorder     metrics.Recorder
	store        eventstore.Store
	pluginStderr io.Writer
	logger       *slog.Logger
}

var _ BuildService = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithJournal appends run events to store. The caller owns the store.
func WithJournal(store eventstore.Store) Option {
	return func(s *Service) { s.store = store }
}

// WithPluginStderr sets where plugin diagnostics go (default os.Stderr).
func WithPluginStderr(w io.Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.pluginStderr = w
		}
	}
}

// WithLogger overrides the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service.
func NewService(opts ...Option) *Service {
	s := &Service{
		recorder:     metrics.NoopRecorder{},
		pluginStderr: os.Stderr,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes a build of cfg.
func (s *Service) Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	logger := s.logger.With(logfields.RunID(runID))
	workers := cfg.Workers()
	s.recorder.SetWorkers(workers)

	jr := newJournal(ctx, s.store, runID, logger)
	rep := newReport(runID, start, jr)
	finish := func(err error) (*Result, error) {
		res := rep.finish(time.Now(), err)
		s.recorder.ObserveBuildDuration(res.Duration)
		s.recorder.IncBuildOutcome(res.Status.metricsLabel())
		jr.runCompleted(res, err)
		return res, err
	}

	outputDir, err := filepath.Abs(cfg.Files.OutputDir)
	if err != nil {
		return finish(kserrors.OutputUncreatable(cfg.Files.OutputDir, err))
	}

	runner := process.NewRunner(cfg.Hooks.PluginDir,
		process.WithStderr(s.pluginStderr),
		process.WithTimeout(cfg.Hooks.TimeoutDuration()))
	dispatcher := hooks.NewDispatcher(runner, cfg.Plugins,
		hooks.WithWorkers(workers),
		hooks.WithEnv(map[string]string{
			hooks.EnvRunID:     runID,
			hooks.EnvOutputDir: outputDir,
		}),
		hooks.WithRecorder(s.recorder),
		hooks.WithObserver(rep),
		hooks.WithLogger(logger))

	jr.runStarted(cfg, workers)
	if err := dispatcher.Preflight(); err != nil {
		return finish(err)
	}

	logger.Info("Starting build",
		logfields.Workers(workers),
		slog.Int("plugins", len(cfg.Plugins)),
		slog.String("input_glob", cfg.Files.InputGlob))

	initTask := dispatcher.StartBroadcast(ctx, hooks.Init)

	jobs, err := discovery.Discover(cfg.Files.InputGlob, cfg.Files.OutputDir)
	if err != nil {
		return finish(s.abort(initTask, logger, err))
	}
	rep.setFiles(len(jobs))
	logger.Debug("Discovered input files", logfields.Files(len(jobs)))

	if err := os.MkdirAll(cfg.Files.OutputDir, 0o755); err != nil {
		return finish(s.abort(initTask, logger, kserrors.OutputUncreatable(cfg.Files.OutputDir, err)))
	}
	if err := writeStylesheet(cfg.Files.OutputDir, cfg.HTML); err != nil {
		return finish(s.abort(initTask, logger, err))
	}

	pipeline := NewPipeline(dispatcher, markdown.New(MarkdownOptions(cfg.Markdown)), cfg, logger)
	if err := s.runJobs(ctx, pipeline, jobs, workers, rep); err != nil {
		return finish(s.abort(initTask, logger, err))
	}

	if err := dispatcher.Broadcast(ctx, hooks.Postinit); err != nil {
		return finish(s.abort(initTask, logger, err))
	}

	return finish(initTask.Wait())
}

// runJobs builds every job on a pool of workers. The first fatal error
// cancels the remaining jobs and is returned once every worker has stopped.
func (s *Service) runJobs(ctx context.Context, pipeline *Pipeline, jobs []discovery.Job, workers int, rep *report) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			s.recorder.AddJobsInFlight(1)
			defer s.recorder.AddJobsInFlight(-1)

			outcome, err := pipeline.Process(gctx, job)
			if err != nil {
				s.recorder.IncFileResult(metrics.ResultFatal)
				return err
			}
			if outcome.Status == JobSkipped {
				s.recorder.IncFileResult(metrics.ResultSkipped)
			} else {
				s.recorder.IncFileResult(metrics.ResultSuccess)
			}
			rep.record(outcome)
			return nil
		})
	}
	return g.Wait()
}

// abort joins the background init hook before a fatal error ends the run, so
// no lifecycle plugin outlives the process.
func (s *Service) abort(initTask *hooks.Task, logger *slog.Logger, err error) error {
	if initErr := initTask.Wait(); initErr != nil {
		logger.Warn("Init hook failed during abort", logfields.Error(initErr))
	}
	return err
}
