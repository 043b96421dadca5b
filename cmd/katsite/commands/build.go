package commands

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/katattakd/katsite/internal/build"
	"github.com/katattakd/katsite/internal/config"
	"github.com/katattakd/katsite/internal/eventstore"
	"github.com/katattakd/katsite/internal/logfields"
	"github.com/katattakd/katsite/internal/metrics"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output          string `short:"o" help:"Override files.output_dir"`
	Input           string `short:"i" help:"Override files.input_glob"`
	Workers         int    `short:"j" help:"Override thread_pool_size (0 keeps the configured value)"`
	Journal         string `help:"Override journal.path"`
	MetricsTextfile string `name:"metrics-textfile" help:"Override metrics.textfile"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if err := b.applyOverrides(cfg); err != nil {
		return err
	}
	_, err = RunBuild(g.ctx(), cfg, slog.Default())
	return err
}

// applyOverrides folds command-line overrides into cfg and re-validates it.
func (b *BuildCmd) applyOverrides(cfg *config.Config) error {
	if b.Output != "" {
		cfg.Files.OutputDir = b.Output
	}
	if b.Input != "" {
		cfg.Files.InputGlob = b.Input
	}
	if b.Workers != 0 {
		cfg.ThreadPoolSize = b.Workers
	}
	if b.Journal != "" {
		cfg.Journal.Path = b.Journal
	}
	if b.MetricsTextfile != "" {
		cfg.Metrics.Textfile = b.MetricsTextfile
	}
	return config.ValidateConfig(cfg)
}

// RunBuild executes one build of cfg, wiring the optional journal and
// metrics textfile around it.
func RunBuild(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*build.Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	opts := []build.Option{build.WithLogger(logger)}

	var registry *prometheus.Registry
	if cfg.Metrics.Textfile != "" {
		registry = prometheus.NewRegistry()
		opts = append(opts, build.WithRecorder(metrics.NewPrometheusRecorder(registry)))
	}

	if cfg.Journal.Path != "" {
		store, err := eventstore.NewSQLiteStore(cfg.Journal.Path)
		if err != nil {
			return nil, err
		}
		defer func() {
			if cerr := store.Close(); cerr != nil {
				logger.Warn("Failed to close build journal", logfields.Error(cerr))
			}
		}()
		opts = append(opts, build.WithJournal(store))
	}

	res, err := build.NewService(opts...).Run(ctx, cfg)
	logSummary(logger, res)

	if registry != nil {
		if werr := metrics.WriteTextfile(registry, cfg.Metrics.Textfile); werr != nil {
			logger.Warn("Failed to write metrics textfile",
				slog.String("path", cfg.Metrics.Textfile),
				logfields.Error(werr))
		}
	}
	return res, err
}

func logSummary(logger *slog.Logger, res *build.Result) {
	if res == nil {
		return
	}
	attrs := []any{
		logfields.RunID(res.RunID),
		slog.String("status", string(res.Status)),
		logfields.Files(res.Files),
		slog.Int("built", res.Built),
		slog.Int("skipped", res.Skipped),
		slog.Int("warnings", len(res.Warnings)),
		logfields.DurationMS(float64(res.Duration.Microseconds()) / 1000),
	}
	if res.Status.IsSuccess() {
		logger.Info("Build completed", attrs...)
		return
	}
	logger.Error("Build did not complete", attrs...)
}
