package build

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/katattakd/katsite/internal/config"
	"github.com/katattakd/katsite/internal/discovery"
	kserrors "github.com/katattakd/katsite/internal/errors"
	"github.com/katattakd/katsite/internal/hooks"
	"github.com/katattakd/katsite/internal/logfields"
	"github.com/katattakd/katsite/internal/markdown"
)

// JobStatus is the result of a single build job that did not fail the run.
type JobStatus string

const (
	JobBuilt   JobStatus = "built"
	JobSkipped JobStatus = "skipped"
)

// JobOutcome describes one processed file.
type JobOutcome struct {
	Job      discovery.Job
	Status   JobStatus
	Reason   string
	Bytes    int
	Duration time.Duration
}

// Pipeline converts one source file into one output file. It holds only
// read-only state and is shared by every worker.
type Pipeline struct {
	hooks     *hooks.Dispatcher
	renderer  *markdown.Renderer
	html      config.HTMLConfig
	outputDir string
	policy    config.InvalidUTF8Policy
	logger    *slog.Logger
}

// NewPipeline creates a Pipeline for cfg.
func NewPipeline(dispatcher *hooks.Dispatcher, renderer *markdown.Renderer, cfg *config.Config, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		hooks:     dispatcher,
		renderer:  renderer,
		html:      cfg.HTML,
		outputDir: cfg.Files.OutputDir,
		policy:    cfg.Markdown.InvalidUTF8,
		logger:    logger,
	}
}

// MarkdownOptions maps the markdown configuration to renderer options.
func MarkdownOptions(cfg config.MarkdownConfig) markdown.Options {
	return markdown.Options{
		HardWraps:   cfg.ConvertLineBreaks,
		Typographer: cfg.ConvertPunctuation,
		Unsafe:      cfg.EnableRawHTMLInlining,
		GitHub:      cfg.EnableGithubExtensions,
		Extra:       cfg.EnableExtraExtensions,
	}
}

// Process builds job. A returned error is fatal to the run: the input could
// not be read, a plugin could not be started, the output could not be
// written, or (with the abort policy) the markdown chain produced invalid
// UTF-8. Plugin failures only produce warnings.
func (p *Pipeline) Process(ctx context.Context, job discovery.Job) (JobOutcome, error) {
	start := time.Now()
	outcome := JobOutcome{Job: job}

	raw, err := os.ReadFile(job.Input)
	if err != nil {
		return outcome, kserrors.InputUnreadable(job.Input, err)
	}

	source, err := p.hooks.Chain(ctx, hooks.Markdown, raw, job.Input)
	if err != nil {
		return outcome, err
	}

	text, err := decodeText(source)
	if err != nil {
		if p.policy == config.InvalidUTF8Abort {
			return outcome, kserrors.InvalidEncoding(job.Input, err)
		}
		p.logger.Warn("Skipping file with invalid UTF-8", logfields.File(job.Input), logfields.Error(err))
		outcome.Status = JobSkipped
		outcome.Reason = err.Error()
		outcome.Duration = time.Since(start)
		return outcome, nil
	}

	rendered, err := p.renderer.Render(text)
	if err != nil {
		return outcome, kserrors.InternalError("unable to render markdown", fmt.Errorf("%w: %s: %w", ErrRender, job.Input, err))
	}

	doc, err := p.hooks.Chain(ctx, hooks.HTML, assemble(rendered, p.html, stylesheetHref(p.outputDir, job.Output)), job.Input)
	if err != nil {
		return outcome, err
	}
	if err := ctx.Err(); err != nil {
		return outcome, err
	}

	if err := writeOutput(job.Output, doc); err != nil {
		return outcome, kserrors.OutputUnwritable(job.Output, err)
	}

	outcome.Status = JobBuilt
	outcome.Bytes = len(doc)
	outcome.Duration = time.Since(start)
	p.logger.Debug("Built file",
		logfields.File(job.Input),
		logfields.Output(job.Output),
		logfields.DurationMS(float64(outcome.Duration.Microseconds())/1000))
	return outcome, nil
}

// writeOutput replaces path with data, creating parent directories for nested inputs.
func writeOutput(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
