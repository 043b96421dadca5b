// Package hooks drives named lifecycle and transform hooks across the ordered
// plugin list.
//
// Broadcast hooks (init, postinit) invoke every plugin independently with no
// payload and discard the output. Chain hooks (markdown, html) thread one
// buffer through the plugins in list order. In both modes a plugin that exits
// non-zero produces a warning and never aborts the run; only a plugin that
// cannot be spawned is fatal.
//
// # Plugin contract
//
// A plugin is an executable in the plugin directory, run as
//
//	<plugin> <hook> [file]
//
// with the working directory unchanged. Both chain hooks pass the source
// markdown path as the second argument, so an html plugin sees the .md file
// the page came from, not the .html file it will be written to. Broadcast
// hooks pass no file. Chain hooks write the buffer to stdin and read the
// replacement from stdout; empty stdout leaves the buffer untouched. Plugin
// stderr is forwarded to the build's stderr. KATSITE_RUN_ID, KATSITE_HOOK and
// KATSITE_OUTPUT_DIR are added to the inherited environment.
//
// A plugin that outlives the hook timeout is killed along with its process
// group and reported as a warning. When the build context is cancelled the
// running plugins are killed the same way, no warning is reported and the
// dispatcher returns the context error.
package hooks

import (
	"context"

	"github.com/katattakd/katsite/internal/process"
)

// Recognized hook names.
const (
	Init     = "init"
	Postinit = "postinit"
	Markdown = "markdown"
	HTML     = "html"
)

// Plugin environment variables set on every invocation.
const (
	EnvRunID     = "KATSITE_RUN_ID"
	EnvHook      = "KATSITE_HOOK"
	EnvOutputDir = "KATSITE_OUTPUT_DIR"
)

// Invoker runs a single plugin process. *process.Runner satisfies it.
type Invoker interface {
	Invoke(ctx context.Context, inv process.Invocation) (process.Result, error)
}

// Checker verifies a plugin can be executed before any hook runs.
type Checker interface {
	Check(plugin string) error
}

// Warning describes one recoverable plugin failure.
type Warning struct {
	Hook     string
	Plugin   string
	File     string
	ExitCode int
	TimedOut bool
	Err      error
}

// Observer receives every plugin warning emitted by a Dispatcher. Implementations
// must be safe for concurrent use.
type Observer interface {
	PluginWarning(w Warning)
}

// NoopObserver discards warnings.
type NoopObserver struct{}

func (NoopObserver) PluginWarning(Warning) {}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Warning)

func (f ObserverFunc) PluginWarning(w Warning) { f(w) }
