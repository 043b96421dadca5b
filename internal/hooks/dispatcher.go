package hooks

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/katattakd/katsite/internal/logfields"
	"github.com/katattakd/katsite/internal/metrics"
	"github.com/katattakd/katsite/internal/process"
)

// Dispatcher runs hooks over an ordered, immutable plugin list. It is safe for
// concurrent use by every build worker.
type Dispatcher struct {
	invoker  Invoker
	plugins  []string
	workers  int
	env      map[string]string
	recorder metrics.Recorder
	observer Observer
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithWorkers bounds how many plugins a broadcast hook runs at once.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) { d.workers = n }
}

// WithEnv sets variables passed to every plugin invocation.
func WithEnv(env map[string]string) Option {
	return func(d *Dispatcher) { d.env = maps.Clone(env) }
}

// WithRecorder injects a metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(d *Dispatcher) {
		if r != nil {
			d.recorder = r
		}
	}
}

// WithObserver registers the receiver of plugin warnings.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) {
		if o != nil {
			d.observer = o
		}
	}
}

// WithLogger overrides the logger used for warnings (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// NewDispatcher creates a Dispatcher for plugins, which are invoked in the given order.
func NewDispatcher(invoker Invoker, plugins []string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		invoker:  invoker,
		plugins:  slices.Clone(plugins),
		recorder: metrics.NoopRecorder{},
		observer: NoopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.workers < 1 {
		d.workers = 1
	}
	return d
}

// Plugins returns a copy of the ordered plugin list.
func (d *Dispatcher) Plugins() []string {
	return slices.Clone(d.plugins)
}

// Preflight checks every plugin when the invoker can do so. The first
// unavailable plugin is returned as a fatal error.
func (d *Dispatcher) Preflight() error {
	checker, ok := d.invoker.(Checker)
	if !ok {
		return nil
	}
	for _, p := range d.plugins {
		if err := checker.Check(p); err != nil {
			return err
		}
	}
	return nil
}

// Broadcast invokes every plugin for hook concurrently, without a payload, and
// waits for all of them. Plugin failures are warnings; the returned error is
// the first spawn failure or ctx.Err() after cancellation, reported only after
// every other plugin has exited.
func (d *Dispatcher) Broadcast(ctx context.Context, hook string) error {
	var g errgroup.Group
	g.SetLimit(d.workers)
	for _, p := range d.plugins {
		g.Go(func() error {
			_, _, err := d.invoke(ctx, p, hook, nil, "")
			return err
		})
	}
	return g.Wait()
}

// StartBroadcast runs Broadcast in the background and returns a handle to join it.
func (d *Dispatcher) StartBroadcast(ctx context.Context, hook string) *Task {
	t := &Task{hook: hook, done: make(chan struct{})}
	go func() {
		defer close(t.done)
		t.err = d.Broadcast(ctx, hook)
	}()
	return t
}

// Chain threads buf through every plugin for hook, in list order. A plugin's
// output replaces the buffer only when it exits zero with non-empty output.
// file, when set, is passed to each plugin after the hook name. Cancelling ctx
// stops the chain and returns ctx.Err() without a warning.
func (d *Dispatcher) Chain(ctx context.Context, hook string, buf []byte, file string) ([]byte, error) {
	if buf == nil {
		buf = []byte{}
	}
	for _, p := range d.plugins {
		out, ok, err := d.invoke(ctx, p, hook, buf, file)
		if err != nil {
			return buf, err
		}
		if ok && len(out) > 0 {
			buf = out
		}
	}
	return buf, nil
}

func (d *Dispatcher) invoke(ctx context.Context, plugin, hook string, payload []byte, file string) ([]byte, bool, error) {
	inv := process.Invocation{
		Plugin:  plugin,
		Hook:    hook,
		Payload: payload,
		Env:     d.envFor(hook),
	}
	if file != "" {
		inv.Args = []string{file}
	}

	res, err := d.invoker.Invoke(ctx, inv)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, false, ctxErr
		}
		d.recorder.IncHookResult(hook, plugin, metrics.ResultFatal)
		return nil, false, err
	}
	// A plugin killed because the run was cancelled did not fail on its own.
	if ctxErr := ctx.Err(); ctxErr != nil && !res.Success && !res.TimedOut {
		return nil, false, ctxErr
	}
	d.recorder.ObserveHookDuration(hook, plugin, res.Duration)

	if !res.Success {
		d.recorder.IncHookResult(hook, plugin, metrics.ResultWarning)
		d.warn(Warning{
			Hook:     hook,
			Plugin:   plugin,
			File:     file,
			ExitCode: res.ExitCode,
			TimedOut: res.TimedOut,
			Err:      res.Err,
		})
		return nil, false, nil
	}
	d.recorder.IncHookResult(hook, plugin, metrics.ResultSuccess)
	return res.Output, true, nil
}

func (d *Dispatcher) warn(w Warning) {
	attrs := []any{
		logfields.Plugin(w.Plugin),
		logfields.Hook(w.Hook),
		logfields.ExitCode(w.ExitCode),
	}
	if w.File != "" {
		attrs = append(attrs, logfields.File(w.File))
	}
	if w.TimedOut {
		attrs = append(attrs, slog.Bool("timed_out", true))
	}
	if w.Err != nil {
		attrs = append(attrs, logfields.Error(w.Err))
	}
	d.logger.Warn("Plugin failed", attrs...)
	d.observer.PluginWarning(w)
}

func (d *Dispatcher) envFor(hook string) map[string]string {
	env := make(map[string]string, len(d.env)+1)
	maps.Copy(env, d.env)
	env[EnvHook] = hook
	return env
}
