package hooks

import (
	"context"
	"errors"
	"sync"

	"github.com/katattakd/katsite/internal/process"
)

// behavior scripts a fake plugin's response to a single invocation.
type behavior func(inv process.Invocation) (process.Result, error)

func replaceWith(out string) behavior {
	return func(process.Invocation) (process.Result, error) {
		return process.Result{Success: true, Output: []byte(out)}, nil
	}
}

func appendMarker(marker string) behavior {
	return func(inv process.Invocation) (process.Result, error) {
		out := append([]byte(nil), inv.Payload...)
		return process.Result{Success: true, Output: append(out, marker...)}, nil
	}
}

func emptySuccess() behavior {
	return func(process.Invocation) (process.Result, error) {
		return process.Result{Success: true}, nil
	}
}

func failWith(code int, out string) behavior {
	return func(process.Invocation) (process.Result, error) {
		return process.Result{ExitCode: code, Output: []byte(out), Err: errors.New("exit status")}, nil
	}
}

// cancelDuring cancels the run while the plugin is running; the plugin is
// then killed, as the process runner would do.
func cancelDuring(cancel context.CancelFunc) behavior {
	return func(process.Invocation) (process.Result, error) {
		cancel()
		return process.Result{ExitCode: -1, Err: errors.New("signal: killed")}, nil
	}
}

func timedOut() behavior {
	return func(process.Invocation) (process.Result, error) {
		return process.Result{ExitCode: -1, TimedOut: true, Err: errors.New("signal: killed")}, nil
	}
}

func unspawnable() behavior {
	return func(inv process.Invocation) (process.Result, error) {
		return process.Result{}, errors.New("unable to start " + inv.Plugin)
	}
}

type fakeInvoker struct {
	mu        sync.Mutex
	behaviors map[string]behavior
	calls     []process.Invocation
	checkErr  map[string]error
}

func newFakeInvoker(behaviors map[string]behavior) *fakeInvoker {
	return &fakeInvoker{behaviors: behaviors, checkErr: map[string]error{}}
}

func (f *fakeInvoker) Invoke(ctx context.Context, inv process.Invocation) (process.Result, error) {
	if err := ctx.Err(); err != nil {
		return process.Result{}, err
	}
	f.mu.Lock()
	f.calls = append(f.calls, inv)
	b := f.behaviors[inv.Plugin]
	f.mu.Unlock()
	if b == nil {
		return process.Result{Success: true}, nil
	}
	return b(inv)
}

func (f *fakeInvoker) Check(plugin string) error {
	return f.checkErr[plugin]
}

func (f *fakeInvoker) Calls() []process.Invocation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]process.Invocation(nil), f.calls...)
}

type warningLog struct {
	mu       sync.Mutex
	warnings []Warning
}

func (w *warningLog) PluginWarning(warning Warning) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.warnings = append(w.warnings, warning)
}

func (w *warningLog) All() []Warning {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Warning(nil), w.warnings...)
}
