package process

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"

	kserrors "github.com/katattakd/katsite/internal/errors"
)

// waitDelay bounds how long Wait keeps draining stdout after the plugin was
// killed, in case a descendant outside its process group holds the pipe.
const waitDelay = 2 * time.Second

// Runner executes plugin processes.
type Runner struct {
	pluginDir string
	stderr    io.Writer
	timeout   time.Duration
}

// Option configures a Runner.
type Option func(*Runner)

// WithStderr redirects plugin stderr (default os.Stderr).
func WithStderr(w io.Writer) Option {
	return func(r *Runner) { r.stderr = w }
}

// WithTimeout kills a plugin that runs longer than d. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// NewRunner creates a Runner resolving plugins under pluginDir.
func NewRunner(pluginDir string, opts ...Option) *Runner {
	r := &Runner{pluginDir: pluginDir, stderr: os.Stderr}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Path returns the executable path for a plugin name.
func (r *Runner) Path(plugin string) string {
	return filepath.Join(r.pluginDir, plugin)
}

// Check verifies that the plugin exists and is executable.
func (r *Runner) Check(plugin string) error {
	path := r.Path(plugin)
	info, err := os.Stat(path)
	if err != nil {
		return kserrors.PluginUnavailable(plugin, err).WithContext("path", path)
	}
	if info.IsDir() {
		return kserrors.PluginUnavailable(plugin, fmt.Errorf("%s is a directory", path)).WithContext("path", path)
	}
	if info.Mode().Perm()&0o111 == 0 {
		return kserrors.PluginUnavailable(plugin, fmt.Errorf("%s is not executable", path)).WithContext("path", path)
	}
	return nil
}

// Invoke runs one plugin process to completion.
//
// The returned error is non-nil only when the process could not be spawned,
// which callers treat as fatal, or when ctx was already done, in which case
// it is ctx.Err() unwrapped. Every other failure (non-zero exit, broken stdin
// pipe, timeout, cancellation mid-run) is reported through Result.Success.
func (r *Runner) Invoke(ctx context.Context, inv Invocation) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	parent := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	path := r.Path(inv.Plugin)
	args := make([]string, 0, 1+len(inv.Args))
	args = append(args, inv.Hook)
	args = append(args, inv.Args...)

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Env = buildEnv(inv.Env)
	cmd.Stderr = r.stderr
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	var stdin io.WriteCloser
	if inv.Payload != nil {
		var err error
		stdin, err = cmd.StdinPipe()
		if err != nil {
			return Result{}, kserrors.PluginUnavailable(inv.Plugin, err).WithContext("hook", inv.Hook)
		}
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		if ctxErr := parent.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		if ctx.Err() != nil {
			return Result{ExitCode: -1, TimedOut: true, Err: ctx.Err()}, nil
		}
		return Result{}, kserrors.PluginUnavailable(inv.Plugin, err).
			WithContext("hook", inv.Hook).
			WithContext("path", path)
	}

	// stdout is drained by exec's own copier goroutine, so a plugin that
	// writes before it finishes reading cannot block this write.
	var writeErr error
	if stdin != nil {
		_, writeErr = stdin.Write(inv.Payload)
		if closeErr := stdin.Close(); writeErr == nil {
			writeErr = closeErr
		}
	}

	waitErr := cmd.Wait()
	res := Result{
		Output:   stdout.Bytes(),
		Duration: time.Since(start),
	}

	switch {
	case waitErr != nil:
		res.Err = waitErr
		res.ExitCode = -1
		var exitErr *exec.ExitError
		if stderrors.As(waitErr, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		}
		res.TimedOut = r.timeout > 0 && parent.Err() == nil && stderrors.Is(ctx.Err(), context.DeadlineExceeded)
	case writeErr != nil && !(stderrors.Is(writeErr, syscall.EPIPE) && len(res.Output) == 0):
		// A plugin that exits zero without reading stdin and without output
		// opted out of the hook; any other short delivery is a failure.
		res.Err = fmt.Errorf("write payload: %w", writeErr)
	default:
		res.Success = true
	}
	return res, nil
}
