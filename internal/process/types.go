// Package process spawns plugin executables and exchanges one payload with them.
//
// A plugin is invoked as `<plugin_dir>/<name> <hook> [args...]`. When a payload is
// supplied it is written to the plugin's stdin, which is then closed to signal
// end-of-data. Stdout is captured; stderr is inherited so plugin diagnostics
// reach the build's own error output untouched.
package process

import "time"

// Invocation describes a single plugin process run.
type Invocation struct {
	// Plugin is the plugin name, resolved under the runner's plugin directory.
	Plugin string
	// Hook is passed as the first argument.
	Hook string
	// Payload is written to stdin when non-nil. A nil payload leaves stdin unconnected.
	Payload []byte
	// Args are appended after the hook name (e.g. the source filename).
	Args []string
	// Env is overlaid on the inherited environment.
	Env map[string]string
}

// Result holds the outcome of a plugin process that was successfully spawned.
type Result struct {
	// Success is true when the process exited with status zero and the payload
	// was delivered in full.
	Success  bool
	ExitCode int
	Output   []byte
	Duration time.Duration
	// TimedOut is set when the runner killed the process after its timeout.
	TimedOut bool
	// Err carries the transport or wait error behind a failed result.
	Err error
}
