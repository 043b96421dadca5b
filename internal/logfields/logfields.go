package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyHook       = "hook"
	KeyPlugin     = "plugin"
	KeyFile       = "file"
	KeyOutput     = "output"
	KeyExitCode   = "exit_code"
	KeyDurationMS = "duration_ms"
	KeyWorkers    = "workers"
	KeyFiles      = "files"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Hook(name string) slog.Attr      { return slog.String(KeyHook, name) }
func Plugin(name string) slog.Attr    { return slog.String(KeyPlugin, name) }
func File(path string) slog.Attr      { return slog.String(KeyFile, path) }
func Output(path string) slog.Attr    { return slog.String(KeyOutput, path) }
func ExitCode(code int) slog.Attr     { return slog.Int(KeyExitCode, code) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Workers(n int) slog.Attr         { return slog.Int(KeyWorkers, n) }
func Files(n int) slog.Attr           { return slog.Int(KeyFiles, n) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
