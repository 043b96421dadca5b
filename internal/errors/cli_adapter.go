package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Exit codes follow the BSD sysexits convention.
const (
	ExitOK         = 0
	ExitGeneral    = 1
	ExitUsage      = 64
	ExitDataErr    = 65
	ExitNoInput    = 66
	ExitSoftware   = 70
	ExitOSErr      = 71
	ExitCantCreate = 73
	ExitIOErr      = 74
	ExitConfig     = 78

	// ExitInterrupted follows the shell convention of 128+SIGINT.
	ExitInterrupted = 130
)

// CLIErrorAdapter handles error presentation and exit code determination for CLI applications.
type CLIErrorAdapter struct {
	verbose bool
	logger  *slog.Logger
	out     io.Writer
	exit    func(int)
}

// NewCLIErrorAdapter creates a new CLI error adapter.
func NewCLIErrorAdapter(verbose bool, logger *slog.Logger) *CLIErrorAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIErrorAdapter{
		verbose: verbose,
		logger:  logger,
		out:     os.Stderr,
		exit:    os.Exit,
	}
}

// ExitCodeFor determines the appropriate exit code for an error.
func (a *CLIErrorAdapter) ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	if stderrors.Is(err, context.Canceled) {
		return ExitInterrupted
	}

	if kse, ok := As(err); ok {
		return a.exitCodeFromKatSite(kse)
	}

	return ExitGeneral
}

// exitCodeFromKatSite maps KatSiteError to exit codes.
func (a *CLIErrorAdapter) exitCodeFromKatSite(err *KatSiteError) int {
	switch err.Category {
	case CategoryUsage:
		return ExitUsage
	case CategoryConfig:
		return ExitConfig
	case CategoryNoInput:
		return ExitNoInput
	case CategoryData:
		return ExitDataErr
	case CategoryFileSystem:
		return ExitIOErr
	case CategoryCantCreate:
		return ExitCantCreate
	case CategoryPlugin:
		return ExitOSErr
	case CategoryInternal:
		return ExitSoftware
	default:
		return ExitGeneral
	}
}

// FormatError formats an error for user-friendly display.
func (a *CLIErrorAdapter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	if stderrors.Is(err, context.Canceled) {
		return "Interrupted: build cancelled"
	}

	if kse, ok := As(err); ok {
		return a.formatKatSite(kse)
	}

	return fmt.Sprintf("Error: %v", err)
}

// formatKatSite formats a KatSiteError for display.
func (a *CLIErrorAdapter) formatKatSite(err *KatSiteError) string {
	if a.verbose {
		return err.Error()
	}

	msg := err.Message
	if err.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, err.Cause)
	}

	switch err.Category {
	case CategoryConfig, CategoryNoInput, CategoryUsage:
		return msg
	default:
		return fmt.Sprintf("%s: %s", err.Category, msg)
	}
}

// HandleError processes an error and exits the program with appropriate code.
func (a *CLIErrorAdapter) HandleError(err error) {
	if err == nil {
		return
	}

	exitCode := a.ExitCodeFor(err)
	message := a.FormatError(err)

	if a.verbose {
		a.logError(err)
	}

	_, _ = fmt.Fprintf(a.out, "%s\n", message)
	a.exit(exitCode)
}

// logError logs an error with its category and context.
func (a *CLIErrorAdapter) logError(err error) {
	if kse, ok := As(err); ok {
		attrs := []slog.Attr{
			slog.String("category", string(kse.Category)),
		}
		for k, v := range kse.Context {
			attrs = append(attrs, slog.Any(k, v))
		}
		a.logger.LogAttrs(context.Background(), slog.LevelError, kse.Message, attrs...)
		return
	}

	a.logger.Error("Unclassified error", "error", err)
}
