// Package errors provides a lightweight structured error type (KatSiteError)
// for category-based classification of fatal build failures and their exit codes.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory represents the category of a KatSite error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryUsage   ErrorCategory = "usage"
	CategoryConfig  ErrorCategory = "config"
	CategoryNoInput ErrorCategory = "noinput"

	// Build and processing errors
	CategoryData       ErrorCategory = "data"
	CategoryFileSystem ErrorCategory = "filesystem"
	CategoryCantCreate ErrorCategory = "cantcreate"

	// Plugin subprocess errors
	CategoryPlugin ErrorCategory = "plugin"

	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops the run
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// KatSiteError is a structured error with category, severity and context
type KatSiteError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for KatSiteError
type ContextFields map[string]any

// Error implements the error interface
func (e *KatSiteError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *KatSiteError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *KatSiteError) WithContext(key string, value any) *KatSiteError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new KatSiteError
func New(category ErrorCategory, severity ErrorSeverity, message string) *KatSiteError {
	return &KatSiteError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new KatSiteError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *KatSiteError {
	return &KatSiteError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// As finds the outermost KatSiteError in err's chain.
func As(err error) (*KatSiteError, bool) {
	var kse *KatSiteError
	if stderrors.As(err, &kse) {
		return kse, true
	}
	return nil, false
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if kse, ok := As(err); ok {
		return kse.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not a KatSiteError
func GetCategory(err error) ErrorCategory {
	if kse, ok := As(err); ok {
		return kse.Category
	}
	return CategoryInternal
}
