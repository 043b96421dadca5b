package eventstore

// Sentinel errors for journal operations. Callers wrap them with the cause:
//
//	fmt.Errorf("%w: %w", ErrEventAppendFailed, err)
//
// All of them classify as internal errors.

import (
	"strings"

	kserrors "github.com/katattakd/katsite/internal/errors"
)

var (
	// ErrDatabaseOpenFailed indicates the SQLite database could not be opened.
	ErrDatabaseOpenFailed = kserrors.New(kserrors.CategoryInternal, kserrors.SeverityError, "could not open build journal")

	// ErrInitializeSchemaFailed indicates the database schema could not be initialized.
	ErrInitializeSchemaFailed = kserrors.New(kserrors.CategoryInternal, kserrors.SeverityError, "failed to initialize build journal schema")

	// ErrEventAppendFailed indicates appending an event failed.
	ErrEventAppendFailed = kserrors.New(kserrors.CategoryInternal, kserrors.SeverityError, "failed to append event to build journal")

	// ErrEventQueryFailed indicates querying events failed.
	ErrEventQueryFailed = kserrors.New(kserrors.CategoryInternal, kserrors.SeverityError, "failed to query events from build journal")

	// ErrMarshalPayloadFailed indicates JSON marshaling of an event payload failed.
	ErrMarshalPayloadFailed = kserrors.New(kserrors.CategoryInternal, kserrors.SeverityError, "failed to marshal event payload")
)

// IsBusy reports whether err is SQLite lock contention, which clears once
// another writer sharing the journal commits.
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}
