package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown source type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrImportInProgress indicates an import batch is already running.
	ErrImportInProgress = errors.New("import in progress")

	// ErrAuthInvalid indicates the source credentials were rejected.
	ErrAuthInvalid = errors.New("authentication invalid")
)

// Import errors. Every one except ErrStoreUnavailable is scoped to a single
// source and never interrupts the rest of a batch.
var (
	// ErrStoreUnavailable indicates the contact store could not be opened.
	// It is fatal to the whole batch.
	ErrStoreUnavailable = errors.New("contact store unavailable")

	// ErrStampCheckFailed indicates the conditional metadata request failed.
	ErrStampCheckFailed = errors.New("checking remote for changes failed")

	// ErrDownloadFailed indicates the payload download failed.
	ErrDownloadFailed = errors.New("download failed")

	// ErrParseFailed indicates the payload could not be turned into records.
	ErrParseFailed = errors.New("parse failed")

	// ErrEmptyPayload indicates a syntactically valid payload with no contacts.
	ErrEmptyPayload = errors.New("no contact data found from vCard file")

	// ErrInvalidPayload indicates a syntactically invalid payload.
	ErrInvalidPayload = errors.New("invalid vCard file")

	// ErrStoreWriteFailed indicates the store rejected a mutation.
	ErrStoreWriteFailed = errors.New("contact store rejected change")

	// ErrStorePersistFailed indicates pending store changes could not be saved.
	ErrStorePersistFailed = errors.New("saving contact store failed")
)

// StoreWriteError identifies the field and record a store refused to change.
type StoreWriteError struct {
	// Field is the monitored field name, or "image".
	Field string
	// RecordID is the store identifier of the record.
	RecordID string
	// RecordName is a display name for the record, for messages.
	RecordName string
	// Err is the underlying cause.
	Err error
}

func (e *StoreWriteError) Error() string {
	name := e.RecordName
	if name == "" {
		name = e.RecordID
	}
	return fmt.Sprintf("failed to change %s of contact %q: %v", e.Field, name, e.Err)
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *StoreWriteError) Unwrap() []error {
	return []error{ErrStoreWriteFailed, e.Err}
}

// HTTPStatusError reports a response outside the 2xx range.
type HTTPStatusError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s (%d)", e.Status, e.StatusCode)
}

// TransportError reports a request that produced no response at all.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsHTTPStatus reports whether err carries an HTTP status outside the success range.
func IsHTTPStatus(err error) bool {
	var statusErr *HTTPStatusError
	return errors.As(err, &statusErr)
}

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}
