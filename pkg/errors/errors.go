package snapper_errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidInput       = errors.New("invalid input")
	ErrTooLarge           = errors.New("file too large")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrAlreadyExists      = errors.New("already exists")
)

// Upload engine error kinds. Every error returned by the upload engine wraps exactly one of these.
var (
	ErrURLIssuance     = errors.New("url issuance failed")
	ErrTransfer        = errors.New("transfer failed")
	ErrCompletion      = errors.New("multipart completion failed")
	ErrCancelled       = errors.New("upload cancelled")
	ErrMetadataPersist = errors.New("metadata persist failed")
)

// UploadError carries the kind of an upload failure together with the context it happened in.
type UploadError struct {
	// Kind is one of the upload error kinds above
	Kind error

	// Op is the engine step that failed (e.g. "initiate", "part", "complete")
	Op string

	FileName   string
	StorageKey string

	// PartNumber is set for part-level transfer failures
	PartNumber int

	// StatusCode is the HTTP status returned by storage, 0 for network faults
	StatusCode int

	// Err is the underlying cause
	Err error

	// AbortErr is set when the cleanup abort that followed this failure itself failed.
	AbortErr error
}

func (e *UploadError) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.FileName != "" {
		msg = fmt.Sprintf("%s (file %s)", msg, e.FileName)
	}
	if e.PartNumber > 0 {
		msg = fmt.Sprintf("%s (part %d)", msg, e.PartNumber)
	}
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *UploadError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func NewUploadError(kind error, op string, err error) *UploadError {
	return &UploadError{Kind: kind, Op: op, Err: err}
}

// KindOf returns the upload error kind wrapped by err, or nil.
func KindOf(err error) error {
	var ue *UploadError
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return nil
}

// StoredState describes what remains in object storage after a failed upload.
type StoredState string

const (
	StoredNothing       StoredState = "nothing_stored"
	StoredOrphanedParts StoredState = "orphaned_parts"
	StoredWithoutRecord StoredState = "stored_without_record"
	StoredUnknown       StoredState = "unknown"
)

// StoredStateOf classifies a failed upload by what the caller should expect to find in storage.
func StoredStateOf(err error) StoredState {
	var ue *UploadError
	if !errors.As(err, &ue) {
		return StoredUnknown
	}
	if errors.Is(ue.Kind, ErrMetadataPersist) {
		return StoredWithoutRecord
	}
	if ue.AbortErr != nil {
		return StoredOrphanedParts
	}
	return StoredNothing
}
