package models

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingFields is returned when an upload request lacks fileName, contentType or path
	ErrMissingFields = errors.New("missing required fields: fileName, contentType, and path")
	// ErrInvalidPath is returned when the upload path is outside the PathCategory set
	ErrInvalidPath = errors.New("invalid upload path specified")
	// ErrMissingPublicURL is returned when a delete request has no publicUrl
	ErrMissingPublicURL = errors.New("publicUrl is required")
	// ErrForeignURL is returned when a public URL does not point into the configured bucket
	ErrForeignURL = errors.New("publicUrl does not belong to the media bucket")
	// ErrRecordNotFound is returned when a content record does not exist
	ErrRecordNotFound = errors.New("record not found")
	// ErrUnknownCollection is returned for collection names outside the registry
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrInvalidRecord is the base of every record validation error
	ErrInvalidRecord = errors.New("invalid record")
	// ErrFlagNotSupported is returned when toggling a flag the collection does not have
	ErrFlagNotSupported = errors.New("collection has no such flag")
	// ErrConcurrentUpdate is returned when a compare-and-set lost every retry
	ErrConcurrentUpdate = errors.New("record was modified concurrently, please retry")
	// ErrMissingContactFields is returned when the contact form lacks required fields
	ErrMissingContactFields = errors.New("missing required fields: name, email, message")
	// ErrMailNotConfigured is returned when SMTP credentials are absent
	ErrMailNotConfigured = errors.New("email service is not configured on the server")
	// ErrMissingToken is returned when a device token registration has no token
	ErrMissingToken = errors.New("token is required")
)

// InvalidRecordError builds a validation error wrapping ErrInvalidRecord
func InvalidRecordError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRecord, fmt.Sprintf(format, args...))
}

// StoreError wraps a failure talking to the object or document store
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
