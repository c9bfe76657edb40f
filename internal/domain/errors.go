// Package domain contains the core business entities for MediaVault.
package domain

import (
	"errors"
	"fmt"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, filesystem, etc.).

var (
	// ===========================================
	// Not-found Errors
	// ===========================================

	// ErrFileNotFound indicates the source file does not exist.
	ErrFileNotFound = errors.New("file not found")

	// ErrCollectionNotFound indicates the requested collection does not exist.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrMediaNotFound indicates the requested media entry does not exist.
	ErrMediaNotFound = errors.New("media not found")

	// ErrBlobNotFound indicates the backing blob is missing from the store.
	ErrBlobNotFound = errors.New("blob not found")

	// ===========================================
	// Conflict Errors
	// ===========================================

	// ErrCollectionAlreadyExists indicates a collection with the same name exists.
	ErrCollectionAlreadyExists = errors.New("collection already exists")

	// ErrDuplicateFingerprint indicates the fingerprint uniqueness constraint
	// rejected an insert. The dedup resolver converts this into the
	// duplicate-resolution path.
	ErrDuplicateFingerprint = errors.New("media with this fingerprint already exists")

	// ErrMembershipExists indicates the media is already a member of the collection.
	ErrMembershipExists = errors.New("media is already in collection")

	// ===========================================
	// Access / I/O Errors
	// ===========================================

	// ErrPermissionDenied indicates the source file exists but cannot be read.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrIO indicates a generic I/O fault reading a source file or writing a blob.
	ErrIO = errors.New("i/o failure")

	// ===========================================
	// Validation Errors
	// ===========================================

	// ErrInvalidPolicy indicates an unknown duplicate-resolution policy.
	ErrInvalidPolicy = errors.New("invalid duplication policy")

	// ErrCollectionNameEmpty indicates a collection name was blank.
	ErrCollectionNameEmpty = errors.New("collection name must not be empty")

	// ErrInvalidFingerprint indicates a fingerprint has the wrong width or alphabet.
	ErrInvalidFingerprint = errors.New("invalid fingerprint")
)

// DomainError wraps a domain error with additional context.
type DomainError struct {
	// Err is the underlying domain error.
	Err error

	// Message provides additional context.
	Message string

	// Resource identifies the affected resource (e.g., collection name, media ID).
	Resource string
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err.Error(), e.Message, e.Resource)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/errors.As.
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError with context.
func NewDomainError(err error, message, resource string) *DomainError {
	return &DomainError{
		Err:      err,
		Message:  message,
		Resource: resource,
	}
}

// WrapError wraps an error with domain context if it's not already a DomainError.
func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}

	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return err
	}

	return &DomainError{
		Err:     err,
		Message: message,
	}
}
