// Package service provides the business logic of the media store.
package service

import "errors"

// Common service errors.
var (
	// Ingestion errors
	ErrNotRegularFile  = errors.New("source is not a regular file")
	ErrEmptySource     = errors.New("source path is empty")
	ErrIndexOnlyRemove = errors.New("cannot remove the source of an entry indexed in place")

	// Metadata errors
	ErrEmptyMetadataKey = errors.New("metadata key must not be empty")

	// General errors
	ErrInternalError = errors.New("internal server error")
)
