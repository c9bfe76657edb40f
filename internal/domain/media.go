// Package domain contains the core business entities for MediaVault.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// FingerprintHexLen is the length of a BLAKE2b-512 fingerprint rendered as
// lowercase hex.
const FingerprintHexLen = 128

// Media represents one unique piece of content in the catalog.
// Content identity is its BLAKE2b-512 fingerprint; under the default policies
// exactly one Media row exists per distinct fingerprint. Forced copies created
// under the ALLOW policy carry CopySeq > 0 and are exempt from the canonical
// uniqueness constraint.
type Media struct {
	// ID is an opaque unique identifier, generated at creation.
	ID string `json:"id"`

	// Fingerprint is the BLAKE2b-512 hash of the content (128 hex characters).
	Fingerprint string `json:"fingerprint"`

	// CopySeq is 0 for the canonical entry of a fingerprint. Forced physical
	// copies (ALLOW policy) get the next free sequence number.
	CopySeq int `json:"copy_seq,omitempty"`

	// StoragePath is the blob path relative to the storage root.
	// Format: media/{first2}/{next2}/{fullfingerprint}{ext}
	// Entries indexed in place carry the absolute path of the original file
	// instead; such files live outside the store and are never collected.
	StoragePath string `json:"storage_path"`

	// MimeType is the detected MIME type, if known.
	MimeType string `json:"mime_type,omitempty"`

	// SizeBytes is the content size in bytes.
	SizeBytes int64 `json:"size_bytes"`

	// OriginalFilename is the basename the file had when it was ingested.
	OriginalFilename string `json:"original_filename,omitempty"`

	// CreatedAt is when the entry was first indexed.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is bumped on metadata-affecting mutation.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewMedia creates a Media entry with a fresh UUID and timestamps.
func NewMedia(fingerprint, storagePath, mimeType string, size int64, originalFilename string) *Media {
	now := time.Now().UTC()
	return &Media{
		ID:               uuid.NewString(),
		Fingerprint:      fingerprint,
		StoragePath:      storagePath,
		MimeType:         mimeType,
		SizeBytes:        size,
		OriginalFilename: originalFilename,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// IsCanonical reports whether this entry is the canonical one for its
// fingerprint (as opposed to a forced copy).
func (m *Media) IsCanonical() bool {
	return m.CopySeq == 0
}

// ValidFingerprint reports whether s is a well-formed lowercase hex
// BLAKE2b-512 fingerprint.
func ValidFingerprint(s string) bool {
	if len(s) != FingerprintHexLen {
		return false
	}
	for _, c := range s {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return false
		}
	}
	return true
}
