package domain

import "time"

// MetadataSource tags the provenance of a metadata entry.
type MetadataSource string

// Closed set of metadata sources.
const (
	// SourceAuto marks values produced by the extraction pipeline.
	SourceAuto MetadataSource = "auto"

	// SourceUser marks caller-supplied custom values.
	SourceUser MetadataSource = "user"

	// SourceImport marks values carried over from an external import.
	SourceImport MetadataSource = "import"

	// SourceAPI marks values written through the HTTP API.
	SourceAPI MetadataSource = "api"
)

// Valid reports whether s is a known metadata source.
func (s MetadataSource) Valid() bool {
	switch s {
	case SourceAuto, SourceUser, SourceImport, SourceAPI:
		return true
	}
	return false
}

// MetadataEntry is one key/value fact about a media entry.
// Keys are namespaced (e.g. "file.size", "exif.model", "custom.tags").
// Complex values are serialized to strings before storage.
type MetadataEntry struct {
	// ID is auto-assigned by the persistence layer.
	ID int64 `json:"id"`

	// MediaID references the owning media entry. Deleting the media cascades
	// deletion of its metadata rows.
	MediaID string `json:"media_id"`

	// Key is the namespaced metadata key.
	Key string `json:"key"`

	// Value is the string-serialized metadata value.
	Value string `json:"value"`

	// Source records how the entry was produced.
	Source MetadataSource `json:"source"`

	// CreatedAt is when the entry was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// CustomKeyPrefix is the namespace reserved for caller-supplied metadata.
// User input lives under this prefix so it can never shadow automatically
// derived keys.
const CustomKeyPrefix = "custom."
