// Package extract derives descriptive metadata from stored media files.
//
// A generic pass records filesystem facts for every file; kind-specific
// extractors add image, audio, or video properties on top. Extraction is
// strictly best-effort: a failing extractor marks the entry instead of
// failing the ingestion.
package extract

import (
	"context"
	"errors"
	"strings"
)

// Kind classifies media files for extractor dispatch.
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
	KindOther Kind = "other"
)

// ErrUnavailable signals that the extractor cannot handle this file at all,
// for example an unsupported codec or a missing external tool. The pipeline
// records a "<kind>.unavailable" marker for it.
var ErrUnavailable = errors.New("extractor unavailable for this file")

// ErrTimeout signals that extraction was cut off by its deadline. The
// pipeline records a "<kind>.extraction_timeout" marker for it.
var ErrTimeout = errors.New("extraction timed out")

// Extractor pulls kind-specific metadata out of a file on disk.
type Extractor interface {
	// Kind returns the media kind this extractor handles.
	Kind() Kind

	// Extract returns key/value metadata for the file. Keys are expected to
	// be namespaced under the extractor's kind (e.g. "image.width").
	Extract(ctx context.Context, path string) (map[string]string, error)
}

// unavailableExtractor stands in for a kind without a configured extractor.
// It reports ErrUnavailable for every file, so files of that kind carry a
// "<kind>.unavailable" marker instead of silently missing their kind pass.
type unavailableExtractor struct {
	kind Kind
}

// NewUnavailableExtractor creates the stand-in extractor for a kind.
func NewUnavailableExtractor(kind Kind) Extractor {
	return &unavailableExtractor{kind: kind}
}

func (u *unavailableExtractor) Kind() Kind {
	return u.kind
}

func (u *unavailableExtractor) Extract(ctx context.Context, path string) (map[string]string, error) {
	return nil, ErrUnavailable
}

// KindForMime maps a MIME type to the extractor dispatch kind.
func KindForMime(mimeType string) Kind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "audio/"):
		return KindAudio
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo
	default:
		return KindOther
	}
}
