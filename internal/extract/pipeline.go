package extract

import (
	"context"
	"errors"
	"sort"

	"github.com/rs/zerolog"

	"github.com/prn-tf/mediavault/internal/domain"
)

// Pipeline runs the generic pass and the kind-specific extractor for a file
// and flattens the result into metadata entries.
type Pipeline struct {
	extractors map[Kind]Extractor
	logger     zerolog.Logger
}

// NewPipeline creates a pipeline with the given extractors. Registering two
// extractors for the same kind keeps the last one. Kinds without an extractor
// get the unavailable stand-in, so every image, audio, or video file carries
// either its kind metadata or a "<kind>.unavailable" marker.
func NewPipeline(logger zerolog.Logger, extractors ...Extractor) *Pipeline {
	byKind := map[Kind]Extractor{
		KindImage: NewUnavailableExtractor(KindImage),
		KindAudio: NewUnavailableExtractor(KindAudio),
		KindVideo: NewUnavailableExtractor(KindVideo),
	}
	for _, extractor := range extractors {
		byKind[extractor.Kind()] = extractor
	}
	return &Pipeline{
		extractors: byKind,
		logger:     logger.With().Str("component", "extract").Logger(),
	}
}

// Run extracts metadata for the file at path. Extraction never fails the
// caller: a kind extractor that errors out is recorded in the result as a
// marker entry instead.
//
//	<kind>.unavailable        the extractor cannot handle this file
//	<kind>.extraction_timeout the extractor hit its deadline
//	<kind>.extraction_error   any other failure
func (p *Pipeline) Run(ctx context.Context, path string, facts FileFacts) []domain.MetadataEntry {
	values := Generic(facts)

	kind := KindForMime(facts.MimeType)
	if extractor, ok := p.extractors[kind]; ok {
		extracted, err := extractor.Extract(ctx, path)
		switch {
		case err == nil:
			for key, value := range extracted {
				values[key] = value
			}
		case errors.Is(err, ErrUnavailable):
			p.logger.Debug().Str("path", path).Str("kind", string(kind)).Err(err).
				Msg("extractor unavailable for file")
			values[string(kind)+".unavailable"] = "true"
		case errors.Is(err, ErrTimeout):
			p.logger.Warn().Str("path", path).Str("kind", string(kind)).Err(err).
				Msg("extraction timed out")
			values[string(kind)+".extraction_timeout"] = "true"
		default:
			p.logger.Warn().Str("path", path).Str("kind", string(kind)).Err(err).
				Msg("extraction failed")
			values[string(kind)+".extraction_error"] = err.Error()
		}
	}

	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]domain.MetadataEntry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, domain.MetadataEntry{
			Key:    key,
			Value:  values[key],
			Source: domain.SourceAuto,
		})
	}
	return entries
}
