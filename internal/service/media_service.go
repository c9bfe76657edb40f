package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"github.com/prn-tf/mediavault/internal/dedup"
	"github.com/prn-tf/mediavault/internal/domain"
	"github.com/prn-tf/mediavault/internal/extract"
	"github.com/prn-tf/mediavault/internal/fingerprint"
	"github.com/prn-tf/mediavault/internal/metrics"
	"github.com/prn-tf/mediavault/internal/repository"
	"github.com/prn-tf/mediavault/internal/storage"
)

// copyAttempts bounds the copy-sequence retry loop under the ALLOW policy.
const copyAttempts = 3

// MediaService handles ingestion and media entry operations.
type MediaService struct {
	mediaRepo      repository.MediaRepository
	collectionRepo repository.CollectionRepository
	metadataRepo   repository.MetadataRepository
	store          *storage.Store
	resolver       *dedup.Resolver
	pipeline       *extract.Pipeline
	metrics        *metrics.Metrics
	logger         zerolog.Logger
	defaultPolicy  domain.DedupPolicy
}

// NewMediaService creates a new MediaService. An empty defaultPolicy falls
// back to domain.DefaultPolicy.
func NewMediaService(
	mediaRepo repository.MediaRepository,
	collectionRepo repository.CollectionRepository,
	metadataRepo repository.MetadataRepository,
	store *storage.Store,
	resolver *dedup.Resolver,
	pipeline *extract.Pipeline,
	m *metrics.Metrics,
	logger zerolog.Logger,
	defaultPolicy domain.DedupPolicy,
) *MediaService {
	if defaultPolicy == "" {
		defaultPolicy = domain.DefaultPolicy
	}
	return &MediaService{
		mediaRepo:      mediaRepo,
		collectionRepo: collectionRepo,
		metadataRepo:   metadataRepo,
		store:          store,
		resolver:       resolver,
		pipeline:       pipeline,
		metrics:        m,
		logger:         logger.With().Str("service", "media").Logger(),
		defaultPolicy:  defaultPolicy,
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// IngestInput contains the data needed to ingest a file.
type IngestInput struct {
	// SourcePath is the file to ingest.
	SourcePath string

	// OriginalFilename overrides the recorded filename; defaults to the
	// basename of SourcePath.
	OriginalFilename string

	// CollectionName optionally places the entry into an existing collection.
	CollectionName string

	// Policy selects the duplicate-resolution policy; empty means the
	// service default.
	Policy string

	// CustomMetadata is caller-supplied metadata, stored under the custom.*
	// namespace.
	CustomMetadata map[string]string

	// RemoveSource deletes the source file after a successful ingest,
	// turning the copy into a move.
	RemoveSource bool

	// IndexOnly catalogs the file at its current location instead of copying
	// it into the store. The entry references the source path directly; the
	// file stays under the caller's control and is never garbage collected.
	IndexOnly bool
}

// IngestOutput contains the result of ingesting a file.
type IngestOutput struct {
	// Media is the catalog entry the file ended up associated with. For
	// duplicates this is the pre-existing canonical entry.
	Media *domain.Media

	// Duplicate reports whether the content already existed.
	Duplicate bool

	// Alert is set when the ALERT policy matched a duplicate. Nothing was
	// linked or stored; the caller decides what to do with the entry.
	Alert bool

	// Action describes what happened: "stored", "linked", "discarded",
	// "alert", "copy".
	Action string
}

// MediaDetails is a media entry compiled with its metadata and collections.
type MediaDetails struct {
	Media       *domain.Media
	Metadata    []domain.MetadataEntry
	Collections []string
}

// SearchInput narrows a media search.
type SearchInput struct {
	CollectionName string
	Query          string
	Metadata       map[string]string
	Limit          int
	Offset         int
}

// AddMetadataInput contains caller-supplied metadata for an existing entry.
type AddMetadataInput struct {
	MediaID string
	Values  map[string]string

	// Source defaults to domain.SourceUser.
	Source domain.MetadataSource
}

// =============================================================================
// Ingestion
// =============================================================================

// Ingest brings a file under management: it fingerprints the content,
// resolves duplicates under the requested policy, places new blobs into the
// store, runs metadata extraction, and commits the catalog rows in one
// transaction.
func (s *MediaService) Ingest(ctx context.Context, input IngestInput) (*IngestOutput, error) {
	if input.SourcePath == "" {
		return nil, ErrEmptySource
	}

	info, err := os.Stat(input.SourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.NewDomainError(domain.ErrFileNotFound, "source file missing", input.SourcePath)
		}
		if os.IsPermission(err) {
			return nil, domain.NewDomainError(domain.ErrPermissionDenied, "source file unreadable", input.SourcePath)
		}
		return nil, fmt.Errorf("%w: stat %s: %v", domain.ErrIO, input.SourcePath, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegularFile, input.SourcePath)
	}
	if input.IndexOnly && input.RemoveSource {
		return nil, ErrIndexOnlyRemove
	}

	policy := s.defaultPolicy
	if input.Policy != "" {
		policy, err = domain.ParsePolicy(input.Policy)
		if err != nil {
			return nil, err
		}
	}

	collectionID := ""
	if input.CollectionName != "" {
		collection, err := s.collectionRepo.GetByName(ctx, input.CollectionName)
		if err != nil {
			return nil, err
		}
		collectionID = collection.ID
	}

	originalFilename := input.OriginalFilename
	if originalFilename == "" {
		originalFilename = filepath.Base(input.SourcePath)
	}

	fp, size, err := fingerprint.File(input.SourcePath)
	if err != nil {
		s.recordIngest("error")
		return nil, err
	}

	resolution, err := s.resolver.Resolve(ctx, fp, policy)
	if err != nil {
		s.recordIngest("error")
		return nil, err
	}

	if resolution.Duplicate() && s.metrics != nil {
		s.metrics.DuplicatesTotal.Inc()
	}

	var output *IngestOutput
	switch resolution.Action {
	case dedup.ActionDiscard:
		s.logger.Info().Str("fingerprint", fp).Str("existing", resolution.Existing.ID).
			Msg("duplicate content discarded")
		s.recordIngest("discarded")
		output = &IngestOutput{Media: resolution.Existing, Duplicate: true, Action: "discarded"}

	case dedup.ActionLink:
		if err := s.linkDuplicate(ctx, resolution.Existing, collectionID, input.CustomMetadata); err != nil {
			s.recordIngest("error")
			return nil, err
		}
		s.recordIngest("linked")
		output = &IngestOutput{Media: resolution.Existing, Duplicate: true, Action: "linked"}

	case dedup.ActionAlert:
		// The duplicate is only reported; no membership or metadata row is
		// committed on the caller's behalf.
		s.logger.Warn().Str("fingerprint", fp).Str("existing", resolution.Existing.ID).
			Str("source", input.SourcePath).Msg("duplicate content detected")
		s.recordIngest("alert")
		output = &IngestOutput{Media: resolution.Existing, Duplicate: true, Alert: true, Action: "alert"}

	case dedup.ActionStore:
		media, err := s.storeNew(ctx, input, originalFilename, fp, size, info, collectionID, policy)
		if err != nil {
			s.recordIngest("error")
			return nil, err
		}
		output = &IngestOutput{Media: media, Action: "stored"}

	case dedup.ActionStoreCopy:
		media, err := s.storeForcedCopy(ctx, input, originalFilename, fp, size, info, collectionID)
		if err != nil {
			s.recordIngest("error")
			return nil, err
		}
		s.recordIngest("copy")
		output = &IngestOutput{Media: media, Duplicate: true, Action: "copy"}

	default:
		return nil, fmt.Errorf("%w: unhandled resolution action %d", ErrInternalError, resolution.Action)
	}

	if input.RemoveSource {
		if err := os.Remove(input.SourcePath); err != nil {
			s.logger.Warn().Err(err).Str("source", input.SourcePath).
				Msg("failed to remove source file after ingest")
		}
	}

	return output, nil
}

// storeNew places a previously unseen blob and commits its catalog rows.
// Losing a concurrent race for the same fingerprint falls back to linking
// against the winner's entry.
func (s *MediaService) storeNew(
	ctx context.Context,
	input IngestInput,
	originalFilename, fp string,
	size int64,
	info os.FileInfo,
	collectionID string,
	policy domain.DedupPolicy,
) (*domain.Media, error) {
	mimeType := detectMime(input.SourcePath)
	ext := blobExtension(originalFilename, mimeType)

	relPath, err := s.placeBlob(input, storage.PlacementPath(fp, ext))
	if err != nil {
		return nil, err
	}

	media := domain.NewMedia(fp, relPath, mimeType, size, originalFilename)
	entries := s.extractMetadata(ctx, media, originalFilename, mimeType, size, info)
	entries = append(entries, customEntries(media.ID, input.CustomMetadata)...)

	err = s.mediaRepo.CreateWithRelations(ctx, media, entries, collectionID)
	if err == nil {
		if s.metrics != nil && !input.IndexOnly {
			s.metrics.BytesStoredTotal.Add(float64(size))
		}
		s.recordIngest("stored")
		s.logger.Info().Str("media_id", media.ID).Str("fingerprint", fp).
			Int64("size", size).Str("blob", relPath).Msg("new content stored")
		return media, nil
	}

	if !errors.Is(err, domain.ErrDuplicateFingerprint) {
		return nil, err
	}

	// A concurrent ingest won the uniqueness race. The blob path is shared
	// between both writers, so nothing needs cleaning up; re-query the winner
	// and resolve against it.
	s.logger.Debug().Str("fingerprint", fp).Msg("lost ingestion race, linking to winner")

	existing, err := s.mediaRepo.GetByFingerprint(ctx, fp)
	if err != nil {
		return nil, fmt.Errorf("%w: race loser re-query failed: %v", ErrInternalError, err)
	}

	switch policy {
	case domain.PolicyIgnore:
		s.recordIngest("discarded")
		return existing, nil
	case domain.PolicyAlert:
		s.logger.Warn().Str("fingerprint", fp).Str("existing", existing.ID).
			Str("source", input.SourcePath).Msg("duplicate content detected")
		s.recordIngest("alert")
		return existing, nil
	}
	if err := s.linkDuplicate(ctx, existing, collectionID, input.CustomMetadata); err != nil {
		return nil, err
	}
	s.recordIngest("linked")
	return existing, nil
}

// storeForcedCopy stores a physical duplicate under the ALLOW policy. The
// copy sequence is claimed optimistically; a collision with a concurrent
// forced copy retries with the next free sequence.
func (s *MediaService) storeForcedCopy(
	ctx context.Context,
	input IngestInput,
	originalFilename, fp string,
	size int64,
	info os.FileInfo,
	collectionID string,
) (*domain.Media, error) {
	mimeType := detectMime(input.SourcePath)
	ext := blobExtension(originalFilename, mimeType)

	var lastErr error
	for attempt := 0; attempt < copyAttempts; attempt++ {
		seq, err := s.mediaRepo.NextCopySeq(ctx, fp)
		if err != nil {
			return nil, err
		}

		relPath, err := s.placeBlob(input, storage.CopyPlacementPath(fp, seq, ext))
		if err != nil {
			return nil, err
		}

		media := domain.NewMedia(fp, relPath, mimeType, size, originalFilename)
		media.CopySeq = seq

		entries := s.extractMetadata(ctx, media, originalFilename, mimeType, size, info)
		entries = append(entries, customEntries(media.ID, input.CustomMetadata)...)

		err = s.mediaRepo.CreateWithRelations(ctx, media, entries, collectionID)
		if err == nil {
			if s.metrics != nil && !input.IndexOnly {
				s.metrics.BytesStoredTotal.Add(float64(size))
			}
			s.logger.Info().Str("media_id", media.ID).Str("fingerprint", fp).
				Int("copy_seq", seq).Msg("forced physical copy stored")
			return media, nil
		}
		if !errors.Is(err, domain.ErrDuplicateFingerprint) {
			return nil, err
		}

		// Another forced copy claimed this sequence; drop our blob and retry.
		// In-place entries wrote nothing into the store, so there is nothing
		// to clean up.
		if !input.IndexOnly {
			if removeErr := s.store.Remove(relPath); removeErr != nil && !errors.Is(removeErr, domain.ErrBlobNotFound) {
				s.logger.Warn().Err(removeErr).Str("blob", relPath).Msg("failed to clean up contested copy blob")
			}
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: could not claim copy sequence: %v", ErrInternalError, lastErr)
}

// linkDuplicate attaches the incoming context to an existing entry: the
// collection membership and any custom metadata are added, nothing else
// changes.
func (s *MediaService) linkDuplicate(ctx context.Context, existing *domain.Media, collectionID string, custom map[string]string) error {
	if collectionID != "" {
		added, err := s.collectionRepo.AddMember(ctx, collectionID, existing.ID)
		if err != nil {
			return err
		}
		if added {
			s.logger.Debug().Str("media_id", existing.ID).Str("collection_id", collectionID).
				Msg("duplicate linked into collection")
		}
	}

	if entries := customEntries(existing.ID, custom); len(entries) > 0 {
		if err := s.metadataRepo.Add(ctx, entries); err != nil {
			return err
		}
	}

	if err := s.mediaRepo.Touch(ctx, existing.ID); err != nil && !errors.Is(err, domain.ErrMediaNotFound) {
		return err
	}
	return nil
}

// extractMetadata runs the pipeline and stamps the results with the media ID.
func (s *MediaService) extractMetadata(
	ctx context.Context,
	media *domain.Media,
	originalFilename, mimeType string,
	size int64,
	info os.FileInfo,
) []domain.MetadataEntry {
	if s.pipeline == nil {
		return nil
	}

	facts := extract.FileFacts{
		OriginalFilename: originalFilename,
		MimeType:         mimeType,
		SizeBytes:        size,
		ModTime:          info.ModTime(),
	}

	entries := s.pipeline.Run(ctx, s.store.AbsPath(media.StoragePath), facts)
	for i := range entries {
		entries[i].MediaID = media.ID
		if s.metrics != nil && strings.HasSuffix(entries[i].Key, ".extraction_error") {
			kind := strings.TrimSuffix(entries[i].Key, ".extraction_error")
			s.metrics.ExtractionFailuresTotal.WithLabelValues(kind).Inc()
		}
	}
	return entries
}

// =============================================================================
// Media Operations
// =============================================================================

// GetMedia returns a media entry compiled with its metadata and the names of
// the collections containing it.
func (s *MediaService) GetMedia(ctx context.Context, id string) (*MediaDetails, error) {
	media, err := s.mediaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	entries, err := s.metadataRepo.ListByMedia(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("media_id", id).Msg("failed to load metadata")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	collections, err := s.collectionRepo.CollectionsForMedia(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("media_id", id).Msg("failed to load collections")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	return &MediaDetails{Media: media, Metadata: entries, Collections: collections}, nil
}

// OpenContent opens the stored blob of a media entry for reading.
func (s *MediaService) OpenContent(ctx context.Context, id string) (*domain.Media, io.ReadCloser, error) {
	media, err := s.mediaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	rc, err := s.store.Open(media.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	return media, rc, nil
}

// Search returns media entries matching the filter.
func (s *MediaService) Search(ctx context.Context, input SearchInput) ([]*domain.Media, error) {
	filter := repository.SearchFilter{
		Query:    input.Query,
		Metadata: input.Metadata,
		Limit:    input.Limit,
		Offset:   input.Offset,
	}

	if input.CollectionName != "" {
		collection, err := s.collectionRepo.GetByName(ctx, input.CollectionName)
		if err != nil {
			return nil, err
		}
		filter.CollectionID = collection.ID
	}

	return s.mediaRepo.Search(ctx, filter)
}

// DeleteMedia removes a media entry and, when no other entry references the
// same blob, the blob itself.
func (s *MediaService) DeleteMedia(ctx context.Context, id string) error {
	media, err := s.mediaRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := s.mediaRepo.Delete(ctx, id); err != nil {
		return err
	}

	if filepath.IsAbs(media.StoragePath) {
		// Indexed in place; the file stays under the caller's control.
		s.logger.Info().Str("media_id", id).Str("fingerprint", media.Fingerprint).
			Msg("in-place media entry deleted, file kept")
		return nil
	}

	referenced, err := s.mediaRepo.HasStoragePath(ctx, media.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Str("blob", media.StoragePath).
			Msg("failed to check blob references, leaving blob for the orphan scan")
		return nil
	}
	if !referenced {
		if err := s.store.Remove(media.StoragePath); err != nil && !errors.Is(err, domain.ErrBlobNotFound) {
			s.logger.Error().Err(err).Str("blob", media.StoragePath).
				Msg("failed to remove blob, leaving it for the orphan scan")
		}
	}

	s.logger.Info().Str("media_id", id).Str("fingerprint", media.Fingerprint).Msg("media entry deleted")
	return nil
}

// AddMetadata records caller-supplied metadata for an existing entry. Keys
// are forced into the custom.* namespace.
func (s *MediaService) AddMetadata(ctx context.Context, input AddMetadataInput) ([]domain.MetadataEntry, error) {
	media, err := s.mediaRepo.GetByID(ctx, input.MediaID)
	if err != nil {
		return nil, err
	}

	source := input.Source
	if source == "" {
		source = domain.SourceUser
	}

	var entries []domain.MetadataEntry
	for key, value := range input.Values {
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, ErrEmptyMetadataKey
		}
		if !strings.HasPrefix(key, domain.CustomKeyPrefix) {
			key = domain.CustomKeyPrefix + key
		}
		entries = append(entries, domain.MetadataEntry{
			MediaID: media.ID,
			Key:     key,
			Value:   value,
			Source:  source,
		})
	}
	if len(entries) == 0 {
		return nil, nil
	}

	if err := s.metadataRepo.Add(ctx, entries); err != nil {
		return nil, err
	}
	if err := s.mediaRepo.Touch(ctx, media.ID); err != nil && !errors.Is(err, domain.ErrMediaNotFound) {
		return nil, err
	}

	return entries, nil
}

// =============================================================================
// Helpers
// =============================================================================

func (s *MediaService) recordIngest(result string) {
	if s.metrics != nil {
		s.metrics.RecordIngest(result)
	}
}

// placeBlob copies the source into the store at relPath, or resolves the
// source path itself when the entry is indexed in place.
func (s *MediaService) placeBlob(input IngestInput, relPath string) (string, error) {
	if input.IndexOnly {
		abs, err := filepath.Abs(input.SourcePath)
		if err != nil {
			return "", fmt.Errorf("%w: resolving source path %s: %v", domain.ErrIO, input.SourcePath, err)
		}
		return abs, nil
	}
	if err := s.store.CopyIn(input.SourcePath, relPath); err != nil {
		return "", err
	}
	return relPath, nil
}

// detectMime sniffs the MIME type from content; detection failures leave the
// type empty rather than failing the ingest.
func detectMime(path string) string {
	mime, err := mimetype.DetectFile(path)
	if err != nil {
		return ""
	}
	return mime.String()
}

// blobExtension picks the leaf extension: the original filename's extension
// when present, otherwise the detected type's canonical one.
func blobExtension(originalFilename, mimeType string) string {
	if ext := filepath.Ext(originalFilename); ext != "" {
		return strings.ToLower(ext)
	}
	if mimeType != "" {
		if mime := mimetype.Lookup(mimeType); mime != nil {
			return mime.Extension()
		}
	}
	return ""
}

// customEntries converts caller-supplied values into custom.* metadata rows.
func customEntries(mediaID string, values map[string]string) []domain.MetadataEntry {
	if len(values) == 0 {
		return nil
	}

	entries := make([]domain.MetadataEntry, 0, len(values))
	for key, value := range values {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		if !strings.HasPrefix(key, domain.CustomKeyPrefix) {
			key = domain.CustomKeyPrefix + key
		}
		entries = append(entries, domain.MetadataEntry{
			MediaID: mediaID,
			Key:     key,
			Value:   value,
			Source:  domain.SourceUser,
		})
	}
	return entries
}
