package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/prn-tf/mediavault/internal/domain"
	"github.com/prn-tf/mediavault/internal/repository"
)

// CollectionService handles collection operations.
type CollectionService struct {
	collectionRepo repository.CollectionRepository
	mediaRepo      repository.MediaRepository
	logger         zerolog.Logger
}

// NewCollectionService creates a new CollectionService.
func NewCollectionService(
	collectionRepo repository.CollectionRepository,
	mediaRepo repository.MediaRepository,
	logger zerolog.Logger,
) *CollectionService {
	return &CollectionService{
		collectionRepo: collectionRepo,
		mediaRepo:      mediaRepo,
		logger:         logger.With().Str("service", "collection").Logger(),
	}
}

// =============================================================================
// Input/Output Structs
// =============================================================================

// CreateCollectionInput contains the data needed to create a collection.
type CreateCollectionInput struct {
	Name        string
	Description string
}

// UpdateCollectionInput contains the data needed to rename a collection or
// change its description.
type UpdateCollectionInput struct {
	ID          string
	Name        string
	Description string
}

// AddMediaInput contains the data needed to place a media entry into a
// collection.
type AddMediaInput struct {
	CollectionID string
	MediaID      string
}

// AddMediaOutput reports whether the membership was newly created.
type AddMediaOutput struct {
	Added bool
}

// =============================================================================
// Service Methods
// =============================================================================

// CreateCollection creates a new collection with a unique name.
func (s *CollectionService) CreateCollection(ctx context.Context, input CreateCollectionInput) (*domain.Collection, error) {
	if err := domain.ValidateCollectionName(input.Name); err != nil {
		return nil, err
	}

	collection := domain.NewCollection(input.Name, input.Description)
	if err := s.collectionRepo.Create(ctx, collection); err != nil {
		return nil, err
	}

	s.logger.Info().Str("collection_id", collection.ID).Str("name", collection.Name).
		Msg("collection created")
	return collection, nil
}

// GetCollection retrieves a collection by ID.
func (s *CollectionService) GetCollection(ctx context.Context, id string) (*domain.Collection, error) {
	return s.collectionRepo.GetByID(ctx, id)
}

// GetCollectionByName retrieves a collection by its unique name.
func (s *CollectionService) GetCollectionByName(ctx context.Context, name string) (*domain.Collection, error) {
	return s.collectionRepo.GetByName(ctx, name)
}

// ListCollections returns all collections ordered by name.
func (s *CollectionService) ListCollections(ctx context.Context) ([]*domain.Collection, error) {
	return s.collectionRepo.List(ctx)
}

// UpdateCollection renames a collection or changes its description. The new
// name must not collide with another collection.
func (s *CollectionService) UpdateCollection(ctx context.Context, input UpdateCollectionInput) (*domain.Collection, error) {
	collection, err := s.collectionRepo.GetByID(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		if err := domain.ValidateCollectionName(input.Name); err != nil {
			return nil, err
		}
		collection.Name = input.Name
	}
	collection.Description = input.Description

	if err := s.collectionRepo.Update(ctx, collection); err != nil {
		return nil, err
	}

	s.logger.Info().Str("collection_id", collection.ID).Str("name", collection.Name).
		Msg("collection updated")
	return s.collectionRepo.GetByID(ctx, collection.ID)
}

// DeleteCollection removes a collection and its membership rows. Member
// media entries are left untouched.
func (s *CollectionService) DeleteCollection(ctx context.Context, id string) error {
	if err := s.collectionRepo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("collection_id", id).Msg("collection deleted")
	return nil
}

// AddMedia places an existing media entry into a collection. Adding a member
// twice is a no-op reported through the output, not an error.
func (s *CollectionService) AddMedia(ctx context.Context, input AddMediaInput) (*AddMediaOutput, error) {
	if _, err := s.collectionRepo.GetByID(ctx, input.CollectionID); err != nil {
		return nil, err
	}
	if _, err := s.mediaRepo.GetByID(ctx, input.MediaID); err != nil {
		return nil, err
	}

	added, err := s.collectionRepo.AddMember(ctx, input.CollectionID, input.MediaID)
	if err != nil {
		return nil, err
	}

	if added {
		s.logger.Debug().Str("collection_id", input.CollectionID).Str("media_id", input.MediaID).
			Msg("media added to collection")
	}
	return &AddMediaOutput{Added: added}, nil
}

// ListMedia returns the media entries in a collection.
func (s *CollectionService) ListMedia(ctx context.Context, collectionID string, limit, offset int) ([]*domain.Media, error) {
	if _, err := s.collectionRepo.GetByID(ctx, collectionID); err != nil {
		return nil, err
	}

	return s.mediaRepo.Search(ctx, repository.SearchFilter{
		CollectionID: collectionID,
		Limit:        limit,
		Offset:       offset,
	})
}
