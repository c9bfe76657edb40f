// Package repository defines the persistence contracts for the catalog.
// The catalog exclusively owns the lifetime of media entries, collections,
// membership rows, and metadata entries; other components only read or propose
// data that the catalog commits.
package repository

import (
	"context"

	"github.com/prn-tf/mediavault/internal/domain"
)

// SearchFilter narrows a media search. Zero values mean "no constraint".
type SearchFilter struct {
	// CollectionID restricts results to members of one collection.
	CollectionID string

	// Query is a free-text match against the original filename and storage path.
	Query string

	// Metadata filters by metadata key/value pairs; values match with
	// substring semantics.
	Metadata map[string]string

	// Limit caps the number of results (default applied by the implementation).
	Limit int

	// Offset skips results for pagination.
	Offset int
}

// MediaRepository persists media entries.
type MediaRepository interface {
	// CreateWithRelations inserts a media entry, its metadata rows, and its
	// membership row in a single transaction: either all rows commit or none
	// do. A fingerprint-uniqueness conflict surfaces as
	// domain.ErrDuplicateFingerprint with no partial commit.
	CreateWithRelations(ctx context.Context, media *domain.Media, metadata []domain.MetadataEntry, collectionID string) error

	// GetByID retrieves a media entry by its identifier.
	GetByID(ctx context.Context, id string) (*domain.Media, error)

	// GetByFingerprint retrieves the canonical entry (copy_seq = 0) for a
	// fingerprint. Returns domain.ErrMediaNotFound if none exists.
	GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Media, error)

	// NextCopySeq returns the next free copy sequence for a fingerprint,
	// used by the ALLOW policy to insert a forced physical copy.
	NextCopySeq(ctx context.Context, fingerprint string) (int, error)

	// HasStoragePath reports whether any media entry references the given
	// relative blob path. Used by the orphan scan.
	HasStoragePath(ctx context.Context, storagePath string) (bool, error)

	// Search returns media entries matching the filter.
	Search(ctx context.Context, filter SearchFilter) ([]*domain.Media, error)

	// Delete removes a media entry. Its metadata and membership rows are
	// removed in the same transaction via foreign-key cascade.
	Delete(ctx context.Context, id string) error

	// Touch bumps the updated_at timestamp of a media entry.
	Touch(ctx context.Context, id string) error
}

// CollectionRepository persists collections and their memberships.
type CollectionRepository interface {
	// Create inserts a new collection. A name conflict surfaces as
	// domain.ErrCollectionAlreadyExists.
	Create(ctx context.Context, collection *domain.Collection) error

	// GetByID retrieves a collection by identifier.
	GetByID(ctx context.Context, id string) (*domain.Collection, error)

	// GetByName retrieves a collection by its unique name.
	GetByName(ctx context.Context, name string) (*domain.Collection, error)

	// List returns all collections ordered by name.
	List(ctx context.Context) ([]*domain.Collection, error)

	// Update renames a collection or changes its description.
	Update(ctx context.Context, collection *domain.Collection) error

	// Delete removes a collection and its membership rows. Member media
	// entries are left untouched.
	Delete(ctx context.Context, id string) error

	// ExistsByName reports whether a collection with the given name exists.
	ExistsByName(ctx context.Context, name string) (bool, error)

	// AddMember links a media entry into a collection. Returns false if the
	// membership row already existed (idempotent).
	AddMember(ctx context.Context, collectionID, mediaID string) (bool, error)

	// HasMember reports whether the media entry is a member of the collection.
	HasMember(ctx context.Context, collectionID, mediaID string) (bool, error)

	// CollectionsForMedia returns the names of all collections containing the
	// media entry.
	CollectionsForMedia(ctx context.Context, mediaID string) ([]string, error)
}

// MetadataRepository persists metadata entries for media.
type MetadataRepository interface {
	// Add inserts metadata entries for an existing media entry.
	Add(ctx context.Context, entries []domain.MetadataEntry) error

	// ListByMedia returns all metadata entries for a media entry, oldest first.
	ListByMedia(ctx context.Context, mediaID string) ([]domain.MetadataEntry, error)
}
