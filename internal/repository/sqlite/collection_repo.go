package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/prn-tf/mediavault/internal/domain"
	"github.com/prn-tf/mediavault/internal/repository"
)

// collectionRepository implements repository.CollectionRepository for SQLite.
type collectionRepository struct {
	db *DB
}

// NewCollectionRepository creates a new SQLite collection repository.
func NewCollectionRepository(db *DB) repository.CollectionRepository {
	return &collectionRepository{db: db}
}

const collectionColumns = `c.id, c.name, c.description, c.created_at, c.updated_at,
	(SELECT COUNT(*) FROM collection_media cm WHERE cm.collection_id = c.id)`

// Create creates a new collection. Name uniqueness is enforced by the
// persistence layer, not just checked here.
func (r *collectionRepository) Create(ctx context.Context, collection *domain.Collection) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO collections (id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`,
		collection.ID,
		collection.Name,
		collection.Description,
		collection.CreatedAt.Format(time.RFC3339),
		collection.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrCollectionAlreadyExists, collection.Name)
		}
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return nil
}

// GetByID retrieves a collection by ID.
func (r *collectionRepository) GetByID(ctx context.Context, id string) (*domain.Collection, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections c WHERE c.id = ?`, id)

	collection, err := scanCollection(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("failed to get collection by ID: %w", err)
	}
	return collection, nil
}

// GetByName retrieves a collection by name.
func (r *collectionRepository) GetByName(ctx context.Context, name string) (*domain.Collection, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+collectionColumns+` FROM collections c WHERE c.name = ?`, name)

	collection, err := scanCollection(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrCollectionNotFound
		}
		return nil, fmt.Errorf("failed to get collection by name: %w", err)
	}
	return collection, nil
}

// List returns all collections ordered by name.
func (r *collectionRepository) List(ctx context.Context) ([]*domain.Collection, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+collectionColumns+` FROM collections c ORDER BY c.name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var collections []*domain.Collection
	for rows.Next() {
		collection, err := scanCollection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan collection: %w", err)
		}
		collections = append(collections, collection)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collections: %w", err)
	}

	return collections, nil
}

// Update renames a collection or changes its description.
func (r *collectionRepository) Update(ctx context.Context, collection *domain.Collection) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE collections
		SET name = ?, description = ?, updated_at = ?
		WHERE id = ?
	`,
		collection.Name,
		collection.Description,
		time.Now().UTC().Format(time.RFC3339),
		collection.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrCollectionAlreadyExists, collection.Name)
		}
		return fmt.Errorf("failed to update collection: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrCollectionNotFound
	}

	return nil
}

// Delete removes a collection. Membership rows go with it via cascade; member
// media entries are left untouched.
func (r *collectionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrCollectionNotFound
	}

	return nil
}

// ExistsByName checks if a collection with the given name exists.
func (r *collectionRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collections WHERE name = ?`, name).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check collection existence: %w", err)
	}
	return count > 0, nil
}

// AddMember links a media entry into a collection. The composite primary key
// makes this idempotent: an existing membership row is reported as added=false
// rather than an error.
func (r *collectionRepository) AddMember(ctx context.Context, collectionID, mediaID string) (bool, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO collection_media (collection_id, media_id, added_at)
		VALUES (?, ?, ?)
	`,
		collectionID,
		mediaID,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		if isForeignKeyViolation(err) {
			return false, fmt.Errorf("%w: collection %s or media %s", domain.ErrCollectionNotFound, collectionID, mediaID)
		}
		return false, fmt.Errorf("failed to add member: %w", err)
	}

	return true, nil
}

// HasMember reports whether the media entry is a member of the collection.
func (r *collectionRepository) HasMember(ctx context.Context, collectionID, mediaID string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM collection_media WHERE collection_id = ? AND media_id = ?`,
		collectionID, mediaID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return count > 0, nil
}

// CollectionsForMedia returns the names of all collections containing the media.
func (r *collectionRepository) CollectionsForMedia(ctx context.Context, mediaID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT c.name
		FROM collections c
		JOIN collection_media cm ON cm.collection_id = c.id
		WHERE cm.media_id = ?
		ORDER BY c.name ASC
	`, mediaID)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections for media: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan collection name: %w", err)
		}
		names = append(names, name)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating collection names: %w", err)
	}

	return names, nil
}

func scanCollection(s scanner) (*domain.Collection, error) {
	collection := &domain.Collection{}
	var createdAt, updatedAt string

	err := s.Scan(
		&collection.ID,
		&collection.Name,
		&collection.Description,
		&createdAt,
		&updatedAt,
		&collection.MediaCount,
	)
	if err != nil {
		return nil, err
	}

	collection.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	collection.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return collection, nil
}

// Ensure collectionRepository implements repository.CollectionRepository.
var _ repository.CollectionRepository = (*collectionRepository)(nil)
