package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/prn-tf/mediavault/internal/domain"
	"github.com/prn-tf/mediavault/internal/repository"
)

// metadataRepository implements repository.MetadataRepository for SQLite.
type metadataRepository struct {
	db *DB
}

// NewMetadataRepository creates a new SQLite metadata repository.
func NewMetadataRepository(db *DB) repository.MetadataRepository {
	return &metadataRepository{db: db}
}

// Add inserts metadata entries in one transaction. A foreign-key violation
// means the referenced media entry does not exist.
func (r *metadataRepository) Add(ctx context.Context, entries []domain.MetadataEntry) error {
	if len(entries) == 0 {
		return nil
	}

	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		for _, entry := range entries {
			createdAt := entry.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now().UTC()
			}

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO metadata (media_id, key, value, source, created_at)
				VALUES (?, ?, ?, ?, ?)
			`,
				entry.MediaID,
				entry.Key,
				entry.Value,
				string(entry.Source),
				createdAt.Format(time.RFC3339),
			); err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("%w: %s", domain.ErrMediaNotFound, entry.MediaID)
				}
				return fmt.Errorf("failed to insert metadata %q: %w", entry.Key, err)
			}
		}
		return nil
	})
}

// ListByMedia returns all metadata entries for a media entry, oldest first.
func (r *metadataRepository) ListByMedia(ctx context.Context, mediaID string) ([]domain.MetadataEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, media_id, key, value, source, created_at
		FROM metadata
		WHERE media_id = ?
		ORDER BY id ASC
	`, mediaID)
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}
	defer rows.Close()

	var entries []domain.MetadataEntry
	for rows.Next() {
		var entry domain.MetadataEntry
		var source, createdAt string

		if err := rows.Scan(
			&entry.ID,
			&entry.MediaID,
			&entry.Key,
			&entry.Value,
			&source,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		entry.Source = domain.MetadataSource(source)
		entry.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metadata: %w", err)
	}

	return entries, nil
}

// Ensure metadataRepository implements repository.MetadataRepository.
var _ repository.MetadataRepository = (*metadataRepository)(nil)
