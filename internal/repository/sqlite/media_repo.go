package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/prn-tf/mediavault/internal/domain"
	"github.com/prn-tf/mediavault/internal/repository"
)

// defaultSearchLimit bounds searches that don't specify a limit.
const defaultSearchLimit = 100

// mediaRepository implements repository.MediaRepository for SQLite.
type mediaRepository struct {
	db *DB
}

// NewMediaRepository creates a new SQLite media repository.
func NewMediaRepository(db *DB) repository.MediaRepository {
	return &mediaRepository{db: db}
}

const mediaColumns = `id, fingerprint, copy_seq, storage_path, mime_type, size_bytes, original_filename, created_at, updated_at`

// CreateWithRelations inserts a media entry, its metadata rows, and its
// membership row in one transaction. A unique violation on the fingerprint
// surfaces as domain.ErrDuplicateFingerprint; a foreign-key violation on the
// membership row surfaces as domain.ErrCollectionNotFound. Any error rolls
// the whole transaction back.
func (r *mediaRepository) CreateWithRelations(ctx context.Context, media *domain.Media, metadata []domain.MetadataEntry, collectionID string) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO media (`+mediaColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			media.ID,
			media.Fingerprint,
			media.CopySeq,
			media.StoragePath,
			nullable(media.MimeType),
			media.SizeBytes,
			nullable(media.OriginalFilename),
			media.CreatedAt.Format(time.RFC3339),
			media.UpdatedAt.Format(time.RFC3339),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateFingerprint, media.Fingerprint)
			}
			return fmt.Errorf("failed to insert media: %w", err)
		}

		for _, entry := range metadata {
			createdAt := entry.CreatedAt
			if createdAt.IsZero() {
				createdAt = media.CreatedAt
			}

			if _, err := tx.ExecContext(ctx, `
				INSERT INTO metadata (media_id, key, value, source, created_at)
				VALUES (?, ?, ?, ?, ?)
			`,
				media.ID,
				entry.Key,
				entry.Value,
				string(entry.Source),
				createdAt.Format(time.RFC3339),
			); err != nil {
				return fmt.Errorf("failed to insert metadata %q: %w", entry.Key, err)
			}
		}

		if collectionID != "" {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO collection_media (collection_id, media_id, added_at)
				VALUES (?, ?, ?)
			`,
				collectionID,
				media.ID,
				time.Now().UTC().Format(time.RFC3339),
			); err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collectionID)
				}
				return fmt.Errorf("failed to insert membership: %w", err)
			}
		}

		return nil
	})
}

// GetByID retrieves a media entry by ID.
func (r *mediaRepository) GetByID(ctx context.Context, id string) (*domain.Media, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = ?`, id)

	media, err := scanMedia(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrMediaNotFound
		}
		return nil, fmt.Errorf("failed to get media by ID: %w", err)
	}
	return media, nil
}

// GetByFingerprint retrieves the canonical entry for a fingerprint.
func (r *mediaRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*domain.Media, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+mediaColumns+` FROM media WHERE fingerprint = ? AND copy_seq = 0
	`, fingerprint)

	media, err := scanMedia(row)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrMediaNotFound
		}
		return nil, fmt.Errorf("failed to get media by fingerprint: %w", err)
	}
	return media, nil
}

// NextCopySeq returns the next free copy sequence for a fingerprint.
func (r *mediaRepository) NextCopySeq(ctx context.Context, fingerprint string) (int, error) {
	var maxSeq sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(copy_seq) FROM media WHERE fingerprint = ?`,
		fingerprint,
	).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("failed to get max copy_seq: %w", err)
	}

	if !maxSeq.Valid {
		return 0, nil
	}
	return int(maxSeq.Int64) + 1, nil
}

// HasStoragePath reports whether any media entry references the blob path.
func (r *mediaRepository) HasStoragePath(ctx context.Context, storagePath string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media WHERE storage_path = ?`,
		storagePath,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check storage path: %w", err)
	}
	return count > 0, nil
}

// Search returns media entries matching the filter.
func (r *mediaRepository) Search(ctx context.Context, filter repository.SearchFilter) ([]*domain.Media, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT DISTINCT m.` + strings.ReplaceAll(mediaColumns, ", ", ", m.") + ` FROM media m`)

	var args []interface{}
	var conds []string

	if filter.CollectionID != "" {
		sb.WriteString(` JOIN collection_media cm ON cm.media_id = m.id`)
		conds = append(conds, `cm.collection_id = ?`)
		args = append(args, filter.CollectionID)
	}

	if filter.Query != "" {
		conds = append(conds, `(m.original_filename LIKE ? OR m.storage_path LIKE ?)`)
		pattern := "%" + filter.Query + "%"
		args = append(args, pattern, pattern)
	}

	for key, value := range filter.Metadata {
		conds = append(conds, `m.id IN (SELECT media_id FROM metadata WHERE key = ? AND value LIKE ?)`)
		args = append(args, key, "%"+value+"%")
	}

	if len(conds) > 0 {
		sb.WriteString(` WHERE ` + strings.Join(conds, ` AND `))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	sb.WriteString(` ORDER BY m.created_at DESC, m.id LIMIT ? OFFSET ?`)
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search media: %w", err)
	}
	defer rows.Close()

	var results []*domain.Media
	for rows.Next() {
		media, err := scanMedia(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan media: %w", err)
		}
		results = append(results, media)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating media: %w", err)
	}

	return results, nil
}

// Delete removes a media entry. Metadata and membership rows go with it via
// foreign-key cascade, inside the same implicit transaction.
func (r *mediaRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete media: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrMediaNotFound
	}

	return nil
}

// Touch bumps the updated_at timestamp.
func (r *mediaRepository) Touch(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE media SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to touch media: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrMediaNotFound
	}

	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanMedia.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMedia(s scanner) (*domain.Media, error) {
	media := &domain.Media{}
	var mimeType, originalFilename sql.NullString
	var createdAt, updatedAt string

	err := s.Scan(
		&media.ID,
		&media.Fingerprint,
		&media.CopySeq,
		&media.StoragePath,
		&mimeType,
		&media.SizeBytes,
		&originalFilename,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	media.MimeType = mimeType.String
	media.OriginalFilename = originalFilename.String
	media.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	media.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return media, nil
}

// nullable converts an empty string to NULL.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// Ensure mediaRepository implements repository.MediaRepository.
var _ repository.MediaRepository = (*mediaRepository)(nil)
