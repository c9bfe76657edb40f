package sqlite

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/mediavault/internal/domain"
	"github.com/prn-tf/mediavault/internal/repository"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	ctx := context.Background()
	db, err := NewDB(ctx, DefaultConfig(":memory:"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate(ctx))
	// Migrations must be idempotent.
	require.NoError(t, db.Migrate(ctx))

	return db
}

func testFP(pair string) string {
	return strings.Repeat(pair, 64)
}

func newTestMedia(fp string) *domain.Media {
	return domain.NewMedia(fp, "media/"+fp[:2]+"/"+fp[2:4]+"/"+fp+".jpg", "image/jpeg", 42, "photo.jpg")
}

func TestCollectionRepository_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewCollectionRepository(db)
	ctx := context.Background()

	collection := domain.NewCollection("Vacation", "summer photos")
	require.NoError(t, repo.Create(ctx, collection))

	got, err := repo.GetByName(ctx, "Vacation")
	require.NoError(t, err)
	assert.Equal(t, collection.ID, got.ID)
	assert.Equal(t, "summer photos", got.Description)
	assert.Equal(t, 0, got.MediaCount)

	_, err = repo.GetByName(ctx, "Nope")
	assert.True(t, errors.Is(err, domain.ErrCollectionNotFound))
}

func TestCollectionRepository_NameConflict(t *testing.T) {
	db := newTestDB(t)
	repo := NewCollectionRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, domain.NewCollection("Vacation", "")))

	err := repo.Create(ctx, domain.NewCollection("Vacation", "second"))
	assert.True(t, errors.Is(err, domain.ErrCollectionAlreadyExists))
}

func TestMediaRepository_CreateWithRelations(t *testing.T) {
	db := newTestDB(t)
	collRepo := NewCollectionRepository(db)
	mediaRepo := NewMediaRepository(db)
	metaRepo := NewMetadataRepository(db)
	ctx := context.Background()

	collection := domain.NewCollection("Vacation", "")
	require.NoError(t, collRepo.Create(ctx, collection))

	media := newTestMedia(testFP("ab"))
	metadata := []domain.MetadataEntry{
		{MediaID: media.ID, Key: "file.name", Value: "photo.jpg", Source: domain.SourceAuto},
		{MediaID: media.ID, Key: "file.size", Value: "42", Source: domain.SourceAuto},
	}
	require.NoError(t, mediaRepo.CreateWithRelations(ctx, media, metadata, collection.ID))

	got, err := mediaRepo.GetByFingerprint(ctx, media.Fingerprint)
	require.NoError(t, err)
	assert.Equal(t, media.ID, got.ID)
	assert.Equal(t, "image/jpeg", got.MimeType)
	assert.Equal(t, int64(42), got.SizeBytes)

	entries, err := metaRepo.ListByMedia(ctx, media.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	isMember, err := collRepo.HasMember(ctx, collection.ID, media.ID)
	require.NoError(t, err)
	assert.True(t, isMember)
}

func TestMediaRepository_DuplicateFingerprintRollsBack(t *testing.T) {
	db := newTestDB(t)
	collRepo := NewCollectionRepository(db)
	mediaRepo := NewMediaRepository(db)
	metaRepo := NewMetadataRepository(db)
	ctx := context.Background()

	collection := domain.NewCollection("Vacation", "")
	require.NoError(t, collRepo.Create(ctx, collection))

	first := newTestMedia(testFP("ab"))
	require.NoError(t, mediaRepo.CreateWithRelations(ctx, first, nil, collection.ID))

	// Same fingerprint, different ID: the partial unique index rejects it and
	// the whole transaction, metadata included, must roll back.
	second := newTestMedia(testFP("ab"))
	metadata := []domain.MetadataEntry{
		{MediaID: second.ID, Key: "file.name", Value: "other.jpg", Source: domain.SourceAuto},
	}
	err := mediaRepo.CreateWithRelations(ctx, second, metadata, collection.ID)
	assert.True(t, errors.Is(err, domain.ErrDuplicateFingerprint))

	_, err = mediaRepo.GetByID(ctx, second.ID)
	assert.True(t, errors.Is(err, domain.ErrMediaNotFound))

	entries, err := metaRepo.ListByMedia(ctx, second.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMediaRepository_ForcedCopySeq(t *testing.T) {
	db := newTestDB(t)
	mediaRepo := NewMediaRepository(db)
	ctx := context.Background()

	fp := testFP("ab")

	seq, err := mediaRepo.NextCopySeq(ctx, fp)
	require.NoError(t, err)
	assert.Equal(t, 0, seq)

	canonical := newTestMedia(fp)
	require.NoError(t, mediaRepo.CreateWithRelations(ctx, canonical, nil, ""))

	seq, err = mediaRepo.NextCopySeq(ctx, fp)
	require.NoError(t, err)
	assert.Equal(t, 1, seq)

	// A forced copy with copy_seq > 0 passes the partial unique index.
	forced := newTestMedia(fp)
	forced.CopySeq = seq
	forced.StoragePath = forced.StoragePath + ".1"
	require.NoError(t, mediaRepo.CreateWithRelations(ctx, forced, nil, ""))

	// The canonical lookup still returns the copy_seq = 0 row.
	got, err := mediaRepo.GetByFingerprint(ctx, fp)
	require.NoError(t, err)
	assert.Equal(t, canonical.ID, got.ID)
}

func TestMediaRepository_DeleteCascades(t *testing.T) {
	db := newTestDB(t)
	collRepo := NewCollectionRepository(db)
	mediaRepo := NewMediaRepository(db)
	metaRepo := NewMetadataRepository(db)
	ctx := context.Background()

	collection := domain.NewCollection("Vacation", "")
	require.NoError(t, collRepo.Create(ctx, collection))

	doomed := newTestMedia(testFP("ab"))
	require.NoError(t, mediaRepo.CreateWithRelations(ctx, doomed, []domain.MetadataEntry{
		{MediaID: doomed.ID, Key: "file.name", Value: "photo.jpg", Source: domain.SourceAuto},
	}, collection.ID))

	survivor := newTestMedia(testFP("cd"))
	require.NoError(t, mediaRepo.CreateWithRelations(ctx, survivor, []domain.MetadataEntry{
		{MediaID: survivor.ID, Key: "file.name", Value: "other.jpg", Source: domain.SourceAuto},
	}, collection.ID))

	require.NoError(t, mediaRepo.Delete(ctx, doomed.ID))

	entries, err := metaRepo.ListByMedia(ctx, doomed.ID)
	require.NoError(t, err)
	assert.Empty(t, entries, "metadata rows must cascade")

	isMember, err := collRepo.HasMember(ctx, collection.ID, doomed.ID)
	require.NoError(t, err)
	assert.False(t, isMember, "membership rows must cascade")

	// Other entries and the collection are untouched.
	entries, err = metaRepo.ListByMedia(ctx, survivor.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	got, err := collRepo.GetByID(ctx, collection.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MediaCount)
}

func TestCollectionRepository_AddMemberIdempotent(t *testing.T) {
	db := newTestDB(t)
	collRepo := NewCollectionRepository(db)
	mediaRepo := NewMediaRepository(db)
	ctx := context.Background()

	collection := domain.NewCollection("Vacation", "")
	require.NoError(t, collRepo.Create(ctx, collection))

	media := newTestMedia(testFP("ab"))
	require.NoError(t, mediaRepo.CreateWithRelations(ctx, media, nil, ""))

	added, err := collRepo.AddMember(ctx, collection.ID, media.ID)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = collRepo.AddMember(ctx, collection.ID, media.ID)
	require.NoError(t, err)
	assert.False(t, added, "duplicate membership must be a no-op")

	got, err := collRepo.GetByID(ctx, collection.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MediaCount)
}

func TestCollectionRepository_DeleteKeepsMedia(t *testing.T) {
	db := newTestDB(t)
	collRepo := NewCollectionRepository(db)
	mediaRepo := NewMediaRepository(db)
	ctx := context.Background()

	collection := domain.NewCollection("Vacation", "")
	require.NoError(t, collRepo.Create(ctx, collection))

	media := newTestMedia(testFP("ab"))
	require.NoError(t, mediaRepo.CreateWithRelations(ctx, media, nil, collection.ID))

	require.NoError(t, collRepo.Delete(ctx, collection.ID))

	got, err := mediaRepo.GetByID(ctx, media.ID)
	require.NoError(t, err)
	assert.Equal(t, media.ID, got.ID)

	names, err := collRepo.CollectionsForMedia(ctx, media.ID)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestMediaRepository_Search(t *testing.T) {
	db := newTestDB(t)
	collRepo := NewCollectionRepository(db)
	mediaRepo := NewMediaRepository(db)
	metaRepo := NewMetadataRepository(db)
	ctx := context.Background()

	vacation := domain.NewCollection("Vacation", "")
	work := domain.NewCollection("Work", "")
	require.NoError(t, collRepo.Create(ctx, vacation))
	require.NoError(t, collRepo.Create(ctx, work))

	beach := newTestMedia(testFP("ab"))
	beach.OriginalFilename = "beach.jpg"
	require.NoError(t, mediaRepo.CreateWithRelations(ctx, beach, nil, vacation.ID))
	require.NoError(t, metaRepo.Add(ctx, []domain.MetadataEntry{
		{MediaID: beach.ID, Key: "exif.model", Value: "Canon EOS R5", Source: domain.SourceAuto},
	}))

	report := newTestMedia(testFP("cd"))
	report.OriginalFilename = "report.pdf"
	require.NoError(t, mediaRepo.CreateWithRelations(ctx, report, nil, work.ID))

	// By collection.
	results, err := mediaRepo.Search(ctx, repository.SearchFilter{CollectionID: vacation.ID})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, beach.ID, results[0].ID)

	// By filename query.
	results, err = mediaRepo.Search(ctx, repository.SearchFilter{Query: "report"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, report.ID, results[0].ID)

	// By metadata filter with substring match.
	results, err = mediaRepo.Search(ctx, repository.SearchFilter{
		Metadata: map[string]string{"exif.model": "Canon"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, beach.ID, results[0].ID)

	// No match.
	results, err = mediaRepo.Search(ctx, repository.SearchFilter{Query: "nothing"})
	require.NoError(t, err)
	assert.Empty(t, results)

	// Pagination.
	results, err = mediaRepo.Search(ctx, repository.SearchFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMetadataRepository_AddToMissingMedia(t *testing.T) {
	db := newTestDB(t)
	metaRepo := NewMetadataRepository(db)
	ctx := context.Background()

	err := metaRepo.Add(ctx, []domain.MetadataEntry{
		{MediaID: "no-such-media", Key: "custom.note", Value: "x", Source: domain.SourceUser},
	})
	assert.True(t, errors.Is(err, domain.ErrMediaNotFound))
}
