package service

import (
	"context"
	"errors"
	"io/fs"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/mediavault/internal/domain"
	"github.com/prn-tf/mediavault/internal/lock"
	"github.com/prn-tf/mediavault/internal/metrics"
	"github.com/prn-tf/mediavault/internal/repository"
	"github.com/prn-tf/mediavault/internal/storage"
)

// GarbageCollector removes orphan blobs: files in the storage tree that no
// catalog row references, typically left behind by crashed ingests.
type GarbageCollector struct {
	mediaRepo repository.MediaRepository
	store     *storage.Store
	locker    lock.Locker
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	config    GCConfig

	// Control
	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// GCConfig contains garbage collection configuration.
type GCConfig struct {
	// Enabled determines if GC runs automatically.
	Enabled bool

	// Interval is how often to run garbage collection.
	Interval time.Duration

	// GracePeriod is the minimum age a blob must have before it can be
	// deleted. This keeps the scan from racing an in-flight ingest that has
	// copied its blob but not yet committed the catalog row.
	GracePeriod time.Duration

	// BatchSize is the maximum number of blobs to delete per run.
	BatchSize int

	// DryRun logs what would be deleted without actually deleting.
	DryRun bool
}

// DefaultGCConfig returns sensible defaults.
func DefaultGCConfig() GCConfig {
	return GCConfig{
		Enabled:     true,
		Interval:    1 * time.Hour,
		GracePeriod: 24 * time.Hour,
		BatchSize:   1000,
		DryRun:      false,
	}
}

// NewGarbageCollector creates a new garbage collector.
func NewGarbageCollector(
	mediaRepo repository.MediaRepository,
	store *storage.Store,
	locker lock.Locker,
	m *metrics.Metrics,
	logger zerolog.Logger,
	config GCConfig,
) *GarbageCollector {
	return &GarbageCollector{
		mediaRepo: mediaRepo,
		store:     store,
		locker:    locker,
		metrics:   m,
		logger:    logger.With().Str("service", "gc").Logger(),
		config:    config,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start begins the garbage collection scheduler.
func (gc *GarbageCollector) Start() {
	gc.mu.Lock()
	if gc.running {
		gc.mu.Unlock()
		return
	}
	gc.running = true
	gc.mu.Unlock()

	gc.logger.Info().
		Dur("interval", gc.config.Interval).
		Dur("grace_period", gc.config.GracePeriod).
		Int("batch_size", gc.config.BatchSize).
		Bool("dry_run", gc.config.DryRun).
		Msg("Starting garbage collector")

	go gc.runLoop()
}

// Stop stops the garbage collection scheduler.
func (gc *GarbageCollector) Stop() {
	gc.mu.Lock()
	if !gc.running {
		gc.mu.Unlock()
		return
	}
	gc.running = false
	gc.mu.Unlock()

	close(gc.stopChan)
	<-gc.doneChan

	gc.logger.Info().Msg("Garbage collector stopped")
}

// runLoop is the main garbage collection loop.
func (gc *GarbageCollector) runLoop() {
	defer close(gc.doneChan)

	// Run immediately on start
	gc.RunOnce(context.Background())

	ticker := time.NewTicker(gc.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gc.RunOnce(context.Background())
		case <-gc.stopChan:
			return
		}
	}
}

// GCResult contains the result of a garbage collection run.
type GCResult struct {
	// BlobsScanned is the number of blobs visited.
	BlobsScanned int

	// BlobsDeleted is the number of orphan blobs deleted (or, in dry-run
	// mode, that would have been deleted).
	BlobsDeleted int

	// BytesFreed is the total bytes freed.
	BytesFreed int64

	// Errors is the number of errors encountered.
	Errors int

	// Duration is how long the run took.
	Duration time.Duration

	// OrphansRemaining is the number of orphans skipped because the batch
	// limit was reached.
	OrphansRemaining int
}

// orphanBlob is one storage-tree file with no catalog row.
type orphanBlob struct {
	relPath string
	size    int64
}

// RunOnce executes a single garbage collection run. Called manually or by
// the scheduler.
func (gc *GarbageCollector) RunOnce(ctx context.Context) GCResult {
	start := time.Now()
	result := GCResult{}

	gc.logger.Debug().Msg("Starting garbage collection run")

	// Overlapping scans would double-count and double-delete.
	lockKey := lock.Keys.OrphanScan()
	lockTTL := gc.config.Interval / 2
	if lockTTL < 5*time.Minute {
		lockTTL = 5 * time.Minute
	}

	acquired, err := gc.locker.Acquire(ctx, lockKey, lockTTL)
	if err != nil {
		gc.logger.Error().Err(err).Msg("Failed to acquire GC lock")
		result.Errors++
		result.Duration = time.Since(start)
		return result
	}
	if !acquired {
		gc.logger.Debug().Msg("GC lock held elsewhere, skipping run")
		result.Duration = time.Since(start)
		return result
	}
	defer func() {
		if _, err := gc.locker.Release(ctx, lockKey); err != nil {
			gc.logger.Error().Err(err).Msg("Failed to release GC lock")
		}
	}()

	orphans, scanned, err := gc.findOrphans(ctx)
	result.BlobsScanned = scanned
	if err != nil {
		gc.logger.Error().Err(err).Msg("Orphan scan failed")
		result.Errors++
		result.Duration = time.Since(start)
		return result
	}

	if len(orphans) == 0 {
		gc.logger.Debug().Int("scanned", scanned).Msg("No orphan blobs found")
		result.Duration = time.Since(start)
		if gc.metrics != nil {
			gc.metrics.GCOrphanBlobs.Set(0)
			gc.metrics.GCLastRunTime.SetToCurrentTime()
		}
		return result
	}

	gc.logger.Info().Int("count", len(orphans)).Msg("Found orphan blobs for cleanup")
	if gc.metrics != nil {
		gc.metrics.GCOrphanBlobs.Set(float64(len(orphans)))
	}

	batch := orphans
	if gc.config.BatchSize > 0 && len(batch) > gc.config.BatchSize {
		batch = batch[:gc.config.BatchSize]
		result.OrphansRemaining = len(orphans) - len(batch)
	}

	for _, orphan := range batch {
		if gc.config.DryRun {
			gc.logger.Info().
				Str("blob", orphan.relPath).
				Int64("size", orphan.size).
				Msg("[DRY RUN] Would delete orphan blob")
			result.BlobsDeleted++
			result.BytesFreed += orphan.size
			continue
		}

		// The blob may have gained a catalog row since the scan; re-check
		// right before deleting.
		referenced, err := gc.mediaRepo.HasStoragePath(ctx, orphan.relPath)
		if err != nil {
			gc.logger.Error().Err(err).Str("blob", orphan.relPath).
				Msg("Failed to re-check blob references")
			result.Errors++
			continue
		}
		if referenced {
			continue
		}

		if err := gc.store.Remove(orphan.relPath); err != nil {
			if !errors.Is(err, domain.ErrBlobNotFound) {
				gc.logger.Error().Err(err).Str("blob", orphan.relPath).
					Msg("Failed to delete orphan blob")
				result.Errors++
			}
			continue
		}

		gc.logger.Debug().Str("blob", orphan.relPath).Int64("size", orphan.size).
			Msg("Deleted orphan blob")

		result.BlobsDeleted++
		result.BytesFreed += orphan.size
	}

	result.Duration = time.Since(start)

	if gc.metrics != nil {
		gc.metrics.RecordGCRun(result.Duration.Seconds(), result.BlobsDeleted, result.BytesFreed)
		gc.metrics.GCLastRunTime.SetToCurrentTime()
		if result.OrphansRemaining == 0 {
			gc.metrics.GCOrphanBlobs.Set(0)
		}
	}

	gc.logger.Info().
		Int("scanned", result.BlobsScanned).
		Int("blobs_deleted", result.BlobsDeleted).
		Int64("bytes_freed", result.BytesFreed).
		Int("errors", result.Errors).
		Dur("duration", result.Duration).
		Msg("Garbage collection run completed")

	return result
}

// findOrphans walks the storage tree and returns blobs with no catalog row
// that are older than the grace period.
func (gc *GarbageCollector) findOrphans(ctx context.Context) ([]orphanBlob, int, error) {
	var orphans []orphanBlob
	scanned := 0
	cutoff := time.Now().Add(-gc.config.GracePeriod)

	err := gc.store.Walk(func(relPath string, info fs.FileInfo) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		scanned++

		if info.ModTime().After(cutoff) {
			return nil
		}

		referenced, err := gc.mediaRepo.HasStoragePath(ctx, relPath)
		if err != nil {
			return err
		}
		if !referenced {
			orphans = append(orphans, orphanBlob{relPath: relPath, size: info.Size()})
		}
		return nil
	})
	if err != nil {
		return nil, scanned, err
	}

	return orphans, scanned, nil
}

// GetStats returns current GC statistics without deleting anything.
func (gc *GarbageCollector) GetStats(ctx context.Context) (*GCStats, error) {
	orphans, _, err := gc.findOrphans(ctx)
	if err != nil {
		return nil, err
	}

	var totalSize int64
	for _, orphan := range orphans {
		totalSize += orphan.size
	}

	return &GCStats{
		OrphanBlobCount: len(orphans),
		OrphanBlobSize:  totalSize,
		GracePeriod:     gc.config.GracePeriod,
		NextRunIn:       gc.config.Interval,
	}, nil
}

// GCStats contains garbage collection statistics.
type GCStats struct {
	OrphanBlobCount int
	OrphanBlobSize  int64
	GracePeriod     time.Duration
	NextRunIn       time.Duration
}
