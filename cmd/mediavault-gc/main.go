// Package main is the entry point for the MediaVault garbage collection tool.
// It runs a single orphan-blob scan against the catalog and the storage tree,
// then exits. Intended for cron jobs and manual cleanup.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/mediavault/internal/config"
	"github.com/prn-tf/mediavault/internal/lock"
	"github.com/prn-tf/mediavault/internal/repository/sqlite"
	"github.com/prn-tf/mediavault/internal/service"
	"github.com/prn-tf/mediavault/internal/storage"
)

// Version information (set at build time)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	dryRun := flag.Bool("dry-run", false, "report orphans without deleting")
	statsOnly := flag.Bool("stats", false, "print orphan statistics and exit")
	gracePeriod := flag.Duration("grace-period", 0, "override the configured grace period")
	showVersion := flag.Bool("version", false, "print version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("MediaVault GC\nVersion: %s\nBuild Time: %s\nGit Commit: %s\n",
			Version, BuildTime, GitCommit)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	ctx := context.Background()

	db, err := sqlite.NewDB(ctx, sqlite.Config{
		Path:            cfg.Database.Path,
		JournalMode:     cfg.Database.JournalMode,
		BusyTimeout:     cfg.Database.BusyTimeout,
		CacheSize:       cfg.Database.CacheSize,
		SynchronousMode: cfg.Database.SynchronousMode,
		MaxOpenConns:    1,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open catalog database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run catalog migrations")
	}

	store, err := storage.NewStore(cfg.Storage.Root, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("root", cfg.Storage.Root).Msg("Failed to open blob store")
	}

	gcConfig := service.GCConfig{
		Interval:    cfg.GC.Interval,
		GracePeriod: cfg.GC.GracePeriod,
		BatchSize:   cfg.GC.BatchSize,
		DryRun:      cfg.GC.DryRun || *dryRun,
	}
	if *gracePeriod != 0 {
		gcConfig.GracePeriod = *gracePeriod
	}

	// One-shot run; no scheduler is competing, so no real lock is needed.
	gc := service.NewGarbageCollector(
		sqlite.NewMediaRepository(db), store, lock.NewNoopLocker(), nil, logger, gcConfig,
	)

	if *statsOnly {
		stats, err := gc.GetStats(ctx)
		if err != nil {
			logger.Fatal().Err(err).Msg("Orphan scan failed")
		}
		fmt.Printf("orphan blobs:  %d\n", stats.OrphanBlobCount)
		fmt.Printf("orphan bytes:  %d\n", stats.OrphanBlobSize)
		fmt.Printf("grace period:  %s\n", stats.GracePeriod)
		return
	}

	result := gc.RunOnce(ctx)

	fmt.Printf("blobs scanned:     %d\n", result.BlobsScanned)
	fmt.Printf("blobs deleted:     %d\n", result.BlobsDeleted)
	fmt.Printf("bytes freed:       %d\n", result.BytesFreed)
	fmt.Printf("errors:            %d\n", result.Errors)
	fmt.Printf("orphans remaining: %d\n", result.OrphansRemaining)
	fmt.Printf("duration:          %s\n", result.Duration)

	if result.Errors > 0 {
		os.Exit(1)
	}
}
