// Package main is the entry point for the MediaVault server.
// MediaVault is a content-addressable store for media files with
// deduplication, metadata extraction, and a relational catalog.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/prn-tf/mediavault/internal/cache/memory"
	"github.com/prn-tf/mediavault/internal/config"
	"github.com/prn-tf/mediavault/internal/dedup"
	"github.com/prn-tf/mediavault/internal/extract"
	"github.com/prn-tf/mediavault/internal/handler"
	"github.com/prn-tf/mediavault/internal/lock"
	"github.com/prn-tf/mediavault/internal/metrics"
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
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Error().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Msg("Starting MediaVault server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Catalog
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

	mediaRepo := sqlite.NewMediaRepository(db)
	collectionRepo := sqlite.NewCollectionRepository(db)
	metadataRepo := sqlite.NewMetadataRepository(db)

	// Blob store
	store, err := storage.NewStore(cfg.Storage.Root, logger)
	if err != nil {
		logger.Fatal().Err(err).Str("root", cfg.Storage.Root).Msg("Failed to open blob store")
	}

	// Fingerprint lookup cache
	var cache dedup.Cache
	if cfg.Cache.Enabled {
		memCache := memory.NewCache(cfg.Cache.TTL)
		defer memCache.Stop()
		cache = memCache
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New(prometheus.DefaultRegisterer)
	}

	resolver := dedup.NewResolver(mediaRepo, cache, logger)
	pipeline := extract.NewPipeline(logger, buildExtractors(cfg.Extract)...)

	mediaService := service.NewMediaService(
		mediaRepo, collectionRepo, metadataRepo,
		store, resolver, pipeline, m, logger, cfg.DefaultPolicy(),
	)
	collectionService := service.NewCollectionService(collectionRepo, mediaRepo, logger)

	gc := service.NewGarbageCollector(
		mediaRepo, store, lock.NewMemoryLocker(), m, logger,
		service.GCConfig{
			Enabled:     cfg.GC.Enabled,
			Interval:    cfg.GC.Interval,
			GracePeriod: cfg.GC.GracePeriod,
			BatchSize:   cfg.GC.BatchSize,
			DryRun:      cfg.GC.DryRun,
		},
	)
	if cfg.GC.Enabled {
		gc.Start()
		defer gc.Stop()
	}

	router := handler.NewRouter(handler.RouterConfig{
		MediaHandler:      handler.NewMediaHandler(mediaService, logger),
		CollectionHandler: handler.NewCollectionHandler(collectionService, logger),
		GCHandler:         handler.NewGCHandler(gc, logger),
		MetricsEnabled:    cfg.Metrics.Enabled,
		MetricsPath:       cfg.Metrics.Path,
		Logger:            logger,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}

// newLogger builds the process logger from config.
func newLogger(cfg config.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = zerolog.InfoLevel
	}

	zerolog.TimeFieldFormat = cfg.TimeFormat

	var out = os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}

	if cfg.Format == "console" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).
			Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// buildExtractors assembles the enabled kind-specific extractors.
func buildExtractors(cfg config.ExtractConfig) []extract.Extractor {
	var extractors []extract.Extractor
	if cfg.Image {
		extractors = append(extractors, extract.NewImageExtractor())
	}
	if cfg.Audio {
		extractors = append(extractors, extract.NewAudioExtractor())
	}
	if cfg.Video {
		extractors = append(extractors, extract.NewVideoExtractor(cfg.FFprobePath, cfg.VideoTimeout))
	}
	return extractors
}
