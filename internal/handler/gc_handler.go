package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/prn-tf/mediavault/internal/service"
)

// GCHandler exposes the orphan scan over HTTP.
type GCHandler struct {
	gc     *service.GarbageCollector
	logger zerolog.Logger
}

// NewGCHandler creates a new GCHandler.
func NewGCHandler(gc *service.GarbageCollector, logger zerolog.Logger) *GCHandler {
	return &GCHandler{
		gc:     gc,
		logger: logger.With().Str("handler", "gc").Logger(),
	}
}

// Stats handles GET /api/v1/gc/stats.
func (h *GCHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.gc.GetStats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"orphan_blob_count": stats.OrphanBlobCount,
		"orphan_blob_bytes": stats.OrphanBlobSize,
		"grace_period":      stats.GracePeriod.String(),
		"next_run_in":       stats.NextRunIn.String(),
	})
}

// Run handles POST /api/v1/gc/run and triggers one collection run.
func (h *GCHandler) Run(w http.ResponseWriter, r *http.Request) {
	result := h.gc.RunOnce(r.Context())

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"blobs_scanned":     result.BlobsScanned,
		"blobs_deleted":     result.BlobsDeleted,
		"bytes_freed":       result.BytesFreed,
		"errors":            result.Errors,
		"duration":          result.Duration.String(),
		"orphans_remaining": result.OrphansRemaining,
	})
}
