package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/mediavault/internal/domain"
	"github.com/prn-tf/mediavault/internal/service"
)

// MediaHandler exposes ingestion and media entry endpoints.
type MediaHandler struct {
	media  *service.MediaService
	logger zerolog.Logger
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(media *service.MediaService, logger zerolog.Logger) *MediaHandler {
	return &MediaHandler{
		media:  media,
		logger: logger.With().Str("handler", "media").Logger(),
	}
}

// ingestRequest is the body of POST /api/v1/media.
type ingestRequest struct {
	SourcePath       string            `json:"source_path"`
	OriginalFilename string            `json:"original_filename,omitempty"`
	Collection       string            `json:"collection,omitempty"`
	Policy           string            `json:"policy,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	RemoveSource     bool              `json:"remove_source,omitempty"`
	IndexOnly        bool              `json:"index_only,omitempty"`
}

// ingestResponse is the result of an ingestion.
type ingestResponse struct {
	Media     *domain.Media `json:"media"`
	Duplicate bool          `json:"duplicate"`
	Alert     bool          `json:"alert,omitempty"`
	Action    string        `json:"action"`
}

// Ingest handles POST /api/v1/media.
func (h *MediaHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	output, err := h.media.Ingest(r.Context(), service.IngestInput{
		SourcePath:       req.SourcePath,
		OriginalFilename: req.OriginalFilename,
		CollectionName:   req.Collection,
		Policy:           req.Policy,
		CustomMetadata:   req.Metadata,
		RemoveSource:     req.RemoveSource,
		IndexOnly:        req.IndexOnly,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if output.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, ingestResponse{
		Media:     output.Media,
		Duplicate: output.Duplicate,
		Alert:     output.Alert,
		Action:    output.Action,
	})
}

// mediaDetailsResponse is the compiled view of one media entry.
type mediaDetailsResponse struct {
	Media       *domain.Media          `json:"media"`
	Metadata    []domain.MetadataEntry `json:"metadata"`
	Collections []string               `json:"collections"`
}

// Get handles GET /api/v1/media/{id}.
func (h *MediaHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	details, err := h.media.GetMedia(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, mediaDetailsResponse{
		Media:       details.Media,
		Metadata:    details.Metadata,
		Collections: details.Collections,
	})
}

// Content handles GET /api/v1/media/{id}/content and streams the blob.
func (h *MediaHandler) Content(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	media, rc, err := h.media.OpenContent(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	defer rc.Close()

	if media.MimeType != "" {
		w.Header().Set("Content-Type", media.MimeType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Content-Length", strconv.FormatInt(media.SizeBytes, 10))
	w.Header().Set("ETag", `"`+media.Fingerprint+`"`)

	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error().Err(err).Str("media_id", id).Msg("failed to stream content")
	}
}

// Search handles GET /api/v1/media.
//
// Query parameters: collection, q, limit, offset, plus meta.<key>=<value>
// pairs for metadata filters.
func (h *MediaHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	input := service.SearchInput{
		CollectionName: query.Get("collection"),
		Query:          query.Get("q"),
	}
	if limit := query.Get("limit"); limit != "" {
		input.Limit, _ = strconv.Atoi(limit)
	}
	if offset := query.Get("offset"); offset != "" {
		input.Offset, _ = strconv.Atoi(offset)
	}

	for key, values := range query {
		if strings.HasPrefix(key, "meta.") && len(values) > 0 {
			if input.Metadata == nil {
				input.Metadata = make(map[string]string)
			}
			input.Metadata[strings.TrimPrefix(key, "meta.")] = values[0]
		}
	}

	results, err := h.media.Search(r.Context(), input)
	if err != nil {
		writeError(w, err)
		return
	}
	if results == nil {
		results = []*domain.Media{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"media": results})
}

// Delete handles DELETE /api/v1/media/{id}.
func (h *MediaHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.media.DeleteMedia(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// addMetadataRequest is the body of POST /api/v1/media/{id}/metadata.
type addMetadataRequest struct {
	Metadata map[string]string `json:"metadata"`
}

// AddMetadata handles POST /api/v1/media/{id}/metadata.
func (h *MediaHandler) AddMetadata(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req addMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if len(req.Metadata) == 0 {
		writeBadRequest(w, "metadata must not be empty")
		return
	}

	entries, err := h.media.AddMetadata(r.Context(), service.AddMetadataInput{
		MediaID: id,
		Values:  req.Metadata,
		Source:  domain.SourceAPI,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{"metadata": entries})
}
