package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/prn-tf/mediavault/internal/domain"
	"github.com/prn-tf/mediavault/internal/service"
)

// CollectionHandler exposes collection endpoints.
type CollectionHandler struct {
	collections *service.CollectionService
	logger      zerolog.Logger
}

// NewCollectionHandler creates a new CollectionHandler.
func NewCollectionHandler(collections *service.CollectionService, logger zerolog.Logger) *CollectionHandler {
	return &CollectionHandler{
		collections: collections,
		logger:      logger.With().Str("handler", "collection").Logger(),
	}
}

// collectionRequest is the body of collection create/update calls.
type collectionRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Create handles POST /api/v1/collections.
func (h *CollectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req collectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	collection, err := h.collections.CreateCollection(r.Context(), service.CreateCollectionInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, collection)
}

// List handles GET /api/v1/collections.
func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	collections, err := h.collections.ListCollections(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if collections == nil {
		collections = []*domain.Collection{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"collections": collections})
}

// Get handles GET /api/v1/collections/{id}.
func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	collection, err := h.collections.GetCollection(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collection)
}

// Update handles PUT /api/v1/collections/{id}.
func (h *CollectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req collectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}

	collection, err := h.collections.UpdateCollection(r.Context(), service.UpdateCollectionInput{
		ID:          chi.URLParam(r, "id"),
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, collection)
}

// Delete handles DELETE /api/v1/collections/{id}.
func (h *CollectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.collections.DeleteCollection(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// addMediaRequest is the body of POST /api/v1/collections/{id}/media.
type addMediaRequest struct {
	MediaID string `json:"media_id"`
}

// AddMedia handles POST /api/v1/collections/{id}/media.
func (h *CollectionHandler) AddMedia(w http.ResponseWriter, r *http.Request) {
	var req addMediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "malformed request body")
		return
	}
	if req.MediaID == "" {
		writeBadRequest(w, "media_id is required")
		return
	}

	output, err := h.collections.AddMedia(r.Context(), service.AddMediaInput{
		CollectionID: chi.URLParam(r, "id"),
		MediaID:      req.MediaID,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusCreated
	if !output.Added {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]bool{"added": output.Added})
}

// ListMedia handles GET /api/v1/collections/{id}/media.
func (h *CollectionHandler) ListMedia(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	media, err := h.collections.ListMedia(r.Context(), chi.URLParam(r, "id"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	if media == nil {
		media = []*domain.Media{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"media": media})
}
