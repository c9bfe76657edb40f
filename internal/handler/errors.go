package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prn-tf/mediavault/internal/domain"
	"github.com/prn-tf/mediavault/internal/service"
)

// apiError is the JSON error envelope returned by every endpoint.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errorResponse wraps an apiError for serialization.
type errorResponse struct {
	Error apiError `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps a service or domain error onto an HTTP status and writes
// the JSON error envelope.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "InternalError"

	switch {
	case errors.Is(err, domain.ErrMediaNotFound),
		errors.Is(err, domain.ErrCollectionNotFound),
		errors.Is(err, domain.ErrFileNotFound),
		errors.Is(err, domain.ErrBlobNotFound):
		status = http.StatusNotFound
		code = "NotFound"

	case errors.Is(err, domain.ErrCollectionAlreadyExists):
		status = http.StatusConflict
		code = "AlreadyExists"

	case errors.Is(err, domain.ErrDuplicateFingerprint):
		status = http.StatusConflict
		code = "DuplicateContent"

	case errors.Is(err, domain.ErrInvalidPolicy),
		errors.Is(err, domain.ErrCollectionNameEmpty),
		errors.Is(err, domain.ErrInvalidFingerprint),
		errors.Is(err, service.ErrEmptySource),
		errors.Is(err, service.ErrNotRegularFile),
		errors.Is(err, service.ErrEmptyMetadataKey),
		errors.Is(err, service.ErrIndexOnlyRemove):
		status = http.StatusBadRequest
		code = "InvalidRequest"

	case errors.Is(err, domain.ErrPermissionDenied):
		status = http.StatusForbidden
		code = "PermissionDenied"
	}

	writeJSON(w, status, errorResponse{Error: apiError{Code: code, Message: err.Error()}})
}

// writeBadRequest reports a malformed request body or parameter.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error: apiError{Code: "InvalidRequest", Message: message},
	})
}
