package rest

import (
	"errors"
	"mime"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/csmather/better-recs/internal/core/domain"
	"github.com/csmather/better-recs/internal/logging"
)

const (
	errCodeInvalidInput     = "INVALID_INPUT"
	errCodePlaylistNotFound = "PLAYLIST_NOT_FOUND"
	errCodeResolution       = "RESOLUTION_FAILED"
	errCodeInternal         = "INTERNAL"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeErrorWithCode(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// writeServiceError maps a recommender error onto a status and error code.
// Invalid input is checked first: a malformed playlist reference surfaces inside a
// ResolutionError but is still the caller's fault.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidInput)
	case errors.Is(err, domain.ErrPlaylistNotFound):
		writeErrorWithCode(w, http.StatusNotFound, err.Error(), errCodePlaylistNotFound)
	case errors.Is(err, domain.ErrResolution):
		writeErrorWithCode(w, http.StatusBadGateway, err.Error(), errCodeResolution)
	default:
		logging.Ctx(r.Context()).Error().Err(err).Msg("recommendation failed")
		writeErrorWithCode(w, http.StatusInternalServerError, "internal error", errCodeInternal)
	}
}

func isJSONContentType(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}
