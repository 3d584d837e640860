package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prepwise/prepwise/internal/session"
)

// AudioHandler resolves stored audio keys into time-limited playback URLs.
type AudioHandler struct {
	store  SessionStore
	blobs  BlobStore
	logger *slog.Logger
}

// NewAudioHandler creates an audio handler.
func NewAudioHandler(store SessionStore, blobs BlobStore, logger *slog.Logger) *AudioHandler {
	return &AudioHandler{store: store, blobs: blobs, logger: logger}
}

// RegisterRoutes registers audio routes on the given mux.
func (h *AudioHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions/{id}/audio/{key...}", h.resolve)
}

// AudioURLResponse is the wire shape of a resolved audio URL.
type AudioURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// resolve returns a presigned URL for one of the session's recordings.
// The key must belong to the session; anything else is a 404.
func (h *AudioHandler) resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	key := strings.TrimSpace(r.PathValue("key"))
	if key == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "missing audio key")
		return
	}

	keys, err := h.store.AudioKeys(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		h.logger.Error("failed to list audio keys", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to resolve audio")
		return
	}

	found := false
	for _, k := range keys {
		if k == key {
			found = true
			break
		}
	}
	if !found {
		writeError(w, http.StatusNotFound, "not_found", "audio not found in session")
		return
	}

	url, expiresAt, err := h.blobs.AudioURL(r.Context(), key)
	if err != nil {
		h.logger.Error("failed to presign audio URL", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to resolve audio")
		return
	}

	writeJSON(w, http.StatusOK, AudioURLResponse{URL: url, ExpiresAt: expiresAt})
}
