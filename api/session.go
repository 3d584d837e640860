package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise/internal/session"
)

// Session validation constants.
const (
	MaxFieldLength   = 200
	DefaultListLimit = 100
	MaxListLimit     = 1000
	MaxListOffset    = 100000 // Offsets beyond this are rejected
)

// SessionHandler handles session management endpoints.
type SessionHandler struct {
	store  SessionStore
	blobs  BlobStore
	logger *slog.Logger
}

// NewSessionHandler creates a session handler. blobs may be nil; deletion
// then skips the audio cleanup.
func NewSessionHandler(store SessionStore, blobs BlobStore, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{store: store, blobs: blobs, logger: logger}
}

// RegisterRoutes registers session routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.list)
	mux.HandleFunc("POST /api/sessions", h.create)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.delete)
	mux.HandleFunc("POST /api/sessions/{id}/complete", h.complete)
	mux.HandleFunc("GET /api/sessions/{id}/messages", h.messages)
}

// list returns sessions newest-first with pagination.
// Query parameters: limit (default 100, max 1000), offset (default 0).
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", DefaultListLimit, 1, MaxListLimit)
	offset := parseIntParam(r, "offset", 0, 0, MaxListOffset)

	sessions, err := h.store.Sessions(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to list sessions")
		return
	}

	out := make([]sessionJSON, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, toSessionJSON(s))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sessions": out,
		"total":    len(out),
		"limit":    limit,
		"offset":   offset,
	})
}

// CreateSessionRequest is the request body for creating a session.
type CreateSessionRequest struct {
	JobTitle    string `json:"jobTitle"`
	CompanyName string `json:"companyName"`
	Topic       string `json:"topic"`
	Difficulty  string `json:"difficulty"`
}

// create creates a new in-progress session.
func (h *SessionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return
	}

	for name, val := range map[string]string{
		"jobTitle":    req.JobTitle,
		"companyName": req.CompanyName,
		"topic":       req.Topic,
		"difficulty":  req.Difficulty,
	} {
		if len(val) > MaxFieldLength {
			writeError(w, http.StatusBadRequest, "bad_request", name+" too long (max 200 characters)")
			return
		}
	}

	sess, err := h.store.CreateSession(r.Context(), session.CreateParams{
		JobTitle:    req.JobTitle,
		CompanyName: req.CompanyName,
		Topic:       req.Topic,
		Difficulty:  req.Difficulty,
	})
	if err != nil {
		switch {
		case errors.Is(err, session.ErrMissingJobTitle),
			errors.Is(err, session.ErrMissingCompanyName),
			errors.Is(err, session.ErrMissingTopic):
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		default:
			h.logger.Error("failed to create session", "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to create session")
		}
		return
	}

	writeJSON(w, http.StatusCreated, toSessionJSON(sess))
}

// delete removes a session, its messages, and its stored audio.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	// Collect audio keys before the rows cascade away.
	var keys []string
	if h.blobs != nil {
		var err error
		keys, err = h.store.AudioKeys(r.Context(), id)
		if err != nil {
			h.logger.Error("failed to list audio keys", "session_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete session")
			return
		}
	}

	if err := h.store.DeleteSession(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		h.logger.Error("failed to delete session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete session")
		return
	}

	// Best effort: the session row is gone, orphaned blobs only waste space.
	if h.blobs != nil && len(keys) > 0 {
		if err := h.blobs.Remove(r.Context(), keys); err != nil {
			h.logger.Warn("failed to remove session audio", "session_id", id, "error", err)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// complete marks a session completed.
func (h *SessionHandler) complete(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	sess, err := h.store.CompleteSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		h.logger.Error("failed to complete session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to complete session")
		return
	}

	writeJSON(w, http.StatusOK, toSessionJSON(sess))
}

// messages returns a session's messages oldest-first.
func (h *SessionHandler) messages(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	// 404 for a missing session, empty list for an empty one.
	if _, err := h.store.Session(r.Context(), id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		h.logger.Error("failed to load session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load messages")
		return
	}

	limit := parseIntParam(r, "limit", DefaultListLimit, 1, MaxListLimit)
	offset := parseIntParam(r, "offset", 0, 0, MaxListOffset)

	msgs, err := h.store.Messages(r.Context(), id, limit, offset)
	if err != nil {
		h.logger.Error("failed to load messages", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load messages")
		return
	}

	out := make([]messageJSON, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageJSON(m))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"messages": out,
		"total":    len(out),
		"limit":    limit,
		"offset":   offset,
	})
}

// sessionID parses the {id} path value, writing a 400 on failure.
func sessionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid session id")
		return uuid.Nil, false
	}
	return id, true
}

// parseIntParam parses an integer query parameter with bounds checking.
func parseIntParam(r *http.Request, name string, defaultVal, minVal, maxVal int) int {
	str := r.URL.Query().Get(name)
	if str == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultVal
	}
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}
