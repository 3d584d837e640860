package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise/internal/audio"
	"github.com/prepwise/prepwise/internal/interviewer"
	"github.com/prepwise/prepwise/internal/session"
)

const (
	// MaxChatBodyBytes bounds the chat request body. Audio uploads dominate.
	MaxChatBodyBytes = audio.MaxPayloadBytes + 1<<20

	// MaxTextLength bounds a typed turn.
	MaxTextLength = 10000

	// historyLimit caps how much conversation is replayed to the model.
	historyLimit = 200
)

// ChatHandler handles the chat endpoint: one user turn in, the stored user
// message and the interviewer's reply out.
type ChatHandler struct {
	store     SessionStore
	blobs     BlobStore
	responder Responder
	logger    *slog.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(store SessionStore, blobs BlobStore, responder Responder, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{store: store, blobs: blobs, responder: responder, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/sessions/{id}/chat", h.chat)
}

// ChatRequest is the JSON request body for a typed turn.
type ChatRequest struct {
	Text string `json:"text"`
}

// ChatResponse carries both halves of the exchange. The client replaces its
// pending entry with UserMessage and appends AIMessage.
type ChatResponse struct {
	UserMessage messageJSON `json:"userMessage"`
	AIMessage   messageJSON `json:"aiMessage"`
}

// chat accepts either a JSON body {text} or a multipart form with an `audio`
// WAV file, generates the interviewer's reply, and persists both messages
// atomically.
func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request) {
	id, ok := sessionID(w, r)
	if !ok {
		return
	}

	sess, err := h.store.Session(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "session not found")
			return
		}
		h.logger.Error("failed to load session", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load session")
		return
	}
	if sess.Status == session.StatusCompleted {
		writeError(w, http.StatusConflict, "session_completed", "session is already completed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxChatBodyBytes)

	text, audioData, ok := h.parseTurn(w, r)
	if !ok {
		return
	}

	// Store the recording first so the message row can reference its key.
	var audioKey string
	if len(audioData) > 0 {
		audioKey, err = h.blobs.PutAudio(r.Context(), id.String(), audioData, "audio/wav")
		if err != nil {
			h.logger.Error("failed to store audio", "session_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "internal_error", "failed to store audio")
			return
		}
	}

	history, err := h.history(r, id)
	if err != nil {
		h.logger.Error("failed to load history", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to load history")
		return
	}

	profile := interviewer.Profile{
		JobTitle:    sess.JobTitle,
		CompanyName: sess.CompanyName,
		Topic:       sess.Topic,
		Difficulty:  sess.Difficulty,
	}
	reply, err := h.responder.Reply(r.Context(), profile, history,
		interviewer.Turn{Role: session.RoleUser, Text: text, Audio: audioData})
	if err != nil {
		h.logger.Error("failed to generate reply", "session_id", id, "error", err)
		writeError(w, http.StatusBadGateway, "ai_unavailable", "interviewer is unavailable, try again")
		return
	}

	stored, err := h.store.AddMessages(r.Context(), id, []*session.Message{
		{Role: session.RoleUser, Text: text, AudioKey: audioKey},
		{Role: session.RoleAI, Text: reply},
	})
	if err != nil {
		h.logger.Error("failed to store messages", "session_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to store messages")
		return
	}

	writeJSON(w, http.StatusOK, ChatResponse{
		UserMessage: toMessageJSON(stored[0]),
		AIMessage:   toMessageJSON(stored[1]),
	})
}

// parseTurn extracts the user turn from either body shape. Reports ok=false
// after writing the error response.
func (h *ChatHandler) parseTurn(w http.ResponseWriter, r *http.Request) (text string, audioData []byte, ok bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	if mediaType == "multipart/form-data" {
		file, header, err := r.FormFile("audio")
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "missing audio file")
			return "", nil, false
		}
		defer func() { _ = file.Close() }()

		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "failed to read audio file")
			return "", nil, false
		}

		payload := audio.Payload{Data: data, Filename: header.Filename, ContentType: "audio/wav"}
		if err := payload.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", err.Error())
			return "", nil, false
		}

		return strings.TrimSpace(r.FormValue("text")), data, true
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body")
		return "", nil, false
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.Text == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "text is required")
		return "", nil, false
	}
	if len(req.Text) > MaxTextLength {
		writeError(w, http.StatusBadRequest, "bad_request", "text too long")
		return "", nil, false
	}
	return req.Text, nil, true
}

// history loads the session's prior turns for the model. Recorded turns with
// no transcript are replayed as a placeholder rather than re-fetching blobs.
func (h *ChatHandler) history(r *http.Request, id uuid.UUID) ([]interviewer.Turn, error) {
	msgs, err := h.store.Messages(r.Context(), id, historyLimit, 0)
	if err != nil {
		return nil, err
	}

	turns := make([]interviewer.Turn, 0, len(msgs))
	for _, m := range msgs {
		text := m.Text
		if text == "" && m.AudioKey != "" {
			text = "[voice answer]"
		}
		turns = append(turns, interviewer.Turn{Role: m.Role, Text: text})
	}
	return turns, nil
}
