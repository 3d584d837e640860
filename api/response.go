package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prepwise/prepwise/internal/session"
)

// writeJSON writes a JSON response with the given status code.
// If encoding fails after WriteHeader, the status code is already on the
// wire; the error is only logged.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, err string, message string) {
	writeJSON(w, status, ErrorResponse{Error: err, Message: message})
}

// sessionJSON is the wire shape of a session.
type sessionJSON struct {
	ID           string    `json:"id"`
	JobTitle     string    `json:"jobTitle"`
	CompanyName  string    `json:"companyName"`
	Topic        string    `json:"topic"`
	Difficulty   string    `json:"difficulty,omitempty"`
	Status       string    `json:"status"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// messageJSON is the wire shape of a message.
type messageJSON struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Text      string    `json:"text,omitempty"`
	AudioKey  string    `json:"audioKey,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toSessionJSON(s *session.Session) sessionJSON {
	return sessionJSON{
		ID:           s.ID.String(),
		JobTitle:     s.JobTitle,
		CompanyName:  s.CompanyName,
		Topic:        s.Topic,
		Difficulty:   s.Difficulty,
		Status:       s.Status,
		MessageCount: s.MessageCount,
		CreatedAt:    s.CreatedAt,
	}
}

func toMessageJSON(m *session.Message) messageJSON {
	return messageJSON{
		ID:        m.ID.String(),
		SessionID: m.SessionID.String(),
		Role:      m.Role,
		Text:      m.Text,
		AudioKey:  m.AudioKey,
		CreatedAt: m.CreatedAt,
	}
}
