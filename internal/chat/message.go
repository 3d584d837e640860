package chat

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Message role constants.
const (
	RoleUser = "user"
	RoleAI   = "ai"
)

// Session status constants.
const (
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// localIDPrefix marks client-generated ids for pending messages. Durable ids
// are assigned by the backend and never carry this prefix.
const localIDPrefix = "local-"

// AudioPendingText is the placeholder text shown while an audio send is in
// flight. The backend replaces it with the transcribed turn.
const AudioPendingText = "[sending audio…]"

// Message is one turn in a session as the client sees it. The JSON shape is
// the wire shape of the backend's chat and messages endpoints.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Text      string    `json:"text,omitempty"`
	AudioKey  string    `json:"audioKey,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Pending reports whether m is a locally-inserted, not-yet-confirmed message.
func (m Message) Pending() bool {
	return strings.HasPrefix(m.ID, localIDPrefix)
}

// Session is the client's read-only view of one interview conversation.
type Session struct {
	ID          string    `json:"id"`
	JobTitle    string    `json:"jobTitle"`
	CompanyName string    `json:"companyName"`
	Topic       string    `json:"topic"`
	Difficulty  string    `json:"difficulty,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// newLocalID returns a fresh client-generated message id. Random, never
// reused, so two pending entries can coexist without collision.
func newLocalID() string {
	return localIDPrefix + uuid.NewString()
}
