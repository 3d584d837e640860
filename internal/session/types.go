package session

import (
	"time"

	"github.com/google/uuid"
)

// Message role constants. The wire protocol and database use the same values.
const (
	RoleUser = "user"
	RoleAI   = "ai"
)

// Session lifecycle states.
const (
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// Session represents one interview conversation.
type Session struct {
	ID           uuid.UUID
	JobTitle     string
	CompanyName  string
	Topic        string
	Difficulty   string
	Status       string
	MessageCount int
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Message represents a single turn in a session. AudioKey is empty for typed
// turns and holds the blob storage key for recorded ones.
type Message struct {
	ID             uuid.UUID
	SessionID      uuid.UUID
	Role           string
	Text           string
	AudioKey       string
	SequenceNumber int
	CreatedAt      time.Time
}

// ValidRole reports whether role is one of the protocol's message roles.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAI
}
