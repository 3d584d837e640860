package session

import "errors"

// Sentinel errors for store operations. Wrap with fmt.Errorf("%w") and check
// with errors.Is at the boundary.
var (
	// ErrNotFound indicates the session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrInvalidRole indicates a message role outside {user, ai}.
	ErrInvalidRole = errors.New("invalid message role")

	// ErrMissingJobTitle indicates a create request without a job title.
	ErrMissingJobTitle = errors.New("job title is required")

	// ErrMissingCompanyName indicates a create request without a company name.
	ErrMissingCompanyName = errors.New("company name is required")

	// ErrMissingTopic indicates a create request without a topic.
	ErrMissingTopic = errors.New("topic is required")
)
