package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// sessionCols is the standard SELECT column list for scanSession.
const sessionCols = `id, job_title, company_name, topic, difficulty, status,
	message_count, created_at, updated_at`

// messageCols is the standard SELECT column list for scanMessage.
const messageCols = `id, session_id, role, text, audio_key, sequence_number, created_at`

// Store manages session and message persistence.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store. logger may be nil.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

// CreateParams are the attributes of a new session.
type CreateParams struct {
	JobTitle    string
	CompanyName string
	Topic       string
	Difficulty  string
}

// Validate checks required attributes.
func (p CreateParams) Validate() error {
	if p.JobTitle == "" {
		return ErrMissingJobTitle
	}
	if p.CompanyName == "" {
		return ErrMissingCompanyName
	}
	if p.Topic == "" {
		return ErrMissingTopic
	}
	return nil
}

// CreateSession creates a new in-progress session.
func (s *Store) CreateSession(ctx context.Context, params CreateParams) (*Session, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	row := s.pool.QueryRow(ctx, `INSERT INTO sessions (job_title, company_name, topic, difficulty)
		VALUES ($1, $2, $3, $4)
		RETURNING `+sessionCols,
		params.JobTitle, params.CompanyName, params.Topic, params.Difficulty)

	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	s.logger.Debug("created session", "id", sess.ID, "job_title", sess.JobTitle)
	return sess, nil
}

// Session retrieves a session by id.
func (s *Store) Session(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+sessionCols+` FROM sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return sess, nil
}

// Sessions lists sessions newest-first with pagination.
func (s *Store) Sessions(ctx context.Context, limit, offset int) ([]*Session, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+sessionCols+` FROM sessions
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}

	s.logger.Debug("listed sessions", "count", len(sessions))
	return sessions, nil
}

// CompleteSession marks a session completed.
func (s *Store) CompleteSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := s.pool.QueryRow(ctx, `UPDATE sessions SET status = $1, updated_at = now()
		WHERE id = $2
		RETURNING `+sessionCols, StatusCompleted, id)
	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to complete session %s: %w", id, err)
	}
	return sess, nil
}

// DeleteSession deletes a session; messages go with it (ON DELETE CASCADE).
func (s *Store) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.logger.Debug("deleted session", "id", id)
	return nil
}

// AudioKeys returns the blob keys of all recorded turns in a session, so the
// caller can purge blob storage when the session is deleted.
func (s *Store) AudioKeys(ctx context.Context, id uuid.UUID) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT audio_key FROM messages WHERE session_id = $1 AND audio_key <> ''`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list audio keys for %s: %w", id, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("failed to scan audio key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// AddMessages appends messages to a session in one transaction. The session
// row is locked first so concurrent writers cannot race on sequence numbers.
// Returns the stored messages with assigned ids, sequence numbers, and
// timestamps, in input order.
func (s *Store) AddMessages(ctx context.Context, sessionID uuid.UUID, messages []*Message) ([]*Message, error) {
	if len(messages) == 0 {
		return nil, nil
	}
	for i, msg := range messages {
		if !ValidRole(msg.Role) {
			return nil, fmt.Errorf("message %d: %w: %q", i, ErrInvalidRole, msg.Role)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			s.logger.Debug("transaction rollback", "error", err)
		}
	}()

	var locked uuid.UUID
	err = tx.QueryRow(ctx, `SELECT id FROM sessions WHERE id = $1 FOR UPDATE`, sessionID).Scan(&locked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, sessionID)
		}
		return nil, fmt.Errorf("failed to lock session: %w", err)
	}

	var maxSeq int
	err = tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(sequence_number), 0) FROM messages WHERE session_id = $1`,
		sessionID).Scan(&maxSeq)
	if err != nil {
		return nil, fmt.Errorf("failed to get max sequence number: %w", err)
	}

	stored := make([]*Message, 0, len(messages))
	for i, msg := range messages {
		row := tx.QueryRow(ctx, `INSERT INTO messages (session_id, role, text, audio_key, sequence_number)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+messageCols,
			sessionID, msg.Role, msg.Text, msg.AudioKey, maxSeq+i+1)
		m, err := scanMessage(row)
		if err != nil {
			return nil, fmt.Errorf("failed to insert message %d: %w", i, err)
		}
		stored = append(stored, m)
	}

	_, err = tx.Exec(ctx, `UPDATE sessions
		SET message_count = message_count + $1, updated_at = now()
		WHERE id = $2`, len(messages), sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to update session metadata: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.logger.Debug("added messages", "session_id", sessionID, "count", len(messages))
	return stored, nil
}

// Messages retrieves a session's messages oldest-first with pagination.
func (s *Store) Messages(ctx context.Context, sessionID uuid.UUID, limit, offset int) ([]*Message, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+messageCols+` FROM messages
		WHERE session_id = $1
		ORDER BY sequence_number ASC
		LIMIT $2 OFFSET $3`, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages for %s: %w", sessionID, err)
	}
	defer rows.Close()

	var messages []*Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get messages for %s: %w", sessionID, err)
	}
	return messages, nil
}

// scanSession reads one session row in sessionCols order.
func scanSession(row pgx.Row) (*Session, error) {
	var s Session
	err := row.Scan(&s.ID, &s.JobTitle, &s.CompanyName, &s.Topic, &s.Difficulty,
		&s.Status, &s.MessageCount, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// scanMessage reads one message row in messageCols order.
func scanMessage(row pgx.Row) (*Message, error) {
	var m Message
	err := row.Scan(&m.ID, &m.SessionID, &m.Role, &m.Text, &m.AudioKey,
		&m.SequenceNumber, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
