package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prepwise/prepwise/internal/audio"
)

// Sentinel errors for send operations.
var (
	// ErrNoSession indicates no session id was supplied.
	ErrNoSession = errors.New("no active session")

	// ErrEmptyMessage indicates the text was empty after trimming.
	ErrEmptyMessage = errors.New("empty message")

	// ErrSendInFlight indicates a send for the same session is still
	// outstanding.
	ErrSendInFlight = errors.New("send already in flight for session")

	// ErrMalformedResult indicates a 2xx response missing the user or AI
	// message. The cache is left untouched in that case.
	ErrMalformedResult = errors.New("malformed send result")
)

// SendResult is the settled outcome of a successful send: the durable user
// message plus the paired AI reply.
type SendResult struct {
	UserMessage *Message `json:"userMessage"`
	AIMessage   *Message `json:"aiMessage"`
}

// Sender issues the remote operations the coordinator drives. Implemented by
// the HTTP API client; defined here, by the consumer.
type Sender interface {
	SendText(ctx context.Context, sessionID, text string) (SendResult, error)
	SendAudio(ctx context.Context, sessionID string, payload audio.Payload) (SendResult, error)
	Messages(ctx context.Context, sessionID string) ([]Message, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Coordinator drives send operations end to end: optimistic insert, remote
// call, reconciliation. One instance serves all sessions.
//
// Coordinator is safe for concurrent use. Sends for distinct sessions may
// overlap; a second send for the same session is rejected with
// ErrSendInFlight.
type Coordinator struct {
	sender Sender
	cache  *Cache
	rec    reconciler
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewCoordinator creates a Coordinator. logger may be nil.
func NewCoordinator(sender Sender, cache *Cache, logger *slog.Logger) (*Coordinator, error) {
	if sender == nil {
		return nil, errors.New("chat.NewCoordinator: sender is required")
	}
	if cache == nil {
		return nil, errors.New("chat.NewCoordinator: cache is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		sender:   sender,
		cache:    cache,
		rec:      reconciler{cache: cache, logger: logger},
		logger:   logger,
		inflight: make(map[string]struct{}),
	}, nil
}

// SendText sends a user text turn. The trimmed text appears in the cache
// immediately as a pending message; on success it is replaced by the durable
// message and the AI reply is appended. On failure the session's cache is
// restored to the exact pre-send snapshot, because no durable identifier was
// ever created for the turn.
func (co *Coordinator) SendText(ctx context.Context, sessionID, text string) (SendResult, error) {
	if sessionID == "" {
		return SendResult{}, ErrNoSession
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return SendResult{}, ErrEmptyMessage
	}
	release, err := co.acquire(sessionID)
	if err != nil {
		return SendResult{}, err
	}
	defer release()

	localID := newLocalID()

	// A stale refetch landing after the pending insert would silently drop
	// the optimistic entry. Cancel before touching the partition.
	co.cache.CancelRefresh(sessionID)
	snapshot := co.cache.Get(sessionID)
	co.cache.Append(sessionID, Message{
		ID:        localID,
		SessionID: sessionID,
		Role:      RoleUser,
		Text:      text,
		CreatedAt: time.Now(),
	})

	res, err := co.sender.SendText(ctx, sessionID, text)
	if err != nil {
		co.rec.rollback(sessionID, snapshot)
		co.logger.Debug("text send failed, rolled back",
			"session_id", sessionID, "local_id", localID, "error", err)
		return SendResult{}, fmt.Errorf("send text: %w", err)
	}
	if err := co.rec.commitText(sessionID, localID, res); err != nil {
		return SendResult{}, err
	}
	return res, nil
}

// SendAudio sends a recorded audio turn. A placeholder with sentinel text is
// shown while the upload is in flight. On failure only the placeholder is
// removed; confirmed history is untouched, since the placeholder never
// represented committed local typing state.
func (co *Coordinator) SendAudio(ctx context.Context, sessionID string, payload audio.Payload) (SendResult, error) {
	if sessionID == "" {
		return SendResult{}, ErrNoSession
	}
	if err := payload.Validate(); err != nil {
		return SendResult{}, fmt.Errorf("send audio: %w", err)
	}
	release, err := co.acquire(sessionID)
	if err != nil {
		return SendResult{}, err
	}
	defer release()

	localID := newLocalID()

	co.cache.CancelRefresh(sessionID)
	co.cache.Append(sessionID, Message{
		ID:        localID,
		SessionID: sessionID,
		Role:      RoleUser,
		Text:      AudioPendingText,
		CreatedAt: time.Now(),
	})

	res, err := co.sender.SendAudio(ctx, sessionID, payload)
	if err != nil {
		co.rec.discardPending(sessionID, localID)
		co.logger.Debug("audio send failed, placeholder discarded",
			"session_id", sessionID, "local_id", localID, "error", err)
		return SendResult{}, fmt.Errorf("send audio: %w", err)
	}
	if err := co.rec.commitAudio(sessionID, localID, res); err != nil {
		return SendResult{}, err
	}
	return res, nil
}

// Refresh fetches the session's full message list and replaces the cached
// partition, unless a send starts meanwhile, in which case the result is
// discarded.
func (co *Coordinator) Refresh(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	rctx := co.cache.BeginRefresh(ctx, sessionID)
	defer co.cache.EndRefresh(rctx, sessionID)

	msgs, err := co.sender.Messages(rctx, sessionID)
	if err != nil {
		return fmt.Errorf("refresh messages: %w", err)
	}
	if !co.cache.SetFromRefresh(rctx, sessionID, msgs) {
		co.logger.Debug("refresh result discarded", "session_id", sessionID)
	}
	return nil
}

// DeleteSession deletes the session remotely and, on success, purges the
// cache partition. The caller owns the active-session pointer and clears it
// if it referenced the deleted session.
func (co *Coordinator) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrNoSession
	}
	if err := co.sender.DeleteSession(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	co.cache.Purge(sessionID)
	co.logger.Debug("session deleted", "session_id", sessionID)
	return nil
}

// acquire marks sessionID as having a send in flight. The returned release
// must be called once the send settles.
func (co *Coordinator) acquire(sessionID string) (func(), error) {
	co.mu.Lock()
	defer co.mu.Unlock()
	if _, busy := co.inflight[sessionID]; busy {
		return nil, fmt.Errorf("%w: %s", ErrSendInFlight, sessionID)
	}
	co.inflight[sessionID] = struct{}{}
	return func() {
		co.mu.Lock()
		delete(co.inflight, sessionID)
		co.mu.Unlock()
	}, nil
}
