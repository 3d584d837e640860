package api

import (
	"context"
	"fmt"
	"net/http/httptest"
	"time"

	"github.com/google/uuid"

	"github.com/prepwise/prepwise/internal/interviewer"
	"github.com/prepwise/prepwise/internal/log"
	"github.com/prepwise/prepwise/internal/session"
)

// fakeStore is an in-memory SessionStore for handler tests.
type fakeStore struct {
	sessions map[uuid.UUID]*session.Session
	messages map[uuid.UUID][]*session.Message

	createErr error
	listErr   error
	addErr    error

	deleted []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[uuid.UUID]*session.Session),
		messages: make(map[uuid.UUID][]*session.Message),
	}
}

func (f *fakeStore) addSession(status string) *session.Session {
	s := &session.Session{
		ID:          uuid.New(),
		JobTitle:    "Backend Engineer",
		CompanyName: "Acme",
		Topic:       "Go",
		Difficulty:  "senior",
		Status:      status,
		CreatedAt:   time.Now(),
	}
	f.sessions[s.ID] = s
	return s
}

func (f *fakeStore) CreateSession(_ context.Context, params session.CreateParams) (*session.Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s := &session.Session{
		ID:          uuid.New(),
		JobTitle:    params.JobTitle,
		CompanyName: params.CompanyName,
		Topic:       params.Topic,
		Difficulty:  params.Difficulty,
		Status:      session.StatusInProgress,
		CreatedAt:   time.Now(),
	}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *fakeStore) Session(_ context.Context, id uuid.UUID) (*session.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	return s, nil
}

func (f *fakeStore) Sessions(_ context.Context, limit, offset int) ([]*session.Session, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*session.Session
	for _, s := range f.sessions {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) CompleteSession(_ context.Context, id uuid.UUID) (*session.Session, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, session.ErrNotFound
	}
	s.Status = session.StatusCompleted
	return s, nil
}

func (f *fakeStore) DeleteSession(_ context.Context, id uuid.UUID) error {
	if _, ok := f.sessions[id]; !ok {
		return session.ErrNotFound
	}
	delete(f.sessions, id)
	delete(f.messages, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) AudioKeys(_ context.Context, id uuid.UUID) ([]string, error) {
	var keys []string
	for _, m := range f.messages[id] {
		if m.AudioKey != "" {
			keys = append(keys, m.AudioKey)
		}
	}
	return keys, nil
}

func (f *fakeStore) AddMessages(_ context.Context, sessionID uuid.UUID, msgs []*session.Message) ([]*session.Message, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	if _, ok := f.sessions[sessionID]; !ok {
		return nil, session.ErrNotFound
	}
	base := len(f.messages[sessionID])
	stored := make([]*session.Message, 0, len(msgs))
	for i, m := range msgs {
		c := *m
		c.ID = uuid.New()
		c.SessionID = sessionID
		c.SequenceNumber = base + i + 1
		c.CreatedAt = time.Now()
		stored = append(stored, &c)
	}
	f.messages[sessionID] = append(f.messages[sessionID], stored...)
	return stored, nil
}

func (f *fakeStore) Messages(_ context.Context, sessionID uuid.UUID, limit, offset int) ([]*session.Message, error) {
	msgs := f.messages[sessionID]
	if offset >= len(msgs) {
		return nil, nil
	}
	end := min(offset+limit, len(msgs))
	return msgs[offset:end], nil
}

// fakeBlobs records blob operations.
type fakeBlobs struct {
	putErr  error
	urlErr  error
	puts    [][]byte
	removed [][]string
}

func (f *fakeBlobs) PutAudio(_ context.Context, sessionID string, data []byte, _ string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	f.puts = append(f.puts, data)
	return fmt.Sprintf("audio/%s/%d.wav", sessionID, len(f.puts)), nil
}

func (f *fakeBlobs) AudioURL(_ context.Context, key string) (string, time.Time, error) {
	if f.urlErr != nil {
		return "", time.Time{}, f.urlErr
	}
	return "https://blobs.example.com/" + key + "?signed=yes", time.Now().Add(15 * time.Minute), nil
}

func (f *fakeBlobs) Remove(_ context.Context, keys []string) error {
	f.removed = append(f.removed, keys)
	return nil
}

// fakeResponder returns a canned reply and records what it saw.
type fakeResponder struct {
	reply string
	err   error

	lastProfile interviewer.Profile
	lastHistory []interviewer.Turn
	lastTurn    interviewer.Turn
}

func (f *fakeResponder) Reply(_ context.Context, profile interviewer.Profile, history []interviewer.Turn, last interviewer.Turn) (string, error) {
	f.lastProfile = profile
	f.lastHistory = history
	f.lastTurn = last
	if f.err != nil {
		return "", f.err
	}
	if f.reply == "" {
		return "Interesting. Tell me more.", nil
	}
	return f.reply, nil
}

// testServer wires the fakes into a full server (middleware included).
func testServer(store *fakeStore, blobs *fakeBlobs, responder *fakeResponder) *httptest.Server {
	srv := NewServer(nil, store, blobs, responder, Config{RateLimitRPS: 1000, RateLimitBurst: 1000}, log.NewNop())
	return httptest.NewServer(srv.Handler())
}
