//go:build integration
// +build integration

package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepwise/prepwise/internal/log"
	"github.com/prepwise/prepwise/internal/testutil"
)

func TestStore_CreateAndGet_Integration(t *testing.T) {
	dbContainer, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := New(dbContainer.Pool, log.NewNop())
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, CreateParams{
		JobTitle:    "Backend Engineer",
		CompanyName: "Acme",
		Topic:       "Go concurrency",
		Difficulty:  "senior",
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, sess.ID)
	assert.Equal(t, StatusInProgress, sess.Status)
	assert.Zero(t, sess.MessageCount)
	assert.NotZero(t, sess.CreatedAt)

	got, err := store.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, "Backend Engineer", got.JobTitle)
	assert.Equal(t, "senior", got.Difficulty)
}

func TestStore_SessionNotFound_Integration(t *testing.T) {
	dbContainer, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := New(dbContainer.Pool, log.NewNop())
	_, err := store.Session(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_AddAndListMessages_Integration(t *testing.T) {
	dbContainer, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := New(dbContainer.Pool, log.NewNop())
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, CreateParams{
		JobTitle: "SRE", CompanyName: "Initech", Topic: "incident response",
	})
	require.NoError(t, err)

	stored, err := store.AddMessages(ctx, sess.ID, []*Message{
		{Role: RoleUser, Text: "Tell me about yourself"},
		{Role: RoleAI, Text: "Certainly."},
	})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, 1, stored[0].SequenceNumber)
	assert.Equal(t, 2, stored[1].SequenceNumber)
	assert.NotEqual(t, uuid.Nil, stored[0].ID)

	msgs, err := store.Messages(ctx, sess.ID, 100, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[0].Role)
	assert.Equal(t, RoleAI, msgs[1].Role)

	got, err := store.Session(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.MessageCount)
}

func TestStore_AddMessages_InvalidRole_Integration(t *testing.T) {
	dbContainer, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := New(dbContainer.Pool, log.NewNop())
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, CreateParams{
		JobTitle: "SRE", CompanyName: "Initech", Topic: "oncall",
	})
	require.NoError(t, err)

	_, err = store.AddMessages(ctx, sess.ID, []*Message{{Role: "assistant", Text: "x"}})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

// Concurrent batches must interleave without sequence collisions thanks to
// the row lock.
func TestStore_AddMessages_Concurrent_Integration(t *testing.T) {
	dbContainer, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := New(dbContainer.Pool, log.NewNop())
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, CreateParams{
		JobTitle: "Backend Engineer", CompanyName: "Acme", Topic: "databases",
	})
	require.NoError(t, err)

	const writers = 5
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := store.AddMessages(ctx, sess.ID, []*Message{
				{Role: RoleUser, Text: fmt.Sprintf("turn %d", n)},
				{Role: RoleAI, Text: fmt.Sprintf("reply %d", n)},
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	msgs, err := store.Messages(ctx, sess.ID, 100, 0)
	require.NoError(t, err)
	require.Len(t, msgs, writers*2)
	for i, m := range msgs {
		assert.Equal(t, i+1, m.SequenceNumber)
	}
}

func TestStore_DeleteSessionCascades_Integration(t *testing.T) {
	dbContainer, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := New(dbContainer.Pool, log.NewNop())
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, CreateParams{
		JobTitle: "SRE", CompanyName: "Initech", Topic: "linux",
	})
	require.NoError(t, err)

	_, err = store.AddMessages(ctx, sess.ID, []*Message{
		{Role: RoleUser, Text: "hi", AudioKey: "audio/x/1.wav"},
		{Role: RoleAI, Text: "hello"},
	})
	require.NoError(t, err)

	keys, err := store.AudioKeys(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"audio/x/1.wav"}, keys)

	require.NoError(t, store.DeleteSession(ctx, sess.ID))

	_, err = store.Session(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	msgs, err := store.Messages(ctx, sess.ID, 100, 0)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	assert.ErrorIs(t, store.DeleteSession(ctx, sess.ID), ErrNotFound)
}

func TestStore_CompleteSession_Integration(t *testing.T) {
	dbContainer, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := New(dbContainer.Pool, log.NewNop())
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, CreateParams{
		JobTitle: "SRE", CompanyName: "Initech", Topic: "networking",
	})
	require.NoError(t, err)

	done, err := store.CompleteSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)
}

func TestStore_SessionsNewestFirst_Integration(t *testing.T) {
	dbContainer, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	store := New(dbContainer.Pool, log.NewNop())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := store.CreateSession(ctx, CreateParams{
			JobTitle: fmt.Sprintf("Role %d", i), CompanyName: "Acme", Topic: "go",
		})
		require.NoError(t, err)
	}

	sessions, err := store.Sessions(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "Role 2", sessions[0].JobTitle)
}
