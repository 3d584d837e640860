package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prepwise/prepwise/internal/session"
)

func TestListSessions(t *testing.T) {
	store := newFakeStore()
	store.addSession(session.StatusInProgress)
	store.addSession(session.StatusCompleted)
	srv := testServer(store, &fakeBlobs{}, &fakeResponder{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/sessions")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Sessions []sessionJSON `json:"sessions"`
		Total    int           `json:"total"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.Total)
	assert.Len(t, body.Sessions, 2)
	assert.NotEmpty(t, body.Sessions[0].ID)
}

func TestCreateSession(t *testing.T) {
	store := newFakeStore()
	srv := testServer(store, &fakeBlobs{}, &fakeResponder{})
	defer srv.Close()

	reqBody := `{"jobTitle":"SRE","companyName":"Initech","topic":"incident response","difficulty":"mid"}`
	resp, err := http.Post(srv.URL+"/api/sessions", "application/json", bytes.NewBufferString(reqBody))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created sessionJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.Equal(t, "SRE", created.JobTitle)
	assert.Equal(t, session.StatusInProgress, created.Status)
	assert.NotEmpty(t, created.ID)
}

func TestCreateSessionValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{`},
		{"missing job title", `{"companyName":"Acme","topic":"Go"}`},
		{"missing company", `{"jobTitle":"SRE","topic":"Go"}`},
		{"missing topic", `{"jobTitle":"SRE","companyName":"Acme"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			srv := testServer(store, &fakeBlobs{}, &fakeResponder{})
			defer srv.Close()

			resp, err := http.Post(srv.URL+"/api/sessions", "application/json", bytes.NewBufferString(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

			var errBody ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&errBody))
			assert.NotEmpty(t, errBody.Error)
		})
	}
}

func TestDeleteSession(t *testing.T) {
	store := newFakeStore()
	blobs := &fakeBlobs{}
	sess := store.addSession(session.StatusInProgress)
	store.messages[sess.ID] = []*session.Message{
		{ID: uuid.New(), SessionID: sess.ID, Role: session.RoleUser, AudioKey: "audio/x/1.wav"},
	}
	srv := testServer(store, blobs, &fakeResponder{})
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/sessions/"+sess.ID.String(), nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	assert.NotContains(t, store.sessions, sess.ID)
	require.Len(t, blobs.removed, 1, "session audio must be removed")
	assert.Equal(t, []string{"audio/x/1.wav"}, blobs.removed[0])
}

func TestDeleteSessionNotFound(t *testing.T) {
	srv := testServer(newFakeStore(), &fakeBlobs{}, &fakeResponder{})
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/sessions/"+uuid.NewString(), nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteSessionBadID(t *testing.T) {
	srv := testServer(newFakeStore(), &fakeBlobs{}, &fakeResponder{})
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/sessions/not-a-uuid", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCompleteSession(t *testing.T) {
	store := newFakeStore()
	sess := store.addSession(session.StatusInProgress)
	srv := testServer(store, &fakeBlobs{}, &fakeResponder{})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/sessions/"+sess.ID.String()+"/complete", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated sessionJSON
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.Equal(t, session.StatusCompleted, updated.Status)
}

func TestSessionMessages(t *testing.T) {
	store := newFakeStore()
	sess := store.addSession(session.StatusInProgress)
	store.messages[sess.ID] = []*session.Message{
		{ID: uuid.New(), SessionID: sess.ID, Role: session.RoleUser, Text: "hi", SequenceNumber: 1, CreatedAt: time.Now()},
		{ID: uuid.New(), SessionID: sess.ID, Role: session.RoleAI, Text: "hello", SequenceNumber: 2, CreatedAt: time.Now()},
	}
	srv := testServer(store, &fakeBlobs{}, &fakeResponder{})
	defer srv.Close()

	resp, err := http.Get(fmt.Sprintf("%s/api/sessions/%s/messages", srv.URL, sess.ID))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Messages []messageJSON `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Messages, 2)
	assert.Equal(t, session.RoleUser, body.Messages[0].Role)
	assert.Equal(t, "hello", body.Messages[1].Text)
}

func TestSessionMessagesNotFound(t *testing.T) {
	srv := testServer(newFakeStore(), &fakeBlobs{}, &fakeResponder{})
	defer srv.Close()

	resp, err := http.Get(fmt.Sprintf("%s/api/sessions/%s/messages", srv.URL, uuid.New()))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestParseIntParamBounds(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "/api/sessions?limit=5000&offset=-3", nil)
	assert.Equal(t, MaxListLimit, parseIntParam(req, "limit", DefaultListLimit, 1, MaxListLimit))
	assert.Equal(t, 0, parseIntParam(req, "offset", 0, 0, MaxListOffset))
	assert.Equal(t, DefaultListLimit, parseIntParam(req, "missing", DefaultListLimit, 1, MaxListLimit))
}
