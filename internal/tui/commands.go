package tui

import (
	tea "charm.land/bubbletea/v2"

	"github.com/prepwise/prepwise/internal/audio"
	"github.com/prepwise/prepwise/internal/chat"
	"github.com/prepwise/prepwise/internal/client"
)

// Message types for async command results.
type (
	// sessionsLoadedMsg carries the initial session list.
	sessionsLoadedMsg struct {
		sessions []chat.Session
		err      error
	}

	// sessionCreatedMsg carries a newly created session.
	sessionCreatedMsg struct {
		session *chat.Session
		err     error
	}

	// sessionDeletedMsg reports a completed delete.
	sessionDeletedMsg struct {
		sessionID string
		err       error
	}

	// refreshDoneMsg reports a background refetch settling.
	refreshDoneMsg struct {
		sessionID string
		err       error
	}

	// sendDoneMsg reports a send settling. typed holds the original text so
	// a failed turn can be restored into the input.
	sendDoneMsg struct {
		sessionID string
		typed     string
		audioPath string
		err       error
	}

	// cacheChangedMsg arrives from the cache subscription, outside the
	// command flow, whenever any partition changes.
	cacheChangedMsg struct {
		sessionID string
	}
)

// loadSessionsCmd fetches the session list.
func (m *Model) loadSessionsCmd() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		sessions, err := m.backend.ListSessions(ctx)
		return sessionsLoadedMsg{sessions: sessions, err: err}
	}
}

// createSessionCmd creates a session from the completed form.
func (m *Model) createSessionCmd(form newSessionForm) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		sess, err := m.backend.CreateSession(ctx, client.CreateSessionParams{
			JobTitle:    form.fields[0],
			CompanyName: form.fields[1],
			Topic:       form.fields[2],
			Difficulty:  form.fields[3],
		})
		return sessionCreatedMsg{session: sess, err: err}
	}
}

// deleteSessionCmd deletes a session through the coordinator, which purges
// the cache partition on success.
func (m *Model) deleteSessionCmd(sessionID string) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		err := m.coord.DeleteSession(ctx, sessionID)
		return sessionDeletedMsg{sessionID: sessionID, err: err}
	}
}

// refreshCmd refetches a session's messages in the background. The
// coordinator discards the result if a send starts meanwhile.
func (m *Model) refreshCmd(sessionID string) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		err := m.coord.Refresh(ctx, sessionID)
		return refreshDoneMsg{sessionID: sessionID, err: err}
	}
}

// sendTextCmd sends a typed turn. The coordinator inserts the pending entry
// before the network call, so the cache subscription renders it immediately.
func (m *Model) sendTextCmd(sessionID, text string) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		_, err := m.coord.SendText(ctx, sessionID, text)
		return sendDoneMsg{sessionID: sessionID, typed: text, err: err}
	}
}

// sendAudioCmd loads a WAV file and sends it as a recorded turn.
func (m *Model) sendAudioCmd(sessionID, path string) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		payload, err := audio.LoadWAV(path)
		if err != nil {
			return sendDoneMsg{sessionID: sessionID, audioPath: path, err: err}
		}
		_, err = m.coord.SendAudio(ctx, sessionID, payload)
		return sendDoneMsg{sessionID: sessionID, audioPath: path, err: err}
	}
}
