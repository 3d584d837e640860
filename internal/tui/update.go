package tui

import (
	"context"
	"errors"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"

	"github.com/prepwise/prepwise/internal/chat"
)

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		inputHeight := m.input.Height() + promptLines
		fixedHeight := separatorLines + inputHeight + helpLines
		vpHeight := max(msg.Height-fixedHeight, minViewport)

		m.viewport.SetWidth(max(msg.Width-sidebarWidth-1, 20))
		m.viewport.SetHeight(vpHeight)
		m.input.SetWidth(msg.Width - 4) // Room for "> " prompt
		m.help.SetWidth(msg.Width)
		m.markdown.UpdateWidth(max(msg.Width-sidebarWidth-1, 20))

		m.rebuildViewportContent()
		return m, nil

	case tea.MouseWheelMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		if m.state == StateSending || m.state == StateLoading {
			m.rebuildViewportContent()
		}
		return m, cmd

	case sessionsLoadedMsg:
		return m.handleSessionsLoaded(msg)

	case sessionCreatedMsg:
		if msg.err != nil {
			m.state = StateInput
			m.setStatus("create session failed: " + msg.err.Error())
			m.rebuildViewportContent()
			return m, m.input.Focus()
		}
		m.sessions = append([]chat.Session{*msg.session}, m.sessions...)
		m.state = StateInput
		m.input.Placeholder = "Answer the interviewer..."
		return m, tea.Batch(m.input.Focus(), m.selectSession(0))

	case sessionDeletedMsg:
		return m.handleSessionDeleted(msg)

	case refreshDoneMsg:
		if msg.err != nil && !errors.Is(msg.err, context.Canceled) {
			m.setStatus("refresh failed: " + msg.err.Error())
			m.rebuildViewportContent()
		}
		return m, nil

	case sendDoneMsg:
		return m.handleSendDone(msg)

	case cacheChangedMsg:
		if sess := m.activeSession(); sess != nil && sess.ID == msg.sessionID {
			m.rebuildViewportContent()
			m.viewport.GotoBottom()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleSessionsLoaded(msg sessionsLoadedMsg) (tea.Model, tea.Cmd) {
	m.state = StateInput
	if msg.err != nil {
		m.setStatus("failed to load sessions: " + msg.err.Error())
		m.rebuildViewportContent()
		return m, nil
	}
	m.sessions = msg.sessions

	// Restore the last active session when it still exists.
	idx := 0
	if m.pointer != nil {
		if saved, err := m.pointer.Load(); err == nil && saved != "" {
			for i, s := range m.sessions {
				if s.ID == saved {
					idx = i
					break
				}
			}
		}
	}
	if len(m.sessions) == 0 {
		m.startNewSessionForm()
		return m, nil
	}
	return m, m.selectSession(idx)
}

func (m *Model) handleSessionDeleted(msg sessionDeletedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setStatus("delete failed: " + msg.err.Error())
		m.rebuildViewportContent()
		return m, nil
	}

	if m.pointer != nil {
		if err := m.pointer.ClearIf(msg.sessionID); err != nil {
			m.logger.Debug("failed to clear session pointer", "error", err)
		}
	}

	kept := m.sessions[:0]
	for _, s := range m.sessions {
		if s.ID != msg.sessionID {
			kept = append(kept, s)
		}
	}
	m.sessions = kept

	if len(m.sessions) == 0 {
		m.active = -1
		m.startNewSessionForm()
		return m, nil
	}
	return m, m.selectSession(0)
}

func (m *Model) handleSendDone(msg sendDoneMsg) (tea.Model, tea.Cmd) {
	m.state = StateInput

	if msg.err != nil {
		switch {
		case errors.Is(msg.err, context.Canceled):
			m.setStatus("(canceled)")
		case errors.Is(msg.err, chat.ErrSendInFlight):
			m.setStatus("previous send still in flight")
		default:
			m.setStatus("send failed: " + msg.err.Error())
		}
		// Failed typed turns come back into the input; the optimistic entry
		// is already rolled back by the coordinator.
		if msg.typed != "" {
			m.input.SetValue(msg.typed)
			m.input.CursorEnd()
		}
	}

	m.rebuildViewportContent()
	m.viewport.GotoBottom()
	return m, m.input.Focus()
}
