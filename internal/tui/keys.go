package tui

import (
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
)

// Slash command constants.
const (
	cmdHelp   = "/help"
	cmdAudio  = "/audio"
	cmdNew    = "/new"
	cmdDelete = "/delete"
	cmdExit   = "/exit"
	cmdQuit   = "/quit"
)

// keyMap holds key bindings for help bar display.
type keyMap struct {
	Submit     key.Binding
	Audio      key.Binding
	NewSession key.Binding
	Delete     key.Binding
	NextSess   key.Binding
	Quit       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	Cancel     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Submit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
		Audio:      key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "send audio file")),
		NewSession: key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "new session")),
		Delete:     key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "delete session")),
		NextSess:   key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next session")),
		Quit:       key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		ScrollUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		ScrollDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
		Cancel:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

func (m *Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	k := msg.Key()

	if k.Mod&tea.ModCtrl != 0 {
		switch k.Code {
		case 'c':
			return m, m.cleanup()
		case 'a':
			return m.handleAudio()
		case 'n':
			if m.state == StateInput {
				m.startNewSessionForm()
				return m, nil
			}
		case 'd':
			return m.handleDelete()
		}
	}

	switch k.Code {
	case tea.KeyEnter:
		// Shift+Enter falls through to the textarea as a newline.
		if k.Mod&tea.ModShift == 0 {
			switch m.state {
			case StateInput:
				return m.handleSubmit()
			case StateNewSession:
				return m.handleFormSubmit()
			}
		}

	case tea.KeyTab:
		if m.state == StateInput && len(m.sessions) > 1 {
			return m, m.selectSession((m.active + 1) % len(m.sessions))
		}
		return m, nil

	case tea.KeyEscape:
		if m.state == StateNewSession && len(m.sessions) > 0 {
			m.state = StateInput
			m.input.Reset()
			m.input.Placeholder = "Answer the interviewer..."
			return m, nil
		}

	case tea.KeyPgUp:
		m.viewport.PageUp()
		return m, nil

	case tea.KeyPgDown:
		m.viewport.PageDown()
		return m, nil
	}

	// Typing stays enabled during a send so the next answer can be drafted.
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}

	if strings.HasPrefix(text, "/") {
		return m.handleSlashCommand(text)
	}

	sess := m.activeSession()
	if sess == nil {
		m.setStatus("no active session; press ctrl+n to create one")
		m.rebuildViewportContent()
		return m, nil
	}
	if m.state == StateSending {
		m.setStatus("previous send still in flight")
		m.rebuildViewportContent()
		return m, nil
	}

	m.input.Reset()
	m.status = ""
	m.state = StateSending

	return m, tea.Batch(m.spinner.Tick, m.sendTextCmd(sess.ID, text))
}

// handleAudio sends the typed value as a WAV file path.
func (m *Model) handleAudio() (tea.Model, tea.Cmd) {
	if m.state != StateInput {
		return m, nil
	}
	path := strings.TrimSpace(m.input.Value())
	if path == "" {
		m.setStatus("type a .wav file path, then press ctrl+a")
		m.rebuildViewportContent()
		return m, nil
	}
	sess := m.activeSession()
	if sess == nil {
		m.setStatus("no active session; press ctrl+n to create one")
		m.rebuildViewportContent()
		return m, nil
	}

	m.input.Reset()
	m.status = ""
	m.state = StateSending

	return m, tea.Batch(m.spinner.Tick, m.sendAudioCmd(sess.ID, path))
}

func (m *Model) handleDelete() (tea.Model, tea.Cmd) {
	if m.state != StateInput {
		return m, nil
	}
	sess := m.activeSession()
	if sess == nil {
		return m, nil
	}
	return m, m.deleteSessionCmd(sess.ID)
}

func (m *Model) handleSlashCommand(cmd string) (tea.Model, tea.Cmd) {
	name, arg, _ := strings.Cut(cmd, " ")
	switch name {
	case cmdHelp:
		m.setStatus("commands: /audio <path>, /new, /delete, /exit" +
			" | keys: enter send, ctrl+a audio, ctrl+n new, ctrl+d delete, tab switch, ctrl+c quit")
	case cmdAudio:
		m.input.SetValue(strings.TrimSpace(arg))
		return m.handleAudio()
	case cmdNew:
		m.input.Reset()
		m.startNewSessionForm()
		return m, nil
	case cmdDelete:
		m.input.Reset()
		return m.handleDelete()
	case cmdExit, cmdQuit:
		return m, m.cleanup()
	default:
		m.setStatus("unknown command: " + name)
	}
	m.input.Reset()
	m.rebuildViewportContent()
	return m, nil
}

// startNewSessionForm switches to the new-session form, reusing the input
// for one field at a time.
func (m *Model) startNewSessionForm() {
	m.state = StateNewSession
	m.form = newSessionForm{}
	m.input.Reset()
	m.input.Placeholder = formPrompts[0]
	m.rebuildViewportContent()
}

func (m *Model) handleFormSubmit() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())

	// The first three fields are required, difficulty is not.
	if value == "" && m.form.idx < 3 {
		return m, nil
	}

	m.form.fields[m.form.idx] = value
	m.form.idx++
	m.input.Reset()

	if m.form.idx < len(m.form.fields) {
		m.input.Placeholder = formPrompts[m.form.idx]
		return m, nil
	}

	m.input.Placeholder = "Answer the interviewer..."
	return m, m.createSessionCmd(m.form)
}

// cleanup cancels outstanding work and quits.
func (m *Model) cleanup() tea.Cmd {
	if m.ctxCancel != nil {
		m.ctxCancel()
		m.ctxCancel = nil
	}
	return tea.Quit
}
