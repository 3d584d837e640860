// Package tui provides the Bubble Tea terminal interface for interview
// sessions.
//
// The model renders straight from the message cache: sends go through the
// mutation coordinator, which inserts the pending entry before the network
// round trip, and a cache subscription pumps change notifications back into
// the event loop so the optimistic state is visible immediately.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textarea"
	"charm.land/bubbles/v2/viewport"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/prepwise/prepwise/internal/chat"
	"github.com/prepwise/prepwise/internal/client"
)

// State represents the TUI state machine.
type State int

// TUI state machine states.
const (
	StateLoading    State = iota // Fetching the session list
	StateInput                   // Awaiting user input
	StateSending                 // A send is outstanding for the active session
	StateNewSession              // Filling in the new-session form
)

// Layout constants for viewport height calculation.
const (
	sidebarWidth   = 28 // Session list column
	separatorLines = 2  // Two separator lines (above and below input)
	helpLines      = 1  // Help bar height
	promptLines    = 1  // Prompt prefix line
	minViewport    = 3  // Minimum viewport height
)

// maxStatusAge hides stale status lines after this long.
const maxStatusAge = 10 * time.Second

// Backend lists and creates sessions. Satisfied by *client.Client; the send
// path goes through the coordinator instead.
type Backend interface {
	ListSessions(ctx context.Context) ([]chat.Session, error)
	CreateSession(ctx context.Context, params client.CreateSessionParams) (*chat.Session, error)
}

// newSessionForm collects the profile fields one at a time through the
// shared textarea.
type newSessionForm struct {
	fields [4]string
	idx    int
}

var formPrompts = [4]string{"Job title", "Company", "Topic", "Difficulty (optional)"}

// Model is the Bubble Tea model for the interview terminal interface.
type Model struct {
	// Dependencies
	coord   *chat.Coordinator
	cache   *chat.Cache
	backend Backend
	pointer *chat.StateFile
	logger  *slog.Logger

	// State
	state    State
	sessions []chat.Session
	active   int // index into sessions, -1 when none

	// Components
	input    textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     keyMap
	styles   Styles
	markdown *markdownRenderer

	form newSessionForm

	// Transient system line under the conversation
	status   string
	statusAt time.Time

	// Dimensions
	width  int
	height int

	viewBuf strings.Builder // Reusable buffer for View()

	ctx       context.Context
	ctxCancel context.CancelFunc
}

// New creates a Model. Returns an error if required dependencies are nil.
//
// ctx must be the same context passed to tea.WithContext so cancellation
// behaves consistently.
func New(ctx context.Context, coord *chat.Coordinator, cache *chat.Cache, backend Backend, pointer *chat.StateFile, logger *slog.Logger) (*Model, error) {
	if ctx == nil {
		return nil, errors.New("tui.New: ctx is required")
	}
	if coord == nil {
		return nil, errors.New("tui.New: coordinator is required")
	}
	if cache == nil {
		return nil, errors.New("tui.New: cache is required")
	}
	if backend == nil {
		return nil, errors.New("tui.New: backend is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(ctx)

	ta := textarea.New()
	ta.Placeholder = "Answer the interviewer..."
	ta.SetHeight(1)
	ta.SetWidth(120) // Updated on WindowSizeMsg
	ta.MaxWidth = 0
	ta.ShowLineNumbers = false

	cleanStyle := textarea.StyleState{
		Base:        lipgloss.NewStyle(),
		Text:        lipgloss.NewStyle(),
		Placeholder: lipgloss.NewStyle().Foreground(lipgloss.Color("240")),
		Prompt:      lipgloss.NewStyle(),
	}
	ta.SetStyles(textarea.Styles{Focused: cleanStyle, Blurred: cleanStyle})
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	// Built-in viewport key handling is disabled; keys are routed explicitly
	// in handleKey to avoid conflicts with the textarea.
	vp := viewport.New(viewport.WithWidth(80), viewport.WithHeight(20))
	vp.MouseWheelEnabled = true
	vp.SoftWrap = true
	vp.KeyMap = viewport.KeyMap{}

	return &Model{
		coord:     coord,
		cache:     cache,
		backend:   backend,
		pointer:   pointer,
		logger:    logger,
		state:     StateLoading,
		active:    -1,
		input:     ta,
		viewport:  vp,
		spinner:   sp,
		help:      help.New(),
		keys:      newKeyMap(),
		styles:    DefaultStyles(),
		markdown:  newMarkdownRenderer(80),
		width:     80,
		ctx:       ctx,
		ctxCancel: cancel,
	}, nil
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		m.input.Focus(),
		m.loadSessionsCmd(),
	)
}

// activeSession returns the active session, or nil.
func (m *Model) activeSession() *chat.Session {
	if m.active < 0 || m.active >= len(m.sessions) {
		return nil
	}
	return &m.sessions[m.active]
}

// setStatus shows a transient system line under the conversation.
func (m *Model) setStatus(s string) {
	m.status = s
	m.statusAt = time.Now()
}

// selectSession switches the active session and persists the pointer.
func (m *Model) selectSession(idx int) tea.Cmd {
	if idx < 0 || idx >= len(m.sessions) {
		m.active = -1
		return nil
	}
	m.active = idx
	id := m.sessions[idx].ID
	if m.pointer != nil {
		if err := m.pointer.Save(id); err != nil {
			m.logger.Debug("failed to save session pointer", "error", err)
		}
	}
	m.rebuildViewportContent()
	if m.cache.Has(id) {
		return nil
	}
	return m.refreshCmd(id)
}

// Run drives the program to completion. The cache subscription pumps change
// notifications into the event loop so optimistic inserts render while the
// network call is still in flight.
func Run(ctx context.Context, m *Model) error {
	p := tea.NewProgram(m, tea.WithContext(ctx))

	unsubscribe := m.cache.Subscribe(func(sessionID string) {
		p.Send(cacheChangedMsg{sessionID: sessionID})
	})
	defer unsubscribe()

	_, err := p.Run()
	return err
}
