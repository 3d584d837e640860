package tui

import (
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/prepwise/prepwise/internal/chat"
)

// View implements tea.Model.
// Uses AltScreen with a session sidebar next to the scrollable conversation.
func (m *Model) View() tea.View {
	m.viewBuf.Reset()

	// Sidebar and conversation side by side
	body := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderSidebar(),
		" ",
		m.viewport.View(),
	)
	_, _ = m.viewBuf.WriteString(body)
	_, _ = m.viewBuf.WriteString("\n")

	// Separator line above input
	_, _ = m.viewBuf.WriteString(m.renderSeparator())
	_, _ = m.viewBuf.WriteString("\n")

	// Input prompt stays focused so the next answer can be typed while a
	// send is in flight.
	_, _ = m.viewBuf.WriteString(m.styles.Prompt.Render("> "))
	_, _ = m.viewBuf.WriteString(m.input.View())
	_, _ = m.viewBuf.WriteString("\n")

	// Separator line below input
	_, _ = m.viewBuf.WriteString(m.renderSeparator())
	_, _ = m.viewBuf.WriteString("\n")

	// Help bar (keyboard shortcuts)
	_, _ = m.viewBuf.WriteString(m.renderStatusBar())

	v := tea.NewView(m.viewBuf.String())
	v.AltScreen = true
	return v
}

// rebuildViewportContent reconstructs the conversation pane from the cache.
// Called whenever messages, send state, or the active session change.
func (m *Model) rebuildViewportContent() {
	var b strings.Builder

	sess := m.activeSession()

	if m.state == StateNewSession {
		_, _ = b.WriteString(m.styles.RenderBanner())
		_, _ = b.WriteString("\n")
		_, _ = b.WriteString(m.renderForm())
		m.viewport.SetContent(b.String())
		return
	}

	if sess == nil {
		_, _ = b.WriteString(m.styles.RenderBanner())
		_, _ = b.WriteString("\n")
		_, _ = b.WriteString(m.styles.RenderWelcomeTips())
		if m.state == StateLoading {
			_, _ = b.WriteString("\n")
			_, _ = b.WriteString(m.spinner.View())
			_, _ = b.WriteString(" Loading sessions...\n")
		}
		m.viewport.SetContent(b.String())
		return
	}

	_, _ = b.WriteString(m.styles.Header.Render(sessionTitle(*sess)))
	_, _ = b.WriteString("\n\n")

	for _, msg := range m.cache.Get(sess.ID) {
		m.renderMessage(&b, msg)
	}

	if m.state == StateSending {
		_, _ = b.WriteString(m.spinner.View())
		_, _ = b.WriteString(" Interviewer is thinking...\n\n")
	}

	if m.status != "" && time.Since(m.statusAt) < maxStatusAge {
		_, _ = b.WriteString(m.styles.System.Render(m.status))
		_, _ = b.WriteString("\n")
	}

	m.viewport.SetContent(b.String())
}

func (m *Model) renderMessage(b *strings.Builder, msg chat.Message) {
	switch msg.Role {
	case chat.RoleUser:
		label := "You> "
		if msg.Pending() {
			label = "You (sending)> "
		}
		_, _ = b.WriteString(m.styles.User.Render(label))
		_, _ = b.WriteString(messageText(msg))
	case chat.RoleAI:
		_, _ = b.WriteString(m.styles.Assistant.Render("Interviewer> "))
		_, _ = b.WriteString(m.markdown.Render(msg.Text))
	}
	_, _ = b.WriteString("\n\n")
}

// messageText returns the display text for a message, substituting a voice
// marker for confirmed audio turns without a transcript.
func messageText(msg chat.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	if msg.AudioKey != "" {
		return "[voice answer]"
	}
	return msg.Text
}

func (m *Model) renderForm() string {
	var b strings.Builder
	_, _ = b.WriteString(m.styles.Header.Render("New interview session"))
	_, _ = b.WriteString("\n\n")
	for i, prompt := range formPrompts {
		switch {
		case i < m.form.idx:
			_, _ = b.WriteString(m.styles.System.Render(fmt.Sprintf("  %s: %s", prompt, m.form.fields[i])))
		case i == m.form.idx:
			_, _ = b.WriteString(m.styles.User.Render("> " + prompt + ":"))
		default:
			_, _ = b.WriteString(m.styles.System.Render("  " + prompt + ":"))
		}
		_, _ = b.WriteString("\n")
	}
	_, _ = b.WriteString("\n")
	_, _ = b.WriteString(m.styles.Tips.Render("Type each field and press Enter."))
	_, _ = b.WriteString("\n")
	return b.String()
}

// renderSidebar returns the session list column.
func (m *Model) renderSidebar() string {
	var b strings.Builder
	_, _ = b.WriteString(m.styles.Header.Render("Sessions"))
	_, _ = b.WriteString("\n")

	if len(m.sessions) == 0 {
		_, _ = b.WriteString(m.styles.System.Render("(none yet)"))
		_, _ = b.WriteString("\n")
	}
	for i, s := range m.sessions {
		line := truncate(sessionTitle(s), sidebarWidth-4)
		if s.Status == chat.StatusCompleted {
			line += " ✓"
		}
		if i == m.active {
			_, _ = b.WriteString(m.styles.ActiveItem.Render("▸ " + line))
		} else {
			_, _ = b.WriteString(m.styles.Item.Render("  " + line))
		}
		_, _ = b.WriteString("\n")
	}

	height := m.viewport.Height()
	return lipgloss.NewStyle().
		Width(sidebarWidth).
		Height(height).
		MaxHeight(height).
		Render(b.String())
}

func sessionTitle(s chat.Session) string {
	return s.JobTitle + " @ " + s.CompanyName
}

func truncate(s string, n int) string {
	if n <= 1 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// renderSeparator returns a horizontal line separator.
func (m *Model) renderSeparator() string {
	width := m.width
	if width <= 0 {
		width = 80 // Default width
	}
	return m.styles.Separator.Render(strings.Repeat("─", width))
}

// renderStatusBar returns state-appropriate keyboard shortcut help.
func (m *Model) renderStatusBar() string {
	var bindings []key.Binding
	switch m.state {
	case StateInput:
		bindings = []key.Binding{
			m.keys.Submit, m.keys.Audio, m.keys.NewSession,
			m.keys.Delete, m.keys.NextSess, m.keys.Quit,
		}
	case StateSending:
		bindings = []key.Binding{
			m.keys.ScrollUp, m.keys.ScrollDown, m.keys.Quit,
		}
	case StateNewSession:
		bindings = []key.Binding{
			m.keys.Submit, m.keys.Cancel, m.keys.Quit,
		}
	}
	return m.help.ShortHelpView(bindings)
}
