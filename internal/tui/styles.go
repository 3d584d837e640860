package tui

import (
	"strings"

	"charm.land/lipgloss/v2"
)

// Accent color for PREPWISE branding
const accentTeal = "#2BB3A3"

// PREPWISE ASCII art (filled block style)
var prepwiseArt = []string{
	"  ██████╗ ██████╗ ███████╗██████╗ ██╗    ██╗██╗███████╗███████╗",
	"  ██╔══██╗██╔══██╗██╔════╝██╔══██╗██║    ██║██║██╔════╝██╔════╝",
	"  ██████╔╝██████╔╝█████╗  ██████╔╝██║ █╗ ██║██║███████╗█████╗  ",
	"  ██╔═══╝ ██╔══██╗██╔══╝  ██╔═══╝ ██║███╗██║██║╚════██║██╔══╝  ",
	"  ██║     ██║  ██║███████╗██║     ╚███╔███╔╝██║███████║███████╗",
	"  ╚═╝     ╚═╝  ╚═╝╚══════╝╚═╝      ╚══╝╚══╝ ╚═╝╚══════╝╚══════╝",
}

// Styles contains all lipgloss styles for the TUI.
type Styles struct {
	Banner     lipgloss.Style
	Header     lipgloss.Style
	User       lipgloss.Style
	Assistant  lipgloss.Style
	System     lipgloss.Style
	Tips       lipgloss.Style
	Error      lipgloss.Style
	Prompt     lipgloss.Style
	Separator  lipgloss.Style // Horizontal line separator
	StatusBar  lipgloss.Style
	Item       lipgloss.Style // Sidebar session entry
	ActiveItem lipgloss.Style // Sidebar active session entry
}

// DefaultStyles returns the default style configuration.
func DefaultStyles() Styles {
	return Styles{
		Banner:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentTeal)),
		Header:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentTeal)),
		User:       lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Assistant:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
		System:     lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("240")),
		Tips:       lipgloss.NewStyle().Foreground(lipgloss.Color("255")),
		Error:      lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Prompt:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")),
		Separator:  lipgloss.NewStyle().Foreground(lipgloss.Color("240")), // Gray separator line
		StatusBar:  lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		Item:       lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		ActiveItem: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentTeal)),
	}
}

// RenderBanner returns the PREPWISE ASCII art banner as a styled string.
func (s Styles) RenderBanner() string {
	var b strings.Builder
	for _, line := range prepwiseArt {
		_, _ = b.WriteString(s.Banner.Render(line))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}

// welcomeTips contains getting started tips displayed under the banner.
var welcomeTips = []string{
	"Tips for getting started:",
	"  • Type an answer and press Enter to send it to the interviewer",
	"  • Type a .wav path and press Ctrl+A to answer with audio",
	"  • Ctrl+N starts a new session, Tab switches between sessions",
	"  • Use /help to see available commands",
}

// RenderWelcomeTips returns styled welcome tips.
func (s Styles) RenderWelcomeTips() string {
	var b strings.Builder
	for _, tip := range welcomeTips {
		_, _ = b.WriteString(s.Tips.Render(tip))
		_, _ = b.WriteString("\n")
	}
	return b.String()
}
