package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent    = lipgloss.Color("#1DB954")
	warning   = lipgloss.Color("#F59E0B")
	danger    = lipgloss.Color("#EF4444")
	text      = lipgloss.Color("#F9FAFB")
	textMuted = lipgloss.Color("#9CA3AF")
	textDim   = lipgloss.Color("#6B7280")
	border    = lipgloss.Color("#4B5563")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(text)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(textMuted)

	dimStyle = lipgloss.NewStyle().
			Foreground(textDim)

	playingStyle = lipgloss.NewStyle().
			Foreground(accent)

	pausedStyle = lipgloss.NewStyle().
			Foreground(warning)

	errorStyle = lipgloss.NewStyle().
			Foreground(danger)

	cursorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(text).
			Background(border)

	currentStyle = lipgloss.NewStyle().
			Foreground(accent)

	queueBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1)
)
