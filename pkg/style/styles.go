package style

import (
	"github.com/charmbracelet/lipgloss"
)

// Base styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(HeadingColor).
			Bold(true)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(HeadingColor).
			Underline(true)

	NormalStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	MutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	CodeStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	PathStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Italic(true)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)
)

// Activation role styles
var (
	ExplicitStyle = lipgloss.NewStyle().
			Foreground(ExplicitColor).
			Bold(true)

	DependencyStyle = lipgloss.NewStyle().
			Foreground(DependencyColor)

	LockStyle = lipgloss.NewStyle().
			Foreground(LockColor).
			Bold(true)
)

// Indicator glyphs, unstyled. Renderers paint them.
const (
	SuccessGlyph = "✓"
	ErrorGlyph   = "✗"
	WarningGlyph = "!"
	InfoGlyph    = "•"
	ActiveGlyph  = "●"
	IdleGlyph    = "○"
)

// Indent pads s by level steps of two spaces.
func Indent(s string, level int) string {
	return lipgloss.NewStyle().PaddingLeft(level * 2).Render(s)
}

func Bold(s string) string {
	return lipgloss.NewStyle().Bold(true).Render(s)
}

func Italic(s string) string {
	return lipgloss.NewStyle().Italic(true).Render(s)
}
