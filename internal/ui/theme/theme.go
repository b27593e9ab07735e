// Package theme holds the lipgloss styles shared by the CLI output.
package theme

import (
	"charm.land/lipgloss/v2"
)

var (
	Primary   = lipgloss.Color("#8B5CF6")
	Secondary = lipgloss.Color("#14B8A6")
	Accent    = lipgloss.Color("#F97316")
	Success   = lipgloss.Color("#22C55E")
	Error     = lipgloss.Color("#F43F5E")
	Text      = lipgloss.Color("#F8FAFC")
	TextDim   = lipgloss.Color("#94A3B8")
	Border    = lipgloss.Color("#334155")
)

var (
	Title    = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	Subtitle = lipgloss.NewStyle().Foreground(TextDim)
	Body     = lipgloss.NewStyle().Foreground(Text)
	Hint     = lipgloss.NewStyle().Foreground(TextDim).Italic(true)
	ID       = lipgloss.NewStyle().Foreground(Secondary)
	Warning  = lipgloss.NewStyle().Foreground(Error).Bold(true)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
)

// Per-status styles. The bar segments reuse the status colors.
var (
	Locked    = lipgloss.NewStyle().Foreground(TextDim)
	Available = lipgloss.NewStyle().Foreground(Accent).Bold(true)
	Mastered  = lipgloss.NewStyle().Foreground(Success).Bold(true)

	SegmentMastered  = lipgloss.NewStyle().Background(Success)
	SegmentAvailable = lipgloss.NewStyle().Background(Accent)
	SegmentLocked    = lipgloss.NewStyle().Background(Border)
)

var statusGlyphs = map[string]struct {
	glyph string
	style lipgloss.Style
}{
	"mastered":  {"●", Mastered},
	"available": {"◐", Available},
	"locked":    {"○", Locked},
}

// Status renders a mastery status with its glyph and color. Unknown
// statuses render plain.
func Status(status string) string {
	if g, ok := statusGlyphs[status]; ok {
		return g.style.Render(g.glyph + " " + status)
	}
	return Body.Render(status)
}
