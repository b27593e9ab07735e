package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/conceptree/internal/ui/theme"
)

// MasteryBar is a stacked bar of mastered, available and locked concept
// counts, followed by the mastered percentage.
type MasteryBar struct {
	Label     string
	Mastered  int
	Available int
	Locked    int
	Width     int // total rendered width, label included
}

const minBarWidth = 4

// Percent is the mastered share of all counted concepts.
func (b MasteryBar) Percent() int {
	total := b.Mastered + b.Available + b.Locked
	if total == 0 {
		return 0
	}
	return b.Mastered * 100 / total
}

func (b MasteryBar) View() string {
	var out strings.Builder
	if b.Label != "" {
		out.WriteString(theme.Body.Render(b.Label) + "  ")
	}
	suffix := theme.Subtitle.Render(fmt.Sprintf("  %3d%%", b.Percent()))

	width := max(b.Width-lipgloss.Width(out.String())-lipgloss.Width(suffix), minBarWidth)
	m, a, l := segments(width, b.Mastered, b.Available, b.Locked)

	out.WriteString(theme.SegmentMastered.Render(strings.Repeat(" ", m)))
	out.WriteString(theme.SegmentAvailable.Render(strings.Repeat(" ", a)))
	out.WriteString(theme.SegmentLocked.Render(strings.Repeat(" ", l)))
	out.WriteString(suffix)
	return out.String()
}

// segments splits width cells proportionally. Rounding slack goes to the
// locked segment so the bar never overflows and an empty catalog renders
// fully locked.
func segments(width, mastered, available, locked int) (m, a, l int) {
	total := mastered + available + locked
	if total == 0 {
		return 0, 0, width
	}
	m = width * mastered / total
	a = width * available / total
	return m, a, width - m - a
}
