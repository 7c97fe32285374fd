package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/stiffsim/internal/controller"
)

type styles struct {
	header   lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	muted    lipgloss.Style
	stiff    lipgloss.Style
	nonStiff lipgloss.Style
	switched lipgloss.Style
	chart    lipgloss.Style
	err      lipgloss.Style
	panel    lipgloss.Style
	canvas   lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		header: lipgloss.NewStyle().Bold(true).Foreground(t.Title).
			BorderStyle(lipgloss.NormalBorder()).BorderBottom(true).BorderForeground(t.Muted),
		label:    lipgloss.NewStyle().Foreground(t.Muted).Width(12),
		value:    lipgloss.NewStyle().Foreground(t.Text),
		muted:    lipgloss.NewStyle().Foreground(t.Muted),
		stiff:    lipgloss.NewStyle().Bold(true).Foreground(t.Stiff),
		nonStiff: lipgloss.NewStyle().Bold(true).Foreground(t.NonStiff),
		switched: lipgloss.NewStyle().Foreground(t.Switch),
		chart:    lipgloss.NewStyle().Foreground(t.Chart).Padding(1, 0),
		err:      lipgloss.NewStyle().Bold(true).Foreground(t.Error),
		panel: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).Padding(0, 1),
		canvas: lipgloss.NewStyle().Foreground(t.Text).Padding(1, 2),
	}
}

// badge renders a mode as a colored tag.
func (s styles) badge(m controller.Mode) string {
	if m == controller.Stiff {
		return s.stiff.Render("● STIFF")
	}
	return s.nonStiff.Render("○ NONSTIFF")
}

// ProgressBar renders a bar filled to percent in [0, 1].
func ProgressBar(percent float64, width int) string {
	filled := int(percent * float64(width))
	filled = max(0, min(filled, width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// ModeStrip renders one cell per mode, newest last, at most width cells.
func ModeStrip(modes []controller.Mode, width int) string {
	if len(modes) > width {
		modes = modes[len(modes)-width:]
	}
	var b strings.Builder
	for _, m := range modes {
		if m == controller.Stiff {
			b.WriteRune('█')
		} else {
			b.WriteRune('▁')
		}
	}
	return b.String()
}
